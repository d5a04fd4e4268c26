package main

import (
	"log"
	"time"

	"github.com/strideatlas/streets-backend-go/internal/api"
	"github.com/strideatlas/streets-backend-go/internal/config"
	"github.com/strideatlas/streets-backend-go/internal/database"
	"github.com/strideatlas/streets-backend-go/internal/handler"
	"github.com/strideatlas/streets-backend-go/internal/match"
	"github.com/strideatlas/streets-backend-go/internal/repository"
	"github.com/strideatlas/streets-backend-go/internal/roadgraph"
	"github.com/strideatlas/streets-backend-go/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

	graphRepo := repository.NewGraphRepository(db)
	coverageRepo := repository.NewCoverageRepository(db)
	areaRepo := repository.NewAreaRepository(db)

	var remote roadgraph.RemoteClient
	if !cfg.SkipRemote {
		remote = roadgraph.NewOverpassClient(cfg.OverpassEndpoints, cfg.GraphTimeout, cfg.GraphRetries)
	}
	provider := roadgraph.NewCachedProvider(remote, graphRepo, roadgraph.Options{
		CacheExpiry: time.Duration(cfg.CacheExpiryDays) * 24 * time.Hour,
		SkipRemote:  cfg.SkipRemote,
	})

	matchers := []match.Matcher{
		match.NewNodeProximityMatcher(cfg.Thresholds.SnapRadiusM),
		match.NewEdgeMatcher(
			match.NewOSRMClient(cfg.MatchEndpoints, cfg.MatchTimeout, cfg.MatchRetries),
			cfg.MaxCoordsPerCall,
			cfg.Thresholds,
		),
	}

	activityService := service.NewActivityService(cfg.Thresholds, provider, matchers, coverageRepo, areaRepo)
	coverageService := service.NewCoverageService(cfg.Thresholds, provider, coverageRepo)

	router := api.SetupRouter(
		handler.NewActivityHandler(activityService),
		handler.NewCoverageHandler(coverageService),
	)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
