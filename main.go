package main

import (
	"time"

	"github.com/quillhub/quillhub/config"
	"github.com/quillhub/quillhub/models"
	"github.com/quillhub/quillhub/routes"
	"github.com/quillhub/quillhub/services"
	"github.com/quillhub/quillhub/tasks"
	"github.com/quillhub/quillhub/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Profile{}, &models.Post{}, &models.Tag{}, &models.Comment{})

	cache := utils.NewCacheStore(utils.GetRedis())
	feed := services.NewFeed(db, cache, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	queue := tasks.NewClient(cfg)
	defer queue.Close()
	if worker := tasks.StartWorker(db, cfg); worker != nil {
		defer worker.Shutdown()
	}

	r := routes.SetupRouter(db, feed, queue)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
