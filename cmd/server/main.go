package main

import (
	"context"
	"net/http"
	"os"
	"time"

	webAdapter "tilestock/internal/adapters/web"
	"tilestock/internal/app"
	"tilestock/internal/cache"
	"tilestock/internal/core"
	"tilestock/internal/db"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	if os.Getenv("LOG_FORMAT") == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	redisClient, err := cache.InitRedis(ctx)
	if err != nil {
		log.Warnf("redis unavailable, catalog pages served uncached: %v", err)
	}
	pages := cache.NewPageCache(redisClient, 5*time.Minute)

	ledger := core.NewLedger(pool, log)
	catalog := core.NewCatalog(pool, log)
	txlog := core.NewTransactionLog(pool)
	products := core.NewProductService(pool)

	svc := app.NewAppService(pool, ledger, catalog, txlog, products, pages, log)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins, log)

	log.Infof("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
