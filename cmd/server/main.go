package main

import (
	"context"
	"log"
	"tradesim/internal/api"
	"tradesim/internal/config"
	"tradesim/internal/ledger"
	"tradesim/internal/middleware"
	"tradesim/internal/position"
	"tradesim/internal/quote"
	"tradesim/internal/trading"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	cfg := config.LoadConfig()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if _, err = redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	store := ledger.NewStore(gdb)
	engine := position.NewEngine(store)
	quotes := quote.NewCachedGateway(
		quote.NewClient(cfg.QuoteAPIURL, cfg.QuoteAPIKey, cfg.QuoteTimeout),
		redisClient, cfg.QuoteCacheTTL,
	)
	executor := trading.NewExecutor(store, quotes)

	r := gin.Default()
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/register", api.RegisterHandler(store, cfg.StartingCash))
	r.POST("/login", api.LoginHandler(store, cfg.JWTSecret))

	// Trading and reporting routes (protected by JWT)
	authGroup := r.Group("/")
	authGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	authGroup.POST("/buy", api.BuyHandler(executor, redisClient))
	authGroup.POST("/sell", api.SellHandler(executor, redisClient))
	authGroup.GET("/portfolio", api.PortfolioHandler(store, engine, quotes, redisClient))
	authGroup.GET("/history", api.HistoryHandler(store, redisClient))
	authGroup.GET("/quote/:symbol", api.QuoteHandler(quotes))
	authGroup.GET("/cash", api.CashHandler(store))

	log.Println("Server running on " + cfg.AppPort)
	r.Run(":" + cfg.AppPort)
}
