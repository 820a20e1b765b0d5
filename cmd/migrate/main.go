package main

import (
	"tradesim/internal/config"
	"tradesim/internal/db"
)

func main() {
	cfg := config.LoadConfig()

	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db.Migrate(dsn)
}
