package main

import (
	"context"
	"os"
	"time"

	"livepulse-service/database"
	"livepulse-service/logger"
)

func main() {
	// 从环境变量获取数据库 URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatalf("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, dbURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger.Println("Connected to database successfully")

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	logger.Printf("✅ %d migrations completed successfully", len(database.Migrations))
}
