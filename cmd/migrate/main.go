package main

import (
	"fmt"
	"log"

	"ragchat-be/internal/config"
	"ragchat-be/internal/model"
	"ragchat-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect
	opts := database.DefaultOptions()
	opts.Verbose = true
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, opts)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. Extensions
	log.Println("Step 1: Setting up extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to execute setup SQL: %v", err)
		}
	}

	// 4. Tables
	log.Println("Step 2: Running AutoMigrate...")
	if err := db.AutoMigrate(&model.DocumentEmbedding{}, &model.IndexedDocument{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Vector dimension follows the embedding model
	if dims := cfg.Database.EmbeddingDimensions; dims != model.DefaultEmbeddingDimensions {
		log.Printf("Step 3: Resizing embedding column to %d dimensions...", dims)
		alter := fmt.Sprintf(`ALTER TABLE document_embeddings ALTER COLUMN embedding_value TYPE vector(%d);`, dims)
		if err := db.Exec(alter).Error; err != nil {
			log.Fatalf("Error: Failed to resize embedding column: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
