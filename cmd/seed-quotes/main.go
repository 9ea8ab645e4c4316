package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"quote-games/internal/config"
	"quote-games/internal/db"
	"quote-games/internal/session"
)

type quoteRecord struct {
	Quote   string   `json:"quote"`
	Authors []string `json:"authors"`
}

func main() {
	filePath := flag.String("file", "quotes.json", "path to quotes json")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	records, err := readQuotes(*filePath)
	if err != nil {
		log.Fatalf("failed to read quotes: %v", err)
	}

	inserted := 0
	for _, record := range records {
		entry := db.Quote{
			Text:    record.Quote,
			Authors: session.JSONList(record.Authors),
			Stats:   db.EmptyStats(),
		}
		if err := conn.Where(db.Quote{Text: entry.Text}).FirstOrCreate(&entry).Error; err != nil {
			log.Fatalf("failed to upsert quote: %v", err)
		}
		inserted++
	}

	log.Printf("loaded %d quotes", inserted)
}

func readQuotes(path string) ([]quoteRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []quoteRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}

	var out []quoteRecord
	for _, record := range records {
		record.Quote = strings.TrimSpace(record.Quote)
		if record.Quote == "" {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}
