// Package quotes exposes the quote catalog to the game engines. The engines
// treat it as a read-only card source, plus a best-effort channel to report
// win events back onto quote stats.
package quotes

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"quote-games/internal/db"
)

// Card is the read-only projection of a quote the games consume.
type Card struct {
	ID      uint     `json:"id"`
	Text    string   `json:"quote"`
	Authors []string `json:"authors"`
}

// Store is the collaborator contract the three game engines depend on.
type Store interface {
	GetAllQuotes() ([]Card, error)
	GetQuoteByID(id uint) (*Card, error)
	GetTotalQuotes() (int64, error)
	// RecordAnarchyWins bumps the anarchy win counter on each quote. Best
	// effort: callers log failures and never fail the user-facing action.
	RecordAnarchyWins(ids []uint) error
}

// GormStore implements Store on the quotes table.
type GormStore struct {
	conn *gorm.DB
}

func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{conn: conn}
}

func (s *GormStore) GetAllQuotes() ([]Card, error) {
	var records []db.Quote
	if err := s.conn.Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	cards := make([]Card, 0, len(records))
	for _, record := range records {
		cards = append(cards, toCard(record))
	}
	return cards, nil
}

func (s *GormStore) GetQuoteByID(id uint) (*Card, error) {
	var record db.Quote
	err := s.conn.Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	card := toCard(record)
	return &card, nil
}

func (s *GormStore) GetTotalQuotes() (int64, error) {
	var count int64
	err := s.conn.Model(&db.Quote{}).Count(&count).Error
	return count, err
}

func (s *GormStore) RecordAnarchyWins(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return s.conn.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			var record db.Quote
			err := tx.Where("id = ?", id).Take(&record).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			stats := map[string]any{}
			if len(record.Stats) > 0 {
				if err := json.Unmarshal(record.Stats, &stats); err != nil {
					stats = map[string]any{}
				}
			}
			points := 0
			if raw, ok := stats["anarchy_points"]; ok {
				if value, ok := raw.(float64); ok {
					points = int(value)
				}
			}
			stats["anarchy_points"] = points + 1
			encoded, err := json.Marshal(stats)
			if err != nil {
				return fmt.Errorf("encode quote stats: %w", err)
			}
			if err := tx.Model(&db.Quote{}).Where("id = ?", id).
				Update("stats", datatypes.JSON(encoded)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func toCard(record db.Quote) Card {
	var authors []string
	if len(record.Authors) > 0 {
		_ = json.Unmarshal(record.Authors, &authors)
	}
	return Card{ID: record.ID, Text: record.Text, Authors: authors}
}
