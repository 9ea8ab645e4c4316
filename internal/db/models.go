package db

import (
	"gorm.io/datatypes"
)

// Quote is the unit of content all three games draw on. The game engines
// never mutate it except to bump win counters in Stats.
type Quote struct {
	ID      uint           `gorm:"primaryKey"`
	Text    string         `gorm:"column:quote_text;not null"`
	Authors datatypes.JSON `gorm:"not null"`
	Stats   datatypes.JSON `gorm:"not null"`
}

func (Quote) TableName() string { return "quotes" }

// EmptyStats is the initial stats payload for a freshly seeded quote.
func EmptyStats() datatypes.JSON {
	return datatypes.JSON([]byte("{}"))
}

// --- Quote Anarchy ---

type AnarchySession struct {
	Code         string `gorm:"primaryKey;size:6"`
	HostPlayerID string `gorm:"size:48;not null"`
	Status       string `gorm:"size:16;not null"`
	RoundNumber  int    `gorm:"not null;default:0"`
	JudgeIndex   int    `gorm:"not null;default:0"`
	BlackCard    string `gorm:"not null;default:''"`
	JudgingMode  string `gorm:"size:16;not null;default:'judge'"`
	MaxRounds    int    `gorm:"not null;default:8"`
	IsActive     bool   `gorm:"not null;default:true"`
	EndedReason  string `gorm:"not null;default:''"`
	EndedAt      int64  `gorm:"not null;default:0"`
	CreatedAt    int64  `gorm:"not null"`
	UpdatedAt    int64  `gorm:"not null"`
}

func (AnarchySession) TableName() string { return "qa_sessions" }

type AnarchyPlayer struct {
	SessionCode string `gorm:"primaryKey;size:6"`
	PlayerID    string `gorm:"primaryKey;size:48"`
	DisplayName string `gorm:"size:28;not null"`
	Seat        int    `gorm:"not null"`
	JoinedAt    int64  `gorm:"not null"`
	Score       int    `gorm:"not null;default:0"`
}

func (AnarchyPlayer) TableName() string { return "qa_players" }

// AnarchyHandCard is one dealt card slot for one player in one round.
type AnarchyHandCard struct {
	SessionCode  string         `gorm:"primaryKey;size:6"`
	RoundNumber  int            `gorm:"primaryKey"`
	PlayerID     string         `gorm:"primaryKey;size:48"`
	Slot         int            `gorm:"primaryKey"`
	QuoteID      uint           `gorm:"not null"`
	QuoteText    string         `gorm:"not null"`
	QuoteAuthors datatypes.JSON `gorm:"not null"`
}

func (AnarchyHandCard) TableName() string { return "qa_hands" }

type AnarchySubmission struct {
	SessionCode  string         `gorm:"primaryKey;size:6"`
	RoundNumber  int            `gorm:"primaryKey"`
	PlayerID     string         `gorm:"primaryKey;size:48"`
	QuoteID      uint           `gorm:"not null"`
	QuoteText    string         `gorm:"not null"`
	QuoteAuthors datatypes.JSON `gorm:"not null"`
	SubmittedAt  int64          `gorm:"not null"`
}

func (AnarchySubmission) TableName() string { return "qa_submissions" }

type AnarchyVote struct {
	SessionCode   string `gorm:"primaryKey;size:6"`
	RoundNumber   int    `gorm:"primaryKey"`
	VoterPlayerID string `gorm:"primaryKey;size:48"`
	VotedPlayerID string `gorm:"size:48;not null"`
	CreatedAt     int64  `gorm:"not null"`
}

func (AnarchyVote) TableName() string { return "qa_votes" }

// AnarchyRoundWinner holds every winner of a round; vote-mode ties produce
// multiple rows for the same round.
type AnarchyRoundWinner struct {
	SessionCode    string         `gorm:"primaryKey;size:6"`
	RoundNumber    int            `gorm:"primaryKey"`
	WinnerPlayerID string         `gorm:"primaryKey;size:48"`
	QuoteID        uint           `gorm:"not null"`
	QuoteText      string         `gorm:"not null"`
	QuoteAuthors   datatypes.JSON `gorm:"not null"`
	VoteCount      int            `gorm:"not null;default:0"`
	CreatedAt      int64          `gorm:"not null"`
}

func (AnarchyRoundWinner) TableName() string { return "qa_round_winners" }

// AnarchyRoundResult is the legacy single-winner record, still written so
// older clients reading it keep working.
type AnarchyRoundResult struct {
	SessionCode    string         `gorm:"primaryKey;size:6"`
	RoundNumber    int            `gorm:"primaryKey"`
	WinnerPlayerID string         `gorm:"size:48;not null"`
	BlackCard      string         `gorm:"not null"`
	QuoteID        uint           `gorm:"not null"`
	QuoteText      string         `gorm:"not null"`
	QuoteAuthors   datatypes.JSON `gorm:"not null"`
	CreatedAt      int64          `gorm:"not null"`
}

func (AnarchyRoundResult) TableName() string { return "qa_round_results" }

// --- Blackline Rush ---

type BlacklineSession struct {
	Code               string         `gorm:"primaryKey;size:6"`
	HostPlayerID       string         `gorm:"size:48;not null"`
	Status             string         `gorm:"size:16;not null"`
	IsActive           bool           `gorm:"not null;default:true"`
	EndedReason        string         `gorm:"not null;default:''"`
	EndedAt            int64          `gorm:"not null;default:0"`
	TurnNumber         int            `gorm:"not null;default:0"`
	RedactorPlayerID   string         `gorm:"size:48;not null;default:''"`
	SourceQuoteID      uint           `gorm:"not null;default:0"`
	SourceQuoteText    string         `gorm:"not null;default:''"`
	SourceQuoteAuthors datatypes.JSON `gorm:"not null"`
	SourceWordCount    int            `gorm:"not null;default:0"`
	AllowedRedactions  int            `gorm:"not null;default:0"`
	RedactionIndices   datatypes.JSON `gorm:"not null"`
	RedactedWords      datatypes.JSON `gorm:"not null"`
	RedactedNorms      datatypes.JSON `gorm:"not null"`
	FillerWords        datatypes.JSON `gorm:"not null"`
	PuzzleText         string         `gorm:"not null;default:''"`
	CreatedAt          int64          `gorm:"not null"`
	UpdatedAt          int64          `gorm:"not null"`
}

func (BlacklineSession) TableName() string { return "blr_sessions" }

type BlacklinePlayer struct {
	SessionCode string `gorm:"primaryKey;size:6"`
	PlayerID    string `gorm:"primaryKey;size:48"`
	DisplayName string `gorm:"size:28;not null"`
	Seat        int    `gorm:"not null"`
	JoinedAt    int64  `gorm:"not null"`
	Score       int    `gorm:"not null;default:0"`
}

func (BlacklinePlayer) TableName() string { return "blr_players" }

type BlacklineGuess struct {
	SessionCode   string         `gorm:"primaryKey;size:6"`
	TurnNumber    int            `gorm:"primaryKey"`
	PlayerID      string         `gorm:"primaryKey;size:48"`
	GuessWords    datatypes.JSON `gorm:"not null"`
	GuessNorms    datatypes.JSON `gorm:"not null"`
	AttemptCount  int            `gorm:"not null;default:0"`
	IsCorrect     bool           `gorm:"not null;default:false"`
	SolvedRank    int            `gorm:"not null;default:0"`
	PointsAwarded int            `gorm:"not null;default:0"`
	SolvedAt      int64          `gorm:"not null;default:0"`
	UpdatedAt     int64          `gorm:"not null"`
}

func (BlacklineGuess) TableName() string { return "blr_guesses" }

// --- Who Said It ---

type AttributionSession struct {
	Code            string         `gorm:"primaryKey;size:6"`
	HostPlayerID    string         `gorm:"size:48;not null"`
	Status          string         `gorm:"size:16;not null"`
	IsActive        bool           `gorm:"not null;default:true"`
	EndedReason     string         `gorm:"not null;default:''"`
	EndedAt         int64          `gorm:"not null;default:0"`
	TurnNumber      int            `gorm:"not null;default:0"`
	SourceQuoteID   uint           `gorm:"not null;default:0"`
	SourceQuoteText string         `gorm:"not null;default:''"`
	CorrectAuthor   string         `gorm:"size:48;not null;default:''"`
	OptionAuthors   datatypes.JSON `gorm:"not null"`
	UsedQuoteIDs    datatypes.JSON `gorm:"not null"`
	CreatedAt       int64          `gorm:"not null"`
	UpdatedAt       int64          `gorm:"not null"`
}

func (AttributionSession) TableName() string { return "wsi_sessions" }

type AttributionPlayer struct {
	SessionCode string `gorm:"primaryKey;size:6"`
	PlayerID    string `gorm:"primaryKey;size:48"`
	DisplayName string `gorm:"size:28;not null"`
	Seat        int    `gorm:"not null"`
	JoinedAt    int64  `gorm:"not null"`
	Score       int    `gorm:"not null;default:0"`
}

func (AttributionPlayer) TableName() string { return "wsi_players" }

type AttributionAnswer struct {
	SessionCode    string `gorm:"primaryKey;size:6"`
	TurnNumber     int    `gorm:"primaryKey"`
	PlayerID       string `gorm:"primaryKey;size:48"`
	SelectedAuthor string `gorm:"size:48;not null;default:''"`
	IsCorrect      bool   `gorm:"not null;default:false"`
	AnsweredAt     int64  `gorm:"not null;default:0"`
	AnswerOrder    int    `gorm:"not null;default:0"`
	PointsAwarded  int    `gorm:"not null;default:0"`
	UpdatedAt      int64  `gorm:"not null"`
}

func (AttributionAnswer) TableName() string { return "wsi_answers" }
