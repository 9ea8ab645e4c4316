// Package anarchy implements the Quote Anarchy card game: hands of quote
// cards dealt each round, one prompt card, and either a rotating judge or an
// everyone-votes resolution. All session state lives in the database; any
// server process can serve any request.
package anarchy

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quote-games/internal/db"
	"quote-games/internal/quotes"
	"quote-games/internal/session"
)

const (
	GameName = "Quote Anarchy"

	MinQuotesRequired = 50
	MaxPlayers        = 4
	HandSize          = 7
	DefaultMaxRounds  = 8
	MaxRoundsLimit    = 30

	ModeJudge   = "judge"
	ModeAllVote = "all_vote"
)

type Service struct {
	conn       *gorm.DB
	quotes     quotes.Store
	core       *session.Core
	log        *slog.Logger
	blackCards []string
}

func New(conn *gorm.DB, store quotes.Store, logger *slog.Logger, blackCardsPath string) *Service {
	return &Service{
		conn:   conn,
		quotes: store,
		core: session.NewCore(conn, session.Tables{
			Sessions:  "qa_sessions",
			Players:   "qa_players",
			Artifacts: []string{"qa_hands", "qa_submissions", "qa_votes", "qa_round_winners", "qa_round_results"},
		}, GameName, MaxPlayers),
		log:        logger,
		blackCards: loadBlackCards(blackCardsPath),
	}
}

// JudgingModeOption describes one selectable judging mode for the lobby UI.
type JudgingModeOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type BootstrapInfo struct {
	GameName          string              `json:"game_name"`
	MinQuotesRequired int                 `json:"min_quotes_required"`
	MaxPlayers        int                 `json:"max_players"`
	HandSize          int                 `json:"hand_size"`
	TotalQuotes       int64               `json:"total_quotes"`
	Unlocked          bool                `json:"unlocked"`
	DefaultMaxRounds  int                 `json:"default_max_rounds"`
	MaxRoundsLimit    int                 `json:"max_rounds_limit"`
	JudgingModes      []JudgingModeOption `json:"judging_modes"`
}

func (s *Service) Bootstrap() (*BootstrapInfo, error) {
	total, err := s.quotes.GetTotalQuotes()
	if err != nil {
		return nil, err
	}
	return &BootstrapInfo{
		GameName:          GameName,
		MinQuotesRequired: MinQuotesRequired,
		MaxPlayers:        MaxPlayers,
		HandSize:          HandSize,
		TotalQuotes:       total,
		Unlocked:          total >= MinQuotesRequired,
		DefaultMaxRounds:  DefaultMaxRounds,
		MaxRoundsLimit:    MaxRoundsLimit,
		JudgingModes: []JudgingModeOption{
			{ID: ModeJudge, Label: "Classic Judge"},
			{ID: ModeAllVote, Label: "Everyone Votes"},
		},
	}, nil
}

// SoloHand is a practice deal with no session attached.
type SoloHand struct {
	BlackCard string        `json:"black_card"`
	Hand      []quotes.Card `json:"hand"`
	DealtAt   int64         `json:"dealt_at"`
}

func (s *Service) DealSoloHand() (*SoloHand, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	hand, err := s.sampleQuoteCards(HandSize)
	if err != nil {
		return nil, err
	}
	return &SoloHand{
		BlackCard: s.drawBlackCard(),
		Hand:      hand,
		DealtAt:   time.Now().Unix(),
	}, nil
}

type CreateResult struct {
	SessionCode string `json:"session_code"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	MaxPlayers  int    `json:"max_players"`
	JudgingMode string `json:"judging_mode"`
	MaxRounds   int    `json:"max_rounds"`
}

func (s *Service) CreateSession(playerName, judgingMode string, maxRounds int) (*CreateResult, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	s.cleanupStale()

	displayName := session.SanitizeName(playerName)
	mode := normalizeJudgingMode(judgingMode)
	rounds := normalizeMaxRounds(maxRounds)
	now := time.Now()

	var code, playerID string
	err := s.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		code, playerID, err = s.core.CreateIdentity(tx, displayName, now, func(tx *gorm.DB, code, hostPlayerID string, nowTS int64) error {
			return tx.Create(&db.AnarchySession{
				Code:         code,
				HostPlayerID: hostPlayerID,
				Status:       string(StatusWaiting),
				JudgingMode:  mode,
				MaxRounds:    rounds,
				IsActive:     true,
				CreatedAt:    nowTS,
				UpdatedAt:    nowTS,
			}).Error
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CreateResult{
		SessionCode: code,
		PlayerID:    playerID,
		DisplayName: displayName,
		MaxPlayers:  MaxPlayers,
		JudgingMode: mode,
		MaxRounds:   rounds,
	}, nil
}

type JoinResult struct {
	SessionCode string `json:"session_code"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	MaxPlayers  int    `json:"max_players"`
	JudgingMode string `json:"judging_mode"`
	MaxRounds   int    `json:"max_rounds"`
}

func (s *Service) JoinSession(sessionCode, playerName, playerID string) (*JoinResult, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	s.cleanupStale()

	var result *JoinResult
	err := s.conn.Transaction(func(tx *gorm.DB) error {
		joined, err := s.core.JoinIdentity(tx, sessionCode, playerName, playerID, time.Now())
		if err != nil {
			return err
		}
		sess, err := s.requireSession(tx, joined.Code)
		if err != nil {
			return err
		}
		result = &JoinResult{
			SessionCode: joined.Code,
			PlayerID:    joined.PlayerID,
			DisplayName: joined.DisplayName,
			MaxPlayers:  MaxPlayers,
			JudgingMode: normalizeJudgingMode(sess.JudgingMode),
			MaxRounds:   normalizeMaxRounds(sess.MaxRounds),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type ActionResult struct {
	OK              bool `json:"ok"`
	WinnersRecorded bool `json:"winners_recorded,omitempty"`
	GameCompleted   bool `json:"game_completed,omitempty"`
	Ended           bool `json:"ended,omitempty"`
}

func (s *Service) StartSession(sessionCode, playerID string) (*ActionResult, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	code, playerID, err := requireCodeAndPlayer(sessionCode, playerID)
	if err != nil {
		return nil, err
	}

	err = s.conn.Transaction(func(tx *gorm.DB) error {
		sess, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		if sess.HostPlayerID != playerID {
			return session.Errorf(http.StatusForbidden, "Only the host can start the game.")
		}
		if !sess.IsActive {
			return session.Errorf(http.StatusConflict, "%s", endMessage(sess))
		}
		if Status(sess.Status) != StatusWaiting {
			return session.Errorf(http.StatusConflict, "This session already started.")
		}
		players, err := s.core.ListPlayers(tx, code)
		if err != nil {
			return err
		}
		if len(players) < 2 {
			return session.Errorf(http.StatusBadRequest, "At least 2 players are required to start.")
		}
		return s.dealRound(tx, code, 1, 0, normalizeJudgingMode(sess.JudgingMode))
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{OK: true}, nil
}

func (s *Service) SubmitCard(sessionCode, playerID string, quoteID uint) (*ActionResult, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	code, playerID, err := requireCodeAndPlayer(sessionCode, playerID)
	if err != nil {
		return nil, err
	}
	if quoteID == 0 {
		return nil, session.Errorf(http.StatusBadRequest, "A valid quote_id is required.")
	}

	err = s.conn.Transaction(func(tx *gorm.DB) error {
		sess, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		if !sess.IsActive {
			return session.Errorf(http.StatusConflict, "%s", endMessage(sess))
		}
		if Status(sess.Status) != StatusCollecting {
			return session.Errorf(http.StatusConflict, "This round is not accepting submissions.")
		}

		players, err := s.core.ListPlayers(tx, code)
		if err != nil {
			return err
		}
		if !hasPlayer(players, playerID) {
			return session.Errorf(http.StatusForbidden, "You are not part of this session.")
		}

		mode := normalizeJudgingMode(sess.JudgingMode)
		if mode == ModeJudge {
			judge := players[sess.JudgeIndex%len(players)]
			if judge.PlayerID == playerID {
				return session.Errorf(http.StatusConflict, "The judge cannot submit this round.")
			}
		}

		var handCard db.AnarchyHandCard
		err = tx.Where("session_code = ? AND round_number = ? AND player_id = ? AND quote_id = ?",
			code, sess.RoundNumber, playerID, quoteID).Take(&handCard).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.Errorf(http.StatusBadRequest, "That quote is not in your hand.")
		}
		if err != nil {
			return err
		}

		now := time.Now().Unix()
		submission := db.AnarchySubmission{
			SessionCode:  code,
			RoundNumber:  sess.RoundNumber,
			PlayerID:     playerID,
			QuoteID:      handCard.QuoteID,
			QuoteText:    handCard.QuoteText,
			QuoteAuthors: handCard.QuoteAuthors,
			SubmittedAt:  now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_code"}, {Name: "round_number"}, {Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quote_id", "quote_text", "quote_authors", "submitted_at"}),
		}).Create(&submission).Error; err != nil {
			return err
		}

		// Re-count inside the transaction: the submission that crosses the
		// threshold is the one that flips the round to judging.
		var submitted int64
		if err := tx.Model(&db.AnarchySubmission{}).
			Where("session_code = ? AND round_number = ?", code, sess.RoundNumber).
			Count(&submitted).Error; err != nil {
			return err
		}
		next := StatusCollecting
		if int(submitted) >= requiredSubmissions(len(players), mode) {
			next = StatusJudging
		}
		return tx.Model(&db.AnarchySession{}).Where("code = ?", code).
			Updates(map[string]any{"status": string(next), "updated_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{OK: true}, nil
}

func (s *Service) PickWinner(sessionCode, playerID, winnerPlayerID string) (*ActionResult, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	code, playerID, err := requireCodeAndPlayer(sessionCode, playerID)
	if err != nil {
		return nil, err
	}
	winnerPlayerID = session.NormalizePlayerID(winnerPlayerID)
	if winnerPlayerID == "" {
		return nil, session.Errorf(http.StatusBadRequest, "Session code, player_id, and winner_player_id are required.")
	}

	var winnerQuoteIDs []uint
	gameCompleted := false
	err = s.conn.Transaction(func(tx *gorm.DB) error {
		sess, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		if !sess.IsActive {
			return session.Errorf(http.StatusConflict, "%s", endMessage(sess))
		}
		if normalizeJudgingMode(sess.JudgingMode) != ModeJudge {
			return session.Errorf(http.StatusConflict, "This session is using everyone-votes mode.")
		}
		if Status(sess.Status) != StatusJudging {
			return session.Errorf(http.StatusConflict, "Winner selection is not open right now.")
		}

		players, err := s.core.ListPlayers(tx, code)
		if err != nil {
			return err
		}
		if len(players) == 0 {
			return session.Errorf(http.StatusNotFound, "Session has no players.")
		}
		judge := players[sess.JudgeIndex%len(players)]
		if judge.PlayerID != playerID {
			return session.Errorf(http.StatusForbidden, "Only the judge can pick the winner.")
		}

		var winning db.AnarchySubmission
		err = tx.Where("session_code = ? AND round_number = ? AND player_id = ?",
			code, sess.RoundNumber, winnerPlayerID).Take(&winning).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.Errorf(http.StatusBadRequest, "The selected winner did not submit a card.")
		}
		if err != nil {
			return err
		}

		winnerQuoteIDs, err = s.storeRoundWinners(tx, sess, []db.AnarchyRoundWinner{{
			SessionCode:    code,
			RoundNumber:    sess.RoundNumber,
			WinnerPlayerID: winning.PlayerID,
			QuoteID:        winning.QuoteID,
			QuoteText:      winning.QuoteText,
			QuoteAuthors:   winning.QuoteAuthors,
		}})
		if err != nil {
			return err
		}
		if err := s.setRevealOrEnd(tx, sess); err != nil {
			return err
		}
		updated, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		gameCompleted = !updated.IsActive
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordWins(winnerQuoteIDs)
	return &ActionResult{OK: true, WinnersRecorded: true, GameCompleted: gameCompleted}, nil
}

func (s *Service) VoteSubmission(sessionCode, playerID, votedPlayerID string) (*ActionResult, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	code, playerID, err := requireCodeAndPlayer(sessionCode, playerID)
	if err != nil {
		return nil, err
	}
	votedPlayerID = session.NormalizePlayerID(votedPlayerID)
	if votedPlayerID == "" {
		return nil, session.Errorf(http.StatusBadRequest, "Session code, player_id, and voted_player_id are required.")
	}

	var winnerQuoteIDs []uint
	roundResolved := false
	gameCompleted := false
	err = s.conn.Transaction(func(tx *gorm.DB) error {
		sess, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		if !sess.IsActive {
			return session.Errorf(http.StatusConflict, "%s", endMessage(sess))
		}
		if normalizeJudgingMode(sess.JudgingMode) != ModeAllVote {
			return session.Errorf(http.StatusConflict, "Voting endpoint is only for everyone-votes mode.")
		}
		if Status(sess.Status) != StatusJudging {
			return session.Errorf(http.StatusConflict, "Voting is not open right now.")
		}

		players, err := s.core.ListPlayers(tx, code)
		if err != nil {
			return err
		}
		if !hasPlayer(players, playerID) {
			return session.Errorf(http.StatusForbidden, "You are not part of this session.")
		}

		var voterSubmission db.AnarchySubmission
		err = tx.Where("session_code = ? AND round_number = ? AND player_id = ?",
			code, sess.RoundNumber, playerID).Take(&voterSubmission).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.Errorf(http.StatusConflict, "Submit a white card before voting.")
		}
		if err != nil {
			return err
		}

		var votedSubmission db.AnarchySubmission
		err = tx.Where("session_code = ? AND round_number = ? AND player_id = ?",
			code, sess.RoundNumber, votedPlayerID).Take(&votedSubmission).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.Errorf(http.StatusBadRequest, "That player does not have a valid submission.")
		}
		if err != nil {
			return err
		}

		now := time.Now().Unix()
		vote := db.AnarchyVote{
			SessionCode:   code,
			RoundNumber:   sess.RoundNumber,
			VoterPlayerID: playerID,
			VotedPlayerID: votedPlayerID,
			CreatedAt:     now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_code"}, {Name: "round_number"}, {Name: "voter_player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"voted_player_id", "created_at"}),
		}).Create(&vote).Error; err != nil {
			return err
		}

		var voteCount int64
		if err := tx.Model(&db.AnarchyVote{}).
			Where("session_code = ? AND round_number = ?", code, sess.RoundNumber).
			Count(&voteCount).Error; err != nil {
			return err
		}
		if int(voteCount) < len(players) {
			return s.core.TouchSession(tx, code, now)
		}

		type voteTally struct {
			VotedPlayerID string
			TotalVotes    int
		}
		var grouped []voteTally
		if err := tx.Model(&db.AnarchyVote{}).
			Select("voted_player_id, COUNT(*) AS total_votes").
			Where("session_code = ? AND round_number = ?", code, sess.RoundNumber).
			Group("voted_player_id").
			Order("total_votes DESC, voted_player_id ASC").
			Scan(&grouped).Error; err != nil {
			return err
		}
		if len(grouped) == 0 {
			return session.Errorf(http.StatusConflict, "No votes recorded for this round.")
		}

		topScore := grouped[0].TotalVotes
		var winnerRows []db.AnarchyRoundWinner
		for _, tally := range grouped {
			if tally.TotalVotes != topScore {
				continue
			}
			var winning db.AnarchySubmission
			err := tx.Where("session_code = ? AND round_number = ? AND player_id = ?",
				code, sess.RoundNumber, tally.VotedPlayerID).Take(&winning).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			winnerRows = append(winnerRows, db.AnarchyRoundWinner{
				SessionCode:    code,
				RoundNumber:    sess.RoundNumber,
				WinnerPlayerID: winning.PlayerID,
				QuoteID:        winning.QuoteID,
				QuoteText:      winning.QuoteText,
				QuoteAuthors:   winning.QuoteAuthors,
				VoteCount:      topScore,
			})
		}
		if len(winnerRows) == 0 {
			return session.Errorf(http.StatusConflict, "Could not resolve round winners.")
		}

		winnerQuoteIDs, err = s.storeRoundWinners(tx, sess, winnerRows)
		if err != nil {
			return err
		}
		if err := s.setRevealOrEnd(tx, sess); err != nil {
			return err
		}
		roundResolved = true
		updated, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		gameCompleted = !updated.IsActive
		return nil
	})
	if err != nil {
		return nil, err
	}

	if roundResolved {
		s.recordWins(winnerQuoteIDs)
	}
	return &ActionResult{OK: true, WinnersRecorded: roundResolved, GameCompleted: gameCompleted}, nil
}

func (s *Service) NextRound(sessionCode, playerID string) (*ActionResult, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	code, playerID, err := requireCodeAndPlayer(sessionCode, playerID)
	if err != nil {
		return nil, err
	}

	err = s.conn.Transaction(func(tx *gorm.DB) error {
		sess, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		if !sess.IsActive {
			return session.Errorf(http.StatusConflict, "%s", endMessage(sess))
		}
		if Status(sess.Status) != StatusReveal {
			return session.Errorf(http.StatusConflict, "Next round is only available after revealing the winner.")
		}
		if sess.HostPlayerID != playerID {
			return session.Errorf(http.StatusForbidden, "Only the host can start the next round.")
		}

		players, err := s.core.ListPlayers(tx, code)
		if err != nil {
			return err
		}
		if len(players) < 2 {
			return session.Errorf(http.StatusBadRequest, "At least 2 players are required.")
		}

		maxRounds := normalizeMaxRounds(sess.MaxRounds)
		if sess.RoundNumber >= maxRounds {
			return session.Errorf(http.StatusConflict, "This game is capped at %d rounds and has already ended.", maxRounds)
		}

		mode := normalizeJudgingMode(sess.JudgingMode)
		nextJudgeIndex := 0
		if mode == ModeJudge {
			nextJudgeIndex = (sess.JudgeIndex + 1) % len(players)
		}
		return s.dealRound(tx, code, sess.RoundNumber+1, nextJudgeIndex, mode)
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{OK: true}, nil
}

func (s *Service) EndSession(sessionCode, playerID string) (*ActionResult, error) {
	code, playerID, err := requireCodeAndPlayer(sessionCode, playerID)
	if err != nil {
		return nil, err
	}

	err = s.conn.Transaction(func(tx *gorm.DB) error {
		sess, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		if sess.HostPlayerID != playerID {
			return session.Errorf(http.StatusForbidden, "Only the host can end the game.")
		}
		if !sess.IsActive {
			return nil
		}
		return s.core.EndSession(tx, code, "Game ended by host.", time.Now().Unix())
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{OK: true, Ended: true}, nil
}

func (s *Service) LeaveSession(sessionCode, playerID string) (*ActionResult, error) {
	code, playerID, err := requireCodeAndPlayer(sessionCode, playerID)
	if err != nil {
		return nil, err
	}

	ended := false
	err = s.conn.Transaction(func(tx *gorm.DB) error {
		sess, err := s.getSession(tx, code)
		if err != nil {
			return err
		}
		if sess == nil {
			ended = true
			return nil
		}

		if err := s.core.RemovePlayer(tx, code, playerID); err != nil {
			return err
		}
		players, err := s.core.Reseat(tx, code)
		if err != nil {
			return err
		}
		if len(players) == 0 {
			ended = true
			return s.core.DeleteSession(tx, code)
		}

		hostPlayerID := sess.HostPlayerID
		if hostPlayerID == playerID {
			hostPlayerID = players[0].PlayerID
		}

		updates := map[string]any{
			"host_player_id": hostPlayerID,
			"updated_at":     time.Now().Unix(),
		}
		// Hands and the judge index are tied to seat positions, so a
		// mid-round departure hard-resets the round.
		if Status(sess.Status) != StatusWaiting || !sess.IsActive {
			updates["status"] = string(StatusWaiting)
			updates["black_card"] = ""
			updates["round_number"] = 0
			updates["judge_index"] = 0
			updates["is_active"] = true
			updates["ended_reason"] = ""
			updates["ended_at"] = 0
			if err := s.purgeRoundArtifacts(tx, code); err != nil {
				return err
			}
		}
		return tx.Model(&db.AnarchySession{}).Where("code = ?", code).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{OK: true, Ended: ended}, nil
}

// --- internals ---

func (s *Service) cleanupStale() {
	if err := s.core.CleanupStale(time.Now()); err != nil {
		s.log.Warn("stale session cleanup failed", "game", GameName, "error", err)
	}
}

func (s *Service) getSession(tx *gorm.DB, code string) (*db.AnarchySession, error) {
	var sess db.AnarchySession
	err := tx.Where("code = ?", code).Take(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Service) requireSession(tx *gorm.DB, code string) (*db.AnarchySession, error) {
	sess, err := s.getSession(tx, code)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, session.Errorf(http.StatusNotFound, "Session not found.")
	}
	return sess, nil
}

func (s *Service) requireUnlocked() error {
	total, err := s.quotes.GetTotalQuotes()
	if err != nil {
		return err
	}
	if total < MinQuotesRequired {
		return session.Errorf(http.StatusForbidden,
			"Quote Anarchy unlocks at %d quotes. Current total: %d.", MinQuotesRequired, total)
	}
	return nil
}

// sampleQuoteCards draws count distinct cards from the full pool.
func (s *Service) sampleQuoteCards(count int) ([]quotes.Card, error) {
	pool, err := s.quotes.GetAllQuotes()
	if err != nil {
		return nil, err
	}
	if len(pool) < count {
		return nil, session.Errorf(http.StatusConflict,
			"Not enough quotes to deal this round. Need %d, found %d.", count, len(pool))
	}
	sampled := make([]quotes.Card, 0, count)
	for _, i := range rand.Perm(len(pool))[:count] {
		sampled = append(sampled, pool[i])
	}
	return sampled, nil
}

// dealRound deals fresh hands and moves the session to collecting.
func (s *Service) dealRound(tx *gorm.DB, code string, roundNumber, judgeIndex int, mode string) error {
	players, err := s.core.ListPlayers(tx, code)
	if err != nil {
		return err
	}
	if len(players) < 2 {
		return session.Errorf(http.StatusBadRequest, "At least 2 players are required.")
	}
	if judgeIndex < 0 || judgeIndex >= len(players) {
		judgeIndex = 0
	}

	participants := players
	if mode == ModeJudge {
		judgePlayerID := players[judgeIndex].PlayerID
		participants = make([]session.PlayerRow, 0, len(players)-1)
		for _, player := range players {
			if player.PlayerID != judgePlayerID {
				participants = append(participants, player)
			}
		}
	} else {
		judgeIndex = 0
	}

	cards, err := s.sampleQuoteCards(HandSize * len(participants))
	if err != nil {
		return err
	}

	if err := s.purgeRoundArtifactsForDeal(tx, code); err != nil {
		return err
	}

	cardIndex := 0
	for _, player := range participants {
		for slot := 0; slot < HandSize; slot++ {
			card := cards[cardIndex]
			cardIndex++
			if err := tx.Create(&db.AnarchyHandCard{
				SessionCode:  code,
				RoundNumber:  roundNumber,
				PlayerID:     player.PlayerID,
				Slot:         slot,
				QuoteID:      card.ID,
				QuoteText:    card.Text,
				QuoteAuthors: session.JSONList(card.Authors),
			}).Error; err != nil {
				return err
			}
		}
	}

	return tx.Model(&db.AnarchySession{}).Where("code = ?", code).Updates(map[string]any{
		"status":       string(StatusCollecting),
		"round_number": roundNumber,
		"judge_index":  judgeIndex,
		"black_card":   s.drawBlackCard(),
		"is_active":    true,
		"ended_reason": "",
		"ended_at":     0,
		"updated_at":   time.Now().Unix(),
	}).Error
}

func (s *Service) purgeRoundArtifactsForDeal(tx *gorm.DB, code string) error {
	for _, model := range []any{&db.AnarchyHandCard{}, &db.AnarchySubmission{}, &db.AnarchyVote{}} {
		if err := tx.Where("session_code = ?", code).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) purgeRoundArtifacts(tx *gorm.DB, code string) error {
	for _, model := range []any{
		&db.AnarchyHandCard{}, &db.AnarchySubmission{}, &db.AnarchyVote{},
		&db.AnarchyRoundWinner{}, &db.AnarchyRoundResult{},
	} {
		if err := tx.Where("session_code = ?", code).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// storeRoundWinners records every winner of the round, bumps their scores,
// and writes the legacy single-winner row. Returns the distinct quote ids to
// report back to the quote store.
func (s *Service) storeRoundWinners(tx *gorm.DB, sess *db.AnarchySession, winners []db.AnarchyRoundWinner) ([]uint, error) {
	now := time.Now().Unix()
	roundNumber := sess.RoundNumber

	if err := tx.Where("session_code = ? AND round_number = ?", sess.Code, roundNumber).
		Delete(&db.AnarchyRoundWinner{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("session_code = ? AND round_number = ?", sess.Code, roundNumber).
		Delete(&db.AnarchyRoundResult{}).Error; err != nil {
		return nil, err
	}

	seenQuoteIDs := map[uint]bool{}
	seenWinners := map[string]bool{}
	var quoteIDs []uint
	for i := range winners {
		winners[i].CreatedAt = now
		if err := tx.Create(&winners[i]).Error; err != nil {
			return nil, err
		}
		if !seenWinners[winners[i].WinnerPlayerID] {
			seenWinners[winners[i].WinnerPlayerID] = true
			if err := s.core.AddScore(tx, sess.Code, winners[i].WinnerPlayerID, 1); err != nil {
				return nil, err
			}
		}
		if id := winners[i].QuoteID; id > 0 && !seenQuoteIDs[id] {
			seenQuoteIDs[id] = true
			quoteIDs = append(quoteIDs, id)
		}
	}

	first := winners[0]
	if err := tx.Create(&db.AnarchyRoundResult{
		SessionCode:    sess.Code,
		RoundNumber:    roundNumber,
		WinnerPlayerID: first.WinnerPlayerID,
		BlackCard:      sess.BlackCard,
		QuoteID:        first.QuoteID,
		QuoteText:      first.QuoteText,
		QuoteAuthors:   first.QuoteAuthors,
		CreatedAt:      now,
	}).Error; err != nil {
		return nil, err
	}
	return quoteIDs, nil
}

// setRevealOrEnd moves the round to reveal, ending the game when the round
// cap has been reached.
func (s *Service) setRevealOrEnd(tx *gorm.DB, sess *db.AnarchySession) error {
	if !Status(sess.Status).canAdvance(StatusReveal) {
		return session.Errorf(http.StatusConflict, "This round cannot be revealed right now.")
	}
	now := time.Now().Unix()
	maxRounds := normalizeMaxRounds(sess.MaxRounds)
	updates := map[string]any{
		"status":       string(StatusReveal),
		"ended_reason": "",
		"ended_at":     0,
		"updated_at":   now,
	}
	if sess.RoundNumber >= maxRounds {
		updates["is_active"] = false
		updates["ended_reason"] = fmt.Sprintf("Game ended after %d rounds.", maxRounds)
		updates["ended_at"] = now
	}
	return tx.Model(&db.AnarchySession{}).Where("code = ?", sess.Code).Updates(updates).Error
}

func (s *Service) recordWins(quoteIDs []uint) {
	if len(quoteIDs) == 0 {
		return
	}
	if err := s.quotes.RecordAnarchyWins(quoteIDs); err != nil {
		s.log.Warn("could not persist anarchy win points", "quote_ids", quoteIDs, "error", err)
	}
}

func requiredSubmissions(playerCount int, mode string) int {
	if mode == ModeAllVote {
		return playerCount
	}
	if playerCount < 1 {
		return 0
	}
	return playerCount - 1
}

func normalizeJudgingMode(mode string) string {
	cleaned := strings.ToLower(strings.TrimSpace(mode))
	if cleaned != ModeJudge && cleaned != ModeAllVote {
		return ModeJudge
	}
	return cleaned
}

func normalizeMaxRounds(maxRounds int) int {
	if maxRounds <= 0 {
		return DefaultMaxRounds
	}
	if maxRounds > MaxRoundsLimit {
		return MaxRoundsLimit
	}
	return maxRounds
}

func requireCodeAndPlayer(sessionCode, playerID string) (string, string, error) {
	code := session.NormalizeCode(sessionCode)
	player := session.NormalizePlayerID(playerID)
	if code == "" || player == "" {
		return "", "", session.Errorf(http.StatusBadRequest, "Session code and player_id are required.")
	}
	return code, player, nil
}

func hasPlayer(players []session.PlayerRow, playerID string) bool {
	for _, player := range players {
		if player.PlayerID == playerID {
			return true
		}
	}
	return false
}

func endMessage(sess *db.AnarchySession) string {
	if reason := strings.TrimSpace(sess.EndedReason); reason != "" {
		return reason
	}
	return "This game has ended."
}
