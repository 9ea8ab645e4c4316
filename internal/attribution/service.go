// Package attribution implements Who Said It: every turn shows one quote and
// four author options, and correct answers score by speed rank. State lives
// entirely in the database.
package attribution

import (
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"quote-games/internal/db"
	"quote-games/internal/quotes"
	"quote-games/internal/session"
)

const (
	GameName = "Who Said It"

	MaxPlayers         = 8
	MinPlayers         = 3
	OptionsPerQuestion = 4

	// usedQuoteMemory caps how many recently played quote ids a session
	// remembers before old ones may repeat.
	usedQuoteMemory = 200
)

type Service struct {
	conn   *gorm.DB
	quotes quotes.Store
	core   *session.Core
	log    *slog.Logger
}

func New(conn *gorm.DB, store quotes.Store, logger *slog.Logger) *Service {
	return &Service{
		conn:   conn,
		quotes: store,
		core: session.NewCore(conn, session.Tables{
			Sessions:  "wsi_sessions",
			Players:   "wsi_players",
			Artifacts: []string{"wsi_answers"},
		}, GameName, MaxPlayers),
		log: logger,
	}
}

type BootstrapInfo struct {
	GameName           string `json:"game_name"`
	MinPlayers         int    `json:"min_players"`
	MaxPlayers         int    `json:"max_players"`
	OptionsPerQuestion int    `json:"options_per_question"`
	SpeedRule          string `json:"speed_rule"`
	EligibleQuoteCount int    `json:"eligible_quote_count"`
	AuthorPoolCount    int    `json:"author_pool_count"`
	TotalQuoteCount    int    `json:"total_quote_count"`
	Ready              bool   `json:"ready"`
}

func (s *Service) Bootstrap() (*BootstrapInfo, error) {
	pool, err := s.quotes.GetAllQuotes()
	if err != nil {
		return nil, err
	}
	authorPool := collectAuthorPool(pool)
	eligible := buildEligibleQuotes(pool, authorPool)
	return &BootstrapInfo{
		GameName:           GameName,
		MinPlayers:         MinPlayers,
		MaxPlayers:         MaxPlayers,
		OptionsPerQuestion: OptionsPerQuestion,
		SpeedRule:          "Correct answers score by speed rank each round.",
		EligibleQuoteCount: len(eligible),
		AuthorPoolCount:    len(authorPool),
		TotalQuoteCount:    len(pool),
		Ready:              len(eligible) > 0,
	}, nil
}

type IdentityResult struct {
	SessionCode string `json:"session_code"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	MaxPlayers  int    `json:"max_players"`
	MinPlayers  int    `json:"min_players"`
	GameName    string `json:"game_name"`
}

func (s *Service) CreateSession(playerName string) (*IdentityResult, error) {
	s.cleanupStale()
	displayName := session.SanitizeName(playerName)
	now := time.Now()

	var code, playerID string
	err := s.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		code, playerID, err = s.core.CreateIdentity(tx, displayName, now, func(tx *gorm.DB, code, hostPlayerID string, nowTS int64) error {
			return tx.Create(&db.AttributionSession{
				Code:          code,
				HostPlayerID:  hostPlayerID,
				Status:        string(StatusWaiting),
				IsActive:      true,
				OptionAuthors: session.EmptyList,
				UsedQuoteIDs:  session.EmptyList,
				CreatedAt:     nowTS,
				UpdatedAt:     nowTS,
			}).Error
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &IdentityResult{
		SessionCode: code,
		PlayerID:    playerID,
		DisplayName: displayName,
		MaxPlayers:  MaxPlayers,
		MinPlayers:  MinPlayers,
		GameName:    GameName,
	}, nil
}

func (s *Service) JoinSession(sessionCode, playerName, playerID string) (*IdentityResult, error) {
	s.cleanupStale()

	var joined *session.Joined
	err := s.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		joined, err = s.core.JoinIdentity(tx, sessionCode, playerName, playerID, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return &IdentityResult{
		SessionCode: joined.Code,
		PlayerID:    joined.PlayerID,
		DisplayName: joined.DisplayName,
		MaxPlayers:  MaxPlayers,
		MinPlayers:  MinPlayers,
		GameName:    GameName,
	}, nil
}

type ActionResult struct {
	OK    bool `json:"ok"`
	Ended bool `json:"ended,omitempty"`
}

func (s *Service) StartSession(sessionCode, playerID string) (*ActionResult, error) {
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
		if len(players) < MinPlayers {
			return session.Errorf(http.StatusBadRequest, "At least %d players are required to start.", MinPlayers)
		}
		return s.startTurn(tx, sess, 1)
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{OK: true}, nil
}

type AnswerResult struct {
	OK              bool `json:"ok"`
	AlreadyAnswered bool `json:"already_answered,omitempty"`
	IsCorrect       bool `json:"is_correct"`
	AnswerOrder     int  `json:"answer_order"`
	PointsAwarded   int  `json:"points_awarded"`
	AllAnswered     bool `json:"all_answered,omitempty"`
}

func (s *Service) SubmitAnswer(sessionCode, playerID, selectedAuthor string) (*AnswerResult, error) {
	code, playerID, err := requireCodeAndPlayer(sessionCode, playerID)
	if err != nil {
		return nil, err
	}
	selectedAuthor = strings.TrimSpace(selectedAuthor)
	if selectedAuthor == "" {
		return nil, session.Errorf(http.StatusBadRequest, "selected_author is required.")
	}

	var result *AnswerResult
	err = s.conn.Transaction(func(tx *gorm.DB) error {
		sess, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		if !sess.IsActive {
			return session.Errorf(http.StatusConflict, "%s", endMessage(sess))
		}
		if Status(sess.Status) != StatusGuessing {
			return session.Errorf(http.StatusConflict, "Answering is not open right now.")
		}

		options := session.JSONStrings(sess.OptionAuthors)
		if len(options) != OptionsPerQuestion {
			return session.Errorf(http.StatusConflict, "This turn has invalid answer options.")
		}
		canonical := matchOption(selectedAuthor, options)
		if canonical == "" {
			return session.Errorf(http.StatusBadRequest, "Pick one of the provided author options.")
		}

		players, err := s.core.ListPlayers(tx, code)
		if err != nil {
			return err
		}
		if !hasPlayer(players, playerID) {
			return session.Errorf(http.StatusForbidden, "You are not part of this session.")
		}

		var existing db.AttributionAnswer
		err = tx.Where("session_code = ? AND turn_number = ? AND player_id = ?",
			code, sess.TurnNumber, playerID).Take(&existing).Error
		if err == nil {
			result = &AnswerResult{
				OK:              true,
				AlreadyAnswered: true,
				IsCorrect:       existing.IsCorrect,
				AnswerOrder:     existing.AnswerOrder,
				PointsAwarded:   existing.PointsAwarded,
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		isCorrect := normalizeAuthor(canonical) == normalizeAuthor(sess.CorrectAuthor)
		answerOrder, pointsAwarded := 0, 0
		if isCorrect {
			var solvedCount int64
			if err := tx.Model(&db.AttributionAnswer{}).
				Where("session_code = ? AND turn_number = ? AND is_correct = ?", code, sess.TurnNumber, true).
				Count(&solvedCount).Error; err != nil {
				return err
			}
			answerOrder = int(solvedCount) + 1
			playerTotal := len(players)
			if playerTotal < 1 {
				playerTotal = 1
			}
			pointsAwarded = playerTotal - answerOrder + 1
			if pointsAwarded < 1 {
				pointsAwarded = 1
			}
		}

		now := time.Now()
		if err := tx.Create(&db.AttributionAnswer{
			SessionCode:    code,
			TurnNumber:     sess.TurnNumber,
			PlayerID:       playerID,
			SelectedAuthor: canonical,
			IsCorrect:      isCorrect,
			AnsweredAt:     now.UnixMilli(),
			AnswerOrder:    answerOrder,
			PointsAwarded:  pointsAwarded,
			UpdatedAt:      now.Unix(),
		}).Error; err != nil {
			return err
		}

		if isCorrect && pointsAwarded > 0 {
			if err := s.core.AddScore(tx, code, playerID, pointsAwarded); err != nil {
				return err
			}
		}

		var answeredTotal int64
		if err := tx.Model(&db.AttributionAnswer{}).
			Where("session_code = ? AND turn_number = ?", code, sess.TurnNumber).
			Count(&answeredTotal).Error; err != nil {
			return err
		}
		allAnswered := int(answeredTotal) >= len(players)
		if allAnswered {
			if err := tx.Model(&db.AttributionSession{}).Where("code = ?", code).Updates(map[string]any{
				"status":     string(StatusReveal),
				"updated_at": now.Unix(),
			}).Error; err != nil {
				return err
			}
		} else if err := s.core.TouchSession(tx, code, now.Unix()); err != nil {
			return err
		}

		result = &AnswerResult{
			OK:            true,
			IsCorrect:     isCorrect,
			AnswerOrder:   answerOrder,
			PointsAwarded: pointsAwarded,
			AllAnswered:   allAnswered,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) EndTurn(sessionCode, playerID string) (*ActionResult, error) {
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
		if sess.HostPlayerID != playerID {
			return session.Errorf(http.StatusForbidden, "Only the host can reveal answers.")
		}
		if !Status(sess.Status).canAdvance(StatusReveal) {
			return session.Errorf(http.StatusConflict, "Turn reveal is only available while guessing.")
		}
		return tx.Model(&db.AttributionSession{}).Where("code = ?", code).Updates(map[string]any{
			"status":     string(StatusReveal),
			"updated_at": time.Now().Unix(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{OK: true}, nil
}

func (s *Service) NextTurn(sessionCode, playerID string) (*ActionResult, error) {
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
		if sess.HostPlayerID != playerID {
			return session.Errorf(http.StatusForbidden, "Only the host can start the next turn.")
		}
		if Status(sess.Status) != StatusReveal {
			return session.Errorf(http.StatusConflict, "Next turn is only available after reveal.")
		}
		players, err := s.core.ListPlayers(tx, code)
		if err != nil {
			return err
		}
		if len(players) < MinPlayers {
			return session.Errorf(http.StatusBadRequest, "At least %d players are required.", MinPlayers)
		}
		return s.startTurn(tx, sess, sess.TurnNumber+1)
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
			if err := tx.Where("session_code = ?", code).Delete(&db.AttributionAnswer{}).Error; err != nil {
				return err
			}
			return s.core.DeleteSession(tx, code)
		}

		hostPlayerID := sess.HostPlayerID
		if hostPlayerID == playerID {
			hostPlayerID = players[0].PlayerID
		}

		now := time.Now().Unix()
		if Status(sess.Status) == StatusWaiting || !sess.IsActive {
			return tx.Model(&db.AttributionSession{}).Where("code = ?", code).Updates(map[string]any{
				"host_player_id": hostPlayerID,
				"updated_at":     now,
			}).Error
		}
		// Answer ranks assume a fixed roster, so a mid-turn departure
		// resets the round.
		return s.resetToWaiting(tx, code, hostPlayerID,
			"Round reset after a player left. Host can start a new turn.")
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

func (s *Service) getSession(tx *gorm.DB, code string) (*db.AttributionSession, error) {
	var sess db.AttributionSession
	err := tx.Where("code = ?", code).Take(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Service) requireSession(tx *gorm.DB, code string) (*db.AttributionSession, error) {
	sess, err := s.getSession(tx, code)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, session.Errorf(http.StatusNotFound, "Session not found.")
	}
	return sess, nil
}

type turnQuestion struct {
	sourceQuoteID   uint
	sourceQuote     string
	correctAuthor   string
	optionAuthors   []string
	nextUsedQuoteID []int
}

// startTurn draws the next question and opens answering.
func (s *Service) startTurn(tx *gorm.DB, sess *db.AttributionSession, turnNumber int) error {
	question, err := s.pickTurnQuestion(sess)
	if err != nil {
		return err
	}

	if err := tx.Where("session_code = ?", sess.Code).Delete(&db.AttributionAnswer{}).Error; err != nil {
		return err
	}
	return tx.Model(&db.AttributionSession{}).Where("code = ?", sess.Code).Updates(map[string]any{
		"status":            string(StatusGuessing),
		"is_active":         true,
		"ended_reason":      "",
		"ended_at":          0,
		"turn_number":       turnNumber,
		"source_quote_id":   question.sourceQuoteID,
		"source_quote_text": question.sourceQuote,
		"correct_author":    question.correctAuthor,
		"option_authors":    session.JSONList(question.optionAuthors),
		"used_quote_ids":    session.JSONList(question.nextUsedQuoteID),
		"updated_at":        time.Now().Unix(),
	}).Error
}

func (s *Service) resetToWaiting(tx *gorm.DB, code, hostPlayerID, reason string) error {
	if err := tx.Where("session_code = ?", code).Delete(&db.AttributionAnswer{}).Error; err != nil {
		return err
	}
	return tx.Model(&db.AttributionSession{}).Where("code = ?", code).Updates(map[string]any{
		"host_player_id":    hostPlayerID,
		"status":            string(StatusWaiting),
		"source_quote_id":   0,
		"source_quote_text": "",
		"correct_author":    "",
		"option_authors":    session.EmptyList,
		"ended_reason":      reason,
		"ended_at":          0,
		"updated_at":        time.Now().Unix(),
	}).Error
}

// pickTurnQuestion selects a quote the session has not played recently, a
// correct author, and a shuffled option list with distinct decoys.
func (s *Service) pickTurnQuestion(sess *db.AttributionSession) (*turnQuestion, error) {
	pool, err := s.quotes.GetAllQuotes()
	if err != nil {
		return nil, err
	}
	authorPool := collectAuthorPool(pool)
	if len(authorPool) < OptionsPerQuestion {
		return nil, session.Errorf(http.StatusConflict, "Need at least four distinct authors to run this game.")
	}
	eligible := buildEligibleQuotes(pool, authorPool)
	if len(eligible) == 0 {
		return nil, session.Errorf(http.StatusConflict, "No playable quotes are available yet.")
	}

	usedIDs := session.JSONInts(sess.UsedQuoteIDs)
	usedSet := make(map[int]bool, len(usedIDs))
	for _, id := range usedIDs {
		usedSet[id] = true
	}
	var fresh []eligibleQuote
	for _, quote := range eligible {
		if !usedSet[int(quote.ID)] {
			fresh = append(fresh, quote)
		}
	}

	quotePool := fresh
	if len(quotePool) == 0 {
		quotePool = eligible
	}
	selected := quotePool[rand.Intn(len(quotePool))]

	correctAuthor := selected.Authors[rand.Intn(len(selected.Authors))]
	correctNorm := normalizeAuthor(correctAuthor)
	var decoyPool []string
	for _, author := range authorPool {
		if normalizeAuthor(author) != correctNorm {
			decoyPool = append(decoyPool, author)
		}
	}
	if len(decoyPool) < OptionsPerQuestion-1 {
		return nil, session.Errorf(http.StatusConflict, "Not enough decoy authors are available for this round.")
	}

	rand.Shuffle(len(decoyPool), func(i, j int) {
		decoyPool[i], decoyPool[j] = decoyPool[j], decoyPool[i]
	})
	options := append([]string{correctAuthor}, decoyPool[:OptionsPerQuestion-1]...)
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	var nextUsed []int
	if len(fresh) > 0 {
		nextUsed = append(append([]int{}, usedIDs...), int(selected.ID))
	} else {
		nextUsed = []int{int(selected.ID)}
	}
	if len(nextUsed) > usedQuoteMemory {
		nextUsed = nextUsed[len(nextUsed)-usedQuoteMemory:]
	}

	return &turnQuestion{
		sourceQuoteID:   selected.ID,
		sourceQuote:     selected.Text,
		correctAuthor:   correctAuthor,
		optionAuthors:   options,
		nextUsedQuoteID: nextUsed,
	}, nil
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

func endMessage(sess *db.AttributionSession) string {
	if reason := strings.TrimSpace(sess.EndedReason); reason != "" {
		return reason
	}
	if !sess.IsActive {
		return "This game has ended."
	}
	return ""
}
