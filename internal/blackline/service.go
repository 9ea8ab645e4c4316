// Package blackline implements Blackline Rush: each turn one player redacts
// words out of a quote, the rest race to reconstruct them from a puzzle text
// whose gaps are filled with misleading words sampled from the wider quote
// pool. All state is kept in the database.
package blackline

import (
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quote-games/internal/db"
	"quote-games/internal/quotes"
	"quote-games/internal/session"
)

const (
	GameName = "Blackline Rush"

	MaxPlayers       = 8
	MinPlayers       = 2
	MinWordsForQuote = 10
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
			Sessions:  "blr_sessions",
			Players:   "blr_players",
			Artifacts: []string{"blr_guesses"},
		}, GameName, MaxPlayers),
		log: logger,
	}
}

type BootstrapInfo struct {
	GameName           string `json:"game_name"`
	MaxPlayers         int    `json:"max_players"`
	MinPlayers         int    `json:"min_players"`
	MinWordsForQuote   int    `json:"min_words_for_quote"`
	TurnRule           string `json:"turn_rule"`
	EligibleQuoteCount int    `json:"eligible_quote_count"`
	TotalQuoteCount    int    `json:"total_quote_count"`
	Ready              bool   `json:"ready"`
}

func (s *Service) Bootstrap() (*BootstrapInfo, error) {
	pool, err := s.quotes.GetAllQuotes()
	if err != nil {
		return nil, err
	}
	eligible := 0
	for _, quote := range pool {
		if wordCount(quote.Text) >= MinWordsForQuote {
			eligible++
		}
	}
	return &BootstrapInfo{
		GameName:           GameName,
		MaxPlayers:         MaxPlayers,
		MinPlayers:         MinPlayers,
		MinWordsForQuote:   MinWordsForQuote,
		TurnRule:           "Redactor can remove up to one word for every ten words in the quote.",
		EligibleQuoteCount: eligible,
		TotalQuoteCount:    len(pool),
		Ready:              eligible > 0,
	}, nil
}

type IdentityResult struct {
	SessionCode string `json:"session_code"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	MaxPlayers  int    `json:"max_players"`
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
			return tx.Create(&db.BlacklineSession{
				Code:               code,
				HostPlayerID:       hostPlayerID,
				Status:             string(StatusWaiting),
				IsActive:           true,
				SourceQuoteAuthors: session.EmptyList,
				RedactionIndices:   session.EmptyList,
				RedactedWords:      session.EmptyList,
				RedactedNorms:      session.EmptyList,
				FillerWords:        session.EmptyList,
				CreatedAt:          nowTS,
				UpdatedAt:          nowTS,
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
		GameName:    GameName,
	}, nil
}

type ActionResult struct {
	OK       bool `json:"ok"`
	GapCount int  `json:"gap_count,omitempty"`
	Ended    bool `json:"ended,omitempty"`
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
		return s.startTurn(tx, code, 1, players[0].PlayerID)
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{OK: true}, nil
}

func (s *Service) SubmitRedaction(sessionCode, playerID string, redactionIndices []int) (*ActionResult, error) {
	code, playerID, err := requireCodeAndPlayer(sessionCode, playerID)
	if err != nil {
		return nil, err
	}

	// Dedupe and drop negatives before validating against the quote.
	seen := map[int]bool{}
	normalized := make([]int, 0, len(redactionIndices))
	for _, index := range redactionIndices {
		if index < 0 || seen[index] {
			continue
		}
		seen[index] = true
		normalized = append(normalized, index)
	}
	sort.Ints(normalized)

	err = s.conn.Transaction(func(tx *gorm.DB) error {
		sess, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		if !sess.IsActive {
			return session.Errorf(http.StatusConflict, "%s", endMessage(sess))
		}
		if Status(sess.Status) != StatusRedacting {
			return session.Errorf(http.StatusConflict, "Redaction is not open right now.")
		}
		if sess.RedactorPlayerID != playerID {
			return session.Errorf(http.StatusForbidden, "Only this turn's redactor can submit.")
		}

		sourceWords := extractWords(sess.SourceQuoteText)
		if len(sourceWords) == 0 {
			return session.Errorf(http.StatusConflict, "This turn has no valid quote words.")
		}
		allowed := sess.AllowedRedactions
		if allowed <= 0 {
			return session.Errorf(http.StatusConflict, "No redactions are available for this quote.")
		}
		if len(normalized) == 0 {
			return session.Errorf(http.StatusBadRequest, "Select at least one word (max %d).", allowed)
		}
		if len(normalized) > allowed {
			return session.Errorf(http.StatusBadRequest, "You can redact at most %d words this turn.", allowed)
		}
		if normalized[len(normalized)-1] >= len(sourceWords) {
			return session.Errorf(http.StatusBadRequest, "One or more redaction indices are invalid.")
		}

		redactedWords := make([]string, 0, len(normalized))
		redactedNorms := make([]string, 0, len(normalized))
		excluded := map[string]bool{}
		for _, index := range normalized {
			word := sourceWords[index]
			norm := word.Normalized
			if norm == "" {
				norm = normalizeWord(word.Text)
			}
			redactedWords = append(redactedWords, word.Text)
			redactedNorms = append(redactedNorms, norm)
			excluded[norm] = true
		}

		fillerWords, err := s.pickFillerWords(sess.SourceQuoteID, sess.SourceQuoteText, excluded, len(normalized))
		if err != nil {
			return err
		}
		puzzleText := renderPuzzleText(sess.SourceQuoteText, normalized, fillerWords)

		if err := tx.Model(&db.BlacklineSession{}).Where("code = ?", code).Updates(map[string]any{
			"status":            string(StatusGuessing),
			"redaction_indices": session.JSONList(normalized),
			"redacted_words":    session.JSONList(redactedWords),
			"redacted_norms":    session.JSONList(redactedNorms),
			"filler_words":      session.JSONList(fillerWords),
			"puzzle_text":       puzzleText,
			"updated_at":        time.Now().Unix(),
		}).Error; err != nil {
			return err
		}
		return tx.Where("session_code = ? AND turn_number = ?", code, sess.TurnNumber).
			Delete(&db.BlacklineGuess{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{OK: true, GapCount: len(normalized)}, nil
}

type GuessResult struct {
	OK            bool `json:"ok"`
	Correct       bool `json:"correct"`
	AlreadySolved bool `json:"already_solved,omitempty"`
	SolvedRank    int  `json:"solved_rank"`
	PointsAwarded int  `json:"points_awarded"`
	AllSolved     bool `json:"all_solved,omitempty"`
}

func (s *Service) SubmitGuess(sessionCode, playerID string, guesses []string) (*GuessResult, error) {
	code, playerID, err := requireCodeAndPlayer(sessionCode, playerID)
	if err != nil {
		return nil, err
	}

	var result *GuessResult
	err = s.conn.Transaction(func(tx *gorm.DB) error {
		sess, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		if !sess.IsActive {
			return session.Errorf(http.StatusConflict, "%s", endMessage(sess))
		}
		if Status(sess.Status) != StatusGuessing {
			return session.Errorf(http.StatusConflict, "Guessing is not open right now.")
		}
		if sess.RedactorPlayerID == playerID {
			return session.Errorf(http.StatusConflict, "The redactor cannot submit guesses.")
		}

		answerNorms := session.JSONStrings(sess.RedactedNorms)
		if len(answerNorms) == 0 {
			return session.Errorf(http.StatusConflict, "This turn has no answers to guess.")
		}
		if len(guesses) != len(answerNorms) {
			return session.Errorf(http.StatusBadRequest, "Expected %d guesses, got %d.", len(answerNorms), len(guesses))
		}

		players, err := s.core.ListPlayers(tx, code)
		if err != nil {
			return err
		}
		if !hasPlayer(players, playerID) {
			return session.Errorf(http.StatusForbidden, "You are not part of this session.")
		}

		var existing db.BlacklineGuess
		haveExisting := true
		err = tx.Where("session_code = ? AND turn_number = ? AND player_id = ?",
			code, sess.TurnNumber, playerID).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			haveExisting = false
		} else if err != nil {
			return err
		}
		if haveExisting && existing.SolvedRank > 0 {
			result = &GuessResult{OK: true, Correct: true, AlreadySolved: true, SolvedRank: existing.SolvedRank}
			return nil
		}

		guessWords := make([]string, len(guesses))
		guessNorms := make([]string, len(guesses))
		correct := true
		for i, raw := range guesses {
			guessWords[i] = strings.TrimSpace(raw)
			guessNorms[i] = normalizeWord(guessWords[i])
			if guessNorms[i] != answerNorms[i] {
				correct = false
			}
		}

		now := time.Now().Unix()
		attemptCount := 1
		if haveExisting {
			attemptCount = existing.AttemptCount + 1
		}

		solvedRank, pointsAwarded := 0, 0
		var solvedAt int64
		if correct {
			var solvedCount int64
			if err := tx.Model(&db.BlacklineGuess{}).
				Where("session_code = ? AND turn_number = ? AND solved_rank > 0", code, sess.TurnNumber).
				Count(&solvedCount).Error; err != nil {
				return err
			}
			solvedRank = int(solvedCount) + 1
			guesserCount := len(players) - 1
			if guesserCount < 1 {
				guesserCount = 1
			}
			pointsAwarded = guesserCount - solvedRank + 1
			if pointsAwarded < 1 {
				pointsAwarded = 1
			}
			solvedAt = now
		}

		guess := db.BlacklineGuess{
			SessionCode:   code,
			TurnNumber:    sess.TurnNumber,
			PlayerID:      playerID,
			GuessWords:    session.JSONList(guessWords),
			GuessNorms:    session.JSONList(guessNorms),
			AttemptCount:  attemptCount,
			IsCorrect:     correct,
			SolvedRank:    solvedRank,
			PointsAwarded: pointsAwarded,
			SolvedAt:      solvedAt,
			UpdatedAt:     now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_code"}, {Name: "turn_number"}, {Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"guess_words", "guess_norms", "attempt_count", "is_correct",
				"solved_rank", "points_awarded", "solved_at", "updated_at",
			}),
		}).Create(&guess).Error; err != nil {
			return err
		}

		if correct && pointsAwarded > 0 {
			if err := s.core.AddScore(tx, code, playerID, pointsAwarded); err != nil {
				return err
			}
		}

		var solvedTotal int64
		if err := tx.Model(&db.BlacklineGuess{}).
			Where("session_code = ? AND turn_number = ? AND solved_rank > 0", code, sess.TurnNumber).
			Count(&solvedTotal).Error; err != nil {
			return err
		}
		guesserTotal := len(players) - 1
		allSolved := guesserTotal > 0 && int(solvedTotal) >= guesserTotal
		if allSolved {
			if err := tx.Model(&db.BlacklineSession{}).Where("code = ?", code).Updates(map[string]any{
				"status":     string(StatusReveal),
				"updated_at": now,
			}).Error; err != nil {
				return err
			}
		} else if err := s.core.TouchSession(tx, code, now); err != nil {
			return err
		}

		result = &GuessResult{
			OK:            true,
			Correct:       correct,
			SolvedRank:    solvedRank,
			PointsAwarded: pointsAwarded,
			AllSolved:     allSolved,
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
		return tx.Model(&db.BlacklineSession{}).Where("code = ?", code).Updates(map[string]any{
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
		nextRedactor := session.NextAfter(players, sess.RedactorPlayerID)
		return s.startTurn(tx, code, sess.TurnNumber+1, nextRedactor)
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
			if err := tx.Where("session_code = ?", code).Delete(&db.BlacklineGuess{}).Error; err != nil {
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
			return tx.Model(&db.BlacklineSession{}).Where("code = ?", code).Updates(map[string]any{
				"host_player_id": hostPlayerID,
				"updated_at":     now,
			}).Error
		}
		// The puzzle targets a specific redactor, so a mid-turn departure
		// resets the whole round.
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

func (s *Service) getSession(tx *gorm.DB, code string) (*db.BlacklineSession, error) {
	var sess db.BlacklineSession
	err := tx.Where("code = ?", code).Take(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Service) requireSession(tx *gorm.DB, code string) (*db.BlacklineSession, error) {
	sess, err := s.getSession(tx, code)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, session.Errorf(http.StatusNotFound, "Session not found.")
	}
	return sess, nil
}

// startTurn picks a fresh quote and hands the redaction to redactorPlayerID.
func (s *Service) startTurn(tx *gorm.DB, code string, turnNumber int, redactorPlayerID string) error {
	quote, quoteWordCount, err := s.pickTurnQuote()
	if err != nil {
		return err
	}
	allowed := quoteWordCount / 10
	if allowed < 1 {
		allowed = 1
	}

	if err := tx.Where("session_code = ?", code).Delete(&db.BlacklineGuess{}).Error; err != nil {
		return err
	}
	return tx.Model(&db.BlacklineSession{}).Where("code = ?", code).Updates(map[string]any{
		"status":               string(StatusRedacting),
		"is_active":            true,
		"ended_reason":         "",
		"ended_at":             0,
		"turn_number":          turnNumber,
		"redactor_player_id":   redactorPlayerID,
		"source_quote_id":      quote.ID,
		"source_quote_text":    quote.Text,
		"source_quote_authors": session.JSONList(quote.Authors),
		"source_word_count":    quoteWordCount,
		"allowed_redactions":   allowed,
		"redaction_indices":    session.EmptyList,
		"redacted_words":       session.EmptyList,
		"redacted_norms":       session.EmptyList,
		"filler_words":         session.EmptyList,
		"puzzle_text":          "",
		"updated_at":           time.Now().Unix(),
	}).Error
}

func (s *Service) resetToWaiting(tx *gorm.DB, code, hostPlayerID, reason string) error {
	if err := tx.Where("session_code = ?", code).Delete(&db.BlacklineGuess{}).Error; err != nil {
		return err
	}
	return tx.Model(&db.BlacklineSession{}).Where("code = ?", code).Updates(map[string]any{
		"host_player_id":       hostPlayerID,
		"status":               string(StatusWaiting),
		"redactor_player_id":   "",
		"source_quote_id":      0,
		"source_quote_text":    "",
		"source_quote_authors": session.EmptyList,
		"source_word_count":    0,
		"allowed_redactions":   0,
		"redaction_indices":    session.EmptyList,
		"redacted_words":       session.EmptyList,
		"redacted_norms":       session.EmptyList,
		"filler_words":         session.EmptyList,
		"puzzle_text":          "",
		"ended_reason":         reason,
		"ended_at":             0,
		"updated_at":           time.Now().Unix(),
	}).Error
}

func (s *Service) pickTurnQuote() (quotes.Card, int, error) {
	pool, err := s.quotes.GetAllQuotes()
	if err != nil {
		return quotes.Card{}, 0, err
	}
	type eligibleQuote struct {
		card  quotes.Card
		words int
	}
	var eligible []eligibleQuote
	for _, quote := range pool {
		count := wordCount(quote.Text)
		if count < MinWordsForQuote {
			continue
		}
		eligible = append(eligible, eligibleQuote{card: quote, words: count})
	}
	if len(eligible) == 0 {
		return quotes.Card{}, 0, session.Errorf(http.StatusConflict,
			"No quotes with at least %d words are available yet.", MinWordsForQuote)
	}
	picked := eligible[rand.Intn(len(eligible))]
	return picked.card, picked.words, nil
}

// pickFillerWords draws count misleading fillers for the puzzle gaps.
// Candidates from quotes sharing keywords with the source score higher and
// are sampled weighted first; a uniform draw over the remaining vocabulary
// tops up, and "redacted" pads any shortfall.
func (s *Service) pickFillerWords(sourceQuoteID uint, sourceText string, excludedNorms map[string]bool, count int) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}
	pool, err := s.quotes.GetAllQuotes()
	if err != nil {
		return nil, err
	}

	sourceKeywords := map[string]bool{}
	for _, word := range extractWords(sourceText) {
		if len(word.Normalized) >= 4 && !stopwords[word.Normalized] {
			sourceKeywords[word.Normalized] = true
		}
	}

	scoredNorms := map[string]int{}
	displayForNorm := map[string]string{}
	fallbackNorms := map[string]string{}

	for _, quote := range pool {
		words := extractWords(quote.Text)
		if len(words) == 0 {
			continue
		}

		overlap := 0
		if quote.ID != sourceQuoteID {
			seen := map[string]bool{}
			for _, word := range words {
				norm := word.Normalized
				if norm == "" || len(norm) < 3 || stopwords[norm] || excludedNorms[norm] || seen[norm] {
					continue
				}
				seen[norm] = true
				if sourceKeywords[norm] {
					overlap++
				}
			}
		}
		for _, word := range words {
			norm := word.Normalized
			if norm == "" || len(norm) < 3 || stopwords[norm] || excludedNorms[norm] {
				continue
			}
			lower := strings.ToLower(word.Text)
			if _, ok := fallbackNorms[norm]; !ok {
				fallbackNorms[norm] = lower
			}
			if overlap <= 0 {
				continue
			}
			scoredNorms[norm] += overlap
			if _, ok := displayForNorm[norm]; !ok {
				displayForNorm[norm] = lower
			}
		}
	}

	picks := make([]string, 0, count)
	chosen := map[string]bool{}
	weightedPool := make(map[string]int, len(scoredNorms))
	for norm, weight := range scoredNorms {
		weightedPool[norm] = weight
	}
	for len(weightedPool) > 0 && len(picks) < count {
		norm := weightedPick(weightedPool)
		if norm == "" {
			break
		}
		delete(weightedPool, norm)
		if chosen[norm] {
			continue
		}
		chosen[norm] = true
		display := displayForNorm[norm]
		if display == "" {
			display = norm
		}
		picks = append(picks, display)
	}

	if len(picks) < count {
		candidates := make([]string, 0, len(fallbackNorms))
		for norm := range fallbackNorms {
			if !chosen[norm] {
				candidates = append(candidates, norm)
			}
		}
		rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		for _, norm := range candidates {
			display := fallbackNorms[norm]
			if display == "" {
				display = norm
			}
			picks = append(picks, display)
			chosen[norm] = true
			if len(picks) >= count {
				break
			}
		}
	}

	for len(picks) < count {
		picks = append(picks, "redacted")
	}
	return picks[:count], nil
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

func endMessage(sess *db.BlacklineSession) string {
	if reason := strings.TrimSpace(sess.EndedReason); reason != "" {
		return reason
	}
	if !sess.IsActive {
		return "This game has ended."
	}
	return ""
}
