package blackline

import (
	"net/http"
	"sort"

	"gorm.io/gorm"

	"quote-games/internal/db"
	"quote-games/internal/session"
)

type SessionView struct {
	Code             string `json:"code"`
	Status           string `json:"status"`
	IsActive         bool   `json:"is_active"`
	EndedReason      string `json:"ended_reason"`
	HostPlayerID     string `json:"host_player_id"`
	TurnNumber       int    `json:"turn_number"`
	RedactorPlayerID string `json:"redactor_player_id"`
	RedactorName     string `json:"redactor_name"`
	MaxPlayers       int    `json:"max_players"`
}

type ViewerView struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	IsHost      bool   `json:"is_host"`
	IsRedactor  bool   `json:"is_redactor"`
}

type PlayerView struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Seat        int    `json:"seat"`
	Score       int    `json:"score"`
}

type RedactionOption struct {
	Index int    `json:"index"`
	Word  string `json:"word"`
}

type SolverView struct {
	PlayerID      string `json:"player_id"`
	PlayerName    string `json:"player_name"`
	Rank          int    `json:"rank"`
	PointsAwarded int    `json:"points_awarded"`
	SolvedAt      int64  `json:"solved_at"`
}

type TurnView struct {
	Number                   int               `json:"number"`
	Status                   string            `json:"status"`
	SourceQuoteID            uint              `json:"source_quote_id"`
	SourceQuote              string            `json:"source_quote"`
	SourceQuoteAuthors       []string          `json:"source_quote_authors"`
	SourceWordCount          int               `json:"source_word_count"`
	AllowedRedactions        int               `json:"allowed_redactions"`
	RedactionOptions         []RedactionOption `json:"redaction_options"`
	SelectedRedactionIndices []int             `json:"selected_redaction_indices"`
	GapCount                 int               `json:"gap_count"`
	PuzzleText               string            `json:"puzzle_text"`
	FillerWords              []string          `json:"filler_words"`
	Answers                  []string          `json:"answers"`
	Solvers                  []SolverView      `json:"solvers"`
	SolvedCount              int               `json:"solved_count"`
	GuesserCount             int               `json:"guesser_count"`
	YouSolvedRank            int               `json:"you_solved_rank"`
	YouPointsAwarded         int               `json:"you_points_awarded"`
	YouAttemptCount          int               `json:"you_attempt_count"`
	YourLastGuess            []string          `json:"your_last_guess"`
	CanStart                 bool              `json:"can_start"`
	CanSubmitRedaction       bool              `json:"can_submit_redaction"`
	CanSubmitGuess           bool              `json:"can_submit_guess"`
	CanEndTurn               bool              `json:"can_end_turn"`
	CanNextTurn              bool              `json:"can_next_turn"`
	CanEndGame               bool              `json:"can_end_game"`
}

type State struct {
	Session SessionView  `json:"session"`
	Viewer  ViewerView   `json:"viewer"`
	Players []PlayerView `json:"players"`
	Turn    TurnView     `json:"turn"`
}

// GetState returns the viewer-scoped snapshot. The source quote and answers
// are withheld from guessers until reveal; the redactor always sees them.
func (s *Service) GetState(sessionCode, playerID string) (*State, error) {
	code, playerID, err := requireCodeAndPlayer(sessionCode, playerID)
	if err != nil {
		return nil, err
	}

	var state *State
	err = s.conn.Transaction(func(tx *gorm.DB) error {
		sess, err := s.requireSession(tx, code)
		if err != nil {
			return err
		}
		players, err := s.core.ListPlayers(tx, code)
		if err != nil {
			return err
		}
		playerMap := make(map[string]session.PlayerRow, len(players))
		for _, player := range players {
			playerMap[player.PlayerID] = player
		}
		viewer, ok := playerMap[playerID]
		if !ok {
			return session.Errorf(http.StatusForbidden, "You are not part of this session.")
		}

		status := Status(sess.Status)
		redactorName := "Unassigned"
		if redactor, ok := playerMap[sess.RedactorPlayerID]; ok {
			redactorName = redactor.DisplayName
		}

		answerWords := session.JSONStrings(sess.RedactedWords)
		fillerWords := session.JSONStrings(sess.FillerWords)
		redactionIndices := make([]int, 0)
		for _, index := range session.JSONInts(sess.RedactionIndices) {
			if index >= 0 {
				redactionIndices = append(redactionIndices, index)
			}
		}
		gapCount := len(answerWords)

		var guessRows []db.BlacklineGuess
		if err := tx.Where("session_code = ? AND turn_number = ?", code, sess.TurnNumber).
			Order("solved_rank ASC, solved_at ASC, updated_at ASC").
			Find(&guessRows).Error; err != nil {
			return err
		}

		var viewerGuess *db.BlacklineGuess
		solvers := make([]SolverView, 0)
		for i := range guessRows {
			row := &guessRows[i]
			if row.PlayerID == playerID {
				viewerGuess = row
			}
			if row.SolvedRank <= 0 {
				continue
			}
			name := "Unknown"
			if player, ok := playerMap[row.PlayerID]; ok {
				name = player.DisplayName
			}
			solvers = append(solvers, SolverView{
				PlayerID:      row.PlayerID,
				PlayerName:    name,
				Rank:          row.SolvedRank,
				PointsAwarded: row.PointsAwarded,
				SolvedAt:      row.SolvedAt,
			})
		}
		sort.Slice(solvers, func(i, j int) bool {
			if solvers[i].Rank != solvers[j].Rank {
				return solvers[i].Rank < solvers[j].Rank
			}
			return solvers[i].SolvedAt < solvers[j].SolvedAt
		})

		guesserCount := len(players) - 1
		if guesserCount < 0 {
			guesserCount = 0
		}

		viewerIsHost := playerID == sess.HostPlayerID
		viewerIsRedactor := playerID == sess.RedactorPlayerID

		redactionOptions := make([]RedactionOption, 0)
		if status == StatusRedacting && viewerIsRedactor {
			for index, word := range extractWords(sess.SourceQuoteText) {
				redactionOptions = append(redactionOptions, RedactionOption{Index: index, Word: word.Text})
			}
		}

		viewerSolvedRank, viewerPoints, viewerAttempts := 0, 0, 0
		viewerLastGuess := []string{}
		if viewerGuess != nil {
			viewerSolvedRank = viewerGuess.SolvedRank
			viewerPoints = viewerGuess.PointsAwarded
			viewerAttempts = viewerGuess.AttemptCount
			viewerLastGuess = session.JSONStrings(viewerGuess.GuessWords)
		}

		revealAnswers := status == StatusReveal || viewerIsRedactor
		showPuzzle := status == StatusGuessing || status == StatusReveal

		sourceQuote, sourceAuthors := "", []string{}
		if revealAnswers {
			sourceQuote = sess.SourceQuoteText
			sourceAuthors = session.JSONStrings(sess.SourceQuoteAuthors)
		}
		puzzleText := ""
		shownFillers := []string{}
		if showPuzzle {
			puzzleText = sess.PuzzleText
			shownFillers = fillerWords
		}
		answers := []string{}
		if revealAnswers {
			answers = answerWords
		}

		playerViews := make([]PlayerView, 0, len(players))
		for _, player := range players {
			playerViews = append(playerViews, PlayerView{
				PlayerID:    player.PlayerID,
				DisplayName: player.DisplayName,
				Seat:        player.Seat,
				Score:       player.Score,
			})
		}

		state = &State{
			Session: SessionView{
				Code:             code,
				Status:           string(status),
				IsActive:         sess.IsActive,
				EndedReason:      endMessage(sess),
				HostPlayerID:     sess.HostPlayerID,
				TurnNumber:       sess.TurnNumber,
				RedactorPlayerID: sess.RedactorPlayerID,
				RedactorName:     redactorName,
				MaxPlayers:       MaxPlayers,
			},
			Viewer: ViewerView{
				PlayerID:    playerID,
				DisplayName: viewer.DisplayName,
				IsHost:      viewerIsHost,
				IsRedactor:  viewerIsRedactor,
			},
			Players: playerViews,
			Turn: TurnView{
				Number:                   sess.TurnNumber,
				Status:                   string(status),
				SourceQuoteID:            sess.SourceQuoteID,
				SourceQuote:              sourceQuote,
				SourceQuoteAuthors:       sourceAuthors,
				SourceWordCount:          sess.SourceWordCount,
				AllowedRedactions:        sess.AllowedRedactions,
				RedactionOptions:         redactionOptions,
				SelectedRedactionIndices: redactionIndices,
				GapCount:                 gapCount,
				PuzzleText:               puzzleText,
				FillerWords:              shownFillers,
				Answers:                  answers,
				Solvers:                  solvers,
				SolvedCount:              len(solvers),
				GuesserCount:             guesserCount,
				YouSolvedRank:            viewerSolvedRank,
				YouPointsAwarded:         viewerPoints,
				YouAttemptCount:          viewerAttempts,
				YourLastGuess:            viewerLastGuess,
				CanStart:                 status == StatusWaiting && sess.IsActive && viewerIsHost && len(players) >= MinPlayers,
				CanSubmitRedaction:       status == StatusRedacting && sess.IsActive && viewerIsRedactor,
				CanSubmitGuess:           status == StatusGuessing && sess.IsActive && !viewerIsRedactor && gapCount > 0 && viewerSolvedRank == 0,
				CanEndTurn:               status == StatusGuessing && sess.IsActive && viewerIsHost,
				CanNextTurn:              status == StatusReveal && sess.IsActive && viewerIsHost,
				CanEndGame:               sess.IsActive && viewerIsHost,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}
