package attribution

import (
	"net/http"

	"gorm.io/gorm"

	"quote-games/internal/db"
	"quote-games/internal/session"
)

type SessionView struct {
	Code         string `json:"code"`
	Status       string `json:"status"`
	IsActive     bool   `json:"is_active"`
	EndedReason  string `json:"ended_reason"`
	HostPlayerID string `json:"host_player_id"`
	TurnNumber   int    `json:"turn_number"`
	MaxPlayers   int    `json:"max_players"`
	MinPlayers   int    `json:"min_players"`
}

type ViewerView struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	IsHost      bool   `json:"is_host"`
}

type PlayerView struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Seat        int    `json:"seat"`
	Score       int    `json:"score"`
}

type AnswerView struct {
	PlayerID       string `json:"player_id"`
	PlayerName     string `json:"player_name"`
	Answered       bool   `json:"answered"`
	SelectedAuthor string `json:"selected_author"`
	IsCorrect      bool   `json:"is_correct"`
	AnswerOrder    int    `json:"answer_order"`
	PointsAwarded  int    `json:"points_awarded"`
}

type FastestView struct {
	PlayerID      string `json:"player_id"`
	PlayerName    string `json:"player_name"`
	Rank          int    `json:"rank"`
	PointsAwarded int    `json:"points_awarded"`
	AnsweredAt    int64  `json:"answered_at"`
}

type TurnView struct {
	Number             int           `json:"number"`
	Status             string        `json:"status"`
	SourceQuoteID      uint          `json:"source_quote_id"`
	SourceQuote        string        `json:"source_quote"`
	OptionAuthors      []string      `json:"option_authors"`
	CorrectAuthor      string        `json:"correct_author"`
	AnsweredCount      int           `json:"answered_count"`
	CorrectCount       int           `json:"correct_count"`
	TotalPlayers       int           `json:"total_players"`
	WaitingCount       int           `json:"waiting_count"`
	Answers            []AnswerView  `json:"answers"`
	FastestCorrect     []FastestView `json:"fastest_correct"`
	YouAnswered        bool          `json:"you_answered"`
	YourSelectedAuthor string        `json:"your_selected_author"`
	YourIsCorrect      bool          `json:"your_is_correct"`
	YourAnswerOrder    int           `json:"your_answer_order"`
	YourPointsAwarded  int           `json:"your_points_awarded"`
	CanStart           bool          `json:"can_start"`
	CanSubmitAnswer    bool          `json:"can_submit_answer"`
	CanEndTurn         bool          `json:"can_end_turn"`
	CanNextTurn        bool          `json:"can_next_turn"`
	CanEndGame         bool          `json:"can_end_game"`
}

type State struct {
	Session SessionView  `json:"session"`
	Viewer  ViewerView   `json:"viewer"`
	Players []PlayerView `json:"players"`
	Turn    TurnView     `json:"turn"`
}

// GetState returns the viewer-scoped snapshot. The correct author and
// per-player picks stay hidden until reveal; everybody sees who has answered.
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
		options := session.JSONStrings(sess.OptionAuthors)

		var answerRows []db.AttributionAnswer
		if err := tx.Where("session_code = ? AND turn_number = ?", code, sess.TurnNumber).
			Order("answer_order ASC, answered_at ASC").
			Find(&answerRows).Error; err != nil {
			return err
		}
		answerMap := make(map[string]*db.AttributionAnswer, len(answerRows))
		correctCount := 0
		for i := range answerRows {
			answerMap[answerRows[i].PlayerID] = &answerRows[i]
			if answerRows[i].IsCorrect {
				correctCount++
			}
		}
		viewerAnswer := answerMap[playerID]

		revealAnswers := status == StatusReveal || !sess.IsActive

		fastest := make([]FastestView, 0)
		for i := range answerRows {
			row := &answerRows[i]
			if row.AnswerOrder <= 0 {
				continue
			}
			name := "Unknown"
			if player, ok := playerMap[row.PlayerID]; ok {
				name = player.DisplayName
			}
			fastest = append(fastest, FastestView{
				PlayerID:      row.PlayerID,
				PlayerName:    name,
				Rank:          row.AnswerOrder,
				PointsAwarded: row.PointsAwarded,
				AnsweredAt:    row.AnsweredAt,
			})
		}

		answers := make([]AnswerView, 0, len(players))
		for _, player := range players {
			row := answerMap[player.PlayerID]
			view := AnswerView{
				PlayerID:   player.PlayerID,
				PlayerName: player.DisplayName,
				Answered:   row != nil,
			}
			if row != nil && revealAnswers {
				view.SelectedAuthor = row.SelectedAuthor
				view.IsCorrect = row.IsCorrect
				view.AnswerOrder = row.AnswerOrder
				view.PointsAwarded = row.PointsAwarded
			}
			answers = append(answers, view)
		}

		viewerIsHost := playerID == sess.HostPlayerID
		showQuestion := status == StatusGuessing || status == StatusReveal

		sourceQuote := ""
		shownOptions := []string{}
		if showQuestion {
			sourceQuote = sess.SourceQuoteText
			shownOptions = options
		}
		correctAuthor := ""
		if revealAnswers {
			correctAuthor = sess.CorrectAuthor
		}

		waitingCount := len(players) - len(answerRows)
		if waitingCount < 0 {
			waitingCount = 0
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

		turn := TurnView{
			Number:          sess.TurnNumber,
			Status:          string(status),
			SourceQuoteID:   sess.SourceQuoteID,
			SourceQuote:     sourceQuote,
			OptionAuthors:   shownOptions,
			CorrectAuthor:   correctAuthor,
			AnsweredCount:   len(answerRows),
			CorrectCount:    correctCount,
			TotalPlayers:    len(players),
			WaitingCount:    waitingCount,
			Answers:         answers,
			FastestCorrect:  fastest,
			YouAnswered:     viewerAnswer != nil,
			CanStart:        status == StatusWaiting && sess.IsActive && viewerIsHost && len(players) >= MinPlayers,
			CanSubmitAnswer: status == StatusGuessing && sess.IsActive && viewerAnswer == nil && len(options) > 0,
			CanEndTurn:      status == StatusGuessing && sess.IsActive && viewerIsHost,
			CanNextTurn:     status == StatusReveal && sess.IsActive && viewerIsHost,
			CanEndGame:      sess.IsActive && viewerIsHost,
		}
		if viewerAnswer != nil {
			turn.YourSelectedAuthor = viewerAnswer.SelectedAuthor
			turn.YourIsCorrect = viewerAnswer.IsCorrect
			turn.YourAnswerOrder = viewerAnswer.AnswerOrder
			turn.YourPointsAwarded = viewerAnswer.PointsAwarded
		}

		state = &State{
			Session: SessionView{
				Code:         code,
				Status:       string(status),
				IsActive:     sess.IsActive,
				EndedReason:  endMessage(sess),
				HostPlayerID: sess.HostPlayerID,
				TurnNumber:   sess.TurnNumber,
				MaxPlayers:   MaxPlayers,
				MinPlayers:   MinPlayers,
			},
			Viewer: ViewerView{
				PlayerID:    playerID,
				DisplayName: viewer.DisplayName,
				IsHost:      viewerIsHost,
			},
			Players: playerViews,
			Turn:    turn,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}
