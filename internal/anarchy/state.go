package anarchy

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"quote-games/internal/db"
	"quote-games/internal/session"
)

type SessionView struct {
	Code          string `json:"code"`
	Status        string `json:"status"`
	RoundNumber   int    `json:"round_number"`
	BlackCard     string `json:"black_card"`
	HostPlayerID  string `json:"host_player_id"`
	JudgePlayerID string `json:"judge_player_id"`
	JudgeName     string `json:"judge_name"`
	MaxPlayers    int    `json:"max_players"`
	JudgingMode   string `json:"judging_mode"`
	MaxRounds     int    `json:"max_rounds"`
	IsActive      bool   `json:"is_active"`
	EndedReason   string `json:"ended_reason"`
	UpdatedAt     int64  `json:"updated_at"`
}

type ViewerView struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	IsHost      bool   `json:"is_host"`
	IsJudge     bool   `json:"is_judge"`
	Score       int    `json:"score"`
}

type PlayerView struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Seat        int    `json:"seat"`
	Score       int    `json:"score"`
}

type HandCardView struct {
	Slot    int      `json:"slot"`
	QuoteID uint     `json:"quote_id"`
	Quote   string   `json:"quote"`
	Authors []string `json:"authors"`
}

type SubmissionView struct {
	PlayerID   string   `json:"player_id"`
	PlayerName string   `json:"player_name,omitempty"`
	QuoteID    uint     `json:"quote_id"`
	Quote      string   `json:"quote"`
	Authors    []string `json:"authors"`
}

type WinnerView struct {
	PlayerID   string   `json:"player_id"`
	PlayerName string   `json:"player_name"`
	QuoteID    uint     `json:"quote_id"`
	Quote      string   `json:"quote"`
	Authors    []string `json:"authors"`
	VoteCount  int      `json:"vote_count"`
}

type RoundResultView struct {
	WinnerPlayerID string       `json:"winner_player_id"`
	WinnerName     string       `json:"winner_name"`
	QuoteID        uint         `json:"quote_id"`
	Quote          string       `json:"quote"`
	Authors        []string     `json:"authors"`
	CreatedAt      int64        `json:"created_at"`
	Winners        []WinnerView `json:"winners"`
	IsTie          bool         `json:"is_tie"`
}

type RoundView struct {
	Status              string           `json:"status"`
	Number              int              `json:"number"`
	BlackCard           string           `json:"black_card"`
	Hand                []HandCardView   `json:"hand"`
	YouSubmitted        bool             `json:"you_submitted"`
	SubmittedCount      int              `json:"submitted_count"`
	RequiredSubmissions int              `json:"required_submissions"`
	Submissions         []SubmissionView `json:"submissions"`
	Result              *RoundResultView `json:"result"`
	VotesSubmittedCount int              `json:"votes_submitted_count"`
	RequiredVotes       int              `json:"required_votes"`
	YouVoted            bool             `json:"you_voted"`
	VotedPlayerID       string           `json:"voted_player_id"`
	CanStart            bool             `json:"can_start"`
	CanPickWinner       bool             `json:"can_pick_winner"`
	CanVote             bool             `json:"can_vote"`
	CanAdvance          bool             `json:"can_advance"`
	CanEndGame          bool             `json:"can_end_game"`
}

type State struct {
	Session SessionView  `json:"session"`
	Viewer  ViewerView   `json:"viewer"`
	Players []PlayerView `json:"players"`
	Round   RoundView    `json:"round"`
}

// GetState builds the full viewer-scoped snapshot; hands and judge-only
// submission lists are filtered server-side so polling clients never see
// another player's cards early.
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

		mode := normalizeJudgingMode(sess.JudgingMode)
		maxRounds := normalizeMaxRounds(sess.MaxRounds)

		judgePlayerID, judgeName := "", ""
		if len(players) > 0 {
			judge := players[sess.JudgeIndex%len(players)]
			judgePlayerID, judgeName = judge.PlayerID, judge.DisplayName
		}

		status := Status(sess.Status)

		var submissions []db.AnarchySubmission
		if err := tx.Where("session_code = ? AND round_number = ?", code, sess.RoundNumber).
			Order("submitted_at ASC").Find(&submissions).Error; err != nil {
			return err
		}
		youSubmitted := false
		for _, sub := range submissions {
			if sub.PlayerID == playerID {
				youSubmitted = true
				break
			}
		}

		var handRows []db.AnarchyHandCard
		if err := tx.Where("session_code = ? AND round_number = ? AND player_id = ?",
			code, sess.RoundNumber, playerID).Order("slot ASC").Find(&handRows).Error; err != nil {
			return err
		}
		hand := make([]HandCardView, 0, len(handRows))
		for _, row := range handRows {
			hand = append(hand, HandCardView{
				Slot:    row.Slot,
				QuoteID: row.QuoteID,
				Quote:   row.QuoteText,
				Authors: session.JSONStrings(row.QuoteAuthors),
			})
		}

		var votes []db.AnarchyVote
		if err := tx.Where("session_code = ? AND round_number = ?", code, sess.RoundNumber).
			Find(&votes).Error; err != nil {
			return err
		}
		requiredVotes := 0
		if mode == ModeAllVote {
			requiredVotes = len(players)
		}
		youVoted, votedPlayerID := false, ""
		for _, vote := range votes {
			if vote.VoterPlayerID == playerID {
				youVoted = true
				votedPlayerID = vote.VotedPlayerID
				break
			}
		}

		result, err := s.roundResult(tx, code, sess.RoundNumber, playerMap)
		if err != nil {
			return err
		}

		var submissionViews []SubmissionView
		switch {
		case status == StatusJudging && (mode == ModeAllVote || playerID == judgePlayerID):
			for _, sub := range submissions {
				submissionViews = append(submissionViews, SubmissionView{
					PlayerID: sub.PlayerID,
					QuoteID:  sub.QuoteID,
					Quote:    sub.QuoteText,
					Authors:  session.JSONStrings(sub.QuoteAuthors),
				})
			}
		case status == StatusReveal:
			for _, sub := range submissions {
				name := "Unknown"
				if row, ok := playerMap[sub.PlayerID]; ok {
					name = row.DisplayName
				}
				submissionViews = append(submissionViews, SubmissionView{
					PlayerID:   sub.PlayerID,
					PlayerName: name,
					QuoteID:    sub.QuoteID,
					Quote:      sub.QuoteText,
					Authors:    session.JSONStrings(sub.QuoteAuthors),
				})
			}
		}

		isHost := playerID == sess.HostPlayerID
		endedReason := ""
		if !sess.IsActive {
			endedReason = endMessage(sess)
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
				Code:          code,
				Status:        string(status),
				RoundNumber:   sess.RoundNumber,
				BlackCard:     sess.BlackCard,
				HostPlayerID:  sess.HostPlayerID,
				JudgePlayerID: judgePlayerID,
				JudgeName:     judgeName,
				MaxPlayers:    MaxPlayers,
				JudgingMode:   mode,
				MaxRounds:     maxRounds,
				IsActive:      sess.IsActive,
				EndedReason:   endedReason,
				UpdatedAt:     sess.UpdatedAt,
			},
			Viewer: ViewerView{
				PlayerID:    playerID,
				DisplayName: viewer.DisplayName,
				IsHost:      isHost,
				IsJudge:     mode == ModeJudge && playerID == judgePlayerID,
				Score:       viewer.Score,
			},
			Players: playerViews,
			Round: RoundView{
				Status:              string(status),
				Number:              sess.RoundNumber,
				BlackCard:           sess.BlackCard,
				Hand:                hand,
				YouSubmitted:        youSubmitted,
				SubmittedCount:      len(submissions),
				RequiredSubmissions: requiredSubmissions(len(players), mode),
				Submissions:         submissionViews,
				Result:              result,
				VotesSubmittedCount: len(votes),
				RequiredVotes:       requiredVotes,
				YouVoted:            youVoted,
				VotedPlayerID:       votedPlayerID,
				CanStart:            status == StatusWaiting && isHost && len(players) >= 2 && sess.IsActive,
				CanPickWinner:       status == StatusJudging && mode == ModeJudge && playerID == judgePlayerID && sess.IsActive,
				CanVote:             status == StatusJudging && mode == ModeAllVote && !youVoted && sess.IsActive,
				CanAdvance:          status == StatusReveal && isHost && len(players) >= 2 && sess.IsActive && sess.RoundNumber < maxRounds,
				CanEndGame:          isHost && sess.IsActive,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// roundResult assembles the reveal payload from the winners table, falling
// back to the legacy single-winner row for sessions recorded before ties
// were kept.
func (s *Service) roundResult(tx *gorm.DB, code string, roundNumber int, playerMap map[string]session.PlayerRow) (*RoundResultView, error) {
	var winnerRows []db.AnarchyRoundWinner
	if err := tx.Where("session_code = ? AND round_number = ?", code, roundNumber).
		Order("vote_count DESC, winner_player_id ASC").
		Find(&winnerRows).Error; err != nil {
		return nil, err
	}
	if len(winnerRows) == 0 {
		var legacy db.AnarchyRoundResult
		err := tx.Where("session_code = ? AND round_number = ?", code, roundNumber).
			Take(&legacy).Error
		if err == nil {
			winnerRows = []db.AnarchyRoundWinner{{
				WinnerPlayerID: legacy.WinnerPlayerID,
				QuoteID:        legacy.QuoteID,
				QuoteText:      legacy.QuoteText,
				QuoteAuthors:   legacy.QuoteAuthors,
				CreatedAt:      legacy.CreatedAt,
			}}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if len(winnerRows) == 0 {
		return nil, nil
	}

	winners := make([]WinnerView, 0, len(winnerRows))
	for _, row := range winnerRows {
		name := "Unknown"
		if player, ok := playerMap[row.WinnerPlayerID]; ok {
			name = player.DisplayName
		}
		winners = append(winners, WinnerView{
			PlayerID:   row.WinnerPlayerID,
			PlayerName: name,
			QuoteID:    row.QuoteID,
			Quote:      row.QuoteText,
			Authors:    session.JSONStrings(row.QuoteAuthors),
			VoteCount:  row.VoteCount,
		})
	}
	first := winners[0]
	return &RoundResultView{
		WinnerPlayerID: first.PlayerID,
		WinnerName:     first.PlayerName,
		QuoteID:        first.QuoteID,
		Quote:          first.Quote,
		Authors:        first.Authors,
		CreatedAt:      winnerRows[0].CreatedAt,
		Winners:        winners,
		IsTie:          len(winners) > 1,
	}, nil
}
