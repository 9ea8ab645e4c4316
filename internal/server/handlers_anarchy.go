package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type anarchyCreateRequest struct {
	PlayerName  string `json:"player_name"`
	JudgingMode string `json:"judging_mode"`
	MaxRounds   int    `json:"max_rounds"`
}

type joinRequest struct {
	PlayerName string `json:"player_name"`
	PlayerID   string `json:"player_id"`
}

type playerRequest struct {
	PlayerID string `json:"player_id"`
}

type submitCardRequest struct {
	PlayerID string `json:"player_id"`
	QuoteID  uint   `json:"quote_id"`
}

type pickWinnerRequest struct {
	PlayerID       string `json:"player_id"`
	WinnerPlayerID string `json:"winner_player_id"`
}

type voteRequest struct {
	PlayerID      string `json:"player_id"`
	VotedPlayerID string `json:"voted_player_id"`
}

func (s *Server) handleAnarchyBootstrap(w http.ResponseWriter, r *http.Request) {
	info, err := s.anarchy.Bootstrap()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleAnarchySoloDeal(w http.ResponseWriter, r *http.Request) {
	hand, err := s.anarchy.DealSoloHand()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hand)
}

func (s *Server) handleAnarchyCreate(w http.ResponseWriter, r *http.Request) {
	var req anarchyCreateRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.anarchy.CreateSession(req.PlayerName, req.JudgingMode, req.MaxRounds)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleAnarchyJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.anarchy.JoinSession(chi.URLParam(r, "sessionCode"), req.PlayerName, req.PlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnarchyState(w http.ResponseWriter, r *http.Request) {
	state, err := s.anarchy.GetState(chi.URLParam(r, "sessionCode"), r.URL.Query().Get("player_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAnarchyStart(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.anarchy.StartSession(chi.URLParam(r, "sessionCode"), req.PlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnarchySubmit(w http.ResponseWriter, r *http.Request) {
	var req submitCardRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.anarchy.SubmitCard(chi.URLParam(r, "sessionCode"), req.PlayerID, req.QuoteID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnarchyPickWinner(w http.ResponseWriter, r *http.Request) {
	var req pickWinnerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.anarchy.PickWinner(chi.URLParam(r, "sessionCode"), req.PlayerID, req.WinnerPlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnarchyVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.anarchy.VoteSubmission(chi.URLParam(r, "sessionCode"), req.PlayerID, req.VotedPlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnarchyNextRound(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.anarchy.NextRound(chi.URLParam(r, "sessionCode"), req.PlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnarchyEnd(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.anarchy.EndSession(chi.URLParam(r, "sessionCode"), req.PlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnarchyLeave(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.anarchy.LeaveSession(chi.URLParam(r, "sessionCode"), req.PlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
