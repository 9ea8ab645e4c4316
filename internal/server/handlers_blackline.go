package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createRequest struct {
	PlayerName string `json:"player_name"`
}

type redactionRequest struct {
	PlayerID         string `json:"player_id"`
	RedactionIndices []int  `json:"redaction_indices"`
}

type guessRequest struct {
	PlayerID string   `json:"player_id"`
	Guesses  []string `json:"guesses"`
}

func (s *Server) handleBlacklineBootstrap(w http.ResponseWriter, r *http.Request) {
	info, err := s.blackline.Bootstrap()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleBlacklineCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.blackline.CreateSession(req.PlayerName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleBlacklineJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.blackline.JoinSession(chi.URLParam(r, "sessionCode"), req.PlayerName, req.PlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBlacklineState(w http.ResponseWriter, r *http.Request) {
	state, err := s.blackline.GetState(chi.URLParam(r, "sessionCode"), r.URL.Query().Get("player_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleBlacklineStart(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.blackline.StartSession(chi.URLParam(r, "sessionCode"), req.PlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBlacklineSubmitRedaction(w http.ResponseWriter, r *http.Request) {
	var req redactionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.blackline.SubmitRedaction(chi.URLParam(r, "sessionCode"), req.PlayerID, req.RedactionIndices)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBlacklineGuess(w http.ResponseWriter, r *http.Request) {
	var req guessRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.blackline.SubmitGuess(chi.URLParam(r, "sessionCode"), req.PlayerID, req.Guesses)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBlacklineEndTurn(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.blackline.EndTurn(chi.URLParam(r, "sessionCode"), req.PlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBlacklineNextTurn(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.blackline.NextTurn(chi.URLParam(r, "sessionCode"), req.PlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBlacklineEnd(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.blackline.EndSession(chi.URLParam(r, "sessionCode"), req.PlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBlacklineLeave(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.blackline.LeaveSession(chi.URLParam(r, "sessionCode"), req.PlayerID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
