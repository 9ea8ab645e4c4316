package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quote-games/internal/config"
	"quote-games/internal/db"
	"quote-games/internal/session"
)

var testDBCounter atomic.Int64

func newTestHandler(t *testing.T) (*gorm.DB, http.Handler) {
	t.Helper()
	dsn := fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(conn, config.Config{BlackCardsPath: ""}, log)
	return conn, srv.Handler()
}

func seedQuote(t *testing.T, conn *gorm.DB, text string, authors ...string) {
	t.Helper()
	record := db.Quote{
		Text:    text,
		Authors: session.JSONList(authors),
		Stats:   db.EmptyStats(),
	}
	if err := conn.Create(&record).Error; err != nil {
		t.Fatalf("seed quote: %v", err)
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	_, handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]string
	decodeBody(t, rec, &payload)
	if payload["status"] != "ok" {
		t.Fatalf("unexpected health payload %v", payload)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	_, handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/blackline-rush/sessions", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
	var payload map[string]string
	decodeBody(t, rec, &payload)
	if payload["error"] != "invalid JSON body" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	_, handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/blackline-rush/sessions", map[string]any{
		"player_name": "Ada",
		"bogus_field": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	_, handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/blackline-rush/sessions/ZZZZZZ?player_id=nobody", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}
	var payload map[string]string
	decodeBody(t, rec, &payload)
	if payload["error"] == "" {
		t.Fatalf("expected an error message, got %v", payload)
	}
}

func TestBlacklineSessionFlow(t *testing.T) {
	conn, handler := newTestHandler(t)
	seedQuote(t, conn, "The quick brown fox jumps over the lazy dog tonight", "Aesop")
	seedQuote(t, conn, "Short words make filler vocabulary", "Anon")

	rec := doJSON(t, handler, http.MethodPost, "/api/blackline-rush/sessions", map[string]any{
		"player_name": "Ada",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on create, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		SessionCode string `json:"session_code"`
		PlayerID    string `json:"player_id"`
		DisplayName string `json:"display_name"`
	}
	decodeBody(t, rec, &created)
	if created.SessionCode == "" || created.PlayerID == "" || created.DisplayName != "Ada" {
		t.Fatalf("unexpected create payload %+v", created)
	}

	base := "/api/blackline-rush/sessions/" + created.SessionCode
	rec = doJSON(t, handler, http.MethodPost, base+"/join", map[string]any{
		"player_name": "Bob",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on join, got %d: %s", rec.Code, rec.Body.String())
	}
	var joined struct {
		PlayerID string `json:"player_id"`
	}
	decodeBody(t, rec, &joined)

	rec = doJSON(t, handler, http.MethodPost, base+"/start", map[string]any{
		"player_id": created.PlayerID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, base+"/?player_id="+created.PlayerID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on state, got %d: %s", rec.Code, rec.Body.String())
	}
	var state struct {
		Session struct {
			Code   string `json:"code"`
			Status string `json:"status"`
		} `json:"session"`
		Players []struct {
			PlayerID string `json:"player_id"`
		} `json:"players"`
	}
	decodeBody(t, rec, &state)
	if state.Session.Code != created.SessionCode || state.Session.Status != "redacting" {
		t.Fatalf("unexpected state %+v", state.Session)
	}
	if len(state.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(state.Players))
	}
}

func TestWhoSaidItBootstrap(t *testing.T) {
	conn, handler := newTestHandler(t)
	seedQuote(t, conn, "Know thyself", "Socrates")
	seedQuote(t, conn, "Simplicity is the ultimate sophistication", "Leonardo da Vinci")

	rec := doJSON(t, handler, http.MethodGet, "/api/who-said-it/bootstrap", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		GameName        string `json:"game_name"`
		TotalQuoteCount int    `json:"total_quote_count"`
	}
	decodeBody(t, rec, &payload)
	if payload.GameName == "" || payload.TotalQuoteCount != 2 {
		t.Fatalf("unexpected bootstrap payload %+v", payload)
	}
}

func TestAnarchyLockedBootstrap(t *testing.T) {
	_, handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/quote-anarchy/bootstrap", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Unlocked          bool `json:"unlocked"`
		MinQuotesRequired int  `json:"min_quotes_required"`
	}
	decodeBody(t, rec, &payload)
	if payload.Unlocked || payload.MinQuotesRequired == 0 {
		t.Fatalf("unexpected bootstrap payload %+v", payload)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/quote-anarchy/sessions", map[string]any{
		"player_name": "Ada",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 while locked, got %d", rec.Code)
	}
}
