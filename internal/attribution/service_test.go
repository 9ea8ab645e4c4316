package attribution

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quote-games/internal/db"
	"quote-games/internal/quotes"
	"quote-games/internal/session"
)

var testDBCounter atomic.Int64

func newTestService(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()
	dsn := fmt.Sprintf("file:attribution_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
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
	return conn, New(conn, quotes.NewGormStore(conn), log)
}

func seedAuthorPool(t *testing.T, conn *gorm.DB) {
	t.Helper()
	entries := []struct {
		text   string
		author string
	}{
		{"Wisdom begins in wonder", "Socrates"},
		{"Simplicity is the ultimate sophistication", "Leonardo da Vinci"},
		{"The unexamined life is not worth living", "Plato"},
		{"Fortune favors the bold", "Virgil"},
		{"Know thyself first", "Thales"},
	}
	for _, entry := range entries {
		record := db.Quote{
			Text:    entry.text,
			Authors: session.JSONList([]string{entry.author}),
			Stats:   db.EmptyStats(),
		}
		if err := conn.Create(&record).Error; err != nil {
			t.Fatalf("seed quote: %v", err)
		}
	}
}

func newTrio(t *testing.T, svc *Service) (string, string, []string) {
	t.Helper()
	created, err := svc.CreateSession("Ada")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	ids := []string{created.PlayerID}
	for _, name := range []string{"Bob", "Cleo"} {
		joined, err := svc.JoinSession(created.SessionCode, name, "")
		if err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
		ids = append(ids, joined.PlayerID)
	}
	return created.SessionCode, created.PlayerID, ids
}

func loadSession(t *testing.T, conn *gorm.DB, code string) *db.AttributionSession {
	t.Helper()
	var sess db.AttributionSession
	if err := conn.Where("code = ?", code).Take(&sess).Error; err != nil {
		t.Fatalf("load session: %v", err)
	}
	return &sess
}

func TestStartSessionOpensQuestion(t *testing.T) {
	conn, svc := newTestService(t)
	seedAuthorPool(t, conn)
	code, hostID, ids := newTrio(t, svc)

	if _, err := svc.StartSession(code, ids[1]); session.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for non-host, got %v", err)
	}
	if _, err := svc.StartSession(code, hostID); err != nil {
		t.Fatalf("start: %v", err)
	}

	sess := loadSession(t, conn, code)
	if Status(sess.Status) != StatusGuessing {
		t.Fatalf("expected guessing, got %q", sess.Status)
	}
	if sess.TurnNumber != 1 || sess.SourceQuoteID == 0 || sess.CorrectAuthor == "" {
		t.Fatalf("unexpected turn setup %+v", sess)
	}

	options := session.JSONStrings(sess.OptionAuthors)
	if len(options) != OptionsPerQuestion {
		t.Fatalf("expected %d options, got %v", OptionsPerQuestion, options)
	}
	found := false
	seen := map[string]bool{}
	for _, option := range options {
		norm := normalizeAuthor(option)
		if seen[norm] {
			t.Fatalf("duplicate option in %v", options)
		}
		seen[norm] = true
		if norm == normalizeAuthor(sess.CorrectAuthor) {
			found = true
		}
	}
	if !found {
		t.Fatalf("correct author %q missing from options %v", sess.CorrectAuthor, options)
	}

	used := session.JSONInts(sess.UsedQuoteIDs)
	if len(used) != 1 || used[0] != int(sess.SourceQuoteID) {
		t.Fatalf("expected used ids to record the quote, got %v", used)
	}
}

func TestStartSessionRequiresThreePlayers(t *testing.T) {
	conn, svc := newTestService(t)
	seedAuthorPool(t, conn)
	created, err := svc.CreateSession("Ada")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.JoinSession(created.SessionCode, "Bob", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	_, err = svc.StartSession(created.SessionCode, created.PlayerID)
	if session.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 with two players, got %v", err)
	}
}

func TestStartSessionNeedsAuthorPool(t *testing.T) {
	conn, svc := newTestService(t)
	for _, author := range []string{"Socrates", "Plato"} {
		record := db.Quote{
			Text:    "Something " + author + " said",
			Authors: session.JSONList([]string{author}),
			Stats:   db.EmptyStats(),
		}
		if err := conn.Create(&record).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	code, hostID, _ := newTrio(t, svc)
	_, err := svc.StartSession(code, hostID)
	if session.StatusOf(err) != http.StatusConflict {
		t.Fatalf("expected 409 with thin author pool, got %v", err)
	}
}

func TestSubmitAnswerScoresBySpeed(t *testing.T) {
	conn, svc := newTestService(t)
	seedAuthorPool(t, conn)
	code, hostID, ids := newTrio(t, svc)
	if _, err := svc.StartSession(code, hostID); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess := loadSession(t, conn, code)
	options := session.JSONStrings(sess.OptionAuthors)
	correct := sess.CorrectAuthor
	var wrong string
	for _, option := range options {
		if normalizeAuthor(option) != normalizeAuthor(correct) {
			wrong = option
			break
		}
	}

	if _, err := svc.SubmitAnswer(code, ids[0], "Nobody Knows"); session.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown option, got %v", err)
	}

	first, err := svc.SubmitAnswer(code, ids[0], correct)
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if !first.IsCorrect || first.AnswerOrder != 1 || first.PointsAwarded != 3 {
		t.Fatalf("unexpected first answer %+v", first)
	}

	repeat, err := svc.SubmitAnswer(code, ids[0], wrong)
	if err != nil {
		t.Fatalf("repeat answer: %v", err)
	}
	if !repeat.AlreadyAnswered || !repeat.IsCorrect || repeat.PointsAwarded != 3 {
		t.Fatalf("expected idempotent repeat, got %+v", repeat)
	}

	miss, err := svc.SubmitAnswer(code, ids[1], wrong)
	if err != nil {
		t.Fatalf("wrong answer: %v", err)
	}
	if miss.IsCorrect || miss.AnswerOrder != 0 || miss.PointsAwarded != 0 {
		t.Fatalf("unexpected miss %+v", miss)
	}

	last, err := svc.SubmitAnswer(code, ids[2], correct)
	if err != nil {
		t.Fatalf("last answer: %v", err)
	}
	if !last.IsCorrect || last.AnswerOrder != 2 || last.PointsAwarded != 2 {
		t.Fatalf("unexpected last answer %+v", last)
	}
	if !last.AllAnswered {
		t.Fatal("expected all answered")
	}

	sess = loadSession(t, conn, code)
	if Status(sess.Status) != StatusReveal {
		t.Fatalf("expected reveal after all answers, got %q", sess.Status)
	}

	var host session.PlayerRow
	if err := conn.Table("wsi_players").
		Where("session_code = ? AND player_id = ?", code, ids[0]).
		Take(&host).Error; err != nil {
		t.Fatalf("load host: %v", err)
	}
	if host.Score != 3 {
		t.Fatalf("expected host score 3, got %d", host.Score)
	}
}

func TestStateHidesCorrectAuthorUntilReveal(t *testing.T) {
	conn, svc := newTestService(t)
	seedAuthorPool(t, conn)
	code, hostID, ids := newTrio(t, svc)
	if _, err := svc.StartSession(code, hostID); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess := loadSession(t, conn, code)
	correct := sess.CorrectAuthor

	state, err := svc.GetState(code, ids[1])
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Turn.CorrectAuthor != "" {
		t.Fatalf("correct author leaked during guessing: %q", state.Turn.CorrectAuthor)
	}
	if len(state.Turn.OptionAuthors) != OptionsPerQuestion || state.Turn.SourceQuote == "" {
		t.Fatalf("expected visible question, got %+v", state.Turn)
	}
	if !state.Turn.CanSubmitAnswer {
		t.Fatal("expected answering open")
	}

	for _, id := range ids {
		if _, err := svc.SubmitAnswer(code, id, correct); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}

	state, err = svc.GetState(code, ids[1])
	if err != nil {
		t.Fatalf("reveal state: %v", err)
	}
	if state.Turn.CorrectAuthor == "" {
		t.Fatal("expected correct author at reveal")
	}
	if len(state.Turn.FastestCorrect) != 3 {
		t.Fatalf("expected 3 ranked answers, got %d", len(state.Turn.FastestCorrect))
	}
	if state.Turn.FastestCorrect[0].Rank != 1 {
		t.Fatalf("expected rank 1 first, got %+v", state.Turn.FastestCorrect[0])
	}
	if !state.Turn.YouAnswered || state.Turn.YourAnswerOrder != 2 {
		t.Fatalf("unexpected viewer answer fields %+v", state.Turn)
	}
}

func TestNextTurnTracksUsedQuotes(t *testing.T) {
	conn, svc := newTestService(t)
	seedAuthorPool(t, conn)
	code, hostID, ids := newTrio(t, svc)
	if _, err := svc.StartSession(code, hostID); err != nil {
		t.Fatalf("start: %v", err)
	}
	firstQuote := loadSession(t, conn, code).SourceQuoteID

	if _, err := svc.NextTurn(code, hostID); session.StatusOf(err) != http.StatusConflict {
		t.Fatalf("expected 409 before reveal, got %v", err)
	}
	if _, err := svc.EndTurn(code, hostID); err != nil {
		t.Fatalf("end turn: %v", err)
	}
	if _, err := svc.NextTurn(code, ids[1]); session.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for non-host, got %v", err)
	}
	if _, err := svc.NextTurn(code, hostID); err != nil {
		t.Fatalf("next turn: %v", err)
	}

	sess := loadSession(t, conn, code)
	if sess.TurnNumber != 2 {
		t.Fatalf("expected turn 2, got %d", sess.TurnNumber)
	}
	if sess.SourceQuoteID == firstQuote {
		t.Fatalf("expected a fresh quote, got repeat of %d", firstQuote)
	}
	used := session.JSONInts(sess.UsedQuoteIDs)
	if len(used) != 2 || used[0] != int(firstQuote) || used[1] != int(sess.SourceQuoteID) {
		t.Fatalf("unexpected used ids %v", used)
	}
}

func TestLeaveMidTurnResetsRound(t *testing.T) {
	conn, svc := newTestService(t)
	seedAuthorPool(t, conn)
	code, hostID, ids := newTrio(t, svc)
	if _, err := svc.StartSession(code, hostID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := svc.LeaveSession(code, ids[2]); err != nil {
		t.Fatalf("leave: %v", err)
	}
	sess := loadSession(t, conn, code)
	if Status(sess.Status) != StatusWaiting {
		t.Fatalf("expected reset to waiting, got %q", sess.Status)
	}
	if sess.EndedReason != "Round reset after a player left. Host can start a new turn." {
		t.Fatalf("unexpected reset reason %q", sess.EndedReason)
	}
	if sess.CorrectAuthor != "" || sess.SourceQuoteID != 0 {
		t.Fatalf("expected question cleared, got %+v", sess)
	}
}

func TestEndSessionByHost(t *testing.T) {
	conn, svc := newTestService(t)
	seedAuthorPool(t, conn)
	code, hostID, ids := newTrio(t, svc)

	if _, err := svc.EndSession(code, ids[1]); session.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for non-host end, got %v", err)
	}
	result, err := svc.EndSession(code, hostID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if !result.Ended {
		t.Fatal("expected ended flag")
	}
	sess := loadSession(t, conn, code)
	if sess.IsActive {
		t.Fatal("expected inactive session")
	}

	_, err = svc.StartSession(code, hostID)
	if session.StatusOf(err) != http.StatusConflict {
		t.Fatalf("expected 409 starting an ended game, got %v", err)
	}
}

func TestBootstrapReportsAuthorPool(t *testing.T) {
	conn, svc := newTestService(t)
	seedAuthorPool(t, conn)

	info, err := svc.Bootstrap()
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if info.AuthorPoolCount != 5 || info.EligibleQuoteCount != 5 {
		t.Fatalf("unexpected counts %+v", info)
	}
	if !info.Ready || info.OptionsPerQuestion != OptionsPerQuestion {
		t.Fatalf("unexpected bootstrap payload %+v", info)
	}
}
