package session_test

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quote-games/internal/db"
	"quote-games/internal/session"
)

var testDBCounter atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:session_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
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
	return conn
}

func newTestCore(conn *gorm.DB, maxPlayers int) *session.Core {
	return session.NewCore(conn, session.Tables{
		Sessions:  "qa_sessions",
		Players:   "qa_players",
		Artifacts: []string{"qa_hands", "qa_submissions"},
	}, "Quote Anarchy", maxPlayers)
}

func insertAnarchySession(tx *gorm.DB, code, hostPlayerID string, now int64) error {
	return tx.Create(&db.AnarchySession{
		Code:         code,
		HostPlayerID: hostPlayerID,
		Status:       "waiting",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}).Error
}

func createSession(t *testing.T, conn *gorm.DB, core *session.Core, name string) (string, string) {
	t.Helper()
	var code, playerID string
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		code, playerID, err = core.CreateIdentity(tx, session.SanitizeName(name), time.Now(), insertAnarchySession)
		return err
	})
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}
	return code, playerID
}

func TestCreateIdentitySeatsHost(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 4)

	code, playerID := createSession(t, conn, core, "Ada")
	if len(code) != session.CodeLength {
		t.Fatalf("expected %d-char code, got %q", session.CodeLength, code)
	}
	if playerID == "" {
		t.Fatal("expected non-empty player id")
	}

	players, err := core.ListPlayers(conn, code)
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(players))
	}
	if players[0].Seat != 1 || players[0].PlayerID != playerID {
		t.Fatalf("expected host at seat 1, got %+v", players[0])
	}

	sess, err := core.GetSession(conn, code)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess == nil || sess.HostPlayerID != playerID {
		t.Fatalf("expected host %q on session, got %+v", playerID, sess)
	}
}

func TestJoinIdentitySeatsNewPlayer(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 4)
	code, _ := createSession(t, conn, core, "Ada")

	var joined *session.Joined
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		joined, err = core.JoinIdentity(tx, code, "Bob", "", time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.Rejoined {
		t.Fatal("expected fresh join, got rejoin")
	}
	if joined.DisplayName != "Bob" {
		t.Fatalf("expected display name Bob, got %q", joined.DisplayName)
	}

	players, err := core.ListPlayers(conn, code)
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 2 || players[1].Seat != 2 {
		t.Fatalf("expected second player at seat 2, got %+v", players)
	}
}

func TestJoinIdentityRejoinIsIdempotent(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 4)
	code, hostID := createSession(t, conn, core, "Ada")

	var joined *session.Joined
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		joined, err = core.JoinIdentity(tx, code, "Ada Prime", hostID, time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !joined.Rejoined {
		t.Fatal("expected rejoin flag")
	}
	if joined.PlayerID != hostID {
		t.Fatalf("expected same player id, got %q", joined.PlayerID)
	}

	players, err := core.ListPlayers(conn, code)
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("expected rejoin to not add a seat, got %d players", len(players))
	}
	if players[0].DisplayName != "Ada Prime" {
		t.Fatalf("expected updated display name, got %q", players[0].DisplayName)
	}
}

func TestJoinIdentityFullSession(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 2)
	code, _ := createSession(t, conn, core, "Ada")

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := core.JoinIdentity(tx, code, "Bob", "", time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("second join: %v", err)
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		_, err := core.JoinIdentity(tx, code, "Cleo", "", time.Now())
		return err
	})
	if session.StatusOf(err) != http.StatusConflict {
		t.Fatalf("expected 409 for full session, got %v", err)
	}
}

func TestJoinIdentityStartedSession(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 4)
	code, _ := createSession(t, conn, core, "Ada")

	if err := conn.Model(&db.AnarchySession{}).Where("code = ?", code).
		Update("status", "collecting").Error; err != nil {
		t.Fatalf("set status: %v", err)
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := core.JoinIdentity(tx, code, "Bob", "", time.Now())
		return err
	})
	if session.StatusOf(err) != http.StatusConflict {
		t.Fatalf("expected 409 for started session, got %v", err)
	}
}

func TestJoinIdentityUnknownCode(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 4)

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := core.JoinIdentity(tx, "ZZZZZZ", "Bob", "", time.Now())
		return err
	})
	if session.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %v", err)
	}
}

func TestReseatPacksSeats(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 4)
	code, hostID := createSession(t, conn, core, "Ada")

	var bobID string
	err := conn.Transaction(func(tx *gorm.DB) error {
		joined, err := core.JoinIdentity(tx, code, "Bob", "", time.Now())
		if err != nil {
			return err
		}
		bobID = joined.PlayerID
		_, err = core.JoinIdentity(tx, code, "Cleo", "", time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("joins: %v", err)
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := core.RemovePlayer(tx, code, bobID); err != nil {
			return err
		}
		players, err := core.Reseat(tx, code)
		if err != nil {
			return err
		}
		if len(players) != 2 {
			t.Fatalf("expected 2 players after removal, got %d", len(players))
		}
		for i, player := range players {
			if player.Seat != i+1 {
				t.Fatalf("expected dense seats, got %+v", players)
			}
		}
		if players[0].PlayerID != hostID {
			t.Fatalf("expected host first, got %+v", players[0])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reseat: %v", err)
	}
}

func TestEndSessionAndAddScore(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 4)
	code, hostID := createSession(t, conn, core, "Ada")

	if err := core.AddScore(conn, code, hostID, 3); err != nil {
		t.Fatalf("add score: %v", err)
	}
	if err := core.AddScore(conn, code, hostID, 2); err != nil {
		t.Fatalf("add score: %v", err)
	}
	player, err := core.GetPlayer(conn, code, hostID)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if player.Score != 5 {
		t.Fatalf("expected score 5, got %d", player.Score)
	}

	if err := core.EndSession(conn, code, "Game ended by host.", time.Now().Unix()); err != nil {
		t.Fatalf("end session: %v", err)
	}
	sess, err := core.GetSession(conn, code)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.IsActive {
		t.Fatal("expected inactive session")
	}
	if sess.EndMessage() != "Game ended by host." {
		t.Fatalf("unexpected end message %q", sess.EndMessage())
	}
}

func TestCleanupStaleDeletesOldSessions(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 4)
	code, hostID := createSession(t, conn, core, "Ada")

	if err := conn.Create(&db.AnarchyHandCard{
		SessionCode:  code,
		RoundNumber:  1,
		PlayerID:     hostID,
		Slot:         1,
		QuoteID:      1,
		QuoteText:    "A lingering card",
		QuoteAuthors: session.EmptyList,
	}).Error; err != nil {
		t.Fatalf("seed hand card: %v", err)
	}

	stale := time.Now().Add(-session.StaleSessionTTL - time.Hour).Unix()
	if err := conn.Model(&db.AnarchySession{}).Where("code = ?", code).
		Update("updated_at", stale).Error; err != nil {
		t.Fatalf("backdate session: %v", err)
	}

	if err := core.CleanupStale(time.Now()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	sess, err := core.GetSession(conn, code)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess != nil {
		t.Fatal("expected stale session to be deleted")
	}

	// The reap takes the seats and round artifacts with it; a later session
	// that happens to reuse the code must start empty.
	players, err := core.ListPlayers(conn, code)
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 0 {
		t.Fatalf("expected no surviving players, got %d", len(players))
	}
	var hands int64
	if err := conn.Model(&db.AnarchyHandCard{}).Where("session_code = ?", code).Count(&hands).Error; err != nil {
		t.Fatalf("count hands: %v", err)
	}
	if hands != 0 {
		t.Fatalf("expected no surviving hand cards, got %d", hands)
	}
}

func TestCleanupStaleKeepsFreshSessions(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 4)
	code, _ := createSession(t, conn, core, "Ada")

	if err := core.CleanupStale(time.Now()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	sess, err := core.GetSession(conn, code)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess == nil {
		t.Fatal("expected fresh session to survive the sweep")
	}
}

func TestDeleteSessionPurgesRows(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 4)
	code, hostID := createSession(t, conn, core, "Ada")

	if err := conn.Create(&db.AnarchySubmission{
		SessionCode:  code,
		RoundNumber:  1,
		PlayerID:     hostID,
		QuoteID:      1,
		QuoteText:    "A lingering submission",
		QuoteAuthors: session.EmptyList,
		SubmittedAt:  time.Now().Unix(),
	}).Error; err != nil {
		t.Fatalf("seed submission: %v", err)
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		return core.DeleteSession(tx, code)
	})
	if err != nil {
		t.Fatalf("delete session: %v", err)
	}

	players, err := core.ListPlayers(conn, code)
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 0 {
		t.Fatalf("expected no surviving players, got %d", len(players))
	}
	var submissions int64
	if err := conn.Model(&db.AnarchySubmission{}).Where("session_code = ?", code).Count(&submissions).Error; err != nil {
		t.Fatalf("count submissions: %v", err)
	}
	if submissions != 0 {
		t.Fatalf("expected no surviving submissions, got %d", submissions)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	conn := newTestDB(t)
	core := newTestCore(conn, 4)
	code, hostID := createSession(t, conn, core, "Ada")

	err := conn.Table("qa_players").Create(&session.PlayerRow{
		SessionCode: code,
		PlayerID:    hostID,
		DisplayName: "Clone",
		Seat:        9,
		JoinedAt:    time.Now().Unix(),
	}).Error
	if err == nil {
		t.Fatal("expected duplicate insert to fail")
	}
	if !session.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}
