// Package session is the shared multiplayer base the three game engines are
// composed from: join-code generation, player identity, seat management, and
// stale-session reaping. Each engine owns its own tables; a Core is
// parameterized by those table names and only touches the columns all games
// share.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

const (
	// StaleSessionTTL is how long a session may sit untouched before the
	// reaper deletes it.
	StaleSessionTTL = 12 * time.Hour

	// sweepInterval bounds how often the opportunistic reaper actually runs,
	// keeping it off the hot path of every create/join.
	sweepInterval = time.Minute

	createCodeAttempts = 24
)

// Tables names the per-game tables a Core operates on. Artifacts lists the
// round-artifact tables keyed by session_code (hands, submissions, guesses)
// that must go away with the session row. The SQL migrations declare ON DELETE
// CASCADE for them, but the AutoMigrate schema does not, so the core purges
// them explicitly and works the same on both.
type Tables struct {
	Sessions  string
	Players   string
	Artifacts []string
}

// Core is the session identity service for one game. Safe for concurrent use.
type Core struct {
	DB         *gorm.DB
	Tables     Tables
	GameName   string
	MaxPlayers int

	lastSweep atomic.Int64
}

func NewCore(conn *gorm.DB, tables Tables, gameName string, maxPlayers int) *Core {
	return &Core{DB: conn, Tables: tables, GameName: gameName, MaxPlayers: maxPlayers}
}

// SessionRow is the subset of session columns every game shares.
type SessionRow struct {
	Code         string `gorm:"column:code"`
	HostPlayerID string `gorm:"column:host_player_id"`
	Status       string `gorm:"column:status"`
	IsActive     bool   `gorm:"column:is_active"`
	EndedReason  string `gorm:"column:ended_reason"`
	EndedAt      int64  `gorm:"column:ended_at"`
	UpdatedAt    int64  `gorm:"column:updated_at"`
}

// EndMessage describes why an inactive session ended, for 409 responses.
func (r *SessionRow) EndMessage() string {
	reason := strings.TrimSpace(r.EndedReason)
	if reason != "" {
		return reason
	}
	if !r.IsActive {
		return "This game has ended."
	}
	return ""
}

// PlayerRow is one seat in a session.
type PlayerRow struct {
	SessionCode string `gorm:"column:session_code"`
	PlayerID    string `gorm:"column:player_id"`
	DisplayName string `gorm:"column:display_name"`
	Seat        int    `gorm:"column:seat"`
	JoinedAt    int64  `gorm:"column:joined_at"`
	Score       int    `gorm:"column:score"`
}

// Joined is the outcome of JoinIdentity.
type Joined struct {
	Code        string
	PlayerID    string
	DisplayName string
	Session     *SessionRow
	Rejoined    bool
}

// CleanupStale deletes sessions untouched for longer than StaleSessionTTL,
// along with their player and artifact rows. Rate limited to one sweep per
// minute; callers invoke it unconditionally at the top of create/join
// operations.
func (c *Core) CleanupStale(now time.Time) error {
	last := c.lastSweep.Load()
	if now.Unix()-last < int64(sweepInterval/time.Second) {
		return nil
	}
	if !c.lastSweep.CompareAndSwap(last, now.Unix()) {
		return nil
	}
	cutoff := now.Add(-StaleSessionTTL).Unix()
	return c.DB.Transaction(func(tx *gorm.DB) error {
		var codes []string
		if err := tx.Table(c.Tables.Sessions).
			Where("updated_at < ?", cutoff).
			Pluck("code", &codes).Error; err != nil {
			return err
		}
		if len(codes) == 0 {
			return nil
		}
		if err := c.purgeSessionRows(tx, codes); err != nil {
			return err
		}
		return tx.Table(c.Tables.Sessions).Where("code IN ?", codes).Delete(nil).Error
	})
}

// purgeSessionRows removes the player and artifact rows belonging to codes.
func (c *Core) purgeSessionRows(tx *gorm.DB, codes []string) error {
	for _, table := range c.Tables.Artifacts {
		if err := tx.Table(table).Where("session_code IN ?", codes).Delete(nil).Error; err != nil {
			return err
		}
	}
	return tx.Table(c.Tables.Players).Where("session_code IN ?", codes).Delete(nil).Error
}

// GetSession loads the shared columns of one session, or nil when missing.
func (c *Core) GetSession(tx *gorm.DB, code string) (*SessionRow, error) {
	var row SessionRow
	err := tx.Table(c.Tables.Sessions).
		Select("code", "host_player_id", "status", "is_active", "ended_reason", "ended_at", "updated_at").
		Where("code = ?", code).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// RequireSession is GetSession with a 404 for missing codes.
func (c *Core) RequireSession(tx *gorm.DB, code string) (*SessionRow, error) {
	row, err := c.GetSession(tx, code)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, Errorf(http.StatusNotFound, "Session not found.")
	}
	return row, nil
}

// ListPlayers returns all seats in seat order.
func (c *Core) ListPlayers(tx *gorm.DB, code string) ([]PlayerRow, error) {
	var rows []PlayerRow
	err := tx.Table(c.Tables.Players).
		Where("session_code = ?", code).
		Order("seat ASC, joined_at ASC").
		Find(&rows).Error
	return rows, err
}

// GetPlayer returns one seat, or nil when the player is not in the session.
func (c *Core) GetPlayer(tx *gorm.DB, code, playerID string) (*PlayerRow, error) {
	var row PlayerRow
	err := tx.Table(c.Tables.Players).
		Where("session_code = ? AND player_id = ?", code, playerID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CreateIdentity allocates a fresh session code and seats the creator at seat
// 1. insertSession writes the game-specific session row; a unique violation on
// the code column triggers a retry with a new code, up to a fixed attempt limit.
func (c *Core) CreateIdentity(tx *gorm.DB, displayName string, now time.Time, insertSession func(tx *gorm.DB, code, hostPlayerID string, now int64) error) (code, playerID string, err error) {
	playerID = NewPlayerID()
	nowTS := now.Unix()

	inserted := false
	for attempt := 0; attempt < createCodeAttempts; attempt++ {
		code = NewCode()
		sp := fmt.Sprintf("sp_code_%d", attempt)
		tx.SavePoint(sp)
		if insertErr := insertSession(tx, code, playerID, nowTS); insertErr != nil {
			if IsUniqueViolation(insertErr) {
				tx.RollbackTo(sp)
				continue
			}
			return "", "", insertErr
		}
		inserted = true
		break
	}
	if !inserted {
		return "", "", Errorf(http.StatusServiceUnavailable, "Unable to create a session code right now.")
	}

	host := PlayerRow{
		SessionCode: code,
		PlayerID:    playerID,
		DisplayName: displayName,
		Seat:        1,
		JoinedAt:    nowTS,
	}
	if err := tx.Table(c.Tables.Players).Create(&host).Error; err != nil {
		return "", "", err
	}
	return code, playerID, nil
}

// JoinIdentity seats a player in an existing session. Supplying a playerID
// already seated in the session makes the call an idempotent rejoin: no new
// seat is created, and a changed display name is updated in place.
func (c *Core) JoinIdentity(tx *gorm.DB, rawCode, rawName, rawPlayerID string, now time.Time) (*Joined, error) {
	code := NormalizeCode(rawCode)
	if code == "" {
		return nil, Errorf(http.StatusBadRequest, "Session code is required.")
	}
	displayName := SanitizeName(rawName)
	requestedID := NormalizePlayerID(rawPlayerID)
	nowTS := now.Unix()

	sess, err := c.RequireSession(tx, code)
	if err != nil {
		return nil, err
	}

	if requestedID != "" {
		existing, err := c.GetPlayer(tx, code, requestedID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if displayName != "" && existing.DisplayName != displayName {
				if err := tx.Table(c.Tables.Players).
					Where("session_code = ? AND player_id = ?", code, requestedID).
					Update("display_name", displayName).Error; err != nil {
					return nil, err
				}
			}
			if err := c.TouchSession(tx, code, nowTS); err != nil {
				return nil, err
			}
			name := displayName
			if name == "" {
				name = existing.DisplayName
			}
			return &Joined{Code: code, PlayerID: requestedID, DisplayName: name, Session: sess, Rejoined: true}, nil
		}
	}

	if !sess.IsActive {
		return nil, Errorf(http.StatusConflict, "%s", sess.EndMessage())
	}
	if sess.Status != "waiting" {
		return nil, Errorf(http.StatusConflict, "This session already started. Try another code.")
	}

	players, err := c.ListPlayers(tx, code)
	if err != nil {
		return nil, err
	}
	if len(players) >= c.MaxPlayers {
		return nil, Errorf(http.StatusConflict, "Session is full (%d players max).", c.MaxPlayers)
	}

	playerID := requestedID
	if playerID == "" {
		playerID = NewPlayerID()
	}
	seat := 0
	for _, player := range players {
		if player.Seat > seat {
			seat = player.Seat
		}
	}
	seat++

	row := PlayerRow{
		SessionCode: code,
		PlayerID:    playerID,
		DisplayName: displayName,
		Seat:        seat,
		JoinedAt:    nowTS,
	}
	if err := tx.Table(c.Tables.Players).Create(&row).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, Errorf(http.StatusConflict, "Unable to join with this player identity.")
		}
		return nil, err
	}
	if err := c.TouchSession(tx, code, nowTS); err != nil {
		return nil, err
	}
	return &Joined{Code: code, PlayerID: playerID, DisplayName: displayName, Session: sess}, nil
}

// Reseat packs remaining players into a dense 1..N seat sequence and returns
// them in their new order.
func (c *Core) Reseat(tx *gorm.DB, code string) ([]PlayerRow, error) {
	players, err := c.ListPlayers(tx, code)
	if err != nil {
		return nil, err
	}
	for i := range players {
		want := i + 1
		if players[i].Seat == want {
			continue
		}
		if err := tx.Table(c.Tables.Players).
			Where("session_code = ? AND player_id = ?", code, players[i].PlayerID).
			Update("seat", want).Error; err != nil {
			return nil, err
		}
		players[i].Seat = want
	}
	return players, nil
}

// RemovePlayer deletes one seat.
func (c *Core) RemovePlayer(tx *gorm.DB, code, playerID string) error {
	return tx.Table(c.Tables.Players).
		Where("session_code = ? AND player_id = ?", code, playerID).
		Delete(nil).Error
}

// TouchSession bumps updated_at so the reaper sees activity.
func (c *Core) TouchSession(tx *gorm.DB, code string, nowTS int64) error {
	return tx.Table(c.Tables.Sessions).Where("code = ?", code).
		Update("updated_at", nowTS).Error
}

// EndSession marks the session inactive with a reason.
func (c *Core) EndSession(tx *gorm.DB, code, reason string, nowTS int64) error {
	return tx.Table(c.Tables.Sessions).Where("code = ?", code).
		Updates(map[string]any{
			"is_active":    false,
			"ended_reason": reason,
			"ended_at":     nowTS,
			"updated_at":   nowTS,
		}).Error
}

// DeleteSession removes the session and everything hanging off it.
func (c *Core) DeleteSession(tx *gorm.DB, code string) error {
	if err := c.purgeSessionRows(tx, []string{code}); err != nil {
		return err
	}
	return tx.Table(c.Tables.Sessions).Where("code = ?", code).Delete(nil).Error
}

// AddScore applies a relative score update, tolerating concurrent writers.
func (c *Core) AddScore(tx *gorm.DB, code, playerID string, points int) error {
	return tx.Table(c.Tables.Players).
		Where("session_code = ? AND player_id = ?", code, playerID).
		Update("score", gorm.Expr("score + ?", points)).Error
}

// NextAfter returns the player following currentID in seat order, wrapping
// around. Computed against the live player list so departed seats are skipped.
func NextAfter(players []PlayerRow, currentID string) string {
	if len(players) == 0 {
		return ""
	}
	for i, player := range players {
		if player.PlayerID == currentID {
			return players[(i+1)%len(players)].PlayerID
		}
	}
	return players[0].PlayerID
}

// IsUniqueViolation reports whether err is a primary-key or unique-index
// violation from postgres or the sqlite test driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
