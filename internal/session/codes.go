package session

import (
	"crypto/rand"
	"regexp"
	"strings"
)

const (
	// CodeLength is the length of a session join code.
	CodeLength = 6

	maxNameLength     = 28
	maxPlayerIDLength = 48
	playerIDLength    = 32

	// codeAlphabet drops 0/O/1/I so codes survive being read out loud.
	codeAlphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	playerIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	codeStripRE     = regexp.MustCompile(`[^A-Z0-9]`)
	playerIDStripRE = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	whitespaceRE    = regexp.MustCompile(`\s+`)
)

// NewCode returns a fresh random session code. Uniqueness is enforced by the
// database, not here.
func NewCode() string {
	return randomString(codeAlphabet, CodeLength)
}

// NewPlayerID returns an opaque player token. Clients keep it for rejoins.
func NewPlayerID() string {
	return randomString(playerIDAlphabet, playerIDLength)
}

func randomString(alphabet string, length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		for i := range buf {
			buf[i] = alphabet[0]
		}
		return string(buf)
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}

// SanitizeName collapses whitespace, trims, and caps the display name at 28
// characters. An empty name becomes "Player".
func SanitizeName(name string) string {
	collapsed := strings.TrimSpace(whitespaceRE.ReplaceAllString(name, " "))
	if collapsed == "" {
		return "Player"
	}
	if len(collapsed) > maxNameLength {
		collapsed = collapsed[:maxNameLength]
	}
	return collapsed
}

// NormalizeCode uppercases and strips a client-supplied session code down to
// at most six alphanumerics. Returns "" for unusable input.
func NormalizeCode(code string) string {
	cleaned := codeStripRE.ReplaceAllString(strings.ToUpper(code), "")
	if len(cleaned) > CodeLength {
		cleaned = cleaned[:CodeLength]
	}
	return cleaned
}

// NormalizePlayerID strips a client-supplied player token to the allowed
// character set, capped at 48 characters. Returns "" for unusable input.
func NormalizePlayerID(playerID string) string {
	cleaned := playerIDStripRE.ReplaceAllString(playerID, "")
	if len(cleaned) > maxPlayerIDLength {
		cleaned = cleaned[:maxPlayerIDLength]
	}
	return cleaned
}
