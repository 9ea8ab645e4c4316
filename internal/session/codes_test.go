package session

import (
	"strings"
	"testing"
)

func TestNewCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := NewCode()
		if len(code) != CodeLength {
			t.Fatalf("expected %d-char code, got %q", CodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected varied codes, got %d distinct out of 50", len(seen))
	}
}

func TestNormalizeCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"abc123", "ABC123"},
		{" ab-c1 23 ", "ABC123"},
		{"ABCDEFGH", "ABCDEF"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeCode(tc.in); got != tc.want {
			t.Fatalf("NormalizeCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	if got := SanitizeName("  Ada   Lovelace  "); got != "Ada Lovelace" {
		t.Fatalf("expected collapsed name, got %q", got)
	}
	if got := SanitizeName("   "); got != "Player" {
		t.Fatalf("expected fallback name, got %q", got)
	}
	long := strings.Repeat("x", 40)
	if got := SanitizeName(long); len(got) != 28 {
		t.Fatalf("expected 28-char cap, got %d chars", len(got))
	}
}

func TestNormalizePlayerID(t *testing.T) {
	if got := NormalizePlayerID("abc_DEF-123"); got != "abc_DEF-123" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := NormalizePlayerID("a b!c"); got != "abc" {
		t.Fatalf("expected stripped id, got %q", got)
	}
	long := strings.Repeat("a", 60)
	if got := NormalizePlayerID(long); len(got) != 48 {
		t.Fatalf("expected 48-char cap, got %d chars", len(got))
	}
}

func TestNextAfter(t *testing.T) {
	players := []PlayerRow{
		{PlayerID: "a"}, {PlayerID: "b"}, {PlayerID: "c"},
	}
	if got := NextAfter(players, "a"); got != "b" {
		t.Fatalf("expected b after a, got %q", got)
	}
	if got := NextAfter(players, "c"); got != "a" {
		t.Fatalf("expected wrap to a after c, got %q", got)
	}
	if got := NextAfter(players, "gone"); got != "a" {
		t.Fatalf("expected fallback to first player, got %q", got)
	}
	if got := NextAfter(nil, "a"); got != "" {
		t.Fatalf("expected empty for empty list, got %q", got)
	}
}

func TestEndMessage(t *testing.T) {
	row := &SessionRow{IsActive: false, EndedReason: "Game ended by host."}
	if got := row.EndMessage(); got != "Game ended by host." {
		t.Fatalf("expected reason, got %q", got)
	}
	row = &SessionRow{IsActive: false}
	if got := row.EndMessage(); got != "This game has ended." {
		t.Fatalf("expected generic message, got %q", got)
	}
	row = &SessionRow{IsActive: true}
	if got := row.EndMessage(); got != "" {
		t.Fatalf("expected empty message for active session, got %q", got)
	}
}
