package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))

	name := flag.String("name", "", "migration name, e.g. add_turn_index")
	dir := flag.String("dir", filepath.Join("db", "migrations"), "migrations directory")
	flag.Parse()

	up, down, err := scaffold(*dir, *name, time.Now().UTC())
	if err != nil {
		logger.Error("could not scaffold migration", "error", err)
		os.Exit(1)
	}
	logger.Info("migration files created", "up", up, "down", down)
}

// scaffold writes an empty up/down migration pair versioned by timestamp and
// returns both paths. Existing files are never overwritten.
func scaffold(dir, name string, now time.Time) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("migration name is required")
	}
	if strings.ContainsAny(name, " \t") {
		return "", "", fmt.Errorf("migration name must not contain whitespace")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	base := fmt.Sprintf("%s_%s", now.Format("20060102150405"), name)
	up := filepath.Join(dir, base+".up.sql")
	down := filepath.Join(dir, base+".down.sql")
	if err := writeNewFile(up, "-- up migration\n"); err != nil {
		return "", "", err
	}
	if err := writeNewFile(down, "-- down migration\n"); err != nil {
		return "", "", err
	}
	return up, down, nil
}

func writeNewFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
