package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFileName replaces characters that are unsafe in file names and
// falls back to "source" when nothing usable remains.
func SafeFileName(name string) string {
	clean := unsafeNameRe.ReplaceAllString(strings.TrimSpace(name), "_")
	clean = strings.Trim(clean, "._")
	if clean == "" {
		return "source"
	}
	return clean
}

// Backup writes a consistent snapshot of the whole database into dir and
// returns the absolute path of the snapshot file.
func (db *DB) Backup(ctx context.Context, dir string, userID int64, reason string) (string, error) {
	if db.inTx {
		return "", errors.New("store: backup inside a transaction")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("store: create backup dir: %w", err)
	}
	stamp := time.Now().UTC().Format("20060102_150405")
	name := fmt.Sprintf("db_backup_u%d_%s_%s.sqlite3", userID, SafeFileName(reason), stamp)
	out, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("store: resolve backup path: %w", err)
	}
	// VACUUM INTO refuses to overwrite an existing file.
	base := strings.TrimSuffix(out, ".sqlite3")
	for i := 1; fileExists(out); i++ {
		out = fmt.Sprintf("%s_%d.sqlite3", base, i)
	}
	if _, err := db.conn.ExecContext(ctx, `VACUUM INTO ?`, out); err != nil {
		return "", fmt.Errorf("store: backup: %w", err)
	}
	return out, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
