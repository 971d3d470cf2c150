// Package inbox turns files dropped into a watched directory into pending
// Sources. Files live under {root}/{userID}/; files directly under root
// belong to the configured default user.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// SourceAdder is the store subset the inbox writes to.
type SourceAdder interface {
	AddSource(ctx context.Context, s models.Source) (int64, error)
}

// EventCallback is called after a file became a Source.
type EventCallback func(userID, sourceID int64)

// Options configures an Ingester.
type Options struct {
	Root           string
	DefaultUserID  int64
	MaxSourceChars int
	Logger         *slog.Logger
}

// Ingester parses inbox files, keeps a copy in storage and records Sources.
type Ingester struct {
	repo  SourceAdder
	files storage.Provider
	opts  Options
}

// NewIngester returns an Ingester over root.
func NewIngester(repo SourceAdder, files storage.Provider, opts Options) *Ingester {
	if opts.MaxSourceChars <= 0 {
		opts.MaxSourceChars = 12000
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Ingester{repo: repo, files: files, opts: opts}
}

// userFor maps a file path to its owner.
func (i *Ingester) userFor(absPath string) (int64, error) {
	rel, err := filepath.Rel(i.opts.Root, absPath)
	if err != nil {
		return 0, err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) >= 2 {
		if id, err := strconv.ParseInt(parts[0], 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}
	if i.opts.DefaultUserID > 0 {
		return i.opts.DefaultUserID, nil
	}
	return 0, fmt.Errorf("inbox: no user for %s: %w", rel, apperr.ErrInvalidInput)
}

// eligible reports whether a path should be ingested.
func eligible(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return parser.Supported(name)
}

// IngestFile creates a pending Source from absPath and removes the file.
// A file without usable text is left in place.
func (i *Ingester) IngestFile(ctx context.Context, absPath string) (int64, error) {
	userID, err := i.userFor(absPath)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return 0, fmt.Errorf("inbox: read: %w", err)
	}
	name := filepath.Base(absPath)

	doc, err := parser.Parse(name, []byte(storage.DecodeText(data)))
	if err != nil {
		return 0, fmt.Errorf("inbox: parse %s: %w", name, err)
	}
	text := models.Clip(doc.Text, i.opts.MaxSourceChars)
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("inbox: %s: %w", name, apperr.ErrSourceNoText)
	}

	stored, err := i.files.Persist(userID, name, data)
	if err != nil {
		return 0, fmt.Errorf("inbox: persist: %w", err)
	}

	label := doc.Title
	if label == "" {
		label = name
	}
	meta := map[string]any{
		"file_name": name,
		"format":    string(doc.Format),
	}
	if len(doc.Tags) > 0 {
		meta["tags"] = models.NormalizeTags(doc.Tags)
	}

	id, err := i.repo.AddSource(ctx, models.Source{
		UserID:   userID,
		Kind:     models.SourceKindInbox,
		Label:    label,
		Text:     text,
		FilePath: stored,
		Meta:     meta,
		Status:   models.SourcePending,
	})
	if err != nil {
		return 0, fmt.Errorf("inbox: add source: %w", err)
	}

	if err := os.Remove(absPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		i.opts.Logger.Warn("inbox: remove ingested file failed",
			slog.String("path", absPath), slog.String("error", err.Error()))
	}

	i.opts.Logger.Info("inbox: source created",
		slog.Int64("user_id", userID),
		slog.Int64("source_id", id),
		slog.String("file", name))
	return id, nil
}

// Scan ingests every eligible file already present under root.
func (i *Ingester) Scan(ctx context.Context, cb EventCallback) (int, error) {
	var created int
	err := filepath.WalkDir(i.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !eligible(path) {
			return nil
		}
		if i.ingest(ctx, path, cb) {
			created++
		}
		return nil
	})
	if err != nil {
		return created, fmt.Errorf("inbox: scan: %w", err)
	}
	return created, nil
}

// ingest runs IngestFile and logs failures; it reports success.
func (i *Ingester) ingest(ctx context.Context, path string, cb EventCallback) bool {
	id, err := i.IngestFile(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false
		}
		i.opts.Logger.Warn("inbox: ingest failed",
			slog.String("path", path), slog.String("error", err.Error()))
		return false
	}
	if cb != nil {
		userID, _ := i.userFor(path)
		cb(userID, id)
	}
	return true
}
