package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// CodexOptions configures the external CLI backend.
type CodexOptions struct {
	Binary  string
	Model   string
	WorkDir string
	Timeout time.Duration
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Codex shells out to the codex CLI.
type Codex struct {
	opts CodexOptions
	run  Runner
}

const minCodexTimeout = 15 * time.Second

// NewCodex creates the CLI backend.
func NewCodex(opts CodexOptions) *Codex {
	if opts.Binary == "" {
		opts.Binary = "codex"
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if opts.Timeout < minCodexTimeout {
		opts.Timeout = minCodexTimeout
	}
	return &Codex{opts: opts, run: execRunner}
}

// WithRunner replaces the command runner.
func (c *Codex) WithRunner(r Runner) *Codex {
	c.run = r
	return c
}

// Generate implements Generator.
func (c *Codex) Generate(ctx context.Context, req Request) ([]models.CardFields, error) {
	if c.run == nil {
		return nil, errors.New("codex: no runner")
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	prompt := PromptWithInput(req)

	tmp, err := os.CreateTemp("", "ansuz-codex-*.txt")
	if err != nil {
		return nil, fmt.Errorf("codex: temp file: %w", err)
	}
	lastMessage := tmp.Name()
	tmp.Close()
	defer os.Remove(lastMessage)

	args := []string{
		"exec", "--skip-git-repo-check",
		"--sandbox", "read-only",
		"--ephemeral",
		"--cd", filepath.Clean(c.opts.WorkDir),
		"--output-last-message", lastMessage,
	}
	if c.opts.Model != "" {
		args = append(args, "-m", c.opts.Model)
	}
	args = append(args, prompt)

	out, runErr := c.run(ctx, c.opts.Binary, args...)
	legacy := isLegacyCodex(string(out))
	if legacy {
		legacyArgs := []string{"-q", "-C", filepath.Clean(c.opts.WorkDir)}
		if c.opts.Model != "" {
			legacyArgs = append(legacyArgs, "-m", c.opts.Model)
		}
		legacyArgs = append(legacyArgs, prompt)
		out, runErr = c.run(ctx, c.opts.Binary, legacyArgs...)
	}

	var chunks []string
	if !legacy {
		if data, err := os.ReadFile(lastMessage); err == nil && strings.TrimSpace(string(data)) != "" {
			chunks = append(chunks, string(data))
		}
	}
	chunks = append(chunks, string(out))

	for _, text := range chunks {
		payload, ok := ExtractJSON(text)
		if !ok {
			continue
		}
		notes, err := DecodeNotes(payload)
		if err == nil && len(Sanitize(notes)) > 0 {
			return notes, nil
		}
	}
	if runErr != nil {
		return nil, fmt.Errorf("codex: %w: %s", runErr, clipOutput(string(out)))
	}
	return nil, errors.New("codex: output carried no valid notes")
}

func isLegacyCodex(output string) bool {
	lowered := strings.ToLower(output)
	return strings.Contains(lowered, "unrecognized subcommand") ||
		strings.Contains(lowered, "unexpected argument 'exec'")
}

func clipOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
