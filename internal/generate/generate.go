// Package generate turns raw text into candidate cards. Every backend sits
// behind the Generator interface; a Chain tries backends in order and
// never fails, it reports an engine name instead.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/starford/ansuz/internal/models"
)

// Backend selects a generation strategy.
type Backend int

const (
	BackendAuto Backend = iota
	BackendCodex
	BackendOllama
	BackendAnthropic
	BackendHeuristic
)

var backendNames = map[Backend]string{
	BackendAuto:      "auto",
	BackendCodex:     "codex-cli",
	BackendOllama:    "ollama-local-mac",
	BackendAnthropic: "anthropic-api",
	BackendHeuristic: "heuristic",
}

var backendAliases = map[string]Backend{
	"auto":             BackendAuto,
	"codex":            BackendCodex,
	"codex-cli":        BackendCodex,
	"ollama":           BackendOllama,
	"ollama-local":     BackendOllama,
	"ollama-local-mac": BackendOllama,
	"anthropic":        BackendAnthropic,
	"anthropic-api":    BackendAnthropic,
	"claude":           BackendAnthropic,
	"heuristic":        BackendHeuristic,
	"rules":            BackendHeuristic,
}

func (b Backend) String() string {
	if name, ok := backendNames[b]; ok {
		return name
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

// ParseBackend maps a configuration string onto a Backend.
func ParseBackend(s string) (Backend, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return BackendAuto, nil
	}
	if b, ok := backendAliases[key]; ok {
		return b, nil
	}
	return BackendAuto, fmt.Errorf("generate: unknown backend %q", s)
}

// Engine names reported when no backend produced candidates.
const (
	EngineNoBackend         = "no_llm_backend"
	EngineHeuristicFallback = "heuristic_fallback"
)

// Request is one generation call.
type Request struct {
	Text     string
	Lang     string
	MaxNotes int
	Feedback string
}

// Result carries sanitized candidates and the engine that produced them.
// When Candidates is empty, Engine names the failure.
type Result struct {
	Candidates []models.CardFields
	Engine     string
}

// Generator is one generation backend.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]models.CardFields, error)
}

// Proposer is the black-box adapter consumed by the proposal lifecycle.
type Proposer interface {
	Propose(ctx context.Context, req Request) Result
}

// Step pairs a generator with the engine name it reports on success.
type Step struct {
	Engine    string
	Generator Generator
}

// Chain tries each step in order and returns the first non-empty result.
type Chain struct {
	Steps     []Step
	Exhausted string

	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewChain creates a Chain. maxConcurrent bounds parallel Propose calls;
// zero means unlimited.
func NewChain(steps []Step, exhausted string, maxConcurrent int64, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{Steps: steps, Exhausted: exhausted, logger: logger}
	if maxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(maxConcurrent)
	}
	return c
}

// Propose runs the chain. It never returns an error.
func (c *Chain) Propose(ctx context.Context, req Request) Result {
	if req.MaxNotes < 1 {
		req.MaxNotes = 1
	}
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			c.logger.Warn("generate: acquire slot", slog.String("error", err.Error()))
			return Result{Engine: c.Exhausted}
		}
		defer c.sem.Release(1)
	}

	for _, step := range c.Steps {
		raw, err := step.Generator.Generate(ctx, req)
		if err != nil {
			c.logger.Warn("generate: backend failed",
				slog.String("engine", step.Engine), slog.String("error", err.Error()))
			continue
		}
		cands := Sanitize(raw)
		if len(cands) > req.MaxNotes {
			cands = cands[:req.MaxNotes]
		}
		if len(cands) > 0 {
			return Result{Candidates: cands, Engine: step.Engine}
		}
		c.logger.Debug("generate: backend returned no candidates", slog.String("engine", step.Engine))
	}
	return Result{Engine: c.Exhausted}
}

// Options configures New.
type Options struct {
	Backend       Backend
	MaxConcurrent int64
	Codex         CodexOptions
	Ollama        OllamaOptions
	Anthropic     AnthropicOptions
}

// New builds the Proposer for opts.Backend.
func New(opts Options, logger *slog.Logger) (*Chain, error) {
	codex := func() Step { return Step{Engine: "codex-cli", Generator: NewCodex(opts.Codex)} }
	ollama := func() Step { return Step{Engine: "ollama-local-mac", Generator: NewOllama(opts.Ollama)} }
	heuristic := Heuristic{}

	switch opts.Backend {
	case BackendAuto:
		steps := []Step{codex(), ollama()}
		if opts.Anthropic.APIKey != "" {
			steps = append(steps, Step{Engine: "anthropic-api", Generator: NewAnthropic(opts.Anthropic, logger)})
		}
		steps = append(steps, Step{Engine: EngineHeuristicFallback, Generator: heuristic})
		return NewChain(steps, EngineNoBackend, opts.MaxConcurrent, logger), nil
	case BackendCodex:
		return NewChain([]Step{codex()}, "codex-cli-unavailable", opts.MaxConcurrent, logger), nil
	case BackendOllama:
		return NewChain([]Step{ollama()}, "ollama-local-mac-unavailable", opts.MaxConcurrent, logger), nil
	case BackendAnthropic:
		if opts.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("generate: %s backend requires an api key", BackendAnthropic)
		}
		steps := []Step{{Engine: "anthropic-api", Generator: NewAnthropic(opts.Anthropic, logger)}}
		return NewChain(steps, "anthropic-api-unavailable", opts.MaxConcurrent, logger), nil
	case BackendHeuristic:
		return NewChain([]Step{{Engine: "heuristic", Generator: heuristic}}, "heuristic", opts.MaxConcurrent, logger), nil
	}
	return nil, fmt.Errorf("generate: unsupported backend %s", opts.Backend)
}
