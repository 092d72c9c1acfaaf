package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbeier/audiosessions/internal/apperrors"
	"github.com/sbeier/audiosessions/internal/cache"
	"github.com/sbeier/audiosessions/internal/logger"
	"github.com/sbeier/audiosessions/internal/prompts"
)

// contextPrompt primes the transcription model with the expected domain
// vocabulary so short chunks are less likely to be misheard.
const contextPrompt = "Audio sessions, recording, transcription, notes."

// Preparer converts a recording into upload-ready chunks.
type Preparer interface {
	Prepare(ctx context.Context, path string, maxSizeMB int) ([]string, func(), error)
}

// ProgressFunc reports chunk progress. current is 1-based.
type ProgressFunc func(current, total int)

// TranscriptResult is the outcome of a full transcription: the merged
// text and the total token usage across all chunks. A cache hit
// restores the stored usage.
type TranscriptResult struct {
	Text       string
	TokensUsed int
}

// Config holds the orchestrator settings.
type Config struct {
	Language        string
	UseCache        bool
	MaxChunkMB      int
	TranscribeModel string
	TransformModel  string
	FallbackModel   string
	ReasoningEffort string
	Verbosity       string
}

// DefaultConfig returns orchestrator settings matching the app defaults.
func DefaultConfig() Config {
	return Config{
		UseCache:        true,
		MaxChunkMB:      20,
		TranscribeModel: "gpt-4o-transcribe",
		TransformModel:  "gpt-5",
		FallbackModel:   "gpt-4o",
		ReasoningEffort: "medium",
		Verbosity:       "low",
	}
}

// Service orchestrates transcription and text transformation.
type Service struct {
	client  RemoteClient
	cache   *cache.Cache
	prep    Preparer
	prompts *prompts.Store
	config  Config
	log     *logger.Logger
}

// NewService creates a Service. cache may be nil when caching is disabled.
func NewService(client RemoteClient, c *cache.Cache, prep Preparer, ps *prompts.Store, cfg Config, log *logger.Logger) *Service {
	return &Service{
		client:  client,
		cache:   c,
		prep:    prep,
		prompts: ps,
		config:  cfg,
		log:     log,
	}
}

// Transcribe turns a recording into text. Results are cached by content
// hash so repeated calls for the same file skip the remote API.
func (s *Service) Transcribe(ctx context.Context, path string, progress ProgressFunc) (*TranscriptResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrFileNotFound, absPath)
	}

	var hash string
	if s.useCache() {
		hash, err = cache.HashFile(absPath)
		if err != nil {
			s.log.Warn("Failed to hash file, skipping cache: %v", err)
		} else if entry, ok, err := s.cache.Get(hash); err != nil {
			s.log.Warn("Cache read failed: %v", err)
		} else if ok {
			s.log.Info("Cache hit for %s", filepath.Base(absPath))
			return &TranscriptResult{Text: entry.Text, TokensUsed: int(entry.TokensUsed)}, nil
		}
	}

	chunks, cleanup, err := s.prep.Prepare(ctx, absPath, s.config.MaxChunkMB)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare audio: %w", err)
	}
	defer cleanup()

	s.log.Info("Transcribing %d chunk(s) of %s", len(chunks), filepath.Base(absPath))

	var (
		parts      []string
		segments   []cache.Segment
		tokensUsed int
	)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := s.client.Transcribe(ctx, chunk, s.config.TranscribeModel, s.config.Language, contextPrompt)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		text := strings.TrimSpace(res.Text)
		if text != "" {
			parts = append(parts, text)
			segments = append(segments, cache.Segment{Text: text})
		}
		tokensUsed += res.TokensUsed
		if progress != nil {
			progress(i+1, len(chunks))
		}
	}

	text := strings.Join(parts, " ")

	if s.useCache() && hash != "" {
		entry := &cache.Entry{
			Text:       text,
			Language:   s.config.Language,
			Segments:   segments,
			TokensUsed: int64(tokensUsed),
		}
		if err := s.cache.Put(hash, entry); err != nil {
			s.log.Warn("Cache write failed: %v", err)
		}
	}

	return &TranscriptResult{Text: text, TokensUsed: tokensUsed}, nil
}

// Transform rewrites text according to a stored prompt. The stored
// prompt becomes the system message and the text the user message. The
// primary model is tried with the configured reasoning effort and
// verbosity; on failure the fallback model is used with an equivalent
// sampling temperature.
func (s *Service) Transform(ctx context.Context, text, promptID string) (string, error) {
	p := s.prompts.Resolve(promptID)

	req := CompletionRequest{
		Model:           s.config.TransformModel,
		System:          p.Text,
		User:            text,
		ReasoningEffort: s.config.ReasoningEffort,
		Verbosity:       s.config.Verbosity,
		UseReasoning:    true,
	}
	res, err := s.client.Complete(ctx, req)
	if err == nil {
		return strings.TrimSpace(res.Text), nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	s.log.Warn("Primary model %s failed (%v), falling back to %s", s.config.TransformModel, err, s.config.FallbackModel)

	req.Model = s.config.FallbackModel
	req.UseReasoning = false
	req.ReasoningEffort = ""
	req.Verbosity = ""
	req.Temperature = effortTemperature(s.config.ReasoningEffort)
	res, err = s.client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("fallback model failed: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}

func (s *Service) useCache() bool {
	return s.config.UseCache && s.cache != nil
}

// effortTemperature maps a reasoning effort level onto a sampling
// temperature for models without reasoning controls.
func effortTemperature(effort string) float64 {
	switch effort {
	case "minimal":
		return 0.1
	case "low":
		return 0.3
	case "high":
		return 1.0
	default:
		return 0.7
	}
}
