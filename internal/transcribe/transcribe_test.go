package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbeier/audiosessions/internal/apperrors"
	"github.com/sbeier/audiosessions/internal/cache"
	"github.com/sbeier/audiosessions/internal/logger"
	"github.com/sbeier/audiosessions/internal/prompts"
)

// fakeClient serves canned transcripts per chunk and records calls.
// gate, when set, blocks each transcription until it is closed.
type fakeClient struct {
	transcripts     []string
	transcribeCalls int
	completeCalls   []CompletionRequest
	failTranscribe  error
	failPrimary     bool
	completion      string
	gate            chan struct{}
}

func (c *fakeClient) Transcribe(ctx context.Context, path, model, language, prompt string) (*TranscriptionResult, error) {
	if c.gate != nil {
		<-c.gate
	}
	if c.failTranscribe != nil {
		return nil, c.failTranscribe
	}
	i := c.transcribeCalls
	c.transcribeCalls++
	if i >= len(c.transcripts) {
		return &TranscriptionResult{}, nil
	}
	return &TranscriptionResult{Text: c.transcripts[i], TokensUsed: 10}, nil
}

func (c *fakeClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	c.completeCalls = append(c.completeCalls, req)
	if c.failPrimary && req.UseReasoning {
		return nil, &apperrors.RemoteAPIError{Message: "model offline"}
	}
	return &CompletionResult{Text: c.completion, TokensUsed: 5}, nil
}

// fakePreparer hands back a fixed chunk list and tracks cleanup.
type fakePreparer struct {
	chunks    []string
	cleanedUp bool
	prepares  int
	err       error
}

func (p *fakePreparer) Prepare(ctx context.Context, path string, maxSizeMB int) ([]string, func(), error) {
	p.prepares++
	if p.err != nil {
		return nil, func() {}, p.err
	}
	return p.chunks, func() { p.cleanedUp = true }, nil
}

func newTestService(t *testing.T, client *fakeClient, prep *fakePreparer, useCache bool) *Service {
	t.Helper()
	var c *cache.Cache
	if useCache {
		var err error
		c, err = cache.New(filepath.Join(t.TempDir(), "cache"))
		if err != nil {
			t.Fatalf("cache.New failed: %v", err)
		}
	}
	ps, err := prompts.Load(filepath.Join(t.TempDir(), "prompts.yaml"))
	if err != nil {
		t.Fatalf("prompts.Load failed: %v", err)
	}
	cfg := DefaultConfig()
	cfg.UseCache = useCache
	return NewService(client, c, prep, ps, cfg, logger.Nop())
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.wav")
	if err := os.WriteFile(path, []byte("riff-data"), 0644); err != nil {
		t.Fatalf("failed to write audio file: %v", err)
	}
	return path
}

func TestTranscribeMergesChunksInOrder(t *testing.T) {
	client := &fakeClient{transcripts: []string{"A", "B", "C"}}
	prep := &fakePreparer{chunks: []string{"c0.mp3", "c1.mp3", "c2.mp3"}}
	svc := newTestService(t, client, prep, false)

	res, err := svc.Transcribe(context.Background(), audioFile(t), nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if res.Text != "A B C" {
		t.Errorf("Expected merged text %q, got %q", "A B C", res.Text)
	}
	if res.TokensUsed != 30 {
		t.Errorf("Expected 30 tokens across 3 chunks, got %d", res.TokensUsed)
	}
	if !prep.cleanedUp {
		t.Error("Expected cleanup to run")
	}
}

func TestTranscribeProgress(t *testing.T) {
	client := &fakeClient{transcripts: []string{"A", "B", "C"}}
	prep := &fakePreparer{chunks: []string{"c0.mp3", "c1.mp3", "c2.mp3"}}
	svc := newTestService(t, client, prep, false)

	var calls [][2]int
	_, err := svc.Transcribe(context.Background(), audioFile(t), func(current, total int) {
		calls = append(calls, [2]int{current, total})
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	want := [][2]int{{1, 3}, {2, 3}, {3, 3}}
	if len(calls) != len(want) {
		t.Fatalf("Expected %d progress calls, got %d", len(want), len(calls))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("Progress call %d: expected %v, got %v", i, want[i], calls[i])
		}
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	svc := newTestService(t, &fakeClient{}, &fakePreparer{}, false)

	_, err := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), nil)
	if !errors.Is(err, apperrors.ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}
}

func TestTranscribeUsesCache(t *testing.T) {
	client := &fakeClient{transcripts: []string{"hello world"}}
	prep := &fakePreparer{chunks: []string{"c0.mp3"}}
	svc := newTestService(t, client, prep, true)
	path := audioFile(t)

	first, err := svc.Transcribe(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("First transcribe failed: %v", err)
	}

	second, err := svc.Transcribe(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Second transcribe failed: %v", err)
	}

	if first.Text != second.Text {
		t.Errorf("Expected identical results, got %q and %q", first.Text, second.Text)
	}
	if second.TokensUsed != first.TokensUsed {
		t.Errorf("Expected cache hit to restore %d tokens, got %d", first.TokensUsed, second.TokensUsed)
	}
	if second.TokensUsed == 0 {
		t.Error("Expected nonzero token usage from the cache hit")
	}
	if client.transcribeCalls != 1 {
		t.Errorf("Expected 1 remote call, got %d", client.transcribeCalls)
	}
	if prep.prepares != 1 {
		t.Errorf("Expected 1 prepare, got %d", prep.prepares)
	}
}

func TestTranscribeRemoteFailure(t *testing.T) {
	client := &fakeClient{failTranscribe: fmt.Errorf("%w: slow down", apperrors.ErrRateLimited)}
	prep := &fakePreparer{chunks: []string{"c0.mp3"}}
	svc := newTestService(t, client, prep, true)

	_, err := svc.Transcribe(context.Background(), audioFile(t), nil)
	if !errors.Is(err, apperrors.ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
	if !prep.cleanedUp {
		t.Error("Expected cleanup to run on failure")
	}

	// Failures must not be cached.
	client.failTranscribe = nil
	client.transcripts = []string{"recovered"}
	res, err := svc.Transcribe(context.Background(), audioFile(t), nil)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if res.Text != "recovered" {
		t.Errorf("Expected %q, got %q", "recovered", res.Text)
	}
}

func TestTranscribeCancelledContext(t *testing.T) {
	client := &fakeClient{transcripts: []string{"A"}}
	prep := &fakePreparer{chunks: []string{"c0.mp3"}}
	svc := newTestService(t, client, prep, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Transcribe(ctx, audioFile(t), nil); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestTransformPrimaryModel(t *testing.T) {
	client := &fakeClient{completion: "rewritten"}
	svc := newTestService(t, client, &fakePreparer{}, false)

	text, err := svc.Transform(context.Background(), "raw transcript", "")
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if text != "rewritten" {
		t.Errorf("Expected %q, got %q", "rewritten", text)
	}
	if len(client.completeCalls) != 1 {
		t.Fatalf("Expected 1 completion call, got %d", len(client.completeCalls))
	}

	req := client.completeCalls[0]
	if req.Model != "gpt-5" {
		t.Errorf("Expected primary model gpt-5, got %s", req.Model)
	}
	if !req.UseReasoning || req.ReasoningEffort != "medium" {
		t.Errorf("Expected reasoning effort medium, got %+v", req)
	}
	if req.Verbosity != "low" {
		t.Errorf("Expected verbosity low, got %q", req.Verbosity)
	}
	if req.System == "" {
		t.Error("Expected a system message carrying the prompt")
	}
	if req.User != "raw transcript" {
		t.Errorf("Expected user message %q, got %q", "raw transcript", req.User)
	}
}

func TestTransformFallsBack(t *testing.T) {
	client := &fakeClient{completion: "fallback result", failPrimary: true}
	svc := newTestService(t, client, &fakePreparer{}, false)

	text, err := svc.Transform(context.Background(), "raw transcript", "")
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if text != "fallback result" {
		t.Errorf("Expected fallback result, got %q", text)
	}
	if len(client.completeCalls) != 2 {
		t.Fatalf("Expected 2 completion calls, got %d", len(client.completeCalls))
	}

	fb := client.completeCalls[1]
	if fb.Model != "gpt-4o" {
		t.Errorf("Expected fallback model gpt-4o, got %s", fb.Model)
	}
	if fb.UseReasoning {
		t.Error("Expected fallback without reasoning controls")
	}
	if fb.ReasoningEffort != "" || fb.Verbosity != "" {
		t.Errorf("Expected reasoning hints cleared on fallback, got %+v", fb)
	}
	if fb.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7 for medium effort, got %v", fb.Temperature)
	}
}

func TestEffortTemperature(t *testing.T) {
	cases := map[string]float64{
		"minimal": 0.1,
		"low":     0.3,
		"medium":  0.7,
		"high":    1.0,
		"":        0.7,
	}
	for effort, want := range cases {
		if got := effortTemperature(effort); got != want {
			t.Errorf("effortTemperature(%q): expected %v, got %v", effort, want, got)
		}
	}
}

func TestWorkerRunsJob(t *testing.T) {
	client := &fakeClient{transcripts: []string{"done"}}
	prep := &fakePreparer{chunks: []string{"c0.mp3"}}
	svc := newTestService(t, client, prep, false)
	w := NewWorker(svc, logger.Nop())

	results := make(chan Result, 1)
	if !w.TranscribeAsync(context.Background(), audioFile(t), func(r Result) { results <- r }) {
		t.Fatal("TranscribeAsync returned false")
	}

	r := <-results
	if r.Err != nil {
		t.Fatalf("Job failed: %v", r.Err)
	}
	if r.Text != "done" {
		t.Errorf("Expected %q, got %q", "done", r.Text)
	}
	if r.Tokens != 10 {
		t.Errorf("Expected 10 tokens, got %d", r.Tokens)
	}
	if w.Busy() {
		t.Error("Expected worker idle after completion")
	}
}

func TestWorkerBindsCallbackToJob(t *testing.T) {
	client := &fakeClient{transcripts: []string{"first result"}, gate: make(chan struct{})}
	prep := &fakePreparer{chunks: []string{"c0.mp3"}}
	svc := newTestService(t, client, prep, false)
	w := NewWorker(svc, logger.Nop())

	firstResults := make(chan Result, 1)
	if !w.TranscribeAsync(context.Background(), audioFile(t), func(r Result) { firstResults <- r }) {
		t.Fatal("TranscribeAsync returned false for the first job")
	}

	// A rejected second start must not capture the running job's result.
	secondResults := make(chan Result, 1)
	if w.TranscribeAsync(context.Background(), audioFile(t), func(r Result) { secondResults <- r }) {
		t.Fatal("Expected second TranscribeAsync to be rejected while busy")
	}

	close(client.gate)

	r := <-firstResults
	if r.Err != nil {
		t.Fatalf("First job failed: %v", r.Err)
	}
	if r.Text != "first result" {
		t.Errorf("Expected first job's text, got %q", r.Text)
	}
	select {
	case r := <-secondResults:
		t.Errorf("Rejected job's callback received a result: %+v", r)
	default:
	}
}
