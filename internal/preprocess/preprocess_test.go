package preprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbeier/audiosessions/internal/logger"
)

// fakeEncoder writes files of a configurable size and reports a fixed
// source duration.
type fakeEncoder struct {
	duration    float64
	encodeSize  int
	segmentSize int
	failOnSeg   int // 1-based segment index to fail on, 0 = never
	segments    []float64
}

func (e *fakeEncoder) Name() string { return "fake" }
func (e *fakeEncoder) Ext() string  { return ".mp3" }

func (e *fakeEncoder) Encode(ctx context.Context, src, dst string) error {
	return os.WriteFile(dst, make([]byte, e.encodeSize), 0644)
}

func (e *fakeEncoder) EncodeSegment(ctx context.Context, src, dst string, offsetSec, durationSec float64) error {
	if e.failOnSeg > 0 && len(e.segments)+1 == e.failOnSeg {
		return fmt.Errorf("segment encoding blew up")
	}
	e.segments = append(e.segments, durationSec)
	return os.WriteFile(dst, make([]byte, e.segmentSize), 0644)
}

func (e *fakeEncoder) Duration(ctx context.Context, path string) (float64, error) {
	return e.duration, nil
}

func newTestPreprocessor(t *testing.T, enc *fakeEncoder) *Preprocessor {
	t.Helper()
	p := New(enc, logger.Nop())
	p.SetTmpRoot(t.TempDir())
	return p
}

func sourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.wav")
	if err := os.WriteFile(path, []byte("riff"), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	return path
}

func TestPrepareSingleChunk(t *testing.T) {
	enc := &fakeEncoder{duration: 60, encodeSize: 1024}
	p := newTestPreprocessor(t, enc)

	chunks, cleanup, err := p.Prepare(context.Background(), sourceFile(t), 20)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	defer cleanup()

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if filepath.Ext(chunks[0]) != ".mp3" {
		t.Errorf("Expected .mp3 extension, got %s", filepath.Ext(chunks[0]))
	}
	if _, err := os.Stat(chunks[0]); err != nil {
		t.Errorf("Expected chunk on disk: %v", err)
	}
}

func TestPrepareSplitsOversized(t *testing.T) {
	// 40 minutes of audio, oversized single pass; 15-minute segments
	// give ceil(2400/900) = 3 chunks.
	enc := &fakeEncoder{duration: 2400, encodeSize: 30 * 1024 * 1024, segmentSize: 1024}
	p := newTestPreprocessor(t, enc)

	chunks, cleanup, err := p.Prepare(context.Background(), sourceFile(t), 20)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	defer cleanup()

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		want := fmt.Sprintf("chunk_%03d.mp3", i)
		if filepath.Base(c) != want {
			t.Errorf("Expected chunk name %s, got %s", want, filepath.Base(c))
		}
	}

	// Final segment clamped to the remainder: 2400 - 2*900 = 600.
	if len(enc.segments) != 3 {
		t.Fatalf("Expected 3 encoded segments, got %d", len(enc.segments))
	}
	if enc.segments[0] != 900 || enc.segments[1] != 900 {
		t.Errorf("Expected 900s segments, got %v", enc.segments)
	}
	if enc.segments[2] != 600 {
		t.Errorf("Expected final segment clamped to 600s, got %v", enc.segments[2])
	}
}

func TestPrepareCustomSegmentSeconds(t *testing.T) {
	enc := &fakeEncoder{duration: 100, encodeSize: 30 * 1024 * 1024, segmentSize: 1024}
	p := newTestPreprocessor(t, enc)
	p.SetSegmentSeconds(30)

	chunks, cleanup, err := p.Prepare(context.Background(), sourceFile(t), 20)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	defer cleanup()

	if len(chunks) != 4 {
		t.Errorf("Expected 4 chunks for 100s at 30s segments, got %d", len(chunks))
	}
}

func TestCleanupRemovesWorkDir(t *testing.T) {
	enc := &fakeEncoder{duration: 60, encodeSize: 1024}
	p := newTestPreprocessor(t, enc)

	chunks, cleanup, err := p.Prepare(context.Background(), sourceFile(t), 20)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	workDir := filepath.Dir(chunks[0])
	cleanup()

	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Errorf("Expected work directory removed, stat err: %v", err)
	}
}

func TestPrepareCleansUpOnFailure(t *testing.T) {
	enc := &fakeEncoder{duration: 2400, encodeSize: 30 * 1024 * 1024, segmentSize: 1024, failOnSeg: 2}
	p := newTestPreprocessor(t, enc)

	tmpRoot := t.TempDir()
	p.SetTmpRoot(tmpRoot)

	_, _, err := p.Prepare(context.Background(), sourceFile(t), 20)
	if err == nil {
		t.Fatal("Expected error from failing segment")
	}

	entries, readErr := os.ReadDir(tmpRoot)
	if readErr != nil {
		t.Fatalf("failed to read tmp root: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no leftover files after failure, found %d entries", len(entries))
	}
}
