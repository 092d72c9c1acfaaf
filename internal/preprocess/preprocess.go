// Package preprocess turns a recorded WAV file into one or more
// remote-API-ready encoded chunks under a size ceiling.
package preprocess

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sbeier/audiosessions/internal/encoder"
	"github.com/sbeier/audiosessions/internal/logger"
)

// DefaultSegmentSeconds is the fixed chunk duration used when a
// recording exceeds the size ceiling.
const DefaultSegmentSeconds = 15 * 60

// durationTolerance is the accepted drift between source duration and
// the sum of chunk durations.
const durationTolerance = 2.0

// Preprocessor prepares recordings for transcription with the selected
// encoder backend.
type Preprocessor struct {
	enc            encoder.AudioEncoder
	segmentSeconds float64
	tmpRoot        string
	log            *logger.Logger
}

// New creates a preprocessor with the default segment duration and the
// system temp directory.
func New(enc encoder.AudioEncoder, log *logger.Logger) *Preprocessor {
	return &Preprocessor{
		enc:            enc,
		segmentSeconds: DefaultSegmentSeconds,
		tmpRoot:        os.TempDir(),
		log:            log,
	}
}

// SetSegmentSeconds overrides the chunk duration. Values <= 0 are ignored.
func (p *Preprocessor) SetSegmentSeconds(seconds float64) {
	if seconds > 0 {
		p.segmentSeconds = seconds
	}
}

// SetTmpRoot overrides the temp directory root. Tests point this at
// t.TempDir().
func (p *Preprocessor) SetTmpRoot(dir string) {
	p.tmpRoot = dir
}

// Prepare converts path into encoded chunks, each at most maxSizeMB,
// in chronological order. The returned cleanup deletes every
// intermediate file and must be called on every exit path; on error,
// Prepare has already cleaned up after itself.
func (p *Preprocessor) Prepare(ctx context.Context, path string, maxSizeMB int) (chunks []string, cleanup func(), err error) {
	workDir := filepath.Join(p.tmpRoot, "audiosessions-chunks-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, func() {}, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	cleanup = func() {
		if err := os.RemoveAll(workDir); err != nil {
			p.log.Warn("failed to remove chunk directory %s: %v", workDir, err)
		}
	}

	chunks, err = p.prepare(ctx, workDir, path, maxSizeMB)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return chunks, cleanup, nil
}

func (p *Preprocessor) prepare(ctx context.Context, workDir, path string, maxSizeMB int) ([]string, error) {
	full := filepath.Join(workDir, "chunk_000"+p.enc.Ext())
	if err := p.enc.Encode(ctx, path, full); err != nil {
		return nil, fmt.Errorf("encoding failed: %w", err)
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("failed to stat encoded file: %w", err)
	}

	ceiling := int64(maxSizeMB) * 1024 * 1024
	if info.Size() <= ceiling {
		return []string{full}, nil
	}

	p.log.Info("encoded size %d exceeds %dMB ceiling, splitting into %.0f-minute segments",
		info.Size(), maxSizeMB, p.segmentSeconds/60)

	// The oversized single pass is an intermediate artifact; drop it
	// before chunking so it never leaks past the job.
	if err := os.Remove(full); err != nil {
		p.log.Warn("failed to remove oversized intermediate %s: %v", full, err)
	}

	total, err := p.enc.Duration(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to measure source duration: %w", err)
	}

	count := int(math.Ceil(total / p.segmentSeconds))
	if count < 1 {
		count = 1
	}

	chunks := make([]string, 0, count)
	for i := 0; i < count; i++ {
		offset := float64(i) * p.segmentSeconds
		// The final segment is clamped to the remainder, not padded.
		dur := p.segmentSeconds
		if offset+dur > total {
			dur = total - offset
		}

		dst := filepath.Join(workDir, fmt.Sprintf("chunk_%03d%s", i, p.enc.Ext()))
		if err := p.enc.EncodeSegment(ctx, path, dst, offset, dur); err != nil {
			return nil, fmt.Errorf("encoding segment %d/%d failed: %w", i+1, count, err)
		}
		chunks = append(chunks, dst)
	}

	p.validateDurations(ctx, total, chunks)
	return chunks, nil
}

// validateDurations cross-checks the sum of chunk durations against the
// source duration and warns on drift. Truncation during re-encoding is
// worth surfacing even though it is not fatal.
func (p *Preprocessor) validateDurations(ctx context.Context, total float64, chunks []string) {
	var sum float64
	for _, c := range chunks {
		dur, err := p.enc.Duration(ctx, c)
		if err != nil {
			p.log.Warn("duration validation skipped: %v", err)
			return
		}
		sum += dur
	}

	if math.Abs(sum-total) > durationTolerance {
		p.log.Warn("chunk duration drift: source %.1fs vs chunks %.1fs", total, sum)
	}
}
