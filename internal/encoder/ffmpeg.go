package encoder

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sbeier/audiosessions/internal/apperrors"
	"github.com/sbeier/audiosessions/internal/logger"
)

// durationTolerance is the accepted drift between source and encoded
// duration before a warning is logged. Lossy re-encoding and
// process-level truncation are real failure modes worth surfacing.
const durationTolerance = 2.0

// FFmpegEncoder shells out to the ffmpeg/ffprobe binaries.
type FFmpegEncoder struct {
	ffmpegPath  string
	ffprobePath string
	log         *logger.Logger
}

// NewFFmpegEncoder creates the external-process backend.
func NewFFmpegEncoder(log *logger.Logger) *FFmpegEncoder {
	return &FFmpegEncoder{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		log:         log,
	}
}

// Name identifies the backend.
func (e *FFmpegEncoder) Name() string { return "ffmpeg" }

// Ext returns the encoded file extension.
func (e *FFmpegEncoder) Ext() string { return ".mp3" }

// Encode converts src to mono 16kHz 64kbps MP3 at dst and cross-checks
// that the encoded duration matches the source.
func (e *FFmpegEncoder) Encode(ctx context.Context, src, dst string) error {
	args := []string{
		"-y", "-i", src,
		"-ac", "1", "-ar", strconv.Itoa(TargetSampleRate),
		"-b:a", "64k",
		dst,
	}
	if err := e.run(ctx, args); err != nil {
		return err
	}

	e.checkDuration(ctx, src, dst)
	return nil
}

// EncodeSegment converts one fixed-duration slice of src. The final
// segment's duration is clamped by ffmpeg to the remainder, not padded.
func (e *FFmpegEncoder) EncodeSegment(ctx context.Context, src, dst string, offsetSec, durationSec float64) error {
	args := []string{
		"-y",
		"-ss", formatSeconds(offsetSec),
		"-t", formatSeconds(durationSec),
		"-i", src,
		"-ac", "1", "-ar", strconv.Itoa(TargetSampleRate),
		"-b:a", "64k",
		dst,
	}
	return e.run(ctx, args)
}

// Duration probes the audio duration of path via ffprobe.
func (e *FFmpegEncoder) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, &apperrors.EncodingBackendError{
			Backend: e.Name(),
			Message: fmt.Sprintf("ffprobe failed for %s", path),
			Err:     err,
		}
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, &apperrors.EncodingBackendError{
			Backend: e.Name(),
			Message: fmt.Sprintf("unparseable ffprobe output %q", strings.TrimSpace(string(out))),
			Err:     err,
		}
	}
	return dur, nil
}

// run executes ffmpeg with the given arguments, capturing stderr for
// error reporting.
func (e *FFmpegEncoder) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[len(msg)-500:]
		}
		return &apperrors.EncodingBackendError{
			Backend: e.Name(),
			Message: msg,
			Err:     err,
		}
	}
	return nil
}

// checkDuration compares source and encoded durations and logs a
// warning on drift beyond the tolerance. Not fatal.
func (e *FFmpegEncoder) checkDuration(ctx context.Context, src, dst string) {
	srcDur, err := e.Duration(ctx, src)
	if err != nil {
		e.log.Warn("duration check skipped: %v", err)
		return
	}
	dstDur, err := e.Duration(ctx, dst)
	if err != nil {
		e.log.Warn("duration check skipped: %v", err)
		return
	}

	if math.Abs(srcDur-dstDur) > durationTolerance {
		e.log.Warn("encoded duration drift: source %.1fs vs encoded %.1fs", srcDur, dstDur)
	}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
