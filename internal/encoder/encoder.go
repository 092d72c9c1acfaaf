// Package encoder converts recordings into the transcription-ready
// encoding (mono, 16kHz, speech-optimized bitrate). Two interchangeable
// backends exist: one shelling out to ffmpeg, one pure Go. They are
// selected at startup by capability probing.
package encoder

import (
	"context"
	"os/exec"

	"github.com/sbeier/audiosessions/internal/logger"
)

// TargetSampleRate is the sample rate the remote transcription model
// is tuned for.
const TargetSampleRate = 16000

// AudioEncoder is the strategy interface for the preprocessing backends.
// Both implementations must produce equivalent output given equivalent
// input.
type AudioEncoder interface {
	// Name identifies the backend in logs and error messages.
	Name() string
	// Ext returns the file extension of encoded output, dot included.
	Ext() string
	// Encode converts src fully into the transcription encoding at dst.
	Encode(ctx context.Context, src, dst string) error
	// EncodeSegment converts the [offsetSec, offsetSec+durationSec)
	// slice of src into dst.
	EncodeSegment(ctx context.Context, src, dst string, offsetSec, durationSec float64) error
	// Duration reports the audio duration of path in seconds.
	Duration(ctx context.Context, path string) (float64, error)
}

// Detect probes the host for an external encoder and returns the best
// available backend: ffmpeg when present, the built-in resampler
// otherwise.
func Detect(log *logger.Logger) AudioEncoder {
	if _, err := exec.LookPath("ffmpeg"); err == nil {
		if _, err := exec.LookPath("ffprobe"); err == nil {
			log.Info("encoder backend: ffmpeg")
			return NewFFmpegEncoder(log)
		}
	}
	log.Info("encoder backend: built-in resampler (ffmpeg not found)")
	return NewResampleEncoder(log)
}
