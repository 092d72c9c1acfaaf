package encoder

import (
	"context"
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/sbeier/audiosessions/internal/apperrors"
	"github.com/sbeier/audiosessions/internal/audio"
	"github.com/sbeier/audiosessions/internal/logger"
)

// ResampleEncoder is the library-based backend: it downmixes to mono
// and resamples to 16kHz in pure Go, writing 16-bit PCM WAV. Used on
// hosts without ffmpeg.
type ResampleEncoder struct {
	log *logger.Logger
}

// NewResampleEncoder creates the library-based backend.
func NewResampleEncoder(log *logger.Logger) *ResampleEncoder {
	return &ResampleEncoder{log: log}
}

// Name identifies the backend.
func (e *ResampleEncoder) Name() string { return "resample" }

// Ext returns the encoded file extension.
func (e *ResampleEncoder) Ext() string { return ".wav" }

// Encode converts src fully to mono 16kHz 16-bit WAV at dst.
func (e *ResampleEncoder) Encode(ctx context.Context, src, dst string) error {
	return e.encodeRange(ctx, src, dst, 0, -1)
}

// EncodeSegment converts one slice of src. durationSec past the end of
// the file is clamped to the remainder.
func (e *ResampleEncoder) EncodeSegment(ctx context.Context, src, dst string, offsetSec, durationSec float64) error {
	return e.encodeRange(ctx, src, dst, offsetSec, durationSec)
}

// Duration decodes the file header and reports its length in seconds.
func (e *ResampleEncoder) Duration(_ context.Context, path string) (float64, error) {
	clip, err := audio.ReadWAV(path)
	if err != nil {
		return 0, &apperrors.EncodingBackendError{
			Backend: e.Name(),
			Message: fmt.Sprintf("failed to read %s", path),
			Err:     err,
		}
	}
	return clip.Duration(), nil
}

func (e *ResampleEncoder) encodeRange(ctx context.Context, src, dst string, offsetSec, durationSec float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	clip, err := audio.ReadWAV(src)
	if err != nil {
		return &apperrors.EncodingBackendError{
			Backend: e.Name(),
			Message: fmt.Sprintf("failed to read %s", src),
			Err:     err,
		}
	}

	mono := downmix(clip)

	// Slice the requested range, clamped to the clip.
	start := int(offsetSec * float64(clip.SampleRate))
	if start < 0 {
		start = 0
	}
	if start > len(mono) {
		start = len(mono)
	}
	end := len(mono)
	if durationSec >= 0 {
		end = start + int(durationSec*float64(clip.SampleRate))
		if end > len(mono) {
			end = len(mono)
		}
	}
	mono = mono[start:end]

	out, err := e.resample(mono, clip.SampleRate)
	if err != nil {
		return err
	}

	return e.writePCM16(dst, out)
}

// resample converts mono samples from srcRate to the target rate.
func (e *ResampleEncoder) resample(mono []float64, srcRate int) ([]float64, error) {
	if srcRate == TargetSampleRate {
		return mono, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(TargetSampleRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, &apperrors.EncodingBackendError{
			Backend: e.Name(),
			Message: "failed to create resampler",
			Err:     err,
		}
	}

	out, err := rs.Process(mono)
	if err != nil {
		return nil, &apperrors.EncodingBackendError{
			Backend: e.Name(),
			Message: "resampling failed",
			Err:     err,
		}
	}
	return out, nil
}

// writePCM16 writes mono float samples as 16-bit PCM WAV.
func (e *ResampleEncoder) writePCM16(dst string, samples []float64) error {
	f, err := os.Create(dst)
	if err != nil {
		return &apperrors.EncodingBackendError{
			Backend: e.Name(),
			Message: fmt.Sprintf("failed to create %s", dst),
			Err:     err,
		}
	}
	defer f.Close()

	ints := make([]int, len(samples))
	for i, s := range samples {
		v := s
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		ints[i] = int(v * 32767.0)
	}

	enc := wav.NewEncoder(f, TargetSampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Data:           ints,
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: TargetSampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return &apperrors.EncodingBackendError{
			Backend: e.Name(),
			Message: "failed to write pcm data",
			Err:     err,
		}
	}
	if err := enc.Close(); err != nil {
		return &apperrors.EncodingBackendError{
			Backend: e.Name(),
			Message: "failed to finalize wav file",
			Err:     err,
		}
	}
	return nil
}

// downmix averages interleaved channels into mono float64 samples.
func downmix(clip *audio.Clip) []float64 {
	frames := clip.Frames()
	out := make([]float64, frames)
	ch := clip.Channels
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(clip.Samples[i*ch+c])
		}
		out[i] = sum / float64(ch)
	}
	return out
}
