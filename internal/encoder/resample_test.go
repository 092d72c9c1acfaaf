package encoder

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/sbeier/audiosessions/internal/audio"
	"github.com/sbeier/audiosessions/internal/logger"
)

// writeSourceWAV writes a stereo 32kHz test tone of the given length.
func writeSourceWAV(t *testing.T, seconds float64) string {
	t.Helper()
	rate := 32000
	frames := int(seconds * float64(rate))
	samples := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		v := float32(math.Sin(2 * math.Pi * 440 * float64(i) / float64(rate)))
		samples[i*2] = v
		samples[i*2+1] = v
	}
	path := filepath.Join(t.TempDir(), "source.wav")
	clip := &audio.Clip{Samples: samples, SampleRate: rate, Channels: 2}
	if err := audio.WriteWAV(path, clip); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}
	return path
}

func TestResampleEncode(t *testing.T) {
	enc := NewResampleEncoder(logger.Nop())
	src := writeSourceWAV(t, 2)
	dst := filepath.Join(t.TempDir(), "out.wav")

	if err := enc.Encode(context.Background(), src, dst); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	clip, err := audio.ReadWAV(dst)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if clip.SampleRate != TargetSampleRate {
		t.Errorf("Expected sample rate %d, got %d", TargetSampleRate, clip.SampleRate)
	}
	if clip.Channels != 1 {
		t.Errorf("Expected mono output, got %d channels", clip.Channels)
	}
	if math.Abs(clip.Duration()-2.0) > 0.1 {
		t.Errorf("Expected ~2s output, got %.2fs", clip.Duration())
	}
}

func TestResampleEncodeSegment(t *testing.T) {
	enc := NewResampleEncoder(logger.Nop())
	src := writeSourceWAV(t, 3)
	dst := filepath.Join(t.TempDir(), "segment.wav")

	if err := enc.EncodeSegment(context.Background(), src, dst, 1, 1); err != nil {
		t.Fatalf("EncodeSegment failed: %v", err)
	}

	clip, err := audio.ReadWAV(dst)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if math.Abs(clip.Duration()-1.0) > 0.1 {
		t.Errorf("Expected ~1s segment, got %.2fs", clip.Duration())
	}
}

func TestResampleSegmentClampedToEnd(t *testing.T) {
	enc := NewResampleEncoder(logger.Nop())
	src := writeSourceWAV(t, 2)
	dst := filepath.Join(t.TempDir(), "tail.wav")

	// Ask for more than remains; output is clamped, not padded.
	if err := enc.EncodeSegment(context.Background(), src, dst, 1.5, 10); err != nil {
		t.Fatalf("EncodeSegment failed: %v", err)
	}

	clip, err := audio.ReadWAV(dst)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if math.Abs(clip.Duration()-0.5) > 0.1 {
		t.Errorf("Expected ~0.5s tail, got %.2fs", clip.Duration())
	}
}

func TestResampleDuration(t *testing.T) {
	enc := NewResampleEncoder(logger.Nop())
	src := writeSourceWAV(t, 2)

	dur, err := enc.Duration(context.Background(), src)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if math.Abs(dur-2.0) > 0.01 {
		t.Errorf("Expected duration 2.0, got %v", dur)
	}
}

func TestResampleMissingSource(t *testing.T) {
	enc := NewResampleEncoder(logger.Nop())
	dst := filepath.Join(t.TempDir(), "out.wav")

	if err := enc.Encode(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), dst); err == nil {
		t.Error("Expected error for missing source")
	}
}

func TestResampleCancelledContext(t *testing.T) {
	enc := NewResampleEncoder(logger.Nop())
	src := writeSourceWAV(t, 1)
	dst := filepath.Join(t.TempDir(), "out.wav")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := enc.Encode(ctx, src, dst); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
