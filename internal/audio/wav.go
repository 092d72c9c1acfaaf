package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// wavFormatIEEEFloat is the WAVE format tag for 32-bit float samples.
const wavFormatIEEEFloat = 3

// WriteWAV writes a clip to path as an uncompressed WAV file with
// 32-bit float samples.
func WriteWAV(path string, clip *Clip) error {
	if clip == nil || len(clip.Samples) == 0 {
		return fmt.Errorf("nothing to write")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, clip.SampleRate, 32, clip.Channels, wavFormatIEEEFloat)
	for _, s := range clip.Samples {
		if err := enc.WriteFrame(s); err != nil {
			enc.Close()
			return fmt.Errorf("failed to write sample: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav file: %w", err)
	}

	return nil
}

// ReadWAV decodes a WAV file fully into memory. Both this module's
// 32-bit float recordings and plain integer PCM files are supported.
func ReadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}

	if dec.WavAudioFormat == wavFormatIEEEFloat && dec.BitDepth == 32 {
		return readFloatPCM(dec)
	}
	return readIntPCM(dec)
}

// readFloatPCM reads the data chunk of a 32-bit float WAV directly.
func readFloatPCM(dec *wav.Decoder) (*Clip, error) {
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to locate pcm chunk: %w", err)
	}

	raw := make([]byte, dec.PCMLen())
	if _, err := io.ReadFull(dec.PCMChunk, raw); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read pcm data: %w", err)
	}

	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	return &Clip{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}

// readIntPCM decodes integer PCM and normalizes to float32 in [-1, 1].
func readIntPCM(dec *wav.Decoder) (*Clip, error) {
	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode pcm data: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("empty wav file")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	max := float32(int(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / max
	}

	channels := int(dec.NumChans)
	if channels <= 0 && buf.Format != nil {
		channels = buf.Format.NumChannels
	}
	if channels <= 0 {
		channels = 1
	}

	sampleRate := int(dec.SampleRate)
	if sampleRate <= 0 && buf.Format != nil {
		sampleRate = buf.Format.SampleRate
	}

	return &Clip{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}
