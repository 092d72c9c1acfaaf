// Package audio wraps PortAudio device access and WAV file handling for
// the capture and playback engines.
package audio

import (
	"fmt"
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Device represents an audio input device
type Device struct {
	Index       int
	Name        string
	MaxChannels int
	IsDefault   bool
}

// LatencyMode defines the latency priority for input streams
type LatencyMode int

const (
	// LowLatency prioritizes responsiveness (small buffers)
	LowLatency LatencyMode = iota
	// HighStability prioritizes drop-out resistance (larger buffers).
	// USB class-compliant interfaces deliver in bursts; high latency
	// keeps them from overrunning.
	HighStability
)

// FramesPerBuffer is the block size used for both capture and playback
// streams.
const FramesPerBuffer = 1024

var (
	initMu    sync.Mutex
	initCount int
)

// Initialize acquires the PortAudio runtime. Calls nest; each must be
// paired with Terminate.
func Initialize() error {
	initMu.Lock()
	defer initMu.Unlock()

	if initCount == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize PortAudio: %w", err)
		}
	}
	initCount++
	return nil
}

// Terminate releases the PortAudio runtime acquired by Initialize.
func Terminate() error {
	initMu.Lock()
	defer initMu.Unlock()

	if initCount == 0 {
		return nil
	}
	initCount--
	if initCount == 0 {
		if err := portaudio.Terminate(); err != nil {
			return fmt.Errorf("failed to terminate PortAudio: %w", err)
		}
	}
	return nil
}

// ListInputDevices returns all devices with at least one input channel.
func ListInputDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultInput, err := portaudio.DefaultInputDevice()
	if err != nil {
		// No default device is not fatal; just don't mark one.
		defaultInput = nil
	}

	var result []Device
	for i, dev := range devices {
		if dev.MaxInputChannels <= 0 {
			continue
		}
		result = append(result, Device{
			Index:       i,
			Name:        dev.Name,
			MaxChannels: dev.MaxInputChannels,
			IsDefault:   defaultInput != nil && dev.Name == defaultInput.Name,
		})
	}

	return result, nil
}

// inputDeviceInfo resolves a device index (-1 = system default) to its
// PortAudio descriptor.
func inputDeviceInfo(index int) (*portaudio.DeviceInfo, error) {
	if index == -1 {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("invalid device index: %d", index)
	}
	return devices[index], nil
}

// InputStream is the capture-side stream handle. Implemented by
// PortAudio in production and by fakes in tests.
type InputStream interface {
	Start() error
	Stop() error
	Close() error
}

// OutputStream is the playback-side stream handle.
type OutputStream interface {
	Start() error
	Write() error
	Abort() error
	Close() error
}

type paInputStream struct {
	stream *portaudio.Stream
}

func (s *paInputStream) Start() error { return s.stream.Start() }
func (s *paInputStream) Stop() error  { return s.stream.Stop() }
func (s *paInputStream) Close() error { return s.stream.Close() }

// OpenInputStream opens a callback-driven capture stream on the given
// device. The callback receives interleaved float32 blocks and runs on
// a PortAudio-owned thread; it must not block.
func OpenInputStream(deviceIndex, channels, sampleRate int, latency LatencyMode, cb func([]float32)) (InputStream, int, error) {
	device, err := inputDeviceInfo(deviceIndex)
	if err != nil {
		return nil, 0, err
	}

	if device.MaxInputChannels <= 0 {
		return nil, 0, fmt.Errorf("device %q has no input channels", device.Name)
	}

	// Downgrade silently if the device can't deliver the requested
	// channel count; the caller logs this.
	actualChannels := channels
	if actualChannels > device.MaxInputChannels {
		actualChannels = device.MaxInputChannels
	}

	lat := device.DefaultHighInputLatency
	if latency == LowLatency {
		lat = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: actualChannels,
			Latency:  lat,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		cb(in)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open input stream: %w", err)
	}

	return &paInputStream{stream: stream}, actualChannels, nil
}

type paOutputStream struct {
	stream *portaudio.Stream
}

func (s *paOutputStream) Start() error { return s.stream.Start() }
func (s *paOutputStream) Write() error { return s.stream.Write() }
func (s *paOutputStream) Abort() error { return s.stream.Abort() }
func (s *paOutputStream) Close() error { return s.stream.Close() }

// OpenOutputStream opens a blocking-write playback stream on the system
// default output device. The device is auto-selected rather than pinned
// for cross-platform compatibility. buf is the fixed frame buffer the
// caller fills before each Write.
func OpenOutputStream(channels, sampleRate int, buf *[]float32) (OutputStream, error) {
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), FramesPerBuffer, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open output stream: %w", err)
	}
	return &paOutputStream{stream: stream}, nil
}

// RMS computes the root-mean-square amplitude of an interleaved sample
// block, used for the live level meter.
func RMS(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(block)))
}
