// Package recorder implements the capture engine: it turns a selected
// input device into a persisted WAV file with pause/resume and
// frame-accurate duration reporting.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sbeier/audiosessions/internal/apperrors"
	"github.com/sbeier/audiosessions/internal/audio"
	"github.com/sbeier/audiosessions/internal/logger"
)

// State represents the current recording state
type State int

const (
	// Idle means no session is active
	Idle State = iota
	// Recording means the input stream is delivering blocks
	Recording
	// Paused means the session is suspended with frames held
	Paused
	// Stopping means the stream is draining before close
	Stopping
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Recording:
		return "Recording"
	case Paused:
		return "Paused"
	case Stopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// drainDelay is the grace period between flagging a stop and closing
// the stream, letting in-flight callbacks land.
const drainDelay = 50 * time.Millisecond

// OpenStreamFunc opens a capture stream. Swappable in tests.
type OpenStreamFunc func(deviceIndex, channels, sampleRate int, latency audio.LatencyMode, cb func([]float32)) (audio.InputStream, int, error)

// Config holds capture configuration
type Config struct {
	SampleRate int
	Channels   int
	Latency    audio.LatencyMode
}

// DefaultConfig returns the default capture configuration
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		Channels:   1,
		Latency:    audio.HighStability,
	}
}

// Recorder manages one recording session at a time. sampleRate and
// channels hold the running session's effective values; they are
// re-derived from config on every Start so an override or a device
// downgrade never leaks into the next session.
type Recorder struct {
	mu         sync.Mutex
	state      State
	config     Config
	sampleRate int
	channels   int
	latency    audio.LatencyMode

	frames       [][]float32
	frameCount   int64
	pausedFrames [][]float32

	deviceIndex int
	outputPath  string
	stream      audio.InputStream

	openStream OpenStreamFunc
	log        *logger.Logger

	// OnLevel receives the RMS level of each delivered block.
	OnLevel func(float64)
	// OnDuration receives the elapsed duration in seconds after each
	// delivered block. Derived from the frame counter, never from
	// wall-clock time.
	OnDuration func(float64)
}

// New creates a recorder using the real PortAudio stream opener.
func New(cfg Config, log *logger.Logger) *Recorder {
	return &Recorder{
		state:      Idle,
		config:     cfg,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		latency:    cfg.Latency,
		openStream: audio.OpenInputStream,
		log:        log,
	}
}

// SetStreamOpener replaces the stream opener. Tests use this to feed
// synthetic blocks without audio hardware.
func (r *Recorder) SetStreamOpener(open OpenStreamFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openStream = open
}

// Start begins a new recording session and returns the destination
// file path. deviceIndex -1 selects the system default input device.
// sampleRateOverride 0 keeps the configured rate.
func (r *Recorder) Start(deviceIndex int, outputDir string, sampleRateOverride int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Idle {
		return "", fmt.Errorf("%w (current state: %s)", apperrors.ErrAlreadyRecording, r.state)
	}

	// Session values start from the configured ones every time.
	r.sampleRate = r.config.SampleRate
	r.channels = r.config.Channels
	if sampleRateOverride > 0 {
		r.sampleRate = sampleRateOverride
	}

	absDir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	// Two sessions started within the same wall-clock second collide.
	// Known limitation, not guarded.
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	outputPath := filepath.Join(absDir, fmt.Sprintf("session_%s.wav", timestamp))

	r.frames = nil
	r.frameCount = 0
	r.pausedFrames = nil

	stream, actualChannels, err := r.openStream(deviceIndex, r.channels, r.sampleRate, r.latency, r.handleBlock)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrDeviceUnavailable, err)
	}
	if actualChannels != r.channels {
		r.log.Warn("device supports only %d channels, downgrading from %d", actualChannels, r.channels)
		r.channels = actualChannels
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return "", fmt.Errorf("%w: %v", apperrors.ErrDeviceUnavailable, err)
	}

	r.stream = stream
	r.deviceIndex = deviceIndex
	r.outputPath = outputPath
	r.state = Recording

	r.log.Info("recording started: device=%d rate=%d channels=%d path=%s",
		deviceIndex, r.sampleRate, r.channels, outputPath)

	return outputPath, nil
}

// handleBlock runs on the PortAudio callback thread. It only copies the
// block, bumps the frame counter and emits lightweight notifications;
// a bad block must never tear down the session.
func (r *Recorder) handleBlock(in []float32) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("audio callback error, block skipped: %v", rec)
		}
	}()

	r.mu.Lock()
	if r.state != Recording {
		r.mu.Unlock()
		return
	}

	block := make([]float32, len(in))
	copy(block, in)
	r.frames = append(r.frames, block)
	r.frameCount += int64(len(in) / r.channels)

	onLevel := r.OnLevel
	onDuration := r.OnDuration
	duration := float64(r.frameCount) / float64(r.sampleRate)
	r.mu.Unlock()

	if onLevel != nil {
		onLevel(audio.RMS(in))
	}
	if onDuration != nil {
		onDuration(duration)
	}
}

// Pause suspends the current session. Returns false unless recording.
func (r *Recorder) Pause() bool {
	r.mu.Lock()
	if r.state != Recording {
		r.mu.Unlock()
		return false
	}
	r.state = Stopping
	stream := r.stream
	r.mu.Unlock()

	time.Sleep(drainDelay)
	if err := stream.Stop(); err != nil {
		r.log.Warn("failed to stop stream on pause: %v", err)
	}
	if err := stream.Close(); err != nil {
		r.log.Warn("failed to close stream on pause: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pausedFrames = r.frames
	r.frames = nil
	r.stream = nil
	r.state = Paused

	r.log.Info("recording paused at %.1fs", float64(r.frameCount)/float64(r.sampleRate))
	return true
}

// Resume reopens the input stream on the remembered device and
// continues the session. Returns false unless paused.
func (r *Recorder) Resume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Paused {
		return false
	}

	r.frames = r.pausedFrames
	r.pausedFrames = nil

	// Recompute the counter from the restored frames so duration
	// continues seamlessly.
	var total int64
	for _, f := range r.frames {
		total += int64(len(f) / r.channels)
	}
	r.frameCount = total

	stream, _, err := r.openStream(r.deviceIndex, r.channels, r.sampleRate, r.latency, r.handleBlock)
	if err != nil {
		r.log.Error("failed to reopen stream on resume: %v", err)
		r.pausedFrames = r.frames
		r.frames = nil
		return false
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		r.log.Error("failed to start stream on resume: %v", err)
		r.pausedFrames = r.frames
		r.frames = nil
		return false
	}

	r.stream = stream
	r.state = Recording

	r.log.Info("recording resumed at %.1fs", float64(r.frameCount)/float64(r.sampleRate))
	return true
}

// Stop finishes the session, writes the WAV file and resets to idle.
// Returns the written path, or "" when there was nothing to save.
// Transient state is reset regardless of the write outcome.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	if r.state != Recording && r.state != Paused {
		r.mu.Unlock()
		return "", nil
	}

	wasRecording := r.state == Recording
	stream := r.stream
	if wasRecording {
		r.state = Stopping
	}
	r.mu.Unlock()

	if wasRecording && stream != nil {
		time.Sleep(drainDelay)
		if err := stream.Stop(); err != nil {
			r.log.Warn("failed to stop stream: %v", err)
		}
		if err := stream.Close(); err != nil {
			r.log.Warn("failed to close stream: %v", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	frames := r.frames
	if len(frames) == 0 {
		frames = r.pausedFrames
	}
	outputPath := r.outputPath
	sampleRate := r.sampleRate
	channels := r.channels

	defer r.resetLocked()

	if len(frames) == 0 || outputPath == "" {
		return "", nil
	}

	var total int
	for _, f := range frames {
		total += len(f)
	}
	samples := make([]float32, 0, total)
	for _, f := range frames {
		samples = append(samples, f...)
	}

	clip := &audio.Clip{Samples: samples, SampleRate: sampleRate, Channels: channels}
	if err := audio.WriteWAV(outputPath, clip); err != nil {
		return "", fmt.Errorf("failed to save recording: %w", err)
	}

	r.log.Info("recording saved: %s (%.1fs)", outputPath, clip.Duration())
	return outputPath, nil
}

// resetLocked clears the buffered audio and returns to idle. The frame
// counter and the session's effective rate/channels survive until the
// next Start so the finished session can still be described for
// indexing. Caller holds the lock.
func (r *Recorder) resetLocked() {
	r.frames = nil
	r.pausedFrames = nil
	r.outputPath = ""
	r.stream = nil
	r.deviceIndex = 0
	r.state = Idle
}

// ElapsedSeconds returns the recorded duration in whole seconds,
// derived from the accumulated frame count regardless of state.
func (r *Recorder) ElapsedSeconds() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sampleRate <= 0 {
		return 0
	}
	return int(r.frameCount / int64(r.sampleRate))
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SampleRate returns the session sample rate.
func (r *Recorder) SampleRate() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sampleRate
}

// Channels returns the session channel count.
func (r *Recorder) Channels() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels
}
