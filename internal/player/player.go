// Package player implements the playback engine: decode once into
// memory, then drive timed output with play/pause/stop/seek transport.
package player

import (
	"os"
	"sync"
	"time"

	"github.com/sbeier/audiosessions/internal/audio"
	"github.com/sbeier/audiosessions/internal/logger"
)

// State represents the playback state
type State int

const (
	// Stopped means no playback is active; the cursor is at zero
	Stopped State = iota
	// Playing means the write loop is feeding the output stream
	Playing
	// Paused means the write loop idles with the cursor held
	Paused
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

const (
	chunkFrames      = audio.FramesPerBuffer
	positionInterval = 100 * time.Millisecond
	// settleDelay lets in-flight writes finish before the stream is
	// aborted on stop.
	settleDelay = 50 * time.Millisecond
)

// OpenStreamFunc opens a playback stream. Swappable in tests.
type OpenStreamFunc func(channels, sampleRate int, buf *[]float32) (audio.OutputStream, error)

// Player plays one loaded clip at a time. Transport methods only flip
// flags and state; the background write loop observes them. They are
// safe to call from the owning (UI) context and never block on audio I/O.
type Player struct {
	mu          sync.Mutex
	state       State
	clip        *audio.Clip
	currentFile string
	frame       int // cursor, in frames

	loopGen    int // invalidates stale write loops
	openStream OpenStreamFunc
	log        *logger.Logger

	// Notification callbacks. All optional; delivered from background
	// goroutines, the caller marshals to its own context if needed.
	OnStarted  func()
	OnPaused   func()
	OnStopped  func()
	OnFinished func()
	OnPosition func(seconds float64)
	OnDuration func(seconds float64)
}

// New creates a player using the real PortAudio stream opener.
func New(log *logger.Logger) *Player {
	return &Player{
		state:      Stopped,
		openStream: audio.OpenOutputStream,
		log:        log,
	}
}

// SetStreamOpener replaces the stream opener. Tests use this to play
// against a fake output stream.
func (p *Player) SetStreamOpener(open OpenStreamFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openStream = open
}

// Load decodes the file fully into memory. Returns false if the file
// is missing or unreadable; it does not panic or return an error type
// because a missing file is an expected condition for the caller.
func (p *Player) Load(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}

	clip, err := audio.ReadWAV(path)
	if err != nil {
		p.log.Error("failed to load audio file %s: %v", path, err)
		return false
	}

	p.mu.Lock()
	p.clip = clip
	p.currentFile = path
	p.frame = 0
	p.state = Stopped
	onDuration := p.OnDuration
	onPosition := p.OnPosition
	duration := clip.Duration()
	p.mu.Unlock()

	if onDuration != nil {
		onDuration(duration)
	}
	if onPosition != nil {
		onPosition(0)
	}

	return true
}

// Play starts playback, or resumes it when paused. Resuming clears the
// paused flag in place: the existing write loop and stream keep running,
// no re-decode and no new stream open.
func (p *Player) Play() {
	p.mu.Lock()

	if p.clip == nil {
		p.mu.Unlock()
		return
	}

	switch p.state {
	case Playing:
		p.mu.Unlock()
		return
	case Paused:
		p.state = Playing
		onStarted := p.OnStarted
		gen := p.loopGen
		p.mu.Unlock()
		if onStarted != nil {
			onStarted()
		}
		go p.positionLoop(gen)
		return
	}

	p.state = Playing
	p.loopGen++
	gen := p.loopGen
	onStarted := p.OnStarted
	p.mu.Unlock()

	if onStarted != nil {
		onStarted()
	}

	go p.writeLoop(gen)
	go p.positionLoop(gen)
}

// Pause halts playback without tearing down the stream. Only effective
// while playing.
func (p *Player) Pause() {
	p.mu.Lock()
	if p.state != Playing {
		p.mu.Unlock()
		return
	}
	p.state = Paused
	onPaused := p.OnPaused
	p.mu.Unlock()

	if onPaused != nil {
		onPaused()
	}
}

// Stop terminates playback and resets the cursor to zero. Safe to call
// in any state.
func (p *Player) Stop() {
	p.mu.Lock()
	p.state = Stopped
	p.loopGen++ // write loop observes the generation change and exits
	p.frame = 0
	onStopped := p.OnStopped
	onPosition := p.OnPosition
	p.mu.Unlock()

	if onStopped != nil {
		onStopped()
	}
	if onPosition != nil {
		onPosition(0)
	}
}

// Seek jumps to a position in seconds, clamped to [0, duration]. If
// playing, playback stops and restarts from the new offset — a brief
// audible gap is accepted over true live-seeking.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	clip := p.clip
	wasPlaying := p.state == Playing
	p.mu.Unlock()

	if clip == nil {
		return
	}

	if wasPlaying {
		p.Stop()
		time.Sleep(settleDelay)
	}

	target := int(seconds * float64(clip.SampleRate))
	if target < 0 {
		target = 0
	}
	if target > clip.Frames() {
		target = clip.Frames()
	}

	p.mu.Lock()
	p.frame = target
	onPosition := p.OnPosition
	position := float64(target) / float64(clip.SampleRate)
	p.mu.Unlock()

	if onPosition != nil {
		onPosition(position)
	}

	if wasPlaying {
		p.Play()
	}
}

// Position returns the current playback position in seconds.
func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.clip == nil || p.clip.SampleRate <= 0 {
		return 0
	}
	return float64(p.frame) / float64(p.clip.SampleRate)
}

// Duration returns the total duration of the loaded clip in seconds.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clip.Duration()
}

// State returns the current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// CurrentFile returns the path of the loaded file, if any.
func (p *Player) CurrentFile() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentFile
}

// writeLoop feeds fixed-size chunks to the output stream on a dedicated
// goroutine until the clip is exhausted or the generation changes.
func (p *Player) writeLoop(gen int) {
	p.mu.Lock()
	clip := p.clip
	p.mu.Unlock()

	buf := make([]float32, chunkFrames*clip.Channels)
	stream, err := p.openStream(clip.Channels, clip.SampleRate, &buf)
	if err != nil {
		p.log.Error("failed to open output stream: %v", err)
		p.Stop()
		return
	}

	// Closing an already-broken stream is not a failure condition;
	// abort errors are swallowed.
	defer func() {
		stream.Abort()
		stream.Close()
	}()

	if err := stream.Start(); err != nil {
		p.log.Error("failed to start output stream: %v", err)
		p.Stop()
		return
	}

	for {
		p.mu.Lock()
		if p.loopGen != gen || p.state == Stopped {
			p.mu.Unlock()
			return
		}
		if p.state == Paused {
			p.mu.Unlock()
			time.Sleep(positionInterval)
			continue
		}

		start := p.frame * clip.Channels
		if start >= len(clip.Samples) {
			p.state = Stopped
			p.frame = 0
			onFinished := p.OnFinished
			p.mu.Unlock()
			if onFinished != nil {
				onFinished()
			}
			return
		}

		end := start + len(buf)
		if end > len(clip.Samples) {
			end = len(clip.Samples)
		}
		n := copy(buf, clip.Samples[start:end])
		// Zero-pad the final partial chunk; the stream writes whole
		// buffers.
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		p.frame += (end - start) / clip.Channels
		p.mu.Unlock()

		if err := stream.Write(); err != nil {
			// A single bad write must not kill the session.
			p.log.Warn("output write error, chunk skipped: %v", err)
		}

		// Small yield bounds CPU usage and smooths timing.
		time.Sleep(time.Millisecond)
	}
}

// positionLoop emits position notifications on a fixed cadence while
// playing; it exits on pause, stop or generation change.
func (p *Player) positionLoop(gen int) {
	ticker := time.NewTicker(positionInterval)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.loopGen != gen || p.state != Playing {
			p.mu.Unlock()
			return
		}
		onPosition := p.OnPosition
		position := float64(p.frame) / float64(p.clip.SampleRate)
		p.mu.Unlock()

		if onPosition != nil {
			onPosition(position)
		}
	}
}
