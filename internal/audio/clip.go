package audio

// Clip is decoded in-memory audio: interleaved 32-bit float samples
// plus format. It is owned by exactly one engine at a time.
type Clip struct {
	Samples    []float32 // interleaved
	SampleRate int
	Channels   int
}

// Frames returns the number of multi-channel sample instants.
func (c *Clip) Frames() int {
	if c == nil || c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}
