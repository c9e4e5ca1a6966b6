package audio

import (
	"sync"
	"time"

	"zutopia/internal/game"

	"github.com/gopxl/beep"
)

// Cue identifies a sound effect
type Cue uint8

const (
	CuePaddle Cue = iota
	CueTarget
	CueMiss
	CueWon
	CueLost
	cueCount
)

var cueNames = [cueCount]string{"paddle", "target", "miss", "won", "lost"}

// String returns the cue name used in URLs and events
func (c Cue) String() string {
	if c < cueCount {
		return cueNames[c]
	}
	return "unknown"
}

// ParseCue looks a cue up by name
func ParseCue(name string) (Cue, bool) {
	for i, n := range cueNames {
		if n == name {
			return Cue(i), true
		}
	}
	return 0, false
}

// AllCues lists every cue in declaration order
func AllCues() []Cue {
	cues := make([]Cue, cueCount)
	for i := range cues {
		cues[i] = Cue(i)
	}
	return cues
}

// Length returns how long c plays
func (c Cue) Length() time.Duration {
	switch c {
	case CuePaddle:
		return 60 * time.Millisecond
	case CueTarget:
		return 140 * time.Millisecond
	case CueMiss:
		return 250 * time.Millisecond
	case CueWon:
		return 4 * 110 * time.Millisecond
	case CueLost:
		return 3 * 180 * time.Millisecond
	default:
		return 0
	}
}

// synthesize builds the streamer for c at full scale, capped to its length
func synthesize(c Cue, rate beep.SampleRate) beep.Streamer {
	return beep.Take(rate.N(c.Length()), voice(c, rate))
}

func voice(c Cue, rate beep.SampleRate) beep.Streamer {
	switch c {
	case CuePaddle:
		return tone(220, 60*time.Millisecond, WaveSquare, rate)
	case CueTarget:
		d := 140 * time.Millisecond
		return beep.Mix(
			newVolume(tone(880, d, WaveSine, rate), 0.7),
			newVolume(tone(1760, d, WaveSine, rate), 0.3),
		)
	case CueMiss:
		return beep.Mix(
			newVolume(tone(110, 250*time.Millisecond, WaveSaw, rate), 0.8),
			newVolume(tone(0, 250*time.Millisecond, WaveNoise, rate), 0.2),
		)
	case CueWon:
		return melody([]float64{523.25, 659.25, 783.99, 1046.5}, 110*time.Millisecond, WaveSine, rate)
	case CueLost:
		return melody([]float64{392, 329.63, 261.63}, 180*time.Millisecond, WaveSaw, rate)
	default:
		return beep.Silence(0)
	}
}

// CuesFor maps the outcome of one tick to the cues it should trigger.
// Several targets destroyed in the same tick play a single cue.
func CuesFor(r game.TickReport) []Cue {
	var cues []Cue
	if r.PaddleHit {
		cues = append(cues, CuePaddle)
	}
	if len(r.Destroyed) > 0 {
		cues = append(cues, CueTarget)
	}
	if r.FloorMiss {
		cues = append(cues, CueMiss)
	}
	switch r.State {
	case game.StateWon:
		cues = append(cues, CueWon)
	case game.StateLost:
		cues = append(cues, CueLost)
	}
	return cues
}

// CueQueue collects cues from simulation ticks until a frontend drains them
type CueQueue struct {
	game.NopListener

	mu      sync.Mutex
	pending []Cue
}

// NewCueQueue creates an empty queue. Register it with Engine.AddListener.
func NewCueQueue() *CueQueue {
	return &CueQueue{}
}

// TickCompleted implements game.Listener
func (q *CueQueue) TickCompleted(r game.TickReport) {
	cues := CuesFor(r)
	if len(cues) == 0 {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, cues...)
	q.mu.Unlock()
}

// Drain returns and clears the pending cues
func (q *CueQueue) Drain() []Cue {
	q.mu.Lock()
	defer q.mu.Unlock()

	cues := q.pending
	q.pending = nil
	return cues
}
