package audio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"zutopia/internal/config"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// ErrUnknownCue is returned for cue names the bank does not hold
var ErrUnknownCue = errors.New("unknown sound cue")

// Bank holds every cue pre-rendered at the configured sample rate.
// Rendering happens once in NewBank; lookups are read-only afterwards.
type Bank struct {
	format  beep.Format
	enabled bool
	buffers [cueCount]*beep.Buffer
	wavs    [cueCount][]byte
	pcm     [cueCount][]byte
}

// NewBank synthesizes all cues as 16-bit stereo
func NewBank(cfg config.AudioConfig) (*Bank, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", config.ErrInvalidConfig, cfg.SampleRate)
	}
	if cfg.Volume < 0 || cfg.Volume > 1 {
		return nil, fmt.Errorf("%w: volume must be within [0, 1], got %v", config.ErrInvalidConfig, cfg.Volume)
	}

	b := &Bank{
		format: beep.Format{
			SampleRate:  beep.SampleRate(cfg.SampleRate),
			NumChannels: 2,
			Precision:   2,
		},
		enabled: cfg.Enabled,
	}

	for _, c := range AllCues() {
		buf := beep.NewBuffer(b.format)
		buf.Append(newVolume(synthesize(c, b.format.SampleRate), cfg.Volume))
		b.buffers[c] = buf

		b.pcm[c] = encodePCM(buf, b.format)

		w := &memWriteSeeker{}
		if err := wav.Encode(w, buf.Streamer(0, buf.Len()), b.format); err != nil {
			return nil, fmt.Errorf("encode %s cue: %w", c, err)
		}
		b.wavs[c] = w.buf
	}

	log.Printf("🔊 Sound bank ready: %d cues at %d Hz", cueCount, cfg.SampleRate)
	return b, nil
}

// encodePCM converts a buffer into interleaved little-endian signed samples
func encodePCM(buf *beep.Buffer, format beep.Format) []byte {
	out := make([]byte, buf.Len()*format.Width())
	s := buf.Streamer(0, buf.Len())

	samples := make([][2]float64, 512)
	pos := 0
	for {
		n, ok := s.Stream(samples)
		for i := 0; i < n; i++ {
			pos += format.EncodeSigned(out[pos:], samples[i])
		}
		if !ok || n == 0 {
			break
		}
	}
	return out[:pos]
}

// Enabled reports whether frontends should play cues
func (b *Bank) Enabled() bool { return b.enabled }

// Format returns the sample format of every cue
func (b *Bank) Format() beep.Format { return b.format }

// WAV returns the cue as a complete WAV file
func (b *Bank) WAV(c Cue) ([]byte, error) {
	if c >= cueCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCue, c)
	}
	return b.wavs[c], nil
}

// PCM returns the cue as raw 16-bit little-endian stereo samples
func (b *Bank) PCM(c Cue) ([]byte, error) {
	if c >= cueCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCue, c)
	}
	return b.pcm[c], nil
}

// Streamer returns a fresh seekable streamer over the cue
func (b *Bank) Streamer(c Cue) (beep.StreamSeeker, error) {
	if c >= cueCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCue, c)
	}
	buf := b.buffers[c]
	return buf.Streamer(0, buf.Len()), nil
}

// Duration returns the rendered length of the cue
func (b *Bank) Duration(c Cue) time.Duration {
	if c >= cueCount {
		return 0
	}
	return b.format.SampleRate.D(b.buffers[c].Len())
}

// memWriteSeeker is an in-memory io.WriteSeeker for the WAV encoder,
// which seeks back to patch header sizes.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("seek: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
