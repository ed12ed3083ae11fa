// Package audio synthesizes the simulation's sound cues with beep. Cues are
// short oscillator patterns mixed into a single speaker stream.
package audio

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"

	"age-of-war/server/internal/world"
)

const (
	DefaultSampleRate = beep.SampleRate(44100)
	// maxVoices bounds concurrently mixed cues; extra cues are dropped.
	maxVoices = 16
)

type Config struct {
	Volume     float64
	SampleRate beep.SampleRate
}

func DefaultConfig() Config {
	return Config{Volume: 0.5, SampleRate: DefaultSampleRate}
}

// Player implements world.AudioPort. Until Start succeeds cues are mixed
// into a silent mixer, which keeps Play cheap and non-blocking.
type Player struct {
	mu      sync.Mutex
	cfg     Config
	mixer   *beep.Mixer
	speaker bool
	played  map[world.Sound]uint64
}

func New(cfg Config) *Player {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Volume < 0 {
		cfg.Volume = 0
	}
	return &Player{cfg: cfg, mixer: &beep.Mixer{}, played: make(map[world.Sound]uint64)}
}

// Start opens the default output device. Without a device the player stays
// silent and Start reports the error.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.speaker {
		return nil
	}
	if err := speaker.Init(p.cfg.SampleRate, p.cfg.SampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(p.mixer)
	p.speaker = true
	return nil
}

// Play mixes the cue for s.
func (p *Player) Play(s world.Sound) {
	streamer := Cue(s, p.cfg.SampleRate, p.cfg.Volume)
	if streamer == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played[s]++
	if p.speaker {
		speaker.Lock()
		defer speaker.Unlock()
	}
	if p.mixer.Len() >= maxVoices {
		return
	}
	p.mixer.Add(streamer)
}

// Played reports how many times s was requested.
func (p *Player) Played(s world.Sound) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played[s]
}

// Close silences the mixer and releases the device.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.speaker {
		p.mixer.Clear()
		return
	}
	speaker.Clear()
	speaker.Close()
	p.speaker = false
}

type wave int

const (
	waveSine wave = iota
	waveSquare
	waveSaw
	waveNoise
)

type tone struct {
	freq     float64
	duration time.Duration
	wave     wave
	attack   time.Duration
	release  time.Duration
}

var cues = map[world.Sound][]tone{
	world.SoundSpawn:     {{freq: 440, duration: 60 * time.Millisecond, wave: waveSquare, attack: 5 * time.Millisecond, release: 30 * time.Millisecond}, {freq: 660, duration: 80 * time.Millisecond, wave: waveSquare, attack: 5 * time.Millisecond, release: 50 * time.Millisecond}},
	world.SoundShoot:     {{freq: 1200, duration: 40 * time.Millisecond, wave: waveSaw, attack: 2 * time.Millisecond, release: 30 * time.Millisecond}},
	world.SoundHit:       {{freq: 110, duration: 90 * time.Millisecond, wave: waveSaw, attack: 2 * time.Millisecond, release: 60 * time.Millisecond}},
	world.SoundExplosion: {{duration: 400 * time.Millisecond, wave: waveNoise, attack: 5 * time.Millisecond, release: 300 * time.Millisecond}},
	world.SoundLevelUp:   {{freq: 523.25, duration: 100 * time.Millisecond, wave: waveSine, attack: 5 * time.Millisecond, release: 40 * time.Millisecond}, {freq: 659.25, duration: 100 * time.Millisecond, wave: waveSine, attack: 5 * time.Millisecond, release: 40 * time.Millisecond}, {freq: 783.99, duration: 200 * time.Millisecond, wave: waveSine, attack: 5 * time.Millisecond, release: 120 * time.Millisecond}},
}

// Cue builds the streamer for s, or nil for unknown sounds.
func Cue(s world.Sound, rate beep.SampleRate, volume float64) beep.Streamer {
	tones, ok := cues[s]
	if !ok {
		return nil
	}
	parts := make([]beep.Streamer, 0, len(tones))
	for _, t := range tones {
		osc := &oscillator{freq: t.freq, wave: t.wave, total: rate.N(t.duration), rate: rate}
		parts = append(parts, &envelope{
			streamer: osc,
			total:    osc.total,
			attack:   rate.N(t.attack),
			release:  rate.N(t.release),
		})
	}
	return withVolume(beep.Seq(parts...), volume)
}

// CueLength is the total duration of the cue for s.
func CueLength(s world.Sound) time.Duration {
	var total time.Duration
	for _, t := range cues[s] {
		total += t.duration
	}
	return total
}

// math.Log2(0) is -Inf.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

type oscillator struct {
	freq  float64
	phase float64
	pos   int
	total int
	wave  wave
	rate  beep.SampleRate
}

func (o *oscillator) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		if o.pos >= o.total {
			return i, i > 0
		}
		var v float64
		switch o.wave {
		case waveSine:
			v = math.Sin(2 * math.Pi * o.phase)
		case waveSquare:
			v = 1
			if o.phase >= 0.5 {
				v = -1
			}
		case waveSaw:
			v = 2 * (o.phase - 0.5)
		case waveNoise:
			v = rand.Float64()*2 - 1
		}
		samples[i][0], samples[i][1] = v, v
		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.pos++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

type envelope struct {
	streamer beep.Streamer
	pos      int
	total    int
	attack   int
	release  int
}

func (e *envelope) Stream(samples [][2]float64) (int, bool) {
	n, ok := e.streamer.Stream(samples)
	releaseStart := e.total - e.release
	for i := 0; i < n; i++ {
		vol := 1.0
		if e.pos < e.attack && e.attack > 0 {
			vol = float64(e.pos) / float64(e.attack)
		} else if e.pos >= releaseStart && e.release > 0 {
			vol = math.Max(0, float64(e.total-e.pos)/float64(e.release))
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.pos++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }
