package browser

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer produces jittered pauses between UI actions so the remote page can finish
// rendering. A nil Pacer, or one with Max <= 0, does not pause at all.
type Pacer struct {
	Min time.Duration
	Max time.Duration

	mu     sync.Mutex
	random *rand.Rand
}

// NewPacer creates a Pacer drawing uniformly from [min, max].
func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		min, max = max, min
	}
	return &Pacer{
		Min:    min,
		Max:    max,
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next pause duration.
func (p *Pacer) Next() time.Duration {
	if p == nil || p.Max <= 0 {
		return 0
	}
	span := p.Max - p.Min
	if span <= 0 {
		return p.Max
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.random == nil {
		p.random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p.Min + time.Duration(p.random.Int63n(int64(span)+1))
}

// Wait pauses the session for the next jittered duration.
func (p *Pacer) Wait(ctx context.Context, s Session) error {
	d := p.Next()
	if d <= 0 {
		return nil
	}
	return s.Pause(ctx, d)
}
