package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// MockPlayer simulates playback without an audio device. Each Play blocks
// for the clip's duration scaled by the delay factor.
type MockPlayer struct {
	mu          sync.Mutex
	stopCh      chan struct{}
	closed      bool
	delayFactor float64
	failWith    error
	played      [][]byte
	rates       []int

	// OnPlay is called at the start of each Play.
	OnPlay func(pcm []byte, sampleRate int)

	playCount atomic.Int64
	stopCount atomic.Int64
}

// NewMockPlayer creates a mock player that plays in real time.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{
		delayFactor: 1.0,
		stopCh:      make(chan struct{}),
	}
}

// SetDelayFactor scales simulated playback time. Zero returns immediately.
func (mp *MockPlayer) SetDelayFactor(factor float64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.delayFactor = factor
}

// SetError makes subsequent Play calls fail with err.
func (mp *MockPlayer) SetError(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.failWith = err
}

// Play records pcm and waits out its simulated duration.
func (mp *MockPlayer) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	mp.mu.Lock()
	if mp.closed {
		mp.mu.Unlock()
		return ErrPlayerClosed
	}
	if mp.failWith != nil {
		err := mp.failWith
		mp.mu.Unlock()
		return err
	}
	data := make([]byte, len(pcm))
	copy(data, pcm)
	mp.played = append(mp.played, data)
	mp.rates = append(mp.rates, sampleRate)
	stopCh := mp.stopCh
	wait := time.Duration(float64(Duration(pcm, sampleRate)) * mp.delayFactor)
	onPlay := mp.OnPlay
	mp.mu.Unlock()

	mp.playCount.Add(1)
	if onPlay != nil {
		onPlay(data, sampleRate)
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-stopCh:
		return errors.New("playback stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop interrupts any blocked Play.
func (mp *MockPlayer) Stop() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	close(mp.stopCh)
	mp.stopCh = make(chan struct{})
	mp.stopCount.Add(1)
	return nil
}

// Close stops playback and rejects further Play calls.
func (mp *MockPlayer) Close() error {
	if err := mp.Stop(); err != nil {
		return err
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.closed = true
	return nil
}

// Played returns copies of every clip passed to Play.
func (mp *MockPlayer) Played() [][]byte {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([][]byte, len(mp.played))
	copy(out, mp.played)
	return out
}

// SampleRates returns the sample rate of every Play call.
func (mp *MockPlayer) SampleRates() []int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([]int, len(mp.rates))
	copy(out, mp.rates)
	return out
}

// PlayCount returns the number of Play calls.
func (mp *MockPlayer) PlayCount() int {
	return int(mp.playCount.Load())
}

// StopCount returns the number of Stop calls.
func (mp *MockPlayer) StopCount() int {
	return int(mp.stopCount.Load())
}
