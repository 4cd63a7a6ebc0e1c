//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ErrPlayerClosed is returned by Play after Close.
var ErrPlayerClosed = errors.New("player is closed")

// oto allows one context per process, so every Player shares it. The first
// Play fixes its sample rate.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func sharedContext(sampleRate int) (*oto.Context, int, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
		otoRate = sampleRate
	})
	return otoCtx, otoRate, otoErr
}

// pollInterval is how often Play checks whether the device drained.
const pollInterval = 20 * time.Millisecond

// Player plays PCM through the system audio device.
type Player struct {
	mu     sync.Mutex
	player *oto.Player
	// data backs the current oto player and must stay reachable until it is
	// closed.
	data   []byte
	closed bool
}

// NewPlayer creates a Player. The audio device is opened on first Play.
func NewPlayer() *Player {
	return &Player{}
}

// Play plays mono s16le pcm recorded at sampleRate and blocks until it has
// drained, Stop is called, or ctx is done. Anything already playing is
// stopped first.
func (p *Player) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}

	otx, rate, err := sharedContext(sampleRate)
	if err != nil {
		return err
	}
	data := Resample(pcm, sampleRate, rate)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPlayerClosed
	}
	p.stopLocked()
	player := otx.NewPlayer(bytes.NewReader(data))
	p.player = player
	p.data = data
	p.mu.Unlock()

	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.release(player)
			return ctx.Err()
		case <-ticker.C:
			if !player.IsPlaying() {
				p.release(player)
				return nil
			}
		}
	}
}

// release closes player if it is still the current one.
func (p *Player) release(player *oto.Player) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == player {
		p.stopLocked()
	}
}

func (p *Player) stopLocked() {
	if p.player == nil {
		return
	}
	p.player.Pause()
	p.player.Close() //nolint:errcheck
	p.player = nil
	p.data = nil
}

// Stop halts playback. A blocked Play returns once it notices.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Close stops playback and rejects further Play calls.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
	return nil
}
