//go:build nocgo
// +build nocgo

package audio

import (
	"context"
	"errors"
	"sync"
)

// ErrPlayerClosed is returned by Play after Close.
var ErrPlayerClosed = errors.New("player is closed")

// ErrAudioUnavailable is returned by Play in builds without an audio device
// backend.
var ErrAudioUnavailable = errors.New("audio playback not available in nocgo build")

// Player is a stub for builds without cgo. WAV output and PCM helpers work
// as usual; only playback is missing.
type Player struct {
	mu     sync.Mutex
	closed bool
}

// NewPlayer creates a Player.
func NewPlayer() *Player {
	return &Player{}
}

// Play always fails: there is no device to play on.
func (p *Player) Play(_ context.Context, pcm []byte, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPlayerClosed
	}
	if len(pcm) == 0 {
		return nil
	}
	return ErrAudioUnavailable
}

// Stop does nothing.
func (p *Player) Stop() error {
	return nil
}

// Close rejects further Play calls.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
