package audio

import (
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Speaker plays a Ring through oto.
type Speaker struct {
	mu      sync.Mutex
	ctx     *oto.Context
	player  *oto.Player
	started bool
}

// Open creates the sound card context and a paused player reading ring.
func Open(ring *Ring, sampleRate int) (*Speaker, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready
	return &Speaker{ctx: ctx, player: ctx.NewPlayer(ring)}, nil
}

// Start begins playback.
func (s *Speaker) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started && s.player != nil {
		s.player.Play()
		s.started = true
	}
}

// Close stops playback and releases the player.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	s.started = false
	return err
}
