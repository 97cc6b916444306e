// Package event merges keyboard input with the tick and render cadences into
// one ordered stream.
package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"
)

// ErrInputClosed is reported when the input stream ends while the source is
// still supposed to run.
var ErrInputClosed = errors.New("input stream closed")

// Kind identifies an event
type Kind int

const (
	KindTick Kind = iota
	KindRender
	KindUser
	KindResize
	KindError
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindTick:
		return "tick"
	case KindRender:
		return "render"
	case KindUser:
		return "user"
	case KindResize:
		return "resize"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one item of the merged stream. Key is set for KindUser, Err for
// KindError.
type Event struct {
	Kind Kind
	Key  *tcell.EventKey
	Err  error
}

// Poller is the input side of a tcell screen
type Poller interface {
	ChannelEvents(ch chan<- tcell.Event, quit <-chan struct{})
}

const queueSize = 64

// Source emits Tick, Render, User, Resize and Error events. It has a single
// consumer.
type Source struct {
	poller Poller
	tick   time.Duration
	render time.Duration
	events chan Event
}

// NewSource creates a source fed by p
func NewSource(p Poller, tick, render time.Duration) (*Source, error) {
	if tick <= 0 || render <= 0 {
		return nil, fmt.Errorf("event intervals must be positive, got tick=%v render=%v", tick, render)
	}

	return &Source{
		poller: p,
		tick:   tick,
		render: render,
		events: make(chan Event, queueSize),
	}, nil
}

// Events returns the merged stream. It is closed when Run returns.
func (s *Source) Events() <-chan Event {
	return s.events
}

// Run feeds the stream until ctx is done or the input stream ends
func (s *Source) Run(ctx context.Context) {
	defer close(s.events)

	quit := make(chan struct{})
	defer close(quit)

	input := make(chan tcell.Event, queueSize)
	go s.poller.ChannelEvents(input, quit)

	tick := time.NewTicker(s.tick)
	defer tick.Stop()
	render := time.NewTicker(s.render)
	defer render.Stop()

	for {
		var ev Event
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			ev = Event{Kind: KindTick}
		case <-render.C:
			ev = Event{Kind: KindRender}
		case raw, ok := <-input:
			if !ok {
				log.Warn().Msg("input stream closed")
				s.emit(ctx, Event{Kind: KindError, Err: ErrInputClosed})
				return
			}
			var keep bool
			ev, keep = translate(raw)
			if !keep {
				continue
			}
		}

		if !s.emit(ctx, ev) {
			return
		}
	}
}

func (s *Source) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// translate maps a tcell event onto the stream. Mouse, paste and focus
// events are dropped.
func translate(raw tcell.Event) (Event, bool) {
	switch ev := raw.(type) {
	case *tcell.EventKey:
		return Event{Kind: KindUser, Key: ev}, true
	case *tcell.EventResize:
		return Event{Kind: KindResize}, true
	case *tcell.EventError:
		return Event{Kind: KindError, Err: fmt.Errorf("input: %w", ev)}, true
	default:
		return Event{}, false
	}
}
