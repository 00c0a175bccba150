package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/anupk5743/Colleborative-task-manager1/internal/domain"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/log"
	"github.com/anupk5743/Colleborative-task-manager1/pkg/pubsub"
)

const (
	streamBuffer         = 1024
	streamPublishTimeout = 3 * time.Second
)

// Stream mirrors fanned-out events to an external pub/sub channel for
// downstream consumers. Delivery is best effort: when the buffer is full
// or the publisher fails the event is dropped and a warning logged, so a
// slow broker never delays realtime fan-out.
type Stream struct {
	publisher pubsub.Publisher
	channel   string
	events    chan domain.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewStream(publisher pubsub.Publisher, channel string) *Stream {
	return &Stream{
		publisher: publisher,
		channel:   channel,
		events:    make(chan domain.Event, streamBuffer),
		done:      make(chan struct{}),
	}
}

// Enqueue schedules e for publication without blocking.
func (s *Stream) Enqueue(e domain.Event) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- e:
	default:
		l := log.L()
		l.Warn().Str(log.FieldEvent, e.Kind.String()).Msg("event stream buffer full, dropping event")
	}
}

// Run publishes queued events until ctx is cancelled or Close is called.
// Events still buffered at that point are flushed first.
func (s *Stream) Run(ctx context.Context) {
	for {
		select {
		case e := <-s.events:
			s.publish(e)
		case <-ctx.Done():
			s.drain()
			return
		case <-s.done:
			s.drain()
			return
		}
	}
}

// Close stops Run. It does not close the underlying publisher.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Stream) drain() {
	for {
		select {
		case e := <-s.events:
			s.publish(e)
		default:
			return
		}
	}
}

func (s *Stream) publish(e domain.Event) {
	ev, err := pubsub.NewEvent(e.Kind.String(), e.Key(), e.SenderID, e.Payload)
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldEvent, e.Kind.String()).Msg("failed to build stream event")
		return
	}
	ev.Timestamp = e.Timestamp

	ctx, cancel := context.WithTimeout(context.Background(), streamPublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, s.channel, ev); err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldEvent, e.Kind.String()).Msg("failed to publish event to stream")
	}
}
