package swap

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Publisher receives events after the change that produced them has
// committed. Publish must not block for long; it runs on the caller's
// goroutine.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// LogPublisher writes each event to a logger.
type LogPublisher struct {
	log *logrus.Entry
}

func NewLogPublisher(log *logrus.Entry) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) {
	p.log.WithFields(logrus.Fields{
		"event_id": event.ID.String(),
		"kind":     string(event.Kind),
		"payload":  event.Payload,
	}).Debug("event")
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns the recorded events, optionally only those of the given kinds.
func (r *Recorder) Events(kinds ...EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(kinds) == 0 {
		return append([]Event(nil), r.events...)
	}
	var out []Event
	for _, e := range r.events {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Publishers fans an event out to several publishers in order.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, event Event) {
	for _, p := range ps {
		p.Publish(ctx, event)
	}
}
