package services

import (
	"sync"

	"github.com/issacompass/promptloop/internal/ports"
)

// ProgressPublisher fans run progress events out to per-run subscribers.
// It keeps the pub/sub plumbing out of the optimizer itself.
type ProgressPublisher struct {
	channels map[string][]chan ports.ProgressEvent
	mu       sync.RWMutex

	// Optional broadcaster for WebSocket delivery
	wsBroadcaster ports.ProgressBroadcaster
}

var _ ports.ProgressPublisher = (*ProgressPublisher)(nil)

// NewProgressPublisher creates a new progress publisher. wsBroadcaster is
// optional; pass nil when WebSocket delivery is not wired.
func NewProgressPublisher(wsBroadcaster ports.ProgressBroadcaster) *ProgressPublisher {
	return &ProgressPublisher{
		channels:      make(map[string][]chan ports.ProgressEvent),
		wsBroadcaster: wsBroadcaster,
	}
}

// Subscribe creates a buffered channel for a run's progress events. The
// buffer keeps slow consumers from blocking the optimizer.
func (p *ProgressPublisher) Subscribe(runID string) <-chan ports.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan ports.ProgressEvent, 100)
	p.channels[runID] = append(p.channels[runID], ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (p *ProgressPublisher) Unsubscribe(runID string, ch <-chan ports.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	channels := p.channels[runID]
	for i, subscriberCh := range channels {
		if subscriberCh == ch {
			p.channels[runID] = append(channels[:i], channels[i+1:]...)
			close(subscriberCh)
			break
		}
	}

	if len(p.channels[runID]) == 0 {
		delete(p.channels, runID)
	}
}

// Publish sends an event to all subscribers of the run. Sends are
// non-blocking: a subscriber with a full buffer misses the event rather than
// stalling the run.
func (p *ProgressPublisher) Publish(event ports.ProgressEvent) {
	if p.wsBroadcaster != nil {
		p.wsBroadcaster.BroadcastRunProgress(event.RunID, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, ch := range p.channels[event.RunID] {
		select {
		case ch <- event:
		default:
			// Buffer full, drop for this subscriber only.
		}
	}
}

// Close closes all channels for a run once its event sequence has terminated.
func (p *ProgressPublisher) Close(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.channels[runID] {
		close(ch)
	}
	delete(p.channels, runID)
}

// SubscriberCount returns the number of active subscribers for a run.
func (p *ProgressPublisher) SubscriberCount(runID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.channels[runID])
}
