package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issacompass/promptloop/internal/ports"
)

func TestPublisherFansOutToAllSubscribers(t *testing.T) {
	p := NewProgressPublisher(nil)

	ch1 := p.Subscribe("run_a")
	ch2 := p.Subscribe("run_a")
	other := p.Subscribe("run_b")

	p.Publish(ports.ProgressEvent{Type: ports.ProgressEventStart, RunID: "run_a"})
	p.Close("run_a")
	p.Close("run_b")

	ev1 := <-ch1
	ev2 := <-ch2
	assert.Equal(t, ports.ProgressEventStart, ev1.Type)
	assert.Equal(t, ports.ProgressEventStart, ev2.Type)

	_, open := <-other
	assert.False(t, open, "unrelated run must not receive the event")
}

func TestPublisherUnsubscribeClosesChannel(t *testing.T) {
	p := NewProgressPublisher(nil)
	ch := p.Subscribe("run_a")
	require.Equal(t, 1, p.SubscriberCount("run_a"))

	p.Unsubscribe("run_a", ch)
	assert.Equal(t, 0, p.SubscriberCount("run_a"))

	_, open := <-ch
	assert.False(t, open)
}

func TestPublisherDropsWhenBufferFull(t *testing.T) {
	p := NewProgressPublisher(nil)
	ch := p.Subscribe("run_a")

	for i := 0; i < 150; i++ {
		p.Publish(ports.ProgressEvent{Type: ports.ProgressEventIteration, RunID: "run_a", Iteration: i})
	}
	p.Close("run_a")

	var received int
	for range ch {
		received++
	}
	assert.Equal(t, 100, received, "overflow beyond the buffer is dropped, not blocking")
}

type recordingBroadcaster struct {
	events []ports.ProgressEvent
}

func (r *recordingBroadcaster) BroadcastRunProgress(runID string, event ports.ProgressEvent) {
	r.events = append(r.events, event)
}

func TestPublisherForwardsToBroadcaster(t *testing.T) {
	b := &recordingBroadcaster{}
	p := NewProgressPublisher(b)

	p.Publish(ports.ProgressEvent{Type: ports.ProgressEventDone, RunID: "run_a"})
	require.Len(t, b.events, 1)
	assert.Equal(t, ports.ProgressEventDone, b.events[0].Type)
}
