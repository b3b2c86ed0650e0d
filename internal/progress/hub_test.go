package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *recordingSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *recordingSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func validEvent(stage Stage) Event {
	return Event{
		PageID: uuid.New(),
		TabID:  "tab-1",
		TS:     time.Now().UTC(),
		Stage:  stage,
		Kind:   "docket_query",
		Note:   "idle",
	}
}

func TestHub_DeliversToSinks(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	hub.Emit(validEvent(StagePageStart))
	hub.Emit(validEvent(StagePageClassified))

	require.Eventually(t, func() bool {
		return sink.count() == 2
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Close(context.Background()))
	require.True(t, sink.closed)
}

func TestHub_DropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	hub.Emit(Event{}) // missing everything
	hub.Emit(validEvent(StagePageDone))

	require.Eventually(t, func() bool {
		return sink.count() == 1
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Close(context.Background()))
}

func TestHub_CloseFlushesPending(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{MaxBatchWait: time.Hour}, sink)

	for i := 0; i < 5; i++ {
		hub.Emit(validEvent(StageUploadDone))
	}
	require.NoError(t, hub.Close(context.Background()))
	require.Equal(t, 5, sink.count())
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	evt := validEvent(StagePageClassified)
	require.NoError(t, evt.Validate())

	evt.Kind = ""
	require.Error(t, evt.Validate())

	evt = validEvent(StageCapture)
	evt.Note = ""
	require.Error(t, evt.Validate())

	evt = validEvent(StagePageStart)
	evt.Stage = "BOGUS"
	require.Error(t, evt.Validate())
}
