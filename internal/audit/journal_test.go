package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingStorage struct {
	mu      sync.Mutex
	batches [][]Event
}

func (r *recordingStorage) WriteBatch(_ context.Context, events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]Event(nil), events...))
	return nil
}

func (r *recordingStorage) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func TestJournalFlushesOnStop(t *testing.T) {
	store := &recordingStorage{}
	j := NewJournal(store, zap.NewNop(), Options{BufferSize: 50, BatchSize: 10, FlushInterval: time.Hour})
	j.Start()

	for i := 0; i < 25; i++ {
		j.Log(Event{InstanceID: "inst", Action: "approve"})
	}
	j.Stop()

	assert.Equal(t, 25, store.total())
	require.NotEmpty(t, store.batches)
	for _, b := range store.batches {
		assert.LessOrEqual(t, len(b), 10)
		for _, e := range b {
			assert.NotEmpty(t, e.ID)
			assert.False(t, e.Timestamp.IsZero())
		}
	}
}

func TestJournalDropsAfterStop(t *testing.T) {
	store := &recordingStorage{}
	j := NewJournal(store, zap.NewNop(), Options{FlushInterval: time.Hour})
	j.Start()
	j.Stop()
	j.Stop() // повторная остановка безопасна

	j.Log(Event{InstanceID: "late"})
	assert.Equal(t, 0, store.total())
}

func TestJournalSheddingWhenFull(t *testing.T) {
	store := &recordingStorage{}
	// Воркер не запущен: буфер на 2 события
	j := NewJournal(store, zap.NewNop(), Options{BufferSize: 2, FlushInterval: time.Hour})
	for i := 0; i < 5; i++ {
		j.Log(Event{InstanceID: "x"})
	}
	assert.Len(t, j.ch, 2)
}

func TestJournalStopDuringConcurrentLog(t *testing.T) {
	store := &recordingStorage{}
	j := NewJournal(store, zap.NewNop(), Options{BufferSize: 16, BatchSize: 4, FlushInterval: time.Millisecond})
	j.Start()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				j.Log(Event{InstanceID: "inst", Action: "approve"})
			}
		}()
	}
	time.Sleep(time.Millisecond)

	assert.NotPanics(t, j.Stop)
	wg.Wait()
	assert.LessOrEqual(t, store.total(), 1600)
}
