package replication

import (
	"context"
	"sync"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

// Bus fans full-document snapshots out to every process sharing the ledger.
// Subscribe blocks until ctx is done.
type Bus interface {
	Publish(ctx context.Context, snapshot domain.RemoteSnapshot) error
	Subscribe(ctx context.Context, handler func(domain.RemoteSnapshot)) error
}

type NoopBus struct{}

func (NoopBus) Publish(_ context.Context, _ domain.RemoteSnapshot) error {
	return nil
}

func (NoopBus) Subscribe(ctx context.Context, _ func(domain.RemoteSnapshot)) error {
	<-ctx.Done()
	return nil
}

// MemoryBus delivers snapshots to subscribers in the same process.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]chan domain.RemoteSnapshot
	next        int
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subscribers: make(map[int]chan domain.RemoteSnapshot)}
}

func (b *MemoryBus) Publish(_ context.Context, snapshot domain.RemoteSnapshot) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, handler func(domain.RemoteSnapshot)) error {
	ch := make(chan domain.RemoteSnapshot, 16)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subscribers[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot := <-ch:
			handler(snapshot)
		}
	}
}

func (b *MemoryBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
