package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/indipendencepark/sana-intraprendenza/internal/backup"
	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
	"github.com/indipendencepark/sana-intraprendenza/internal/replication"
	"github.com/indipendencepark/sana-intraprendenza/internal/store"
)

const (
	TargetBackup = "backup"
	TargetRemote = "remote"
	TargetBus    = "bus"
)

const shutdownFlushTimeout = 5 * time.Second

type Options struct {
	Store  store.StateRepository
	Backup backup.Store
	Bus    replication.Bus
	// Origin identifies this process on the bus so its own snapshots are
	// not applied twice.
	Origin string
	Logger zerolog.Logger
}

// Gateway owns the persistence side of the ledger. Writes are coalesced:
// every save carries the full document, so only the newest pending state is
// written. Each write goes to the backup first, then the shared store, then
// the bus.
type Gateway struct {
	store  store.StateRepository
	backup backup.Store
	bus    replication.Bus
	origin string
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	pending  *domain.State
	status   domain.SyncStatus
	revision int64
	onRemote []func(domain.RemoteSnapshot)
	onError  []func(target string, err error)

	writeMu sync.Mutex
	wake    chan struct{}
}

func New(opts Options) *Gateway {
	bus := opts.Bus
	if bus == nil {
		bus = replication.NoopBus{}
	}
	return &Gateway{
		store:  opts.Store,
		backup: opts.Backup,
		bus:    bus,
		origin: opts.Origin,
		logger: opts.Logger.With().Str("component", "gateway").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
		wake:   make(chan struct{}, 1),
	}
}

// LoadInitialState reads the shared document, creating it from seed on first
// run. When the shared store is unreachable the newest backup is used.
func (g *Gateway) LoadInitialState(ctx context.Context, seed func() domain.State) (domain.State, error) {
	state, err := g.store.LoadState(ctx)
	if err == nil {
		return *state, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		initial := seed()
		if err := g.store.SaveState(ctx, initial); err != nil {
			return domain.State{}, err
		}
		g.logger.Info().Msg("created ledger document from seed")
		return initial, nil
	}

	if g.backup == nil {
		return domain.State{}, err
	}
	fallback, backupErr := g.backup.Latest(ctx)
	if backupErr != nil {
		return domain.State{}, errors.Join(err, backupErr)
	}
	g.logger.Warn().Err(err).Msg("shared store unavailable, starting from local backup")
	g.reportError(TargetRemote, err)
	return *fallback, nil
}

// Persist schedules state for writing and returns immediately.
func (g *Gateway) Persist(state domain.State) {
	snapshot := state.Clone()
	g.mu.Lock()
	g.pending = &snapshot
	g.status.PendingWrites = 1
	g.mu.Unlock()

	select {
	case g.wake <- struct{}{}:
	default:
	}
}

func (g *Gateway) OnRemoteStateChanged(handler func(domain.RemoteSnapshot)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onRemote = append(g.onRemote, handler)
}

func (g *Gateway) OnError(handler func(target string, err error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onError = append(g.onError, handler)
}

func (g *Gateway) Status() domain.SyncStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Run drives the write worker and the bus subscription until ctx is done,
// then flushes whatever is still pending.
func (g *Gateway) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := g.bus.Subscribe(ctx, g.receive); err != nil {
			g.logger.Error().Err(err).Msg("replication subscription stopped")
			g.reportError(TargetBus, err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
			err := g.Flush(flushCtx)
			cancel()
			wg.Wait()
			return err
		case <-g.wake:
			_ = g.Flush(ctx)
		}
	}
}

// Flush writes the pending state, if any, synchronously. On a shared store
// failure the state is kept for the next flush.
func (g *Gateway) Flush(ctx context.Context) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	g.mu.Lock()
	pending := g.pending
	g.pending = nil
	g.mu.Unlock()
	if pending == nil {
		return nil
	}

	err := g.write(ctx, *pending)

	g.mu.Lock()
	// A document the shared store rejected stays queued unless a newer one
	// replaced it meanwhile.
	if err != nil && g.pending == nil {
		g.pending = pending
	}
	if g.pending == nil {
		g.status.PendingWrites = 0
	}
	g.mu.Unlock()
	return err
}

func (g *Gateway) write(ctx context.Context, state domain.State) error {
	if g.backup != nil {
		if err := g.backup.Save(ctx, state); err != nil {
			g.logger.Warn().Err(err).Msg("backup write failed")
			g.reportError(TargetBackup, err)
		}
	}

	if err := g.store.SaveState(ctx, state); err != nil {
		g.logger.Error().Err(err).Msg("remote write failed")
		g.reportError(TargetRemote, err)
		return err
	}

	g.mu.Lock()
	g.revision++
	revision := g.revision
	g.status.LastPersistAt = g.now()
	g.mu.Unlock()

	err := g.bus.Publish(ctx, domain.RemoteSnapshot{
		Origin:     g.origin,
		Revision:   revision,
		State:      state,
		ReceivedAt: g.now(),
	})
	if err != nil {
		g.logger.Warn().Err(err).Msg("publish failed")
		g.reportError(TargetBus, err)
	}
	return nil
}

func (g *Gateway) receive(snapshot domain.RemoteSnapshot) {
	if snapshot.Origin == g.origin {
		return
	}
	if snapshot.ReceivedAt.IsZero() {
		snapshot.ReceivedAt = g.now()
	}

	g.mu.Lock()
	g.status.LastRemoteAt = snapshot.ReceivedAt
	g.status.LastRemoteOrigin = snapshot.Origin
	handlers := append([]func(domain.RemoteSnapshot){}, g.onRemote...)
	g.mu.Unlock()

	g.logger.Debug().Str("origin", snapshot.Origin).Int64("revision", snapshot.Revision).Msg("remote snapshot received")
	for _, h := range handlers {
		h(snapshot)
	}
}

func (g *Gateway) reportError(target string, err error) {
	g.mu.Lock()
	g.status.LastError = target + ": " + err.Error()
	g.status.LastErrorAt = g.now()
	handlers := append([]func(string, error){}, g.onError...)
	g.mu.Unlock()

	for _, h := range handlers {
		h(target, err)
	}
}
