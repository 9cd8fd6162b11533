package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletterdispatch/internal/adapters/lock"
)

type countingProcessor struct {
	mu         sync.Mutex
	calls      int
	recoveries int
	n          int
	err        error
}

func (p *countingProcessor) ProcessDueScheduledCampaigns(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.n, p.err
}

func (p *countingProcessor) RecoverAbandoned(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recoveries++
	return 0, nil
}

func (p *countingProcessor) Recoveries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recoveries
}

func (p *countingProcessor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type stubLocker struct {
	acquired bool
	err      error
	released int
}

func (l *stubLocker) TryAcquire(ctx context.Context) (bool, error) { return l.acquired, l.err }

func (l *stubLocker) Release(ctx context.Context) error {
	l.released++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweeper_Sweep(t *testing.T) {
	tests := []struct {
		name         string
		locker       *stubLocker
		processorErr error
		wantCalls    int
		wantStarted  int
		wantReleased int
	}{
		{name: "lock acquired", locker: &stubLocker{acquired: true}, wantCalls: 1, wantStarted: 2, wantReleased: 1},
		{name: "lock held elsewhere", locker: &stubLocker{acquired: false}, wantCalls: 0, wantStarted: 0},
		{name: "lock error", locker: &stubLocker{err: errors.New("redis down")}, wantCalls: 0, wantStarted: 0},
		{name: "processor error still releases", locker: &stubLocker{acquired: true}, processorErr: errors.New("db"), wantCalls: 1, wantStarted: 2, wantReleased: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &countingProcessor{n: 2, err: tt.processorErr}
			s := NewSweeper(p, tt.locker, time.Minute, discardLogger())

			got := s.Sweep(context.Background())
			assert.Equal(t, tt.wantStarted, got)
			assert.Equal(t, tt.wantCalls, p.Calls())
			assert.Equal(t, tt.wantReleased, tt.locker.released)
		})
	}
}

func TestSweeper_RunSweepsUntilCancelled(t *testing.T) {
	p := &countingProcessor{}
	s := NewSweeper(p, &stubLocker{acquired: true}, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSweeper_OneReplicaPerSweep(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	// Another replica holds the lock.
	other := lock.NewRedisLock(client, "newsletter:scheduled-sweep", time.Minute)
	ok, err := other.TryAcquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	p := &countingProcessor{n: 1}
	s := NewSweeper(p, lock.NewRedisLock(client, "newsletter:scheduled-sweep", time.Minute), time.Minute, discardLogger())

	assert.Zero(t, s.Sweep(context.Background()))
	assert.Zero(t, p.Calls())

	require.NoError(t, other.Release(context.Background()))
	assert.Equal(t, 1, s.Sweep(context.Background()))
	assert.Equal(t, 1, p.Calls())
	assert.False(t, mr.Exists("lock:newsletter:scheduled-sweep"), "released after the sweep")
}

func TestSweeper_RecoveryRunsUnderLock(t *testing.T) {
	p := &countingProcessor{}

	held := NewSweeper(p, &stubLocker{acquired: false}, time.Minute, discardLogger()).WithRecovery(p)
	held.Sweep(context.Background())
	assert.Zero(t, p.Recoveries(), "no recovery while another replica holds the lock")

	locker := &stubLocker{acquired: true}
	free := NewSweeper(p, locker, time.Minute, discardLogger()).WithRecovery(p)
	free.Sweep(context.Background())
	assert.Equal(t, 1, p.Recoveries())
	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, 1, locker.released)

	NewSweeper(p, &stubLocker{acquired: true}, time.Minute, discardLogger()).Sweep(context.Background())
	assert.Equal(t, 1, p.Recoveries(), "recovery is opt-in")
}
