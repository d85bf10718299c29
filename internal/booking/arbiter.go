package booking

import (
    "context"
    "fmt"
    "sync"
    "time"
)

// DefaultLockTimeout bounds how long a request waits for a table lock when
// no timeout is configured.
const DefaultLockTimeout = 3 * time.Second

type tableLock struct {
    sem  chan struct{}
    refs int
}

// Arbiter serialises booking decisions per table.  Requests for the same
// table run one at a time in lock acquisition order; requests for different
// tables never wait on each other.
//
// Lock entries are reference counted and dropped once no request holds or
// waits for them.
type Arbiter struct {
    timeout time.Duration

    mu    sync.Mutex
    locks map[uint64]*tableLock
}

// NewArbiter returns an Arbiter whose acquisitions give up after timeout.
// A non-positive timeout selects DefaultLockTimeout.
func NewArbiter(timeout time.Duration) *Arbiter {
    if timeout <= 0 {
        timeout = DefaultLockTimeout
    }
    return &Arbiter{timeout: timeout, locks: make(map[uint64]*tableLock)}
}

func (a *Arbiter) ref(tableID uint64) *tableLock {
    a.mu.Lock()
    defer a.mu.Unlock()
    l, ok := a.locks[tableID]
    if !ok {
        l = &tableLock{sem: make(chan struct{}, 1)}
        a.locks[tableID] = l
    }
    l.refs++
    return l
}

func (a *Arbiter) unref(tableID uint64, l *tableLock) {
    a.mu.Lock()
    defer a.mu.Unlock()
    l.refs--
    if l.refs == 0 {
        delete(a.locks, tableID)
    }
}

// WithTableLock runs fn while holding the exclusive lock for tableID and
// returns fn's error.  If the lock cannot be taken within the configured
// timeout it returns ErrBusy; if ctx ends first it returns ctx's error.  In
// both cases fn is not called and nothing stays locked.
func (a *Arbiter) WithTableLock(ctx context.Context, tableID uint64, fn func() error) error {
    l := a.ref(tableID)
    defer a.unref(tableID, l)

    if err := ctx.Err(); err != nil {
        return err
    }
    timer := time.NewTimer(a.timeout)
    defer timer.Stop()

    select {
    case l.sem <- struct{}{}:
    case <-ctx.Done():
        return ctx.Err()
    case <-timer.C:
        return fmt.Errorf("%w: table %d lock not acquired within %s", ErrBusy, tableID, a.timeout)
    }
    defer func() { <-l.sem }()
    return fn()
}

// Held returns the number of tables that currently have a holder or waiter.
func (a *Arbiter) Held() int {
    a.mu.Lock()
    defer a.mu.Unlock()
    return len(a.locks)
}
