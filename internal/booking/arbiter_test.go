package booking

import (
    "context"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestArbiterSerialisesSameTable(t *testing.T) {
    a := NewArbiter(time.Second)
    var inside, maxInside int32
    var wg sync.WaitGroup
    for i := 0; i < 20; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            err := a.WithTableLock(context.Background(), 1, func() error {
                n := atomic.AddInt32(&inside, 1)
                for {
                    m := atomic.LoadInt32(&maxInside)
                    if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
                        break
                    }
                }
                time.Sleep(time.Millisecond)
                atomic.AddInt32(&inside, -1)
                return nil
            })
            assert.NoError(t, err)
        }()
    }
    wg.Wait()
    assert.Equal(t, int32(1), maxInside)
    assert.Equal(t, 0, a.Held())
}

func TestArbiterDifferentTablesRunInParallel(t *testing.T) {
    a := NewArbiter(time.Second)
    entered := make(chan struct{})
    release := make(chan struct{})
    done := make(chan error, 1)

    go func() {
        done <- a.WithTableLock(context.Background(), 1, func() error {
            close(entered)
            <-release
            return nil
        })
    }()
    <-entered

    // Table 2 must not wait for table 1.
    err := a.WithTableLock(context.Background(), 2, func() error { return nil })
    require.NoError(t, err)

    close(release)
    require.NoError(t, <-done)
}

func TestArbiterTimeoutReturnsBusy(t *testing.T) {
    a := NewArbiter(20 * time.Millisecond)
    entered := make(chan struct{})
    release := make(chan struct{})
    go func() {
        _ = a.WithTableLock(context.Background(), 1, func() error {
            close(entered)
            <-release
            return nil
        })
    }()
    <-entered

    called := false
    err := a.WithTableLock(context.Background(), 1, func() error {
        called = true
        return nil
    })
    assert.ErrorIs(t, err, ErrBusy)
    assert.False(t, called)
    close(release)
}

func TestArbiterCancelledWaiterLeavesNoLock(t *testing.T) {
    a := NewArbiter(time.Second)
    entered := make(chan struct{})
    release := make(chan struct{})
    holderDone := make(chan struct{})
    go func() {
        defer close(holderDone)
        _ = a.WithTableLock(context.Background(), 1, func() error {
            close(entered)
            <-release
            return nil
        })
    }()
    <-entered

    ctx, cancel := context.WithCancel(context.Background())
    waiterDone := make(chan error, 1)
    go func() {
        waiterDone <- a.WithTableLock(ctx, 1, func() error { return nil })
    }()
    cancel()
    assert.ErrorIs(t, <-waiterDone, context.Canceled)

    close(release)
    <-holderDone

    // The lock is free again and the map is empty.
    require.NoError(t, a.WithTableLock(context.Background(), 1, func() error { return nil }))
    assert.Equal(t, 0, a.Held())
}

func TestArbiterDefaultsTimeout(t *testing.T) {
    assert.Equal(t, DefaultLockTimeout, NewArbiter(0).timeout)
}
