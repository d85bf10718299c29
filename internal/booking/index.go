package booking

import (
    "sync"

    "github.com/google/btree"
)

// Slot is a booked window on a table together with the reservation that
// holds it.
type Slot struct {
    Window        Window
    ReservationID uint64
}

func slotLess(a, b Slot) bool {
    if !a.Window.Start.Equal(b.Window.Start) {
        return a.Window.Start.Before(b.Window.Start)
    }
    if !a.Window.End.Equal(b.Window.End) {
        return a.Window.End.Before(b.Window.End)
    }
    return a.ReservationID < b.ReservationID
}

// pivot builds a zero-length search key that sorts after every slot starting
// strictly before t and before every slot starting at t.
func pivot(t Window) Slot {
    return Slot{Window: Window{Start: t.Start, End: t.Start}}
}

type timeline struct {
    mu     sync.RWMutex
    tree   *btree.BTreeG[Slot]
    loaded bool
}

// AvailabilityIndex keeps, per table, the ordered set of windows held by
// active reservations.  It is derived data: the reservation records are the
// source of truth and a table's timeline is rebuilt from them with Load.
//
// Windows stored for one table never overlap (Insert refuses), so ordering
// by start also orders by end and an overlap query only has to inspect the
// latest slot starting before the queried end.  All operations are
// O(log n) in the number of slots on the table.
//
// Callers that mutate a table's timeline must hold that table's lock from
// the Arbiter; the index itself only guarantees memory safety.
type AvailabilityIndex struct {
    mu     sync.Mutex
    tables map[uint64]*timeline
}

// NewAvailabilityIndex returns an empty index.
func NewAvailabilityIndex() *AvailabilityIndex {
    return &AvailabilityIndex{tables: make(map[uint64]*timeline)}
}

func (x *AvailabilityIndex) timeline(tableID uint64) *timeline {
    x.mu.Lock()
    defer x.mu.Unlock()
    tl, ok := x.tables[tableID]
    if !ok {
        tl = &timeline{tree: btree.NewG[Slot](16, slotLess)}
        x.tables[tableID] = tl
    }
    return tl
}

// Query reports whether w overlaps any booked window on the table.
func (x *AvailabilityIndex) Query(tableID uint64, w Window) bool {
    tl := x.timeline(tableID)
    tl.mu.RLock()
    defer tl.mu.RUnlock()
    return overlapsLocked(tl.tree, w)
}

func overlapsLocked(tree *btree.BTreeG[Slot], w Window) bool {
    hit := false
    // Latest slot starting strictly before w.End.
    tree.DescendLessOrEqual(pivot(Window{Start: w.End}), func(s Slot) bool {
        hit = s.Window.Overlaps(w)
        return false
    })
    return hit
}

// Insert adds a committed window.  It returns ErrConflict without changing
// the index when w overlaps an existing window.
func (x *AvailabilityIndex) Insert(tableID uint64, w Window, reservationID uint64) error {
    tl := x.timeline(tableID)
    tl.mu.Lock()
    defer tl.mu.Unlock()
    if overlapsLocked(tl.tree, w) {
        return ErrConflict
    }
    tl.tree.ReplaceOrInsert(Slot{Window: w, ReservationID: reservationID})
    return nil
}

// Remove deletes the window held by reservationID.  It reports whether the
// slot was present.
func (x *AvailabilityIndex) Remove(tableID uint64, w Window, reservationID uint64) bool {
    tl := x.timeline(tableID)
    tl.mu.Lock()
    defer tl.mu.Unlock()
    _, ok := tl.tree.Delete(Slot{Window: w, ReservationID: reservationID})
    return ok
}

// Booked returns the slots intersecting w ordered by start.
func (x *AvailabilityIndex) Booked(tableID uint64, w Window) []Slot {
    tl := x.timeline(tableID)
    tl.mu.RLock()
    defer tl.mu.RUnlock()
    out := make([]Slot, 0)
    tl.tree.DescendLessOrEqual(pivot(w), func(s Slot) bool {
        if s.Window.Overlaps(w) {
            out = append(out, s)
        }
        return false
    })
    tl.tree.AscendRange(pivot(w), pivot(Window{Start: w.End}), func(s Slot) bool {
        out = append(out, s)
        return true
    })
    return out
}

// Loaded reports whether the table's timeline has been built from the store.
func (x *AvailabilityIndex) Loaded(tableID uint64) bool {
    tl := x.timeline(tableID)
    tl.mu.RLock()
    defer tl.mu.RUnlock()
    return tl.loaded
}

// Load replaces the table's timeline with slots and marks it loaded.
func (x *AvailabilityIndex) Load(tableID uint64, slots []Slot) {
    tl := x.timeline(tableID)
    tl.mu.Lock()
    defer tl.mu.Unlock()
    tl.tree.Clear(false)
    for _, s := range slots {
        tl.tree.ReplaceOrInsert(s)
    }
    tl.loaded = true
}

// Invalidate marks the table's timeline stale so the next Loaded call
// reports false and the owner rebuilds it from the store.
func (x *AvailabilityIndex) Invalidate(tableID uint64) {
    tl := x.timeline(tableID)
    tl.mu.Lock()
    defer tl.mu.Unlock()
    tl.loaded = false
}

// Len returns the number of slots held on the table.
func (x *AvailabilityIndex) Len(tableID uint64) int {
    tl := x.timeline(tableID)
    tl.mu.RLock()
    defer tl.mu.RUnlock()
    return tl.tree.Len()
}
