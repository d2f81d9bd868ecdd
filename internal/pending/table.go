// Package pending implements the pending-call table (C6): a map from
// outgoing packet id to a write-once completion slot, with a background
// sweep for deadline expiry and bulk resolution on shutdown.
package pending

import (
	"reflect"
	"sync"
	"time"

	"github.com/appnet-org/tcprpc/internal/timer"
	"github.com/appnet-org/tcprpc/pkg/rpcerr"
	"github.com/appnet-org/tcprpc/pkg/serializer"
)

type slot struct {
	future     *Future
	returnType reflect.Type
	deadline   time.Time
}

// Table is safe for concurrent Park, Complete*, TakeAll, and the sweep
// goroutine.
type Table struct {
	mu         sync.Mutex
	slots      map[uint32]*slot
	serializer serializer.Serializer
	sweeper    *timer.Manager
}

const sweepKey timer.Key = 1

// New returns a Table that decodes Value completions with codec and sweeps
// expired deadlines at sweepInterval.
func New(codec serializer.Serializer, sweepInterval time.Duration) *Table {
	if sweepInterval <= 0 {
		sweepInterval = 3 * time.Second
	}
	t := &Table{
		slots:      make(map[uint32]*slot),
		serializer: codec,
		sweeper:    timer.NewManager(),
	}
	t.sweeper.SchedulePeriodic(sweepKey, sweepInterval, func() { t.sweepExpired(time.Now()) })
	return t
}

// Park creates a completion slot for packetID and returns the future that
// resolves it. It fails synchronously with *rpcerr.DuplicateIdError if the
// id is already parked — that must not happen under a correctly
// functioning id source.
func (t *Table) Park(packetID uint32, returnType reflect.Type, deadline time.Time) (*Future, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.slots[packetID]; exists {
		return nil, &rpcerr.DuplicateIdError{PacketID: packetID}
	}

	f := newFuture()
	t.slots[packetID] = &slot{future: f, returnType: returnType, deadline: deadline}
	return f, nil
}

// CompleteValue resolves packetID's future with the reply body, decoded
// into the return type captured at Park time. It reports whether a
// pending slot was found; a late or duplicate reply for an id that is no
// longer parked is dropped silently.
func (t *Table) CompleteValue(packetID uint32, body []byte) bool {
	s, ok := t.remove(packetID)
	if !ok {
		return false
	}

	if s.returnType == nil {
		s.future.complete(nil, nil)
		return true
	}

	value, err := serializer.DecodeInto(t.serializer, body, s.returnType)
	if err != nil {
		s.future.complete(nil, &rpcerr.SerializerError{Reason: "decoding reply body", Err: err})
		return true
	}
	s.future.complete(value, nil)
	return true
}

// CompleteRemoteError resolves packetID's future with a RemoteError
// carrying message.
func (t *Table) CompleteRemoteError(packetID uint32, message string) bool {
	s, ok := t.remove(packetID)
	if !ok {
		return false
	}
	s.future.complete(nil, &rpcerr.RemoteError{Message: message})
	return true
}

// TakeAll atomically removes every pending slot and resolves each with
// ShutdownError. It returns the packet ids that were resolved, for
// logging.
func (t *Table) TakeAll() []uint32 {
	t.mu.Lock()
	slots := t.slots
	t.slots = make(map[uint32]*slot)
	t.mu.Unlock()

	ids := make([]uint32, 0, len(slots))
	for id, s := range slots {
		s.future.complete(nil, &rpcerr.ShutdownError{})
		ids = append(ids, id)
	}
	return ids
}

// Len reports the number of currently parked calls.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}

// Close stops the background sweep goroutine. It does not resolve
// remaining slots — callers should call TakeAll first if a bulk
// resolution is desired.
func (t *Table) Close() {
	t.sweeper.Stop()
}

func (t *Table) remove(packetID uint32) (*slot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[packetID]
	if !ok {
		return nil, false
	}
	delete(t.slots, packetID)
	return s, true
}

func (t *Table) sweepExpired(now time.Time) {
	t.mu.Lock()
	type idSlot struct {
		id uint32
		s  *slot
	}
	var expired []idSlot
	for id, s := range t.slots {
		if !s.deadline.After(now) {
			expired = append(expired, idSlot{id, s})
			delete(t.slots, id)
		}
	}
	t.mu.Unlock()

	for _, e := range expired {
		e.s.future.complete(nil, &rpcerr.TimeoutError{PacketID: e.id})
	}
}
