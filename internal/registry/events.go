package registry

import "github.com/ethereum/go-ethereum/common"

// Queue events. Terminal states are absent from the queue itself, so the
// event stream is the only place where "executed" and "cancelled" stay
// distinguishable. Sinks must not block; the queue emits while holding its
// lock.
type Event interface {
	EventName() string
}

type HashedReqAdded struct {
	ID  uint64
	Req Request
}

type HashedReqRemoved struct {
	ID          uint64
	WasExecuted bool
}

type HashedReqUnveriAdded struct {
	ID   uint64
	Hash common.Hash
}

type HashedReqUnveriRemoved struct {
	ID          uint64
	WasExecuted bool
}

func (HashedReqAdded) EventName() string         { return "HashedReqAdded" }
func (HashedReqRemoved) EventName() string       { return "HashedReqRemoved" }
func (HashedReqUnveriAdded) EventName() string   { return "HashedReqUnveriAdded" }
func (HashedReqUnveriRemoved) EventName() string { return "HashedReqUnveriRemoved" }

// EventSink receives queue events in emission order.
type EventSink interface {
	Emit(ev Event)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }
