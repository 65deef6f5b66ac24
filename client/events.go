package client

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/luma/paddock/protocol"
)

// Observable is an append-only list of callbacks. Callbacks run synchronously,
// in subscription order, on the session's processing goroutine.
type Observable[T any] struct {
	mu        sync.RWMutex
	callbacks []func(T)
}

func (o *Observable[T]) Subscribe(callback func(T)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.callbacks = append(o.callbacks, callback)
}

// Len returns the number of subscribers.
func (o *Observable[T]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return len(o.callbacks)
}

// dispatch invokes every subscriber with v. A panicking subscriber aborts the
// remaining callbacks for this value only; the panic is logged and the
// session carries on.
func (o *Observable[T]) dispatch(v T, log *zap.Logger) {
	o.mu.RLock()
	callbacks := o.callbacks
	o.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error("Subscriber panicked",
				zap.String("value", fmt.Sprintf("%T", v)),
				zap.Any("panic", r))
		}
	}()

	for _, callback := range callbacks {
		callback(v)
	}
}

// Events holds one Observable per event category.
type Events struct {
	ConnectionState   Observable[ConnectionState]
	TrackData         Observable[*protocol.TrackData]
	EntryListCar      Observable[*protocol.EntryListCar]
	RealtimeUpdate    Observable[*protocol.RealtimeUpdate]
	RealtimeCarUpdate Observable[*protocol.RealtimeCarUpdate]
	BroadcastingEvent Observable[*protocol.BroadcastingEvent]
}
