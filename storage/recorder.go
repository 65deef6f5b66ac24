package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/luma/paddock/client"
	"github.com/luma/paddock/protocol"
)

// Paths the Recorder writes to.
const (
	KeyConnection = "connection"
	KeySession    = "session"
	KeyTrack      = "track"
	KeyLastEvent  = "lastEvent"
	KeyEntries    = "entries"
	KeyCars       = "cars"
)

func EntryKey(carIndex uint16) string {
	return fmt.Sprintf("%s.car%d", KeyEntries, carIndex)
}

func CarKey(carIndex uint16) string {
	return fmt.Sprintf("%s.car%d", KeyCars, carIndex)
}

// Recorder keeps the latest broadcast state of a session in a Store. The
// document is cleared whenever a new session starts connecting.
type Recorder struct {
	store Store
	log   *zap.Logger
}

// Record subscribes a Recorder to every event stream of conn.
func Record(conn *client.Conn, store Store, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}

	r := &Recorder{store: store, log: log}

	conn.OnConnectionStateChange().Subscribe(r.connectionState)
	conn.OnTrackDataUpdate().Subscribe(r.trackData)
	conn.OnEntryListCarUpdate().Subscribe(r.entryListCar)
	conn.OnRealtimeUpdate().Subscribe(r.realtimeUpdate)
	conn.OnRealtimeCarUpdate().Subscribe(r.realtimeCarUpdate)
	conn.OnBroadcastingEvent().Subscribe(r.broadcastingEvent)

	return r
}

func (r *Recorder) connectionState(state client.ConnectionState) {
	if state.State == client.StateConnecting {
		if err := r.store.Restore([]byte("{}")); err != nil {
			r.log.Warn("Failed to reset live state", zap.Error(err))
		}
	}

	r.set(KeyConnection, map[string]string{
		"state":  state.State.String(),
		"reason": state.Reason,
	})
}

func (r *Recorder) trackData(t *protocol.TrackData) {
	r.set(KeyTrack, t)
}

func (r *Recorder) entryListCar(c *protocol.EntryListCar) {
	r.set(EntryKey(c.CarIndex), c)
}

func (r *Recorder) realtimeUpdate(u *protocol.RealtimeUpdate) {
	r.set(KeySession, u)
}

func (r *Recorder) realtimeCarUpdate(u *protocol.RealtimeCarUpdate) {
	r.set(CarKey(u.CarIndex), u)
}

func (r *Recorder) broadcastingEvent(e *protocol.BroadcastingEvent) {
	r.set(KeyLastEvent, e)
}

func (r *Recorder) set(key string, value interface{}) {
	if err := r.store.Set(context.Background(), []byte(key), value); err != nil {
		r.log.Warn("Failed to record live state",
			zap.String("key", key),
			zap.Error(err))
	}
}
