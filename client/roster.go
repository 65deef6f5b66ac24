package client

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// UnknownDriverCount marks a car that is on the entry list but whose details
// have not arrived yet.
const UnknownDriverCount = -1

// Roster tracks which cars are in the session and how many drivers each one
// had when its details were last received. Live car updates are only trusted
// when they agree with the roster.
type Roster struct {
	mu   sync.RWMutex
	cars map[uint16]int
}

func NewRoster() *Roster {
	return &Roster{cars: make(map[uint16]int)}
}

// Reset replaces the roster with exactly carIndices. Cars that stay keep
// their known driver count; new cars start unknown.
func (r *Roster) Reset(carIndices []uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.cars
	r.cars = lo.SliceToMap(carIndices, func(carIndex uint16) (uint16, int) {
		if count, ok := previous[carIndex]; ok {
			return carIndex, count
		}
		return carIndex, UnknownDriverCount
	})
}

// Record stores the driver count for a car, adding the car if needed.
func (r *Roster) Record(carIndex uint16, driverCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cars[carIndex] = driverCount
}

// Accept reports whether a live update for carIndex with driverCount matches
// the roster. Unknown cars and mismatched counts are rejected.
func (r *Roster) Accept(carIndex uint16, driverCount uint8) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	known, ok := r.cars[carIndex]
	return ok && known == int(driverCount)
}

// DriverCount returns the known driver count for a car, which may be
// UnknownDriverCount. ok is false if the car is not on the roster.
func (r *Roster) DriverCount(carIndex uint16) (count int, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count, ok = r.cars[carIndex]
	return count, ok
}

// Cars returns the car indices on the roster in ascending order.
func (r *Roster) Cars() []uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cars := lo.Keys(r.cars)
	slices.Sort(cars)
	return cars
}
