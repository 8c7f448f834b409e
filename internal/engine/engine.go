// Package engine implements the position lifecycle: entry validation against
// MACD-histogram confirmation, supervision of the open position with
// stop-loss / trailing-stop / indicator-reversal exits, and the idempotent
// exit path. One position exists process-wide; all state transitions run
// under a single mutex and are persisted through the position store.
package engine

import (
	"errors"
	"sync"
	"time"

	"kite-futures-bot/internal/interfaces"
	"kite-futures-bot/internal/store"
	"kite-futures-bot/internal/types"
)

// Entry rejection taxonomy. These are business outcomes, not faults; the
// intake layer maps them to responses without a stack trace.
var (
	ErrInvalidSignal   = errors.New("invalid signal direction")
	ErrAlreadyActive   = errors.New("position already active")
	ErrNoConfirmation  = errors.New("no indicator confirmation")
	ErrDataUnavailable = errors.New("market data unavailable")
)

type Engine struct {
	cfg *store.Config
	brk interfaces.Broker
	st  *store.PositionStore

	// mu serializes every read-then-mutate-then-persist sequence across
	// the entry controller, the monitor cycle and the exit controller.
	mu sync.Mutex

	// cached is the last known good position, used when a store read
	// fails so the engine keeps operating and retries persistence on the
	// next mutation.
	cached types.Position

	// dirty is set when the durable write of cached failed. While set,
	// cached is authoritative over the (stale) on-disk record and every
	// state access first retries the write.
	dirty bool

	fiveMin   *boundaryGate
	thirtyMin *boundaryGate

	lastStatusMinute int

	now func() time.Time
}

func New(cfg *store.Config, brk interfaces.Broker, st *store.PositionStore) *Engine {
	return &Engine{
		cfg:              cfg,
		brk:              brk,
		st:               st,
		cached:           types.EmptyPosition(),
		fiveMin:          newBoundaryGate(5),
		thirtyMin:        newBoundaryGate(30),
		lastStatusMinute: -1,
		now:              time.Now,
	}
}
