package engine

import "time"

// boundaryGate fires at most once per wall-clock block of the given width,
// within the first few seconds of the block. Heavier checks (trailing-stop
// recomputation, indicator refetch) hang off these gates instead of running
// every poll tick.
type boundaryGate struct {
	minutes   int
	lastBlock time.Time
}

func newBoundaryGate(minutes int) *boundaryGate {
	return &boundaryGate{minutes: minutes}
}

func (g *boundaryGate) Hit(now time.Time) bool {
	if now.Minute()%g.minutes != 0 || now.Second() >= 10 {
		return false
	}
	block := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(),
		(now.Minute()/g.minutes)*g.minutes, 0, 0, now.Location())
	if g.lastBlock.Equal(block) {
		return false
	}
	g.lastBlock = block
	return true
}
