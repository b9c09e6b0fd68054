package observer

import "github.com/nerrad567/irhvac-core/internal/hvac"

// Fanout broadcasts to several targets. The exclude slot applies to the
// first target only, which is the pool commands arrive from.
type Fanout []hvac.Broadcaster

// Broadcast implements hvac.Broadcaster.
func (f Fanout) Broadcast(msg hvac.StateMessage, exclude int) {
	for i, b := range f {
		if b == nil {
			continue
		}
		if i == 0 {
			b.Broadcast(msg, exclude)
			continue
		}
		b.Broadcast(msg, hvac.NoSlot)
	}
}
