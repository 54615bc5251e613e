package capture

import "github.com/vincentbai/browsetrace-replay/internal/models"

type dragFlag int

const (
	dragIdle dragFlag = iota
	dragMoved
)

// dragTracker infers dragging from the down/move/up sequence alone.
type dragTracker struct {
	flag dragFlag
}

// observe updates the flag for t and reports whether t ends a drag. Moves
// only count when movement tracking is on.
func (d *dragTracker) observe(t models.EventType, trackMouseMove bool) bool {
	switch t {
	case models.MouseDown:
		d.flag = dragIdle
	case models.MouseMove:
		if trackMouseMove {
			d.flag = dragMoved
		}
	case models.MouseUp:
		return d.flag == dragMoved
	}
	return false
}
