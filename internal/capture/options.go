package capture

import "github.com/vincentbai/browsetrace-replay/internal/models"

// F5
const defaultRefreshKeyCode = 116

// Options configures an Engine. Start from DefaultOptions; the zero value
// turns off pointer movement and window resize tracking.
type Options struct {
	TrackWindowResize           bool
	TrackMouseMove              bool
	MouseMoveThreshold          int   // pixels
	MouseMoveElapsedMsThreshold int64 // milliseconds
	RefreshKeyCode              int
	OnUserLeaving               func(models.Log)
}

func DefaultOptions() Options {
	return Options{
		TrackWindowResize:           true,
		TrackMouseMove:              true,
		MouseMoveThreshold:          100,
		MouseMoveElapsedMsThreshold: 1000,
		RefreshKeyCode:              defaultRefreshKeyCode,
	}
}

var baseEventTypes = []models.EventType{
	models.MouseDown, models.MouseUp, models.Click, models.DoubleClick,
	models.KeyDown, models.KeyPress, models.KeyUp,
	models.Copy, models.Cut, models.Paste,
	models.Change, models.Submit, models.Reset,
	models.Scroll, models.OrientationChange, models.GestureEnd,
}

// eventTypes lists every type the engine subscribes to under opts.
func (opts Options) eventTypes() []models.EventType {
	types := append([]models.EventType(nil), baseEventTypes...)
	if opts.TrackMouseMove {
		types = append(types, models.MouseMove)
	}
	if opts.TrackWindowResize {
		types = append(types, models.Resize)
	}
	if opts.OnUserLeaving != nil {
		types = append(types, models.BeforeUnload)
	}
	return types
}
