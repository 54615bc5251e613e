// Package surface defines the capability sets the capture and playback
// engines depend on, plus a headless in-memory implementation of both.
package surface

import "github.com/vincentbai/browsetrace-replay/internal/models"

// Handler reacts to one dispatched raw event.
type Handler func(models.RawEvent)

// InputSource produces raw interaction events.
type InputSource interface {
	// Subscribe registers h for events of type t. The returned func removes
	// the registration; calling it more than once is harmless.
	Subscribe(t models.EventType, h Handler) (cancel func())
	ScrollOffset() (x, y int)
	Viewport() models.Dimension
	OrientationAngle() int
	// Body and Screen are the surrogate targets for resize and orientation
	// events.
	Body() models.Element
	Screen() models.Element
}

// RenderSurface accepts replay mutations.
type RenderSurface interface {
	Root() models.Element
	CreateElement(tag string) models.Element
	AppendChild(child models.Element)
	SetStyle(el models.Element, property, value string)
	ScrollTo(x, y int)
	Resize(el models.Element, width, height int)
}
