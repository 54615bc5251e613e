package playback

import (
	"strconv"

	"github.com/vincentbai/browsetrace-replay/internal/models"
	"github.com/vincentbai/browsetrace-replay/internal/surface"
)

const (
	pointerClass = "fa fa-mouse-pointer mouse-pointer"
	markerClass  = "fa fa-circle mouse-event"

	typeChangedFromAttr = "data-type-changed-from"
)

// Executor applies the visible effect of one event to a render surface.
type Executor struct {
	surface       surface.RenderSurface
	pointer       models.Element
	recorder      Recorder
	clickSequence int
	seq           int
}

// NewExecutor creates the pointer marker and attaches it to s.
func NewExecutor(s surface.RenderSurface, recorder Recorder) *Executor {
	pointer := s.CreateElement("i")
	pointer.SetAttr("class", pointerClass)
	s.AppendChild(pointer)
	return &Executor{surface: s, pointer: pointer, recorder: recorder}
}

// Pointer is the element that follows recorded pointer positions.
func (x *Executor) Pointer() models.Element { return x.pointer }

// ClickSequence is the label of the last click marker.
func (x *Executor) ClickSequence() int { return x.clickSequence }

// Execute applies event, recorded at index in its log. Types without a
// visible effect, or events missing what the effect needs, are skipped.
func (x *Executor) Execute(index int, event models.Event) {
	switch {
	case event.Type.IsPointer():
		x.pointerEvent(index, event)
	case event.Type.IsKey():
		x.keyEvent(index, event)
	case event.Type == models.Change:
		x.changeEvent(index, event)
	case event.Type == models.Scroll:
		if v, ok := event.Value.(models.ScrollValue); ok {
			x.surface.ScrollTo(v.X, v.Y)
			x.record(index, event.Type, models.Mutation{Kind: models.MutationScroll, X: v.X, Y: v.Y})
		}
	case event.Type == models.Resize:
		if v, ok := event.Value.(models.ResizeValue); ok {
			target := event.Target
			if target == nil {
				target = x.surface.Root()
			}
			x.surface.Resize(target, v.Width, v.Height)
			x.record(index, event.Type, models.Mutation{Kind: models.MutationResize, Width: v.Width, Height: v.Height})
		}
	}
}

func (x *Executor) pointerEvent(index int, event models.Event) {
	pos, ok := event.Value.(models.Positioned)
	if !ok {
		return
	}
	px, py := pos.Position()
	x.position(x.pointer, px, py)
	x.record(index, event.Type, models.Mutation{Kind: models.MutationPointer, X: px, Y: py})

	marker := x.surface.CreateElement("i")
	marker.SetAttr("class", markerClass+" "+string(event.Type))
	var label string
	if event.Type == models.Click {
		x.clickSequence++
		label = strconv.Itoa(x.clickSequence)
		marker.SetText(label)
	}
	x.surface.AppendChild(marker)
	x.position(marker, px, py)
	x.record(index, event.Type, models.Mutation{Kind: models.MutationMarker, X: px, Y: py, Label: label})
}

// keyEvent writes the recorded value into the field. Password fields are
// switched to plain text first so the value shows up in the replay; the
// original type is kept in an attribute and never restored.
func (x *Executor) keyEvent(index int, event models.Event) {
	v, ok := event.Value.(models.KeyValue)
	if !ok || event.Target == nil {
		return
	}
	if event.Target.Attr("type") == "password" {
		event.Target.SetAttr("type", "text")
		event.Target.SetAttr(typeChangedFromAttr, "password")
		x.record(index, event.Type, models.Mutation{Kind: models.MutationInputType, Value: "text"})
	}
	event.Target.SetValue(v.Value)
	x.record(index, event.Type, models.Mutation{Kind: models.MutationValue, Value: v.Value})
}

func (x *Executor) changeEvent(index int, event models.Event) {
	v, ok := event.Value.(models.ChangeValue)
	if !ok || v.SelectedIndex == nil || event.Target == nil {
		return
	}
	event.Target.SetSelectedIndex(*v.SelectedIndex)
	x.record(index, event.Type, models.Mutation{Kind: models.MutationSelect, Value: strconv.Itoa(*v.SelectedIndex)})
}

func (x *Executor) position(el models.Element, px, py int) {
	x.surface.SetStyle(el, "top", strconv.Itoa(py)+"px")
	x.surface.SetStyle(el, "left", strconv.Itoa(px)+"px")
}

func (x *Executor) record(index int, t models.EventType, m models.Mutation) {
	if x.recorder == nil {
		return
	}
	x.seq++
	m.Seq = x.seq
	m.EventIndex = index
	m.EventType = t
	x.recorder.Record(m)
}
