package capture

import (
	"github.com/vincentbai/browsetrace-replay/internal/models"
	"github.com/vincentbai/browsetrace-replay/internal/surface"
)

// normalize maps a raw event to its recorded payload and target. Pointer
// movement is handled by the engine because it is threshold filtered. ok is
// false for types the engine does not record.
func normalize(raw models.RawEvent, src surface.InputSource, dragging bool) (models.Value, models.Element, bool) {
	target := raw.Target
	switch {
	case raw.Type == models.MouseMove:
		x, y := pagePosition(raw, src)
		return models.MoveValue{X: x, Y: y}, target, true

	case raw.Type.IsPointer():
		x, y := pagePosition(raw, src)
		left, middle, right := resolveButton(raw.Which, raw.Button)
		code := raw.Which
		if code == 0 {
			code = raw.Button
		}
		return models.PointerValue{
			X:        x,
			Y:        y,
			Dragging: dragging,
			Left:     left,
			Middle:   middle,
			Right:    right,
			Button:   code,
		}, target, true

	case raw.Type.IsKey():
		value := models.KeyValue{KeyCode: raw.KeyCode, Which: raw.Which, Key: raw.Key}
		if target != nil {
			value.Value = target.Value()
		}
		return value, target, true

	case raw.Type.IsClipboard():
		return models.ClipboardValue{Data: raw.Clipboard}, target, true
	}

	switch raw.Type {
	case models.Change:
		return normalizeChange(target), target, true
	case models.Scroll:
		x, y := src.ScrollOffset()
		return models.ScrollValue{X: x, Y: y}, target, true
	case models.Resize:
		viewport := src.Viewport()
		return models.ResizeValue{Width: viewport.Width, Height: viewport.Height}, src.Body(), true
	case models.OrientationChange:
		return models.OrientationValue{Angle: src.OrientationAngle()}, src.Screen(), true
	case models.GestureEnd:
		return models.GestureValue{Scale: raw.Scale, Pinch: raw.Scale < 1.0, Zoom: raw.Scale > 1.0}, target, true
	case models.Submit, models.Reset, models.BeforeUnload:
		return nil, target, true
	}
	return nil, nil, false
}

// resolveButton follows the legacy which/button codes: which 3 or button 2
// is right, which 2 or button 4 is middle, anything else is left.
func resolveButton(which, button int) (left, middle, right bool) {
	switch {
	case which == 3 || button == 2:
		return false, false, true
	case which == 2 || button == 4:
		return false, true, false
	}
	return true, false, false
}

func normalizeChange(target models.Element) models.ChangeValue {
	var value models.ChangeValue
	if target == nil {
		return value
	}
	value.Value = target.Value()
	switch target.NodeName() {
	case "INPUT":
		value.IsInput = true
		switch target.Attr("type") {
		case "checkbox":
			value.IsCheckbox = true
		case "radio":
			value.IsRadio = true
		}
		if value.IsCheckbox || value.IsRadio {
			checked := target.Checked()
			value.Checked = &checked
		} else {
			value.IsTextbox = true
		}
	case "SELECT":
		index := target.SelectedIndex()
		value.SelectedIndex = &index
	}
	return value
}

// pagePosition converts client coordinates to the scrolled page origin.
func pagePosition(raw models.RawEvent, src surface.InputSource) (int, int) {
	scrollX, scrollY := src.ScrollOffset()
	return raw.ClientX + scrollX, raw.ClientY + scrollY
}
