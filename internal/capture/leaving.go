package capture

import "github.com/vincentbai/browsetrace-replay/internal/models"

// Trigger names the signal that the user is ending the session.
type Trigger string

const (
	TriggerRefreshKey Trigger = "refresh_key"
	TriggerAnchor     Trigger = "anchor"
	TriggerSubmit     Trigger = "submit"
	TriggerUnload     Trigger = "unload"
)

// DetectLeaving reports whether raw is a leaving trigger. It has no side
// effects.
func DetectLeaving(raw models.RawEvent, refreshKeyCode int) (Trigger, bool) {
	switch raw.Type {
	case models.KeyDown:
		if raw.KeyCode == refreshKeyCode {
			return TriggerRefreshKey, true
		}
	case models.MouseDown:
		if isSameWindowAnchor(raw.Target) {
			return TriggerAnchor, true
		}
	case models.Submit:
		return TriggerSubmit, true
	case models.BeforeUnload:
		return TriggerUnload, true
	}
	return "", false
}

func isSameWindowAnchor(target models.Element) bool {
	if target == nil || target.NodeName() != "A" {
		return false
	}
	window := target.Attr("target")
	return window == "" || window == "_self"
}
