package playback

import "github.com/vincentbai/browsetrace-replay/internal/models"

// Retarget returns a copy of events whose targets are mapped through adopt,
// so a log captured on one surface can be replayed on another.
func Retarget(events models.Log, adopt func(models.Element) models.Element) models.Log {
	out := events.Snapshot()
	for i := range out {
		out[i].Target = adopt(out[i].Target)
	}
	return out
}
