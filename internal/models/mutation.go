package models

// MutationKind classifies one visible change made during replay.
type MutationKind string

const (
	MutationPointer   MutationKind = "pointer"
	MutationMarker    MutationKind = "marker"
	MutationInputType MutationKind = "input_type"
	MutationValue     MutationKind = "value"
	MutationSelect    MutationKind = "select"
	MutationScroll    MutationKind = "scroll"
	MutationResize    MutationKind = "resize"
)

// Mutation describes a single change the replay executor applied. Fields
// that do not apply to Kind are left zero.
type Mutation struct {
	RunID      string       `json:"run_id,omitempty"`
	Seq        int          `json:"seq"`
	EventIndex int          `json:"event_index"`
	EventType  EventType    `json:"event_type"`
	Kind       MutationKind `json:"kind"`
	X          int          `json:"x,omitempty"`
	Y          int          `json:"y,omitempty"`
	Width      int          `json:"width,omitempty"`
	Height     int          `json:"height,omitempty"`
	Value      string       `json:"value,omitempty"`
	Label      string       `json:"label,omitempty"`
}
