package models

// Value is the type-specific payload of an Event.
type Value interface {
	value()
}

// Positioned is implemented by payloads that carry a pointer position.
type Positioned interface {
	Position() (x, y int)
}

type PointerValue struct {
	X        int  `json:"x"`
	Y        int  `json:"y"`
	Dragging bool `json:"dragging"`
	Left     bool `json:"left"`
	Middle   bool `json:"middle"`
	Right    bool `json:"right"`
	Button   int  `json:"type"` // raw which/button code
}

type MoveValue struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type KeyValue struct {
	KeyCode int    `json:"keyCode"`
	Which   int    `json:"which"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

// ClipboardValue passes the clipboard payload through untouched.
type ClipboardValue struct {
	Data any `json:"data"`
}

// ChangeValue describes a form field after a change event. Checked is set
// only for checkboxes and radios, SelectedIndex only for selection lists.
type ChangeValue struct {
	IsInput       bool   `json:"isInput"`
	IsCheckbox    bool   `json:"isCheckbox"`
	IsRadio       bool   `json:"isRadio"`
	IsTextbox     bool   `json:"isTextbox"`
	Value         string `json:"value"`
	Checked       *bool  `json:"checked,omitempty"`
	SelectedIndex *int   `json:"selectedIndex,omitempty"`
}

type ScrollValue struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type ResizeValue struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type OrientationValue struct {
	Angle int `json:"angle"`
}

// GestureValue holds the final scale of a gesture. At most one of Pinch and
// Zoom is true.
type GestureValue struct {
	Scale float64 `json:"scale"`
	Pinch bool    `json:"pinch"`
	Zoom  bool    `json:"zoom"`
}

func (PointerValue) value()     {}
func (MoveValue) value()        {}
func (KeyValue) value()         {}
func (ClipboardValue) value()   {}
func (ChangeValue) value()      {}
func (ScrollValue) value()      {}
func (ResizeValue) value()      {}
func (OrientationValue) value() {}
func (GestureValue) value()     {}

func (v PointerValue) Position() (int, int) { return v.X, v.Y }
func (v MoveValue) Position() (int, int)    { return v.X, v.Y }
