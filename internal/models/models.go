package models

// EventType names one interaction kind as dispatched by the input source.
type EventType string

const (
	MouseDown         EventType = "mousedown"
	MouseUp           EventType = "mouseup"
	MouseMove         EventType = "mousemove"
	Click             EventType = "click"
	DoubleClick       EventType = "dblclick"
	KeyDown           EventType = "keydown"
	KeyPress          EventType = "keypress"
	KeyUp             EventType = "keyup"
	Copy              EventType = "copy"
	Cut               EventType = "cut"
	Paste             EventType = "paste"
	Change            EventType = "change"
	Submit            EventType = "submit"
	Reset             EventType = "reset"
	Scroll            EventType = "scroll"
	Resize            EventType = "resize"
	OrientationChange EventType = "orientationchange"
	GestureEnd        EventType = "gestureend"
	BeforeUnload      EventType = "beforeunload"
)

// IsPointer reports whether t carries a pointer position.
func (t EventType) IsPointer() bool {
	switch t {
	case MouseDown, MouseUp, MouseMove, Click, DoubleClick:
		return true
	}
	return false
}

// IsKey reports whether t is a keyboard event.
func (t EventType) IsKey() bool {
	return t == KeyDown || t == KeyPress || t == KeyUp
}

// IsClipboard reports whether t is a clipboard event.
func (t EventType) IsClipboard() bool {
	return t == Copy || t == Cut || t == Paste
}

// Element is the slice of a surface element that capture reads and replay writes.
type Element interface {
	NodeName() string
	Attr(name string) string
	SetAttr(name, value string)
	Value() string
	SetValue(value string)
	Checked() bool
	SelectedIndex() int
	SetSelectedIndex(index int)
	SetText(text string)
}

// RawEvent is one interaction event as handed over by the input source.
type RawEvent struct {
	Type      EventType
	ClientX   int
	ClientY   int
	Target    Element
	KeyCode   int
	Which     int
	Button    int
	Key       string
	Clipboard any
	Scale     float64
}

// Dimension is a surface size in pixels.
type Dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Event is one recorded interaction. Value is nil for submit, reset and
// beforeunload.
type Event struct {
	Type      EventType `json:"type"`
	Value     Value     `json:"value"`
	Target    Element   `json:"-"`
	ElapsedMs int64     `json:"elapsed_ms"`
}

// Log is the ordered sequence of recorded events.
type Log []Event

// Snapshot returns a copy that later appends to l cannot affect.
func (l Log) Snapshot() Log {
	if l == nil {
		return nil
	}
	out := make(Log, len(l))
	copy(out, l)
	return out
}

// TotalElapsedMs sums the recorded delays of the log.
func (l Log) TotalElapsedMs() int64 {
	var total int64
	for _, e := range l {
		total += e.ElapsedMs
	}
	return total
}
