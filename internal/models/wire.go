package models

// WireTarget is the element state a page shim reports with each event.
type WireTarget struct {
	ID            string `json:"id"`
	NodeName      string `json:"node_name"`
	Type          string `json:"type,omitempty"`
	Value         string `json:"value,omitempty"`
	Checked       bool   `json:"checked,omitempty"`
	SelectedIndex *int   `json:"selected_index,omitempty"`
	Target        string `json:"target,omitempty"` // anchor navigation target
}

// WireEvent is a raw interaction event as posted by a page shim. The
// optional page fields update the headless document before dispatch.
type WireEvent struct {
	Type      EventType   `json:"type"`
	ClientX   int         `json:"client_x"`
	ClientY   int         `json:"client_y"`
	Target    *WireTarget `json:"target,omitempty"`
	KeyCode   int         `json:"key_code,omitempty"`
	Which     int         `json:"which,omitempty"`
	Button    int         `json:"button,omitempty"`
	Key       string      `json:"key,omitempty"`
	Clipboard any         `json:"clipboard,omitempty"`
	Scale     float64     `json:"scale,omitempty"`
	ScrollX   *int        `json:"scroll_x,omitempty"`
	ScrollY   *int        `json:"scroll_y,omitempty"`
	Viewport  *Dimension  `json:"viewport,omitempty"`
	Angle     *int        `json:"angle,omitempty"`
}

type Batch struct {
	Events []WireEvent `json:"events"`
}
