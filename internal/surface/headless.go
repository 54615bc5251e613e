package surface

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/vincentbai/browsetrace-replay/internal/models"
)

// Node is an in-memory element.
type Node struct {
	mu            sync.Mutex
	id            string
	nodeName      string
	attrs         map[string]string
	style         map[string]string
	value         string
	checked       bool
	selectedIndex int
	text          string
	children      []*Node
}

// NewNode creates a detached element. nodeName is upper-cased the way
// browsers report it.
func NewNode(id, nodeName string) *Node {
	return &Node{
		id:            id,
		nodeName:      strings.ToUpper(nodeName),
		attrs:         make(map[string]string),
		style:         make(map[string]string),
		selectedIndex: -1,
	}
}

func (n *Node) ID() string       { return n.id }
func (n *Node) NodeName() string { return n.nodeName }

func (n *Node) Attr(name string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attrs[name]
}

func (n *Node) SetAttr(name, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attrs[name] = value
}

func (n *Node) Value() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.value
}

func (n *Node) SetValue(value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.value = value
}

func (n *Node) Checked() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.checked
}

func (n *Node) SetChecked(checked bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.checked = checked
}

func (n *Node) SelectedIndex() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.selectedIndex
}

func (n *Node) SetSelectedIndex(index int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.selectedIndex = index
}

func (n *Node) Text() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.text
}

func (n *Node) SetText(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text = text
}

func (n *Node) Style(property string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.style[property]
}

func (n *Node) SetStyle(property, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.style[property] = value
}

func (n *Node) AppendChild(child *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.children = append(n.children, child)
}

// Children returns a copy of the direct children.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// HasClass reports whether the class attribute contains class.
func (n *Node) HasClass(class string) bool {
	for _, c := range strings.Fields(n.Attr("class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Document is a headless page: it dispatches raw events to subscribers and
// applies render mutations to its body.
type Document struct {
	mu       sync.Mutex
	handlers map[models.EventType]map[int]Handler
	nextID   int
	elements map[string]*Node
	created  int
	scrollX  int
	scrollY  int
	viewport models.Dimension
	angle    int
	body     *Node
	screen   *Node

	// dispatchMu serializes handler execution so a handler never runs
	// concurrently with another.
	dispatchMu sync.Mutex
}

func NewDocument(viewport models.Dimension) *Document {
	return &Document{
		handlers: make(map[models.EventType]map[int]Handler),
		elements: make(map[string]*Node),
		viewport: viewport,
		body:     NewNode("body", "BODY"),
		screen:   NewNode("screen", "SCREEN"),
	}
}

func (d *Document) Subscribe(t models.EventType, h Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	if d.handlers[t] == nil {
		d.handlers[t] = make(map[int]Handler)
	}
	d.handlers[t][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.handlers[t], id)
		})
	}
}

// Subscribers reports how many handlers are registered for t.
func (d *Document) Subscribers(t models.EventType) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers[t])
}

// Dispatch delivers raw to every handler subscribed to its type, in
// subscription order.
func (d *Document) Dispatch(raw models.RawEvent) {
	d.mu.Lock()
	registered := d.handlers[raw.Type]
	ids := make([]int, 0, len(registered))
	for id := range registered {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, registered[id])
	}
	d.mu.Unlock()

	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()
	for _, h := range handlers {
		h(raw)
	}
}

// Element returns the element registered under id, creating it with
// nodeName when it does not exist yet.
func (d *Document) Element(id, nodeName string) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch id {
	case "body":
		return d.body
	case "screen":
		return d.screen
	}
	if n, ok := d.elements[id]; ok {
		return n
	}
	n := NewNode(id, nodeName)
	d.elements[id] = n
	return n
}

func (d *Document) ScrollOffset() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scrollX, d.scrollY
}

func (d *Document) SetScrollOffset(x, y int) {
	d.ScrollTo(x, y)
}

func (d *Document) Viewport() models.Dimension {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewport
}

func (d *Document) SetViewport(viewport models.Dimension) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewport = viewport
}

func (d *Document) OrientationAngle() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.angle
}

func (d *Document) SetOrientationAngle(angle int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.angle = angle
}

func (d *Document) Body() models.Element   { return d.body }
func (d *Document) Screen() models.Element { return d.screen }

// BodyNode exposes the body for inspection.
func (d *Document) BodyNode() *Node { return d.body }

func (d *Document) Root() models.Element { return d.body }

func (d *Document) CreateElement(tag string) models.Element {
	d.mu.Lock()
	d.created++
	id := tag + "-" + strconv.Itoa(d.created)
	d.mu.Unlock()
	return NewNode(id, tag)
}

// AppendChild attaches child to the body. Elements not created by a
// headless document are ignored.
func (d *Document) AppendChild(child models.Element) {
	if n, ok := child.(*Node); ok {
		d.body.AppendChild(n)
	}
}

func (d *Document) SetStyle(el models.Element, property, value string) {
	if n, ok := el.(*Node); ok {
		n.SetStyle(property, value)
	}
}

func (d *Document) ScrollTo(x, y int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrollX, d.scrollY = x, y
}

func (d *Document) Resize(el models.Element, width, height int) {
	d.SetStyle(el, "width", strconv.Itoa(width)+"px")
	d.SetStyle(el, "height", strconv.Itoa(height)+"px")
}

var (
	_ InputSource    = (*Document)(nil)
	_ RenderSurface  = (*Document)(nil)
	_ models.Element = (*Node)(nil)
)

// Adopt returns the element of d that corresponds to el, matched by id.
// The type attribute is carried over so replayed fields behave like the
// captured ones. Elements without an id are returned unchanged.
func (d *Document) Adopt(el models.Element) models.Element {
	if el == nil {
		return nil
	}
	src, ok := el.(interface{ ID() string })
	if !ok {
		return el
	}
	n := d.Element(src.ID(), el.NodeName())
	if n != el {
		if typ := el.Attr("type"); typ != "" && n.Attr("type") == "" {
			n.SetAttr("type", typ)
		}
	}
	return n
}
