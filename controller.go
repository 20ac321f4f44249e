package mdview

// PointerPhase is the stage of a pointer gesture.
type PointerPhase int

const (
	PointerDown PointerPhase = iota
	PointerMove
	PointerUp
)

// PointerEvent is a platform-neutral pointer sample in document
// coordinates.
type PointerEvent struct {
	Point Point
	Phase PointerPhase
}

// CursorShape is the affordance a host should show for a pointer location.
type CursorShape int

const (
	CursorDefault CursorShape = iota
	CursorText
)

type controllerState int

const (
	controllerIdle controllerState = iota
	controllerDragging
)

// SelectionController turns pointer events into selection updates against a
// SelectionModel. The controller owns the model handle; the model reports
// changes through its will/did-change hooks, so no back-reference exists.
type SelectionController struct {
	model  *SelectionModel
	state  controllerState
	anchor Position

	// Clipboard receives the selected text on Copy. Nil disables copying.
	Clipboard func(text string)
}

// NewSelectionController wires a controller to its model.
func NewSelectionController(model *SelectionModel) *SelectionController {
	return &SelectionController{model: model}
}

// Model returns the underlying selection model.
func (sc *SelectionController) Model() *SelectionModel { return sc.model }

// HandlePointer feeds one pointer event through the Idle/Dragging state
// machine. A press outside any text hit rect clears the selection; a
// release that leaves a collapsed range clears it too, so no stuck
// zero-width selection survives a plain click.
func (sc *SelectionController) HandlePointer(ev PointerEvent) {
	switch ev.Phase {
	case PointerDown:
		if !sc.model.ContainsText(ev.Point) {
			sc.state = controllerIdle
			sc.model.ClearSelection()
			return
		}
		p := sc.model.ClosestPosition(ev.Point)
		if p == nil {
			sc.state = controllerIdle
			sc.model.ClearSelection()
			return
		}
		sc.anchor = *p
		sc.state = controllerDragging
		r := NewRange(sc.anchor, sc.anchor)
		sc.model.SetSelectedRange(&r)
	case PointerMove:
		if sc.state != controllerDragging {
			return
		}
		p := sc.model.ClosestPosition(ev.Point)
		if p == nil {
			return
		}
		r := NewRange(sc.anchor, *p)
		sc.model.SetSelectedRange(&r)
	case PointerUp:
		if sc.state != controllerDragging {
			return
		}
		sc.state = controllerIdle
		if r := sc.model.SelectedRange(); r != nil && r.IsCollapsed() {
			sc.model.ClearSelection()
		}
	}
}

// SelectAll selects the whole document.
func (sc *SelectionController) SelectAll() { sc.model.SelectAll() }

// ClearSelection drops the selection.
func (sc *SelectionController) ClearSelection() { sc.model.ClearSelection() }

// CanCopy reports whether a Copy action should be enabled: only a
// non-collapsed selection has anything to put on the clipboard.
func (sc *SelectionController) CanCopy() bool {
	r := sc.model.SelectedRange()
	return r != nil && !r.IsCollapsed()
}

// Copy sends the selected text to the clipboard callback. Returns the
// copied text, empty when nothing was copied.
func (sc *SelectionController) Copy() string {
	if !sc.CanCopy() {
		return ""
	}
	text := sc.model.Text(*sc.model.SelectedRange())
	if text != "" && sc.Clipboard != nil {
		sc.Clipboard(text)
	}
	return text
}

// Cursor returns the pointer affordance for a location: a text cursor over
// (or near) laid-out text, the default arrow elsewhere.
func (sc *SelectionController) Cursor(pt Point) CursorShape {
	if sc.model.ContainsText(pt) {
		return CursorText
	}
	return CursorDefault
}
