package mdview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController() (*SelectionController, *SelectionModel) {
	m := newTestModel(buildLayout(Point{}, "hello"))
	return NewSelectionController(m), m
}

func TestControllerDragSelects(t *testing.T) {
	sc, m := newTestController()

	sc.HandlePointer(PointerEvent{Point: Point{X: 1, Y: 10}, Phase: PointerDown})
	require.NotNil(t, m.SelectedRange())
	assert.True(t, m.SelectedRange().IsCollapsed())

	sc.HandlePointer(PointerEvent{Point: Point{X: 49, Y: 10}, Phase: PointerMove})
	r := m.SelectedRange()
	require.NotNil(t, r)
	assert.False(t, r.IsCollapsed())
	assert.Equal(t, "hello", m.Text(*r))

	sc.HandlePointer(PointerEvent{Point: Point{X: 49, Y: 10}, Phase: PointerUp})
	assert.NotNil(t, m.SelectedRange(), "selection survives release")
}

func TestControllerDragBackwards(t *testing.T) {
	sc, m := newTestController()
	sc.HandlePointer(PointerEvent{Point: Point{X: 49, Y: 10}, Phase: PointerDown})
	sc.HandlePointer(PointerEvent{Point: Point{X: 1, Y: 10}, Phase: PointerMove})
	r := m.SelectedRange()
	require.NotNil(t, r)
	// Range normalizes regardless of drag direction.
	assert.True(t, r.Start().Compare(r.End()) < 0)
	assert.Equal(t, "hello", m.Text(*r))
}

func TestControllerClickClears(t *testing.T) {
	sc, m := newTestController()
	sc.HandlePointer(PointerEvent{Point: Point{X: 25, Y: 10}, Phase: PointerDown})
	assert.NotNil(t, m.SelectedRange())
	sc.HandlePointer(PointerEvent{Point: Point{X: 25, Y: 10}, Phase: PointerUp})
	assert.Nil(t, m.SelectedRange(), "plain click leaves no collapsed selection")
}

func TestControllerDownOutsideClears(t *testing.T) {
	sc, m := newTestController()
	m.SelectAll()
	require.NotNil(t, m.SelectedRange())
	sc.HandlePointer(PointerEvent{Point: Point{X: 400, Y: 400}, Phase: PointerDown})
	assert.Nil(t, m.SelectedRange())
}

func TestControllerMoveWithoutDragIgnored(t *testing.T) {
	sc, m := newTestController()
	sc.HandlePointer(PointerEvent{Point: Point{X: 25, Y: 10}, Phase: PointerMove})
	assert.Nil(t, m.SelectedRange())
	sc.HandlePointer(PointerEvent{Point: Point{X: 25, Y: 10}, Phase: PointerUp})
	assert.Nil(t, m.SelectedRange())
}

func TestControllerCopy(t *testing.T) {
	sc, m := newTestController()
	var clipped string
	sc.Clipboard = func(text string) { clipped = text }

	assert.False(t, sc.CanCopy())
	assert.Empty(t, sc.Copy())

	m.SelectAll()
	assert.True(t, sc.CanCopy())
	assert.Equal(t, "hello", sc.Copy())
	assert.Equal(t, "hello", clipped)
}

func TestControllerSelectAllAndClear(t *testing.T) {
	sc, m := newTestController()
	sc.SelectAll()
	require.NotNil(t, m.SelectedRange())
	sc.ClearSelection()
	assert.Nil(t, m.SelectedRange())
}

func TestControllerCursor(t *testing.T) {
	sc, _ := newTestController()
	assert.Equal(t, CursorText, sc.Cursor(Point{X: 25, Y: 10}))
	assert.Equal(t, CursorDefault, sc.Cursor(Point{X: 400, Y: 400}))
}
