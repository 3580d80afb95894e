package session

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// EditKind enumerates scripted handle operations.
type EditKind int

const (
	EditPick   EditKind = iota // snap Point to a vertex and add a handle there
	EditHandle                 // add a handle at VID
	EditMove                   // set the updated position of VID to Point
	EditNudge                  // offset the updated position of VID by Point
	EditDrop                   // remove the handle at VID
	EditClear                  // remove every handle

	EditMoveSelected  // set the updated position of the selected handle to Point
	EditNudgeSelected // offset the updated position of the selected handle by Point
	EditDropSelected  // remove the selected handle
)

func (k EditKind) String() string {
	switch k {
	case EditPick:
		return "pick"
	case EditHandle:
		return "handle"
	case EditMove:
		return "move"
	case EditNudge:
		return "nudge"
	case EditDrop:
		return "drop"
	case EditClear:
		return "clear"
	case EditMoveSelected:
		return "move-selected"
	case EditNudgeSelected:
		return "nudge-selected"
	case EditDropSelected:
		return "drop-selected"
	default:
		return "unknown"
	}
}

// Edit is one recorded handle operation.
type Edit struct {
	Kind  EditKind
	VID   int
	Point mgl64.Vec3
}

func (e Edit) String() string {
	switch e.Kind {
	case EditPick:
		return fmt.Sprintf("(pick %v)", e.Point)
	case EditMove, EditNudge:
		return fmt.Sprintf("(%s %d %v)", e.Kind, e.VID, e.Point)
	case EditClear:
		return "(clear)"
	case EditMoveSelected, EditNudgeSelected:
		return fmt.Sprintf("(%s %v)", e.Kind, e.Point)
	case EditDropSelected:
		return "(drop-selected)"
	default:
		return fmt.Sprintf("(%s %d)", e.Kind, e.VID)
	}
}

// Apply runs edits in order and stops at the first failure. Dropping a
// vertex without a handle, or dropping with nothing selected, is not an
// error. The selection edits act on whatever the last pick or handle
// edit selected.
func (s *Session) Apply(edits []Edit) error {
	for i, e := range edits {
		var err error
		switch e.Kind {
		case EditPick:
			_, err = s.Pick(e.Point)
		case EditHandle:
			_, err = s.AddHandle(e.VID)
		case EditMove:
			err = s.Move(e.VID, e.Point)
		case EditNudge:
			err = s.Nudge(e.VID, e.Point)
		case EditDrop:
			s.Remove(e.VID)
		case EditClear:
			s.DeleteAll()
		case EditMoveSelected:
			err = s.MoveSelected(e.Point)
		case EditNudgeSelected:
			err = s.NudgeSelected(e.Point)
		case EditDropSelected:
			s.DeleteSelected()
		default:
			err = errors.Errorf("unknown edit kind %d", e.Kind)
		}
		if err != nil {
			return errors.Wrapf(err, "session: edit %d %s", i, e)
		}
	}
	return nil
}
