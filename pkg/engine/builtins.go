package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/deform/pkg/session"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or offset.
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X(), v.vec.Y(), v.vec.Z())
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpHandle is returned by `handle` so later forms can refer to it.
type sexpHandle struct {
	vid int
}

func (h *sexpHandle) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(handle %d)", h.vid)
}
func (h *sexpHandle) Type() *zygo.RegisteredType { return nil }

// sexpSelection is returned by `pick`. The vertex it lands on is only
// known once the edits run against a mesh, so it stands for "whatever
// is selected then".
type sexpSelection struct{}

func (sexpSelection) SexpString(ps *zygo.PrintState) string { return "(selected)" }
func (sexpSelection) Type() *zygo.RegisteredType          { return nil }

// target resolves the optional first argument of move and drop: nothing
// or a pick result means the selection, anything else a vertex.
func target(positional []zygo.Sexp) (vid int, selected bool, err error) {
	switch len(positional) {
	case 0:
		return 0, true, nil
	case 1:
		if _, ok := positional[0].(sexpSelection); ok {
			return 0, true, nil
		}
		vid, err := toVID(positional[0])
		return vid, false, err
	}
	return 0, false, fmt.Errorf("expected at most one handle, vertex index or pick, got %d", len(positional))
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toVID extracts a vertex index from an integer or a handle reference.
func toVID(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		if v.Val < 0 {
			return 0, fmt.Errorf("vertex index must be non-negative, got %d", v.Val)
		}
		return int(v.Val), nil
	case *sexpHandle:
		return v.vid, nil
	}
	return 0, fmt.Errorf("expected vertex index or handle, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a point from a sexpVec3.
func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// recorder collects the edits a script emits, in call order.
type recorder struct {
	edits []session.Edit
}

func (r *recorder) add(e session.Edit) {
	r.edits = append(r.edits, e)
}

// registerBuiltins installs the handle-script builtins into a zygomys
// environment. Each builtin appends to rec; nothing touches a session
// until the caller applies the recorded edits.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, rec *recorder) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v mgl64.Vec3
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// (handle 42)
	env.AddFunction("handle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("handle requires a vertex index")
		}
		vid, err := toVID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("handle: %w", err)
		}
		rec.add(session.Edit{Kind: session.EditHandle, VID: vid})
		return &sexpHandle{vid: vid}, nil
	})

	// (pick (vec3 0.1 2.5 0))
	env.AddFunction("pick", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("pick requires a surface point")
		}
		p, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pick: %w", err)
		}
		rec.add(session.Edit{Kind: session.EditPick, Point: p})
		return sexpSelection{}, nil
	})

	// (move h :to (vec3 0 0 1)), (move 42 :by (vec3 0 0 1)),
	// (move (pick p) :by d) or (move :by d) for the selected handle
	env.AddFunction("move", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		vid, selected, err := target(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move: %w", err)
		}

		to, hasTo := pa.kw["to"]
		by, hasBy := pa.kw["by"]
		var e session.Edit
		switch {
		case hasTo && hasBy:
			return zygo.SexpNull, fmt.Errorf("move: :to and :by are mutually exclusive")
		case hasTo:
			p, err := toVec3(to)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("move: to: %w", err)
			}
			e = session.Edit{Kind: session.EditMove, VID: vid, Point: p}
			if selected {
				e = session.Edit{Kind: session.EditMoveSelected, Point: p}
			}
		case hasBy:
			d, err := toVec3(by)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("move: by: %w", err)
			}
			e = session.Edit{Kind: session.EditNudge, VID: vid, Point: d}
			if selected {
				e = session.Edit{Kind: session.EditNudgeSelected, Point: d}
			}
		default:
			return zygo.SexpNull, fmt.Errorf("move requires :to or :by")
		}
		rec.add(e)
		if selected {
			return sexpSelection{}, nil
		}
		return &sexpHandle{vid: vid}, nil
	})

	// (drop h), (drop 42) or (drop) for the selected handle
	env.AddFunction("drop", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		vid, selected, err := target(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("drop: %w", err)
		}
		if selected {
			rec.add(session.Edit{Kind: session.EditDropSelected})
		} else {
			rec.add(session.Edit{Kind: session.EditDrop, VID: vid})
		}
		return zygo.SexpNull, nil
	})

	// (clear-handles)
	env.AddFunction("clear_handles", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 0 {
			return zygo.SexpNull, fmt.Errorf("clear-handles takes no arguments")
		}
		rec.add(session.Edit{Kind: session.EditClear})
		return zygo.SexpNull, nil
	})
}
