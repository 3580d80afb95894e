// Package viewer is the binding object a webview frontend calls. Every
// binding returns a JSON-ready Result; failures are reported in its
// Errors list instead of as Go errors, so the frontend can render them.
package viewer

import (
	"context"
	"log/slog"

	"github.com/chazu/deform/pkg/deform"
	"github.com/chazu/deform/pkg/handle"
	"github.com/chazu/deform/pkg/mesh"
	"github.com/chazu/deform/pkg/session"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// App holds one viewer session.
type App struct {
	session *session.Session
	log     *slog.Logger
}

// HandleData is the JSON-serializable handle format sent to the frontend.
type HandleData struct {
	VID      int        `json:"vid"`
	Original [3]float32 `json:"original"`
	Updated  [3]float32 `json:"updated"`
	Selected bool       `json:"selected"`
}

// ErrorData is a JSON-serializable error for the frontend.
type ErrorData struct {
	Message string `json:"message"`
}

// Result is returned by every binding. Positions is the triangle soup to
// draw, or nil when the binding did not change the geometry.
type Result struct {
	Positions []float32    `json:"positions"`
	Handles   []HandleData `json:"handles"`
	Errors    []ErrorData  `json:"errors"`
}

// NewApp creates an App around a new session.
func NewApp(opts ...session.Option) *App {
	s := session.New(opts...)
	return &App{session: s, log: slog.Default().With("session", s.ID().String())}
}

// Session returns the underlying session.
func (a *App) Session() *session.Session {
	return a.session
}

func (a *App) result() Result {
	return Result{
		Handles: a.handles(),
		Errors:  []ErrorData{},
	}
}

func (a *App) fail(r Result, op string, err error) Result {
	a.log.Warn(op+" failed", "err", err)
	r.Errors = append(r.Errors, ErrorData{Message: err.Error()})
	return r
}

func (a *App) handles() []HandleData {
	sel, ok := a.session.Selected()
	return lo.Map(a.session.Handles(), func(h handle.Handle, _ int) HandleData {
		return HandleData{
			VID:      h.VID,
			Original: vec32(h.Original),
			Updated:  vec32(h.Updated),
			Selected: ok && sel.VID == h.VID,
		}
	})
}

func vec32(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

// LoadMesh replaces the session mesh with a render-buffer soup, as a
// mesh loader produces it. All handles are dropped.
func (a *App) LoadMesh(positions []float32) Result {
	if _, err := a.session.Load(mesh.SoupFromFloat32(positions)); err != nil {
		return a.fail(a.result(), "load mesh", err)
	}
	r := a.result()
	r.Positions = append([]float32{}, positions...)
	return r
}

// DoubleClick places a handle at the vertex nearest the picked surface
// point and selects it.
func (a *App) DoubleClick(x, y, z float64) Result {
	if _, err := a.session.Pick(mgl64.Vec3{x, y, z}); err != nil {
		return a.fail(a.result(), "pick", err)
	}
	return a.result()
}

// DragSelected moves the selected handle to (x, y, z).
func (a *App) DragSelected(x, y, z float64) Result {
	if err := a.session.MoveSelected(mgl64.Vec3{x, y, z}); err != nil {
		return a.fail(a.result(), "drag", err)
	}
	return a.result()
}

// DeleteHandle removes the selected handle. Without a selection it does
// nothing.
func (a *App) DeleteHandle() Result {
	a.session.DeleteSelected()
	return a.result()
}

// DeleteAllHandles removes every handle.
func (a *App) DeleteAllHandles() Result {
	n := a.session.DeleteAll()
	a.log.Debug("deleted all handles", "count", n)
	return a.result()
}

// Deform sends the mesh and handles to the named model ("linear" or
// "bbw") and returns the deformed soup.
func (a *App) Deform(ctx context.Context, model string) Result {
	m, err := deform.ParseModel(model)
	if err != nil {
		return a.fail(a.result(), "deform", err)
	}
	soup, err := a.session.Deform(ctx, m)
	if err != nil {
		return a.fail(a.result(), "deform", err)
	}
	r := a.result()
	r.Positions = soup.Float32()
	return r
}

// Undeform restores the undeformed mesh. Handles are kept.
func (a *App) Undeform() Result {
	soup, err := a.session.Undeform()
	if err != nil {
		return a.fail(a.result(), "undeform", err)
	}
	r := a.result()
	r.Positions = soup.Float32()
	return r
}

// Handles returns the current handles without changing anything.
func (a *App) Handles() Result {
	return a.result()
}
