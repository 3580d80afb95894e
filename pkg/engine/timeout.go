package engine

import (
	"context"
	"time"

	"github.com/chazu/deform/pkg/session"
	"github.com/pkg/errors"
)

// EvalTimeout is the default limit for a single script.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine timeout.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded is returned when a newer Evaluate call started
	// before this one finished.
	ErrSuperseded = errors.New("engine: evaluation superseded by a newer script")
)

// outcome is what the evaluating goroutine reports.
type outcome struct {
	edits []session.Edit
	errs  []EvalError
	err   error
}

// await waits for the evaluation of generation gen. A script that
// outlives ctx keeps running in its sandbox, but its edits are never
// returned.
func (e *Engine) await(ctx context.Context, gen uint64, ch <-chan outcome) ([]session.Edit, []EvalError, error) {
	select {
	case out := <-ch:
		if cur := e.current(); cur != gen {
			return nil, nil, errors.Wrapf(ErrSuperseded, "generation %d, now %d", gen, cur)
		}
		return out.edits, out.errs, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, errors.Wrapf(ErrTimeout, "generation %d", gen)
		}
		return nil, nil, errors.Wrap(ctx.Err(), "engine: evaluation cancelled")
	}
}

func (e *Engine) current() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}
