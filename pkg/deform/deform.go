// Package deform defines the request/response contract between the
// handle session and a remote deformation solver. The solvers and the
// transport that reaches them live outside this module.
package deform

import (
	"context"
	"encoding/json"
	"io"

	"github.com/chazu/deform/pkg/handle"
	"github.com/chazu/deform/pkg/mesh"
	"github.com/pkg/errors"
)

// Model selects the deformation algorithm on the solver side.
type Model int

const (
	Linear Model = iota // inverse-distance linear blend weights
	BBW                 // bounded biharmonic weights
)

func (m Model) String() string {
	switch m {
	case Linear:
		return "linear"
	case BBW:
		return "bbw"
	default:
		return "unknown"
	}
}

// Path returns the solver endpoint path for the model.
func (m Model) Path() string {
	return "/" + m.String()
}

// ParseModel accepts "linear" or "bbw", with or without a leading slash.
func ParseModel(s string) (Model, error) {
	if len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	switch s {
	case "linear":
		return Linear, nil
	case "bbw":
		return BBW, nil
	}
	return 0, errors.Errorf("deform: unknown model %q, expected linear or bbw", s)
}

// ErrVertexCountMismatch is returned when a response does not carry one
// position per request vertex.
var ErrVertexCountMismatch = errors.New("deform: response vertex count does not match request")

// Request is the body sent to a deformation endpoint.
type Request struct {
	Vertices []float64       `json:"vertices"` // (V * 3)
	Faces    []int           `json:"faces"`    // (F * 3) indexed into vertices
	Handles  []handle.Handle `json:"handles"`
}

// Response carries the deformed positions, aligned 1:1 with Request.Vertices.
type Response struct {
	Vertices []float64 `json:"vertices"`
}

// NewRequest builds a request from an indexed mesh and a handle list.
// All slices are copied so the caller may keep editing its state.
func NewRequest(m *mesh.Indexed, handles []handle.Handle) *Request {
	req := &Request{
		Vertices: append([]float64{}, m.Vertices...),
		Faces:    append([]int{}, m.Faces...),
		Handles:  append([]handle.Handle{}, handles...),
	}
	return req
}

// VertexCount returns the number of request vertices.
func (r *Request) VertexCount() int {
	return len(r.Vertices) / 3
}

// Validate checks the response against the request it answers.
func (r *Response) Validate(req *Request) error {
	if len(r.Vertices) != len(req.Vertices) {
		return errors.Wrapf(ErrVertexCountMismatch, "got %d values, want %d", len(r.Vertices), len(req.Vertices))
	}
	return nil
}

// Deformer computes new vertex positions for a request.
type Deformer interface {
	Deform(ctx context.Context, model Model, req *Request) (*Response, error)
}

// DeformerFunc adapts a function to the Deformer interface.
type DeformerFunc func(ctx context.Context, model Model, req *Request) (*Response, error)

// Deform calls f.
func (f DeformerFunc) Deform(ctx context.Context, model Model, req *Request) (*Response, error) {
	return f(ctx, model, req)
}

// Encode writes v as a JSON body.
func Encode(w io.Writer, v any) error {
	return errors.Wrap(json.NewEncoder(w).Encode(v), "deform: encode")
}

// DecodeRequest reads a JSON request body.
func DecodeRequest(r io.Reader) (*Request, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.Wrap(err, "deform: decode request")
	}
	return &req, nil
}

// DecodeResponse reads a JSON response body.
func DecodeResponse(r io.Reader) (*Response, error) {
	var resp Response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "deform: decode response")
	}
	return &resp, nil
}
