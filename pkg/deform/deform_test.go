package deform

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/chazu/deform/pkg/handle"
	"github.com/chazu/deform/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() *mesh.Indexed {
	return &mesh.Indexed{
		Vertices: []float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0},
		Faces:    []int{0, 1, 2, 1, 3, 2},
	}
}

func TestModel(t *testing.T) {
	tests := []struct {
		in   string
		want Model
		path string
	}{
		{"linear", Linear, "/linear"},
		{"/linear", Linear, "/linear"},
		{"bbw", BBW, "/bbw"},
		{"/bbw", BBW, "/bbw"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParseModel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
			assert.Equal(t, tt.path, m.Path())
		})
	}

	_, err := ParseModel("arap")
	assert.Error(t, err)
	assert.Equal(t, "unknown", Model(99).String())
}

func TestNewRequestCopies(t *testing.T) {
	m := square()
	hs := []handle.Handle{{VID: 3, Original: mgl64.Vec3{1, 1, 0}, Updated: mgl64.Vec3{1, 1, 2}}}

	req := NewRequest(m, hs)
	m.Vertices[0] = 99
	m.Faces[0] = 3
	hs[0].Updated = mgl64.Vec3{}

	assert.Equal(t, 0.0, req.Vertices[0])
	assert.Equal(t, 0, req.Faces[0])
	assert.Equal(t, mgl64.Vec3{1, 1, 2}, req.Handles[0].Updated)
	assert.Equal(t, 4, req.VertexCount())
}

func TestRequestJSON(t *testing.T) {
	req := NewRequest(square(), []handle.Handle{
		{VID: 1, Original: mgl64.Vec3{1, 0, 0}, Updated: mgl64.Vec3{1, 0, 1}},
	})
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, req))
	assert.JSONEq(t, `{
		"vertices": [0,0,0, 1,0,0, 0,1,0, 1,1,0],
		"faces": [0,1,2, 1,3,2],
		"handles": [{"vid":1,"original":[1,0,0],"updated":[1,0,1]}]
	}`, buf.String())

	back, err := DecodeRequest(&buf)
	require.NoError(t, err)
	assert.Equal(t, req, back)
}

func TestEmptyHandlesSerializeAsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, NewRequest(square(), nil)))
	assert.Contains(t, buf.String(), `"handles":[]`)
}

func TestResponseValidate(t *testing.T) {
	req := NewRequest(square(), nil)

	ok := &Response{Vertices: make([]float64, 12)}
	assert.NoError(t, ok.Validate(req))

	short := &Response{Vertices: make([]float64, 9)}
	err := short.Validate(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVertexCountMismatch))
}

func TestDecodeResponse(t *testing.T) {
	resp, err := DecodeResponse(strings.NewReader(`{"vertices":[1,2,3]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, resp.Vertices)

	_, err = DecodeResponse(strings.NewReader(`{"vertices":`))
	assert.Error(t, err)
}

func TestDeformerFunc(t *testing.T) {
	var got Model
	d := DeformerFunc(func(ctx context.Context, model Model, req *Request) (*Response, error) {
		got = model
		return &Response{Vertices: req.Vertices}, nil
	})
	resp, err := d.Deform(context.Background(), BBW, NewRequest(square(), nil))
	require.NoError(t, err)
	assert.Equal(t, BBW, got)
	assert.Len(t, resp.Vertices, 12)
}
