package main

import (
	"os"
	"strings"

	"github.com/chazu/deform/pkg/config"
	"github.com/chazu/deform/pkg/deform"
	"github.com/chazu/deform/pkg/engine"
	"github.com/chazu/deform/pkg/kernel"
	"github.com/chazu/deform/pkg/kernel/manifold"
	"github.com/chazu/deform/pkg/kernel/sdfx"
	"github.com/chazu/deform/pkg/session"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type requestFlags struct {
	kernel    string
	primitive string
	size      float64
	cells     int
	script    string
	model     string
}

func newRequestCmd(c *cli) *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Build a deformation request from a primitive and a handle script",
		Long: `Tessellate a primitive solid, index it, place handles by running a
handle script, and print the JSON request body for the chosen model. The
endpoint path is logged.

Primitives: box, sphere, cylinder, and the composites drilled (a box
with a bore), rounded (a box with its corners cut by a sphere) and
dumbbell (two balls joined by a bar along X).

Example script:

  ;; lift the top, pin a base vertex
  (move (pick (vec3 0 0 10)) :by (vec3 0 0 2))
  (def base (handle 0))
  (move base :by (vec3 0 0 -1))`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, c, f)
		},
	}
	cmd.Flags().StringVar(&f.kernel, "kernel", "", "sdfx or manifold (default from config)")
	cmd.Flags().StringVar(&f.primitive, "primitive", "", strings.Join(kernel.Primitives, ", ")+" (default from config)")
	cmd.Flags().Float64Var(&f.size, "size", 0, "overall primitive extent (default from config)")
	cmd.Flags().IntVar(&f.cells, "cells", 0, "marching cubes cells (default from config)")
	cmd.Flags().StringVar(&f.script, "script", "", "handle script file")
	cmd.Flags().StringVar(&f.model, "model", "", "linear or bbw (default from config)")
	return cmd
}

func runRequest(cmd *cobra.Command, c *cli, f *requestFlags) error {
	cfg := c.cfg
	if cmd.Flags().Changed("kernel") {
		cfg.Kernel = f.kernel
	}
	if cmd.Flags().Changed("primitive") {
		cfg.Primitive = f.primitive
	}
	if cmd.Flags().Changed("size") {
		cfg.Size = f.size
	}
	if cmd.Flags().Changed("cells") {
		cfg.MeshCells = f.cells
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = f.model
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	k, err := newKernel(cfg)
	if err != nil {
		return err
	}
	solid, err := kernel.Primitive(k, cfg.Primitive, cfg.Size)
	if err != nil {
		return err
	}
	lo, hi := solid.BoundingBox()
	c.log.Debug("solid built", "primitive", cfg.Primitive, "size", cfg.Size, "min", lo, "max", hi)
	soup, err := k.ToSoup(solid)
	if err != nil {
		return err
	}

	s := session.New(session.WithLogger(c.log), session.WithDeformTimeout(cfg.Timeout()))
	if _, err := s.Load(soup); err != nil {
		return err
	}

	if f.script != "" {
		src, err := os.ReadFile(f.script)
		if err != nil {
			return errors.Wrap(err, "read script")
		}
		edits, evalErrs, err := engine.NewEngine().Evaluate(cmd.Context(), string(src))
		if err != nil {
			return errors.Wrap(err, f.script)
		}
		if len(evalErrs) > 0 {
			for _, e := range evalErrs {
				c.log.Error("script error", "file", f.script, "line", e.Line, "msg", e.Message)
			}
			return errors.Errorf("%s: %s", f.script, evalErrs[0].Error())
		}
		if err := s.Apply(edits); err != nil {
			return err
		}
		c.log.Debug("script applied", "edits", len(edits))
	}

	req, _, err := s.Request()
	if err != nil {
		return err
	}
	c.log.Info("request built",
		"endpoint", cfg.ModelValue().Path(),
		"vertices", req.VertexCount(),
		"faces", len(req.Faces)/3,
		"handles", len(req.Handles))
	return deform.Encode(cmd.OutOrStdout(), req)
}

// newKernel returns the configured geometry kernel. The manifold kernel
// is only available in binaries built with -tags=manifold.
func newKernel(cfg config.Config) (kernel.Kernel, error) {
	if cfg.Kernel == "manifold" {
		return manifold.New()
	}
	return sdfx.NewWithCells(cfg.MeshCells), nil
}
