package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/chazu/deform/pkg/deform"
	"github.com/chazu/deform/pkg/mesh"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newIndexCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "index [file]",
		Short: "Deduplicate a triangle soup into an indexed mesh",
		Long: `Read a triangle soup, a flat JSON array of 9 numbers per face, and print
the indexed mesh {"vertices": [...], "faces": [...]}. Vertices are merged only
when all three coordinates are bit-for-bit equal. Use "-" for stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var soup mesh.Soup
			if err := readJSON(cmd, args[0], &soup); err != nil {
				return err
			}
			m, err := mesh.Deduplicate(soup)
			if err != nil {
				return err
			}
			c.log.Info("indexed", "faces", m.FaceCount(), "corners", m.FaceCount()*3, "vertices", m.VertexCount())
			return deform.Encode(cmd.OutOrStdout(), m)
		},
	}
}

func newUnindexCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "unindex [file]",
		Short: "Expand an indexed mesh back into a triangle soup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m mesh.Indexed
			if err := readJSON(cmd, args[0], &m); err != nil {
				return err
			}
			soup, err := mesh.Duplicate(m.Vertices, m.Faces)
			if err != nil {
				return err
			}
			c.log.Info("unindexed", "faces", soup.FaceCount())
			return deform.Encode(cmd.OutOrStdout(), soup)
		},
	}
}

// readJSON decodes the file at path, or stdin for "-", into v.
func readJSON(cmd *cobra.Command, path string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "open input")
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}
