// Command deform converts between triangle soups and indexed meshes and
// builds deformation requests from primitive solids and handle scripts.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
