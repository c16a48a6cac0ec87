package main

import (
	"path"
	"strings"
)

// absolute anchors p at the volume root.
func absolute(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + strings.TrimPrefix(p, "/"))
}

// splitParent returns the parent directory and final component of p.
func splitParent(p string) (string, string) {
	p = absolute(p)
	return path.Dir(p), path.Base(p)
}
