// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"strings"
)

// outputPath returns dir/<base>.jpg for an input named name. When that path
// is already taken by an earlier item in the same run, a numeric suffix is
// added (IMG_0001-1.jpg). The returned path is marked as taken.
func outputPath(dir, name string, taken map[string]bool) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		base = "image"
	}
	candidate := filepath.Join(dir, base+".jpg")
	for i := 1; taken[candidate]; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d.jpg", base, i))
	}
	taken[candidate] = true
	return candidate
}
