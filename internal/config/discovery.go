package config

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExpandConnections expands sqlite connections whose path is a glob
// into one connection per matching file. Network connections and
// literal paths pass through unchanged, in order.
func ExpandConnections(conns []Connection) []Connection {
	out := make([]Connection, 0, len(conns))
	for _, conn := range conns {
		if conn.Kind != "sqlite" || !isGlob(conn.Path) {
			out = append(out, conn)
			continue
		}
		out = append(out, expandGlob(conn)...)
	}
	return out
}

func expandGlob(conn Connection) []Connection {
	matches, err := doublestar.FilepathGlob(conn.Path)
	if err != nil || len(matches) == 0 {
		// A glob that matches nothing still shows up in the list so the
		// operator can see the entry exists; connect will fail cleanly.
		return []Connection{conn}
	}
	sort.Strings(matches)

	out := make([]Connection, 0, len(matches))
	for _, match := range matches {
		expanded := conn
		expanded.Path = match
		expanded.Name = globLabel(conn.Name, match)
		out = append(out, expanded)
	}
	return out
}

func globLabel(base, path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if base == "" {
		return name
	}
	return base + ":" + name
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
