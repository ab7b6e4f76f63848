package h5

import "strings"

// SplitPath splits a path into its components. Leading, trailing and
// repeated slashes are ignored.
//
// Examples:
//   - "/" -> []string{}
//   - "/run1" -> []string{"run1"}
//   - "run1//grid/" -> []string{"run1", "grid"}
func SplitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CleanPath normalizes a path so that it starts with "/" and has no
// trailing or repeated slash.
func CleanPath(path string) string {
	return "/" + strings.Join(SplitPath(path), "/")
}

// JoinPath appends name to the group path parent.
func JoinPath(parent, name string) string {
	if strings.HasPrefix(name, "/") {
		return CleanPath(name)
	}
	return CleanPath(parent + "/" + name)
}

// Base returns the last component of path, or "/" for the root.
func Base(path string) string {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return "/"
	}
	return parts[len(parts)-1]
}
