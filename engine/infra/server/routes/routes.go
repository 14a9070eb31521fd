package routes

import "strings"

const (
	Healthz = "/healthz"
	Readyz  = "/readyz"
)

// Base returns the API base path for prefix; "/" mounts at the root.
func Base(prefix string) string {
	return strings.TrimRight(prefix, "/")
}
