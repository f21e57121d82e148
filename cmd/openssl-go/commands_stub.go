//go:build !cgo || windows

package main

// Without the native bindings Init reports ErrNotBuilt before any command
// runs, so only version is listed.
var commands = map[string]command{
	"version": {"Print wrapper and library versions", func([]string) error { return nil }},
}
