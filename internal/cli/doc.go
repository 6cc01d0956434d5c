// Package cli carries the small pieces shared by the cobra commands: the
// spinner runner for long operations and the output-format flag plumbing.
package cli
