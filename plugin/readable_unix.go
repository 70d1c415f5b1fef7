//go:build unix

package plugin

import "golang.org/x/sys/unix"

// readable reports whether the process may open path for reading.
func readable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}
