//go:build !unix

package plugin

import "os"

// readable reports whether the process may open path for reading.
func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
