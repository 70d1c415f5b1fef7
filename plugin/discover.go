package plugin

import (
	"errors"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
)

// readDirBatch is how many directory entries Discover reads at a time.
const readDirBatch = 64

// DiscoverOptions configures Discover.
type DiscoverOptions struct {
	// Sort yields candidates in ascending file-name order instead of the
	// filesystem's directory order.
	Sort bool
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Discover lists candidate plugin files in dir.
//
// Every regular file (after following symlinks) that the process can read is a
// candidate; there is no recursion and no extension filter, because the loaders
// themselves reject files that are not modules. Without Sort, candidates come
// in directory order, which is filesystem-defined and may differ between
// platforms and between calls. A directory that cannot be read yields nothing.
//
// Entries are read lazily in batches as the sequence is consumed, unless Sort
// is set.
func Discover(dir string, opts DiscoverOptions) iter.Seq[string] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(yield func(string) bool) {
		if opts.Sort {
			names, err := readNames(dir)
			if err != nil {
				logger.Debug("plugin directory unreadable", "dir", dir, "error", err)
			}
			slices.Sort(names)
			for _, name := range names {
				path := filepath.Join(dir, name)
				if isCandidate(path) && !yield(path) {
					return
				}
			}
			return
		}

		f, err := os.Open(dir)
		if err != nil {
			logger.Debug("plugin directory unreadable", "dir", dir, "error", err)
			return
		}
		defer f.Close()

		for {
			entries, err := f.ReadDir(readDirBatch)
			for _, entry := range entries {
				path := filepath.Join(dir, entry.Name())
				if isCandidate(path) && !yield(path) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					logger.Debug("plugin directory listing stopped", "dir", dir, "error", err)
				}
				return
			}
		}
	}
}

// readNames returns the entry names of dir in directory order. On error it
// returns the names read so far.
func readNames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}

// isCandidate reports whether path is a readable regular file.
func isCandidate(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return readable(path)
}
