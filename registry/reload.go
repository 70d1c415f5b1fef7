package registry

import (
	"github.com/joncooperworks/supercalc/plugin"
)

// ReloadStats summarises one Reload.
type ReloadStats struct {
	// Candidates is the number of files offered to the loader.
	Candidates int
	// Loaded is the number of plugins registered.
	Loaded int
	// Entries is the registry length afterwards, built-ins included.
	Entries int
}

// Reload rebuilds the registry from dir: the built-in operations first, then
// every candidate file that loads, in discovery order.
//
// Files that do not load are skipped. Nothing aborts a reload; at worst only
// the built-ins remain. The new entry list replaces the old one in one step.
func (r *Registry) Reload(dir string) ReloadStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		stats ReloadStats
		next  []Entry
	)
	for _, inst := range plugin.Builtins() {
		entry, err := newEntry(inst)
		if err != nil {
			r.logger.Error("built-in operation rejected", "error", err)
			continue
		}
		next = append(next, entry)
	}

	if r.loader != nil {
		candidates := plugin.Discover(dir, plugin.DiscoverOptions{Sort: r.sort, Logger: r.logger})
		for path := range candidates {
			stats.Candidates++
			inst, ok := r.loader.TryLoad(path)
			if !ok {
				continue
			}
			entry, err := newEntry(inst)
			if err != nil {
				r.logger.Debug("candidate skipped", "path", path, "error", err)
				continue
			}
			next = append(next, entry)
			stats.Loaded++
		}
	}

	stats.Entries = len(next)
	r.entries.Store(&next)
	r.logger.Debug("registry reloaded",
		"dir", dir,
		"candidates", stats.Candidates,
		"loaded", stats.Loaded,
		"entries", stats.Entries,
	)
	return stats
}
