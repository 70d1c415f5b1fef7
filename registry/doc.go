// Package registry holds the ordered set of active operations.
//
// Entries are addressed by position. Position is what a host shows the user
// (a list index, a menu row), so insertion order is presentation order: the
// built-in operations first, then every loaded plugin in discovery order.
//
// The registry is rebuilt as a whole by Reload. The rebuild happens on a
// private entry list that is published atomically once complete, so a
// concurrent reader sees either the old registry or the new one, never a
// partially populated one.
package registry
