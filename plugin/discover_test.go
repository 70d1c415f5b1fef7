package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(dir string, opts DiscoverOptions) []string {
	return slices.Collect(Discover(dir, opts))
}

func TestDiscover_RegularFilesOnly(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.so", "x")
	b := writeFile(t, dir, "b.txt", "y")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	writeFile(t, filepath.Join(dir, "nested"), "deep.so", "z")

	got := collect(dir, DiscoverOptions{})
	assert.ElementsMatch(t, []string{a, b}, got)
}

func TestDiscover_Sorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zeta", "alpha", "mid", "beta"} {
		writeFile(t, dir, name, name)
	}

	got := collect(dir, DiscoverOptions{Sort: true})
	want := []string{
		filepath.Join(dir, "alpha"),
		filepath.Join(dir, "beta"),
		filepath.Join(dir, "mid"),
		filepath.Join(dir, "zeta"),
	}
	assert.Equal(t, want, got)
	assert.Equal(t, want, collect(dir, DiscoverOptions{Sort: true}))
}

func TestDiscover_FollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, t.TempDir(), "real.so", "x")
	link := filepath.Join(dir, "link.so")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "dangling")))

	assert.Equal(t, []string{link}, collect(dir, DiscoverOptions{}))
}

func TestDiscover_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any file")
	}
	dir := t.TempDir()
	readable := writeFile(t, dir, "ok", "x")
	secret := writeFile(t, dir, "secret", "y")
	require.NoError(t, os.Chmod(secret, 0o000))

	assert.Equal(t, []string{readable}, collect(dir, DiscoverOptions{}))
}

func TestDiscover_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	assert.Empty(t, collect(dir, DiscoverOptions{}))
	assert.Empty(t, collect(dir, DiscoverOptions{Sort: true}))
}

func TestDiscover_EmptyDirectory(t *testing.T) {
	assert.Empty(t, collect(t.TempDir(), DiscoverOptions{}))
}

func TestDiscover_Lazy(t *testing.T) {
	dir := t.TempDir()
	for i := range 3 * readDirBatch {
		writeFile(t, dir, fmt.Sprintf("f%03d", i), "x")
	}

	var seen int
	for range Discover(dir, DiscoverOptions{}) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
	assert.Len(t, collect(dir, DiscoverOptions{}), 3*readDirBatch)
}
