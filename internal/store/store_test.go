package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cam-animator/internal/visca"
)

func testPosition(t *testing.T, pan, tilt, zoom int) visca.Position {
	t.Helper()
	pos, err := visca.NewPosition(pan, tilt, zoom)
	require.NoError(t, err)
	return pos
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	pos := testPosition(t, 100, -50, 500)

	require.NoError(t, s.Save("10.0.0.5:52381", "start", pos))

	got, err := s.Load("10.0.0.5:52381", "start")
	require.NoError(t, err)
	assert.True(t, got.Equal(pos), "got %s, want %s", got, pos)
}

func TestLoadMissing(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Load("10.0.0.5:52381", "start")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "start")
}

func TestSaveOverwrites(t *testing.T) {
	s := New(t.TempDir())
	first := testPosition(t, 1, 2, 3)
	second := testPosition(t, 4, 5, 6)

	require.NoError(t, s.Save("cam", "start", first))
	require.NoError(t, s.Save("cam", "start", second))

	got, err := s.Load("cam", "start")
	require.NoError(t, err)
	assert.True(t, got.Equal(second))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.Save("cam", "start", testPosition(t, 1, 2, 3)))
	require.NoError(t, s.Save("cam", "start", testPosition(t, 4, 5, 6)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cam_start.json", entries[0].Name())
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cam_start.json"), []byte("{"), 0644))
	_, err := s.Load("cam", "start")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cam_start.json"),
		[]byte(`{"pan":"not hex","tilt":"00 00 00 00","zoom":"00 00 00 00"}`), 0644))
	_, err = s.Load("cam", "start")
	assert.Error(t, err, "a hand-mangled axis field must fail loudly")
}

func TestDeviceAddressesBecomeSafeFileNames(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	for _, device := range []string{"10.0.0.5:52381", "/dev/ttyUSB0"} {
		require.NoError(t, s.Save(device, "end", testPosition(t, 7, 8, 9)))

		got, err := s.Load(device, "end")
		require.NoError(t, err)
		assert.True(t, got.Equal(testPosition(t, 7, 8, 9)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.ContainsAny(e.Name(), ":/\\"), "unsafe name %q", e.Name())
	}
}

func TestDeleteAndList(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.Save("cam", "start", testPosition(t, 1, 2, 3)))
	require.NoError(t, s.Save("cam", "end", testPosition(t, 4, 5, 6)))
	require.NoError(t, s.Save("other", "start", testPosition(t, 7, 8, 9)))

	names, err := s.List("cam")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"start", "end"}, names)

	require.NoError(t, s.Delete("cam", "start"))
	require.NoError(t, s.Delete("cam", "start"), "deleting twice is fine")

	names, err = s.List("cam")
	require.NoError(t, err)
	assert.Equal(t, []string{"end"}, names)
}

func TestListEmptyStore(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"))

	names, err := s.List("cam")
	require.NoError(t, err)
	assert.Empty(t, names)
}
