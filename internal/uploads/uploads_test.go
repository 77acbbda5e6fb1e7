package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowedExtension(t *testing.T) {
	require.True(t, AllowedExtension("recording.webm"))
	require.True(t, AllowedExtension("REC.WAV"))
	require.False(t, AllowedExtension("notes.txt"))
	require.False(t, AllowedExtension("noext"))
}

func TestSaveAudioAndResolve(t *testing.T) {
	d, err := New(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	name, path, err := d.SaveAudio("u1", "clip.webm", strings.NewReader("fake audio bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(name, "u1_"))
	require.True(t, strings.HasSuffix(name, ".webm"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "fake audio bytes", string(data))

	resolved, err := d.AudioPath("u1", name)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
}

func TestSaveAudioRejectsUnsupportedExtension(t *testing.T) {
	d, err := New(t.TempDir())
	require.NoError(t, err)
	_, _, err = d.SaveAudio("u1", "malware.exe", strings.NewReader("x"))
	require.Error(t, err)
}

func TestAudioPathRejectsTraversal(t *testing.T) {
	d, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = d.AudioPath("u1", "../../etc/passwd")
	require.Error(t, err)
	_, err = d.AudioPath("u1", "")
	require.Error(t, err)
}

func TestRemoveMissingFileIsNoError(t *testing.T) {
	d, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, d.Remove("u1", "nope.webm"))
}
