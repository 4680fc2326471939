package editor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cliptrack/cliptrack"
	"github.com/cliptrack/cliptrack/editor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionFileRoundTrip(t *testing.T) {
	for _, ext := range []string{".yml", ".json"} {
		t.Run(ext, func(t *testing.T) {
			files := newMemFiles()
			m := newModel(t, files)
			audio := addTrack(t, m, cliptrack.AudioTrack)
			midi := addTrack(t, m, cliptrack.MidiTrack)
			addClip(t, m, audio, audioClip("a.wav", 10, 40, 0.5))
			c := addClip(t, m, midi, midiClip(0, 1000, note(130, 100, 100)))
			require.NoError(t, m.QuantizeClips(c))
			require.Equal(t, 0, c.Midi.Revision)

			path := filepath.Join(m.Session().Dir, "session"+ext)
			require.NoError(t, m.SaveSessionFile(path))
			assert.False(t, m.ChangedSinceSave())
			assert.Equal(t, path, m.FilePath())
			// the edited sequence got its own file
			assert.Equal(t, 1, c.Midi.Revision)
			require.Contains(t, files.midi, c.Filename)

			loaded := newModel(t, files)
			require.NoError(t, loaded.LoadSessionFile(path))
			assert.False(t, loaded.CanUndo())
			tracks := loaded.Tracks()
			require.Len(t, tracks, 2)
			assert.Equal(t, audio.ID, tracks[0].ID)
			require.Len(t, tracks[0].Clips, 1)
			ac := tracks[0].Clips[0]
			assert.Equal(t, tracks[0].ID, ac.TrackID)
			assert.Equal(t, 10, ac.Start)
			assert.Equal(t, float32(0.5), ac.Gain)
			mc := tracks[1].Clips[0]
			require.NotNil(t, mc.Sequence())
			require.Len(t, mc.Sequence().Events, 1)
			assert.Equal(t, 240, mc.Sequence().Events[0].Time)
			assert.Equal(t, 1000, loaded.SampleRate())
		})
	}
}

func TestLoadInvalidSession(t *testing.T) {
	m := newModel(t, newMemFiles())
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\ntimescale:\n  samplerate: 0\n"), 0o644))
	assert.Error(t, m.LoadSessionFile(path))
	assert.Error(t, m.LoadSessionFile(filepath.Join(t.TempDir(), "missing.yml")))
	assert.Equal(t, "test", m.Session().Name)
}

func TestSaveSessionMidiWriteFailure(t *testing.T) {
	files := newMemFiles()
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.MidiTrack)
	c := addClip(t, m, tr, midiClip(0, 1000, note(130, 100, 100)))
	require.NoError(t, m.QuantizeClips(c))
	files.failWrites = true
	err := m.SaveSessionFile(filepath.Join(m.Session().Dir, "session.yml"))
	assert.Equal(t, cliptrack.IOFailure, cliptrack.KindOf(err))
	assert.True(t, m.ChangedSinceSave())
	assert.Equal(t, 0, c.Midi.Revision)
}

func TestNewRejectsInvalidTemplate(t *testing.T) {
	opts := testOptions()
	opts.FilePathTemplate = "{{ .Base"
	_, err := editor.New(cliptrack.NewSession("test", 1000, 960), opts)
	assert.Error(t, err)
}
