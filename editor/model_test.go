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

func TestExecuteEmptyCommand(t *testing.T) {
	m := newModel(t, newMemFiles())
	err := m.Execute(editor.NewClipCommand("nothing"))
	assert.Equal(t, cliptrack.PreconditionFailure, cliptrack.KindOf(err))
	assert.Equal(t, cliptrack.PreconditionFailure, cliptrack.KindOf(m.Execute(nil)))
	assert.False(t, m.CanUndo())
	assert.False(t, m.ChangedSinceSave())
}

func TestUndoRedoTracks(t *testing.T) {
	m := newModel(t, newMemFiles())
	a := addTrack(t, m, cliptrack.AudioTrack)
	b := addTrack(t, m, cliptrack.MidiTrack)
	assert.Equal(t, []*cliptrack.Track{a, b}, m.Tracks())
	assert.Equal(t, "Track 2", b.Name)
	assert.Equal(t, "add track", m.UndoName())
	require.NoError(t, m.RemoveTrack(a))
	assert.Equal(t, []*cliptrack.Track{b}, m.Tracks())
	m.Undo().Do()
	assert.Equal(t, []*cliptrack.Track{a, b}, m.Tracks())
	m.Undo().Do()
	m.Undo().Do()
	assert.Empty(t, m.Tracks())
	assert.False(t, m.Undo().Enabled())
	m.Redo().Do()
	assert.Equal(t, []*cliptrack.Track{a}, m.Tracks())
	assert.True(t, m.CanRedo())
	addTrack(t, m, cliptrack.AudioTrack)
	assert.False(t, m.CanRedo(), "a new command truncates the redo history")
}

func TestAddTrackInvalidType(t *testing.T) {
	m := newModel(t, newMemFiles())
	_, err := m.AddTrack(cliptrack.NoTrack)
	assert.Equal(t, cliptrack.PreconditionFailure, cliptrack.KindOf(err))
}

func TestEditTrackPropagatesToAliases(t *testing.T) {
	m := newModel(t, newMemFiles())
	a := addTrack(t, m, cliptrack.MidiTrack)
	b := addTrack(t, m, cliptrack.MidiTrack)
	props := b.Properties()
	props.MidiChannel = a.MidiChannel
	props.MidiProgram = 5
	props.MidiBank = 2
	require.NoError(t, m.EditTrack(b, props))
	assert.Equal(t, 5, a.MidiProgram)
	assert.Equal(t, 2, a.MidiBank)
	assert.Equal(t, a.MidiChannel, b.MidiChannel)
	m.Undo().Do()
	assert.Equal(t, 0, a.MidiProgram)
	assert.Equal(t, 0, b.MidiProgram)
	assert.NotEqual(t, a.MidiChannel, b.MidiChannel)
}

func TestUpdateMidiTrack(t *testing.T) {
	m := newModel(t, newMemFiles())
	a := addTrack(t, m, cliptrack.MidiTrack)
	b := addTrack(t, m, cliptrack.MidiTrack)
	c := addTrack(t, m, cliptrack.MidiTrack)
	b.MidiChannel = a.MidiChannel
	a.MidiBankSelMethod, a.MidiBank, a.MidiProgram = 1, 3, 7

	require.NoError(t, m.UpdateMidiTrack(a))
	assert.Equal(t, "update midi track", m.UndoName())
	assert.Equal(t, []int{1, 3, 7}, []int{b.MidiBankSelMethod, b.MidiBank, b.MidiProgram})
	assert.Equal(t, 0, c.MidiProgram, "other channels are left alone")

	err := m.UpdateMidiTrack(a)
	assert.Equal(t, cliptrack.PreconditionFailure, cliptrack.KindOf(err))

	m.Undo().Do()
	assert.Equal(t, []int{0, 0, 0}, []int{b.MidiBankSelMethod, b.MidiBank, b.MidiProgram})
	assert.Equal(t, 7, a.MidiProgram)

	audio := addTrack(t, m, cliptrack.AudioTrack)
	assert.Equal(t, cliptrack.PreconditionFailure, cliptrack.KindOf(m.UpdateMidiTrack(audio)))
}

func TestEditTrackUnchangedIsEmpty(t *testing.T) {
	m := newModel(t, newMemFiles())
	a := addTrack(t, m, cliptrack.AudioTrack)
	err := m.EditTrack(a, a.Properties())
	assert.Equal(t, cliptrack.PreconditionFailure, cliptrack.KindOf(err))
}

func TestChangesAreBroadcast(t *testing.T) {
	m := newModel(t, newMemFiles())
	addTrack(t, m, cliptrack.AudioTrack)
	v := <-m.Broker().ToPlayer
	assert.Equal(t, editor.SessionChanged{Command: "add track"}, v)
	assert.True(t, m.ChangedSinceSave())
}

func TestNewClipSpansOneBar(t *testing.T) {
	files := newMemFiles()
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.MidiTrack)
	c, err := m.NewClip(tr)
	require.NoError(t, err)
	// a 4/4 bar at 120 BPM is two seconds
	assert.Equal(t, 2000, c.Length)
	assert.Equal(t, 1, c.Midi.TrackChannel)
	assert.Contains(t, files.midi, c.Filename)
	assert.Same(t, c, m.CurrentClip())
	_, err = m.NewClip(addTrack(t, m, cliptrack.AudioTrack))
	assert.Equal(t, cliptrack.PreconditionFailure, cliptrack.KindOf(err))
}

func TestCreateFilePathSkipsExisting(t *testing.T) {
	m := newModel(t, newMemFiles())
	p := m.CreateFilePath("track", 0, "wav")
	assert.Equal(t, filepath.Join(m.Session().Dir, "track.wav"), p)
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	assert.Equal(t, "track-1.wav", filepath.Base(m.CreateFilePath("track", 0, ".wav")))
}
