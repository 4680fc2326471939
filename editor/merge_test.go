package editor_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/cliptrack/cliptrack"
	"github.com/cliptrack/cliptrack/editor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAudioClips(t *testing.T) {
	files := newMemFiles()
	files.constant("a.wav", 1000, 100, 1)
	files.constant("b.wav", 1000, 100, 1)
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.AudioTrack)
	a := addClip(t, m, tr, audioClip("a.wav", 0, 50, 0.5))
	b := addClip(t, m, tr, audioClip("b.wav", 30, 50, 0.25))
	m.SelectTrackClips(tr, true)
	out := filepath.Join(m.Session().Dir, "merged.wav")

	require.NoError(t, m.MergeClips(context.Background(), out))
	require.Len(t, tr.Clips, 1)
	merged := tr.Clips[0]
	assert.Equal(t, out, merged.Filename)
	assert.Equal(t, 0, merged.Start)
	assert.Equal(t, 80, merged.Length)
	assert.Equal(t, "merged", merged.Name)

	data := files.audio[out].data[0]
	require.Len(t, data, 80)
	for i, v := range data {
		want := float32(0.25)
		switch {
		case i < 30:
			want = 0.5
		case i < 50:
			want = 0.75
		}
		assert.InDelta(t, want, v, 1e-6, "frame %d", i)
	}

	m.Undo().Do()
	assert.Equal(t, []*cliptrack.Clip{a, b}, tr.Clips)
	assert.Equal(t, 50, a.Length)
	assert.Equal(t, 30, b.Start)
}

func TestMergeKeepsRemnants(t *testing.T) {
	files := newMemFiles()
	files.constant("a.wav", 1000, 100, 1)
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.AudioTrack)
	c := addClip(t, m, tr, audioClip("a.wav", 0, 100, 1))
	c.FadeOut = 10
	m.SelectClip(c, 30, 60)

	require.NoError(t, m.MergeClips(context.Background(), ""))
	require.Len(t, tr.Clips, 3)
	left, right, merged := tr.Clips[0], tr.Clips[1], tr.Clips[2]
	assert.Same(t, c, left)
	assert.Equal(t, 0, left.Start)
	assert.Equal(t, 30, left.Length)
	assert.Equal(t, 0, left.FadeOut)
	assert.Equal(t, 60, right.Start)
	assert.Equal(t, 60, right.Offset)
	assert.Equal(t, 40, right.Length)
	assert.Equal(t, 10, right.FadeOut)
	assert.Equal(t, 30, merged.Start)
	assert.Equal(t, 30, merged.Length)
	assert.Equal(t, m.Session().Dir, filepath.Dir(merged.Filename))

	m.Undo().Do()
	assert.Equal(t, []*cliptrack.Clip{c}, tr.Clips)
	assert.Equal(t, 100, c.Length)
	assert.Equal(t, 10, c.FadeOut)
}

func TestExportLeavesSession(t *testing.T) {
	files := newMemFiles()
	files.constant("a.wav", 1000, 100, 1)
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.AudioTrack)
	c := addClip(t, m, tr, audioClip("a.wav", 0, 100, 1))
	m.SelectClip(c, 20, 40)
	out := filepath.Join(m.Session().Dir, "export.wav")
	require.NoError(t, m.ExportClips(context.Background(), out))
	assert.Len(t, files.audio[out].data[0], 20)
	assert.Equal(t, []*cliptrack.Clip{c}, tr.Clips)
	assert.Equal(t, "add clip", m.UndoName())
	alert := lastAlert(m)
	assert.Equal(t, editor.Info, alert.Priority)
}

func TestMergeWriteFailure(t *testing.T) {
	files := newMemFiles()
	files.constant("a.wav", 1000, 100, 1)
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.AudioTrack)
	c := addClip(t, m, tr, audioClip("a.wav", 0, 100, 1))
	m.SelectTrackClips(tr, true)
	files.failWrites = true
	out := filepath.Join(m.Session().Dir, "merged.wav")

	err := m.MergeClips(context.Background(), out)
	assert.Equal(t, cliptrack.IOFailure, cliptrack.KindOf(err))
	assert.ErrorIs(t, err, errDiskFull)
	assert.NotContains(t, files.audio, out)
	assert.Contains(t, files.removed, out)
	assert.Equal(t, []*cliptrack.Clip{c}, tr.Clips)
	assert.Equal(t, 100, c.Length)
	assert.Equal(t, "add clip", m.UndoName())
	assert.Equal(t, editor.Error, lastAlert(m).Priority)
}

func TestMergeCanceled(t *testing.T) {
	files := newMemFiles()
	files.constant("a.wav", 1000, 100, 1)
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.AudioTrack)
	addClip(t, m, tr, audioClip("a.wav", 0, 100, 1))
	m.SelectTrackClips(tr, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := filepath.Join(m.Session().Dir, "merged.wav")

	err := m.MergeClips(ctx, out)
	assert.Equal(t, cliptrack.Canceled, cliptrack.KindOf(err))
	assert.NotContains(t, files.audio, out)
	assert.Len(t, tr.Clips, 1)
}

func TestCanceledWithDefaultOptions(t *testing.T) {
	files := newMemFiles()
	files.constant("a.wav", 1000, 100, 1)
	s := cliptrack.NewSession("test", 1000, 960)
	s.Dir = t.TempDir()
	m, err := editor.New(s, editor.DefaultOptions(), editor.WithAudioFiles(files), editor.WithMidiFiles(files))
	require.NoError(t, err)
	tr := addTrack(t, m, cliptrack.AudioTrack)
	c := addClip(t, m, tr, audioClip("a.wav", 0, 100, 0.5))
	m.SelectTrackClips(tr, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a single window is far below the stabilize interval
	out := filepath.Join(s.Dir, "merged.wav")
	err = m.MergeClips(ctx, out)
	assert.Equal(t, cliptrack.Canceled, cliptrack.KindOf(err))
	assert.NotContains(t, files.audio, out)
	assert.Equal(t, []*cliptrack.Clip{c}, tr.Clips)
	assert.Equal(t, "add clip", m.UndoName())

	err = m.ExportClips(ctx, out)
	assert.Equal(t, cliptrack.Canceled, cliptrack.KindOf(err))
	assert.NotContains(t, files.audio, out)

	err = m.NormalizeClips(ctx, c)
	assert.Equal(t, cliptrack.Canceled, cliptrack.KindOf(err))
	assert.Equal(t, float32(0.5), c.Gain)

	var sink memSink
	err = m.Render(ctx, tr, 0, 100, &sink)
	assert.Equal(t, cliptrack.Canceled, cliptrack.KindOf(err))
	assert.Empty(t, sink.samples)
}

// cancelAfter is a context that reports cancellation once Err has been
// called n times.
type cancelAfter struct {
	context.Context
	n int
}

func (c *cancelAfter) Err() error {
	if c.n <= 0 {
		return context.Canceled
	}
	c.n--
	return nil
}

func TestMergeCanceledBetweenWindows(t *testing.T) {
	files := newMemFiles()
	files.constant("a.wav", 1000, 3000, 1)
	s := cliptrack.NewSession("test", 1000, 960)
	s.Dir = t.TempDir()
	m, err := editor.New(s, editor.DefaultOptions(), editor.WithAudioFiles(files))
	require.NoError(t, err)
	tr := addTrack(t, m, cliptrack.AudioTrack)
	addClip(t, m, tr, audioClip("a.wav", 0, 3000, 1))
	m.SelectTrackClips(tr, true)

	// three windows of 1024 frames; the second one is canceled
	out := filepath.Join(s.Dir, "merged.wav")
	err = m.MergeClips(&cancelAfter{Context: context.Background(), n: 2}, out)
	assert.Equal(t, cliptrack.Canceled, cliptrack.KindOf(err))
	assert.NotContains(t, files.audio, out)
	assert.Contains(t, files.removed, out)
	assert.Len(t, tr.Clips, 1)
}

// mergeAudioInOrder merges two overlapping clips with different gains and
// fades, added to the track in either order, and returns the mix.
func mergeAudioInOrder(t *testing.T, reverse bool) []float32 {
	t.Helper()
	files := newMemFiles()
	files.constant("a.wav", 1000, 100, 1)
	files.constant("b.wav", 1000, 100, 0.5)
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.AudioTrack)
	a := audioClip("a.wav", 0, 60, 0.5)
	a.FadeIn, a.FadeOut = 10, 5
	b := audioClip("b.wav", 30, 60, 0.25)
	b.FadeIn, b.FadeOut = 8, 20
	clips := []*cliptrack.Clip{a, b}
	if reverse {
		clips = []*cliptrack.Clip{b, a}
	}
	for _, c := range clips {
		addClip(t, m, tr, c)
	}
	m.SelectTrackClips(tr, true)
	out := filepath.Join(m.Session().Dir, "merged.wav")
	require.NoError(t, m.MergeClips(context.Background(), out))
	return files.audio[out].data[0]
}

func TestMergeAudioIsOrderIndependent(t *testing.T) {
	forward := mergeAudioInOrder(t, false)
	reverse := mergeAudioInOrder(t, true)
	require.Len(t, forward, 90)
	assert.Equal(t, forward, reverse)
}

// mergeMidiInOrder merges two MIDI clips with notes on the same tick, added
// in either order, and returns the merged events as time:key:velocity.
func mergeMidiInOrder(t *testing.T, reverse bool) []string {
	t.Helper()
	files := newMemFiles()
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.MidiTrack)
	high := &cliptrack.MidiEvent{Type: cliptrack.NoteOn, Time: 960, Duration: 480, Note: 64, Value: 70}
	a := midiClip(0, 1000, note(0, 480, 100), high, note(960, 480, 80))
	// b starts one beat later, so its first note is on tick 960 too
	b := midiClip(500, 1000, note(0, 480, 90))
	clips := []*cliptrack.Clip{a, b}
	if reverse {
		clips = []*cliptrack.Clip{b, a}
	}
	for _, c := range clips {
		addClip(t, m, tr, c)
	}
	m.SelectTrackClips(tr, true)
	out := filepath.Join(m.Session().Dir, "merged.mid")
	require.NoError(t, m.MergeClips(context.Background(), out))
	var ret []string
	for _, e := range files.midi[out].Tracks[1].Events {
		ret = append(ret, fmt.Sprintf("%d:%d:%d", e.Time, e.Note, e.Value))
	}
	return ret
}

func TestMergeMidiIsOrderIndependent(t *testing.T) {
	forward := mergeMidiInOrder(t, false)
	assert.Equal(t, []string{"0:60:100", "960:60:90", "960:60:80", "960:64:70"}, forward)
	assert.Equal(t, forward, mergeMidiInOrder(t, true))
}

func TestMergePreconditions(t *testing.T) {
	files := newMemFiles()
	m := newModel(t, files)
	err := m.MergeClips(context.Background(), "")
	assert.Equal(t, cliptrack.PreconditionFailure, cliptrack.KindOf(err))

	a := addTrack(t, m, cliptrack.AudioTrack)
	b := addTrack(t, m, cliptrack.AudioTrack)
	addClip(t, m, a, audioClip("a.wav", 0, 100, 1))
	addClip(t, m, b, audioClip("a.wav", 0, 100, 1))
	m.SelectAll(true)
	err = m.MergeClips(context.Background(), "")
	assert.Equal(t, cliptrack.PreconditionFailure, cliptrack.KindOf(err))
}

func TestMergeMidiClips(t *testing.T) {
	files := newMemFiles()
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.MidiTrack)
	// one beat is 500 frames or 960 ticks
	a := addClip(t, m, tr, midiClip(0, 1000, note(0, 480, 100), note(960, 2400, 100)))
	b := midiClip(500, 1000, note(0, 480, 64))
	b.Gain = 1.5
	addClip(t, m, tr, b)
	m.SelectTrackClips(tr, true)
	out := filepath.Join(m.Session().Dir, "merged.mid")

	require.NoError(t, m.MergeClips(context.Background(), out))
	require.Len(t, tr.Clips, 1)
	merged := tr.Clips[0]
	assert.Equal(t, 0, merged.Start)
	assert.Equal(t, 1500, merged.Length)
	assert.Equal(t, 1, merged.Midi.Format)
	assert.Equal(t, 1, merged.Midi.TrackChannel)

	f := files.midi[out]
	require.NotNil(t, f)
	require.Len(t, f.Tracks, 2)
	assert.Empty(t, f.Tracks[0].Events)
	events := f.Tracks[1].Events
	require.Len(t, events, 3)
	var velocities []uint8
	for _, e := range events {
		velocities = append(velocities, e.Value)
	}
	assert.Equal(t, []uint8{100, 100, 96}, velocities)
	assert.Equal(t, []int{0, 960, 960}, []int{events[0].Time, events[1].Time, events[2].Time})
	// the long note is cut at the end of the merged range
	assert.Equal(t, 1920, events[1].Duration)
	assert.Equal(t, events, merged.Sequence().Events)

	m.Undo().Do()
	assert.Equal(t, []*cliptrack.Clip{a, b}, tr.Clips)
}

func TestMergeMidiWriteFailure(t *testing.T) {
	files := newMemFiles()
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.MidiTrack)
	addClip(t, m, tr, midiClip(0, 1000, note(0, 480, 100)))
	m.SelectTrackClips(tr, true)
	files.failWrites = true
	err := m.MergeClips(context.Background(), filepath.Join(m.Session().Dir, "merged.mid"))
	assert.Equal(t, cliptrack.IOFailure, cliptrack.KindOf(err))
	assert.Len(t, tr.Clips, 1)
}

// lastAlert drains the GUI channel and returns the last alert.
func lastAlert(m *editor.Model) editor.Alert {
	var ret editor.Alert
	for {
		select {
		case v := <-m.Broker().ToGUI:
			if a, ok := v.(editor.Alert); ok {
				ret = a
			}
		default:
			return ret
		}
	}
}
