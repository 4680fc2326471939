package editor_test

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/cliptrack/cliptrack"
	"github.com/cliptrack/cliptrack/editor"
	"github.com/stretchr/testify/require"
)

// memFiles keeps audio and MIDI files in memory.
type memFiles struct {
	audio      map[string]*memAudio
	midi       map[string]*cliptrack.MidiFile
	failWrites bool
	removed    []string
}

type memAudio struct {
	sampleRate int
	data       [][]float32
}

type memAudioReader struct {
	f   *memAudio
	pos int
}

type memAudioWriter struct {
	f    *memAudio
	fail bool
}

var errDiskFull = errors.New("disk full")

func newMemFiles() *memFiles {
	return &memFiles{audio: map[string]*memAudio{}, midi: map[string]*cliptrack.MidiFile{}}
}

// constant adds a mono audio file of n frames with every sample set to v.
func (f *memFiles) constant(path string, sampleRate, n int, v float32) {
	data := make([]float32, n)
	for i := range data {
		data[i] = v
	}
	f.audio[path] = &memAudio{sampleRate: sampleRate, data: [][]float32{data}}
}

func (f *memFiles) OpenAudio(path string) (cliptrack.AudioReader, error) {
	a, ok := f.audio[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &memAudioReader{f: a}, nil
}

func (f *memFiles) CreateAudio(path string, channels, sampleRate int) (cliptrack.AudioWriter, error) {
	a := &memAudio{sampleRate: sampleRate, data: make([][]float32, channels)}
	f.audio[path] = a
	return &memAudioWriter{f: a, fail: f.failWrites}, nil
}

func (f *memFiles) ReadMidi(path string) (*cliptrack.MidiFile, error) {
	m, ok := f.midi[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return m, nil
}

func (f *memFiles) WriteMidi(path string, m *cliptrack.MidiFile) error {
	if f.failWrites {
		return errDiskFull
	}
	f.midi[path] = m
	return nil
}

func (f *memFiles) Remove(path string) error {
	delete(f.audio, path)
	delete(f.midi, path)
	f.removed = append(f.removed, path)
	return nil
}

func (r *memAudioReader) Channels() int   { return len(r.f.data) }
func (r *memAudioReader) SampleRate() int { return r.f.sampleRate }
func (r *memAudioReader) Frames() int     { return len(r.f.data[0]) }
func (r *memAudioReader) Close() error    { return nil }

func (r *memAudioReader) Read(buf [][]float32) (int, error) {
	if r.pos >= r.Frames() {
		return 0, io.EOF
	}
	n := 0
	for c := range buf {
		n = copy(buf[c], r.f.data[c%len(r.f.data)][r.pos:])
	}
	r.pos += n
	return n, nil
}

func (r *memAudioReader) Seek(frame int) error {
	r.pos = frame
	return nil
}

func (w *memAudioWriter) Write(buf [][]float32, frames int) error {
	if w.fail {
		return errDiskFull
	}
	for c := range w.f.data {
		w.f.data[c] = append(w.f.data[c], buf[c][:frames]...)
	}
	return nil
}

func (w *memAudioWriter) Close() error { return nil }

// testOptions use small windows so the scans go through several syncs and
// checkpoints.
func testOptions() editor.Options {
	opts := editor.DefaultOptions()
	opts.BufferSize = 16
	opts.SyncInterval = 3
	opts.StabilizeInterval = 2
	return opts
}

// newModel returns a model of an empty session at 1000 Hz and 960 ticks
// per beat, so one beat at 120 BPM is 500 frames.
func newModel(t *testing.T, files *memFiles, options ...editor.Option) *editor.Model {
	t.Helper()
	s := cliptrack.NewSession("test", 1000, 960)
	s.Dir = t.TempDir()
	options = append([]editor.Option{editor.WithAudioFiles(files), editor.WithMidiFiles(files), editor.WithProgress(editor.NopProgress{})}, options...)
	m, err := editor.New(s, testOptions(), options...)
	require.NoError(t, err)
	return m
}

func addTrack(t *testing.T, m *editor.Model, trackType cliptrack.TrackType) *cliptrack.Track {
	t.Helper()
	tr, err := m.AddTrack(trackType)
	require.NoError(t, err)
	tr.Channels = 1
	return tr
}

// addClip puts the clip onto the track through an undoable command.
func addClip(t *testing.T, m *editor.Model, tr *cliptrack.Track, c *cliptrack.Clip) *cliptrack.Clip {
	t.Helper()
	cmd := editor.NewClipCommand("add clip")
	cmd.AddClip(c, tr)
	require.NoError(t, m.Execute(cmd))
	return c
}

func audioClip(file string, start, length int, gain float32) *cliptrack.Clip {
	c := cliptrack.NewAudioClip(file, start)
	c.Length = length
	c.Gain = gain
	return c
}

func midiClip(start, length int, events ...*cliptrack.MidiEvent) *cliptrack.Clip {
	c := cliptrack.NewMidiClip("clip.mid", start, 0)
	c.Length = length
	c.Midi.Revision = 1
	c.Midi.Sequence = cliptrack.NewMidiSequence("clip", 0, 960)
	for _, e := range events {
		c.Midi.Sequence.InsertEvent(e)
	}
	return c
}

func note(time, duration int, velocity uint8) *cliptrack.MidiEvent {
	return &cliptrack.MidiEvent{Type: cliptrack.NoteOn, Time: time, Duration: duration, Note: 60, Value: velocity}
}
