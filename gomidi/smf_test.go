package gomidi_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliptrack/cliptrack"
	"github.com/cliptrack/cliptrack/gomidi"
)

func lead() *cliptrack.MidiSequence {
	seq := cliptrack.NewMidiSequence("Lead", 2, 960)
	seq.Program = 5
	seq.InsertEvent(&cliptrack.MidiEvent{Type: cliptrack.NoteOn, Time: 0, Duration: 480, Note: 60, Value: 100})
	seq.InsertEvent(&cliptrack.MidiEvent{Type: cliptrack.NoteOn, Time: 480, Duration: 480, Note: 60, Value: 90})
	seq.InsertEvent(&cliptrack.MidiEvent{Type: cliptrack.Controller, Time: 240, Note: 7, Value: 64})
	seq.InsertEvent(&cliptrack.MidiEvent{Type: cliptrack.PitchBend, Time: 600, PitchBend: -200})
	return seq
}

func notes(seq *cliptrack.MidiSequence) []*cliptrack.MidiEvent {
	var ret []*cliptrack.MidiEvent
	for _, e := range seq.Events {
		if e.Type == cliptrack.NoteOn {
			ret = append(ret, e)
		}
	}
	return ret
}

func tempoMap() []cliptrack.TempoNode {
	return []cliptrack.TempoNode{
		{Tick: 0, Tempo: 120, BeatsPerBar: 4, BeatDivisor: 2},
		{Tick: 1920, Tempo: 60, BeatsPerBar: 3, BeatDivisor: 3},
	}
}

func TestFormat1RoundTrip(t *testing.T) {
	files := gomidi.New()
	path := filepath.Join(t.TempDir(), "song.mid")
	in := &cliptrack.MidiFile{
		Format:       1,
		TicksPerBeat: 960,
		TempoMap:     tempoMap(),
		Tracks:       []*cliptrack.MidiSequence{cliptrack.NewMidiSequence("", 0, 960), lead()},
	}
	require.NoError(t, files.WriteMidi(path, in))

	out, err := files.ReadMidi(path)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Format)
	assert.Equal(t, 960, out.TicksPerBeat)
	require.Len(t, out.Tracks, 2)
	assert.Empty(t, out.Tracks[0].Events)
	seq := out.Tracks[1]
	assert.Equal(t, "Lead", seq.Name)
	assert.Equal(t, 2, seq.Channel)
	assert.Equal(t, 5, seq.Program)

	n := notes(seq)
	require.Len(t, n, 2)
	assert.Equal(t, []int{0, 480}, []int{n[0].Time, n[1].Time})
	assert.Equal(t, []int{480, 480}, []int{n[0].Duration, n[1].Duration})
	assert.Equal(t, []uint8{100, 90}, []uint8{n[0].Value, n[1].Value})

	var bend, cc *cliptrack.MidiEvent
	for _, e := range seq.Events {
		switch e.Type {
		case cliptrack.PitchBend:
			bend = e
		case cliptrack.Controller:
			cc = e
		}
	}
	require.NotNil(t, bend)
	assert.Equal(t, int16(-200), bend.PitchBend)
	require.NotNil(t, cc)
	assert.Equal(t, uint8(7), cc.Note)
	assert.Equal(t, 240, cc.Time)

	require.Len(t, out.TempoMap, 2)
	assert.Equal(t, 120.0, out.TempoMap[0].Tempo)
	assert.Equal(t, 4, out.TempoMap[0].BeatsPerBar)
	assert.Equal(t, 2, out.TempoMap[0].BeatDivisor)
	assert.Equal(t, 1920, out.TempoMap[1].Tick)
	assert.Equal(t, 60.0, out.TempoMap[1].Tempo)
	assert.Equal(t, 3, out.TempoMap[1].BeatsPerBar)
	assert.Equal(t, 3, out.TempoMap[1].BeatDivisor)
}

func TestFormat0SplitsChannels(t *testing.T) {
	files := gomidi.New()
	path := filepath.Join(t.TempDir(), "song.mid")
	bass := cliptrack.NewMidiSequence("", 0, 480)
	bass.InsertEvent(&cliptrack.MidiEvent{Type: cliptrack.NoteOn, Time: 240, Duration: 240, Note: 36, Value: 80})
	in := &cliptrack.MidiFile{
		Format:       0,
		TicksPerBeat: 960,
		TempoMap:     tempoMap()[:1],
		Tracks:       []*cliptrack.MidiSequence{lead(), bass},
	}
	require.NoError(t, files.WriteMidi(path, in))

	out, err := files.ReadMidi(path)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Format)
	require.Len(t, out.Tracks, 2)
	assert.Equal(t, 0, out.Tracks[0].Channel)
	assert.Equal(t, 2, out.Tracks[1].Channel)
	// the bass sequence is rescaled to the file resolution
	n := notes(out.Tracks[0])
	require.Len(t, n, 1)
	assert.Equal(t, 480, n[0].Time)
	assert.Equal(t, 480, n[0].Duration)
	assert.Len(t, notes(out.Tracks[1]), 2)
	assert.NotNil(t, out.SequenceTrack(0, 2))
	assert.Nil(t, out.SequenceTrack(0, 9))
}

func TestZeroLengthNote(t *testing.T) {
	files := gomidi.New()
	path := filepath.Join(t.TempDir(), "song.mid")
	seq := cliptrack.NewMidiSequence("", 0, 960)
	seq.InsertEvent(&cliptrack.MidiEvent{Type: cliptrack.NoteOn, Time: 0, Duration: 0, Note: 60, Value: 100})
	seq.InsertEvent(&cliptrack.MidiEvent{Type: cliptrack.NoteOn, Time: 480, Duration: 480, Note: 60, Value: 90})
	in := &cliptrack.MidiFile{Format: 1, TicksPerBeat: 960, Tracks: []*cliptrack.MidiSequence{cliptrack.NewMidiSequence("", 0, 960), seq}}
	require.NoError(t, files.WriteMidi(path, in))

	out, err := files.ReadMidi(path)
	require.NoError(t, err)
	require.Len(t, out.Tracks, 2)
	n := notes(out.Tracks[1])
	require.Len(t, n, 2)
	assert.Equal(t, []int{0, 480}, []int{n[0].Time, n[1].Time})
	// the second note is not cut short by the off of the first
	assert.Equal(t, []int{0, 480}, []int{n[0].Duration, n[1].Duration})
}

func TestWriteInvalid(t *testing.T) {
	files := gomidi.New()
	path := filepath.Join(t.TempDir(), "song.mid")
	assert.Error(t, files.WriteMidi(path, &cliptrack.MidiFile{Format: 1, TicksPerBeat: 0}))
	assert.Error(t, files.WriteMidi(path, &cliptrack.MidiFile{Format: 2, TicksPerBeat: 960}))
	_, err := files.ReadMidi(filepath.Join(t.TempDir(), "missing.mid"))
	assert.Error(t, err)
	assert.NoError(t, files.Remove(path))
}
