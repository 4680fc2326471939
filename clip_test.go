package cliptrack_test

import (
	"context"
	"testing"

	"github.com/cliptrack/cliptrack"
	"github.com/stretchr/testify/assert"
)

func TestClipGainAt(t *testing.T) {
	c := cliptrack.NewAudioClip("a.wav", 100)
	c.Length = 100
	c.Gain = 0.5
	c.FadeIn = 10
	c.FadeOut = 20
	tests := []struct {
		offset int
		want   float32
	}{
		{0, 0},
		{5, 0.25},
		{10, 0.5},
		{50, 0.5},
		{90, 0.25},
		{100, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, c.GainAt(tt.offset), 1e-6, "offset %d", tt.offset)
	}
}

func TestClipSelectionClamps(t *testing.T) {
	c := cliptrack.NewAudioClip("a.wav", 100)
	c.Length = 100
	c.SetSelection(50, 500)
	assert.True(t, c.Selected)
	start, end := c.SelectionExtent()
	assert.Equal(t, 100, start)
	assert.Equal(t, 200, end)
	assert.False(t, c.IsRangeSelected())

	c.SetSelection(150, 170)
	assert.True(t, c.IsRangeSelected())
	offset, length := c.SelectionRange()
	assert.Equal(t, 50, offset)
	assert.Equal(t, 20, length)

	c.SetSelection(300, 400)
	assert.False(t, c.Selected)
	offset, length = c.SelectionRange()
	assert.Equal(t, 0, offset)
	assert.Equal(t, 100, length)
}

func TestClipCloneIsDeep(t *testing.T) {
	c := cliptrack.NewMidiClip("a.mid", 0, 1)
	c.Midi.Sequence.InsertEvent(note(0, 10, 60, 100))
	cp := c.Clone()
	assert.NotEqual(t, c.ID, cp.ID)
	assert.Equal(t, c.TrackID, cp.TrackID)
	cp.Midi.Sequence.Events[0].Value = 1
	cp.Midi.TrackChannel = 2
	assert.Equal(t, uint8(100), c.Midi.Sequence.Events[0].Value)
	assert.Equal(t, 1, c.Midi.TrackChannel)
}

func TestTrackLinksClips(t *testing.T) {
	tr := cliptrack.NewTrack("audio", cliptrack.AudioTrack)
	a, b := cliptrack.NewAudioClip("a.wav", 0), cliptrack.NewAudioClip("b.wav", 10)
	a.Length, b.Length = 10, 30
	tr.AddClip(a)
	tr.InsertClip(0, b)
	assert.Equal(t, tr.ID, a.TrackID)
	assert.Equal(t, []*cliptrack.Clip{b, a}, tr.Clips)
	assert.Equal(t, 40, tr.Length())
	assert.Equal(t, 0, tr.UnlinkClip(b))
	assert.Equal(t, -1, tr.UnlinkClip(b))
	assert.Equal(t, tr.ID, b.TrackID)
}

func TestTrackCopy(t *testing.T) {
	tr := cliptrack.NewTrack("audio", cliptrack.AudioTrack)
	c := cliptrack.NewAudioClip("a.wav", 0)
	c.Length = 10
	tr.AddClip(c)
	cp := tr.Copy()
	assert.NotEqual(t, tr.ID, cp.ID)
	assert.Len(t, cp.Clips, 1)
	assert.NotSame(t, c, cp.Clips[0])
	assert.Equal(t, cp.ID, cp.Clips[0].TrackID)
	assert.Equal(t, tr.ID, c.TrackID)
	assert.False(t, cp.Clips[0].IsSelected())
	c.SelectAll()
	assert.True(t, c.IsSelected())
	assert.False(t, c.IsRangeSelected())
}

func TestSessionValidate(t *testing.T) {
	s := cliptrack.NewSession("s", 1000, 960)
	tr := cliptrack.NewTrack("midi", cliptrack.MidiTrack)
	tr.AddClip(cliptrack.NewAudioClip("a.wav", 0))
	s.Tracks = append(s.Tracks, tr)
	assert.Error(t, s.Validate())
	tr.Type = cliptrack.AudioTrack
	assert.NoError(t, s.Validate())
	s.TimeScale.SampleRate = 0
	assert.Error(t, s.Validate())
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, cliptrack.PreconditionFailure, cliptrack.KindOf(cliptrack.Precondition("x")))
	assert.Equal(t, cliptrack.RangeFailure, cliptrack.KindOf(cliptrack.Range("x")))
	assert.True(t, cliptrack.IsSilent(cliptrack.Range("x")))
	assert.False(t, cliptrack.IsSilent(cliptrack.Precondition("x")))
	assert.Nil(t, cliptrack.IO(nil, "x"))
	assert.Equal(t, cliptrack.Canceled, cliptrack.KindOf(cliptrack.Cancel(context.Canceled)))
	assert.Equal(t, cliptrack.Canceled, cliptrack.KindOf(context.Canceled))
}
