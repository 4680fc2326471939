package cliptrack

import (
	"github.com/google/uuid"
)

type (
	// ClipKind tags the variant of a Clip. Operations that behave
	// differently for audio and MIDI material switch on the kind instead of
	// relying on an interface hierarchy.
	ClipKind int

	// Clip is a placed, trimmed reference to source material on a track
	// timeline. All positions are in frames: Start is the absolute position
	// on the timeline, Offset is the position in the source material where
	// the clip begins, and Length is the length of the clip. The optional
	// selection sub-range [SelectStart, SelectEnd) is in absolute frames and
	// always lies within [Start, Start+Length).
	Clip struct {
		ID uuid.UUID
		// TrackID is a non-owning back-reference to the track owning the
		// clip. Tracks own their clips; the clip only remembers where it
		// belongs.
		TrackID  uuid.UUID `yaml:"-" json:"-"`
		Kind     ClipKind
		Name     string `yaml:",omitempty"`
		Filename string
		Start    int
		Offset   int `yaml:",omitempty"`
		Length   int
		Gain     float32
		FadeIn   int `yaml:",omitempty"`
		FadeOut  int `yaml:",omitempty"`

		Selected    bool `yaml:"-" json:"-"`
		SelectStart int  `yaml:"-" json:"-"`
		SelectEnd   int  `yaml:"-" json:"-"`

		Audio *AudioParams `yaml:",omitempty"`
		Midi  *MidiParams  `yaml:",omitempty"`
	}

	// AudioParams holds the audio specific clip parameters.
	AudioParams struct {
		TimeStretch float64 `yaml:",omitempty"`
		PitchShift  float64 `yaml:",omitempty"`
	}

	// MidiParams holds the MIDI specific clip parameters. Revision is bumped
	// every time the sequence is saved to a file; a zero revision means the
	// sequence has changes that are not yet written to disk.
	MidiParams struct {
		TrackChannel int
		Format       int
		Revision     int
		Sequence     *MidiSequence `yaml:"-" json:"-"`
	}
)

const (
	AudioClipKind ClipKind = iota
	MidiClipKind
)

func (k ClipKind) String() string {
	switch k {
	case AudioClipKind:
		return "audio"
	case MidiClipKind:
		return "midi"
	}
	return "unknown"
}

// NewAudioClip returns an audio clip with unity gain.
func NewAudioClip(filename string, start int) *Clip {
	return &Clip{
		ID:       uuid.New(),
		Kind:     AudioClipKind,
		Filename: filename,
		Start:    start,
		Gain:     1,
		Audio:    &AudioParams{TimeStretch: 1, PitchShift: 1},
	}
}

// NewMidiClip returns a MIDI clip with unity gain and an empty sequence.
func NewMidiClip(filename string, start, trackChannel int) *Clip {
	return &Clip{
		ID:       uuid.New(),
		Kind:     MidiClipKind,
		Filename: filename,
		Start:    start,
		Gain:     1,
		Midi:     &MidiParams{TrackChannel: trackChannel, Sequence: &MidiSequence{}},
	}
}

// End returns the absolute frame where the clip ends (exclusive).
func (c *Clip) End() int {
	return c.Start + c.Length
}

// Contains reports whether the frame lies within the clip extent.
func (c *Clip) Contains(frame int) bool {
	return frame >= c.Start && frame < c.End()
}

// Sequence returns the sequence of a MIDI clip or nil.
func (c *Clip) Sequence() *MidiSequence {
	if c.Midi == nil {
		return nil
	}
	return c.Midi.Sequence
}

// Clone makes a deep copy of the clip with a fresh ID. The clone belongs to
// the same track as the original.
func (c *Clip) Clone() *Clip {
	ret := *c
	ret.ID = uuid.New()
	if c.Audio != nil {
		a := *c.Audio
		ret.Audio = &a
	}
	if c.Midi != nil {
		m := *c.Midi
		if c.Midi.Sequence != nil {
			m.Sequence = c.Midi.Sequence.Copy()
		}
		ret.Midi = &m
	}
	return &ret
}

// GainAt returns the gain of the clip at a frame offset relative to the
// clip start: the clip gain shaped by the linear fade-in and fade-out.
func (c *Clip) GainAt(offset int) float32 {
	g := c.Gain
	if c.FadeIn > 0 && offset < c.FadeIn {
		g *= float32(max(offset, 0)) / float32(c.FadeIn)
	}
	if c.FadeOut > 0 {
		if rem := c.Length - offset; rem < c.FadeOut {
			g *= float32(max(rem, 0)) / float32(c.FadeOut)
		}
	}
	return g
}

// SetSelection selects the sub-range [start, end) of the clip, clamped into
// the clip extent. An empty intersection clears the selection.
func (c *Clip) SetSelection(start, end int) {
	start = max(start, c.Start)
	end = min(end, c.End())
	if start >= end {
		c.ClearSelection()
		return
	}
	c.Selected = true
	c.SelectStart = start
	c.SelectEnd = end
}

// SelectAll selects the whole clip.
func (c *Clip) SelectAll() {
	c.SetSelection(c.Start, c.End())
}

// ClearSelection deselects the clip.
func (c *Clip) ClearSelection() {
	c.Selected = false
	c.SelectStart = 0
	c.SelectEnd = 0
}

// IsSelected reports whether any part of the clip is selected.
func (c *Clip) IsSelected() bool {
	return c.Selected
}

// IsRangeSelected reports whether only a sub-range of the clip is selected.
func (c *Clip) IsRangeSelected() bool {
	return c.Selected && (c.SelectStart > c.Start || c.SelectEnd < c.End())
}

// SelectionRange returns the selected sub-range as an offset relative to
// the clip start and a length. When nothing is selected, the whole clip is
// returned.
func (c *Clip) SelectionRange() (offset, length int) {
	if !c.Selected {
		return 0, c.Length
	}
	return c.SelectStart - c.Start, c.SelectEnd - c.SelectStart
}

// SelectionExtent returns the selection in absolute frames; the whole clip
// if nothing is selected.
func (c *Clip) SelectionExtent() (start, end int) {
	if !c.Selected {
		return c.Start, c.End()
	}
	return c.SelectStart, c.SelectEnd
}
