package cliptrack

import (
	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

type (
	// TrackType tells what kind of clips a track holds.
	TrackType int

	// Track is an ordered list of clips (insertion order is arrangement
	// order; overlaps are allowed) plus the output and MIDI state of the
	// track. A track owns its clips exclusively.
	Track struct {
		ID                uuid.UUID
		Name              string
		Type              TrackType
		OutputBus         string `yaml:",omitempty"`
		Channels          int    `yaml:",omitempty"` // number of channels of the output bus
		MidiChannel       int    `yaml:",omitempty"`
		MidiBank          int    `yaml:",omitempty"`
		MidiProgram       int    `yaml:",omitempty"`
		MidiBankSelMethod int    `yaml:",omitempty"`
		Clips             []*Clip
	}

	// TrackProperties are the user editable properties of a track, used by
	// track edit commands to swap the state back and forth.
	TrackProperties struct {
		Name              string
		OutputBus         string
		Channels          int
		MidiChannel       int
		MidiBank          int
		MidiProgram       int
		MidiBankSelMethod int
	}
)

const (
	NoTrack TrackType = iota
	AudioTrack
	MidiTrack
)

func (t TrackType) String() string {
	switch t {
	case AudioTrack:
		return "audio"
	case MidiTrack:
		return "midi"
	}
	return "none"
}

// ClipKind returns the kind of clips this track type can hold; ok is false
// for tracks without clips.
func (t TrackType) ClipKind() (kind ClipKind, ok bool) {
	switch t {
	case AudioTrack:
		return AudioClipKind, true
	case MidiTrack:
		return MidiClipKind, true
	}
	return 0, false
}

// NewTrack returns an empty track. Audio tracks default to stereo.
func NewTrack(name string, trackType TrackType) *Track {
	t := &Track{ID: uuid.New(), Name: name, Type: trackType, OutputBus: "Master"}
	if trackType == AudioTrack {
		t.Channels = 2
	}
	return t
}

// AddClip appends the clip to the track and links it back to the track.
func (t *Track) AddClip(c *Clip) {
	c.TrackID = t.ID
	t.Clips = append(t.Clips, c)
}

// InsertClip inserts the clip at index; used when undoing a removal so the
// arrangement order is restored.
func (t *Track) InsertClip(index int, c *Clip) {
	c.TrackID = t.ID
	index = min(max(index, 0), len(t.Clips))
	t.Clips = slices.Insert(t.Clips, index, c)
}

// UnlinkClip removes the clip from the track and returns its former index,
// or -1 if the clip did not belong to the track. The back-reference is
// kept, so the clip still remembers its track while it sits in the undo
// history.
func (t *Track) UnlinkClip(c *Clip) int {
	i := t.ClipIndex(c)
	if i < 0 {
		return -1
	}
	t.Clips = slices.Delete(t.Clips, i, i+1)
	return i
}

// ClipIndex returns the index of the clip in the track or -1.
func (t *Track) ClipIndex(c *Clip) int {
	return slices.Index(t.Clips, c)
}

// Properties returns the editable properties of the track.
func (t *Track) Properties() TrackProperties {
	return TrackProperties{
		Name:              t.Name,
		OutputBus:         t.OutputBus,
		Channels:          t.Channels,
		MidiChannel:       t.MidiChannel,
		MidiBank:          t.MidiBank,
		MidiProgram:       t.MidiProgram,
		MidiBankSelMethod: t.MidiBankSelMethod,
	}
}

// SetProperties overwrites the editable properties of the track.
func (t *Track) SetProperties(p TrackProperties) {
	t.Name = p.Name
	t.OutputBus = p.OutputBus
	t.Channels = p.Channels
	t.MidiChannel = p.MidiChannel
	t.MidiBank = p.MidiBank
	t.MidiProgram = p.MidiProgram
	t.MidiBankSelMethod = p.MidiBankSelMethod
}

// Copy returns a deep copy of the track with a fresh ID; the clips are
// cloned and linked to the copy.
func (t *Track) Copy() *Track {
	ret := *t
	ret.ID = uuid.New()
	ret.Clips = make([]*Clip, 0, len(t.Clips))
	for _, c := range t.Clips {
		ret.AddClip(c.Clone())
	}
	return &ret
}

// Length returns the end of the last clip on the track.
func (t *Track) Length() int {
	ret := 0
	for _, c := range t.Clips {
		ret = max(ret, c.End())
	}
	return ret
}
