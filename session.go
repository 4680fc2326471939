package cliptrack

import (
	"errors"

	"github.com/google/uuid"
)

// Session is the serializable session document: the tempo map, the tracks
// with their clips and the transport positions. It holds no behaviour of
// its own beyond simple queries; editing happens through the editor
// package, which wraps a Session with undo history and locking.
type Session struct {
	Name        string
	Dir         string `yaml:",omitempty"`
	Description string `yaml:",omitempty"`
	TimeScale   TimeScale
	PlayHead    int `yaml:",omitempty"`
	EditHead    int `yaml:",omitempty"`
	EditTail    int `yaml:",omitempty"`
	Tracks      []*Track
}

// NewSession returns an empty session at 120 BPM, 4/4.
func NewSession(name string, sampleRate, ticksPerBeat int) Session {
	return Session{
		Name:      name,
		TimeScale: NewTimeScale(sampleRate, ticksPerBeat, 120, 4, 2),
	}
}

// Length returns the end frame of the last clip in the session.
func (s *Session) Length() int {
	ret := 0
	for _, t := range s.Tracks {
		ret = max(ret, t.Length())
	}
	return ret
}

// Track finds a track by its ID.
func (s *Session) Track(id uuid.UUID) *Track {
	for _, t := range s.Tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// TrackOf returns the track owning the clip, following the clip
// back-reference.
func (s *Session) TrackOf(c *Clip) *Track {
	if c == nil {
		return nil
	}
	return s.Track(c.TrackID)
}

// TrackIndex returns the index of the track in the session or -1.
func (s *Session) TrackIndex(t *Track) int {
	for i, u := range s.Tracks {
		if u == t {
			return i
		}
	}
	return -1
}

// Relink restores the clip back-references after unmarshaling.
func (s *Session) Relink() {
	for _, t := range s.Tracks {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		for _, c := range t.Clips {
			if c.ID == uuid.Nil {
				c.ID = uuid.New()
			}
			c.TrackID = t.ID
			if c.Kind == MidiClipKind && c.Midi == nil {
				c.Midi = &MidiParams{}
			}
			if c.Kind == AudioClipKind && c.Audio == nil {
				c.Audio = &AudioParams{TimeStretch: 1, PitchShift: 1}
			}
		}
	}
	s.TimeScale.Update()
}

// Validate checks if the Session looks valid: positive sample rate and tick
// resolution, and each clip kind matching its track type.
func (s *Session) Validate() error {
	if s.TimeScale.SampleRate < 1 {
		return errors.New("sample rate should be > 0")
	}
	if s.TimeScale.TicksPerBeat < 1 {
		return errors.New("ticks per beat should be > 0")
	}
	if len(s.TimeScale.Nodes) == 0 {
		return errors.New("tempo map is empty")
	}
	for _, t := range s.Tracks {
		kind, ok := t.Type.ClipKind()
		for _, c := range t.Clips {
			if !ok || c.Kind != kind {
				return errors.New("clip kind does not match track type")
			}
			if c.Length < 0 || c.Offset < 0 {
				return errors.New("clip has negative length or offset")
			}
		}
	}
	return nil
}
