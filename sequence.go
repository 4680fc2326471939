package cliptrack

import (
	"golang.org/x/exp/slices"
)

type (
	// MidiEventType is the kind of a MidiEvent. Only channel voice messages
	// are kept in sequences; meta and system messages live in the file.
	MidiEventType int

	// MidiEvent is a single time-tagged MIDI event. Time and Duration are in
	// ticks, relative to the beginning of the sequence it belongs to. Note
	// on events carry their duration, so there are no separate note off
	// events. Value is the velocity for note events, the controller value
	// for controllers etc.
	MidiEvent struct {
		Type      MidiEventType
		Time      int
		Duration  int   `yaml:",omitempty"`
		Note      uint8 `yaml:",omitempty"` // note, controller or program number
		Value     uint8 `yaml:",omitempty"`
		PitchBend int16 `yaml:",omitempty"`
	}

	// MidiSequence is an ordered-by-time collection of MidiEvents, owned by
	// exactly one MidiClip.
	MidiSequence struct {
		Name         string
		Channel      int
		Bank         int
		Program      int
		TicksPerBeat int
		Events       []*MidiEvent
	}
)

const (
	NoteOn MidiEventType = iota
	KeyPress
	Controller
	PgmChange
	ChanPress
	PitchBend
)

func (t MidiEventType) String() string {
	switch t {
	case NoteOn:
		return "NOTEON"
	case KeyPress:
		return "KEYPRESS"
	case Controller:
		return "CONTROLLER"
	case PgmChange:
		return "PGMCHANGE"
	case ChanPress:
		return "CHANPRESS"
	case PitchBend:
		return "PITCHBEND"
	}
	return "UNKNOWN"
}

// Velocity is an alias for Value, meaningful for note events.
func (e *MidiEvent) Velocity() uint8 {
	return e.Value
}

// End returns the tick where the event ends.
func (e *MidiEvent) End() int {
	return e.Time + e.Duration
}

// Copy returns a copy of the event.
func (e *MidiEvent) Copy() *MidiEvent {
	ret := *e
	return &ret
}

// NewMidiSequence returns an empty sequence.
func NewMidiSequence(name string, channel, ticksPerBeat int) *MidiSequence {
	return &MidiSequence{Name: name, Channel: channel, TicksPerBeat: ticksPerBeat}
}

// InsertEvent inserts the event keeping the events ordered by time. Events
// with equal time keep their insertion order.
func (s *MidiSequence) InsertEvent(e *MidiEvent) {
	i, _ := slices.BinarySearchFunc(s.Events, e.Time+1, func(a *MidiEvent, t int) int { return a.Time - t })
	s.Events = slices.Insert(s.Events, i, e)
}

// RemoveEvent unlinks the event from the sequence; returns false if the
// event does not belong to the sequence.
func (s *MidiSequence) RemoveEvent(e *MidiEvent) bool {
	i := slices.Index(s.Events, e)
	if i < 0 {
		return false
	}
	s.Events = slices.Delete(s.Events, i, i+1)
	return true
}

// Sort reorders the events by time, stable. Call after modifying the times
// of events in place.
func (s *MidiSequence) Sort() {
	slices.SortStableFunc(s.Events, func(a, b *MidiEvent) int { return a.Time - b.Time })
}

// Duration returns the tick where the last event ends.
func (s *MidiSequence) Duration() int {
	ret := 0
	for _, e := range s.Events {
		ret = max(ret, e.End())
	}
	return ret
}

// Copy makes a deep copy of a MidiSequence.
func (s *MidiSequence) Copy() *MidiSequence {
	ret := *s
	ret.Events = make([]*MidiEvent, len(s.Events))
	for i, e := range s.Events {
		ret.Events[i] = e.Copy()
	}
	return &ret
}

// Rescale converts all event times and durations to another tick
// resolution.
func (s *MidiSequence) Rescale(ticksPerBeat int) {
	if s.TicksPerBeat <= 0 || ticksPerBeat <= 0 || s.TicksPerBeat == ticksPerBeat {
		s.TicksPerBeat = ticksPerBeat
		return
	}
	for _, e := range s.Events {
		e.Time = e.Time * ticksPerBeat / s.TicksPerBeat
		e.Duration = e.Duration * ticksPerBeat / s.TicksPerBeat
	}
	s.TicksPerBeat = ticksPerBeat
}
