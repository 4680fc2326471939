package editor

import (
	"github.com/cliptrack/cliptrack"
)

type (
	// MidiEditCommand is an ordered list of event operations on the sequence
	// of one MIDI clip. Applying or inverting it keeps the sequence ordered
	// by time and resets the revision of the clip, so the sequence is
	// written to a new file on the next save.
	MidiEditCommand struct {
		name string
		clip *cliptrack.Clip
		ops  []*eventOp
	}

	eventOpKind int

	eventOp struct {
		kind  eventOpKind
		event *cliptrack.MidiEvent
		to    eventState
		from  eventState
	}

	eventState struct {
		note     uint8
		time     int
		duration int
		value    uint8
	}
)

const (
	insertEvent eventOpKind = iota
	removeEvent
	moveEvent
	resizeEventTime
	resizeEventValue
)

func NewMidiEditCommand(clip *cliptrack.Clip, name string) *MidiEditCommand {
	return &MidiEditCommand{name: name, clip: clip}
}

func (c *MidiEditCommand) Name() string          { return c.name }
func (c *MidiEditCommand) IsEmpty() bool         { return len(c.ops) == 0 }
func (c *MidiEditCommand) Len() int              { return len(c.ops) }
func (c *MidiEditCommand) Clip() *cliptrack.Clip { return c.clip }

func (c *MidiEditCommand) InsertEvent(e *cliptrack.MidiEvent) {
	c.ops = append(c.ops, &eventOp{kind: insertEvent, event: e})
}

func (c *MidiEditCommand) RemoveEvent(e *cliptrack.MidiEvent) {
	c.ops = append(c.ops, &eventOp{kind: removeEvent, event: e})
}

// MoveEvent changes the note and the time of an event.
func (c *MidiEditCommand) MoveEvent(e *cliptrack.MidiEvent, note uint8, time int) {
	c.ops = append(c.ops, &eventOp{kind: moveEvent, event: e, to: eventState{note: note, time: time}})
}

// ResizeEventTime changes the time and the duration of an event.
func (c *MidiEditCommand) ResizeEventTime(e *cliptrack.MidiEvent, time, duration int) {
	c.ops = append(c.ops, &eventOp{kind: resizeEventTime, event: e, to: eventState{time: time, duration: duration}})
}

// ResizeEventValue changes the velocity or value of an event.
func (c *MidiEditCommand) ResizeEventValue(e *cliptrack.MidiEvent, value uint8) {
	c.ops = append(c.ops, &eventOp{kind: resizeEventValue, event: e, to: eventState{value: value}})
}

func (c *MidiEditCommand) sequence() (*cliptrack.MidiSequence, error) {
	seq := c.clip.Sequence()
	if seq == nil {
		return nil, cliptrack.Precondition("midi edit: clip has no sequence")
	}
	return seq, nil
}

func (c *MidiEditCommand) Redo(m *Model) error {
	seq, err := c.sequence()
	if err != nil {
		return err
	}
	for _, op := range c.ops {
		op.apply(seq)
	}
	c.clip.Midi.Revision = 0
	return nil
}

func (c *MidiEditCommand) Undo(m *Model) error {
	seq, err := c.sequence()
	if err != nil {
		return err
	}
	for i := len(c.ops) - 1; i >= 0; i-- {
		c.ops[i].revert(seq)
	}
	c.clip.Midi.Revision = 0
	return nil
}

func (o *eventOp) apply(seq *cliptrack.MidiSequence) {
	e := o.event
	switch o.kind {
	case insertEvent:
		seq.InsertEvent(e)
	case removeEvent:
		seq.RemoveEvent(e)
	case moveEvent:
		o.from = eventState{note: e.Note, time: e.Time}
		seq.RemoveEvent(e)
		e.Note, e.Time = o.to.note, max(o.to.time, 0)
		seq.InsertEvent(e)
	case resizeEventTime:
		o.from = eventState{time: e.Time, duration: e.Duration}
		seq.RemoveEvent(e)
		e.Time, e.Duration = max(o.to.time, 0), max(o.to.duration, 0)
		seq.InsertEvent(e)
	case resizeEventValue:
		o.from = eventState{value: e.Value}
		e.Value = o.to.value
	}
}

func (o *eventOp) revert(seq *cliptrack.MidiSequence) {
	e := o.event
	switch o.kind {
	case insertEvent:
		seq.RemoveEvent(e)
	case removeEvent:
		seq.InsertEvent(e)
	case moveEvent:
		seq.RemoveEvent(e)
		e.Note, e.Time = o.from.note, o.from.time
		seq.InsertEvent(e)
	case resizeEventTime:
		seq.RemoveEvent(e)
		e.Time, e.Duration = o.from.time, o.from.duration
		seq.InsertEvent(e)
	case resizeEventValue:
		e.Value = o.from.value
	}
}
