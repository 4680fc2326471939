package editor

import (
	"github.com/cliptrack/cliptrack"
	"go.uber.org/zap"
)

// QuantizeClips snaps the note events of the MIDI clips to the grid of the
// session (a beat divided by the snap per beat of the time scale): note
// times are rounded to the nearest grid line and durations are rounded up
// to a whole number of grid steps. Only the selected range of each clip is
// affected. All clips are folded into one undoable command; if no event
// changes, nothing is executed and a PreconditionFailure is returned.
func (m *Model) QuantizeClips(clips ...*cliptrack.Clip) error {
	snap := m.session.TimeScale.SnapPerBeat
	if snap < 1 {
		return cliptrack.Precondition("quantize: snap is off")
	}
	cmd := NewClipCommand("clip quantize")
	for _, c := range clips {
		if edit := m.quantizeClip(c, snap); edit != nil {
			cmd.AddEditCommand(edit)
		}
	}
	if cmd.IsEmpty() {
		return cliptrack.Precondition("quantize: nothing to quantize")
	}
	return m.Execute(cmd)
}

func (m *Model) quantizeClip(c *cliptrack.Clip, snap int) *MidiEditCommand {
	if c == nil || c.Kind != cliptrack.MidiClipKind || c.Sequence() == nil {
		return nil
	}
	w := m.clipWindow(c)
	start, end := c.SelectionExtent()
	from, to := w.seqTime(m.TickFromFrame(start)), w.seqTime(m.TickFromFrame(end))
	edit := NewMidiEditCommand(c, "clip quantize")
	cursor := cliptrack.NewCursor(&m.session.TimeScale)
	for _, e := range c.Sequence().Events {
		if e.Type != cliptrack.NoteOn || e.Time < from || e.Time >= to {
			continue
		}
		node, err := cursor.SeekTick(w.absTick(e.Time))
		if err != nil {
			return nil
		}
		q := max(node.TicksPerBeat()/snap, 1)
		time := q * ((e.Time + q/2) / q)
		duration := q * ((e.Duration + q - 1) / q)
		if time != e.Time || duration != e.Duration {
			edit.ResizeEventTime(e, time, duration)
		}
	}
	if edit.IsEmpty() {
		m.log.Debug("clip already quantized", zap.String("clip", c.Name))
		return nil
	}
	return edit
}

// clipWindow maps between the sequence time of a MIDI clip and absolute
// ticks. Sequence time t plays at absolute tick start+t-offset, and is
// audible if it lies in [offset, offset+length).
type clipWindow struct {
	start  int // absolute tick of the clip start
	offset int // ticks of the sequence hidden before the clip start
	length int
}

func (m *Model) clipWindow(c *cliptrack.Clip) clipWindow {
	start := m.TickFromFrame(c.Start)
	return clipWindow{
		start:  start,
		offset: m.TickFromFrame(c.Start+c.Offset) - start,
		length: m.TickFromFrame(c.End()) - start,
	}
}

func (w clipWindow) absTick(t int) int { return w.start + t - w.offset }

func (w clipWindow) visible(t int) bool {
	return t >= w.offset && t < w.offset+w.length
}

// seqTime converts an absolute tick to sequence time of the clip.
func (w clipWindow) seqTime(tick int) int { return tick - w.start + w.offset }
