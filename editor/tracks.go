package editor

import (
	"fmt"

	"github.com/cliptrack/cliptrack"
)

// AddTrack appends a new empty track named after its position.
func (m *Model) AddTrack(trackType cliptrack.TrackType) (*cliptrack.Track, error) {
	if _, ok := trackType.ClipKind(); !ok {
		return nil, cliptrack.Precondition("add track: invalid track type")
	}
	t := cliptrack.NewTrack(fmt.Sprintf("Track %d", len(m.session.Tracks)+1), trackType)
	if trackType == cliptrack.MidiTrack {
		t.MidiChannel = len(m.session.Tracks) % 16
	}
	if err := m.Execute(NewAddTrackCommand(t)); err != nil {
		return nil, err
	}
	m.currentTrack = t
	return t, nil
}

// RemoveTrack removes the track, or the current track if t is nil.
func (m *Model) RemoveTrack(t *cliptrack.Track) error {
	if t == nil {
		t = m.currentTrack
	}
	if t == nil {
		return cliptrack.Precondition("remove track: no track")
	}
	return m.Execute(NewRemoveTrackCommand(t))
}

// EditTrack sets the properties of the track. For MIDI tracks, other MIDI
// tracks on the same output bus and channel get the same bank and program
// in the same command.
func (m *Model) EditTrack(t *cliptrack.Track, props cliptrack.TrackProperties) error {
	if t == nil {
		return cliptrack.Precondition("edit track: no track")
	}
	cmd := NewCompositeCommand("edit track", NewEditTrackCommand(t, props))
	if t.Type == cliptrack.MidiTrack {
		for _, c := range m.aliasCommands(t, props) {
			cmd.Add(c)
		}
	}
	return m.Execute(cmd)
}

// UpdateMidiTrack propagates the bank select method, bank and program of a
// MIDI track to the other MIDI tracks sharing its output bus and channel.
func (m *Model) UpdateMidiTrack(t *cliptrack.Track) error {
	if t == nil || t.Type != cliptrack.MidiTrack {
		return cliptrack.Precondition("update midi track: not a midi track")
	}
	cmd := NewCompositeCommand("update midi track")
	for _, c := range m.aliasCommands(t, t.Properties()) {
		cmd.Add(c)
	}
	return m.Execute(cmd)
}

func (m *Model) aliasCommands(t *cliptrack.Track, props cliptrack.TrackProperties) []Command {
	var ret []Command
	for _, u := range m.session.Tracks {
		if u == t || u.Type != cliptrack.MidiTrack || u.OutputBus != props.OutputBus || u.MidiChannel != props.MidiChannel {
			continue
		}
		p := u.Properties()
		p.MidiBankSelMethod = props.MidiBankSelMethod
		p.MidiBank = props.MidiBank
		p.MidiProgram = props.MidiProgram
		if p != u.Properties() {
			ret = append(ret, NewEditTrackCommand(u, p))
		}
	}
	return ret
}

// NewClip adds a blank MIDI clip to a MIDI track, spanning the edit range or
// one bar from the edit head if the range is empty. The empty sequence is
// written to a new file right away.
func (m *Model) NewClip(t *cliptrack.Track) (*cliptrack.Clip, error) {
	if t == nil || m.session.TrackIndex(t) < 0 {
		return nil, cliptrack.Precondition("new clip: no track")
	}
	if t.Type != cliptrack.MidiTrack {
		return nil, cliptrack.Precondition("new clip: only midi tracks can have blank clips")
	}
	if m.midi == nil {
		return nil, cliptrack.Precondition("no midi file service")
	}
	start := m.session.EditHead
	length := m.session.EditTail - start
	if length <= 0 {
		cursor := cliptrack.NewCursor(&m.session.TimeScale)
		node, err := cursor.SeekFrame(start)
		if err != nil {
			return nil, cliptrack.Precondition("new clip: empty tempo map")
		}
		tick := node.TickFromFrame(start)
		length = m.FrameFromTick(tick+node.TicksPerBar()) - start
	}
	format := m.opts.MidiFormat
	trackChannel := t.MidiChannel
	seq := cliptrack.NewMidiSequence(t.Name, t.MidiChannel, m.TicksPerBeat())
	seq.Bank, seq.Program = t.MidiBank, t.MidiProgram
	f := &cliptrack.MidiFile{
		Format:       format,
		TicksPerBeat: m.TicksPerBeat(),
		TempoMap:     tempoMapFrom(&m.session.TimeScale, 0),
		Tracks:       []*cliptrack.MidiSequence{seq},
	}
	if format == 1 {
		f.Tracks = []*cliptrack.MidiSequence{cliptrack.NewMidiSequence("", 0, f.TicksPerBeat), seq}
		trackChannel = 1
	}
	path := m.CreateFilePath(t.Name, 1, "mid")
	if err := m.midi.WriteMidi(path, f); err != nil {
		return nil, cliptrack.IO(err, "could not write "+path)
	}
	m.register(cliptrack.MidiClipKind, path)
	c := cliptrack.NewMidiClip(path, start, trackChannel)
	c.Name = t.Name
	c.Length = length
	c.Midi.Format = format
	c.Midi.Sequence = seq.Copy()
	c.Midi.Revision = 1
	cmd := NewClipCommand("new clip")
	cmd.AddClip(c, t)
	if err := m.Execute(cmd); err != nil {
		return nil, err
	}
	m.SetCurrentClip(c)
	return c, nil
}
