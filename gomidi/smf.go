// Package gomidi implements the MIDI file service of the editor with
// standard MIDI files.
package gomidi

import (
	"errors"
	"fmt"
	"math/bits"
	"os"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/exp/slices"

	"github.com/cliptrack/cliptrack"
)

type (
	// Files reads and writes standard MIDI files. Format 0 files are split
	// into one sequence per channel on read; format 1 files give one
	// sequence per track, the first one usually being the tempo track.
	Files struct{}

	timedMessage struct {
		tick  int
		order int
		msg   []byte
	}

	noteKey struct {
		channel, key uint8
	}
)

var errSMPTE = errors.New("SMPTE time format is not supported")

func New() *Files {
	return &Files{}
}

func (f *Files) ReadMidi(path string) (*cliptrack.MidiFile, error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read midi file: %w", err)
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errSMPTE
	}
	ret := &cliptrack.MidiFile{Format: int(s.Format()), TicksPerBeat: int(mt)}
	ret.TempoMap = readTempoMap(s)
	if ret.Format == 0 {
		var all []*cliptrack.MidiSequence
		for _, t := range s.Tracks {
			all = append(all, readChannels(t, ret.TicksPerBeat)...)
		}
		ret.Tracks = mergeChannels(all)
		return ret, nil
	}
	for _, t := range s.Tracks {
		ret.Tracks = append(ret.Tracks, readTrack(t, ret.TicksPerBeat))
	}
	return ret, nil
}

func (f *Files) WriteMidi(path string, file *cliptrack.MidiFile) error {
	tpb := file.TicksPerBeat
	if tpb <= 0 || tpb > 0x7fff {
		return fmt.Errorf("invalid ticks per beat %d", tpb)
	}
	var s *smf.SMF
	var tracks []smf.Track
	switch file.Format {
	case 0:
		s = smf.New()
		msgs := tempoMessages(file.TempoMap)
		for _, seq := range file.Tracks {
			msgs = append(msgs, sequenceMessages(seq, tpb)...)
		}
		tracks = []smf.Track{buildTrack(msgs)}
	case 1:
		s = smf.NewSMF1()
		for i, seq := range file.Tracks {
			var msgs []timedMessage
			if i == 0 {
				msgs = tempoMessages(file.TempoMap)
			}
			msgs = append(msgs, sequenceMessages(seq, tpb)...)
			tracks = append(tracks, buildTrack(msgs))
		}
		if len(tracks) == 0 {
			tracks = []smf.Track{buildTrack(tempoMessages(file.TempoMap))}
		}
	default:
		return fmt.Errorf("unsupported midi format %d", file.Format)
	}
	s.TimeFormat = smf.MetricTicks(tpb)
	for _, t := range tracks {
		if err := s.Add(t); err != nil {
			return fmt.Errorf("could not add midi track: %w", err)
		}
	}
	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("could not write midi file: %w", err)
	}
	return nil
}

func (f *Files) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove midi file: %w", err)
	}
	return nil
}

// readTempoMap collects the tempo and time signature changes of all tracks.
// Each node carries the last tempo and signature seen before it.
func readTempoMap(s *smf.SMF) []cliptrack.TempoNode {
	type change struct {
		tick        int
		tempo       float64
		num, divisor int
	}
	var changes []change
	for _, t := range s.Tracks {
		tick := 0
		for _, ev := range t {
			tick += int(ev.Delta)
			var bpm float64
			var num, denom, cpt, dsqpq uint8
			switch {
			case ev.Message.GetMetaTempo(&bpm):
				changes = append(changes, change{tick: tick, tempo: bpm})
			case ev.Message.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq):
				changes = append(changes, change{tick: tick, num: int(num), divisor: divisorExp(denom)})
			}
		}
	}
	slices.SortStableFunc(changes, func(a, b change) int { return a.tick - b.tick })
	cur := cliptrack.TempoNode{Tempo: 120, BeatsPerBar: 4, BeatDivisor: 2}
	ret := []cliptrack.TempoNode{cur}
	for _, c := range changes {
		if c.tempo > 0 {
			cur.Tempo = c.tempo
		} else if c.num > 0 {
			cur.BeatsPerBar, cur.BeatDivisor = c.num, c.divisor
		}
		cur.Tick = c.tick
		if last := &ret[len(ret)-1]; last.Tick == c.tick {
			*last = cur
		} else {
			ret = append(ret, cur)
		}
	}
	return ret
}

func divisorExp(denom uint8) int {
	if denom == 0 {
		return 2
	}
	return bits.Len8(denom) - 1
}

// readTrack reads the channel events of a track into one sequence; the
// channel of the sequence is the channel of the first channel event.
func readTrack(t smf.Track, ticksPerBeat int) *cliptrack.MidiSequence {
	seq := cliptrack.NewMidiSequence("", 0, ticksPerBeat)
	channelSet := false
	readEvents(t, func(tick int, ch uint8, e *cliptrack.MidiEvent) {
		if !channelSet {
			seq.Channel, channelSet = int(ch), true
		}
		addEvent(seq, e)
	}, func(name string) {
		seq.Name = name
	})
	return seq
}

// readChannels splits the channel events of a track by channel.
func readChannels(t smf.Track, ticksPerBeat int) []*cliptrack.MidiSequence {
	var seqs [16]*cliptrack.MidiSequence
	name := ""
	readEvents(t, func(tick int, ch uint8, e *cliptrack.MidiEvent) {
		if seqs[ch] == nil {
			seqs[ch] = cliptrack.NewMidiSequence(name, int(ch), ticksPerBeat)
		}
		addEvent(seqs[ch], e)
	}, func(n string) {
		name = n
	})
	var ret []*cliptrack.MidiSequence
	for _, s := range seqs {
		if s != nil {
			ret = append(ret, s)
		}
	}
	return ret
}

// mergeChannels joins sequences of the same channel, ordered by channel.
func mergeChannels(seqs []*cliptrack.MidiSequence) []*cliptrack.MidiSequence {
	var ret []*cliptrack.MidiSequence
	for _, s := range seqs {
		i := slices.IndexFunc(ret, func(r *cliptrack.MidiSequence) bool { return r.Channel == s.Channel })
		if i < 0 {
			ret = append(ret, s)
			continue
		}
		for _, e := range s.Events {
			ret[i].InsertEvent(e)
		}
	}
	slices.SortStableFunc(ret, func(a, b *cliptrack.MidiSequence) int { return a.Channel - b.Channel })
	return ret
}

// addEvent inserts the event; the first program change of the sequence
// sets its program.
func addEvent(seq *cliptrack.MidiSequence, e *cliptrack.MidiEvent) {
	if e.Type == cliptrack.PgmChange && !slices.ContainsFunc(seq.Events, isProgramChange) {
		seq.Program = int(e.Note)
	}
	seq.InsertEvent(e)
}

func isProgramChange(e *cliptrack.MidiEvent) bool {
	return e.Type == cliptrack.PgmChange
}

// readEvents decodes the channel messages of a track. Note on events get
// their duration from the matching note off; notes left hanging at the end
// of the track last until the last event of the track.
func readEvents(t smf.Track, event func(tick int, ch uint8, e *cliptrack.MidiEvent), name func(string)) {
	pending := map[noteKey][]*cliptrack.MidiEvent{}
	tick := 0
	for _, ev := range t {
		tick += int(ev.Delta)
		msg := midi.Message(ev.Message)
		var ch, key, vel, cc, val, prog, pressure uint8
		var rel int16
		var abs uint16
		var text string
		switch {
		case ev.Message.GetMetaTrackName(&text):
			name(text)
		case msg.GetNoteStart(&ch, &key, &vel):
			e := &cliptrack.MidiEvent{Type: cliptrack.NoteOn, Time: tick, Note: key, Value: vel}
			k := noteKey{ch, key}
			pending[k] = append(pending[k], e)
			event(tick, ch, e)
		case msg.GetNoteEnd(&ch, &key):
			k := noteKey{ch, key}
			if q := pending[k]; len(q) > 0 {
				q[0].Duration = tick - q[0].Time
				pending[k] = q[1:]
			}
		case msg.GetPolyAfterTouch(&ch, &key, &pressure):
			event(tick, ch, &cliptrack.MidiEvent{Type: cliptrack.KeyPress, Time: tick, Note: key, Value: pressure})
		case msg.GetControlChange(&ch, &cc, &val):
			event(tick, ch, &cliptrack.MidiEvent{Type: cliptrack.Controller, Time: tick, Note: cc, Value: val})
		case msg.GetProgramChange(&ch, &prog):
			event(tick, ch, &cliptrack.MidiEvent{Type: cliptrack.PgmChange, Time: tick, Note: prog})
		case msg.GetAfterTouch(&ch, &pressure):
			event(tick, ch, &cliptrack.MidiEvent{Type: cliptrack.ChanPress, Time: tick, Value: pressure})
		case msg.GetPitchBend(&ch, &rel, &abs):
			event(tick, ch, &cliptrack.MidiEvent{Type: cliptrack.PitchBend, Time: tick, PitchBend: rel})
		}
	}
	for _, q := range pending {
		for _, e := range q {
			e.Duration = max(tick-e.Time, 0)
		}
	}
}

func tempoMessages(nodes []cliptrack.TempoNode) []timedMessage {
	var ret []timedMessage
	for _, n := range nodes {
		ret = append(ret, timedMessage{tick: n.Tick, msg: smf.MetaTempo(n.Tempo)})
		if n.BeatsPerBar > 0 {
			ret = append(ret, timedMessage{tick: n.Tick, msg: smf.MetaMeter(uint8(n.BeatsPerBar), uint8(1)<<n.BeatDivisor)})
		}
	}
	return ret
}

// sequenceMessages converts a sequence to messages at the given
// resolution. Note offs are ordered before note ons at the same tick,
// except the off of a zero length note, which follows its own on.
func sequenceMessages(seq *cliptrack.MidiSequence, ticksPerBeat int) []timedMessage {
	if seq == nil {
		return nil
	}
	if seq.TicksPerBeat != ticksPerBeat {
		seq = seq.Copy()
		seq.Rescale(ticksPerBeat)
	}
	ch := uint8(min(max(seq.Channel, 0), 15))
	var ret []timedMessage
	if seq.Name != "" {
		ret = append(ret, timedMessage{tick: 0, msg: smf.MetaTrackSequenceName(seq.Name)})
	}
	if !slices.ContainsFunc(seq.Events, isProgramChange) {
		if seq.Bank > 0 {
			ret = append(ret,
				timedMessage{tick: 0, order: 1, msg: midi.ControlChange(ch, 0, uint8(seq.Bank>>7&0x7f))},
				timedMessage{tick: 0, order: 1, msg: midi.ControlChange(ch, 32, uint8(seq.Bank&0x7f))})
		}
		if seq.Program > 0 {
			ret = append(ret, timedMessage{tick: 0, order: 1, msg: midi.ProgramChange(ch, uint8(seq.Program&0x7f))})
		}
	}
	for _, e := range seq.Events {
		m := timedMessage{tick: e.Time, order: 1}
		switch e.Type {
		case cliptrack.NoteOn:
			m.msg = midi.NoteOn(ch, e.Note, e.Value)
			off := timedMessage{tick: e.End(), msg: midi.NoteOff(ch, e.Note)}
			if e.Duration <= 0 {
				off.tick, off.order = e.Time, 2
			}
			ret = append(ret, off)
		case cliptrack.KeyPress:
			m.msg = midi.PolyAfterTouch(ch, e.Note, e.Value)
		case cliptrack.Controller:
			m.msg = midi.ControlChange(ch, e.Note, e.Value)
		case cliptrack.PgmChange:
			m.msg = midi.ProgramChange(ch, e.Note)
		case cliptrack.ChanPress:
			m.msg = midi.AfterTouch(ch, e.Value)
		case cliptrack.PitchBend:
			m.msg = midi.Pitchbend(ch, e.PitchBend)
		default:
			continue
		}
		ret = append(ret, m)
	}
	return ret
}

func buildTrack(msgs []timedMessage) smf.Track {
	slices.SortStableFunc(msgs, func(a, b timedMessage) int {
		if a.tick != b.tick {
			return a.tick - b.tick
		}
		return a.order - b.order
	})
	var t smf.Track
	last := 0
	for _, m := range msgs {
		t.Add(uint32(m.tick-last), m.msg)
		last = m.tick
	}
	t.Close(0)
	return t
}
