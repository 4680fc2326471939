package editor

import (
	"github.com/cliptrack/cliptrack"
	"go.uber.org/zap"
)

// openAudioClip probes the source of an audio clip and, unless already set,
// sets the clip length to the length of the source at the session rate.
func (m *Model) openAudioClip(c *cliptrack.Clip) error {
	if m.audio == nil {
		return cliptrack.Precondition("no audio file service")
	}
	r, err := m.audio.OpenAudio(c.Filename)
	if err != nil {
		return cliptrack.IO(err, "could not open "+c.Filename)
	}
	defer r.Close()
	if c.Name == "" {
		c.Name = clipName(c.Filename)
	}
	if c.Length > 0 {
		return nil
	}
	frames := float64(r.Frames())
	if r.SampleRate() > 0 {
		frames = frames * float64(m.SampleRate()) / float64(r.SampleRate())
	}
	if c.Audio != nil && c.Audio.TimeStretch > 0 {
		frames *= c.Audio.TimeStretch
	}
	c.Length = max(int(frames)-c.Offset, 0)
	return nil
}

// loadMidiClip reads the sequence of a MIDI clip from its file, or from f if
// the file has already been read. Unless already set, the clip length is set
// to cover the whole sequence. A clip whose track-channel is missing from
// the file gets an empty sequence and zero length.
func (m *Model) loadMidiClip(c *cliptrack.Clip, f *cliptrack.MidiFile) error {
	if c.Midi == nil {
		return cliptrack.Precondition("not a midi clip")
	}
	if f == nil {
		if m.midi == nil {
			return cliptrack.Precondition("no midi file service")
		}
		var err error
		if f, err = m.midi.ReadMidi(c.Filename); err != nil {
			return cliptrack.IO(err, "could not read "+c.Filename)
		}
	}
	c.Midi.Format = f.Format
	seq := cliptrack.NewMidiSequence(clipName(c.Filename), c.Midi.TrackChannel, m.TicksPerBeat())
	if src := f.SequenceTrack(f.Format, c.Midi.TrackChannel); src != nil {
		seq = src.Copy()
		if seq.TicksPerBeat == 0 {
			seq.TicksPerBeat = f.TicksPerBeat
		}
		seq.Rescale(m.TicksPerBeat())
	}
	c.Midi.Sequence = seq
	c.Midi.Revision = 1
	if c.Name == "" {
		c.Name = seq.Name
		if c.Name == "" {
			c.Name = clipName(c.Filename)
		}
	}
	if c.Length == 0 && len(seq.Events) > 0 {
		w := m.clipWindow(c)
		end := m.FrameFromTick(w.start + seq.Duration() - w.offset)
		c.Length = max(end-c.Start, 0)
	}
	return nil
}

// OpenClips reads the sequences of all MIDI clips of the session. Clips
// whose file cannot be read are kept without a sequence.
func (m *Model) OpenClips() {
	for _, t := range m.session.Tracks {
		for _, c := range t.Clips {
			if c.Kind != cliptrack.MidiClipKind || c.Sequence() != nil {
				continue
			}
			if err := m.loadMidiClip(c, nil); err != nil {
				m.log.Warn("could not open midi clip", zap.String("file", c.Filename), zap.Error(err))
			}
		}
	}
}

// SyncMidiClips writes every MIDI clip with unsaved edits (revision zero)
// to a new file and bumps its revision. The previous file is left alone:
// other clips or earlier sessions may still refer to it.
func (m *Model) SyncMidiClips() error {
	if m.midi == nil {
		return cliptrack.Precondition("no midi file service")
	}
	m.Lock()
	defer m.Unlock()
	for _, t := range m.session.Tracks {
		for _, c := range t.Clips {
			seq := c.Sequence()
			if c.Kind != cliptrack.MidiClipKind || seq == nil || c.Midi.Revision > 0 {
				continue
			}
			path := m.CreateFilePath(t.Name, 1, "mid")
			f := &cliptrack.MidiFile{
				Format:       c.Midi.Format,
				TicksPerBeat: m.TicksPerBeat(),
				TempoMap:     tempoMapFrom(&m.session.TimeScale, 0),
			}
			if f.Format == 1 {
				f.Tracks = []*cliptrack.MidiSequence{cliptrack.NewMidiSequence("", 0, f.TicksPerBeat), seq}
				c.Midi.TrackChannel = 1
			} else {
				f.Tracks = []*cliptrack.MidiSequence{seq}
				c.Midi.TrackChannel = seq.Channel
			}
			if err := m.midi.WriteMidi(path, f); err != nil {
				return cliptrack.IO(err, "could not write "+path)
			}
			m.register(cliptrack.MidiClipKind, path)
			m.log.Debug("midi clip saved", zap.String("clip", c.Name), zap.String("path", path))
			c.Filename = path
			c.Midi.Revision++
		}
	}
	return nil
}
