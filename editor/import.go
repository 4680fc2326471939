package editor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cliptrack/cliptrack"
	"go.uber.org/zap"
)

const importTimeFormat = "Jan 02 2006 15:04:05"

// IsMidiFile reports whether the path names a standard MIDI file.
func IsMidiFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi", ".smf":
		return true
	}
	return false
}

// importLog collects the lines appended to the session description by an
// import.
type importLog struct {
	m     *Model
	lines []string
}

func (l *importLog) add(format string, args ...any) {
	line := fmt.Sprintf(format, args...) + " on " + l.m.now().Format(importTimeFormat) + "."
	l.lines = append(l.lines, line)
}

func (l *importLog) command() *DescriptionCommand {
	desc := strings.TrimSpace(l.m.session.Description)
	if desc != "" {
		desc += "\n"
	}
	return NewDescriptionCommand(desc + strings.Join(l.lines, "\n") + "\n")
}

// ImportClips adds the files as clips starting at clipStart. With a current
// track, the files are appended one after the other onto that track (files
// not matching the track type are skipped); without one, each file gets new
// tracks, as with AddAudioTracks and AddMidiTracks. The whole batch is one
// undoable command, which also logs the import in the session description.
func (m *Model) ImportClips(ctx context.Context, files []string, clipStart int) error {
	if len(files) == 0 {
		return cliptrack.Precondition("import: no files")
	}
	track := m.currentTrack
	if track == nil || m.session.TrackIndex(track) < 0 {
		return m.importTracks(ctx, files, clipStart, importAny)
	}
	m.Lock()
	defer m.Unlock()
	cmd := NewClipCommand("clip import")
	log := &importLog{m: m}
	var firstErr error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return cliptrack.Cancel(err)
		}
		var clip *cliptrack.Clip
		var err error
		switch track.Type {
		case cliptrack.AudioTrack:
			if IsMidiFile(path) {
				m.log.Debug("skipping midi file on audio track", zap.String("file", path))
				continue
			}
			clip = cliptrack.NewAudioClip(path, clipStart)
			err = m.openAudioClip(clip)
			if err == nil {
				log.add("Audio file import %q", filepath.Base(path))
			}
		case cliptrack.MidiTrack:
			if !IsMidiFile(path) {
				m.log.Debug("skipping audio file on midi track", zap.String("file", path))
				continue
			}
			clip, err = m.importMidiClip(track, path, clipStart)
			if err == nil {
				log.add("MIDI file import %q track-channel %d", filepath.Base(path), clip.Midi.TrackChannel)
			}
		default:
			return cliptrack.Precondition("import: track has no clips")
		}
		if err != nil {
			m.log.Warn("could not import file", zap.String("file", path), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		cmd.AddClip(clip, track)
		clipStart += clip.Length
		m.register(clip.Kind, path)
		m.log.Info("file imported", zap.String("file", path), zap.String("track", track.Name))
	}
	if cmd.IsEmpty() {
		if firstErr != nil {
			return firstErr
		}
		return cliptrack.Precondition("import: nothing to import")
	}
	return m.Execute(NewCompositeCommand("clip import", cmd, log.command()))
}

// importMidiClip reads a MIDI file as a clip of an existing track. The
// track-channel is the MIDI channel of the track; format 1 files skip
// their first (tempo) track.
func (m *Model) importMidiClip(track *cliptrack.Track, path string, clipStart int) (*cliptrack.Clip, error) {
	if m.midi == nil {
		return nil, cliptrack.Precondition("no midi file service")
	}
	f, err := m.midi.ReadMidi(path)
	if err != nil {
		return nil, cliptrack.IO(err, "could not read "+path)
	}
	trackChannel := track.MidiChannel
	if f.Format == 1 {
		trackChannel++
	}
	clip := cliptrack.NewMidiClip(path, clipStart, trackChannel)
	if err := m.loadMidiClip(clip, f); err != nil {
		return nil, err
	}
	return clip, nil
}

type importKind int

const (
	importAny importKind = iota
	importAudio
	importMidi
)

// AddAudioTracks imports each audio file into a new audio track, or, with
// the DropSpan option, all of them one after another into a single new
// track.
func (m *Model) AddAudioTracks(ctx context.Context, files []string, clipStart int) error {
	return m.importTracks(ctx, files, clipStart, importAudio)
}

// AddMidiTracks imports each MIDI file into new MIDI tracks: one track per
// track of a format 1 file, one per channel of a format 0 file. Tracks and
// channels without events are dropped.
func (m *Model) AddMidiTracks(ctx context.Context, files []string, clipStart int) error {
	return m.importTracks(ctx, files, clipStart, importMidi)
}

func (m *Model) importTracks(ctx context.Context, files []string, clipStart int, kind importKind) error {
	if len(files) == 0 {
		return cliptrack.Precondition("import: no files")
	}
	m.Lock()
	defer m.Unlock()
	cmd := &ImportTrackCommand{}
	log := &importLog{m: m}
	var audioTrack *cliptrack.Track
	var firstErr error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return cliptrack.Cancel(err)
		}
		midi := IsMidiFile(path)
		if (midi && kind == importAudio) || (!midi && kind == importMidi) {
			continue
		}
		var err error
		if midi {
			err = m.importMidiTracks(cmd, log, path, clipStart)
		} else {
			clip := cliptrack.NewAudioClip(path, clipStart)
			if err = m.openAudioClip(clip); err == nil {
				if audioTrack == nil || !m.opts.DropSpan {
					audioTrack = cliptrack.NewTrack(clip.Name, cliptrack.AudioTrack)
					cmd.AddTrack(audioTrack)
				}
				audioTrack.AddClip(clip)
				if m.opts.DropSpan {
					clipStart += clip.Length
				}
				m.register(cliptrack.AudioClipKind, path)
				log.add("Audio file import %q", filepath.Base(path))
			}
		}
		if err != nil {
			m.log.Warn("could not import file", zap.String("file", path), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.log.Info("file imported", zap.String("file", path))
	}
	if cmd.IsEmpty() {
		if firstErr != nil {
			return firstErr
		}
		return cliptrack.Precondition("import: nothing to import")
	}
	return m.Execute(NewCompositeCommand("import tracks", cmd, log.command()))
}

// importMidiTracks adds one track per track-channel of the file that has
// events.
func (m *Model) importMidiTracks(cmd *ImportTrackCommand, log *importLog, path string, clipStart int) error {
	if m.midi == nil {
		return cliptrack.Precondition("no midi file service")
	}
	f, err := m.midi.ReadMidi(path)
	if err != nil {
		return cliptrack.IO(err, "could not read "+path)
	}
	count := 16
	if f.Format == 1 {
		count = len(f.Tracks)
	}
	added := 0
	for tc := 0; tc < count; tc++ {
		clip := cliptrack.NewMidiClip(path, clipStart, tc)
		if err := m.loadMidiClip(clip, f); err != nil {
			return err
		}
		if clip.Length == 0 {
			continue
		}
		track := cliptrack.NewTrack(clip.Name, cliptrack.MidiTrack)
		seq := clip.Sequence()
		track.MidiChannel = seq.Channel
		track.MidiBank = seq.Bank
		track.MidiProgram = seq.Program
		track.AddClip(clip)
		cmd.AddTrack(track)
		added++
	}
	if added > 0 {
		m.register(cliptrack.MidiClipKind, path)
		log.add("MIDI file import %q", filepath.Base(path))
	}
	return nil
}

// AddMidiTrackChannel imports one track-channel of a MIDI file into a new
// track.
func (m *Model) AddMidiTrackChannel(path string, trackChannel, clipStart int) error {
	if m.midi == nil {
		return cliptrack.Precondition("no midi file service")
	}
	m.Lock()
	defer m.Unlock()
	clip := cliptrack.NewMidiClip(path, clipStart, trackChannel)
	if err := m.loadMidiClip(clip, nil); err != nil {
		return err
	}
	track := cliptrack.NewTrack(clip.Name, cliptrack.MidiTrack)
	track.MidiChannel = clip.Sequence().Channel
	track.AddClip(clip)
	cmd := &ImportTrackCommand{}
	cmd.AddTrack(track)
	m.register(cliptrack.MidiClipKind, path)
	log := &importLog{m: m}
	log.add("MIDI file import %q track-channel %d", filepath.Base(path), trackChannel)
	return m.Execute(NewCompositeCommand("import tracks", cmd, log.command()))
}
