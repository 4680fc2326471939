package editor

import (
	"context"
	"math"
	"path/filepath"
	"strings"

	"github.com/cliptrack/cliptrack"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// MergeClips mixes the selected clips, which must all lie on one track, into
// a new file at path and replaces their footprint with one clip referencing
// it. The footprint is the union [A, B) of the selected ranges: every
// selected clip is trimmed to its parts outside [A, B), or removed if it
// lies completely inside. An empty path creates a new file in the session
// directory.
//
// The operation is all-or-nothing: on any error the partially written file
// is removed and the session is left untouched.
func (m *Model) MergeClips(ctx context.Context, path string) error {
	return m.mergeExport(ctx, path, true)
}

// ExportClips writes the mix of the selected clips to a new file at path,
// like MergeClips, but leaves the session untouched.
func (m *Model) ExportClips(ctx context.Context, path string) error {
	return m.mergeExport(ctx, path, false)
}

func (m *Model) mergeExport(ctx context.Context, path string, merge bool) error {
	clips := m.SelectedClips()
	if len(clips) == 0 {
		return cliptrack.Precondition("merge: no clips selected")
	}
	track := m.SingleTrackSelected()
	if track == nil {
		return cliptrack.Precondition("merge: selection spans more than one track")
	}
	start, end := selectionExtent(clips)
	if start >= end {
		return cliptrack.Range("merge: empty selection")
	}
	if err := ctx.Err(); err != nil {
		return cliptrack.Cancel(err)
	}
	var cmd *ClipCommand
	if merge {
		cmd = NewClipCommand("clip merge")
	}
	var newClip *cliptrack.Clip
	var err error
	switch track.Type {
	case cliptrack.AudioTrack:
		if path == "" {
			path = m.CreateFilePath(track.Name, 0, m.opts.AudioExt)
		}
		newClip, err = m.mergeAudio(ctx, track, clips, start, end, path)
	case cliptrack.MidiTrack:
		if path == "" {
			path = m.CreateFilePath(track.Name, 0, "mid")
		}
		newClip, err = m.mergeMidi(ctx, track, clips, start, end, path)
	default:
		return cliptrack.Precondition("merge: track has no clips")
	}
	if err != nil {
		if !cliptrack.IsSilent(err) {
			m.alert(Error, "Clip merge failed: %v", err)
		}
		return err
	}
	if cmd == nil {
		m.alert(Info, "Clips exported to %s", filepath.Base(path))
		return nil
	}
	replaceFootprint(cmd, track, clips, start, end)
	cmd.AddClip(newClip, track)
	return m.Execute(cmd)
}

// replaceFootprint trims every clip to its parts outside [start, end): a
// left remnant, a right remnant, both (the clip is cut in two) or none (the
// clip is removed).
func replaceFootprint(cmd *ClipCommand, track *cliptrack.Track, clips []*cliptrack.Clip, start, end int) {
	for _, c := range clips {
		cs, ce, offset := c.Start, c.End(), c.Offset
		switch {
		case cs < start && ce > end:
			right := c.Clone()
			right.Start = end
			right.Offset = offset + (end - cs)
			right.Length = ce - end
			right.FadeIn = 0
			right.ClearSelection()
			cmd.ResizeClip(c, cs, offset, start-cs)
			if c.FadeOut > 0 {
				cmd.FadeOutClip(c, 0)
			}
			cmd.AddClip(right, track)
		case cs < start:
			cmd.ResizeClip(c, cs, offset, start-cs)
		case ce > end:
			cmd.ResizeClip(c, end, offset+(end-cs), ce-end)
		default:
			cmd.RemoveClip(c)
		}
	}
}

func (m *Model) mergeAudio(ctx context.Context, track *cliptrack.Track, clips []*cliptrack.Clip, start, end int, path string) (*cliptrack.Clip, error) {
	if m.audio == nil {
		return nil, cliptrack.Precondition("no audio file service")
	}
	channels := max(track.Channels, 1)
	w, err := m.audio.CreateAudio(path, channels, m.SampleRate())
	if err != nil {
		return nil, cliptrack.IO(err, "could not create "+path)
	}
	log := m.log.With(zap.String("path", path))
	log.Info("audio clip merge/export started", zap.Int("clips", len(clips)), zap.Int("start", start), zap.Int("end", end))
	fail := func(err error) (*cliptrack.Clip, error) {
		w.Close()
		if rerr := m.audio.Remove(path); rerr != nil {
			log.Error("could not remove partial file", zap.Error(rerr))
		}
		if !cliptrack.IsSilent(err) {
			log.Error("audio clip merge/export failed", zap.Error(err))
		}
		return nil, err
	}
	x, err := m.newMixer(clips, channels)
	if err != nil {
		return fail(err)
	}
	defer x.close()
	bs := m.opts.BufferSize
	x.progress.Begin("merge", end-start)
	defer x.progress.End()
	for frame := start; frame < end; frame += bs {
		n := min(bs, end-frame)
		if err := x.mix(frame, frame+n); err != nil {
			return fail(err)
		}
		if err := w.Write(x.frames, n); err != nil {
			return fail(cliptrack.IO(err, "could not write "+path))
		}
		if err := x.stabilize(ctx, bs*m.opts.StabilizeInterval); err != nil {
			return fail(err)
		}
	}
	if err := w.Close(); err != nil {
		return fail(cliptrack.IO(err, "could not close "+path))
	}
	m.register(cliptrack.AudioClipKind, path)
	log.Info("audio clip merge/export complete")
	c := cliptrack.NewAudioClip(path, start)
	c.Name = clipName(path)
	c.Length = end - start
	return c, nil
}

func (m *Model) mergeMidi(ctx context.Context, track *cliptrack.Track, clips []*cliptrack.Clip, start, end int, path string) (*cliptrack.Clip, error) {
	if m.midi == nil {
		return nil, cliptrack.Precondition("no midi file service")
	}
	log := m.log.With(zap.String("path", path))
	log.Info("midi clip merge/export started", zap.Int("clips", len(clips)), zap.Int("start", start), zap.Int("end", end))
	timeStart, timeEnd := m.TickFromFrame(start), m.TickFromFrame(end)
	seq := cliptrack.NewMidiSequence(track.Name, track.MidiChannel, m.TicksPerBeat())
	seq.Bank = track.MidiBank
	seq.Program = track.MidiProgram
	for _, c := range clips {
		if err := ctx.Err(); err != nil {
			return nil, cliptrack.Cancel(err)
		}
		if c.Sequence() == nil {
			if err := m.loadMidiClip(c, nil); err != nil {
				return nil, err
			}
		}
		w := m.clipWindow(c)
		for _, e := range c.Sequence().Events {
			if !w.visible(e.Time) {
				continue
			}
			t := w.absTick(e.Time)
			if t < timeStart || t >= timeEnd {
				continue
			}
			ne := e.Copy()
			ne.Time = t - timeStart
			if ne.Type == cliptrack.NoteOn {
				g := c.GainAt(m.FrameFromTick(t) - c.Start)
				ne.Value = uint8(min(127, math.Round(float64(g)*float64(e.Value))))
				if t+ne.Duration > timeEnd {
					ne.Duration = timeEnd - t
				}
			}
			seq.InsertEvent(ne)
		}
	}
	// equal ticks are ordered by content so the clip order does not matter
	slices.SortStableFunc(seq.Events, compareEvents)
	format := m.opts.MidiFormat
	f := &cliptrack.MidiFile{
		Format:       format,
		TicksPerBeat: m.TicksPerBeat(),
		TempoMap:     tempoMapFrom(&m.session.TimeScale, timeStart),
	}
	trackChannel := seq.Channel
	if format == 1 {
		// the first track of a format 1 file holds the tempo map
		f.Tracks = []*cliptrack.MidiSequence{cliptrack.NewMidiSequence("", 0, f.TicksPerBeat), seq}
		trackChannel = 1
	} else {
		f.Tracks = []*cliptrack.MidiSequence{seq}
	}
	if err := m.midi.WriteMidi(path, f); err != nil {
		if rerr := m.midi.Remove(path); rerr != nil {
			log.Debug("could not remove partial file", zap.Error(rerr))
		}
		log.Error("midi clip merge/export failed", zap.Error(err))
		return nil, cliptrack.IO(err, "could not write "+path)
	}
	m.register(cliptrack.MidiClipKind, path)
	log.Info("midi clip merge/export complete", zap.Int("events", len(seq.Events)))
	c := cliptrack.NewMidiClip(path, start, trackChannel)
	c.Name = clipName(path)
	c.Length = end - start
	c.Midi.Format = format
	c.Midi.Sequence = seq.Copy()
	c.Midi.Revision = 1
	return c, nil
}

func compareEvents(a, b *cliptrack.MidiEvent) int {
	switch {
	case a.Time != b.Time:
		return a.Time - b.Time
	case a.Type != b.Type:
		return int(a.Type) - int(b.Type)
	case a.Note != b.Note:
		return int(a.Note) - int(b.Note)
	case a.Value != b.Value:
		return int(b.Value) - int(a.Value) // louder first
	case a.Duration != b.Duration:
		return b.Duration - a.Duration
	}
	return int(a.PitchBend) - int(b.PitchBend)
}

// tempoMapFrom snapshots the tempo map of the time scale, rebased so that
// tick origin becomes tick zero.
func tempoMapFrom(ts *cliptrack.TimeScale, origin int) []cliptrack.TempoNode {
	var ret []cliptrack.TempoNode
	for i, n := range ts.Nodes {
		if i+1 < len(ts.Nodes) && ts.Nodes[i+1].Tick <= origin {
			continue
		}
		n.Tick = max(n.Tick-origin, 0)
		n.Frame = 0
		ret = append(ret, n)
	}
	return ret
}

func clipName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
