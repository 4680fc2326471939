package editor

import (
	"context"

	"github.com/cliptrack/cliptrack"
	"github.com/viterin/vek/vek32"
	"go.uber.org/zap"
)

// NormalizeClips sets the gain of each clip so its peak reaches full scale.
// Audio clips are scanned for the peak absolute sample over all channels and
// get gain/peak, but only if 0.01 < peak < 1.1. MIDI clips are scanned for
// the peak note-on velocity and get gain*127/peak, but only if
// 12 < peak < 127. Only the selected range of each clip is scanned.
//
// Each clip is evaluated independently and all gain changes are folded into
// one undoable command; if no gain changes, nothing is executed and a
// PreconditionFailure is returned.
func (m *Model) NormalizeClips(ctx context.Context, clips ...*cliptrack.Clip) error {
	if err := ctx.Err(); err != nil {
		return cliptrack.Cancel(err)
	}
	cmd := NewClipCommand("clip normalize")
	for _, c := range clips {
		if c == nil || m.session.TrackOf(c) == nil {
			continue
		}
		gain, err := m.normalizedGain(ctx, c)
		if err != nil {
			return err
		}
		if gain != c.Gain {
			cmd.GainClip(c, gain)
		}
	}
	if cmd.IsEmpty() {
		return cliptrack.Precondition("normalize: nothing to normalize")
	}
	return m.Execute(cmd)
}

func (m *Model) normalizedGain(ctx context.Context, c *cliptrack.Clip) (float32, error) {
	gain := c.Gain
	switch c.Kind {
	case cliptrack.AudioClipKind:
		peak, err := m.audioPeak(ctx, c)
		if err != nil {
			return gain, err
		}
		if peak > 0.01 && peak < 1.1 {
			gain /= peak
		}
		m.log.Debug("audio clip peak", zap.String("clip", c.Filename), zap.Float32("peak", peak))
	case cliptrack.MidiClipKind:
		peak := m.midiPeak(c)
		if peak > 0x0c && peak < 0x7f {
			gain *= 127 / float32(peak)
		}
	}
	return gain, nil
}

// audioPeak scans the selected range of an audio clip for the absolute peak
// sample.
func (m *Model) audioPeak(ctx context.Context, c *cliptrack.Clip) (float32, error) {
	track := m.session.TrackOf(c)
	x, err := m.newMixer([]*cliptrack.Clip{c}, max(track.Channels, 1))
	if err != nil {
		return 0, err
	}
	defer x.close()
	start, end := c.SelectionExtent()
	bs := m.opts.BufferSize
	x.progress.Begin("normalize", end-start)
	defer x.progress.End()
	var peak float32
	for frame := start; frame < end; frame += bs {
		n := min(bs, end-frame)
		if err := x.mix(frame, frame+n); err != nil {
			return 0, err
		}
		for _, f := range x.frames {
			vek32.Abs_Inplace(f[:n])
			peak = max(peak, vek32.Max(f[:n]))
		}
		if err := x.stabilize(ctx, bs*m.opts.StabilizeInterval); err != nil {
			return 0, err
		}
	}
	return peak, nil
}

// midiPeak returns the peak note-on velocity within the selected range of a
// MIDI clip.
func (m *Model) midiPeak(c *cliptrack.Clip) uint8 {
	seq := c.Sequence()
	if seq == nil {
		return 0
	}
	w := m.clipWindow(c)
	start, end := c.SelectionExtent()
	from, to := w.seqTime(m.TickFromFrame(start)), w.seqTime(m.TickFromFrame(end))
	var peak uint8
	for _, e := range seq.Events {
		if e.Type == cliptrack.NoteOn && e.Time >= from && e.Time < to {
			peak = max(peak, e.Velocity())
		}
	}
	return peak
}
