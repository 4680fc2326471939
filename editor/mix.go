package editor

import (
	"context"
	"runtime"

	"github.com/cliptrack/cliptrack"
	"go.uber.org/zap"
)

type (
	// mixer streams a set of audio clips window by window into per-channel
	// scratch buffers. It is the core shared by merge/export, normalize and
	// render.
	mixer struct {
		m        *Model
		progress ProgressSink
		sources  []*mixSource
		frames   [][]float32
		count    int
	}

	mixSource struct {
		clip *cliptrack.Clip
		buf  *cliptrack.AudioBuffer
	}
)

// newMixer opens a decode buffer for every clip. On error, the buffers
// already opened are closed.
func (m *Model) newMixer(clips []*cliptrack.Clip, channels int) (*mixer, error) {
	if m.audio == nil {
		return nil, cliptrack.Precondition("no audio file service")
	}
	channels = max(channels, 1)
	x := &mixer{m: m, progress: m.progress, frames: make([][]float32, channels)}
	for c := range x.frames {
		x.frames[c] = make([]float32, m.opts.BufferSize)
	}
	for _, c := range clips {
		if c.Kind != cliptrack.AudioClipKind {
			continue
		}
		buf, err := m.openAudioBuffer(c, channels)
		if err != nil {
			x.close()
			return nil, err
		}
		x.sources = append(x.sources, &mixSource{clip: c, buf: buf})
	}
	return x, nil
}

func (m *Model) openAudioBuffer(c *cliptrack.Clip, channels int) (*cliptrack.AudioBuffer, error) {
	r, err := m.audio.OpenAudio(c.Filename)
	if err != nil {
		return nil, cliptrack.IO(err, "could not open audio clip "+c.Filename)
	}
	buf := cliptrack.NewAudioBuffer(channels, m.SampleRate(), m.opts.BufferSize*4)
	buf.SetOffset(c.Offset)
	buf.SetLength(c.Length)
	if c.Audio != nil {
		buf.SetTimeStretch(c.Audio.TimeStretch)
		buf.SetPitchShift(c.Audio.PitchShift)
	}
	if err := buf.Open(r); err != nil {
		r.Close()
		return nil, cliptrack.IO(err, "could not open audio buffer for "+c.Filename)
	}
	return buf, nil
}

// mix zeroes the scratch buffers and mixes the part of every clip that
// intersects [start, end) into them. Clips whose data is not available
// after a bounded number of sync polls are left out of the window.
func (x *mixer) mix(start, end int) error {
	n := end - start
	for _, f := range x.frames {
		clear(f[:n])
	}
	for _, s := range x.sources {
		if x.count%x.m.opts.SyncInterval == 0 {
			if _, err := s.buf.Sync(); err != nil {
				return cliptrack.IO(err, "could not read "+s.clip.Filename)
			}
		}
		lo, hi := max(start, s.clip.Start), min(end, s.clip.End())
		if lo >= hi {
			continue
		}
		from, to := lo-s.clip.Start, hi-s.clip.Start
		ok, err := x.poll(s, from, to)
		if err != nil {
			return err
		}
		if !ok {
			x.m.log.Debug("clip not in sync, skipping window", zap.String("clip", s.clip.Filename), zap.Int("frame", lo))
			continue
		}
		s.buf.ReadMix(x.frames, lo-start, hi-lo, s.clip.GainAt(from))
	}
	x.count++
	return nil
}

// poll makes sure the buffer of the source holds the clip frames
// [from, to) at its read head, re-seeking if the read head is elsewhere and
// polling Sync at most MaxSyncPolls times.
func (x *mixer) poll(s *mixSource, from, to int) (bool, error) {
	if s.buf.Position() != from {
		if err := s.buf.Seek(from); err != nil {
			return false, cliptrack.IO(err, "could not seek "+s.clip.Filename)
		}
	}
	for i := 0; !s.buf.InSync(from, to); i++ {
		if i == x.m.opts.MaxSyncPolls {
			return false, nil
		}
		if _, err := s.buf.Sync(); err != nil {
			return false, cliptrack.IO(err, "could not read "+s.clip.Filename)
		}
	}
	return true, nil
}

// stabilize is called after every window of a long scan. It checks for
// cancellation every time; every StabilizeInterval windows it also reports
// progress and yields the processor.
func (x *mixer) stabilize(ctx context.Context, progress int) error {
	if err := ctx.Err(); err != nil {
		return cliptrack.Cancel(err)
	}
	if x.count%x.m.opts.StabilizeInterval != 0 {
		return nil
	}
	x.progress.Advance(progress)
	runtime.Gosched()
	return nil
}

func (x *mixer) close() {
	for _, s := range x.sources {
		if err := s.buf.Close(); err != nil {
			x.m.log.Warn("could not close audio clip", zap.String("clip", s.clip.Filename), zap.Error(err))
		}
	}
	x.sources = nil
}
