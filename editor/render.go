package editor

import (
	"context"

	"github.com/cliptrack/cliptrack"
)

// Render mixes the audio clips of a track over [start, end) and writes the
// result, interleaved, to the sink. It reads the committed session under
// the read lock, window by window, so it can run on a playback goroutine
// while the editing goroutine keeps working. Render reports no progress; the
// progress sink is owned by the editing goroutine.
func (m *Model) Render(ctx context.Context, track *cliptrack.Track, start, end int, sink cliptrack.AudioSink) error {
	if track == nil || track.Type != cliptrack.AudioTrack {
		return cliptrack.Precondition("render: not an audio track")
	}
	if start >= end {
		return cliptrack.Range("render: empty range")
	}
	if err := ctx.Err(); err != nil {
		return cliptrack.Cancel(err)
	}
	var clips []*cliptrack.Clip
	m.Read(func(s *cliptrack.Session) {
		for _, c := range track.Clips {
			if c.Start < end && c.End() > start {
				clips = append(clips, c)
			}
		}
	})
	x, err := m.newMixer(clips, max(track.Channels, 1))
	if err != nil {
		return err
	}
	defer x.close()
	x.progress = NopProgress{}
	var out []float32
	bs := m.opts.BufferSize
	for frame := start; frame < end; frame += bs {
		n := min(bs, end-frame)
		m.mu.RLock()
		err := x.mix(frame, frame+n)
		m.mu.RUnlock()
		if err != nil {
			return err
		}
		out = cliptrack.Interleave(x.frames, n, out)
		if err := sink.WriteAudio(out); err != nil {
			return cliptrack.IO(err, "could not write audio")
		}
		if err := x.stabilize(ctx, bs*m.opts.StabilizeInterval); err != nil {
			return err
		}
	}
	return nil
}
