package editor_test

import (
	"context"
	"testing"

	"github.com/cliptrack/cliptrack"
	"github.com/cliptrack/cliptrack/editor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	samples []float32
	closed  bool
}

func (s *memSink) WriteAudio(buffer []float32) error {
	s.samples = append(s.samples, buffer...)
	return nil
}

func (s *memSink) Close() error {
	s.closed = true
	return nil
}

func TestRender(t *testing.T) {
	files := newMemFiles()
	files.constant("a.wav", 1000, 100, 1)
	m := newModel(t, files)
	tr := addTrack(t, m, cliptrack.AudioTrack)
	tr.Channels = 2
	addClip(t, m, tr, audioClip("a.wav", 10, 40, 0.5))

	var sink memSink
	require.NoError(t, m.Render(context.Background(), tr, 0, 64, &sink))
	require.Len(t, sink.samples, 128)
	for i := 0; i < 64; i++ {
		want := float32(0)
		if i >= 10 && i < 50 {
			want = 0.5
		}
		assert.InDelta(t, want, sink.samples[2*i], 1e-6, "frame %d", i)
		assert.InDelta(t, want, sink.samples[2*i+1], 1e-6, "frame %d", i)
	}
}

func TestRenderFailures(t *testing.T) {
	m := newModel(t, newMemFiles())
	midi := addTrack(t, m, cliptrack.MidiTrack)
	audio := addTrack(t, m, cliptrack.AudioTrack)
	var sink memSink
	err := m.Render(context.Background(), midi, 0, 100, &sink)
	assert.Equal(t, cliptrack.PreconditionFailure, cliptrack.KindOf(err))
	err = m.Render(context.Background(), audio, 100, 100, &sink)
	assert.Equal(t, cliptrack.RangeFailure, cliptrack.KindOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = m.Render(ctx, audio, 0, 100, &sink)
	assert.Equal(t, cliptrack.Canceled, cliptrack.KindOf(err))
}

// progressMessages drains the GUI channel and returns the progress messages.
func progressMessages(b *editor.Broker) []editor.ProgressMessage {
	var ret []editor.ProgressMessage
	for {
		select {
		case v := <-b.ToGUI:
			if p, ok := v.(editor.ProgressMessage); ok {
				ret = append(ret, p)
			}
		default:
			return ret
		}
	}
}

func TestRenderReportsNoProgress(t *testing.T) {
	files := newMemFiles()
	files.constant("a.wav", 1000, 100, 0.5)
	b := editor.NewBroker()
	m := newModel(t, files, editor.WithBroker(b), editor.WithProgress(editor.NewBrokerProgress(b)))
	tr := addTrack(t, m, cliptrack.AudioTrack)
	c := addClip(t, m, tr, audioClip("a.wav", 0, 100, 1))

	var sink memSink
	require.NoError(t, m.Render(context.Background(), tr, 0, 100, &sink))
	assert.Empty(t, progressMessages(b))

	// the editing operations still report to the same sink
	require.NoError(t, m.NormalizeClips(context.Background(), c))
	p := progressMessages(b)
	require.NotEmpty(t, p)
	assert.Equal(t, "normalize", p[0].Name)
	assert.True(t, p[len(p)-1].Finished)
}
