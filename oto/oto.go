package oto

import (
	"fmt"
	"io"

	"github.com/cliptrack/cliptrack"
	"github.com/ebitengine/oto/v3"
)

type (
	// Context is an audio device opened through oto. Outputs pull the
	// interleaved float samples written to them through a pipe, so
	// WriteAudio blocks while the device buffer is full.
	Context struct {
		ctx      *oto.Context
		channels int
	}

	Output struct {
		player    *oto.Player
		w         *io.PipeWriter
		tmpBuffer []byte
	}
)

// NewContext opens the default audio device and waits until it is ready.
func NewContext(sampleRate, channels int) (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx, channels: channels}, nil
}

func (c *Context) Channels() int { return c.channels }

func (c *Context) Output() cliptrack.AudioSink {
	r, w := io.Pipe()
	p := c.ctx.NewPlayer(r)
	p.Play()
	return &Output{player: p, w: w}
}

// Close suspends the device; oto contexts cannot be reopened.
func (c *Context) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func (o *Output) WriteAudio(floatBuffer []float32) error {
	// reuse the capacity of the previous buffer
	o.tmpBuffer = FloatBufferToLE(floatBuffer, o.tmpBuffer[:0])
	if _, err := o.w.Write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

// Close ends the stream and releases the player.
func (o *Output) Close() error {
	o.w.Close()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
