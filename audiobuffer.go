package cliptrack

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/viterin/vek/vek32"
)

// AudioBuffer is a per-clip streaming buffer. It decodes frames from an
// AudioReader ahead of the read head into a ring buffer, converting the
// sample rate and the time stretch of the source to the session sample
// rate. Positions are in session-rate frames of the source material; Seek
// and InSync take positions relative to the clip offset.
//
// Filling the ring (Sync) and consuming it (ReadMix) are separate steps, so
// long scans can poll Sync a bounded number of times and mix only data that
// is available. AudioBuffer is not safe for concurrent use.
type AudioBuffer struct {
	channels    int
	sampleRate  int
	capacity    int
	offset      int
	length      int
	timeStretch float64
	pitchShift  float64

	reader AudioReader
	step   float64

	ring     [][]float32
	readPos  int // absolute material frame of the read head
	writePos int // absolute material frame up to which the ring is filled

	src      [][]float32 // sliding window of source frames
	srcStart int         // source frame of src[c][0]
	srcLen   int
	eof      bool

	scratch []float32
}

var errBufferNotOpen = errors.New("audio buffer is not open")

// NewAudioBuffer returns a buffer producing channels channels at sampleRate,
// keeping at most capacity frames decoded ahead of the read head.
func NewAudioBuffer(channels, sampleRate, capacity int) *AudioBuffer {
	return &AudioBuffer{
		channels:    max(channels, 1),
		sampleRate:  sampleRate,
		capacity:    max(capacity, 64),
		timeStretch: 1,
		pitchShift:  1,
	}
}

func (b *AudioBuffer) Channels() int   { return b.channels }
func (b *AudioBuffer) SampleRate() int { return b.sampleRate }
func (b *AudioBuffer) Capacity() int   { return b.capacity }

// SetOffset sets the offset of the clip into the source material.
func (b *AudioBuffer) SetOffset(offset int) { b.offset = max(offset, 0) }

// SetLength limits the material to the clip length; frames past the length
// read as silence. Zero means no limit.
func (b *AudioBuffer) SetLength(length int) { b.length = max(length, 0) }

// SetTimeStretch sets the time stretch factor; values above one make the
// material play longer. Must be called before Open.
func (b *AudioBuffer) SetTimeStretch(ts float64) {
	if ts <= 0 {
		ts = 1
	}
	b.timeStretch = ts
}

// SetPitchShift stores the pitch shift factor of the clip. Pitch shifting is
// not rendered by the buffer.
func (b *AudioBuffer) SetPitchShift(ps float64) {
	if ps <= 0 {
		ps = 1
	}
	b.pitchShift = ps
}

func (b *AudioBuffer) PitchShift() float64 { return b.pitchShift }

// Open attaches the reader to the buffer and seeks to the clip offset.
func (b *AudioBuffer) Open(r AudioReader) error {
	if r == nil || r.Channels() < 1 {
		return errors.New("audio buffer: invalid reader")
	}
	b.reader = r
	b.step = 1
	if r.SampleRate() > 0 && b.sampleRate > 0 {
		b.step = float64(r.SampleRate()) / float64(b.sampleRate)
	}
	b.step /= b.timeStretch
	b.ring = make([][]float32, b.channels)
	for c := range b.ring {
		b.ring[c] = make([]float32, b.capacity)
	}
	window := int(math.Ceil(float64(b.capacity)*b.step)) + 2
	b.src = make([][]float32, r.Channels())
	for c := range b.src {
		b.src[c] = make([]float32, window)
	}
	b.scratch = make([]float32, b.capacity)
	return b.Seek(0)
}

// Seek moves the read head to a frame relative to the clip offset and drops
// all buffered data.
func (b *AudioBuffer) Seek(frame int) error {
	if b.reader == nil {
		return errBufferNotOpen
	}
	pos := b.offset + max(frame, 0)
	b.readPos, b.writePos = pos, pos
	src := int(float64(pos) * b.step)
	b.srcStart, b.srcLen = src, 0
	b.eof = false
	if src >= b.reader.Frames() {
		b.eof = true
		return nil
	}
	if err := b.reader.Seek(src); err != nil {
		return fmt.Errorf("audio buffer seek: %w", err)
	}
	return nil
}

// Sync fills the free space of the ring with at most one read from the
// source, returning the number of frames made available. Past the end of
// the source (or the clip length) the ring is filled with silence, so Sync
// always makes progress eventually.
func (b *AudioBuffer) Sync() (int, error) {
	if b.reader == nil {
		return 0, errBufferNotOpen
	}
	free := b.capacity - (b.writePos - b.readPos)
	if free <= 0 {
		return 0, nil
	}
	b.compact(int(float64(b.writePos) * b.step))
	if !b.eof && b.srcLen < len(b.src[0]) {
		tail := make([][]float32, len(b.src))
		for c := range b.src {
			tail[c] = b.src[c][b.srcLen:]
		}
		n, err := b.reader.Read(tail)
		b.srcLen += n
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			b.eof = true
		} else if err != nil {
			return 0, fmt.Errorf("audio buffer read: %w", err)
		}
	}
	end := math.MaxInt
	if b.length > 0 {
		end = b.offset + b.length
	}
	produced := 0
	for produced < free {
		p := float64(b.writePos) * b.step
		i := int(p)
		j := i - b.srcStart
		if !b.eof && j+1 >= b.srcLen {
			break
		}
		w := b.writePos % b.capacity
		if b.writePos >= end {
			for c := range b.ring {
				b.ring[c][w] = 0
			}
		} else {
			frac := float32(p - float64(i))
			for c := range b.ring {
				sc := c % len(b.src)
				x0, x1 := b.sample(sc, j), b.sample(sc, j+1)
				b.ring[c][w] = x0 + (x1-x0)*frac
			}
		}
		b.writePos++
		produced++
	}
	return produced, nil
}

func (b *AudioBuffer) sample(c, j int) float32 {
	if j < 0 || j >= b.srcLen {
		return 0
	}
	return b.src[c][j]
}

// compact drops the source frames before first from the window.
func (b *AudioBuffer) compact(first int) {
	shift := min(first-b.srcStart, b.srcLen)
	if shift <= 0 {
		return
	}
	for c := range b.src {
		copy(b.src[c], b.src[c][shift:b.srcLen])
	}
	b.srcStart += shift
	b.srcLen -= shift
}

// InSync reports whether the frames [start, end), relative to the clip
// offset, are buffered and not yet consumed.
func (b *AudioBuffer) InSync(start, end int) bool {
	if b.reader == nil {
		return false
	}
	return b.readPos <= b.offset+start && b.offset+end <= b.writePos
}

// Position returns the read head relative to the clip offset.
func (b *AudioBuffer) Position() int {
	return b.readPos - b.offset
}

// Available returns the number of frames buffered ahead of the read head.
func (b *AudioBuffer) Available() int {
	return b.writePos - b.readPos
}

// ReadMix adds at most frames frames from the read head, multiplied by gain,
// to dst starting at dstOffset, and advances the read head. Output channel c
// of dst takes buffer channel c modulo the buffer channels. Returns the
// number of frames mixed.
func (b *AudioBuffer) ReadMix(dst [][]float32, dstOffset, frames int, gain float32) int {
	if b.reader == nil || len(dst) == 0 {
		return 0
	}
	n := min(frames, b.writePos-b.readPos)
	for _, d := range dst {
		n = min(n, len(d)-dstOffset)
	}
	done := 0
	for done < n {
		r := (b.readPos + done) % b.capacity
		k := min(n-done, b.capacity-r)
		tmp := b.scratch[:k]
		for c, d := range dst {
			vek32.MulNumber_Into(tmp, b.ring[c%len(b.ring)][r:r+k], gain)
			vek32.Add_Inplace(d[dstOffset+done:dstOffset+done+k], tmp)
		}
		done += k
	}
	b.readPos += max(n, 0)
	return max(n, 0)
}

// Close detaches and closes the reader.
func (b *AudioBuffer) Close() error {
	if b.reader == nil {
		return nil
	}
	err := b.reader.Close()
	b.reader = nil
	return err
}
