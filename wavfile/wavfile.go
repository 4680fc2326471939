// Package wavfile implements the audio file service of the editor with WAV
// files.
package wavfile

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cliptrack/cliptrack"
)

type (
	// Files opens and creates WAV files. New files are written as integer
	// PCM with BitDepth bits per sample.
	Files struct {
		BitDepth int
	}

	Reader struct {
		path     string
		file     *os.File
		decoder  *wav.Decoder
		channels int
		rate     int
		bitDepth int
		frames   int
		pos      int
		intBuf   *audio.IntBuffer
	}

	Writer struct {
		file    *os.File
		encoder *wav.Encoder
		format  *audio.Format
		scale   float64
		intBuf  *audio.IntBuffer
	}
)

const skipFrames = 4096

func New(bitDepth int) *Files {
	switch bitDepth {
	case 16, 24, 32:
	default:
		bitDepth = 16
	}
	return &Files{BitDepth: bitDepth}
}

func (s *Files) OpenAudio(path string) (cliptrack.AudioReader, error) {
	r := &Reader{path: path}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Files) CreateAudio(path string, channels, sampleRate int) (cliptrack.AudioWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create wav file: %w", err)
	}
	bitDepth := s.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	return &Writer{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, bitDepth, channels, 1),
		format:  &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		scale:   math.Pow(2, float64(bitDepth-1)) - 1,
		intBuf:  &audio.IntBuffer{SourceBitDepth: bitDepth},
	}, nil
}

func (s *Files) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove wav file: %w", err)
	}
	return nil
}

func (r *Reader) open() error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("could not open wav file: %w", err)
	}
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		f.Close()
		return fmt.Errorf("invalid wav file: %s", r.path)
	}
	if err := d.FwdToPCM(); err != nil {
		f.Close()
		return fmt.Errorf("could not find pcm data: %w", err)
	}
	format := d.Format()
	bitDepth := int(d.SampleBitDepth())
	if format == nil || format.NumChannels <= 0 || bitDepth == 0 {
		f.Close()
		return fmt.Errorf("unsupported wav format: %s", r.path)
	}
	bytesPerSample := (bitDepth-1)/8 + 1
	r.file, r.decoder = f, d
	r.channels = format.NumChannels
	r.rate = format.SampleRate
	r.bitDepth = bitDepth
	r.frames = int(d.PCMLen()) / bytesPerSample / r.channels
	r.pos = 0
	r.intBuf = &audio.IntBuffer{Format: format, SourceBitDepth: bitDepth}
	return nil
}

func (r *Reader) Channels() int   { return r.channels }
func (r *Reader) SampleRate() int { return r.rate }
func (r *Reader) Frames() int     { return r.frames }

// Read decodes at most len(buf[0]) frames into the channel buffers.
// Channels beyond the buffers are dropped; buffers beyond the file
// channels get the last file channel.
func (r *Reader) Read(buf [][]float32) (int, error) {
	if len(buf) == 0 || len(buf[0]) == 0 {
		return 0, nil
	}
	want := min(len(buf[0]), r.frames-r.pos)
	if want <= 0 {
		return 0, io.EOF
	}
	n, err := r.decode(want)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	offset, scale := 0.0, math.Pow(2, float64(r.bitDepth-1))
	if r.bitDepth == 8 {
		// 8 bit wav samples are unsigned
		offset = 128
	}
	for i := 0; i < n; i++ {
		for c := range buf {
			src := min(c, r.channels-1)
			v := float64(r.intBuf.Data[i*r.channels+src])
			buf[c][i] = float32((v - offset) / scale)
		}
	}
	r.pos += n
	return n, nil
}

func (r *Reader) decode(frames int) (int, error) {
	samples := frames * r.channels
	if cap(r.intBuf.Data) < samples {
		r.intBuf.Data = make([]int, samples)
	}
	r.intBuf.Data = r.intBuf.Data[:samples]
	n, err := r.decoder.PCMBuffer(r.intBuf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("could not decode wav data: %w", err)
	}
	return n / r.channels, nil
}

// Seek positions the reader at a frame. WAV data is only decoded forward,
// so seeking backwards reopens the file.
func (r *Reader) Seek(frame int) error {
	frame = min(max(frame, 0), r.frames)
	if frame < r.pos {
		r.file.Close()
		if err := r.open(); err != nil {
			return err
		}
	}
	for r.pos < frame {
		n, err := r.decode(min(skipFrames, frame-r.pos))
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		r.pos += n
	}
	return nil
}

func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (w *Writer) Write(buf [][]float32, frames int) error {
	channels := w.format.NumChannels
	samples := frames * channels
	if cap(w.intBuf.Data) < samples {
		w.intBuf.Data = make([]int, samples)
	}
	w.intBuf.Data = w.intBuf.Data[:samples]
	w.intBuf.Format = w.format
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			v := 0.0
			if c < len(buf) {
				v = float64(buf[c][i])
			}
			v = math.Max(-1, math.Min(1, v))
			w.intBuf.Data[i*channels+c] = int(math.Round(v * w.scale))
		}
	}
	if err := w.encoder.Write(w.intBuf); err != nil {
		return fmt.Errorf("could not encode wav data: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.encoder.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	w.file = nil
	if err != nil {
		return fmt.Errorf("could not close wav file: %w", err)
	}
	return nil
}
