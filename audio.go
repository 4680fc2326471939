package cliptrack

type (
	// AudioSink receives interleaved float samples, e.g. for playback.
	AudioSink interface {
		WriteAudio(buffer []float32) error
		Close() error
	}

	// AudioContext opens sinks to an audio device.
	AudioContext interface {
		Output() AudioSink
		Close() error
	}

	// AudioReader streams decoded, non-interleaved float frames from an audio
	// source. Read fills at most len(buf[0]) frames of each channel and
	// returns the number of frames read; io.EOF is returned once the source
	// is exhausted.
	AudioReader interface {
		Channels() int
		SampleRate() int
		Frames() int
		Read(buf [][]float32) (int, error)
		Seek(frame int) error
		Close() error
	}

	// AudioWriter writes non-interleaved float frames to an audio file.
	AudioWriter interface {
		Write(buf [][]float32, frames int) error
		Close() error
	}

	// AudioFileService opens and creates audio files. The codec is an
	// implementation detail of the service.
	AudioFileService interface {
		OpenAudio(path string) (AudioReader, error)
		CreateAudio(path string, channels, sampleRate int) (AudioWriter, error)
		Remove(path string) error
	}

	// MidiFile is a decoded standard MIDI file: one sequence per track (or
	// per channel for format 0 files) and the tempo map of the file.
	MidiFile struct {
		Format       int
		TicksPerBeat int
		Tracks       []*MidiSequence
		TempoMap     []TempoNode
	}

	// MidiFileService reads and writes MIDI files.
	MidiFileService interface {
		ReadMidi(path string) (*MidiFile, error)
		WriteMidi(path string, f *MidiFile) error
		Remove(path string) error
	}
)

// Interleave writes n frames of the non-interleaved channel buffers into dst
// as interleaved samples, growing dst if needed.
func Interleave(frames [][]float32, n int, dst []float32) []float32 {
	channels := len(frames)
	if cap(dst) < n*channels {
		dst = make([]float32, n*channels)
	}
	dst = dst[:n*channels]
	for c, ch := range frames {
		for i := 0; i < n; i++ {
			dst[i*channels+c] = ch[i]
		}
	}
	return dst
}

// Deinterleave is the inverse of Interleave.
func Deinterleave(src []float32, dst [][]float32) int {
	channels := len(dst)
	if channels == 0 {
		return 0
	}
	n := len(src) / channels
	for c := range dst {
		n = min(n, len(dst[c]))
	}
	for i := 0; i < n; i++ {
		for c := range dst {
			dst[c][i] = src[i*channels+c]
		}
	}
	return n
}

// SequenceTrack returns the track of the file matching the track-channel
// reference of a clip: the track index for format 1 files and the channel
// for format 0 files.
func (f *MidiFile) SequenceTrack(format, trackChannel int) *MidiSequence {
	if format == 0 {
		for _, s := range f.Tracks {
			if s.Channel == trackChannel {
				return s
			}
		}
		return nil
	}
	if trackChannel < 0 || trackChannel >= len(f.Tracks) {
		return nil
	}
	return f.Tracks[trackChannel]
}
