package editor

import (
	"fmt"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/cliptrack/cliptrack"
	"go.uber.org/zap"
)

type (
	// Model is the editing state of a session: the session document, the
	// undo/redo history and the services needed to open and write clip
	// material.
	//
	// A Model is owned by a single editing goroutine; all structural
	// mutations happen there, through Execute, Undo and Redo. A render
	// goroutine may read the committed session concurrently through Read;
	// structural changes are applied under the session write lock, so readers
	// never observe a half-applied command.
	Model struct {
		session cliptrack.Session
		opts    Options

		audio    cliptrack.AudioFileService
		midi     cliptrack.MidiFileService
		registry FileRegistry
		log      *zap.Logger
		broker   *Broker
		progress ProgressSink
		now      func() time.Time

		undoStack []Command
		redoStack []Command

		mu        sync.RWMutex
		lockDepth int

		currentTrack *cliptrack.Track
		currentClip  *cliptrack.Clip

		filePath         string
		changedSinceSave bool
		pathTemplate     *template.Template
	}

	// Options are the tunables of the long running operations.
	Options struct {
		// BufferSize is the window size, in frames, of the merge and
		// normalize scans.
		BufferSize int
		// SyncInterval is how often, in windows, the decode buffers are
		// re-synchronized unconditionally.
		SyncInterval int
		// MaxSyncPolls bounds the number of try-sync polls per clip and
		// window when the data of a clip is not yet available.
		MaxSyncPolls int
		// StabilizeInterval is how often, in windows, progress is reported
		// and control is yielded. Cancellation is checked every window.
		StabilizeInterval int
		// MidiFormat is the SMF format of newly written MIDI files (0 or 1).
		MidiFormat int
		// AudioExt is the extension of newly written audio files.
		AudioExt string
		// FilePathTemplate names new files; see CreateFilePath.
		FilePathTemplate string
		// DropSpan puts all files of an import into a single new track,
		// one after another.
		DropSpan bool
	}

	// Option configures a Model.
	Option func(*Model)

	// FileRegistry records the audio and MIDI files used by a session.
	FileRegistry interface {
		Register(kind cliptrack.ClipKind, path string) error
	}
)

const maxUndo = 256

const defaultFilePathTemplate = `{{ .Base | snakecase }}{{ if .Index }}-{{ .Index }}{{ end }}.{{ .Ext }}`

func DefaultOptions() Options {
	return Options{
		BufferSize:        1024,
		SyncInterval:      33,
		MaxSyncPolls:      8,
		StabilizeInterval: 100,
		MidiFormat:        1,
		AudioExt:          "wav",
		FilePathTemplate:  defaultFilePathTemplate,
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Model) { m.log = l }
}

func WithBroker(b *Broker) Option {
	return func(m *Model) { m.broker = b }
}

func WithAudioFiles(s cliptrack.AudioFileService) Option {
	return func(m *Model) { m.audio = s }
}

func WithMidiFiles(s cliptrack.MidiFileService) Option {
	return func(m *Model) { m.midi = s }
}

func WithRegistry(r FileRegistry) Option {
	return func(m *Model) { m.registry = r }
}

func WithProgress(p ProgressSink) Option {
	return func(m *Model) { m.progress = p }
}

func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// New returns a Model editing the session. Zero options are replaced with
// their defaults.
func New(session cliptrack.Session, opts Options, options ...Option) (*Model, error) {
	def := DefaultOptions()
	if opts.BufferSize <= 0 {
		opts.BufferSize = def.BufferSize
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = def.SyncInterval
	}
	if opts.MaxSyncPolls <= 0 {
		opts.MaxSyncPolls = def.MaxSyncPolls
	}
	if opts.StabilizeInterval <= 0 {
		opts.StabilizeInterval = def.StabilizeInterval
	}
	if opts.MidiFormat != 0 && opts.MidiFormat != 1 {
		opts.MidiFormat = def.MidiFormat
	}
	if opts.AudioExt == "" {
		opts.AudioExt = def.AudioExt
	}
	if opts.FilePathTemplate == "" {
		opts.FilePathTemplate = def.FilePathTemplate
	}
	tmpl, err := template.New("filepath").Funcs(sprig.TxtFuncMap()).Parse(opts.FilePathTemplate)
	if err != nil {
		return nil, fmt.Errorf("could not parse file path template: %w", err)
	}
	m := &Model{session: session, opts: opts, pathTemplate: tmpl}
	for _, o := range options {
		o(m)
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.broker == nil {
		m.broker = NewBroker()
	}
	if m.progress == nil {
		m.progress = NewBrokerProgress(m.broker)
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.session.Relink()
	if err := m.session.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	return m, nil
}

func (m *Model) Session() *cliptrack.Session { return &m.session }
func (m *Model) Options() Options            { return m.opts }
func (m *Model) Broker() *Broker             { return m.broker }
func (m *Model) Logger() *zap.Logger         { return m.log }

func (m *Model) Tracks() []*cliptrack.Track { return m.session.Tracks }

func (m *Model) SampleRate() int   { return m.session.TimeScale.SampleRate }
func (m *Model) TicksPerBeat() int { return m.session.TimeScale.TicksPerBeat }
func (m *Model) BeatsPerBar() int  { return m.session.TimeScale.BeatsPerBar() }

func (m *Model) TickFromFrame(frame int) int { return m.session.TimeScale.TickFromFrame(frame) }
func (m *Model) FrameFromTick(tick int) int  { return m.session.TimeScale.FrameFromTick(tick) }

func (m *Model) PlayHead() int { return m.session.PlayHead }

func (m *Model) SetPlayHead(frame int) {
	m.session.PlayHead = max(frame, 0)
}

// SetEditRange sets the edit head and tail; they are swapped if needed.
func (m *Model) SetEditRange(head, tail int) {
	head, tail = max(head, 0), max(tail, 0)
	if tail < head {
		head, tail = tail, head
	}
	m.session.EditHead, m.session.EditTail = head, tail
}

func (m *Model) CurrentTrack() *cliptrack.Track { return m.currentTrack }
func (m *Model) CurrentClip() *cliptrack.Clip   { return m.currentClip }

func (m *Model) SetCurrentTrack(t *cliptrack.Track) { m.currentTrack = t }

// SetCurrentClip makes the clip current, along with its track.
func (m *Model) SetCurrentClip(c *cliptrack.Clip) {
	m.currentClip = c
	if t := m.session.TrackOf(c); t != nil {
		m.currentTrack = t
	}
}

func (m *Model) FilePath() string       { return m.filePath }
func (m *Model) ChangedSinceSave() bool { return m.changedSinceSave }

// Lock takes the session write lock. Locks nest: only the outermost
// Lock/Unlock pair touches the mutex, so an operation can bracket a batch
// of commands that each lock on their own. Lock and Unlock must only be
// called from the editing goroutine.
func (m *Model) Lock() {
	if m.lockDepth == 0 {
		m.mu.Lock()
	}
	m.lockDepth++
}

func (m *Model) Unlock() {
	if m.lockDepth == 0 {
		return
	}
	m.lockDepth--
	if m.lockDepth == 0 {
		m.mu.Unlock()
	}
}

// Read calls f with the committed session under the session read lock. It
// is meant for render goroutines; calling it from the editing goroutine
// while the session is locked deadlocks.
func (m *Model) Read(f func(*cliptrack.Session)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f(&m.session)
}

// Execute applies the command under the session lock and pushes it onto
// the undo history, truncating the redo history. Empty commands are never
// executed nor pushed.
func (m *Model) Execute(cmd Command) error {
	if cmd == nil || cmd.IsEmpty() {
		return cliptrack.Precondition("empty command")
	}
	m.Lock()
	err := cmd.Redo(m)
	m.Unlock()
	if err != nil {
		return err
	}
	m.undoStack = pushBounded(m.undoStack, cmd)
	m.redoStack = m.redoStack[:0]
	m.changed(cmd)
	m.log.Debug("command executed", zap.String("command", cmd.Name()))
	return nil
}

func (m *Model) CanUndo() bool { return m.Undo().Enabled() }
func (m *Model) CanRedo() bool { return m.Redo().Enabled() }

// UndoName returns the name of the command that Undo would invert.
func (m *Model) UndoName() string {
	if len(m.undoStack) == 0 {
		return ""
	}
	return m.undoStack[len(m.undoStack)-1].Name()
}

func (m *Model) ClearHistory() {
	m.undoStack = m.undoStack[:0]
	m.redoStack = m.redoStack[:0]
}

func (m *Model) changed(cmd Command) {
	m.changedSinceSave = true
	TrySend(m.broker.ToPlayer, any(SessionChanged{Command: cmd.Name()}))
}

func (m *Model) alert(priority AlertPriority, format string, args ...any) {
	TrySend(m.broker.ToGUI, any(Alert{Message: fmt.Sprintf(format, args...), Priority: priority}))
}

func (m *Model) register(kind cliptrack.ClipKind, path string) {
	if m.registry == nil {
		return
	}
	if err := m.registry.Register(kind, path); err != nil {
		m.log.Warn("could not register file", zap.String("path", path), zap.Error(err))
	}
}
