package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cliptrack/cliptrack"
	"github.com/cliptrack/cliptrack/catalog"
	"github.com/cliptrack/cliptrack/config"
	"github.com/cliptrack/cliptrack/editor"
	"github.com/cliptrack/cliptrack/gomidi"
	"github.com/cliptrack/cliptrack/logger"
	"github.com/cliptrack/cliptrack/wavfile"
)

// app is the environment of a single command: configuration, logger,
// catalog and the model editing the session file.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	catalog *catalog.Catalog
	model   *editor.Model
	done    chan struct{}
	drained chan struct{}
}

// flushTimeout bounds the wait for messages still queued when a command
// ends.
const flushTimeout = 50 * time.Millisecond

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logger.Level(logLevel)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}
	if cfg.CatalogPath != "" {
		if a.catalog, err = catalog.Open(cfg.CatalogPath); err != nil {
			log.Warn("catalog disabled", zap.Error(err))
		}
	}
	return a, nil
}

// open creates the model and reads the session file into it.
func (a *app) open(mustExist bool) error {
	options := []editor.Option{
		editor.WithLogger(a.log),
		editor.WithAudioFiles(wavfile.New(a.cfg.AudioBitDepth)),
		editor.WithMidiFiles(gomidi.New()),
	}
	if a.catalog != nil {
		options = append(options, editor.WithRegistry(a.catalog))
	}
	session := a.cfg.NewSession(strings.TrimSuffix(filepath.Base(sessionPath), filepath.Ext(sessionPath)))
	session.Dir = filepath.Dir(sessionPath)
	m, err := editor.New(session, a.cfg.Options(), options...)
	if err != nil {
		return err
	}
	a.model = m
	if _, err := os.Stat(sessionPath); err != nil {
		if mustExist {
			return fmt.Errorf("could not open session: %w", err)
		}
		return nil
	}
	if err := m.LoadSessionFile(sessionPath); err != nil {
		return err
	}
	a.done = make(chan struct{})
	a.drained = make(chan struct{})
	go a.drain()
	return nil
}

// drain reports the progress messages and alerts of the model. When the
// command is done, the messages still queued are reported before drain
// returns.
func (a *app) drain() {
	defer close(a.drained)
	for {
		select {
		case <-a.done:
			for {
				msg, ok := editor.TimeoutReceive(a.model.Broker().ToGUI, flushTimeout)
				if !ok {
					return
				}
				a.report(msg)
			}
		case msg := <-a.model.Broker().ToGUI:
			a.report(msg)
		case <-a.model.Broker().ToPlayer:
		}
	}
}

func (a *app) report(msg any) {
	switch e := msg.(type) {
	case editor.ProgressMessage:
		if e.Total > 0 {
			fmt.Fprintf(os.Stderr, "\r%s: %3d%%", e.Name, e.Done*100/e.Total)
		}
		if e.Finished {
			fmt.Fprintln(os.Stderr)
		}
	case editor.Alert:
		switch e.Priority {
		case editor.Error:
			a.log.Error(e.Message)
		case editor.Warning:
			a.log.Warn(e.Message)
		default:
			a.log.Info(e.Message)
		}
	}
}

func (a *app) save() error {
	return a.model.SaveSessionFile(sessionPath)
}

func (a *app) close() {
	if a.done != nil {
		close(a.done)
		<-a.drained
	}
	if a.catalog != nil {
		a.catalog.Close()
	}
	a.log.Sync()
}

// run opens the session, runs f and saves the session if f changed it.
func run(f func(ctx context.Context, a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.open(true); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := f(ctx, a); err != nil {
		if cliptrack.IsSilent(err) {
			a.log.Debug("nothing done", zap.Error(err))
			return nil
		}
		return err
	}
	if a.model.ChangedSinceSave() {
		return a.save()
	}
	return nil
}

// track returns the track with the 1-based index.
func (a *app) track(index int) (*cliptrack.Track, error) {
	tracks := a.model.Tracks()
	if index < 1 || index > len(tracks) {
		return nil, fmt.Errorf("no track %d (the session has %d tracks)", index, len(tracks))
	}
	return tracks[index-1], nil
}

// clip returns the clip with the 1-based index on a track.
func (a *app) clip(t *cliptrack.Track, index int) (*cliptrack.Clip, error) {
	if index < 1 || index > len(t.Clips) {
		return nil, fmt.Errorf("no clip %d on track %q", index, t.Name)
	}
	return t.Clips[index-1], nil
}

// position parses a timeline position: frames ("44100"), seconds ("1.5s")
// or bar:beat, both 1-based ("3:1").
func (a *app) position(s string) (int, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0, nil
	case strings.HasSuffix(s, "s"):
		sec, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid position %q: %w", s, err)
		}
		return int(sec * float64(a.model.SampleRate())), nil
	case strings.Contains(s, ":"):
		bar, beat, _ := strings.Cut(s, ":")
		b, err1 := strconv.Atoi(bar)
		bt, err2 := strconv.Atoi(beat)
		if err1 != nil || err2 != nil || b < 1 || bt < 1 {
			return 0, fmt.Errorf("invalid position %q", s)
		}
		beats := (b-1)*a.model.BeatsPerBar() + bt - 1
		return a.model.FrameFromTick(beats * a.model.TicksPerBeat()), nil
	}
	frame, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return frame, nil
}
