package editor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cliptrack/cliptrack"
	"go.uber.org/zap"
)

// ReadSession replaces the session with one read from r, as JSON or YAML.
// The MIDI clips of the new session are opened and the undo history is
// cleared.
func (m *Model) ReadSession(r io.ReadCloser) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("could not read session: %w", err)
	}
	if err := r.Close(); err != nil {
		return fmt.Errorf("could not close session file: %w", err)
	}
	var session cliptrack.Session
	if errJSON := json.Unmarshal(b, &session); errJSON != nil {
		if errYaml := yaml.Unmarshal(b, &session); errYaml != nil {
			return fmt.Errorf("could not unmarshal session: %v / %v", errYaml, errJSON)
		}
	}
	session.Relink()
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}
	m.Lock()
	m.session = session
	m.currentTrack, m.currentClip = nil, nil
	m.Unlock()
	m.ClearHistory()
	if f, ok := r.(*os.File); ok {
		m.filePath = f.Name()
		if m.session.Dir == "" {
			m.session.Dir = filepath.Dir(f.Name())
		}
	}
	m.OpenClips()
	m.changedSinceSave = false
	m.log.Info("session loaded", zap.String("name", m.session.Name), zap.Int("tracks", len(m.session.Tracks)))
	return nil
}

// WriteSession writes the session to w, as JSON if w is a file with a .json
// extension and YAML otherwise. MIDI clips with unsaved edits are written
// to their own files first.
func (m *Model) WriteSession(w io.WriteCloser) error {
	path := ""
	if f, ok := w.(*os.File); ok {
		path = f.Name()
	}
	if m.midi != nil {
		if err := m.SyncMidiClips(); err != nil {
			w.Close()
			return err
		}
	}
	var contents []byte
	var err error
	if filepath.Ext(path) == ".json" {
		contents, err = json.MarshalIndent(m.session, "", "  ")
	} else {
		contents, err = yaml.Marshal(m.session)
	}
	if err != nil {
		w.Close()
		return fmt.Errorf("could not marshal session: %w", err)
	}
	if _, err := w.Write(contents); err != nil {
		w.Close()
		return fmt.Errorf("could not write session: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("could not close session file: %w", err)
	}
	if path != "" {
		m.filePath = path
	}
	m.changedSinceSave = false
	return nil
}

// LoadSessionFile opens and reads a session file.
func (m *Model) LoadSessionFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open session file: %w", err)
	}
	return m.ReadSession(f)
}

// SaveSessionFile writes the session to a file.
func (m *Model) SaveSessionFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create session file: %w", err)
	}
	return m.WriteSession(f)
}
