package editor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type filePathData struct {
	Session string
	Base    string
	Index   int
	Ext     string
}

// CreateFilePath returns a path for a new file in the session directory,
// named by the file path template from the base name, an index and the
// extension. The index is increased until the path does not exist.
func (m *Model) CreateFilePath(base string, index int, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if base == "" {
		base = m.session.Name
	}
	if base == "" {
		base = "untitled"
	}
	for {
		var b bytes.Buffer
		data := filePathData{Session: m.session.Name, Base: base, Index: index, Ext: ext}
		name := ""
		if err := m.pathTemplate.Execute(&b, data); err == nil {
			name = b.String()
		} else {
			name = fmt.Sprintf("%s-%d.%s", base, index, ext)
		}
		path := filepath.Join(m.session.Dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		index++
	}
}
