package editor

import (
	"github.com/cliptrack/cliptrack"
	"golang.org/x/exp/slices"
)

type (
	// AddTrackCommand appends a track to the session.
	AddTrackCommand struct {
		track *cliptrack.Track
		index int
	}

	// RemoveTrackCommand removes a track, with its clips, from the session.
	RemoveTrackCommand struct {
		track *cliptrack.Track
		index int
	}

	// EditTrackCommand swaps the properties of a track.
	EditTrackCommand struct {
		track *cliptrack.Track
		props cliptrack.TrackProperties
	}

	// ImportTrackCommand adds a batch of tracks at once.
	ImportTrackCommand struct {
		tracks []*cliptrack.Track
	}

	// DescriptionCommand swaps the session description.
	DescriptionCommand struct {
		text string
	}

	// CompositeCommand applies commands in order as one undoable step.
	CompositeCommand struct {
		name string
		cmds []Command
	}
)

func NewAddTrackCommand(t *cliptrack.Track) *AddTrackCommand {
	return &AddTrackCommand{track: t, index: -1}
}

func (c *AddTrackCommand) Name() string  { return "add track" }
func (c *AddTrackCommand) IsEmpty() bool { return c.track == nil }
func (c *AddTrackCommand) Redo(m *Model) error {
	return m.insertTrack(c.index, c.track)
}
func (c *AddTrackCommand) Undo(m *Model) error {
	c.index = m.removeTrack(c.track)
	if c.index < 0 {
		return cliptrack.Precondition("undo add track: track is not in the session")
	}
	return nil
}

func NewRemoveTrackCommand(t *cliptrack.Track) *RemoveTrackCommand {
	return &RemoveTrackCommand{track: t, index: -1}
}

func (c *RemoveTrackCommand) Name() string  { return "remove track" }
func (c *RemoveTrackCommand) IsEmpty() bool { return c.track == nil }
func (c *RemoveTrackCommand) Redo(m *Model) error {
	c.index = m.removeTrack(c.track)
	if c.index < 0 {
		return cliptrack.Precondition("remove track: track is not in the session")
	}
	return nil
}
func (c *RemoveTrackCommand) Undo(m *Model) error {
	return m.insertTrack(c.index, c.track)
}

func NewEditTrackCommand(t *cliptrack.Track, props cliptrack.TrackProperties) *EditTrackCommand {
	return &EditTrackCommand{track: t, props: props}
}

func (c *EditTrackCommand) Name() string  { return "edit track" }
func (c *EditTrackCommand) IsEmpty() bool { return c.track == nil || c.track.Properties() == c.props }
func (c *EditTrackCommand) Redo(m *Model) error {
	prev := c.track.Properties()
	c.track.SetProperties(c.props)
	c.props = prev
	return nil
}
func (c *EditTrackCommand) Undo(m *Model) error { return c.Redo(m) }

func (c *ImportTrackCommand) Name() string  { return "import tracks" }
func (c *ImportTrackCommand) IsEmpty() bool { return len(c.tracks) == 0 }
func (c *ImportTrackCommand) AddTrack(t *cliptrack.Track) {
	c.tracks = append(c.tracks, t)
}
func (c *ImportTrackCommand) Tracks() []*cliptrack.Track { return c.tracks }
func (c *ImportTrackCommand) Redo(m *Model) error {
	for i, t := range c.tracks {
		if err := m.insertTrack(-1, t); err != nil {
			for j := i - 1; j >= 0; j-- {
				m.removeTrack(c.tracks[j])
			}
			return err
		}
	}
	return nil
}
func (c *ImportTrackCommand) Undo(m *Model) error {
	for i := len(c.tracks) - 1; i >= 0; i-- {
		m.removeTrack(c.tracks[i])
	}
	return nil
}

func NewDescriptionCommand(text string) *DescriptionCommand {
	return &DescriptionCommand{text: text}
}

func (c *DescriptionCommand) Name() string  { return "session description" }
func (c *DescriptionCommand) IsEmpty() bool { return false }
func (c *DescriptionCommand) Redo(m *Model) error {
	c.text, m.session.Description = m.session.Description, c.text
	return nil
}
func (c *DescriptionCommand) Undo(m *Model) error { return c.Redo(m) }

func NewCompositeCommand(name string, cmds ...Command) *CompositeCommand {
	return &CompositeCommand{name: name, cmds: cmds}
}

func (c *CompositeCommand) Name() string { return c.name }

func (c *CompositeCommand) Add(cmd Command) {
	c.cmds = append(c.cmds, cmd)
}

// IsEmpty reports whether all of the subcommands are empty.
func (c *CompositeCommand) IsEmpty() bool {
	for _, cmd := range c.cmds {
		if !cmd.IsEmpty() {
			return false
		}
	}
	return true
}

func (c *CompositeCommand) Redo(m *Model) error {
	for i, cmd := range c.cmds {
		if cmd.IsEmpty() {
			continue
		}
		if err := cmd.Redo(m); err != nil {
			for j := i - 1; j >= 0; j-- {
				if c.cmds[j].IsEmpty() {
					continue
				}
				if rerr := c.cmds[j].Undo(m); rerr != nil {
					m.rollbackFailed(c.name, err, rerr)
				}
			}
			return err
		}
	}
	return nil
}

func (c *CompositeCommand) Undo(m *Model) error {
	for i := len(c.cmds) - 1; i >= 0; i-- {
		if c.cmds[i].IsEmpty() {
			continue
		}
		if err := c.cmds[i].Undo(m); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) insertTrack(index int, t *cliptrack.Track) error {
	if m.session.TrackIndex(t) >= 0 {
		return cliptrack.Precondition("track is already in the session")
	}
	if index < 0 || index > len(m.session.Tracks) {
		index = len(m.session.Tracks)
	}
	m.session.Tracks = slices.Insert(m.session.Tracks, index, t)
	for _, c := range t.Clips {
		c.TrackID = t.ID
	}
	return nil
}

func (m *Model) removeTrack(t *cliptrack.Track) int {
	i := m.session.TrackIndex(t)
	if i < 0 {
		return -1
	}
	m.session.Tracks = slices.Delete(m.session.Tracks, i, i+1)
	if m.currentTrack == t {
		m.currentTrack = nil
	}
	if m.currentClip != nil && m.currentClip.TrackID == t.ID {
		m.currentClip = nil
	}
	return i
}
