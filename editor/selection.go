package editor

import (
	"github.com/cliptrack/cliptrack"
)

// SelectClip selects the sub-range [start, end) of the clip, clamped to the
// clip extent.
func (m *Model) SelectClip(c *cliptrack.Clip, start, end int) {
	c.SetSelection(start, end)
}

// SelectTrackClips selects all clips of a track; with reset, the clips of
// other tracks are deselected.
func (m *Model) SelectTrackClips(t *cliptrack.Track, reset bool) {
	if reset {
		m.SelectAll(false)
	}
	for _, c := range t.Clips {
		c.SelectAll()
	}
}

// SelectAll selects or deselects every clip of the session.
func (m *Model) SelectAll(selected bool) {
	for _, t := range m.session.Tracks {
		for _, c := range t.Clips {
			if selected {
				c.SelectAll()
			} else {
				c.ClearSelection()
			}
		}
	}
}

// SelectEditRange selects the parts of the clips of track t lying between
// the edit head and tail, or of the clips of all tracks if t is nil. Every
// other clip is deselected.
func (m *Model) SelectEditRange(t *cliptrack.Track) {
	for _, tr := range m.session.Tracks {
		for _, c := range tr.Clips {
			if t != nil && tr != t {
				c.ClearSelection()
				continue
			}
			c.SetSelection(m.session.EditHead, m.session.EditTail)
		}
	}
}

// SelectedClips returns the selected clips in track and arrangement order.
func (m *Model) SelectedClips() []*cliptrack.Clip {
	var ret []*cliptrack.Clip
	for _, t := range m.session.Tracks {
		for _, c := range t.Clips {
			if c.Selected {
				ret = append(ret, c)
			}
		}
	}
	return ret
}

// IsClipSelected reports whether any clip is selected.
func (m *Model) IsClipSelected() bool {
	for _, t := range m.session.Tracks {
		for _, c := range t.Clips {
			if c.Selected {
				return true
			}
		}
	}
	return false
}

// SingleTrackSelected returns the track of the selected clips if they all
// lie on one track, nil otherwise.
func (m *Model) SingleTrackSelected() *cliptrack.Track {
	var ret *cliptrack.Track
	for _, t := range m.session.Tracks {
		for _, c := range t.Clips {
			if !c.Selected {
				continue
			}
			if ret != nil && ret != t {
				return nil
			}
			ret = t
		}
	}
	return ret
}

// targetClips returns the clips a batch operation works on: the selection,
// or the current clip when nothing is selected.
func (m *Model) targetClips() []*cliptrack.Clip {
	if sel := m.SelectedClips(); len(sel) > 0 {
		return sel
	}
	if m.currentClip != nil {
		return []*cliptrack.Clip{m.currentClip}
	}
	return nil
}

// selectionExtent returns the union extent of the selected ranges.
func selectionExtent(clips []*cliptrack.Clip) (start, end int) {
	for i, c := range clips {
		s, e := c.SelectionExtent()
		if i == 0 || s < start {
			start = s
		}
		if i == 0 || e > end {
			end = e
		}
	}
	return start, end
}
