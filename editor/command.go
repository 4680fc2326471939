package editor

import (
	"github.com/cliptrack/cliptrack"
	"go.uber.org/zap"
)

type (
	// Command is an undoable change of the session. Redo applies the change
	// and Undo inverts it; both run under the session lock. A command that
	// fails to apply leaves the session as it was.
	Command interface {
		Name() string
		Redo(m *Model) error
		Undo(m *Model) error
		IsEmpty() bool
	}

	// ClipCommand is an ordered list of primitive clip operations. Each
	// operation records the state it replaces when applied, so undo replays
	// the inverses in reverse order.
	ClipCommand struct {
		name string
		ops  []clipOp
	}

	clipOp interface {
		apply(m *Model) error
		revert(m *Model) error
	}

	addClipOp struct {
		clip  *cliptrack.Clip
		track *cliptrack.Track
		index int
	}

	removeClipOp struct {
		clip  *cliptrack.Clip
		track *cliptrack.Track
		index int
	}

	// clipExtent is the position of a clip on a track.
	clipExtent struct {
		start, offset, length int
	}

	resizeClipOp struct {
		clip *cliptrack.Clip
		to   clipExtent
		from clipExtent
	}

	moveClipOp struct {
		clip      *cliptrack.Clip
		track     *cliptrack.Track
		to        clipExtent
		from      clipExtent
		fromTrack *cliptrack.Track
		fromIndex int
	}

	gainClipOp struct {
		clip      *cliptrack.Clip
		gain      float32
		prevGain  float32
		fadeIn    bool
		fadeOut   bool
		fade      int
		prevFade  int
		applyGain bool
	}

	editOp struct {
		cmd *MidiEditCommand
	}
)

func NewClipCommand(name string) *ClipCommand {
	return &ClipCommand{name: name}
}

func (c *ClipCommand) Name() string { return c.name }

// IsEmpty reports whether the command has no operations, counting nested
// MIDI edit commands without operations as none.
func (c *ClipCommand) IsEmpty() bool {
	for _, op := range c.ops {
		if e, ok := op.(*editOp); ok && e.cmd.IsEmpty() {
			continue
		}
		return false
	}
	return true
}

// Len returns the number of primitive operations.
func (c *ClipCommand) Len() int { return len(c.ops) }

// AddClip adds the clip at the end of the track.
func (c *ClipCommand) AddClip(clip *cliptrack.Clip, track *cliptrack.Track) {
	c.ops = append(c.ops, &addClipOp{clip: clip, track: track, index: -1})
}

// RemoveClip removes the clip from its track.
func (c *ClipCommand) RemoveClip(clip *cliptrack.Clip) {
	c.ops = append(c.ops, &removeClipOp{clip: clip, index: -1})
}

// ResizeClip changes the start, offset and length of the clip.
func (c *ClipCommand) ResizeClip(clip *cliptrack.Clip, start, offset, length int) {
	c.ops = append(c.ops, &resizeClipOp{clip: clip, to: clipExtent{start, offset, length}})
}

// MoveClip moves the clip to another track (or the same) and extent.
func (c *ClipCommand) MoveClip(clip *cliptrack.Clip, track *cliptrack.Track, start, offset, length int) {
	c.ops = append(c.ops, &moveClipOp{clip: clip, track: track, to: clipExtent{start, offset, length}, fromIndex: -1})
}

// GainClip sets the gain of the clip.
func (c *ClipCommand) GainClip(clip *cliptrack.Clip, gain float32) {
	c.ops = append(c.ops, &gainClipOp{clip: clip, gain: gain, applyGain: true})
}

// FadeInClip sets the fade-in length of the clip.
func (c *ClipCommand) FadeInClip(clip *cliptrack.Clip, length int) {
	c.ops = append(c.ops, &gainClipOp{clip: clip, fadeIn: true, fade: length})
}

// FadeOutClip sets the fade-out length of the clip.
func (c *ClipCommand) FadeOutClip(clip *cliptrack.Clip, length int) {
	c.ops = append(c.ops, &gainClipOp{clip: clip, fadeOut: true, fade: length})
}

// AddEditCommand nests a MIDI edit command; it is applied in order with the
// other operations.
func (c *ClipCommand) AddEditCommand(cmd *MidiEditCommand) {
	c.ops = append(c.ops, &editOp{cmd: cmd})
}

func (c *ClipCommand) Redo(m *Model) error {
	for i, op := range c.ops {
		if err := op.apply(m); err != nil {
			for j := i - 1; j >= 0; j-- {
				if rerr := c.ops[j].revert(m); rerr != nil {
					m.rollbackFailed(c.name, err, rerr)
				}
			}
			return err
		}
	}
	return nil
}

func (c *ClipCommand) Undo(m *Model) error {
	for i := len(c.ops) - 1; i >= 0; i-- {
		if err := c.ops[i].revert(m); err != nil {
			for j := i + 1; j < len(c.ops); j++ {
				if rerr := c.ops[j].apply(m); rerr != nil {
					m.rollbackFailed(c.name, err, rerr)
				}
			}
			return err
		}
	}
	return nil
}

func (o *addClipOp) apply(m *Model) error {
	if o.track == nil || m.session.TrackIndex(o.track) < 0 {
		return cliptrack.Precondition("add clip: track is not in the session")
	}
	if o.track.ClipIndex(o.clip) >= 0 {
		return cliptrack.Precondition("add clip: clip is already on the track")
	}
	if o.index < 0 {
		o.track.AddClip(o.clip)
	} else {
		o.track.InsertClip(o.index, o.clip)
	}
	return nil
}

func (o *addClipOp) revert(m *Model) error {
	i := o.track.UnlinkClip(o.clip)
	if i < 0 {
		return cliptrack.Precondition("undo add clip: clip is not on the track")
	}
	o.index = i
	m.forget(o.clip)
	return nil
}

func (o *removeClipOp) apply(m *Model) error {
	t := m.session.TrackOf(o.clip)
	if t == nil {
		return cliptrack.Precondition("remove clip: clip has no track")
	}
	i := t.UnlinkClip(o.clip)
	if i < 0 {
		return cliptrack.Precondition("remove clip: clip is not on its track")
	}
	o.track, o.index = t, i
	m.forget(o.clip)
	return nil
}

func (o *removeClipOp) revert(m *Model) error {
	if o.track == nil {
		return cliptrack.Precondition("undo remove clip: clip was never removed")
	}
	o.track.InsertClip(o.index, o.clip)
	return nil
}

func extentOf(c *cliptrack.Clip) clipExtent {
	return clipExtent{c.Start, c.Offset, c.Length}
}

func setExtent(c *cliptrack.Clip, e clipExtent) {
	c.Start, c.Offset, c.Length = e.start, e.offset, e.length
	if c.Selected {
		c.SetSelection(c.SelectStart, c.SelectEnd)
	}
}

func (o *resizeClipOp) apply(m *Model) error {
	if o.to.length < 0 || o.to.offset < 0 || o.to.start < 0 {
		return cliptrack.Range("resize clip: negative extent")
	}
	o.from = extentOf(o.clip)
	setExtent(o.clip, o.to)
	return nil
}

func (o *resizeClipOp) revert(m *Model) error {
	setExtent(o.clip, o.from)
	return nil
}

func (o *moveClipOp) apply(m *Model) error {
	if o.track == nil || m.session.TrackIndex(o.track) < 0 {
		return cliptrack.Precondition("move clip: track is not in the session")
	}
	if k, ok := o.track.Type.ClipKind(); !ok || k != o.clip.Kind {
		return cliptrack.Precondition("move clip: clip kind does not match track type")
	}
	from := m.session.TrackOf(o.clip)
	if from == nil {
		return cliptrack.Precondition("move clip: clip has no track")
	}
	o.fromTrack = from
	o.fromIndex = from.UnlinkClip(o.clip)
	o.from = extentOf(o.clip)
	setExtent(o.clip, o.to)
	o.track.AddClip(o.clip)
	return nil
}

func (o *moveClipOp) revert(m *Model) error {
	o.track.UnlinkClip(o.clip)
	setExtent(o.clip, o.from)
	o.fromTrack.InsertClip(o.fromIndex, o.clip)
	return nil
}

func (o *gainClipOp) apply(m *Model) error {
	switch {
	case o.applyGain:
		o.prevGain = o.clip.Gain
		o.clip.Gain = o.gain
	case o.fadeIn:
		o.prevFade = o.clip.FadeIn
		o.clip.FadeIn = max(o.fade, 0)
	case o.fadeOut:
		o.prevFade = o.clip.FadeOut
		o.clip.FadeOut = max(o.fade, 0)
	}
	return nil
}

func (o *gainClipOp) revert(m *Model) error {
	switch {
	case o.applyGain:
		o.clip.Gain = o.prevGain
	case o.fadeIn:
		o.clip.FadeIn = o.prevFade
	case o.fadeOut:
		o.clip.FadeOut = o.prevFade
	}
	return nil
}

func (o *editOp) apply(m *Model) error  { return o.cmd.Redo(m) }
func (o *editOp) revert(m *Model) error { return o.cmd.Undo(m) }

// rollbackFailed logs an operation that could not be restored after a
// command failed halfway; the session is left partially changed.
func (m *Model) rollbackFailed(command string, cause, err error) {
	m.log.Error("command rollback failed",
		zap.String("command", command),
		zap.NamedError("cause", cause),
		zap.Error(err))
}

// forget drops references of the model to a clip leaving the session.
func (m *Model) forget(c *cliptrack.Clip) {
	if m.currentClip == c {
		m.currentClip = nil
	}
}
