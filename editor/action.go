package editor

import (
	"github.com/cliptrack/cliptrack"
	"go.uber.org/zap"
)

type (
	// Action describes a user action that can be performed on the model,
	// initiated by calling the Do() method. Action advertises whether it is
	// enabled, so a front end can e.g. gray out menu items when the action is
	// not allowed. If the underlying Doer does not implement Enabler, the
	// action is always allowed.
	Action struct {
		doer Doer
	}

	// Doer is an interface that defines a single Do() method, which is called
	// when an action is performed.
	Doer interface {
		Do()
	}

	// Enabler is an interface that defines a single Enabled() method.
	Enabler interface {
		Enabled() bool
	}
)

func MakeAction(doer Doer) Action {
	return Action{doer: doer}
}

func (a Action) Do() {
	e, ok := a.doer.(Enabler)
	if ok && !e.Enabled() {
		return
	}
	if a.doer != nil {
		a.doer.Do()
	}
}

func (a Action) Enabled() bool {
	if a.doer == nil {
		return false // no doer, not allowed
	}
	e, ok := a.doer.(Enabler)
	if !ok {
		return true // not enabler, always allowed
	}
	return e.Enabled()
}

// undo
type undo Model

func (m *Model) Undo() Action { return MakeAction((*undo)(m)) }
func (m *undo) Enabled() bool { return len(m.undoStack) > 0 }
func (m *undo) Do() {
	cmd := m.undoStack[len(m.undoStack)-1]
	model := (*Model)(m)
	model.Lock()
	err := cmd.Undo(model)
	model.Unlock()
	if err != nil {
		m.log.Error("undo failed", zap.String("command", cmd.Name()), zap.Error(err))
		return
	}
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	m.redoStack = pushBounded(m.redoStack, cmd)
	model.changed(cmd)
}

// redo
type redo Model

func (m *Model) Redo() Action { return MakeAction((*redo)(m)) }
func (m *redo) Enabled() bool { return len(m.redoStack) > 0 }
func (m *redo) Do() {
	cmd := m.redoStack[len(m.redoStack)-1]
	model := (*Model)(m)
	model.Lock()
	err := cmd.Redo(model)
	model.Unlock()
	if err != nil {
		m.log.Error("redo failed", zap.String("command", cmd.Name()), zap.Error(err))
		return
	}
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	m.undoStack = pushBounded(m.undoStack, cmd)
	model.changed(cmd)
}

// splitCurrent splits the current clip at the play head.
type splitCurrent Model

func (m *Model) Split() Action { return MakeAction((*splitCurrent)(m)) }
func (m *splitCurrent) Enabled() bool {
	c := m.currentClip
	return c != nil && m.session.PlayHead > c.Start && m.session.PlayHead < c.End()
}
func (m *splitCurrent) Do() {
	if err := (*Model)(m).SplitClip(m.currentClip); err != nil && !cliptrack.IsSilent(err) {
		m.log.Warn("split failed", zap.Error(err))
	}
}

// quantizeSelected quantizes the selected clips, or the current clip if
// nothing is selected.
type quantizeSelected Model

func (m *Model) Quantize() Action { return MakeAction((*quantizeSelected)(m)) }
func (m *quantizeSelected) Enabled() bool {
	return m.session.TimeScale.SnapPerBeat > 0 && len((*Model)(m).targetClips()) > 0
}
func (m *quantizeSelected) Do() {
	if err := (*Model)(m).QuantizeClips((*Model)(m).targetClips()...); err != nil && !cliptrack.IsSilent(err) {
		m.log.Warn("quantize failed", zap.Error(err))
	}
}

func pushBounded(stack []Command, cmd Command) []Command {
	stack = append(stack, cmd)
	if len(stack) > maxUndo {
		copy(stack, stack[len(stack)-maxUndo:])
		stack = stack[:maxUndo]
	}
	return stack
}
