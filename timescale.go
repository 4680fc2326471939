package cliptrack

import (
	"errors"
	"math"

	"golang.org/x/exp/slices"
)

type (
	// TimeScale is the tempo / time signature map of a session. It maps
	// between the two time domains of the engine: audio frames (sample
	// periods at SampleRate) and musical ticks (TicksPerBeat per beat). The
	// map is a list of TempoNodes sorted by tick; the first node always
	// starts at tick 0 and frame 0. The frame positions of the nodes are
	// derived data and are recomputed by Update.
	TimeScale struct {
		SampleRate   int
		TicksPerBeat int
		SnapPerBeat  int         `yaml:",omitempty"`
		Nodes        []TempoNode `yaml:",flow"`
	}

	// TempoNode is a single tempo / time signature change. Between two nodes
	// the tempo is constant, so conversions are linear.
	TempoNode struct {
		Tick        int
		Frame       int `yaml:"-" json:"-"`
		Tempo       float64
		BeatsPerBar int
		BeatDivisor int

		sampleRate   int
		ticksPerBeat int
		bar          int
	}

	// Cursor is a restartable scan position over a TimeScale. Cursors are
	// cheap and meant to be owned by a single scan; never share one between
	// goroutines. A cursor must be seeked before the node is used; the node
	// returned by a seek is valid until the next seek.
	Cursor struct {
		ts    *TimeScale
		index int
	}
)

// ErrOutOfRangeQuery is returned by cursor seeks on an empty tempo map.
var ErrOutOfRangeQuery = errors.New("time scale has no tempo nodes")

// NewTimeScale returns a TimeScale with a single node.
func NewTimeScale(sampleRate, ticksPerBeat int, tempo float64, beatsPerBar, beatDivisor int) TimeScale {
	ts := TimeScale{
		SampleRate:   sampleRate,
		TicksPerBeat: ticksPerBeat,
		SnapPerBeat:  4,
		Nodes:        []TempoNode{{Tick: 0, Tempo: tempo, BeatsPerBar: beatsPerBar, BeatDivisor: beatDivisor}},
	}
	ts.Update()
	return ts
}

// Update recomputes the derived frame positions of all nodes. It needs to be
// called after the nodes have been modified directly, e.g. after
// unmarshaling.
func (ts *TimeScale) Update() {
	slices.SortStableFunc(ts.Nodes, func(a, b TempoNode) int { return a.Tick - b.Tick })
	for i := range ts.Nodes {
		n := &ts.Nodes[i]
		n.sampleRate = ts.SampleRate
		n.ticksPerBeat = ts.TicksPerBeat
		if n.Tempo <= 0 {
			n.Tempo = 120
		}
		if n.BeatsPerBar <= 0 {
			n.BeatsPerBar = 4
		}
		if n.BeatDivisor <= 0 {
			n.BeatDivisor = 2
		}
		if i == 0 {
			n.Tick = 0
			n.Frame = 0
			n.bar = 0
			continue
		}
		prev := &ts.Nodes[i-1]
		n.Frame = prev.FrameFromTick(n.Tick)
		n.bar = prev.BarFromTick(n.Tick)
	}
}

// AddNode inserts a tempo change at the given tick, replacing any node
// already at that tick.
func (ts *TimeScale) AddNode(tick int, tempo float64, beatsPerBar, beatDivisor int) {
	if tick < 0 {
		tick = 0
	}
	node := TempoNode{Tick: tick, Tempo: tempo, BeatsPerBar: beatsPerBar, BeatDivisor: beatDivisor}
	i, found := slices.BinarySearchFunc(ts.Nodes, tick, func(n TempoNode, t int) int { return n.Tick - t })
	if found {
		ts.Nodes[i] = node
	} else {
		ts.Nodes = slices.Insert(ts.Nodes, i, node)
	}
	ts.Update()
}

// Copy makes a deep copy of the TimeScale; used whenever the tempo map needs
// to be snapshotted instead of live-linked.
func (ts TimeScale) Copy() TimeScale {
	ret := ts
	ret.Nodes = slices.Clone(ts.Nodes)
	ret.Update()
	return ret
}

// TickFromFrame converts an absolute frame to an absolute tick.
func (ts *TimeScale) TickFromFrame(frame int) int {
	c := NewCursor(ts)
	n, err := c.SeekFrame(frame)
	if err != nil {
		return 0
	}
	return n.TickFromFrame(frame)
}

// FrameFromTick converts an absolute tick to an absolute frame.
func (ts *TimeScale) FrameFromTick(tick int) int {
	c := NewCursor(ts)
	n, err := c.SeekTick(tick)
	if err != nil {
		return 0
	}
	return n.FrameFromTick(tick)
}

// BeatsPerBar returns the time signature numerator at the beginning of the
// session.
func (ts *TimeScale) BeatsPerBar() int {
	if len(ts.Nodes) == 0 {
		return 4
	}
	return ts.Nodes[0].BeatsPerBar
}

// TickFromFrame converts a frame to tick assuming the tempo of this node.
// Frames before the start of the map are clamped to zero.
func (n *TempoNode) TickFromFrame(frame int) int {
	frame = max(frame, 0)
	d := float64(frame-n.Frame) * n.Tempo * float64(n.ticksPerBeat) / (60 * float64(n.sampleRate))
	return n.Tick + int(math.Round(d))
}

// FrameFromTick converts a tick to frame assuming the tempo of this node.
// Ticks before the start of the map are clamped to zero.
func (n *TempoNode) FrameFromTick(tick int) int {
	tick = max(tick, 0)
	if n.Tempo <= 0 || n.ticksPerBeat <= 0 {
		return n.Frame
	}
	d := float64(tick-n.Tick) * 60 * float64(n.sampleRate) / (n.Tempo * float64(n.ticksPerBeat))
	return n.Frame + int(math.Round(d))
}

// TicksPerBeat is the tick resolution at this node.
func (n *TempoNode) TicksPerBeat() int {
	return n.ticksPerBeat
}

// BeatFromTick returns the absolute beat index of a tick.
func (n *TempoNode) BeatFromTick(tick int) int {
	if n.ticksPerBeat <= 0 {
		return 0
	}
	return tick / n.ticksPerBeat
}

// BarFromTick returns the absolute bar index of a tick at or after the node.
// Bars restart at every node, so a node placed mid-bar begins a new bar.
func (n *TempoNode) BarFromTick(tick int) int {
	tpb := n.TicksPerBar()
	if tpb <= 0 || tick < n.Tick {
		return n.bar
	}
	return n.bar + (tick-n.Tick)/tpb
}

// TicksPerBar returns the length of a bar in ticks at this node.
func (n *TempoNode) TicksPerBar() int {
	return n.ticksPerBeat * n.BeatsPerBar
}

// NewCursor returns a cursor positioned at the first node.
func NewCursor(ts *TimeScale) Cursor {
	return Cursor{ts: ts}
}

// Reset rewinds the cursor to the first node.
func (c *Cursor) Reset() {
	c.index = 0
}

// SeekFrame moves the cursor to the node covering the frame. Monotonic
// forward scans are incremental; seeking backwards walks back from the
// current node. Frames outside the map clamp to the first or last node.
func (c *Cursor) SeekFrame(frame int) (*TempoNode, error) {
	nodes := c.ts.Nodes
	if len(nodes) == 0 {
		return nil, ErrOutOfRangeQuery
	}
	c.index = min(c.index, len(nodes)-1)
	for c.index > 0 && frame < nodes[c.index].Frame {
		c.index--
	}
	for c.index+1 < len(nodes) && frame >= nodes[c.index+1].Frame {
		c.index++
	}
	return &nodes[c.index], nil
}

// SeekTick moves the cursor to the node covering the tick.
func (c *Cursor) SeekTick(tick int) (*TempoNode, error) {
	nodes := c.ts.Nodes
	if len(nodes) == 0 {
		return nil, ErrOutOfRangeQuery
	}
	c.index = min(c.index, len(nodes)-1)
	for c.index > 0 && tick < nodes[c.index].Tick {
		c.index--
	}
	for c.index+1 < len(nodes) && tick >= nodes[c.index+1].Tick {
		c.index++
	}
	return &nodes[c.index], nil
}
