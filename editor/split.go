package editor

import (
	"github.com/cliptrack/cliptrack"
)

// SplitClip splits the clip in two at the play head. The clip is shortened
// in place to end at the play head, and a clone covers the rest; the clone
// keeps the fade-out of the original, the original keeps the fade-in.
//
// A play head outside the open interval (start, end) of the clip is a
// RangeFailure.
func (m *Model) SplitClip(clip *cliptrack.Clip) error {
	if clip == nil {
		return cliptrack.Precondition("split: no clip")
	}
	track := m.session.TrackOf(clip)
	if track == nil {
		return cliptrack.Precondition("split: clip has no track")
	}
	p := m.session.PlayHead
	if p <= clip.Start || p >= clip.End() {
		return cliptrack.Range("split: play head outside of clip")
	}
	left := p - clip.Start
	right := clip.Clone()
	right.Start = p
	right.Offset = clip.Offset + left
	right.Length = clip.Length - left
	right.FadeIn = 0
	right.ClearSelection()
	cmd := NewClipCommand("clip split")
	cmd.ResizeClip(clip, clip.Start, clip.Offset, left)
	if clip.FadeOut > 0 {
		cmd.FadeOutClip(clip, 0)
	}
	cmd.AddClip(right, track)
	return m.Execute(cmd)
}
