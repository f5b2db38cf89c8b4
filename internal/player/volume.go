package player

// DefaultVolume is used as the restore level when no non-zero volume was ever set.
const DefaultVolume = 50

// Volume tracks a 0-100 level with mute semantics: a level of 0 is muted, and unmuting restores
// the last non-zero level.
type Volume struct {
	level int
	last  int
	muted bool
}

// NewVolume starts at initial (clamped). An initial of 0 starts muted.
func NewVolume(initial int) Volume {
	v := Volume{last: DefaultVolume}
	v.Set(initial)
	return v
}

// Level is the effective level the SDK should play at.
func (v Volume) Level() int {
	if v.muted {
		return 0
	}
	return v.level
}

// Restore is the level an unmute returns to.
func (v Volume) Restore() int { return v.last }

func (v Volume) Muted() bool { return v.muted }

// Set applies a level. Zero mutes; any positive level unmutes and becomes the restore level.
func (v *Volume) Set(level int) {
	level = clamp(level)
	if level == 0 {
		v.level, v.muted = 0, true
		return
	}
	v.level, v.last, v.muted = level, level, false
}

func (v *Volume) Mute() {
	v.muted = true
}

// Unmute restores the last non-zero level.
func (v *Volume) Unmute() {
	v.level, v.muted = v.last, false
}

// Toggle flips mute and reports whether the result is muted.
func (v *Volume) Toggle() bool {
	if v.muted {
		v.Unmute()
	} else {
		v.Mute()
	}
	return v.muted
}

func clamp(level int) int {
	return max(0, min(100, level))
}
