// Package cues maps the assistant's symbolic audio cue tags to short
// playback actions.
package cues

import "strings"

type Cue int

const (
	CueNone Cue = iota
	CueDiscovery
	CueUpdate
	CueMemory
	CueAchievement
	CueLog

	cueCount
)

var cueNames = [...]string{
	CueNone:        "",
	CueDiscovery:   "discovery",
	CueUpdate:      "update",
	CueMemory:      "memory",
	CueAchievement: "achievement",
	CueLog:         "log",
}

var _ [cueCount]string = cueNames

// Names lists the tags an assistant may emit, in declaration order.
func Names() []string {
	return append([]string(nil), cueNames[CueNone+1:]...)
}

// ParseCue maps a tag to its Cue. Unknown and empty tags map to [CueNone].
func ParseCue(tag string) Cue {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return CueNone
	}
	for cue, name := range cueNames {
		if name == tag {
			return Cue(cue)
		}
	}
	return CueNone
}

func (c Cue) String() string {
	if c < 0 || c >= cueCount {
		return ""
	}
	return cueNames[c]
}

// Playback plays the ambient sound for each cue. Implementations should
// return quickly; the dispatcher already calls them off the caller's
// goroutine.
type Playback interface {
	DiscoveryChime()
	UpdatePing()
	MemoryTone()
	AchievementSound()
	ShotLogged()
}

var actions = [...]func(Playback){
	CueNone:        nil,
	CueDiscovery:   Playback.DiscoveryChime,
	CueUpdate:      Playback.UpdatePing,
	CueMemory:      Playback.MemoryTone,
	CueAchievement: Playback.AchievementSound,
	CueLog:         Playback.ShotLogged,
}

var _ [cueCount]func(Playback) = actions

func action(c Cue) func(Playback) {
	if c < 0 || c >= cueCount {
		return nil
	}
	return actions[c]
}
