package ui

import (
	"fmt"
	"strings"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorAudio  = 140 // purple
	colorMap    = 114 // green
	colorDanger = 203 // red
	colorReward = 179 // gold
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return paint(colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return paint(colorMuted, s)
}

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string {
	return paint(colorCmd, s)
}

// RenderError returns s in red.
func RenderError(s string) string {
	return paint(colorDanger, s)
}

// RenderEventType colors an event type tag by family: audio, maps, hit
// points, rewards. Unrecognised types use the accent color.
func RenderEventType(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "soundboard_"), strings.HasPrefix(eventType, "audio_"):
		return paint(colorAudio, eventType)
	case strings.HasPrefix(eventType, "map_"), strings.HasPrefix(eventType, "hex_map_"):
		return paint(colorMap, eventType)
	case eventType == "hp_change":
		return paint(colorDanger, eventType)
	case eventType == "xp_awarded", eventType == "item_given":
		return paint(colorReward, eventType)
	}
	return paint(colorAccent, eventType)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// SetColor enables or disables color output, typically from ShouldUseColor.
func SetColor(enabled bool) {
	noColor = !enabled
}
