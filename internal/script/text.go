package script

import (
	"math"
	"strconv"
	"strings"
)

// PlayerToken is replaced with the script's player name at render time
const PlayerToken = "@player"

// Substitute replaces every player token in text.
func Substitute(text, playerName string) string {
	return strings.ReplaceAll(text, PlayerToken, playerName)
}

// DisplaySpeaker returns the speaker label as shown on screen
func (s *DialogueScript) DisplaySpeaker(d Dialogue) string {
	if d.Speaker == PlayerToken {
		return s.PlayerName
	}
	return d.Speaker
}

// DisplayText returns the dialogue content as shown on screen
func (s *DialogueScript) DisplayText(d Dialogue) string {
	return Substitute(d.Content, s.PlayerName)
}

// ParseNumber parses an editor field. Non-numeric input keeps the prior value.
func ParseNumber(input string, prior float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return prior
	}
	return v
}
