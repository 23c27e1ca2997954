// Package level maps experience points to levels. Every function is pure.
package level

import (
	"math"

	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

// PointsPerLevel is the XP width of every level.
const PointsPerLevel = 100

// ForXP returns the level reached with xp points. Level 1 starts at 0 XP.
// Negative input is treated as 0.
func ForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/PointsPerLevel + 1
}

// Within describes progress inside the current level.
type Within struct {
	XPInLevel int
	Required  int
	Percent   float64
}

// ProgressWithin returns how far xp is into its level.
func ProgressWithin(xp int) Within {
	if xp < 0 {
		xp = 0
	}
	in := xp % PointsPerLevel
	return Within{
		XPInLevel: in,
		Required:  PointsPerLevel,
		Percent:   Round2(float64(in) / PointsPerLevel * 100),
	}
}

// Progress builds the full level-progress view for xp.
func Progress(xp int) models.LevelProgress {
	w := ProgressWithin(xp)
	return models.LevelProgress{
		CurrentLevel:           ForXP(xp),
		CurrentXP:              xp,
		XPInCurrentLevel:       w.XPInLevel,
		XPRequiredForNextLevel: w.Required,
		ProgressPercentage:     w.Percent,
	}
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
