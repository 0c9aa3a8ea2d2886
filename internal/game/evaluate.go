package game

import "github.com/joescharf/hyperguess/internal/models"

// Evaluate compares a guess to the target. "higher" means the secret is above the guess.
func Evaluate(guess, target int) models.Direction {
	switch {
	case guess == target:
		return models.DirectionCorrect
	case guess < target:
		return models.DirectionHigher
	default:
		return models.DirectionLower
	}
}
