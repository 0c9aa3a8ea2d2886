package models

import (
	"fmt"
	"strings"
)

// Difficulty selects the range the secret number is drawn from.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// DifficultyConfig describes the valid guess range [1, Max] for a difficulty.
type DifficultyConfig struct {
	Difficulty Difficulty `json:"difficulty"`
	Max        int        `json:"max"`
	Label      string     `json:"label"`
}

// Difficulties lists every difficulty in increasing order of Max.
var Difficulties = []DifficultyConfig{
	{Difficulty: DifficultyEasy, Max: 50, Label: "Easy (1-50)"},
	{Difficulty: DifficultyMedium, Max: 100, Label: "Medium (1-100)"},
	{Difficulty: DifficultyHard, Max: 500, Label: "Hard (1-500)"},
}

// Config returns the configuration for d. Unknown values fall back to MEDIUM.
func (d Difficulty) Config() DifficultyConfig {
	for _, c := range Difficulties {
		if c.Difficulty == d {
			return c
		}
	}
	return Difficulties[1]
}

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	for _, c := range Difficulties {
		if c.Difficulty == d {
			return true
		}
	}
	return false
}

// ParseDifficulty accepts a difficulty name in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", s)
	}
	return d, nil
}
