package models

import "time"

// Phase is the state of a game session.
type Phase string

const (
	PhaseStarting Phase = "STARTING"
	PhasePlaying  Phase = "PLAYING"
	PhaseWon      Phase = "WON"
	// PhaseLost is reserved for a move limit; no transition enters it.
	PhaseLost Phase = "LOST"
)

// Direction tells the player where the secret number lies relative to a guess.
type Direction string

const (
	DirectionHigher  Direction = "higher"
	DirectionLower   Direction = "lower"
	DirectionCorrect Direction = "correct"
)

// Mood tags the tone of the host's commentary.
type Mood string

const (
	MoodHappy     Mood = "happy"
	MoodSarcastic Mood = "sarcastic"
	MoodHelpful   Mood = "helpful"
	MoodNeutral   Mood = "neutral"
)

// Valid reports whether m is one of the four allowed moods.
func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodSarcastic, MoodHelpful, MoodNeutral:
		return true
	}
	return false
}

// GuessRecord is one evaluated guess. Timestamp orders the history.
type GuessRecord struct {
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
}

// Commentary is the host's message shown after a guess.
type Commentary struct {
	Message string `json:"message"`
	Mood    Mood   `json:"mood"`
}

// Game is a read-only snapshot of the active session.
type Game struct {
	ID                string        `json:"id"`
	Difficulty        Difficulty    `json:"difficulty"`
	Phase             Phase         `json:"phase"`
	History           []GuessRecord `json:"history"`
	Commentary        Commentary    `json:"commentary"`
	PendingCommentary bool          `json:"pending_commentary"`
	StartedAt         time.Time     `json:"started_at"`
	Target            int           `json:"-"` // hidden from the player
}

// Attempts returns the number of recorded guesses.
func (g *Game) Attempts() int {
	return len(g.History)
}
