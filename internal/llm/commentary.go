package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joescharf/hyperguess/internal/models"
)

// RetryMessage replaces an empty message in an otherwise valid reply.
const RetryMessage = "That's not the number, try again."

// Commentator turns a guess into the host's commentary. It never fails: any
// problem with the remote call yields a locally computed hint instead.
type Commentator struct {
	gen     Generator
	timeout time.Duration
	log     *slog.Logger
}

// NewCommentator creates a Commentator. gen may be nil, in which case every
// call takes the fallback path. A zero timeout disables the per-call deadline.
func NewCommentator(gen Generator, timeout time.Duration, log *slog.Logger) *Commentator {
	if log == nil {
		log = slog.Default()
	}
	return &Commentator{gen: gen, timeout: timeout, log: log}
}

// buildInstruction constructs the persona prompt embedding the guess context.
func buildInstruction(guess, target, attempts int, difficulty models.Difficulty) string {
	var sb strings.Builder
	sb.WriteString("You are a witty, slightly sarcastic game host called 'Master Guess'.\n")
	sb.WriteString("The user is playing a number-guessing game.\n")
	fmt.Fprintf(&sb, "- Secret number: %d\n", target)
	fmt.Fprintf(&sb, "- User's guess: %d\n", guess)
	fmt.Fprintf(&sb, "- Attempts so far: %d\n", attempts)
	fmt.Fprintf(&sb, "- Difficulty: %s\n\n", difficulty)
	sb.WriteString("If the user guessed right, congratulate them with style.\n")
	sb.WriteString("Otherwise give a very short, clever hint saying whether the number is higher or lower. ")
	sb.WriteString("Be creative, use analogies or humor. Keep the message short (fewer than 20 words).\n\n")
	sb.WriteString("Respond ONLY with a JSON object of this exact shape:\n")
	sb.WriteString(`{"message": "your message here", "mood": "happy" | "sarcastic" | "helpful" | "neutral"}`)
	return sb.String()
}

// reply is the wire shape of the remote response. Fields are raw so their
// JSON types can be checked before they are trusted.
type reply struct {
	Message json.RawMessage `json:"message"`
	Mood    json.RawMessage `json:"mood"`
}

// optionalString decodes a JSON string, treating absent and null as "".
func optionalString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

// parseReply validates and normalizes the remote response.
func parseReply(text string) (models.Commentary, error) {
	text = stripFences(text)
	if text == "" {
		return models.Commentary{}, errors.New("empty response")
	}
	if !strings.HasPrefix(text, "{") {
		return models.Commentary{}, errors.New("response is not a JSON object")
	}

	var r reply
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return models.Commentary{}, fmt.Errorf("parse LLM response as JSON: %w", err)
	}

	message, err := optionalString(r.Message)
	if err != nil {
		return models.Commentary{}, fmt.Errorf("field message: %w", err)
	}
	mood, err := optionalString(r.Mood)
	if err != nil {
		return models.Commentary{}, fmt.Errorf("field mood: %w", err)
	}

	c := models.Commentary{
		Message: strings.TrimSpace(message),
		Mood:    models.Mood(strings.ToLower(strings.TrimSpace(mood))),
	}
	if c.Message == "" {
		c.Message = RetryMessage
	}
	if !c.Mood.Valid() {
		c.Mood = models.MoodNeutral
	}
	return c, nil
}

// Fallback is the commentary used when the remote call cannot be used.
func Fallback(guess, target int) models.Commentary {
	direction := "lower"
	if guess < target {
		direction = "higher"
	}
	return models.Commentary{
		Message: fmt.Sprintf("My quantum brain lost its connection, but I'll tell you this: aim %s.", direction),
		Mood:    models.MoodNeutral,
	}
}

// Comment asks the remote host for a reaction to the guess.
func (c *Commentator) Comment(ctx context.Context, guess, target, attempts int, difficulty models.Difficulty) models.Commentary {
	if c.gen == nil {
		return Fallback(guess, target)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.gen.Generate(ctx, buildInstruction(guess, target, attempts, difficulty))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Warn("commentary request failed", "error", err)
		}
		return Fallback(guess, target)
	}

	commentary, err := parseReply(text)
	if err != nil {
		c.log.Warn("commentary response rejected", "error", err, "raw", text)
		return Fallback(guess, target)
	}
	return commentary
}
