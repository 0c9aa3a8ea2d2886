package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/hyperguess/internal/game"
	"github.com/joescharf/hyperguess/internal/llm"
	"github.com/joescharf/hyperguess/internal/models"
)

// newLLMClient creates an LLM client from config/env, or returns nil if no API key is configured.
func newLLMClient() *llm.Client {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	return llm.NewClient(apiKey, viper.GetString("anthropic.model"), viper.GetInt64("anthropic.max_tokens"))
}

// newCommentator wires the commentary client. Without an API key every guess
// gets the local higher/lower hint.
func newCommentator() *llm.Commentator {
	var gen llm.Generator
	if client := newLLMClient(); client != nil {
		gen = client
	} else {
		ui.VerboseLog("No Anthropic API key configured; the host will use plain hints")
	}
	return llm.NewCommentator(gen, viper.GetDuration("anthropic.timeout"), slog.Default())
}

// newController builds a game controller and starts the first game.
func newController(difficulty string) (*game.Controller, error) {
	if difficulty == "" {
		difficulty = viper.GetString("game.difficulty")
	}
	d, err := models.ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}

	c := game.NewController(newCommentator(), game.WithLogger(slog.Default()))
	c.StartGame(d)
	return c, nil
}
