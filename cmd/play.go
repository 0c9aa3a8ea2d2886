package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/hyperguess/internal/game"
	"github.com/joescharf/hyperguess/internal/models"
	"github.com/joescharf/hyperguess/internal/output"
)

var playDifficulty string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play an interactive game in the terminal",
	Long: `Play HyperGuess in the terminal.

Type a number to guess. Other commands:
  easy | medium | hard   start a new game at that difficulty
  new                    restart at the current difficulty
  history                show your guesses so far
  quit                   leave the game`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return playRun(cmd, playDifficulty)
	},
}

func init() {
	playCmd.Flags().StringVarP(&playDifficulty, "difficulty", "d", "", "Starting difficulty: easy, medium or hard (default from config)")
	rootCmd.AddCommand(playCmd)
}

func playRun(cmd *cobra.Command, difficulty string) error {
	c, err := newController(difficulty)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return playLoop(ctx, cmd.InOrStdin(), c)
}

// playLoop reads commands line by line until EOF or quit.
func playLoop(ctx context.Context, in io.Reader, c *game.Controller) error {
	fmt.Fprintf(ui.Out, "%s\n\n", output.Cyan("HyperGuess AI"))
	showGame(c.Snapshot())

	scanner := bufio.NewScanner(in)
	for {
		prompt(c.Snapshot())
		if !scanner.Scan() {
			fmt.Fprintln(ui.Out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch cmd := strings.ToLower(line); cmd {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		case "new", "again":
			showGame(c.StartGame(c.Snapshot().Difficulty))
		case "history":
			if err := ui.History(c.Snapshot().History); err != nil {
				ui.Error("Could not show history: %v", err)
			}
		case "easy", "medium", "hard":
			d, _ := models.ParseDifficulty(cmd)
			showGame(c.StartGame(d))
		default:
			if err := guess(ctx, c, line); err != nil {
				return err
			}
		}
	}
}

func guess(ctx context.Context, c *game.Controller, line string) error {
	res := c.SubmitGuess(line)
	switch res.Outcome {
	case game.OutcomeIgnored:
		if c.Snapshot().Phase == models.PhaseWon {
			ui.Warning("The game is over. Type 'new' or pick a difficulty to play again.")
		} else {
			ui.Warning("%q is not a number.", line)
		}
		return nil
	case game.OutcomeOutOfRange:
		showHost(c.Snapshot().Commentary)
		return nil
	}

	fmt.Fprintf(ui.Out, "  %s %s\n", output.DirectionLabel(res.Record.Direction), output.Yellow("Analyzing your move..."))
	if err := c.Wait(ctx); err != nil {
		ui.Error("No reply from the host: %v", err)
		return err
	}

	g := c.Snapshot()
	showHost(g.Commentary)
	if g.Phase == models.PhaseWon {
		fmt.Fprintln(ui.Out)
		ui.Success("VICTORY! You did it in %d attempts.", g.Attempts())
		if err := ui.History(g.History); err != nil {
			ui.Error("Could not show history: %v", err)
		}
		fmt.Fprintln(ui.Out)
		ui.Info("Type 'new' to play again or pick a difficulty (easy, medium, hard).")
	}
	return nil
}

func showGame(g models.Game) {
	cfg := g.Difficulty.Config()
	ui.Info("New game: %s. Range 1 - %d.", cfg.Label, cfg.Max)
	ui.VerboseLog("Session %s", g.ID)
	showHost(g.Commentary)
}

func showHost(c models.Commentary) {
	fmt.Fprintf(ui.Out, "  \"%s\"\n", output.MoodColor(c.Mood, c.Message))
}

func prompt(g models.Game) {
	if g.Phase == models.PhaseWon {
		fmt.Fprint(ui.Out, "> ")
		return
	}
	fmt.Fprintf(ui.Out, "[%s 1-%d | attempts %d] guess> ", g.Difficulty, g.Difficulty.Config().Max, g.Attempts())
}
