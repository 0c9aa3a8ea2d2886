package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/hyperguess/internal/game"
	"github.com/joescharf/hyperguess/internal/models"
)

// commentaryWait bounds how long a guess tool call waits for the host's reply.
const commentaryWait = 20 * time.Second

// Server exposes the game controller as MCP tools.
type Server struct {
	game    *game.Controller
	version string
}

// NewServer creates the MCP server wrapper.
func NewServer(c *game.Controller, version string) *Server {
	return &Server{game: c, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("hyperguess", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.difficultiesTool())
	srv.AddTool(s.startGameTool())
	srv.AddTool(s.submitGuessTool())
	srv.AddTool(s.stateTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// gameOut is the tool view of a session. The target appears only after a win.
type gameOut struct {
	ID         string               `json:"id"`
	Difficulty models.Difficulty    `json:"difficulty"`
	Range      string               `json:"range"`
	Phase      models.Phase         `json:"phase"`
	Attempts   int                  `json:"attempts"`
	History    []models.GuessRecord `json:"history"`
	Message    string               `json:"message"`
	Mood       models.Mood          `json:"mood"`
	Thinking   bool                 `json:"thinking"`
	Target     int                  `json:"target,omitempty"`
}

func toGameOut(g models.Game) gameOut {
	out := gameOut{
		ID:         g.ID,
		Difficulty: g.Difficulty,
		Range:      fmt.Sprintf("1-%d", g.Difficulty.Config().Max),
		Phase:      g.Phase,
		Attempts:   g.Attempts(),
		History:    g.History,
		Message:    g.Commentary.Message,
		Mood:       g.Commentary.Mood,
		Thinking:   g.PendingCommentary,
	}
	if g.Phase == models.PhaseWon {
		out.Target = g.Target
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// hyperguess_difficulties
func (s *Server) difficultiesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hyperguess_difficulties",
		mcp.WithDescription("List the difficulty levels with their number ranges."),
	)
	return tool, s.handleDifficulties
}

func (s *Server) handleDifficulties(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(models.Difficulties)
}

// hyperguess_start_game
func (s *Server) startGameTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hyperguess_start_game",
		mcp.WithDescription("Start a new game. The host picks a secret number in the difficulty's range. Any game in progress is discarded."),
		mcp.WithString("difficulty",
			mcp.Description("Difficulty level; defaults to the current one"),
			mcp.Enum("EASY", "MEDIUM", "HARD"),
		),
	)
	return tool, s.handleStartGame
}

func (s *Server) handleStartGame(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := s.game.Snapshot().Difficulty
	if name := request.GetString("difficulty", ""); name != "" {
		parsed, err := models.ParseDifficulty(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		d = parsed
	}
	return jsonResult(toGameOut(s.game.StartGame(d)))
}

// hyperguess_submit_guess
func (s *Server) submitGuessTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hyperguess_submit_guess",
		mcp.WithDescription("Submit a guess for the active game and return the host's commentary and the updated history."),
		mcp.WithString("guess", mcp.Required(), mcp.Description("The guessed number")),
	)
	return tool, s.handleSubmitGuess
}

func (s *Server) handleSubmitGuess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arg, ok := request.GetArguments()["guess"]
	if !ok || arg == nil {
		return mcp.NewToolResultError("missing required parameter: guess"), nil
	}

	var raw string
	switch v := arg.(type) {
	case string:
		raw = v
	case float64:
		// JSON numbers decode as float64; %v would print 1e+06.
		raw = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		raw = fmt.Sprint(v)
	}

	res := s.game.SubmitGuess(raw)
	if res.Outcome == game.OutcomeAccepted {
		waitCtx, cancel := context.WithTimeout(ctx, commentaryWait)
		defer cancel()
		_ = s.game.Wait(waitCtx)
	}

	return jsonResult(map[string]any{
		"outcome": res.Outcome,
		"game":    toGameOut(s.game.Snapshot()),
	})
}

// hyperguess_state
func (s *Server) stateTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hyperguess_state",
		mcp.WithDescription("Show the active game: phase, range, attempts, history and the host's latest message."),
	)
	return tool, s.handleState
}

func (s *Server) handleState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(toGameOut(s.game.Snapshot()))
}
