package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/joescharf/hyperguess/internal/game"
	"github.com/joescharf/hyperguess/internal/models"
)

// maxWait bounds how long a ?wait=true request blocks for commentary.
const maxWait = 30 * time.Second

// Server provides the REST API handlers over a single game controller.
type Server struct {
	game *game.Controller
}

// NewServer creates a new API server.
func NewServer(c *game.Controller) *Server {
	return &Server{game: c}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/difficulties", s.listDifficulties)
	mux.HandleFunc("GET /api/v1/game", s.getGame)
	mux.HandleFunc("POST /api/v1/game", s.startGame)
	mux.HandleFunc("POST /api/v1/game/guesses", s.submitGuess)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// gameResponse is the public view of a session. Target is only revealed once won.
type gameResponse struct {
	models.Game
	Range  int  `json:"range_max"`
	Target *int `json:"target,omitempty"`
}

func newGameResponse(g models.Game) gameResponse {
	resp := gameResponse{Game: g, Range: g.Difficulty.Config().Max}
	if g.Phase == models.PhaseWon {
		target := g.Target
		resp.Target = &target
	}
	return resp
}

// waitIfRequested blocks until commentary settles when the client asked for ?wait=true.
func (s *Server) waitIfRequested(r *http.Request) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), maxWait)
	defer cancel()
	_ = s.game.Wait(ctx)
}

func (s *Server) listDifficulties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Difficulties)
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	s.waitIfRequested(r)
	writeJSON(w, http.StatusOK, newGameResponse(s.game.Snapshot()))
}

func (s *Server) startGame(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Difficulty string `json:"difficulty"`
	}
	// Chunked requests report ContentLength -1, so an empty body shows up as io.EOF.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// An empty difficulty replays the current one, like "play again".
	d := s.game.Snapshot().Difficulty
	if body.Difficulty != "" {
		parsed, err := models.ParseDifficulty(body.Difficulty)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		d = parsed
	}

	writeJSON(w, http.StatusCreated, newGameResponse(s.game.StartGame(d)))
}

func (s *Server) submitGuess(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Guess json.RawMessage `json:"guess"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Accept both 42 and "42"; anything else is handed to the controller as-is
	// and ignored there.
	raw := string(body.Guess)
	var str string
	if err := json.Unmarshal(body.Guess, &str); err == nil {
		raw = str
	}

	res := s.game.SubmitGuess(raw)
	s.waitIfRequested(r)

	writeJSON(w, http.StatusOK, map[string]any{
		"outcome": res.Outcome,
		"record":  res.Record,
		"game":    newGameResponse(s.game.Snapshot()),
	})
}
