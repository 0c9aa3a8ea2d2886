package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/hyperguess/internal/models"
)

// InitialMessage is shown when a new game starts.
const InitialMessage = "I'm your AI host. I've thought of a number... dare to guess it, or are you going to waste my time?"

// Commentator produces the host's reaction to an accepted guess. Implementations
// must always return a usable commentary; failures are handled on their side.
type Commentator interface {
	Comment(ctx context.Context, guess, target, attempts int, difficulty models.Difficulty) models.Commentary
}

// Outcome classifies what SubmitGuess did with the input.
type Outcome string

const (
	OutcomeIgnored    Outcome = "ignored"
	OutcomeOutOfRange Outcome = "out_of_range"
	OutcomeAccepted   Outcome = "accepted"
)

// Result describes the effect of a single SubmitGuess call.
type Result struct {
	Outcome Outcome
	Record  *models.GuessRecord // set when Outcome is OutcomeAccepted
}

// Option configures a Controller.
type Option func(*Controller)

// WithPicker replaces the random target draw. pick must return a value in [1, max].
func WithPicker(pick func(max int) int) Option {
	return func(c *Controller) { c.pick = pick }
}

// WithClock replaces time.Now for guess timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller owns the single active game session and is the only way to mutate it.
// It is safe for concurrent use; commentary requests run on their own goroutines.
type Controller struct {
	commentator Commentator
	pick        func(max int) int
	now         func() time.Time
	log         *slog.Logger

	mu      sync.Mutex
	game    models.Game
	cancel  context.CancelFunc
	ctx     context.Context
	nextReq uint64 // last issued request seq for the active session
	applied uint64 // seq of the last commentary applied to the active session
	pending int    // outstanding requests for the active session
	idle    chan struct{}
}

// NewController creates a controller in the STARTING phase. Call StartGame to play.
func NewController(commentator Commentator, opts ...Option) *Controller {
	c := &Controller{
		commentator: commentator,
		pick:        func(max int) int { return rand.IntN(max) + 1 },
		now:         time.Now,
		log:         slog.Default(),
		idle:        closedChan(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.game = models.Game{
		Difficulty: models.DifficultyMedium,
		Phase:      models.PhaseStarting,
		Commentary: initialCommentary(),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

func initialCommentary() models.Commentary {
	return models.Commentary{Message: InitialMessage, Mood: models.MoodNeutral}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// newSessionID generates a monotonic ULID for a session.
func newSessionID() string {
	return ulid.Make().String()
}

// StartGame replaces the active session with a fresh one for difficulty d.
// In-flight commentary for the previous session is cancelled and its result dropped.
func (c *Controller) StartGame(d models.Difficulty) models.Game {
	cfg := d.Config()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.game = models.Game{
		ID:         newSessionID(),
		Difficulty: cfg.Difficulty,
		Phase:      models.PhasePlaying,
		Commentary: initialCommentary(),
		StartedAt:  c.now(),
		Target:     c.pick(cfg.Max),
	}
	c.nextReq, c.applied = 0, 0
	c.setPendingLocked(0)

	c.log.Debug("game started", "session", c.game.ID, "difficulty", cfg.Difficulty)
	return c.snapshotLocked()
}

// SubmitGuess parses raw as an integer guess and applies it to the active session.
// Accepted guesses trigger exactly one asynchronous commentary request.
func (c *Controller) SubmitGuess(raw string) Result {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Result{Outcome: OutcomeIgnored}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.game.Phase != models.PhasePlaying {
		return Result{Outcome: OutcomeIgnored}
	}

	maxValue := c.game.Difficulty.Config().Max
	if value < 1 || value > maxValue {
		c.game.Commentary = models.Commentary{
			Message: fmt.Sprintf("Hey! The number is between 1 and %d. Focus.", maxValue),
			Mood:    models.MoodSarcastic,
		}
		return Result{Outcome: OutcomeOutOfRange}
	}

	ts := c.now()
	if n := len(c.game.History); n > 0 && ts.Before(c.game.History[n-1].Timestamp) {
		ts = c.game.History[n-1].Timestamp
	}
	record := models.GuessRecord{
		Value:     value,
		Timestamp: ts,
		Direction: Evaluate(value, c.game.Target),
	}
	c.game.History = append(c.game.History, record)
	if record.Direction == models.DirectionCorrect {
		c.game.Phase = models.PhaseWon
	}

	c.nextReq++
	req := request{
		session:    c.game.ID,
		seq:        c.nextReq,
		guess:      value,
		target:     c.game.Target,
		attempts:   len(c.game.History),
		difficulty: c.game.Difficulty,
	}
	c.setPendingLocked(c.pending + 1)
	go c.comment(c.ctx, req)

	return Result{Outcome: OutcomeAccepted, Record: &record}
}

type request struct {
	session    string
	seq        uint64
	guess      int
	target     int
	attempts   int
	difficulty models.Difficulty
}

func (c *Controller) comment(ctx context.Context, req request) {
	commentary := c.commentator.Comment(ctx, req.guess, req.target, req.attempts, req.difficulty)

	c.mu.Lock()
	defer c.mu.Unlock()

	if req.session != c.game.ID {
		return
	}
	if req.seq > c.applied {
		c.applied = req.seq
		c.game.Commentary = commentary
	}
	c.setPendingLocked(c.pending - 1)
}

// setPendingLocked updates the outstanding count and the idle channel Wait blocks on.
func (c *Controller) setPendingLocked(n int) {
	wasIdle := c.pending == 0
	c.pending = n
	switch {
	case n == 0 && !wasIdle:
		close(c.idle)
	case n > 0 && wasIdle:
		c.idle = make(chan struct{})
	}
	c.game.PendingCommentary = n > 0
}

// Wait blocks until the active session has no outstanding commentary or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the active session.
func (c *Controller) Snapshot() models.Game {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() models.Game {
	g := c.game
	g.History = make([]models.GuessRecord, len(c.game.History))
	copy(g.History, c.game.History)
	return g
}

// Close cancels any in-flight commentary requests.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
}
