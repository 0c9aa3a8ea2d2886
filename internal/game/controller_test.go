package game

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/hyperguess/internal/models"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type commentCall struct {
	guess, target, attempts int
	difficulty              models.Difficulty
}

// fakeCommentator replies immediately unless gate is set, in which case each
// call blocks until gate yields a value.
type fakeCommentator struct {
	mu      sync.Mutex
	calls   []commentCall
	reply   models.Commentary
	respond func(guess int) models.Commentary
	gate    chan struct{}
}

func (f *fakeCommentator) Comment(_ context.Context, guess, target, attempts int, d models.Difficulty) models.Commentary {
	f.mu.Lock()
	f.calls = append(f.calls, commentCall{guess, target, attempts, d})
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.respond != nil {
		return f.respond(guess)
	}
	return f.reply
}

func (f *fakeCommentator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func fixedPicker(n int) Option {
	return WithPicker(func(int) int { return n })
}

func waitIdle(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewController_Starting(t *testing.T) {
	fc := &fakeCommentator{}
	c := NewController(fc)
	defer c.Close()

	g := c.Snapshot()
	assert.Equal(t, models.PhaseStarting, g.Phase)
	assert.Equal(t, InitialMessage, g.Commentary.Message)

	res := c.SubmitGuess("10")
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Empty(t, c.Snapshot().History)
	assert.Zero(t, fc.callCount())
}

func TestStartGame_ResetsSession(t *testing.T) {
	fc := &fakeCommentator{reply: models.Commentary{Message: "close", Mood: models.MoodHelpful}}
	c := NewController(fc, fixedPicker(42))
	defer c.Close()

	first := c.StartGame(models.DifficultyMedium)
	c.SubmitGuess("10")
	waitIdle(t, c)
	assert.Equal(t, "close", c.Snapshot().Commentary.Message)

	second := c.StartGame(models.DifficultyHard)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.DifficultyHard, second.Difficulty)
	assert.Equal(t, models.PhasePlaying, second.Phase)
	assert.Empty(t, second.History)
	assert.NotNil(t, second.History)
	assert.False(t, second.PendingCommentary)
	assert.Equal(t, models.Commentary{Message: InitialMessage, Mood: models.MoodNeutral}, second.Commentary)
}

func TestStartGame_TargetInRange(t *testing.T) {
	c := NewController(&fakeCommentator{})
	defer c.Close()

	counts := make(map[int]int)
	for i := 0; i < 10000; i++ {
		g := c.StartGame(models.DifficultyEasy)
		require.GreaterOrEqual(t, g.Target, 1)
		require.LessOrEqual(t, g.Target, 50)
		counts[g.Target]++
	}

	// Expected ~200 per value; the endpoints must not be over-represented.
	assert.Less(t, counts[1], 400)
	assert.Less(t, counts[50], 400)
	assert.Greater(t, counts[1], 0)
	assert.Greater(t, counts[50], 0)
	assert.Len(t, counts, 50)
}

func TestStartGame_UnknownDifficultyDefaultsToMedium(t *testing.T) {
	c := NewController(&fakeCommentator{})
	defer c.Close()

	g := c.StartGame(models.Difficulty("IMPOSSIBLE"))
	assert.Equal(t, models.DifficultyMedium, g.Difficulty)
	assert.LessOrEqual(t, g.Target, 100)
}

func TestSubmitGuess_InvalidInput(t *testing.T) {
	fc := &fakeCommentator{}
	c := NewController(fc, fixedPicker(25))
	defer c.Close()
	c.StartGame(models.DifficultyEasy)

	for _, raw := range []string{"", "abc", "12abc", "3.5", " "} {
		res := c.SubmitGuess(raw)
		assert.Equal(t, OutcomeIgnored, res.Outcome, "input %q", raw)
	}
	g := c.Snapshot()
	assert.Empty(t, g.History)
	assert.Equal(t, InitialMessage, g.Commentary.Message)
	assert.Zero(t, fc.callCount())
}

func TestSubmitGuess_OutOfRange(t *testing.T) {
	fc := &fakeCommentator{}
	c := NewController(fc, fixedPicker(25))
	defer c.Close()
	c.StartGame(models.DifficultyEasy)

	for _, raw := range []string{"0", "51", "-3", "1000"} {
		res := c.SubmitGuess(raw)
		assert.Equal(t, OutcomeOutOfRange, res.Outcome, "input %q", raw)

		g := c.Snapshot()
		assert.Empty(t, g.History)
		assert.Equal(t, models.PhasePlaying, g.Phase)
		assert.Equal(t, models.MoodSarcastic, g.Commentary.Mood)
		assert.Contains(t, g.Commentary.Message, "between 1 and 50")
		assert.False(t, g.PendingCommentary)
	}
	assert.Zero(t, fc.callCount())
}

func TestSubmitGuess_Bounds(t *testing.T) {
	c := NewController(&fakeCommentator{}, fixedPicker(25))
	defer c.Close()
	c.StartGame(models.DifficultyEasy)

	assert.Equal(t, OutcomeAccepted, c.SubmitGuess("1").Outcome)
	assert.Equal(t, OutcomeAccepted, c.SubmitGuess(" 50 ").Outcome)
	waitIdle(t, c)
	assert.Len(t, c.Snapshot().History, 2)
}

func TestSubmitGuess_WinAndAfter(t *testing.T) {
	fc := &fakeCommentator{reply: models.Commentary{Message: "Bravo", Mood: models.MoodHappy}}
	c := NewController(fc, fixedPicker(77))
	defer c.Close()
	c.StartGame(models.DifficultyMedium)

	res := c.SubmitGuess("77")
	require.Equal(t, OutcomeAccepted, res.Outcome)
	require.NotNil(t, res.Record)
	assert.Equal(t, models.DirectionCorrect, res.Record.Direction)

	g := c.Snapshot()
	assert.Equal(t, models.PhaseWon, g.Phase)
	require.Len(t, g.History, 1)
	assert.Equal(t, models.DirectionCorrect, g.History[0].Direction)

	waitIdle(t, c)
	assert.Equal(t, "Bravo", c.Snapshot().Commentary.Message)
	assert.Equal(t, 1, fc.callCount(), "a winning guess still gets commentary")

	assert.Equal(t, OutcomeIgnored, c.SubmitGuess("10").Outcome)
	assert.Equal(t, OutcomeIgnored, c.SubmitGuess("500").Outcome)
	assert.Len(t, c.Snapshot().History, 1)
	assert.Equal(t, 1, fc.callCount())
}

func TestSubmitGuess_HistoryOrdered(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		// Every third reading goes backwards; recorded timestamps must not.
		if tick%3 == 0 {
			return base
		}
		return base.Add(time.Duration(tick) * time.Second)
	}

	fc := &fakeCommentator{}
	c := NewController(fc, fixedPicker(400), WithClock(clock))
	defer c.Close()
	c.StartGame(models.DifficultyHard)

	guesses := []string{"10", "20", "30", "450", "399", "401", "5"}
	for _, g := range guesses {
		require.Equal(t, OutcomeAccepted, c.SubmitGuess(g).Outcome)
	}
	waitIdle(t, c)

	g := c.Snapshot()
	require.Len(t, g.History, len(guesses))
	for i := 0; i+1 < len(g.History); i++ {
		assert.False(t, g.History[i+1].Timestamp.Before(g.History[i].Timestamp), "record %d", i)
	}
	assert.Equal(t, 10, g.History[0].Value)
	assert.Equal(t, 5, g.History[6].Value)
	assert.Equal(t, len(guesses), fc.callCount())
}

func TestSubmitGuess_CommentaryArguments(t *testing.T) {
	fc := &fakeCommentator{}
	c := NewController(fc, fixedPicker(30))
	defer c.Close()
	c.StartGame(models.DifficultyEasy)

	c.SubmitGuess("10")
	waitIdle(t, c)
	c.SubmitGuess("40")
	waitIdle(t, c)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	require.Len(t, fc.calls, 2)
	assert.Equal(t, commentCall{10, 30, 1, models.DifficultyEasy}, fc.calls[0])
	assert.Equal(t, commentCall{40, 30, 2, models.DifficultyEasy}, fc.calls[1])
}

func TestSubmitGuess_PendingWhileInFlight(t *testing.T) {
	fc := &fakeCommentator{
		gate:  make(chan struct{}),
		reply: models.Commentary{Message: "go up", Mood: models.MoodHelpful},
	}
	c := NewController(fc, fixedPicker(60))
	defer c.Close()
	c.StartGame(models.DifficultyMedium)

	c.SubmitGuess("10")
	assert.True(t, c.Snapshot().PendingCommentary)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)

	fc.gate <- struct{}{}
	waitIdle(t, c)

	g := c.Snapshot()
	assert.False(t, g.PendingCommentary)
	assert.Equal(t, "go up", g.Commentary.Message)
}

func TestSubmitGuess_StaleResponseDropped(t *testing.T) {
	fc := &fakeCommentator{
		gate:  make(chan struct{}),
		reply: models.Commentary{Message: "stale", Mood: models.MoodSarcastic},
	}
	c := NewController(fc, fixedPicker(100))
	defer c.Close()
	c.StartGame(models.DifficultyMedium)

	require.Equal(t, OutcomeAccepted, c.SubmitGuess("50").Outcome)
	assert.True(t, c.Snapshot().PendingCommentary)

	fresh := c.StartGame(models.DifficultyMedium)
	assert.False(t, fresh.PendingCommentary)

	fc.gate <- struct{}{}

	// The stale goroutine takes the lock after delivery; poll briefly.
	assert.Never(t, func() bool {
		return c.Snapshot().Commentary.Message == "stale"
	}, 50*time.Millisecond, 5*time.Millisecond)

	g := c.Snapshot()
	assert.Equal(t, fresh.ID, g.ID)
	assert.Equal(t, InitialMessage, g.Commentary.Message)
	assert.Empty(t, g.History)
	assert.False(t, g.PendingCommentary)
}

func TestSubmitGuess_OutOfOrderRepliesKeepNewest(t *testing.T) {
	fc := &fakeCommentator{
		gate: make(chan struct{}),
		respond: func(guess int) models.Commentary {
			return models.Commentary{Message: strconv.Itoa(guess), Mood: models.MoodNeutral}
		},
	}
	c := NewController(fc, fixedPicker(100))
	defer c.Close()
	c.StartGame(models.DifficultyMedium)

	c.SubmitGuess("10")
	c.SubmitGuess("20")
	assert.True(t, c.Snapshot().PendingCommentary)

	// Release both in either order; the reply to the later guess wins.
	fc.gate <- struct{}{}
	fc.gate <- struct{}{}
	waitIdle(t, c)

	g := c.Snapshot()
	assert.Equal(t, "20", g.Commentary.Message)
	assert.False(t, g.PendingCommentary)
}

func TestEndToEnd_Easy(t *testing.T) {
	fc := &fakeCommentator{reply: models.Commentary{Message: "ok", Mood: models.MoodNeutral}}
	c := NewController(fc, fixedPicker(25))
	defer c.Close()

	g := c.StartGame(models.DifficultyEasy)
	require.Equal(t, 25, g.Target)

	c.SubmitGuess("10")
	g = c.Snapshot()
	require.Len(t, g.History, 1)
	assert.Equal(t, 10, g.History[0].Value)
	assert.Equal(t, models.DirectionHigher, g.History[0].Direction)
	assert.Equal(t, models.PhasePlaying, g.Phase)

	c.SubmitGuess("25")
	g = c.Snapshot()
	require.Len(t, g.History, 2)
	assert.Equal(t, 25, g.History[1].Value)
	assert.Equal(t, models.DirectionCorrect, g.History[1].Direction)
	assert.Equal(t, models.PhaseWon, g.Phase)
	waitIdle(t, c)
}

func TestSnapshot_IsCopy(t *testing.T) {
	c := NewController(&fakeCommentator{}, fixedPicker(5))
	defer c.Close()
	c.StartGame(models.DifficultyEasy)
	c.SubmitGuess("3")
	waitIdle(t, c)

	g := c.Snapshot()
	g.History[0].Value = 999
	assert.Equal(t, 3, c.Snapshot().History[0].Value)
}
