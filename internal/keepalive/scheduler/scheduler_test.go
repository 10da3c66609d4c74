package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	mu sync.Mutex
	// results are returned by successive Ping calls; missing entries default to true.
	results     []bool
	pings       int
	cleanupAt   []int
	cleanupDays []int
	panicOn     int
}

func (m *mockPinger) Ping(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings++
	if m.panicOn > 0 && m.pings == m.panicOn {
		panic("driver exploded")
	}
	if m.pings-1 < len(m.results) {
		return m.results[m.pings-1]
	}
	return true
}

func (m *mockPinger) Cleanup(ctx context.Context, daysToKeep int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupAt = append(m.cleanupAt, m.pings)
	m.cleanupDays = append(m.cleanupDays, daysToKeep)
}

// fakeSleeper returns immediately, cancelling the run on sleep number stopAt.
type fakeSleeper struct {
	calls     int
	durations []time.Duration
	stopAt    int
	cancel    context.CancelFunc
	err       error
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.calls++
	f.durations = append(f.durations, d)
	if f.err != nil {
		return f.err
	}
	if f.calls >= f.stopAt {
		f.cancel()
		return ctx.Err()
	}
	return nil
}

// recordingObserver implements Observer for tests.
type recordingObserver struct {
	states  []State
	results []bool
}

func (r *recordingObserver) StateChanged(state State) { r.states = append(r.states, state) }
func (r *recordingObserver) PingResult(ok bool)       { r.results = append(r.results, ok) }

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

// runUntil runs a scheduler whose sleeper cancels on sleep number stopAt.
func runUntil(t *testing.T, p *mockPinger, cfg Config, stopAt int, opts ...Option) (*Scheduler, *fakeSleeper, error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper := &fakeSleeper{stopAt: stopAt, cancel: cancel}
	s := New(p, cfg, append([]Option{WithSleeper(sleeper.Sleep)}, opts...)...)
	err := s.Run(ctx)
	return s, sleeper, err
}

func TestRun_InitialPingFails(t *testing.T) {
	logs := captureLog(t)
	p := &mockPinger{results: []bool{false}}

	s, sleeper, err := runUntil(t, p, Config{}, 1)
	if !errors.Is(err, ErrInitialPingFailed) {
		t.Fatalf("Run error = %v, want ErrInitialPingFailed", err)
	}
	if sleeper.calls != 0 {
		t.Errorf("sleeper called %d times, want 0", sleeper.calls)
	}
	if p.pings != 1 {
		t.Errorf("pings = %d, want 1", p.pings)
	}
	if s.State() != StateStopped {
		t.Errorf("state = %v, want stopped", s.State())
	}
	if !strings.Contains(logs.String(), "initial ping failed") {
		t.Errorf("log = %q, want initial failure line", logs.String())
	}
}

func TestRun_CleanupOnTwentyFourthPing(t *testing.T) {
	captureLog(t)
	p := &mockPinger{}

	// Initial ping + 23 loop pings = 24; the 24th sleep cancels.
	s, _, err := runUntil(t, p, Config{}, 24)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.pings != 24 {
		t.Fatalf("pings = %d, want 24", p.pings)
	}
	if len(p.cleanupAt) != 1 {
		t.Fatalf("cleanups = %d, want 1", len(p.cleanupAt))
	}
	if p.cleanupAt[0] != 24 {
		t.Errorf("cleanup ran after ping %d, want 24", p.cleanupAt[0])
	}
	if p.cleanupDays[0] != DefaultRetentionDays {
		t.Errorf("cleanup days = %d, want %d", p.cleanupDays[0], DefaultRetentionDays)
	}
	if s.Count() != 24 {
		t.Errorf("Count = %d, want 24", s.Count())
	}
}

func TestRun_NoCleanupBeforeTwentyFourthPing(t *testing.T) {
	captureLog(t)
	p := &mockPinger{}

	if _, _, err := runUntil(t, p, Config{}, 23); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.pings != 23 {
		t.Fatalf("pings = %d, want 23", p.pings)
	}
	if len(p.cleanupAt) != 0 {
		t.Errorf("cleanups = %d, want 0", len(p.cleanupAt))
	}
}

func TestRun_CustomCadenceAndRetention(t *testing.T) {
	captureLog(t)
	p := &mockPinger{}

	_, sleeper, err := runUntil(t, p, Config{Interval: 10 * time.Minute, CleanupEvery: 3, RetentionDays: 2}, 9)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// pings 1..9 → sweeps after 3, 6, 9
	want := []int{3, 6, 9}
	if len(p.cleanupAt) != len(want) {
		t.Fatalf("cleanupAt = %v, want %v", p.cleanupAt, want)
	}
	for i := range want {
		if p.cleanupAt[i] != want[i] {
			t.Errorf("cleanupAt = %v, want %v", p.cleanupAt, want)
		}
		if p.cleanupDays[i] != 2 {
			t.Errorf("cleanup days = %d, want 2", p.cleanupDays[i])
		}
	}
	for _, d := range sleeper.durations {
		if d != 10*time.Minute {
			t.Errorf("slept %v, want 10m", d)
		}
	}
}

func TestRun_SteadyStateFailuresAreAbsorbed(t *testing.T) {
	captureLog(t)
	p := &mockPinger{results: []bool{true, false, false, true, false}}
	obs := &recordingObserver{}

	_, _, err := runUntil(t, p, Config{}, 6, WithObserver(obs))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.pings != 6 {
		t.Errorf("pings = %d, want 6", p.pings)
	}
	wantResults := []bool{true, false, false, true, false, true}
	if len(obs.results) != len(wantResults) {
		t.Fatalf("results = %v, want %v", obs.results, wantResults)
	}
	for i := range wantResults {
		if obs.results[i] != wantResults[i] {
			t.Errorf("results = %v, want %v", obs.results, wantResults)
			break
		}
	}
}

func TestRun_InterruptDuringSleepIsGraceful(t *testing.T) {
	logs := captureLog(t)
	p := &mockPinger{}
	obs := &recordingObserver{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var s *Scheduler
	s = New(p, Config{Interval: time.Hour}, WithObserver(obs), WithSleeper(func(ctx context.Context, d time.Duration) error {
		if s.State() != StateSleeping {
			t.Errorf("state while sleeping = %v", s.State())
		}
		cancel()
		return SleepContext(ctx, d)
	}))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v, want nil on interrupt", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	if p.pings != 1 {
		t.Errorf("pings = %d, want 1", p.pings)
	}
	if s.State() != StateStopped {
		t.Errorf("state = %v, want stopped", s.State())
	}
	if strings.Contains(logs.String(), "unexpected") {
		t.Errorf("graceful stop should not log an unexpected error: %q", logs.String())
	}
	wantStates := []State{StatePinging, StateSleeping, StateStopped}
	if len(obs.states) != len(wantStates) {
		t.Fatalf("states = %v, want %v", obs.states, wantStates)
	}
	for i := range wantStates {
		if obs.states[i] != wantStates[i] {
			t.Errorf("states = %v, want %v", obs.states, wantStates)
			break
		}
	}
}

func TestRun_PanicIsUnexpected(t *testing.T) {
	captureLog(t)
	p := &mockPinger{panicOn: 3}

	s, _, err := runUntil(t, p, Config{}, 100)
	if !errors.Is(err, ErrUnexpected) {
		t.Fatalf("Run error = %v, want ErrUnexpected", err)
	}
	if !strings.Contains(err.Error(), "driver exploded") {
		t.Errorf("error = %q, should carry the panic value", err.Error())
	}
	if s.State() != StateStopped {
		t.Errorf("state = %v, want stopped", s.State())
	}
}

func TestRun_SleeperErrorIsUnexpected(t *testing.T) {
	captureLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper := &fakeSleeper{stopAt: 100, cancel: cancel, err: errors.New("clock broke")}

	err := New(&mockPinger{}, Config{}, WithSleeper(sleeper.Sleep)).Run(ctx)
	if !errors.Is(err, ErrUnexpected) {
		t.Fatalf("Run error = %v, want ErrUnexpected", err)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	captureLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A pinger that fails because the context is gone: treated as an interrupt, not a fatal failure.
	p := &mockPinger{results: []bool{false}}

	if err := New(p, Config{}).Run(ctx); err != nil {
		t.Errorf("Run: %v, want nil", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(&mockPinger{}, Config{})
	if s.cfg.Interval != DefaultInterval {
		t.Errorf("Interval = %v, want %v", s.cfg.Interval, DefaultInterval)
	}
	if s.cfg.CleanupEvery != DefaultCleanupEvery {
		t.Errorf("CleanupEvery = %d, want %d", s.cfg.CleanupEvery, DefaultCleanupEvery)
	}
	if s.cfg.RetentionDays != DefaultRetentionDays {
		t.Errorf("RetentionDays = %d, want %d", s.cfg.RetentionDays, DefaultRetentionDays)
	}
	if s.State() != StateStarting {
		t.Errorf("State = %v, want starting", s.State())
	}
}

func TestState_String(t *testing.T) {
	testCases := map[State]string{
		StateStarting: "starting",
		StatePinging:  "pinging",
		StateSleeping: "sleeping",
		StateCleaning: "cleaning",
		StateStopped:  "stopped",
		State(42):     "state(42)",
	}
	for state, want := range testCases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}

func TestSleepContext(t *testing.T) {
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("SleepContext: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("SleepContext on cancelled ctx = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("SleepContext should return promptly when cancelled")
	}
}
