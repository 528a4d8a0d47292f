package paginator

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockCleaner counts remote cleanup calls for policy assertions.
type mockCleaner struct {
	mu             sync.Mutex
	removeAllCalls int
	deleteCalls    int
	removeAllErr   error
	deleteErr      error
}

func (m *mockCleaner) RemoveAllControlMarks(ctx context.Context, target RenderTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeAllCalls++
	return m.removeAllErr
}

func (m *mockCleaner) DeleteArtifact(ctx context.Context, target RenderTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	return m.deleteErr
}

func (m *mockCleaner) calls() (removeAll, deletes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeAllCalls, m.deleteCalls
}

func testOptions(pages ...Page) Options {
	return Options{
		Pages:   pages,
		Owner:   "user-1",
		Timeout: time.Minute,
		Target:  RenderTarget{ChannelID: "chan-1", MessageID: "msg-1"},
	}
}

func mustCreateSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s, err := CreateSession(opts)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Dispose(context.Background(), &mockCleaner{}) })
	return s
}

func TestCreateSessionValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Options)
	}{
		{"empty pages", func(o *Options) { o.Pages = nil }},
		{"missing owner", func(o *Options) { o.Owner = "" }},
		{"missing target", func(o *Options) { o.Target = RenderTarget{} }},
		{"unknown behavior", func(o *Options) { o.Behavior = "bounce" }},
		{"unknown deletion policy", func(o *Options) { o.DeletionPolicy = "shred" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(Page{Content: "a"})
			tt.mutate(&opts)
			if _, err := CreateSession(opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := mustCreateSession(t, testOptions(
		Page{Content: "A"}, Page{Content: "B"}, Page{Content: "C"},
	))

	page, active, err := s.RegisterControl(EmojiLast)
	if err != nil {
		t.Fatalf("RegisterControl(last) failed: %v", err)
	}
	if !active {
		t.Error("session should remain active after a navigation control")
	}
	if page.Content != "C" {
		t.Errorf("after jump to last: page = %q, want %q", page.Content, "C")
	}

	page, _, err = s.RegisterControl(EmojiPrevious)
	if err != nil {
		t.Fatalf("RegisterControl(previous) failed: %v", err)
	}
	if page.Content != "B" {
		t.Errorf("after retreat: page = %q, want %q", page.Content, "B")
	}
}

func TestSessionWrapAroundSequence(t *testing.T) {
	opts := testOptions(Page{Content: "0"}, Page{Content: "1"}, Page{Content: "2"})
	opts.Behavior = WrapAround
	s := mustCreateSession(t, opts)

	var page Page
	for i := 0; i < 3; i++ {
		var err error
		page, _, err = s.RegisterControl(EmojiNext)
		if err != nil {
			t.Fatalf("RegisterControl(next) #%d failed: %v", i+1, err)
		}
	}
	if page.Content != "0" {
		t.Errorf("after three next controls on three pages: page = %q, want %q (wrapped once)", page.Content, "0")
	}
}

func TestSessionClampAtBoundaries(t *testing.T) {
	s := mustCreateSession(t, testOptions(Page{Content: "A"}, Page{Content: "B"}))

	if page, _, _ := s.RegisterControl(EmojiPrevious); page.Content != "A" {
		t.Errorf("retreat at first page moved: page = %q, want %q", page.Content, "A")
	}

	s.RegisterControl(EmojiLast)
	if page, _, _ := s.RegisterControl(EmojiNext); page.Content != "B" {
		t.Errorf("advance at last page moved: page = %q, want %q", page.Content, "B")
	}
}

func TestSessionStopControl(t *testing.T) {
	s := mustCreateSession(t, testOptions(Page{Content: "A"}, Page{Content: "B"}))

	_, active, err := s.RegisterControl(EmojiStop)
	if err != nil {
		t.Fatalf("RegisterControl(stop) failed: %v", err)
	}
	if active {
		t.Error("stop control should report session no longer active")
	}
	if s.State() != StateCompleted {
		t.Errorf("State = %v, want %v", s.State(), StateCompleted)
	}
	if s.Reason() != ReasonStopped {
		t.Errorf("Reason = %v, want %v", s.Reason(), ReasonStopped)
	}
}

func TestRegisterControlAfterCompletion(t *testing.T) {
	s := mustCreateSession(t, testOptions(Page{Content: "A"}, Page{Content: "B"}))

	s.RegisterControl(EmojiNext)
	before := s.CurrentPage()
	s.Stop()

	_, active, err := s.RegisterControl(EmojiNext)
	if err == nil {
		t.Fatal("expected SESSION_INACTIVE error")
	}
	if GetErrorCode(err) != ErrCodeSessionInactive {
		t.Errorf("error code = %v, want %v", GetErrorCode(err), ErrCodeSessionInactive)
	}
	if active {
		t.Error("completed session reported active")
	}
	if got := s.CurrentPage(); got.Content != before.Content {
		t.Errorf("completed session mutated index: page = %q, want %q", got.Content, before.Content)
	}
}

func TestUnsupportedControlToken(t *testing.T) {
	s := mustCreateSession(t, testOptions(Page{Content: "A"}, Page{Content: "B"}))

	_, active, err := s.RegisterControl(ButtonNext)
	if GetErrorCode(err) != ErrCodeCapability {
		t.Errorf("error code = %v, want %v", GetErrorCode(err), ErrCodeCapability)
	}
	if !active {
		t.Error("capability mismatch must not end the session")
	}
	if got := s.CurrentPage(); got.Content != "A" {
		t.Errorf("capability mismatch mutated index: page = %q, want %q", got.Content, "A")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := mustCreateSession(t, testOptions(Page{Content: "A"}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()

	if s.State() != StateCompleted {
		t.Errorf("State = %v, want %v", s.State(), StateCompleted)
	}

	// Redundant completion must not double-run cleanup.
	cleaner := &mockCleaner{}
	if err := s.Dispose(context.Background(), cleaner); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if err := s.Dispose(context.Background(), cleaner); err != nil {
		t.Fatalf("redundant Dispose failed: %v", err)
	}
	if removeAll, _ := cleaner.calls(); removeAll != 1 {
		t.Errorf("cleanup ran %d times, want exactly 1", removeAll)
	}
}

func TestStopRacingTimeout(t *testing.T) {
	opts := testOptions(Page{Content: "A"})
	opts.Timeout = 10 * time.Millisecond
	s := mustCreateSession(t, opts)

	// Race the explicit stop against the expiring timer.
	time.Sleep(10 * time.Millisecond)
	s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.WaitUntilComplete(ctx); err != nil {
		t.Fatalf("WaitUntilComplete failed: %v", err)
	}

	cleaner := &mockCleaner{}
	if err := s.Dispose(context.Background(), cleaner); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	removeAll, deletes := cleaner.calls()
	if removeAll+deletes != 1 {
		t.Errorf("cleanup executed %d times, want exactly 1", removeAll+deletes)
	}
}

func TestTimeoutCompletesSession(t *testing.T) {
	opts := testOptions(Page{Content: "A"})
	opts.Timeout = 50 * time.Millisecond
	s := mustCreateSession(t, opts)

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.WaitUntilComplete(ctx); err != nil {
		t.Fatalf("WaitUntilComplete failed: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond {
		t.Errorf("completed after %v, before the %v timeout", elapsed, opts.Timeout)
	}
	if elapsed > 2*time.Second {
		t.Errorf("completed after %v, far beyond the %v timeout", elapsed, opts.Timeout)
	}
	if s.Reason() != ReasonTimeout {
		t.Errorf("Reason = %v, want %v", s.Reason(), ReasonTimeout)
	}
}

func TestWaitUntilCompleteHonorsContext(t *testing.T) {
	s := mustCreateSession(t, testOptions(Page{Content: "A"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.WaitUntilComplete(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled wait")
	}
	if GetErrorCode(err) != ErrCodeTimeout {
		t.Errorf("error code = %v, want %v", GetErrorCode(err), ErrCodeTimeout)
	}
	// Abandoning the wait does not end the session.
	if s.State() != StateActive {
		t.Errorf("State = %v, want %v", s.State(), StateActive)
	}
}

func TestDisposePolicyBranches(t *testing.T) {
	tests := []struct {
		name          string
		policy        DeletionPolicy
		wantRemoveAll int
		wantDeletes   int
	}{
		{"delete control marks", DeleteControlMarks, 1, 0},
		{"delete rendered artifact", DeleteRenderedArtifact, 0, 1},
		{"keep control marks", KeepControlMarks, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(Page{Content: "A"})
			opts.DeletionPolicy = tt.policy
			s := mustCreateSession(t, opts)
			s.Stop()

			cleaner := &mockCleaner{}
			if err := s.Dispose(context.Background(), cleaner); err != nil {
				t.Fatalf("Dispose failed: %v", err)
			}
			removeAll, deletes := cleaner.calls()
			if removeAll != tt.wantRemoveAll || deletes != tt.wantDeletes {
				t.Errorf("cleanup calls = (%d removeAll, %d delete), want (%d, %d)",
					removeAll, deletes, tt.wantRemoveAll, tt.wantDeletes)
			}
			if s.State() != StateDisposed {
				t.Errorf("State = %v, want %v", s.State(), StateDisposed)
			}
		})
	}
}

func TestDisposeReachesDisposedOnCleanupFailure(t *testing.T) {
	opts := testOptions(Page{Content: "A"})
	opts.DeletionPolicy = DeleteRenderedArtifact
	s := mustCreateSession(t, opts)
	s.Stop()

	cleaner := &mockCleaner{deleteErr: ErrTransport("remote call failed", nil)}
	err := s.Dispose(context.Background(), cleaner)
	if err == nil {
		t.Fatal("expected cleanup error to surface")
	}
	if GetErrorCode(err) != ErrCodeTransport {
		t.Errorf("error code = %v, want %v", GetErrorCode(err), ErrCodeTransport)
	}
	if s.State() != StateDisposed {
		t.Errorf("State = %v, want %v: cleanup failure must not block disposal", s.State(), StateDisposed)
	}
}

func TestDisposeStopsActiveSession(t *testing.T) {
	s := mustCreateSession(t, testOptions(Page{Content: "A"}))

	if err := s.Dispose(context.Background(), &mockCleaner{}); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if s.State() != StateDisposed {
		t.Errorf("State = %v, want %v", s.State(), StateDisposed)
	}

	// The done channel must be closed so waiters return.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.WaitUntilComplete(ctx); err != nil {
		t.Errorf("WaitUntilComplete after Dispose failed: %v", err)
	}
}

// Concurrent controls must preserve the index invariant: n advances on a
// wrap session with k pages land on n mod k regardless of interleaving.
func TestConcurrentControlsPreserveInvariant(t *testing.T) {
	const pages = 7
	const goroutines = 10
	const perGoroutine = 10

	content := make([]Page, pages)
	for i := range content {
		content[i] = Page{Content: string(rune('0' + i))}
	}
	opts := testOptions(content...)
	opts.Behavior = WrapAround
	s := mustCreateSession(t, opts)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				if _, _, err := s.RegisterControl(EmojiNext); err != nil {
					t.Errorf("RegisterControl failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	want := content[(goroutines*perGoroutine)%pages].Content
	if got := s.CurrentPage().Content; got != want {
		t.Errorf("after %d concurrent advances: page = %q, want %q", goroutines*perGoroutine, got, want)
	}
}

func TestCompletionBarsNavigationUnderRace(t *testing.T) {
	opts := testOptions(Page{Content: "A"}, Page{Content: "B"}, Page{Content: "C"})
	opts.Behavior = WrapAround
	s := mustCreateSession(t, opts)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if _, _, err := s.RegisterControl(EmojiNext); err != nil {
				// Session ended mid-loop; every later call must agree.
				if GetErrorCode(err) != ErrCodeSessionInactive {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		s.Stop()
	}()
	wg.Wait()

	pageAtStop := s.CurrentPage()
	if _, _, err := s.RegisterControl(EmojiNext); GetErrorCode(err) != ErrCodeSessionInactive {
		t.Fatalf("error code = %v, want %v", GetErrorCode(err), ErrCodeSessionInactive)
	}
	if got := s.CurrentPage(); got.Content != pageAtStop.Content {
		t.Error("navigation mutated the index after completion")
	}
}

func TestSessionDefaults(t *testing.T) {
	opts := Options{
		Pages:  []Page{{Content: "A"}},
		Owner:  "user-1",
		Target: RenderTarget{ChannelID: "c", MessageID: "m"},
	}
	s := mustCreateSession(t, opts)

	if s.DeletionPolicy() != DeleteControlMarks {
		t.Errorf("default deletion policy = %v, want %v", s.DeletionPolicy(), DeleteControlMarks)
	}
	if s.Bindings().Kind() != BindingReactions {
		t.Errorf("default bindings kind = %v, want %v", s.Bindings().Kind(), BindingReactions)
	}
	if s.CurrentPageCount() != 1 {
		t.Errorf("CurrentPageCount = %d, want 1", s.CurrentPageCount())
	}
	if s.CurrentPage().Content != "A" {
		t.Errorf("start page = %q, want %q (sessions start at page 0)", s.CurrentPage().Content, "A")
	}
}
