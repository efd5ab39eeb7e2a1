package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"timesheet/internal/attendance"
	"timesheet/internal/directory"
	"timesheet/internal/model"
	"timesheet/internal/paging"
	"timesheet/internal/prefs"
)

type fakeDirectory struct {
	mu sync.Mutex

	pages   map[int][]model.Employee
	fail    map[int]int
	gates   map[int]chan struct{}
	fetches []int
	started chan int

	results     map[string][]model.Employee
	searchGates map[string]chan struct{}
	searchErr   error
	searches    []string
	searchBegan chan string

	attendance    directory.AttendanceResponse
	attendanceErr error
}

func newFakeDirectory(pageCount, pageSize int) *fakeDirectory {
	d := &fakeDirectory{
		pages:       make(map[int][]model.Employee),
		fail:        make(map[int]int),
		gates:       make(map[int]chan struct{}),
		started:     make(chan int, 64),
		results:     make(map[string][]model.Employee),
		searchGates: make(map[string]chan struct{}),
		searchBegan: make(chan string, 64),
	}
	for p := 1; p <= pageCount; p++ {
		for i := 0; i < pageSize; i++ {
			id := (p-1)*pageSize + i + 1
			d.pages[p] = append(d.pages[p], model.Employee{ID: id, FullName: fmt.Sprintf("Employee %d", id)})
		}
	}
	return d
}

func (d *fakeDirectory) FetchPage(_ context.Context, page int) (directory.EmployeesResponse, error) {
	d.mu.Lock()
	d.fetches = append(d.fetches, page)
	gate := d.gates[page]
	failing := d.fail[page] > 0
	if failing {
		d.fail[page]--
	}
	items := d.pages[page]
	d.mu.Unlock()

	d.started <- page
	if gate != nil {
		<-gate
	}
	if failing {
		return directory.EmployeesResponse{}, fmt.Errorf("%w: connection reset", directory.ErrTransport)
	}
	return directory.EmployeesResponse{Data: items, Next: page + 1}, nil
}

func (d *fakeDirectory) SearchByName(_ context.Context, name string, _ int) (directory.EmployeesResponse, error) {
	d.mu.Lock()
	d.searches = append(d.searches, name)
	gate := d.searchGates[name]
	err := d.searchErr
	items := d.results[name]
	d.mu.Unlock()

	d.searchBegan <- name
	if gate != nil {
		<-gate
	}
	if err != nil {
		return directory.EmployeesResponse{}, err
	}
	return directory.EmployeesResponse{Data: items}, nil
}

func (d *fakeDirectory) SubmitAttendance(_ context.Context, _ int) (directory.AttendanceResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attendance, d.attendanceErr
}

func (d *fakeDirectory) fetchCount() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.fetches...)
}

func (d *fakeDirectory) searchCalls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.searches...)
}

var fixedNow = time.Date(2024, 5, 1, 14, 30, 5, 0, time.Local)

type harness struct {
	dir    *fakeDirectory
	store  prefs.Store
	prefs  *prefs.Preferences
	writer *prefs.Writer
	ctrl   *Controller
}

func newHarness(t *testing.T, dir *fakeDirectory, store prefs.Store, cfg Config) *harness {
	t.Helper()
	if store == nil {
		store = prefs.NewMemory()
	}
	p := prefs.NewPreferences(store, nil)
	w := prefs.NewWriter(nil, 16)
	rec := attendance.NewRecorder(dir, p, w, nil)
	rec.Now = func() time.Time { return fixedNow }
	ctrl := New(context.Background(), Deps{
		Source:   paging.NewSource(dir, nil),
		Searcher: dir,
		Recorder: rec,
		Prefs:    p,
		Writer:   w,
	}, cfg)
	t.Cleanup(func() {
		ctrl.Close()
		w.Close()
	})
	return &harness{dir: dir, store: store, prefs: p, writer: w, ctrl: ctrl}
}

func testConfig(debounce time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Debounce = debounce
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLoadMoreAccumulatesPagesInOrder(t *testing.T) {
	h := newHarness(t, newFakeDirectory(3, 10), nil, testConfig(0))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := h.ctrl.LoadMore(ctx); err != nil {
			t.Fatalf("load more %d: %v", i, err)
		}
	}
	listing := h.ctrl.Listing()
	items := listing.Items()
	if len(items) != 30 {
		t.Fatalf("expected 30 items, got %d", len(items))
	}
	for i, e := range items {
		if e.ID != i+1 {
			t.Fatalf("item %d has id %d", i, e.ID)
		}
	}
	if !listing.Exhausted {
		t.Fatalf("expected listing to be exhausted after an empty page")
	}
	if got := h.dir.fetchCount(); fmt.Sprint(got) != "[1 2 3 4]" {
		t.Fatalf("expected fetches [1 2 3 4], got %v", got)
	}
}

func TestLoadMoreCoalescesPendingFetch(t *testing.T) {
	dir := newFakeDirectory(2, 10)
	gate := make(chan struct{})
	dir.gates[1] = gate
	h := newHarness(t, dir, nil, testConfig(0))
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() { errc <- h.ctrl.LoadMore(ctx) }()
	<-dir.started

	if !h.ctrl.Listing().Loading {
		t.Fatalf("expected listing to report loading")
	}
	if err := h.ctrl.LoadMore(ctx); err != nil {
		t.Fatalf("second load more: %v", err)
	}
	close(gate)
	if err := <-errc; err != nil {
		t.Fatalf("first load more: %v", err)
	}
	if got := h.dir.fetchCount(); fmt.Sprint(got) != "[1]" {
		t.Fatalf("expected exactly one fetch for page 1, got %v", got)
	}
	if n := len(h.ctrl.Listing().Items()); n != 10 {
		t.Fatalf("expected 10 items, got %d", n)
	}
}

func TestFailedPageIsRetryableAndKeepsEarlierPages(t *testing.T) {
	dir := newFakeDirectory(3, 10)
	dir.fail[2] = 1
	h := newHarness(t, dir, nil, testConfig(0))
	ctx := context.Background()

	if err := h.ctrl.LoadMore(ctx); err != nil {
		t.Fatalf("page 1: %v", err)
	}
	err := h.ctrl.LoadMore(ctx)
	if !errors.Is(err, directory.ErrTransport) {
		t.Fatalf("expected transport error for page 2, got %v", err)
	}
	listing := h.ctrl.Listing()
	if listing.Error == "" || listing.FailedKey != 2 {
		t.Fatalf("expected retryable error on page 2, got %+v", listing)
	}
	if len(listing.Items()) != 10 {
		t.Fatalf("expected page 1 to stay loaded, got %d items", len(listing.Items()))
	}

	if err := h.ctrl.RetryCurrentLoad(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	listing = h.ctrl.Listing()
	if listing.Error != "" || len(listing.Items()) != 20 {
		t.Fatalf("expected recovered listing with 20 items, got %+v", listing)
	}
}

func TestRefreshResumesFromAnchorAndLoadsBackwards(t *testing.T) {
	h := newHarness(t, newFakeDirectory(3, 10), nil, testConfig(0))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := h.ctrl.LoadMore(ctx); err != nil {
			t.Fatalf("load more: %v", err)
		}
	}
	if err := h.ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	listing := h.ctrl.Listing()
	if len(listing.Pages) != 1 || listing.Pages[0].Key != 2 || listing.Pages[0].PrevKey != 1 {
		t.Fatalf("expected refreshed listing anchored at page 2 with prev 1, got %+v", listing.Pages)
	}

	if err := h.ctrl.LoadPrevious(ctx); err != nil {
		t.Fatalf("load previous: %v", err)
	}
	items := h.ctrl.Listing().Items()
	if len(items) != 20 || items[0].ID != 1 || items[19].ID != 20 {
		t.Fatalf("expected pages 1 and 2 in order, got %d items", len(items))
	}
	if err := h.ctrl.LoadPrevious(ctx); err != nil {
		t.Fatalf("load previous at first page: %v", err)
	}
	if got := h.dir.fetchCount(); fmt.Sprint(got) != "[1 2 2 1]" {
		t.Fatalf("unexpected fetch sequence %v", got)
	}
}

func TestRefreshAfterExhaustionKeepsLoadedDirectory(t *testing.T) {
	h := newHarness(t, newFakeDirectory(2, 10), nil, testConfig(0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := h.ctrl.LoadMore(ctx); err != nil {
			t.Fatalf("load more: %v", err)
		}
	}
	if l := h.ctrl.Listing(); !l.Exhausted || len(l.Items()) != 20 {
		t.Fatalf("expected exhausted listing with 20 items, got %+v", l)
	}

	if err := h.ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	l := h.ctrl.Listing()
	if l.Exhausted || len(l.Pages) != 1 || l.Pages[0].Key != 2 || len(l.Items()) != 10 {
		t.Fatalf("expected page 2 reloaded, got %+v", l)
	}
	if err := h.ctrl.LoadPrevious(ctx); err != nil {
		t.Fatalf("load previous: %v", err)
	}
	if err := h.ctrl.LoadMore(ctx); err != nil {
		t.Fatalf("load more: %v", err)
	}
	if l := h.ctrl.Listing(); !l.Exhausted || len(l.Items()) != 20 {
		t.Fatalf("expected both pages again, got %+v", l)
	}

	// Page 1 was the last page that returned items.
	if err := h.ctrl.Refresh(ctx); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	l = h.ctrl.Listing()
	if l.Exhausted || len(l.Pages) != 1 || l.Pages[0].Key != 1 || len(l.Items()) != 10 {
		t.Fatalf("expected page 1 reloaded, got %+v", l)
	}
	if got := h.dir.fetchCount(); fmt.Sprint(got) != "[1 2 3 2 1 3 1]" {
		t.Fatalf("unexpected fetch sequence %v", got)
	}
}

func TestRefreshOnShrunkDirectoryWalksBack(t *testing.T) {
	dir := newFakeDirectory(3, 10)
	h := newHarness(t, dir, nil, testConfig(0))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := h.ctrl.LoadMore(ctx); err != nil {
			t.Fatalf("load more: %v", err)
		}
	}
	dir.mu.Lock()
	delete(dir.pages, 2)
	delete(dir.pages, 3)
	dir.mu.Unlock()

	if err := h.ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	l := h.ctrl.Listing()
	if !l.Exhausted || len(l.Items()) != 0 || len(l.Pages) != 1 || l.Pages[0].PrevKey != 1 {
		t.Fatalf("expected empty anchor page pointing back to 1, got %+v", l)
	}

	if err := h.ctrl.LoadPrevious(ctx); err != nil {
		t.Fatalf("load previous: %v", err)
	}
	l = h.ctrl.Listing()
	if len(l.Pages) != 1 || l.Pages[0].Key != 1 || len(l.Items()) != 10 {
		t.Fatalf("expected page 1 to replace the empty page, got %+v", l)
	}
}

func TestNotifyVisiblePrefetchesNearTheEnd(t *testing.T) {
	h := newHarness(t, newFakeDirectory(3, 10), nil, testConfig(0))
	ctx := context.Background()
	if err := h.ctrl.LoadMore(ctx); err != nil {
		t.Fatalf("load more: %v", err)
	}
	if err := h.ctrl.NotifyVisible(ctx, 5); err != nil {
		t.Fatalf("visible 5: %v", err)
	}
	if n := len(h.dir.fetchCount()); n != 1 {
		t.Fatalf("expected no prefetch with 4 items remaining, got %d fetches", n)
	}
	if err := h.ctrl.NotifyVisible(ctx, 6); err != nil {
		t.Fatalf("visible 6: %v", err)
	}
	if n := len(h.ctrl.Listing().Items()); n != 20 {
		t.Fatalf("expected prefetch of page 2, got %d items", n)
	}
}

func TestDebounceIssuesOnlyLastQuery(t *testing.T) {
	dir := newFakeDirectory(1, 10)
	dir.results["Anabel"] = []model.Employee{{ID: 7, FullName: "Anabel Cruz"}}
	h := newHarness(t, dir, nil, testConfig(300*time.Millisecond))

	h.ctrl.SetSearchQuery("Ana")
	if st := h.ctrl.Search(); st.Status != StatusPending || st.Query != "Ana" {
		t.Fatalf("expected pending search for Ana, got %+v", st)
	}
	time.Sleep(50 * time.Millisecond)
	h.ctrl.SetSearchQuery("Anabel")

	waitFor(t, "search ready", func() bool { return h.ctrl.Search().Status == StatusReady })
	st := h.ctrl.Search()
	if st.Query != "Anabel" || len(st.Results) != 1 || st.Results[0].ID != 7 {
		t.Fatalf("unexpected search state %+v", st)
	}
	if calls := dir.searchCalls(); fmt.Sprint(calls) != "[Anabel]" {
		t.Fatalf("expected a single remote search for Anabel, got %v", calls)
	}
	if h.ctrl.Mode() != ModeSearching {
		t.Fatalf("expected searching mode")
	}
}

func TestSupersededSearchResponseIsDropped(t *testing.T) {
	dir := newFakeDirectory(1, 10)
	slow := make(chan struct{})
	dir.searchGates["Ana"] = slow
	dir.results["Ana"] = []model.Employee{{ID: 1, FullName: "Ana"}}
	dir.results["Beto"] = []model.Employee{{ID: 2, FullName: "Beto"}}
	h := newHarness(t, dir, nil, testConfig(0))

	h.ctrl.SetSearchQuery("Ana")
	if got := <-dir.searchBegan; got != "Ana" {
		t.Fatalf("expected Ana search to start, got %s", got)
	}
	h.ctrl.SetSearchQuery("Beto")
	waitFor(t, "Beto results", func() bool { return h.ctrl.Search().Status == StatusReady })

	close(slow)
	time.Sleep(50 * time.Millisecond)
	st := h.ctrl.Search()
	if st.Query != "Beto" || len(st.Results) != 1 || st.Results[0].ID != 2 {
		t.Fatalf("stale Ana response leaked into state: %+v", st)
	}
}

func TestClearingQueryResumesPagingWithoutRefetch(t *testing.T) {
	h := newHarness(t, newFakeDirectory(3, 10), nil, testConfig(0))
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := h.ctrl.LoadMore(ctx); err != nil {
			t.Fatalf("load more: %v", err)
		}
	}

	h.ctrl.SetSearchQuery("zz")
	if err := h.ctrl.LoadMore(ctx); !errors.Is(err, ErrSearchActive) {
		t.Fatalf("expected ErrSearchActive while searching, got %v", err)
	}
	waitFor(t, "search settled", func() bool { return h.ctrl.Search().Status == StatusReady })

	h.ctrl.SetSearchQuery("")
	st := h.ctrl.Search()
	if st.Status != StatusIdle || st.Results != nil || h.ctrl.Mode() != ModePaging {
		t.Fatalf("expected idle paging state, got %+v", st)
	}
	if n := len(h.ctrl.Listing().Items()); n != 20 {
		t.Fatalf("expected 20 items preserved, got %d", n)
	}
	if got := h.dir.fetchCount(); fmt.Sprint(got) != "[1 2]" {
		t.Fatalf("expected no refetch, got %v", got)
	}
	if err := h.ctrl.LoadMore(ctx); err != nil {
		t.Fatalf("load more after search: %v", err)
	}
	if n := len(h.ctrl.Listing().Items()); n != 30 {
		t.Fatalf("expected paging to continue at page 3, got %d items", n)
	}
}

func TestSearchFailureKeepsQueryAndRetries(t *testing.T) {
	dir := newFakeDirectory(1, 10)
	dir.searchErr = errors.New("timeout")
	dir.results["Caro"] = []model.Employee{{ID: 3, FullName: "Caro"}}
	h := newHarness(t, dir, nil, testConfig(0))

	h.ctrl.SetSearchQuery("Caro")
	waitFor(t, "search failure", func() bool { return h.ctrl.Search().Status == StatusFailed })
	st := h.ctrl.Search()
	if st.Query != "Caro" || st.Results != nil {
		t.Fatalf("expected failed search to keep its query, got %+v", st)
	}

	dir.mu.Lock()
	dir.searchErr = nil
	dir.mu.Unlock()
	if err := h.ctrl.RetryCurrentLoad(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	st = h.ctrl.Search()
	if st.Status != StatusReady || len(st.Results) != 1 {
		t.Fatalf("expected ready results after retry, got %+v", st)
	}
}

func TestSelectionSurvivesRestartAsIdentity(t *testing.T) {
	store := prefs.NewMemory()
	h := newHarness(t, newFakeDirectory(1, 10), store, testConfig(0))

	dept := "Almacén"
	h.ctrl.SelectEmployee(&model.Employee{ID: 42, FullName: "Ana Lopez", Department: &dept})
	if h.ctrl.Mode() != ModePaging {
		t.Fatalf("selecting must not change the listing mode")
	}
	if err := h.ctrl.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	restarted := newHarness(t, newFakeDirectory(1, 10), store, testConfig(0))
	got := restarted.ctrl.Selected()
	if got == nil || *got != (model.Employee{ID: 42, FullName: "Ana Lopez"}) {
		t.Fatalf("expected rehydrated identity, got %+v", got)
	}
}

func TestRehydrationFollowsExternalEdits(t *testing.T) {
	store := prefs.NewMemory()
	h := newHarness(t, newFakeDirectory(1, 10), store, testConfig(0))
	other := prefs.NewPreferences(store, nil)
	if err := other.SaveSelectedEmployee(context.Background(), &model.Employee{ID: 5, FullName: "Eva"}); err != nil {
		t.Fatalf("external save: %v", err)
	}
	waitFor(t, "external selection", func() bool {
		sel := h.ctrl.Selected()
		return sel != nil && sel.ID == 5
	})
}

// gatedStore holds every write until gate is closed.
type gatedStore struct {
	*prefs.Memory
	gate chan struct{}
}

func (g *gatedStore) Edit(ctx context.Context, changes map[string]*string) error {
	<-g.gate
	return g.Memory.Edit(ctx, changes)
}

func TestExternalEditDoesNotOverrideQueuedSelection(t *testing.T) {
	ctx := context.Background()
	mem := prefs.NewMemory()
	store := &gatedStore{Memory: mem, gate: make(chan struct{})}
	h := newHarness(t, newFakeDirectory(1, 10), store, testConfig(0))
	var once sync.Once
	release := func() { once.Do(func() { close(store.gate) }) }
	t.Cleanup(release)

	h.ctrl.SelectEmployee(&model.Employee{ID: 7, FullName: "Bruno"})
	if err := prefs.NewPreferences(mem, nil).SaveSelectedEmployee(ctx, &model.Employee{ID: 3, FullName: "Carla"}); err != nil {
		t.Fatalf("external save: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if sel := h.ctrl.Selected(); sel == nil || sel.ID != 7 {
		t.Fatalf("expected local selection while its write is queued, got %+v", sel)
	}

	release()
	if err := h.ctrl.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	waitFor(t, "stored selection", func() bool {
		stored, err := h.prefs.SelectedEmployee(ctx)
		return err == nil && stored != nil && stored.ID == 7
	})
	time.Sleep(50 * time.Millisecond)
	if sel := h.ctrl.Selected(); sel == nil || sel.ID != 7 {
		t.Fatalf("expected selection 7 after the write landed, got %+v", sel)
	}
}

func TestCheckInAlwaysRecordsLastCheckIn(t *testing.T) {
	cases := []struct {
		name     string
		resp     directory.AttendanceResponse
		err      error
		want     model.Outcome
		matchMsg bool
	}{
		{
			name:     "success",
			resp:     directory.AttendanceResponse{Success: true, Message: "asistencia registrada"},
			want:     model.Outcome{Success: true, Message: "asistencia registrada"},
			matchMsg: true,
		},
		{
			name:     "well-formed rejection",
			resp:     directory.AttendanceResponse{Success: false, Message: "asistencia ya registrada"},
			want:     model.Outcome{Success: false, Message: "asistencia ya registrada"},
			matchMsg: true,
		},
		{
			name: "structured error body",
			err: &directory.StatusError{
				StatusCode: http.StatusConflict,
				Status:     "409 Conflict",
				Body:       []byte(`{"success":true,"message":"asistencia ya registrada"}`),
			},
			want:     model.Outcome{Success: false, Message: "asistencia ya registrada"},
			matchMsg: true,
		},
		{
			name: "raw transport error",
			err:  fmt.Errorf("%w: dial tcp: connection refused", directory.ErrTransport),
			want: model.Outcome{Success: false},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := newFakeDirectory(1, 10)
			dir.attendance = tc.resp
			dir.attendanceErr = tc.err
			h := newHarness(t, dir, nil, testConfig(0))
			ctx := context.Background()

			sel := model.Employee{ID: 9, FullName: "Iván"}
			h.ctrl.SelectEmployee(&sel)
			got := h.ctrl.CheckIn(ctx, 9)
			if got.Success != tc.want.Success {
				t.Fatalf("expected success=%v, got %+v", tc.want.Success, got)
			}
			if tc.matchMsg && got.Message != tc.want.Message {
				t.Fatalf("expected message %q, got %q", tc.want.Message, got.Message)
			}
			if !tc.matchMsg && got.Message == "" {
				t.Fatalf("expected a descriptive failure message")
			}
			if res := h.ctrl.AttendanceResult(); res == nil || *res != got {
				t.Fatalf("expected attendance result to hold the outcome, got %+v", res)
			}

			last := h.ctrl.LastCheckIn()
			if last == nil || last.Employee == nil || last.Employee.ID != 9 {
				t.Fatalf("expected last check-in for employee 9, got %+v", last)
			}
			if last.Timestamp != "02:30:05 PM" {
				t.Fatalf("unexpected timestamp %q", last.Timestamp)
			}

			if err := h.ctrl.Flush(ctx); err != nil {
				t.Fatalf("flush: %v", err)
			}
			stored, err := h.prefs.LastCheckIn(ctx)
			if err != nil {
				t.Fatalf("read stored check-in: %v", err)
			}
			if stored == nil || stored.Employee == nil || stored.Employee.ID != 9 || stored.Timestamp != "02:30:05 PM" {
				t.Fatalf("expected persisted check-in, got %+v", stored)
			}

			h.ctrl.ClearAttendanceResult()
			if h.ctrl.AttendanceResult() != nil {
				t.Fatalf("expected cleared attendance result")
			}
		})
	}
}

func TestWatchListingStreamsSnapshots(t *testing.T) {
	h := newHarness(t, newFakeDirectory(1, 10), nil, testConfig(0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := h.ctrl.WatchListing(ctx)
	if first := <-ch; len(first.Pages) != 0 {
		t.Fatalf("expected empty initial listing")
	}
	if err := h.ctrl.LoadMore(ctx); err != nil {
		t.Fatalf("load more: %v", err)
	}
	select {
	case l := <-ch:
		if len(l.Items()) != 10 {
			t.Fatalf("expected latest snapshot with 10 items, got %d", len(l.Items()))
		}
	case <-time.After(time.Second):
		t.Fatalf("no listing emission")
	}
}
