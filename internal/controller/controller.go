package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"timesheet/internal/directory"
	"timesheet/internal/model"
	"timesheet/internal/observable"
	"timesheet/internal/prefs"
)

// ErrSearchActive is returned by listing commands while a search query is set.
var ErrSearchActive = errors.New("controller: listing is frozen while searching")

// PageSource produces cursor-keyed pages of the directory.
type PageSource interface {
	Load(ctx context.Context, key int) (model.Page, error)
	RefreshKey() int
}

// Searcher runs remote name searches.
type Searcher interface {
	SearchByName(ctx context.Context, name string, locationID int) (directory.EmployeesResponse, error)
}

// Recorder submits check-ins and records the attempt.
type Recorder interface {
	CheckIn(ctx context.Context, employeeID int, selection func() *model.Employee) (model.Outcome, model.LastCheckIn)
}

// Config tunes the controller.
type Config struct {
	LocationID       int
	Debounce         time.Duration
	PrefetchDistance int
}

// DefaultConfig mirrors the reference client: location 1, 300ms debounce,
// prefetch when 3 items remain.
func DefaultConfig() Config {
	return Config{LocationID: 1, Debounce: 300 * time.Millisecond, PrefetchDistance: 3}
}

// Deps are the collaborators a Controller is built from.
type Deps struct {
	Source   PageSource
	Searcher Searcher
	Recorder Recorder
	Prefs    *prefs.Preferences
	Writer   *prefs.Writer
	Log      logrus.FieldLogger
}

// Controller owns the directory browsing state for one operator: the paged
// listing, the search overlay, the selected employee and the last check-in.
// Every mutation happens under mu; remote calls are made without holding it.
type Controller struct {
	source   PageSource
	searcher Searcher
	recorder Recorder
	prefs    *prefs.Preferences
	writer   *prefs.Writer
	cfg      Config
	log      logrus.FieldLogger

	mu sync.Mutex

	pages      []model.Page
	inflight   map[loadRef]bool
	listingGen int
	exhausted  bool
	failure    *failedLoad

	searchGen    uint64
	timer        *time.Timer
	cancelSearch context.CancelFunc

	listing     *observable.Value[Listing]
	search      *observable.Value[SearchState]
	selected    *observable.Value[*model.Employee]
	lastCheckIn *observable.Value[*model.LastCheckIn]
	result      *observable.Value[*model.Outcome]

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// New builds a controller and rehydrates the selection and last check-in
// from the preference store before returning. Later store edits keep
// overwriting the in-memory values until Close.
func New(ctx context.Context, deps Deps, cfg Config) *Controller {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	runCtx, stop := context.WithCancel(context.Background())
	c := &Controller{
		source:      deps.Source,
		searcher:    deps.Searcher,
		recorder:    deps.Recorder,
		prefs:       deps.Prefs,
		writer:      deps.Writer,
		cfg:         cfg,
		log:         deps.Log,
		inflight:    make(map[loadRef]bool),
		listing:     observable.New(Listing{}),
		search:      observable.New(SearchState{Status: StatusIdle}),
		selected:    observable.New[*model.Employee](nil),
		lastCheckIn: observable.New[*model.LastCheckIn](nil),
		result:      observable.New[*model.Outcome](nil),
		ctx:         runCtx,
		stop:        stop,
	}
	c.rehydrate(ctx)
	return c
}

func (c *Controller) rehydrate(ctx context.Context) {
	if c.prefs == nil {
		return
	}
	if sel, err := c.prefs.WatchSelectedEmployee(c.ctx); err != nil {
		c.log.WithError(err).Error("restoring selected employee")
	} else {
		follow(ctx, c, sel, c.selected, c.prefs.SelectedEmployee)
	}
	if last, err := c.prefs.WatchLastCheckIn(c.ctx); err != nil {
		c.log.WithError(err).Error("restoring last checked employee")
	} else {
		follow(ctx, c, last, c.lastCheckIn, c.prefs.LastCheckIn)
	}
}

// follow applies the first emission synchronously. Later emissions only
// signal that the store changed: the value is re-read once this
// controller's own queued writes have landed, so an older stored value
// never replaces a newer local one.
func follow[T any](ctx context.Context, c *Controller, ch <-chan T, dst *observable.Value[T], read func(context.Context) (T, error)) {
	select {
	case v, ok := <-ch:
		if ok {
			dst.Set(v)
		}
	case <-ctx.Done():
		c.log.WithError(ctx.Err()).Warn("rehydration interrupted")
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for v := range ch {
			if c.writer == nil {
				c.mu.Lock()
				dst.Set(v)
				c.mu.Unlock()
				continue
			}
			settle(c, dst, read)
		}
	}()
}

func settle[T any](c *Controller, dst *observable.Value[T], read func(context.Context) (T, error)) {
	for c.ctx.Err() == nil {
		seq, idle := c.writer.Pending()
		if !idle {
			if err := c.writer.Flush(c.ctx); err != nil {
				return
			}
			continue
		}
		v, err := read(c.ctx)
		if err != nil {
			c.log.WithError(err).Warn("reading preferences after external edit")
			return
		}
		c.mu.Lock()
		if c.writer.Submitted() != seq {
			// A local write was queued after the read.
			c.mu.Unlock()
			continue
		}
		dst.Set(v)
		c.mu.Unlock()
		return
	}
}

// Close cancels pending searches and stops following the preference store.
// Queued persistence writes are left to the writer's owner.
func (c *Controller) Close() {
	c.mu.Lock()
	c.searchGen++
	c.cancelPendingSearchLocked()
	c.mu.Unlock()
	c.stop()
	c.wg.Wait()
}

// Flush waits for persistence writes queued so far.
func (c *Controller) Flush(ctx context.Context) error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Flush(ctx)
}

// SelectEmployee makes e the active employee, or clears it when e is nil,
// and persists the choice in the background. The listing mode is untouched.
func (c *Controller) SelectEmployee(e *model.Employee) {
	var sel *model.Employee
	if e != nil {
		cp := *e
		sel = &cp
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected.Set(sel)
	if c.writer != nil && c.prefs != nil {
		c.writer.Submit("selected_employee", func(ctx context.Context) error {
			return c.prefs.SaveSelectedEmployee(ctx, sel)
		})
	}
}

// CheckIn submits attendance for employeeID. The outcome is returned and
// kept as the attendance result; the last check-in is updated whatever the
// outcome.
func (c *Controller) CheckIn(ctx context.Context, employeeID int) model.Outcome {
	outcome, rec := c.recorder.CheckIn(ctx, employeeID, c.Selected)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCheckIn.Set(&rec)
	c.result.Set(&outcome)
	return outcome
}

// ClearAttendanceResult drops the last outcome once it has been shown.
func (c *Controller) ClearAttendanceResult() {
	c.result.Set(nil)
}

// Selected returns the active employee, or nil.
func (c *Controller) Selected() *model.Employee { return c.selected.Get() }

// LastCheckIn returns the last check-in record, or nil.
func (c *Controller) LastCheckIn() *model.LastCheckIn { return c.lastCheckIn.Get() }

// AttendanceResult returns the outcome of the last check-in until cleared.
func (c *Controller) AttendanceResult() *model.Outcome { return c.result.Get() }

// WatchSelected streams the active employee.
func (c *Controller) WatchSelected(ctx context.Context) <-chan *model.Employee {
	return c.selected.Subscribe(ctx)
}

// WatchLastCheckIn streams the last check-in record.
func (c *Controller) WatchLastCheckIn(ctx context.Context) <-chan *model.LastCheckIn {
	return c.lastCheckIn.Subscribe(ctx)
}

// WatchAttendanceResult streams attendance outcomes.
func (c *Controller) WatchAttendanceResult(ctx context.Context) <-chan *model.Outcome {
	return c.result.Subscribe(ctx)
}
