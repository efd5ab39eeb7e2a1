package controller

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"timesheet/internal/metrics"
	"timesheet/internal/model"
)

// SearchStatus is the state of the search overlay.
type SearchStatus string

const (
	StatusIdle    SearchStatus = "idle"
	StatusPending SearchStatus = "pending"
	StatusReady   SearchStatus = "ready"
	StatusFailed  SearchStatus = "failed"
)

// Mode says which source is authoritative for rendering.
type Mode string

const (
	ModePaging    Mode = "paging"
	ModeSearching Mode = "searching"
)

// SearchState is a snapshot of the search overlay. Results are set only when
// Status is StatusReady.
type SearchState struct {
	Query   string           `json:"query"`
	Status  SearchStatus     `json:"status"`
	Results []model.Employee `json:"results,omitempty"`
}

// Mode reports the listing mode implied by the query.
func (s SearchState) Mode() Mode {
	if isBlank(s.Query) {
		return ModePaging
	}
	return ModeSearching
}

// Search returns the current search snapshot.
func (c *Controller) Search() SearchState { return c.search.Get() }

// Mode returns the current listing mode.
func (c *Controller) Mode() Mode { return c.search.Get().Mode() }

// WatchSearch streams search snapshots.
func (c *Controller) WatchSearch(ctx context.Context) <-chan SearchState {
	return c.search.Subscribe(ctx)
}

// SetSearchQuery updates the query at once. A blank query returns to paging
// with the loaded pages intact; any other query arms the debounce timer and
// supersedes every earlier search.
func (c *Controller) SetSearchQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchGen++
	c.cancelPendingSearchLocked()

	if isBlank(q) {
		c.search.Set(SearchState{Query: q, Status: StatusIdle})
		return
	}
	c.search.Set(SearchState{Query: q, Status: StatusPending})
	gen := c.searchGen
	c.timer = time.AfterFunc(c.cfg.Debounce, func() {
		_ = c.runSearch(gen, q)
	})
}

// RetrySearch re-runs the current query immediately.
func (c *Controller) RetrySearch(ctx context.Context) error {
	c.mu.Lock()
	q := c.search.Get().Query
	if isBlank(q) {
		c.mu.Unlock()
		return nil
	}
	c.searchGen++
	c.cancelPendingSearchLocked()
	c.search.Set(SearchState{Query: q, Status: StatusPending})
	gen := c.searchGen
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- c.runSearch(gen, q) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runSearch issues the remote call for generation gen and applies the
// response only if no newer query has been set meanwhile.
func (c *Controller) runSearch(gen uint64, q string) error {
	c.mu.Lock()
	if gen != c.searchGen {
		c.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	c.timer = nil
	c.cancelSearch = cancel
	c.mu.Unlock()

	resp, err := c.searcher.SearchByName(ctx, q, c.cfg.LocationID)

	c.mu.Lock()
	defer c.mu.Unlock()
	log := c.log.WithFields(logrus.Fields{"query": q, "generation": gen})
	if gen != c.searchGen {
		metrics.SearchSuperseded.Inc()
		log.Debug("dropping superseded search response")
		return nil
	}
	c.cancelSearch = nil
	if err != nil {
		log.WithError(err).Warn("search failed")
		c.search.Set(SearchState{Query: q, Status: StatusFailed})
		return err
	}
	results := resp.Data
	if results == nil {
		results = []model.Employee{}
	}
	c.search.Set(SearchState{Query: q, Status: StatusReady, Results: results})
	return nil
}

func (c *Controller) cancelPendingSearchLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancelSearch != nil {
		c.cancelSearch()
		c.cancelSearch = nil
	}
}

func (c *Controller) searchingLocked() bool {
	return !isBlank(c.search.Get().Query)
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
