package controller

import (
	"context"

	"github.com/sirupsen/logrus"

	"timesheet/internal/metrics"
	"timesheet/internal/model"
)

type loadKind int

const (
	loadForward loadKind = iota
	loadBackward
	loadRefresh
)

func (k loadKind) String() string {
	switch k {
	case loadBackward:
		return "previous"
	case loadRefresh:
		return "refresh"
	default:
		return "next"
	}
}

// loadRef identifies one page request within one listing generation.
type loadRef struct {
	gen int
	key int
}

type failedLoad struct {
	kind loadKind
	key  int
	err  error
}

// Listing is a read-only snapshot of the paged listing. Pages are in
// ascending key order with no gaps. After a refresh whose anchor page came
// back empty, Pages holds that single empty page so LoadPrevious can walk
// back from it.
type Listing struct {
	Pages     []model.Page `json:"pages"`
	Loading   bool         `json:"loading"`
	Exhausted bool         `json:"exhausted"`
	Error     string       `json:"error,omitempty"`
	FailedKey int          `json:"failed_key,omitempty"`
}

// Items concatenates the items of every loaded page.
func (l Listing) Items() []model.Employee {
	n := 0
	for _, p := range l.Pages {
		n += len(p.Items)
	}
	out := make([]model.Employee, 0, n)
	for _, p := range l.Pages {
		out = append(out, p.Items...)
	}
	return out
}

// Listing returns the current snapshot of the paged listing.
func (c *Controller) Listing() Listing { return c.listing.Get() }

// WatchListing streams listing snapshots.
func (c *Controller) WatchListing(ctx context.Context) <-chan Listing {
	return c.listing.Subscribe(ctx)
}

// LoadMore fetches the page after the last loaded one. It is a no-op when a
// fetch for that page is already pending or an empty page has been seen.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.searchingLocked() {
		c.mu.Unlock()
		return ErrSearchActive
	}
	if c.exhausted {
		c.mu.Unlock()
		return nil
	}
	key := 1
	if n := len(c.pages); n > 0 {
		key = c.pages[n-1].NextKey
	}
	return c.fetchLocked(ctx, key, loadForward)
}

// LoadPrevious fetches the page before the first loaded one, which exists
// after a refresh anchored past the first page.
func (c *Controller) LoadPrevious(ctx context.Context) error {
	c.mu.Lock()
	if c.searchingLocked() {
		c.mu.Unlock()
		return ErrSearchActive
	}
	if len(c.pages) == 0 || c.pages[0].PrevKey == 0 {
		c.mu.Unlock()
		return nil
	}
	return c.fetchLocked(ctx, c.pages[0].PrevKey, loadBackward)
}

// Refresh drops the loaded pages and reloads from the source's anchor key.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.searchingLocked() {
		c.mu.Unlock()
		return ErrSearchActive
	}
	key := c.source.RefreshKey()
	c.listingGen++
	c.pages = nil
	c.exhausted = false
	c.failure = nil
	return c.fetchLocked(ctx, key, loadRefresh)
}

// RetryCurrentLoad re-issues the load that failed last. While searching it
// re-runs the current query without waiting for the debounce.
func (c *Controller) RetryCurrentLoad(ctx context.Context) error {
	c.mu.Lock()
	if c.searchingLocked() {
		c.mu.Unlock()
		return c.RetrySearch(ctx)
	}
	f := c.failure
	if f == nil {
		c.mu.Unlock()
		return c.LoadMore(ctx)
	}
	c.failure = nil
	return c.fetchLocked(ctx, f.key, f.kind)
}

// NotifyVisible tells the controller the item at index is on screen. When
// no more than the prefetch distance of items follow it, the next page is
// requested.
func (c *Controller) NotifyVisible(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.searchingLocked() || c.exhausted || c.failure != nil {
		c.mu.Unlock()
		return nil
	}
	total := 0
	for _, p := range c.pages {
		total += len(p.Items)
	}
	remaining := total - index - 1
	c.mu.Unlock()
	if remaining > c.cfg.PrefetchDistance {
		return nil
	}
	return c.LoadMore(ctx)
}

// fetchLocked is entered with mu held and releases it.
func (c *Controller) fetchLocked(ctx context.Context, key int, kind loadKind) error {
	ref := loadRef{gen: c.listingGen, key: key}
	if c.inflight[ref] {
		c.mu.Unlock()
		return nil
	}
	c.inflight[ref] = true
	c.publishListingLocked()
	c.mu.Unlock()

	page, err := c.source.Load(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, ref)
	defer c.publishListingLocked()

	if ref.gen != c.listingGen {
		c.log.WithField("page", key).Debug("dropping page from before refresh")
		return nil
	}
	if err != nil {
		c.failure = &failedLoad{kind: kind, key: key, err: err}
		return err
	}
	if c.failure != nil && c.failure.key == key {
		c.failure = nil
	}
	c.applyLocked(kind, page)
	return nil
}

func (c *Controller) applyLocked(kind loadKind, page model.Page) {
	log := c.log.WithFields(logrus.Fields{"page": page.Key, "load": kind.String()})
	switch kind {
	case loadRefresh:
		c.pages = []model.Page{page}
		if len(page.Items) == 0 {
			// The anchor page emptied out; keep it so earlier pages stay
			// reachable through LoadPrevious.
			c.exhausted = true
			if page.PrevKey == 0 {
				c.pages = nil
			}
			return
		}
	case loadBackward:
		if len(c.pages) == 0 || c.pages[0].PrevKey != page.Key {
			log.Debug("previous page no longer adjacent, dropping")
			return
		}
		if len(c.pages[0].Items) == 0 {
			// Replace the empty placeholder left by a refresh.
			c.pages = c.pages[1:]
		}
		if len(page.Items) == 0 {
			if page.PrevKey != 0 {
				c.pages = append([]model.Page{page}, c.pages...)
			}
			return
		}
		c.pages = append([]model.Page{page}, c.pages...)
	default:
		if len(page.Items) == 0 {
			c.exhausted = true
			log.Debug("empty page, listing exhausted")
			return
		}
		if n := len(c.pages); n > 0 && c.pages[n-1].NextKey != page.Key {
			log.Debug("page no longer adjacent, dropping")
			return
		}
		c.pages = append(c.pages, page)
	}
	metrics.PagesLoaded.Inc()
}

func (c *Controller) publishListingLocked() {
	l := Listing{
		Pages:     append([]model.Page(nil), c.pages...),
		Loading:   len(c.inflight) > 0,
		Exhausted: c.exhausted,
	}
	if c.failure != nil {
		l.Error = c.failure.err.Error()
		l.FailedKey = c.failure.key
	}
	c.listing.Set(l)
}
