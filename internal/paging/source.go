package paging

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"timesheet/internal/directory"
	"timesheet/internal/model"
)

// Fetcher is the slice of the directory client the source needs.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) (directory.EmployeesResponse, error)
}

// Source turns the directory listing into cursor-keyed pages. The remote
// protocol never reports a last page, so NextKey always advances and
// consumers stop once they receive an empty page.
type Source struct {
	fetcher Fetcher
	log     logrus.FieldLogger

	mu     sync.Mutex
	anchor int
}

// NewSource creates a source backed by fetcher.
func NewSource(fetcher Fetcher, log logrus.FieldLogger) *Source {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Source{fetcher: fetcher, log: log}
}

// Load fetches the page at key. A key below 1 requests the first page.
func (s *Source) Load(ctx context.Context, key int) (model.Page, error) {
	if key < 1 {
		key = 1
	}
	resp, err := s.fetcher.FetchPage(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("page", key).Warn("pagination error")
		return model.Page{}, fmt.Errorf("load page %d: %w", key, err)
	}
	if len(resp.Data) > 0 {
		s.mu.Lock()
		s.anchor = key
		s.mu.Unlock()
	}

	page := model.Page{
		Items:   resp.Data,
		Key:     key,
		NextKey: key + 1,
	}
	if key > 1 {
		page.PrevKey = key - 1
	}
	return page, nil
}

// RefreshKey reports where a full reload should resume: the most recently
// loaded key that returned items, or 1 before any did.
func (s *Source) RefreshKey() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anchor < 1 {
		return 1
	}
	return s.anchor
}
