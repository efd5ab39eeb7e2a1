package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DirectoryRequests counts calls to the remote directory by operation and result.
	DirectoryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timesheet_directory_requests_total",
		Help: "Requests issued to the employee directory service.",
	}, []string{"op", "result"})

	PagesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timesheet_pages_loaded_total",
		Help: "Directory pages appended to the listing.",
	})

	// SearchSuperseded counts search responses dropped because a newer query replaced them.
	SearchSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timesheet_search_superseded_total",
		Help: "Search responses discarded as stale.",
	})

	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timesheet_checkins_total",
		Help: "Attendance submissions by normalized result.",
	}, []string{"result"})

	PrefWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timesheet_pref_write_failures_total",
		Help: "Preference store writes that failed and were dropped.",
	})
)

// Result maps an error to the label used by the request counters.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
