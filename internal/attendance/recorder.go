package attendance

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"timesheet/internal/directory"
	"timesheet/internal/metrics"
	"timesheet/internal/model"
	"timesheet/internal/prefs"
	"timesheet/internal/queue"
)

// TimestampLayout formats the wall-clock time of a check-in attempt.
const TimestampLayout = "03:04:05 PM"

const fallbackMessage = "Error posting attendance"

// Submitter is the attendance endpoint of the directory service.
type Submitter interface {
	SubmitAttendance(ctx context.Context, employeeID int) (directory.AttendanceResponse, error)
}

// Recorder submits check-ins and records the attempt, successful or not.
type Recorder struct {
	client Submitter
	prefs  *prefs.Preferences
	writer *prefs.Writer
	log    logrus.FieldLogger

	// Journal receives one entry per attempt when set.
	Journal queue.Queue
	// Now is the clock used for timestamps.
	Now func() time.Time
}

// NewRecorder creates a recorder that persists through writer.
func NewRecorder(client Submitter, p *prefs.Preferences, writer *prefs.Writer, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{client: client, prefs: p, writer: writer, log: log, Now: time.Now}
}

// CheckIn submits attendance for employeeID and returns the normalized
// outcome plus the check-in record, attributed to whatever selection reports
// once the service has answered. The record is persisted in the background
// whatever the outcome.
func (r *Recorder) CheckIn(ctx context.Context, employeeID int, selection func() *model.Employee) (model.Outcome, model.LastCheckIn) {
	outcome := r.submit(ctx, employeeID)
	var selected *model.Employee
	if selection != nil {
		selected = selection()
	}
	result := "rejected"
	if outcome.Success {
		result = "success"
	}
	metrics.CheckIns.WithLabelValues(result).Inc()

	now := r.Now()
	rec := model.LastCheckIn{Timestamp: now.Format(TimestampLayout)}
	if selected != nil {
		e := *selected
		rec.Employee = &e
	}

	r.writer.Submit("last_checked", func(ctx context.Context) error {
		return r.prefs.SaveLastCheckIn(ctx, &rec)
	})
	if r.Journal != nil {
		entry := Entry{
			ID:         uuid.NewString(),
			EmployeeID: employeeID,
			Success:    outcome.Success,
			Message:    outcome.Message,
			RecordedAt: now.UTC(),
		}
		if selected != nil && selected.ID == employeeID {
			entry.EmployeeName = selected.FullName
		}
		r.writer.Submit("journal", func(ctx context.Context) error {
			body, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			return r.Journal.Publish(ctx, queue.Message{Type: queue.TypeCheckIn, Body: body})
		})
	}

	r.log.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"success":     outcome.Success,
	}).Info("attendance submitted")
	return outcome, rec
}

func (r *Recorder) submit(ctx context.Context, employeeID int) model.Outcome {
	resp, err := r.client.SubmitAttendance(ctx, employeeID)
	if err == nil {
		return model.Outcome{Success: resp.Success, Message: resp.Message}
	}

	if se, ok := directory.AsStatusError(err); ok {
		var body directory.AttendanceResponse
		if jerr := json.Unmarshal(se.Body, &body); jerr == nil && body.Message != "" {
			return model.Outcome{Success: false, Message: body.Message}
		}
		r.log.WithField("status", se.Status).Warn("unparseable attendance rejection")
		return model.Outcome{Success: false, Message: describe(err)}
	}

	r.log.WithError(err).WithField("employee_id", employeeID).Warn("attendance submission failed")
	return model.Outcome{Success: false, Message: describe(err)}
}

func describe(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallbackMessage
}
