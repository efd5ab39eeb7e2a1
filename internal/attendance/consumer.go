package attendance

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"timesheet/internal/queue"
)

// EntryWriter stores journal entries.
type EntryWriter interface {
	InsertEntry(ctx context.Context, e Entry) (Entry, error)
}

// ConsumeJournal drains check-in messages from q into repo until ctx is done
// or the queue closes. Malformed and failing entries are logged and skipped.
func ConsumeJournal(ctx context.Context, q queue.Queue, repo EntryWriter, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if msg.Type != queue.TypeCheckIn {
			log.WithField("type", msg.Type).Debug("skipping message")
			continue
		}
		var e Entry
		if err := json.Unmarshal(msg.Body, &e); err != nil {
			log.WithError(err).Warn("malformed journal entry")
			continue
		}
		if _, err := repo.InsertEntry(ctx, e); err != nil {
			log.WithError(err).WithField("entry", e.ID).Error("journal insert failed")
			continue
		}
		log.WithFields(logrus.Fields{"entry": e.ID, "employee_id": e.EmployeeID}).Debug("journaled check-in")
	}
	return ctx.Err()
}
