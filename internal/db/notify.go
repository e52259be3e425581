package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"wellness-chatbot/pkg/logging"
)

// ReportSaved is the NOTIFY payload sent after a report is stored.
type ReportSaved struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
}

// Notifier wraps the LISTEN/NOTIFY mechanism in PostgreSQL.  Every
// instance announces saved reports so the others can drop cached company
// context.
type Notifier struct {
	DB      *sql.DB
	Channel string
	Logger  *logging.Logger
}

// NewNotifier constructs a new Notifier.  The channel should match the
// REPORTS_NOTIFY_CHANNEL environment variable.
func NewNotifier(db *sql.DB, channel string, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{DB: db, Channel: channel, Logger: logger}
}

// Notify announces a saved report on the channel.
func (n *Notifier) Notify(ctx context.Context, msg ReportSaved) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := n.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", n.Channel, string(payload)); err != nil {
		return fmt.Errorf("notify %s: %w", n.Channel, err)
	}
	return nil
}

// Listen subscribes to the channel on a dedicated connection and calls
// handle for every announcement until ctx is cancelled.  Malformed payloads
// are logged and skipped.
func (n *Notifier) Listen(ctx context.Context, dsn string, handle func(context.Context, ReportSaved)) error {
	listener := pq.NewListener(dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			n.Logger.Warn("report listener event", "event", int(ev), "error", err)
		}
	})
	if err := listener.Listen(n.Channel); err != nil {
		_ = listener.Close()
		return fmt.Errorf("listen %s: %w", n.Channel, err)
	}
	go func() {
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-listener.Notify:
				// nil after a reconnect
				if note == nil {
					continue
				}
				n.dispatch(ctx, note.Extra, handle)
			case <-time.After(90 * time.Second):
				go func() { _ = listener.Ping() }()
			}
		}
	}()
	return nil
}

func (n *Notifier) dispatch(ctx context.Context, payload string, handle func(context.Context, ReportSaved)) {
	var msg ReportSaved
	if err := json.Unmarshal([]byte(payload), &msg); err != nil || msg.CompanyID == "" {
		n.Logger.WarnContext(ctx, "ignoring report notification", "payload", payload)
		return
	}
	handle(ctx, msg)
}
