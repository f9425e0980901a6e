package dossiernats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"pivottriage/internal/logger"
	"pivottriage/pkg/models"
)

// Config configures the NATS publisher.
type Config struct {
	URL     string
	Subject string
	Timeout time.Duration
}

// Writer publishes outcomes to a NATS subject.
type Writer struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
}

// NewWriter connects to the NATS server.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats output URL is empty")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("nats output subject is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("pivottriage"),
		nats.Timeout(timeout),
		nats.MaxReconnects(3),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("Disconnected from NATS: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Infof("Dossier NATS writer initialized: %s subject=%s", cfg.URL, cfg.Subject)
	return &Writer{conn: nc, subject: cfg.Subject, timeout: timeout}, nil
}

// WriteOutcome publishes one outcome and waits for the server to acknowledge
// the flush.
func (w *Writer) WriteOutcome(outcome *models.Outcome) error {
	if outcome == nil {
		return nil
	}
	data, err := Encode(outcome)
	if err != nil {
		return err
	}
	if err := w.conn.Publish(w.subject, data); err != nil {
		return fmt.Errorf("nats publish failed: %w", err)
	}
	if err := w.conn.FlushTimeout(w.timeout); err != nil {
		return fmt.Errorf("nats flush failed: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (w *Writer) Close() error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Drain()
}

// Encode renders the message payload.
func Encode(outcome *models.Outcome) ([]byte, error) {
	data, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outcome: %w", err)
	}
	return data, nil
}
