package redis

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"pivottriage/internal/logger"
	"pivottriage/internal/transform/winevent"
	"pivottriage/pkg/models"
)

// Config configures the Redis reader.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	PageSize int64
}

// Reader takes a snapshot of exported records held in a Redis list. The list
// is read with LRANGE and left intact, so repeated runs see the same input.
type Reader struct {
	client   *redis.Client
	key      string
	pageSize int64
}

// NewReader creates a Redis reader for list-based exports.
func NewReader(cfg Config) (*Reader, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("redis page size must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Reader{
		client:   client,
		key:      cfg.Key,
		pageSize: cfg.PageSize,
	}, nil
}

// ReadEvents reads every record in the list and parses it. Malformed records
// are skipped and counted.
func (r *Reader) ReadEvents(ctx context.Context) ([]models.RawEvent, models.IngestStats, error) {
	var stats models.IngestStats
	var events []models.RawEvent

	for start := int64(0); ; start += r.pageSize {
		page, err := r.client.LRange(ctx, r.key, start, start+r.pageSize-1).Result()
		if err != nil {
			return nil, stats, fmt.Errorf("read redis list %s: %w", r.key, err)
		}
		for _, payload := range page {
			stats.Total++
			ev, err := winevent.Parse([]byte(payload))
			if err != nil {
				stats.Skipped++
				logger.Debugf("Skipping redis record %d: %v", stats.Total, err)
				continue
			}
			events = append(events, ev)
		}
		if int64(len(page)) < r.pageSize {
			break
		}
	}

	logger.Infof("Loaded %d events from redis list %s (skipped=%d)", len(events), r.key, stats.Skipped)
	return events, stats, nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.client.Close()
}
