package file

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"pivottriage/internal/logger"
	"pivottriage/internal/transform/winevent"
	"pivottriage/pkg/models"
)

// Supported record formats.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

const maxLineSize = 16 << 20

// ReadEvents loads exported event records from path. Compressed files ending
// in .gz or .zst are decompressed transparently. Malformed records are
// skipped and counted.
func ReadEvents(path, format string) ([]models.RawEvent, models.IngestStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.IngestStats{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f, path)
	if err != nil {
		return nil, models.IngestStats{}, err
	}
	defer closeFn()

	if format == "" {
		format = DetectFormat(path)
	}
	events, stats, err := Decode(r, format)
	if err != nil {
		return nil, stats, err
	}
	logger.Infof("Loaded %d events from %s (skipped=%d)", len(events), path, stats.Skipped)
	return events, stats, nil
}

// DetectFormat infers the record format from the file name.
func DetectFormat(path string) string {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".zst")
	if strings.HasSuffix(name, ".csv") {
		return FormatCSV
	}
	return FormatJSONL
}

func decompress(f *os.File, path string) (io.Reader, func(), error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip input: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	case strings.HasSuffix(lower, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("open zstd input: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return f, func() {}, nil
	}
}

// Decode reads records in the given format from r.
func Decode(r io.Reader, format string) ([]models.RawEvent, models.IngestStats, error) {
	switch format {
	case FormatJSONL:
		return decodeJSONL(r)
	case FormatCSV:
		return decodeCSV(r)
	default:
		return nil, models.IngestStats{}, fmt.Errorf("unknown input format: %s", format)
	}
}

func decodeJSONL(r io.Reader) ([]models.RawEvent, models.IngestStats, error) {
	var stats models.IngestStats
	events := make([]models.RawEvent, 0, 1024)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(strings.TrimSpace(string(data))) == 0 {
			continue
		}
		stats.Total++
		ev, err := winevent.Parse(data)
		if err != nil {
			stats.Skipped++
			logger.Debugf("Skipping line %d: %v", line, err)
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("read jsonl input: %w", err)
	}
	return events, stats, nil
}

func decodeCSV(r io.Reader) ([]models.RawEvent, models.IngestStats, error) {
	var stats models.IngestStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, nil
	}
	if err != nil {
		return nil, stats, fmt.Errorf("read csv header: %w", err)
	}

	events := make([]models.RawEvent, 0, 1024)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		stats.Total++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				stats.Skipped++
				logger.Debugf("Skipping csv row: %v", err)
				continue
			}
			return nil, stats, fmt.Errorf("read csv input: %w", err)
		}

		raw := make(map[string]interface{}, len(header))
		for i, col := range header {
			if i < len(row) && row[i] != "" {
				raw[col] = row[i]
			}
		}
		ev, err := winevent.FromMap(raw)
		if err != nil {
			stats.Skipped++
			logger.Debugf("Skipping csv row %d: %v", stats.Total, err)
			continue
		}
		events = append(events, ev)
	}
	return events, stats, nil
}

// DecodeJSONArray decodes a JSON array of records, as posted to the HTTP API.
func DecodeJSONArray(r io.Reader) ([]models.RawEvent, models.IngestStats, error) {
	var stats models.IngestStats
	var records []json.RawMessage
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, stats, fmt.Errorf("decode json array: %w", err)
	}

	events := make([]models.RawEvent, 0, len(records))
	for i, rec := range records {
		stats.Total++
		ev, err := winevent.Parse(rec)
		if err != nil {
			stats.Skipped++
			logger.Debugf("Skipping record %d: %v", i, err)
			continue
		}
		events = append(events, ev)
	}
	return events, stats, nil
}
