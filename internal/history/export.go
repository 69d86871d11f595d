package history

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// csvHeader is the fixed column order for CSV export. CSV rows omit the
// metadata blob; JSON export keeps it.
var csvHeader = []string{
	"file_path", "file_hash", "video_id", "status",
	"timestamp", "error", "playlist_name", "file_size",
}

// exportEnvelope is the JSON export document.
type exportEnvelope struct {
	ExportedAt  string          `json:"exported_at"`
	RecordCount int             `json:"record_count"`
	Records     []*UploadRecord `json:"records"`
}

// ExportJSON writes all records to w as a JSON document with an export
// timestamp header.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	recs, err := s.All(ctx, 0)
	if err != nil {
		return err
	}

	env := exportEnvelope{
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		RecordCount: len(recs),
		Records:     recs,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("history: encoding export: %w", err)
	}

	return nil
}

// ExportCSV writes all records to w as CSV with a header row.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer) error {
	recs, err := s.All(ctx, 0)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("history: writing CSV header: %w", err)
	}

	for _, r := range recs {
		row := []string{
			r.FilePath, r.FileHash, r.VideoID, r.Status,
			strconv.FormatInt(r.Timestamp, 10), r.Error, r.PlaylistName,
			strconv.FormatInt(r.FileSize, 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("history: writing CSV row: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("history: flushing CSV: %w", err)
	}

	return nil
}

// ParseExport reads a JSON export document (or a bare record array) from r.
func ParseExport(r io.Reader) ([]*UploadRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("history: reading import: %w", err)
	}

	var env exportEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Records != nil {
		return env.Records, nil
	}

	var recs []*UploadRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("history: decoding import: %w", err)
	}

	return recs, nil
}

// Import merges records into the ledger. Records without a file hash and
// records whose hash already exists are skipped, so importing the same dump
// twice is harmless. Returns (imported, skipped).
func (s *Store) Import(ctx context.Context, recs []*UploadRecord) (int, int, error) {
	var imported, skipped int

	for _, rec := range recs {
		if rec.FileHash == "" {
			skipped++
			continue
		}

		existing, err := s.GetByHash(ctx, rec.FileHash)
		if err != nil {
			return imported, skipped, err
		}

		if existing != nil {
			skipped++
			continue
		}

		if rec.Status != StatusSuccess && rec.Status != StatusFailed {
			rec.Status = StatusFailed
		}

		// Failure rows never carry a video id; scrub any the dump had.
		if rec.Status != StatusSuccess {
			rec.VideoID = ""
		}

		if err := s.Upsert(ctx, rec); err != nil {
			return imported, skipped, err
		}

		imported++
	}

	s.logger.Info("history import complete", "imported", imported, "skipped", skipped)

	return imported, skipped, nil
}
