package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// legacyMinSize filters out empty or placeholder JSON files ("{}" plus
// whitespace) that earlier releases sometimes left behind.
const legacyMinSize = 10

// migrateLegacyJSON ingests a TinyDB-style upload_history.json sitting next
// to the database file. One-shot: runs only when the uploads table is empty,
// so an already-migrated (or freshly used) ledger is never touched again.
func (s *Store) migrateLegacyJSON(ctx context.Context, dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}

	jsonPath := filepath.Join(filepath.Dir(dbPath), "upload_history.json")

	info, err := os.Stat(jsonPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("history: stat legacy file: %w", err)
	}

	if info.Size() <= legacyMinSize {
		return nil
	}

	count, err := s.Count(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		s.logger.Debug("skipping legacy migration, ledger not empty", "rows", count)
		return nil
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("history: reading legacy file: %w", err)
	}

	recs := parseLegacyRecords(data)
	if len(recs) == 0 {
		return nil
	}

	var migrated int

	for _, rec := range recs {
		if rec.FileHash == "" {
			continue
		}

		if rec.Status == "" {
			if rec.VideoID != "" {
				rec.Status = StatusSuccess
			} else {
				rec.Status = StatusFailed
			}
		}

		if err := s.Upsert(ctx, rec); err != nil {
			return err
		}

		migrated++
	}

	s.logger.Info("migrated legacy upload history",
		"path", jsonPath, "records", migrated)

	return nil
}

// parseLegacyRecords handles the document shapes older releases wrote:
// {"uploads": {id: record}}, {"_default": {id: record}}, a bare id->record
// map, or a bare record list.
func parseLegacyRecords(data []byte) []*UploadRecord {
	var tables map[string]json.RawMessage
	if err := json.Unmarshal(data, &tables); err == nil {
		if raw, ok := tables["uploads"]; ok {
			return legacyTableRecords(raw)
		}

		if raw, ok := tables["_default"]; ok {
			return legacyTableRecords(raw)
		}

		// A bare id->record map parses as map[string]RawMessage too.
		return legacyTableRecords(data)
	}

	var list []*UploadRecord
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}

	return nil
}

// legacyTableRecords decodes either an id->record map or a record list.
func legacyTableRecords(raw json.RawMessage) []*UploadRecord {
	var byID map[string]*UploadRecord
	if err := json.Unmarshal(raw, &byID); err == nil {
		recs := make([]*UploadRecord, 0, len(byID))
		for _, rec := range byID {
			if rec != nil {
				recs = append(recs, rec)
			}
		}

		return recs
	}

	var list []*UploadRecord
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	return nil
}
