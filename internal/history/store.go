// Package history persists the upload ledger: one row per unique video file,
// keyed by content hash, in an embedded SQLite database with WAL mode.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Record statuses. Every row is exactly one of these.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// walJournalSizeLimit caps the WAL file at 64 MiB.
const walJournalSizeLimit = 67108864

// UploadRecord is one row of the uploads table. FileHash is the identity:
// re-recording the same hash replaces the row (last writer wins).
type UploadRecord struct {
	ID           int64  `json:"-"`
	FilePath     string `json:"file_path"`
	FileHash     string `json:"file_hash"`
	VideoID      string `json:"video_id,omitempty"`
	Metadata     string `json:"metadata,omitempty"` // JSON blob of the metadata sent at upload time
	Timestamp    int64  `json:"timestamp"`          // unix seconds
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	PlaylistName string `json:"playlist_name,omitempty"`
	FileSize     int64  `json:"file_size"`
}

// Store is the SQLite-backed upload ledger. Safe for concurrent use: SQLite
// serializes writes and WAL mode permits concurrent readers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// nowFunc supplies record timestamps. Tests override it.
	nowFunc func() time.Time

	// Prepared statements for repeated queries, grouped by domain.
	recordStmts recordStatements
	queryStmts  queryStatements
	deleteStmts deleteStatements
}

type recordStatements struct {
	upsert *sql.Stmt
}

type queryStatements struct {
	byHash, byPath, byVideoID, all, allLimited, failed, allSuccess, count, successSince *sql.Stmt
}

type deleteStatements struct {
	byHash, byPath, byVideoID *sql.Stmt
}

// NewStore opens the ledger at dbPath, applying migrations and preparing all
// repeated statements. Use ":memory:" for tests. If a legacy JSON dump sits
// next to dbPath and the ledger is empty, the dump is ingested once.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening upload history database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := setPragmas(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger, nowFunc: time.Now}

	if err := s.prepareAllStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	if err := s.migrateLegacyJSON(context.Background(), dbPath); err != nil {
		logger.Warn("legacy history migration failed", "error", err.Error())
	}

	logger.Info("upload history database ready", "path", dbPath)

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = FULL", "synchronous FULL"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
		{fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit), "journal size limit"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("set pragma %s: %w", p.desc, err)
		}

		logger.Debug("pragma set", "pragma", p.desc)
	}

	return nil
}

// --- SQL query constants ---

const (
	sqlUploadColumns = `id, file_path, file_hash, video_id, metadata,
		timestamp, status, error, playlist_name, file_size`

	// The timestamp clamp keeps row times monotonic: a replayed import or a
	// retry carrying an older clock can never move a row backwards in time.
	sqlUpsertUpload = `INSERT INTO uploads
		(file_path, file_hash, video_id, metadata, timestamp, status, error, playlist_name, file_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_hash) DO UPDATE SET
			file_path     = excluded.file_path,
			video_id      = excluded.video_id,
			metadata      = excluded.metadata,
			timestamp     = MAX(excluded.timestamp, timestamp),
			status        = excluded.status,
			error         = excluded.error,
			playlist_name = excluded.playlist_name,
			file_size     = excluded.file_size`

	sqlGetByHash = `SELECT ` + sqlUploadColumns + ` FROM uploads WHERE file_hash = ?`

	sqlGetByPath = `SELECT ` + sqlUploadColumns + ` FROM uploads
		WHERE file_path = ? ORDER BY timestamp DESC LIMIT 1`

	sqlGetByVideoID = `SELECT ` + sqlUploadColumns + ` FROM uploads WHERE video_id = ?`

	sqlListAll = `SELECT ` + sqlUploadColumns + ` FROM uploads ORDER BY timestamp DESC`

	sqlListAllLimited = `SELECT ` + sqlUploadColumns + ` FROM uploads
		ORDER BY timestamp DESC LIMIT ?`

	sqlListFailed = `SELECT ` + sqlUploadColumns + ` FROM uploads
		WHERE status = 'failed' ORDER BY timestamp DESC`

	sqlListSuccess = `SELECT ` + sqlUploadColumns + ` FROM uploads
		WHERE status = 'success' ORDER BY timestamp DESC`

	sqlCountUploads = `SELECT COUNT(*) FROM uploads`

	sqlCountSuccessSince = `SELECT COUNT(*) FROM uploads
		WHERE status = 'success' AND timestamp >= ?`

	sqlDeleteByHash    = `DELETE FROM uploads WHERE file_hash = ?`
	sqlDeleteByPath    = `DELETE FROM uploads WHERE file_path = ?`
	sqlDeleteByVideoID = `DELETE FROM uploads WHERE video_id = ?`
)

// stmtDef maps a SQL string to the prepared statement pointer it should populate.
type stmtDef struct {
	dest **sql.Stmt
	sql  string
	name string
}

// prepareAll prepares a batch of statements, returning on first error.
func prepareAll(ctx context.Context, db *sql.DB, defs []stmtDef) error {
	for i := range defs {
		stmt, err := db.PrepareContext(ctx, defs[i].sql)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", defs[i].name, err)
		}

		*defs[i].dest = stmt
	}

	return nil
}

func (s *Store) prepareAllStatements(ctx context.Context) error {
	if err := prepareAll(ctx, s.db, []stmtDef{
		{&s.recordStmts.upsert, sqlUpsertUpload, "upsertUpload"},
	}); err != nil {
		return err
	}

	if err := prepareAll(ctx, s.db, []stmtDef{
		{&s.queryStmts.byHash, sqlGetByHash, "getByHash"},
		{&s.queryStmts.byPath, sqlGetByPath, "getByPath"},
		{&s.queryStmts.byVideoID, sqlGetByVideoID, "getByVideoID"},
		{&s.queryStmts.all, sqlListAll, "listAll"},
		{&s.queryStmts.allLimited, sqlListAllLimited, "listAllLimited"},
		{&s.queryStmts.failed, sqlListFailed, "listFailed"},
		{&s.queryStmts.allSuccess, sqlListSuccess, "listSuccess"},
		{&s.queryStmts.count, sqlCountUploads, "countUploads"},
		{&s.queryStmts.successSince, sqlCountSuccessSince, "countSuccessSince"},
	}); err != nil {
		return err
	}

	return prepareAll(ctx, s.db, []stmtDef{
		{&s.deleteStmts.byHash, sqlDeleteByHash, "deleteByHash"},
		{&s.deleteStmts.byPath, sqlDeleteByPath, "deleteByPath"},
		{&s.deleteStmts.byVideoID, sqlDeleteByVideoID, "deleteByVideoID"},
	})
}

// --- scanning helpers ---

// scanRecord scans a full uploads row into an UploadRecord.
func scanRecord(row interface{ Scan(...any) error }) (*UploadRecord, error) {
	rec := &UploadRecord{}

	err := row.Scan(
		&rec.ID, &rec.FilePath, &rec.FileHash, &rec.VideoID, &rec.Metadata,
		&rec.Timestamp, &rec.Status, &rec.Error, &rec.PlaylistName, &rec.FileSize,
	)
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// scanRecordRows iterates over sql.Rows and collects UploadRecords.
func scanRecordRows(rows *sql.Rows) ([]*UploadRecord, error) {
	var recs []*UploadRecord

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload row: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upload rows: %w", err)
	}

	return recs, nil
}

// --- write methods ---

// RecordSuccess upserts a success row for the given hash, clearing any prior
// failure text.
func (s *Store) RecordSuccess(ctx context.Context, path, hash, videoID, metadata, playlist string, size int64) error {
	s.logger.Debug("recording success", "path", path, "hash", hash, "video_id", videoID)

	_, err := s.recordStmts.upsert.ExecContext(ctx,
		path, hash, videoID, metadata, s.nowFunc().Unix(), StatusSuccess, "", playlist, size)
	if err != nil {
		return fmt.Errorf("record success for %s: %w", hash, err)
	}

	return nil
}

// RecordFailure upserts a failure row for the given hash, clearing any prior
// video id so a half-failed row never looks uploaded.
func (s *Store) RecordFailure(ctx context.Context, path, hash, errText, playlist string, size int64) error {
	s.logger.Debug("recording failure", "path", path, "hash", hash, "error", errText)

	_, err := s.recordStmts.upsert.ExecContext(ctx,
		path, hash, "", "", s.nowFunc().Unix(), StatusFailed, errText, playlist, size)
	if err != nil {
		return fmt.Errorf("record failure for %s: %w", hash, err)
	}

	return nil
}

// Upsert writes a complete record, used by import and the legacy migration.
func (s *Store) Upsert(ctx context.Context, rec *UploadRecord) error {
	ts := rec.Timestamp
	if ts == 0 {
		ts = s.nowFunc().Unix()
	}

	_, err := s.recordStmts.upsert.ExecContext(ctx,
		rec.FilePath, rec.FileHash, rec.VideoID, rec.Metadata, ts,
		rec.Status, rec.Error, rec.PlaylistName, rec.FileSize)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.FileHash, err)
	}

	return nil
}

// --- read methods ---

// IsUploaded reports whether the given content hash has a success row.
func (s *Store) IsUploaded(ctx context.Context, hash string) (bool, error) {
	rec, err := s.GetByHash(ctx, hash)
	if err != nil {
		return false, err
	}

	return rec != nil && rec.Status == StatusSuccess, nil
}

// IsUploadedByPath reports whether the given path has a success row. This is
// the fast pre-check: it can answer without hashing the file, but a renamed
// or moved file will miss.
func (s *Store) IsUploadedByPath(ctx context.Context, path string) (bool, error) {
	rec, err := scanRecord(s.queryStmts.byPath.QueryRowContext(ctx, path))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("get by path %q: %w", path, err)
	}

	return rec.Status == StatusSuccess, nil
}

// GetByHash returns the record for a content hash.
// Returns (nil, nil) if no record exists.
func (s *Store) GetByHash(ctx context.Context, hash string) (*UploadRecord, error) {
	rec, err := scanRecord(s.queryStmts.byHash.QueryRowContext(ctx, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get by hash %s: %w", hash, err)
	}

	return rec, nil
}

// GetByVideoID returns the record for a remote video id.
// Returns (nil, nil) if no record exists.
func (s *Store) GetByVideoID(ctx context.Context, videoID string) (*UploadRecord, error) {
	rec, err := scanRecord(s.queryStmts.byVideoID.QueryRowContext(ctx, videoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get by video id %s: %w", videoID, err)
	}

	return rec, nil
}

// All returns records newest-first. limit <= 0 returns everything.
func (s *Store) All(ctx context.Context, limit int) ([]*UploadRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = s.queryStmts.allLimited.QueryContext(ctx, limit)
	} else {
		rows, err = s.queryStmts.all.QueryContext(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	return scanRecordRows(rows)
}

// Failed returns all failure rows newest-first.
func (s *Store) Failed(ctx context.Context) ([]*UploadRecord, error) {
	rows, err := s.queryStmts.failed.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list failed uploads: %w", err)
	}
	defer rows.Close()

	return scanRecordRows(rows)
}

// AllSuccess returns all success rows newest-first.
func (s *Store) AllSuccess(ctx context.Context) ([]*UploadRecord, error) {
	rows, err := s.queryStmts.allSuccess.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list successful uploads: %w", err)
	}
	defer rows.Close()

	return scanRecordRows(rows)
}

// Count returns the total number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.queryStmts.count.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("count uploads: %w", err)
	}

	return n, nil
}

// CountSuccessSince returns the number of success rows with a timestamp at
// or after the given unix time. The quota estimator uses it with local
// start-of-day.
func (s *Store) CountSuccessSince(ctx context.Context, since int64) (int, error) {
	var n int
	if err := s.queryStmts.successSince.QueryRowContext(ctx, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count successes since %d: %w", since, err)
	}

	return n, nil
}

// --- delete methods ---

// DeleteByHash removes the record for a content hash.
// Returns whether a row was deleted.
func (s *Store) DeleteByHash(ctx context.Context, hash string) (bool, error) {
	return s.deleteOne(ctx, s.deleteStmts.byHash, hash)
}

// DeleteByPath removes all records for a file path.
// Returns whether any row was deleted.
func (s *Store) DeleteByPath(ctx context.Context, path string) (bool, error) {
	return s.deleteOne(ctx, s.deleteStmts.byPath, path)
}

// DeleteByVideoID removes the record for a remote video id.
// Returns whether a row was deleted.
func (s *Store) DeleteByVideoID(ctx context.Context, videoID string) (bool, error) {
	return s.deleteOne(ctx, s.deleteStmts.byVideoID, videoID)
}

func (s *Store) deleteOne(ctx context.Context, stmt *sql.Stmt, key string) (bool, error) {
	res, err := stmt.ExecContext(ctx, key)
	if err != nil {
		return false, fmt.Errorf("delete %q: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %q: rows affected: %w", key, err)
	}

	return n > 0, nil
}
