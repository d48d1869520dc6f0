// Package segmentstore is the local canonical store of transcript segments
// and accepted entities, backed by SQLite. The extraction engine itself
// never persists anything; it only flips a segment's extraction flags here
// once entities have been found. Everything else (saving segments, storing
// entities the user confirmed) belongs to the surrounding application.
package segmentstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lifetrace/transcript/internal/types"
)

// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, enables WAL journal mode
// and bootstraps the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error { return s.db.PingContext(ctx) }

// --- Segment operations ---

// SaveSegment inserts or replaces a segment under the given session.
func (s *Store) SaveSegment(ctx context.Context, sessionID string, seg *types.TranscriptSegment) error {
	if err := types.ValidateIDPresent(seg.ID, "segmentId"); err != nil {
		return err
	}
	if err := types.ValidateIDPresent(sessionID, "sessionId"); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO Segments
		(SegmentId, SessionId, RawText, InterimText, OptimizedText, IsInterim, IsOptimized,
		 AudioStart, AudioEnd, TimestampMs, SegmentIndex, RelativeOffset, ContainsTodo, ContainsSchedule)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		seg.ID, sessionID, seg.RawText, seg.InterimText, seg.OptimizedText,
		boolInt(seg.IsInterim), boolInt(seg.IsOptimized),
		seg.AudioStart, seg.AudioEnd, seg.Timestamp.UnixMilli(),
		seg.SegmentIndex, seg.RelativeOffset,
		boolInt(seg.ContainsTodo), boolInt(seg.ContainsSchedule))
	return err
}

// GetSegment loads one segment by id.
func (s *Store) GetSegment(ctx context.Context, segmentID string) (*types.TranscriptSegment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT SegmentId, RawText, InterimText, OptimizedText,
		IsInterim, IsOptimized, AudioStart, AudioEnd, TimestampMs, SegmentIndex, RelativeOffset,
		ContainsTodo, ContainsSchedule FROM Segments WHERE SegmentId = ?`, segmentID)
	return scanSegment(row)
}

// ListSegments returns a session's segments ordered by capture time.
func (s *Store) ListSegments(ctx context.Context, sessionID string) ([]types.TranscriptSegment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT SegmentId, RawText, InterimText, OptimizedText,
		IsInterim, IsOptimized, AudioStart, AudioEnd, TimestampMs, SegmentIndex, RelativeOffset,
		ContainsTodo, ContainsSchedule FROM Segments WHERE SessionId = ? ORDER BY TimestampMs ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var segs []types.TranscriptSegment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segs = append(segs, *seg)
	}
	return segs, rows.Err()
}

// FinalizeSegment flips IsInterim off and replaces the raw text with the
// recognizer's final output.
func (s *Store) FinalizeSegment(ctx context.Context, segmentID, rawText string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE Segments SET IsInterim = 0, InterimText = '', RawText = ? WHERE SegmentId = ?`,
		rawText, segmentID)
	return err
}

// AttachOptimizedText stores post-processed text for a segment.
func (s *Store) AttachOptimizedText(ctx context.Context, segmentID, optimized string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE Segments SET OptimizedText = ?, IsOptimized = 1 WHERE SegmentId = ?`,
		optimized, segmentID)
	return err
}

// SetExtractionFlags ORs the extraction-derived flags onto a segment; a
// flag once set is never cleared by later extractions.
func (s *Store) SetExtractionFlags(ctx context.Context, segmentID string, containsTodo, containsSchedule bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE Segments SET ContainsTodo = MAX(ContainsTodo, ?), ContainsSchedule = MAX(ContainsSchedule, ?) WHERE SegmentId = ?`,
		boolInt(containsTodo), boolInt(containsSchedule), segmentID)
	return err
}

// --- Entity operations ---

// SaveEntity persists an entity the user accepted. The full entity is kept
// as a JSON payload; queries only ever filter by segment.
func (s *Store) SaveEntity(ctx context.Context, e *types.ExtractedEntity) error {
	if err := types.ValidateEntity(e); err != nil {
		return err
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO Entities (EntityId, Kind, SourceSegmentId, ExtractedAtMs, Payload) VALUES (?,?,?,?,?)`,
		e.ID, string(e.Kind), e.SourceSegmentID, e.ExtractedAt.UnixMilli(), string(payload))
	return err
}

// ListEntitiesBySegment returns the stored entities for one segment in
// extraction order.
func (s *Store) ListEntitiesBySegment(ctx context.Context, segmentID string) ([]types.ExtractedEntity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT Payload FROM Entities WHERE SourceSegmentId = ? ORDER BY ExtractedAtMs ASC, EntityId ASC`, segmentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entities []types.ExtractedEntity
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e types.ExtractedEntity
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSegment(row rowScanner) (*types.TranscriptSegment, error) {
	var (
		seg         types.TranscriptSegment
		isInterim   int
		isOptimized int
		tsMs        int64
		segIndex    sql.NullInt64
		relOffset   sql.NullInt64
		hasTodo     int
		hasSchedule int
	)
	err := row.Scan(&seg.ID, &seg.RawText, &seg.InterimText, &seg.OptimizedText,
		&isInterim, &isOptimized, &seg.AudioStart, &seg.AudioEnd, &tsMs,
		&segIndex, &relOffset, &hasTodo, &hasSchedule)
	if err != nil {
		return nil, err
	}
	seg.IsInterim = isInterim != 0
	seg.IsOptimized = isOptimized != 0
	seg.ContainsTodo = hasTodo != 0
	seg.ContainsSchedule = hasSchedule != 0
	seg.Timestamp = time.UnixMilli(tsMs).UTC()
	if segIndex.Valid {
		v := segIndex.Int64
		seg.SegmentIndex = &v
	}
	if relOffset.Valid {
		v := relOffset.Int64
		seg.RelativeOffset = &v
	}
	return &seg, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
