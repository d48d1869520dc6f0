package segmentstore

// DDL applied on open; safe to run repeatedly.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS Segments (
    SegmentId        TEXT PRIMARY KEY,
    SessionId        TEXT NOT NULL,
    RawText          TEXT NOT NULL,
    InterimText      TEXT NOT NULL DEFAULT '',
    OptimizedText    TEXT NOT NULL DEFAULT '',
    IsInterim        INTEGER NOT NULL DEFAULT 0,
    IsOptimized      INTEGER NOT NULL DEFAULT 0,
    AudioStart       INTEGER NOT NULL,
    AudioEnd         INTEGER NOT NULL,
    TimestampMs      INTEGER NOT NULL,
    SegmentIndex     INTEGER,
    RelativeOffset   INTEGER,
    ContainsTodo     INTEGER NOT NULL DEFAULT 0,
    ContainsSchedule INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_segments_session ON Segments (SessionId, TimestampMs);

CREATE TABLE IF NOT EXISTS Entities (
    EntityId        TEXT PRIMARY KEY,
    Kind            TEXT NOT NULL,
    SourceSegmentId TEXT NOT NULL,
    ExtractedAtMs   INTEGER NOT NULL,
    Payload         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_segment ON Entities (SourceSegmentId);
`
