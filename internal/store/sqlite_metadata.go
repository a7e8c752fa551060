package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteMetadataStore implements MetadataStore over a single SQLite
// database: a row store for projects/files/chunks, plus an FTS5 virtual
// table over chunk content for lexical search. WAL mode lets the CLI's
// scan/search/index-info commands run concurrently against the same file.
type SQLiteMetadataStore struct {
	mu        sync.RWMutex
	db        *sql.DB
	path      string
	stopWords map[string]struct{}
	closed    bool
}

var _ MetadataStore = (*SQLiteMetadataStore)(nil)

// NewSQLiteMetadataStore opens (creating if necessary) the metadata
// database at path. An empty path opens an in-memory store, used by
// tests and single-shot commands that don't need to persist.
func NewSQLiteMetadataStore(path string, config BM25Config) (*SQLiteMetadataStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	s := &SQLiteMetadataStore{
		db:        db,
		path:      path,
		stopWords: BuildStopWordMap(config.StopWords),
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// SetCacheSizeMB configures SQLite's page cache; called once at startup
// from the performance config.
func (s *SQLiteMetadataStore) SetCacheSizeMB(mb int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(fmt.Sprintf("PRAGMA cache_size = -%d", mb*1024))
	return err
}

func (s *SQLiteMetadataStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		root_path TEXT NOT NULL,
		file_count INTEGER NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		indexed_at INTEGER NOT NULL,
		version TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		language TEXT NOT NULL,
		content_type TEXT NOT NULL,
		indexed_at INTEGER NOT NULL,
		UNIQUE(project_id, path)
	);
	CREATE INDEX IF NOT EXISTS idx_files_project_path ON files(project_id, path);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		file_id TEXT NOT NULL REFERENCES files(id),
		file_path TEXT NOT NULL,
		content TEXT NOT NULL,
		raw_content TEXT NOT NULL,
		breadcrumb TEXT NOT NULL,
		content_type TEXT NOT NULL,
		language TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		start_byte INTEGER NOT NULL,
		end_byte INTEGER NOT NULL,
		metadata TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks(file_id);

	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		chunk_id UNINDEXED,
		content,
		tokenize='unicode61'
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveProject upserts a project row.
func (s *SQLiteMetadataStore) SaveProject(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects(id, name, root_path, file_count, chunk_count, indexed_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, root_path=excluded.root_path,
			file_count=excluded.file_count, chunk_count=excluded.chunk_count,
			indexed_at=excluded.indexed_at, version=excluded.version
	`, p.ID, p.Name, p.RootPath, p.FileCount, p.ChunkCount, p.IndexedAt.Unix(), p.Version)
	return err
}

// GetProject loads a project by ID.
func (s *SQLiteMetadataStore) GetProject(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, root_path, file_count, chunk_count, indexed_at, version
		FROM projects WHERE id = ?
	`, id)

	p := &Project{}
	var indexedAt int64
	if err := row.Scan(&p.ID, &p.Name, &p.RootPath, &p.FileCount, &p.ChunkCount, &indexedAt, &p.Version); err != nil {
		return nil, err
	}
	p.IndexedAt = time.Unix(indexedAt, 0)
	return p, nil
}

// UpdateProjectStats updates the cached file/chunk counts on a project.
func (s *SQLiteMetadataStore) UpdateProjectStats(ctx context.Context, id string, fileCount, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE projects SET file_count = ?, chunk_count = ?, indexed_at = ? WHERE id = ?
	`, fileCount, chunkCount, time.Now().Unix(), id)
	return err
}

// SaveFiles upserts a batch of file rows in a single transaction.
func (s *SQLiteMetadataStore) SaveFiles(ctx context.Context, files []*File) error {
	if len(files) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files(id, project_id, path, size, mod_time, content_hash, language, content_type, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, path) DO UPDATE SET
			size=excluded.size, mod_time=excluded.mod_time, content_hash=excluded.content_hash,
			language=excluded.language, content_type=excluded.content_type, indexed_at=excluded.indexed_at,
			id=excluded.id
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, f.ID, f.ProjectID, f.Path, f.Size, f.ModTime.Unix(),
			f.ContentHash, f.Language, f.ContentType, f.IndexedAt.Unix()); err != nil {
			return fmt.Errorf("save file %s: %w", f.Path, err)
		}
	}

	return tx.Commit()
}

// GetFileByPath looks up a single file row by project and relative path.
func (s *SQLiteMetadataStore) GetFileByPath(ctx context.Context, projectID, path string) (*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, path, size, mod_time, content_hash, language, content_type, indexed_at
		FROM files WHERE project_id = ? AND path = ?
	`, projectID, path)

	return scanFile(row)
}

// GetFilesForReconciliation returns every tracked file for a project,
// keyed by path, so the scanner can diff the filesystem against what's
// already indexed and decide which files to re-chunk or delete.
func (s *SQLiteMetadataStore) GetFilesForReconciliation(ctx context.Context, projectID string) (map[string]*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, path, size, mod_time, content_hash, language, content_type, indexed_at
		FROM files WHERE project_id = ?
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]*File)
	for rows.Next() {
		f, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		result[f.Path] = f
	}
	return result, rows.Err()
}

// GetFilePathsByProject returns every tracked file path for a project,
// used by gitignore/file reconciliation to diff against a fresh scan.
func (s *SQLiteMetadataStore) GetFilePathsByProject(ctx context.Context, projectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT path FROM files WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ListFilePathsUnder returns every tracked path under dirPrefix, used to
// re-evaluate ignore rules scoped to a subtree (a nested .gitignore).
func (s *SQLiteMetadataStore) ListFilePathsUnder(ctx context.Context, projectID, dirPrefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT path FROM files WHERE project_id = ? AND path LIKE ?
	`, projectID, dirPrefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteFile removes a file row and cascades to its chunks and their FTS
// entries.
func (s *SQLiteMetadataStore) DeleteFile(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteChunksForFile(ctx, tx, fileID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteFilesByProject removes every file (and cascaded chunk) belonging
// to a project, used when a project is dropped from the index.
func (s *SQLiteMetadataStore) DeleteFilesByProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM files WHERE project_id = ?`, projectID)
	if err != nil {
		return err
	}
	var fileIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		fileIDs = append(fileIDs, id)
	}
	rows.Close()

	for _, id := range fileIDs {
		if err := deleteChunksForFile(ctx, tx, id); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE project_id = ?`, projectID); err != nil {
		return err
	}

	return tx.Commit()
}

func deleteChunksForFile(ctx context.Context, tx *sql.Tx, fileID string) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE file_id = ?`, fileID)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id = ?`, id); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID); err != nil {
		return err
	}
	return nil
}

// SaveChunks upserts a batch of chunks and their FTS entries.
func (s *SQLiteMetadataStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks(id, file_id, file_path, content, raw_content, breadcrumb,
			content_type, language, start_line, end_line, start_byte, end_byte,
			metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content=excluded.content, raw_content=excluded.raw_content,
			breadcrumb=excluded.breadcrumb, start_line=excluded.start_line,
			end_line=excluded.end_line, start_byte=excluded.start_byte,
			end_byte=excluded.end_byte, metadata=excluded.metadata,
			updated_at=excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer chunkStmt.Close()

	ftsDeleteStmt, err := tx.PrepareContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id = ?`)
	if err != nil {
		return err
	}
	defer ftsDeleteStmt.Close()

	ftsInsertStmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks_fts(chunk_id, content) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer ftsInsertStmt.Close()

	now := time.Now().Unix()
	for _, c := range chunks {
		meta := encodeMetadata(c.Metadata)
		if _, err := chunkStmt.ExecContext(ctx, c.ID, c.FileID, c.FilePath, c.Content, c.RawContent,
			c.Breadcrumb, string(c.ContentType), c.Language, c.StartLine, c.EndLine,
			c.StartByte, c.EndByte, meta, now, now); err != nil {
			return fmt.Errorf("save chunk %s: %w", c.ID, err)
		}

		if _, err := ftsDeleteStmt.ExecContext(ctx, c.ID); err != nil {
			return err
		}

		tokens := TokenizeCode(c.RawContent)
		tokens = FilterStopWords(tokens, s.stopWords)
		if _, err := ftsInsertStmt.ExecContext(ctx, c.ID, strings.Join(tokens, " ")); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetChunk loads a single chunk by ID.
func (s *SQLiteMetadataStore) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	chunks, err := s.GetChunks(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, sql.ErrNoRows
	}
	return chunks[0], nil
}

// GetChunks loads a batch of chunks by ID, preserving no particular order.
func (s *SQLiteMetadataStore) GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, file_id, file_path, content, raw_content, breadcrumb, content_type,
			language, start_line, end_line, start_byte, end_byte, metadata, created_at, updated_at
		FROM chunks WHERE id IN (%s)
	`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// GetChunksByFile loads every chunk belonging to a file.
func (s *SQLiteMetadataStore) GetChunksByFile(ctx context.Context, fileID string) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, file_path, content, raw_content, breadcrumb, content_type,
			language, start_line, end_line, start_byte, end_byte, metadata, created_at, updated_at
		FROM chunks WHERE file_id = ? ORDER BY start_line
	`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// GetAllChunkIDs returns every chunk ID tracked for a project, used by the
// cross-store consistency checker.
func (s *SQLiteMetadataStore) GetAllChunkIDs(ctx context.Context, projectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunks.id FROM chunks
		JOIN files ON files.id = chunks.file_id
		WHERE files.project_id = ?
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteChunksByFile removes every chunk (and FTS entry) for a file.
func (s *SQLiteMetadataStore) DeleteChunksByFile(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteChunksForFile(ctx, tx, fileID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteChunks removes a specific set of chunks (and their FTS entries),
// used for the monotonic-upsert path: new chunk versions are inserted
// under new content-addressed IDs before the stale IDs for that file are
// deleted, so a crash mid-reindex never leaves a file's search results
// empty.
func (s *SQLiteMetadataStore) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SearchLexical runs a two-pass BM25 query over chunks_fts: a strict
// AND-of-terms match first, falling back to an OR match if the strict
// pass returns nothing. Code queries are rarely well-formed phrases, so
// the relaxed pass catches partial-term matches the strict pass misses.
func (s *SQLiteMetadataStore) SearchLexical(ctx context.Context, query string, limit int) ([]*LexicalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	tokens := TokenizeCode(query)
	tokens = FilterStopWords(tokens, s.stopWords)
	if len(tokens) == 0 {
		return nil, nil
	}

	strict := strings.Join(tokens, " ")
	results, err := s.runFTSQuery(ctx, strict, limit)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	relaxed := strings.Join(tokens, " OR ")
	return s.runFTSQuery(ctx, relaxed, limit)
}

func (s *SQLiteMetadataStore) runFTSQuery(ctx context.Context, matchQuery string, limit int) ([]*LexicalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, bm25(chunks_fts) as score
		FROM chunks_fts WHERE content MATCH ? ORDER BY score LIMIT ?
	`, matchQuery, limit)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	defer rows.Close()

	var results []*LexicalResult
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		results = append(results, &LexicalResult{ChunkID: id, Score: -score})
	}
	return results, rows.Err()
}

// GetState reads a single key-value metadata entry.
func (s *SQLiteMetadataStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	return value, err
}

// SetState upserts a key-value metadata entry.
func (s *SQLiteMetadataStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// SaveIndexCheckpoint records progress through an indexing run for
// resumption after interruption.
func (s *SQLiteMetadataStore) SaveIndexCheckpoint(ctx context.Context, stage string, total, embeddedCount int, embedderModel string) error {
	if err := s.SetState(ctx, StateKeyCheckpointStage, stage); err != nil {
		return err
	}
	if err := s.SetState(ctx, StateKeyCheckpointTotal, fmt.Sprint(total)); err != nil {
		return err
	}
	if err := s.SetState(ctx, StateKeyCheckpointEmbedded, fmt.Sprint(embeddedCount)); err != nil {
		return err
	}
	if err := s.SetState(ctx, StateKeyCheckpointEmbedderModel, embedderModel); err != nil {
		return err
	}
	return s.SetState(ctx, StateKeyCheckpointTimestamp, fmt.Sprint(time.Now().Unix()))
}

// LoadIndexCheckpoint loads the saved indexing progress, if any.
func (s *SQLiteMetadataStore) LoadIndexCheckpoint(ctx context.Context) (*IndexCheckpoint, error) {
	stage, err := s.GetState(ctx, StateKeyCheckpointStage)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	cp := &IndexCheckpoint{Stage: stage}
	if v, err := s.GetState(ctx, StateKeyCheckpointTotal); err == nil {
		fmt.Sscanf(v, "%d", &cp.Total)
	}
	if v, err := s.GetState(ctx, StateKeyCheckpointEmbedded); err == nil {
		fmt.Sscanf(v, "%d", &cp.EmbeddedCount)
	}
	if v, err := s.GetState(ctx, StateKeyCheckpointEmbedderModel); err == nil {
		cp.EmbedderModel = v
	}
	if v, err := s.GetState(ctx, StateKeyCheckpointTimestamp); err == nil {
		var unix int64
		fmt.Sscanf(v, "%d", &unix)
		cp.Timestamp = time.Unix(unix, 0)
	}

	return cp, nil
}

// ClearIndexCheckpoint removes the saved checkpoint after a successful run.
func (s *SQLiteMetadataStore) ClearIndexCheckpoint(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM metadata WHERE key IN (?, ?, ?, ?, ?)
	`, StateKeyCheckpointStage, StateKeyCheckpointTotal, StateKeyCheckpointEmbedded,
		StateKeyCheckpointEmbedderModel, StateKeyCheckpointTimestamp)
	return err
}

// Close closes the underlying database, checkpointing WAL first.
func (s *SQLiteMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*File, error) {
	f := &File{}
	var modTime, indexedAt int64
	if err := row.Scan(&f.ID, &f.ProjectID, &f.Path, &f.Size, &modTime, &f.ContentHash,
		&f.Language, &f.ContentType, &indexedAt); err != nil {
		return nil, err
	}
	f.ModTime = time.Unix(modTime, 0)
	f.IndexedAt = time.Unix(indexedAt, 0)
	return f, nil
}

func scanFileRows(rows *sql.Rows) (*File, error) {
	return scanFile(rows)
}

func scanChunk(rows *sql.Rows) (*Chunk, error) {
	c := &Chunk{}
	var contentType, metaRaw string
	var createdAt, updatedAt int64
	if err := rows.Scan(&c.ID, &c.FileID, &c.FilePath, &c.Content, &c.RawContent, &c.Breadcrumb,
		&contentType, &c.Language, &c.StartLine, &c.EndLine, &c.StartByte, &c.EndByte,
		&metaRaw, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.ContentType = ContentType(contentType)
	c.Metadata = decodeMetadata(metaRaw)
	c.CreatedAt = time.Unix(createdAt, 0)
	c.UpdatedAt = time.Unix(updatedAt, 0)
	return c, nil
}

func encodeMetadata(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	var b strings.Builder
	first := true
	for k, v := range m {
		if !first {
			b.WriteByte('\x1f')
		}
		first = false
		b.WriteString(k)
		b.WriteByte('\x1e')
		b.WriteString(v)
	}
	return b.String()
}

func decodeMetadata(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	m := make(map[string]string)
	for _, pair := range strings.Split(raw, "\x1f") {
		kv := strings.SplitN(pair, "\x1e", 2)
		if len(kv) == 2 {
			m[kv[0]] = kv[1]
		}
	}
	return m
}
