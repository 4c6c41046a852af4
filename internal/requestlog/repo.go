package requestlog

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Repo manages rolling SQLite databases for resolution logs.
// Each DB is named resolution_logs-<unix_ms>.db and lives in logDir.
type Repo struct {
	logDir      string
	maxBytes    int64
	retainCount int

	// Active DB handle and path.
	activeDB   *sql.DB
	activePath string
}

// NewRepo creates a Repo that manages rolling resolution log databases.
// maxBytes controls when the active DB is rotated; retainCount sets
// how many historical DB files are kept.
func NewRepo(logDir string, maxBytes int64, retainCount int) *Repo {
	if maxBytes <= 0 {
		maxBytes = 256 * 1024 * 1024 // 256 MB default
	}
	if retainCount <= 0 {
		retainCount = 5
	}
	return &Repo{
		logDir:      logDir,
		maxBytes:    maxBytes,
		retainCount: retainCount,
	}
}

// Open opens (or creates) the active resolution log database.
// If a previous DB exists in the directory it is reused as active;
// a new one is created only when no existing DB is found.
func (r *Repo) Open() error {
	if err := os.MkdirAll(r.logDir, 0o755); err != nil {
		return fmt.Errorf("requestlog repo mkdir %s: %w", r.logDir, err)
	}

	files, err := r.listDBFiles()
	if err != nil {
		return fmt.Errorf("requestlog repo open: %w", err)
	}

	if len(files) > 0 {
		// Re-use latest as active; prune old files on startup.
		latest := files[len(files)-1]
		if err := r.openDB(latest); err != nil {
			return err
		}
		return r.cleanup()
	}
	return r.rotateDB()
}

// Close closes the active DB.
func (r *Repo) Close() error {
	if r.activeDB != nil {
		err := r.activeDB.Close()
		r.activeDB = nil
		r.activePath = ""
		return err
	}
	return nil
}

// LogRow is one completed resolution ready for DB insertion.
type LogRow struct {
	ID          string `json:"id"`
	TsNs        int64  `json:"ts_ns"`
	ClientIP    string `json:"client_ip"`
	SourceURL   string `json:"source_url"`
	SourceHost  string `json:"source_host"`
	Platform    string `json:"platform"`
	Fingerprint string `json:"fingerprint"`
	Method      string `json:"method"`
	Outcome     string `json:"outcome"`
	ErrorKind   string `json:"error_kind"`
	CacheHit    bool   `json:"cache_hit"`
	ProxyUsed   string `json:"proxy_used"`
	Attempts    int    `json:"attempts"`
	DurationNs  int64  `json:"duration_ns"`
}

// InsertBatch inserts a batch of log rows in a single transaction.
// Returns the number of rows successfully inserted.
func (r *Repo) InsertBatch(rows []LogRow) (int, error) {
	if r.activeDB == nil {
		return 0, fmt.Errorf("requestlog repo: no active db")
	}

	// Check if rotation is needed before insert.
	if err := r.maybeRotate(); err != nil {
		return 0, fmt.Errorf("requestlog repo rotate: %w", err)
	}

	tx, err := r.activeDB.Begin()
	if err != nil {
		return 0, fmt.Errorf("requestlog repo begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO resolution_logs (
		id, ts_ns, client_ip, source_url, source_host, platform,
		fingerprint, method, outcome, error_kind, cache_hit,
		proxy_used, attempts, duration_ns
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("requestlog repo prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range rows {
		e := &rows[i]
		_, err := stmt.Exec(
			e.ID, e.TsNs, e.ClientIP, e.SourceURL, e.SourceHost, e.Platform,
			e.Fingerprint, e.Method, e.Outcome, e.ErrorKind, boolToInt(e.CacheHit),
			e.ProxyUsed, e.Attempts, e.DurationNs,
		)
		if err != nil {
			log.Printf("[requestlog] warning: skip log row id=%q insert failed: %v", e.ID, err)
			continue // skip individual row errors
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("requestlog repo commit: %w", err)
	}
	return inserted, nil
}

// ListFilter specifies query filters for listing logs.
type ListFilter struct {
	Platform   string
	Outcome    string
	ErrorKind  string
	SourceHost string
	CacheHit   *int  // 0/1 filter
	Before     int64 // ts_ns < Before (0 means no upper bound)
	After      int64 // ts_ns > After (0 means no lower bound)
	Limit      int
	Offset     int
}

// List queries all retained DBs and returns matching rows ordered by ts_ns DESC.
func (r *Repo) List(f ListFilter) ([]LogRow, error) {
	files, err := r.listDBFiles()
	if err != nil {
		return nil, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 10000 {
		limit = 10000
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	// Fetch limit+offset total rows then skip first offset. Every retained
	// DB is queried and the results merge-sorted globally: row ts_ns can be
	// out-of-order relative to DB filename time (long resolutions flushed
	// after rotation).
	fetchLimit := limit + offset
	var results []LogRow
	for i := len(files) - 1; i >= 0; i-- {
		db, err := r.openReadOnly(files[i])
		if err != nil {
			log.Printf("[requestlog] warning: list open db failed path=%q: %v", files[i], err)
			continue
		}
		rows, err := r.queryLogs(db, f, fetchLimit)
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("[requestlog] warning: list close db failed path=%q: %v", files[i], closeErr)
		}
		if err != nil {
			log.Printf("[requestlog] warning: list query failed path=%q: %v", files[i], err)
			continue
		}
		results = append(results, rows...)
	}

	// ts_ns DESC, same ts_ns by id ASC.
	sort.Slice(results, func(i, j int) bool {
		if results[i].TsNs != results[j].TsNs {
			return results[i].TsNs > results[j].TsNs
		}
		return results[i].ID < results[j].ID
	})
	if offset >= len(results) {
		return nil, nil
	}
	results = results[offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetByID looks up a single log row across all retained DBs.
func (r *Repo) GetByID(id string) (*LogRow, error) {
	files, err := r.listDBFiles()
	if err != nil {
		return nil, err
	}

	for i := len(files) - 1; i >= 0; i-- {
		db, err := r.openReadOnly(files[i])
		if err != nil {
			log.Printf("[requestlog] warning: get_by_id open db failed path=%q id=%q: %v", files[i], id, err)
			continue
		}
		row, err := r.queryLogByID(db, id)
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("[requestlog] warning: get_by_id close db failed path=%q id=%q: %v", files[i], id, closeErr)
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			log.Printf("[requestlog] warning: get_by_id query failed path=%q id=%q: %v", files[i], id, err)
		}
		if err == nil && row != nil {
			return row, nil
		}
	}
	return nil, nil
}

// --- internal helpers ---

func (r *Repo) openDB(path string) error {
	db, err := OpenDB(path)
	if err != nil {
		return err
	}
	if err := MigrateDB(db); err != nil {
		db.Close()
		return err
	}
	r.activeDB = db
	r.activePath = path
	return nil
}

func (r *Repo) rotateDB() error {
	if r.activeDB != nil {
		r.activeDB.Close()
		r.activeDB = nil
	}
	name := fmt.Sprintf("resolution_logs-%d.db", time.Now().UnixMilli())
	path := filepath.Join(r.logDir, name)
	if err := r.openDB(path); err != nil {
		return fmt.Errorf("requestlog rotate: %w", err)
	}
	return r.cleanup()
}

func (r *Repo) maybeRotate() error {
	if r.activePath == "" {
		return r.rotateDB()
	}
	totalSize, err := sqliteFilesSize(r.activePath)
	if err != nil {
		log.Printf("[requestlog] warning: stat active db failed path=%q: %v", r.activePath, err)
		return nil // can't stat; skip rotation check
	}
	if totalSize >= r.maxBytes {
		return r.rotateDB()
	}
	return nil
}

func (r *Repo) cleanup() error {
	files, err := r.listDBFiles()
	if err != nil {
		return err
	}
	// Keep retainCount most recent files (the active one is always latest).
	if len(files) <= r.retainCount {
		return nil
	}
	toRemove := files[:len(files)-r.retainCount]
	for _, f := range toRemove {
		os.Remove(f)
		// Also clean up WAL/SHM files.
		os.Remove(f + "-wal")
		os.Remove(f + "-shm")
	}
	return nil
}

func (r *Repo) listDBFiles() ([]string, error) {
	entries, err := os.ReadDir(r.logDir)
	if err != nil {
		return nil, fmt.Errorf("requestlog list dir %s: %w", r.logDir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "resolution_logs-") && strings.HasSuffix(name, ".db") {
			files = append(files, filepath.Join(r.logDir, name))
		}
	}
	sort.Strings(files) // lexicographic sort == chronological for our naming
	return files, nil
}

func (r *Repo) openReadOnly(path string) (*sql.DB, error) {
	dsn := path + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

const logColumns = "id, ts_ns, client_ip, source_url, source_host, platform, fingerprint, method, outcome, error_kind, cache_hit, proxy_used, attempts, duration_ns"

func (r *Repo) queryLogs(db *sql.DB, f ListFilter, limit int) ([]LogRow, error) {
	var where []string
	var args []interface{}

	if f.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, f.Platform)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if f.ErrorKind != "" {
		where = append(where, "error_kind = ?")
		args = append(args, f.ErrorKind)
	}
	if f.SourceHost != "" {
		where = append(where, "source_host = ?")
		args = append(args, f.SourceHost)
	}
	if f.CacheHit != nil {
		where = append(where, "cache_hit = ?")
		args = append(args, *f.CacheHit)
	}
	if f.Before > 0 {
		where = append(where, "ts_ns < ?")
		args = append(args, f.Before)
	}
	if f.After > 0 {
		where = append(where, "ts_ns > ?")
		args = append(args, f.After)
	}

	q := "SELECT " + logColumns + " FROM resolution_logs"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY ts_ns DESC, id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLogRows(rows)
}

func (r *Repo) queryLogByID(db *sql.DB, id string) (*LogRow, error) {
	row := db.QueryRow("SELECT "+logColumns+" FROM resolution_logs WHERE id = ?", id)

	var s LogRow
	var cacheHit int
	err := row.Scan(
		&s.ID, &s.TsNs, &s.ClientIP, &s.SourceURL, &s.SourceHost, &s.Platform,
		&s.Fingerprint, &s.Method, &s.Outcome, &s.ErrorKind, &cacheHit,
		&s.ProxyUsed, &s.Attempts, &s.DurationNs,
	)
	if err != nil {
		return nil, err
	}
	s.CacheHit = cacheHit != 0
	return &s, nil
}

func scanLogRows(rows *sql.Rows) ([]LogRow, error) {
	var results []LogRow
	for rows.Next() {
		var s LogRow
		var cacheHit int
		err := rows.Scan(
			&s.ID, &s.TsNs, &s.ClientIP, &s.SourceURL, &s.SourceHost, &s.Platform,
			&s.Fingerprint, &s.Method, &s.Outcome, &s.ErrorKind, &cacheHit,
			&s.ProxyUsed, &s.Attempts, &s.DurationNs,
		)
		if err != nil {
			log.Printf("[requestlog] warning: skip malformed log row during scan: %v", err)
			continue
		}
		s.CacheHit = cacheHit != 0
		results = append(results, s)
	}
	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sqliteFilesSize returns the total size of a SQLite database set:
// base db file + optional -wal and -shm sidecar files.
func sqliteFilesSize(basePath string) (int64, error) {
	paths := []string{basePath, basePath + "-wal", basePath + "-shm"}
	var total int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
