package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"nexus/internal/graph"
	"nexus/internal/pipeline"
	"nexus/internal/registry"
	"nexus/internal/translate"
	"nexus/pkg/logging"
)

// ErrNotFound marks lookups whose subject has no row.
var ErrNotFound = errors.New("not found")

// Store is the SQLite persistence layer shared by the registry, the
// capability graph, the translation engine, and pipeline history. One file
// holds everything; WAL mode keeps concurrent broker reads cheap.
type Store struct {
	db *sql.DB
}

var (
	_ registry.Store           = (*Store)(nil)
	_ graph.EdgeStore          = (*Store)(nil)
	_ translate.SpecStore      = (*Store)(nil)
	_ pipeline.HistoryRecorder = (*Store)(nil)
)

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logging.Debug("Store", "Database ready at %s", path)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// timeLayout is fixed-width so lexicographic order on TEXT timestamp
// columns matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// scanTime parses a stored timestamp. Empty and malformed values degrade to
// the zero time.
func scanTime(text string) time.Time {
	if text == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return time.Time{}
	}
	return t
}

// jsonText renders v as a JSON TEXT column value. Marshal failures store an
// empty document.
func jsonText(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// decodeJSON fills v from a stored document. Empty and malformed documents
// leave v untouched.
func decodeJSON(text string, v interface{}) {
	if text == "" {
		return
	}
	_ = json.Unmarshal([]byte(text), v)
}
