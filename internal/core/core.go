// Package core wires the extraction, similarity, lifecycle, promotion,
// reminder, and assembly components behind the operation contracts exposed
// to any front end. All operations are synchronous call-and-return; the only
// blocking points are local file reads and writes.
package core

import (
	"math/rand"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/mnemo/internal/config"
	"github.com/rcliao/mnemo/internal/index"
	"github.com/rcliao/mnemo/internal/storage"
)

// File names inside the project data directory. The state record and index
// are machine-local and belong in version-control ignore lists; the three
// markdown stores are meant to be committed.
const (
	MemoryFile    = "memory.md"
	SessionFile   = "session.md"
	RemindersFile = "reminders.md"
	StateFile     = "state.json"
	IndexFile     = "index.db"
	ConfigFile    = "config.yaml"
)

// Engine is the session-continuity core for one project directory.
type Engine struct {
	dir     string
	cfg     config.Config
	log     *zap.Logger
	perm    *storage.PermanentStore
	buf     *storage.BufferStore
	rems    *storage.ReminderStore
	state   *storage.StateStore
	idx     *index.Index
	clock   func() time.Time
	entropy *rand.Rand

	// reparses counts full extractions of the permanent store, which the
	// idempotence guarantee makes observable.
	reparses int
}

// Open initializes an engine over the given data directory, creating the
// index database as needed. Missing store files are not an error; they read
// as empty.
func Open(dir string, cfg config.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	idx, err := index.Open(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, err
	}

	return &Engine{
		dir:     dir,
		cfg:     cfg,
		log:     logger,
		perm:    &storage.PermanentStore{Path: filepath.Join(dir, MemoryFile)},
		buf:     &storage.BufferStore{Path: filepath.Join(dir, SessionFile)},
		rems:    &storage.ReminderStore{Path: filepath.Join(dir, RemindersFile)},
		state:   &storage.StateStore{Path: filepath.Join(dir, StateFile)},
		idx:     idx,
		clock:   time.Now,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Close releases the index database.
func (e *Engine) Close() error {
	return e.idx.Close()
}

// SetClock overrides the engine clock. Tests use this to cross session
// boundaries without sleeping.
func (e *Engine) SetClock(now func() time.Time) {
	e.clock = now
}

// ReparseCount reports how many full permanent-store extractions this engine
// instance has performed.
func (e *Engine) ReparseCount() int {
	return e.reparses
}

func (e *Engine) newID() string {
	return ulid.MustNew(ulid.Timestamp(e.clock()), e.entropy).String()
}
