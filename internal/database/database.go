package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vincentbai/browsetrace-replay/internal/models"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

var (
	ErrEmptyRunID      = errors.New("run id cannot be empty")
	ErrEmptyEventType  = errors.New("event type cannot be empty")
	ErrInvalidSequence = errors.New("sequence must be positive")
	ErrRunNotFound     = errors.New("run not found")
)

// Database journals the mutations produced by replay runs.
type Database struct {
	db                *sql.DB
	validMutationKind map[models.MutationKind]bool
}

// Run is one replay of a delivered log.
type Run struct {
	ID         string  `json:"id"`
	StartedUTC int64   `json:"started_utc"`
	Speed      float64 `json:"speed"`
	EventCount int     `json:"event_count"`
	ElapsedMs  int64   `json:"elapsed_ms"`
}

// mutationData is the kind-specific part of a mutation stored as JSON.
type mutationData struct {
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Value  string `json:"value,omitempty"`
	Label  string `json:"label,omitempty"`
}

func NewDatabase(databasePath string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{
		db: db,
		validMutationKind: map[models.MutationKind]bool{
			models.MutationPointer:   true,
			models.MutationMarker:    true,
			models.MutationInputType: true,
			models.MutationValue:     true,
			models.MutationSelect:    true,
			models.MutationScroll:    true,
			models.MutationResize:    true,
		},
	}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS replay_runs(
	  id          TEXT    PRIMARY KEY,
	  started_utc INTEGER NOT NULL,
	  speed       REAL    NOT NULL,
	  event_count INTEGER NOT NULL,
	  elapsed_ms  INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS mutations(
	  id          INTEGER PRIMARY KEY,
	  run_id      TEXT    NOT NULL REFERENCES replay_runs(id),
	  seq         INTEGER NOT NULL,
	  event_index INTEGER NOT NULL,
	  event_type  TEXT    NOT NULL,
	  kind        TEXT    NOT NULL CHECK (kind IN ('pointer','marker','input_type','value','select','scroll','resize')),
	  data_json   TEXT    NOT NULL CHECK (json_valid(data_json))
	);
	CREATE INDEX IF NOT EXISTS idx_mutations_run  ON mutations(run_id, seq);
	CREATE INDEX IF NOT EXISTS idx_mutations_kind ON mutations(kind);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// StartRun registers a replay run of events at speed and returns it.
func (d *Database) StartRun(events models.Log, speed float64) (Run, error) {
	run := Run{
		ID:         uuid.NewString(),
		StartedUTC: time.Now().UTC().UnixMilli(),
		Speed:      speed,
		EventCount: len(events),
		ElapsedMs:  events.TotalElapsedMs(),
	}
	_, err := d.db.Exec(`INSERT INTO replay_runs(id, started_utc, speed, event_count, elapsed_ms) VALUES(?,?,?,?,?)`,
		run.ID, run.StartedUTC, run.Speed, run.EventCount, run.ElapsedMs)
	if err != nil {
		return Run{}, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// GetRun loads a run by id.
func (d *Database) GetRun(id string) (Run, error) {
	var run Run
	err := d.db.QueryRow(`SELECT id, started_utc, speed, event_count, elapsed_ms FROM replay_runs WHERE id = ?`, id).
		Scan(&run.ID, &run.StartedUTC, &run.Speed, &run.EventCount, &run.ElapsedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("failed to load run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return run, nil
}

func (d *Database) ValidateMutation(mutation models.Mutation) error {
	if mutation.RunID == "" {
		return ErrEmptyRunID
	}
	if mutation.EventType == "" {
		return ErrEmptyEventType
	}
	if !d.validMutationKind[mutation.Kind] {
		return fmt.Errorf("invalid mutation kind: %s", mutation.Kind)
	}
	if mutation.Seq <= 0 {
		return ErrInvalidSequence
	}
	return nil
}

// InsertMutations stores mutations in one transaction; any invalid
// mutation rolls back the whole batch.
func (d *Database) InsertMutations(mutations []models.Mutation) error {
	transaction, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	statement, err := transaction.Prepare(`INSERT INTO mutations(run_id, seq, event_index, event_type, kind, data_json) VALUES(?,?,?,?,?,json(?))`)
	if err != nil {
		_ = transaction.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer statement.Close()

	for _, mutation := range mutations {
		if err := d.ValidateMutation(mutation); err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("invalid mutation: %w", err)
		}

		jsonData, err := json.Marshal(mutationData{
			X:      mutation.X,
			Y:      mutation.Y,
			Width:  mutation.Width,
			Height: mutation.Height,
			Value:  mutation.Value,
			Label:  mutation.Label,
		})
		if err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("failed to marshal mutation data: %w", err)
		}
		if _, err := statement.Exec(mutation.RunID, mutation.Seq, mutation.EventIndex, string(mutation.EventType), string(mutation.Kind), string(jsonData)); err != nil {
			_ = transaction.Rollback()
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Mutations returns the journal of a run in application order.
func (d *Database) Mutations(runID string) ([]models.Mutation, error) {
	rows, err := d.db.Query(`SELECT seq, event_index, event_type, kind, data_json FROM mutations WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutations: %w", err)
	}
	defer rows.Close()

	var mutations []models.Mutation
	for rows.Next() {
		var (
			mutation  models.Mutation
			eventType string
			kind      string
			dataJSON  string
			data      mutationData
		)
		if err := rows.Scan(&mutation.Seq, &mutation.EventIndex, &eventType, &kind, &dataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan mutation: %w", err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal mutation data: %w", err)
		}
		mutation.RunID = runID
		mutation.EventType = models.EventType(eventType)
		mutation.Kind = models.MutationKind(kind)
		mutation.X, mutation.Y = data.X, data.Y
		mutation.Width, mutation.Height = data.Width, data.Height
		mutation.Value, mutation.Label = data.Value, data.Label
		mutations = append(mutations, mutation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mutations: %w", err)
	}
	return mutations, nil
}

// RunRecorder buffers the mutations of one run until Flush.
type RunRecorder struct {
	db    *Database
	runID string

	mu      sync.Mutex
	pending []models.Mutation
}

func (d *Database) NewRunRecorder(runID string) *RunRecorder {
	return &RunRecorder{db: d, runID: runID}
}

func (r *RunRecorder) Record(mutation models.Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mutation.RunID = r.runID
	r.pending = append(r.pending, mutation)
}

// Flush writes the buffered mutations. The buffer is kept when the write
// fails so a later Flush can retry.
func (r *RunRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.db.InsertMutations(r.pending); err != nil {
		return err
	}
	r.pending = nil
	return nil
}
