package main

import (
	"log"
	"sync"

	"github.com/vincentbai/browsetrace-replay/internal/clock"
	"github.com/vincentbai/browsetrace-replay/internal/database"
	"github.com/vincentbai/browsetrace-replay/internal/models"
	"github.com/vincentbai/browsetrace-replay/internal/playback"
	"github.com/vincentbai/browsetrace-replay/internal/surface"
)

// journalReplayer replays each delivered log into a fresh headless document
// and journals the mutations of the run.
type journalReplayer struct {
	db    *database.Database
	speed float64
	clock clock.Clock

	mu     sync.Mutex
	active map[string]*activeRun
}

type activeRun struct {
	player   *playback.Player
	recorder *database.RunRecorder
}

func newJournalReplayer(db *database.Database, speed float64) *journalReplayer {
	return &journalReplayer{
		db:     db,
		speed:  speed,
		clock:  clock.Real{},
		active: make(map[string]*activeRun),
	}
}

// Replay starts a run for events and returns its id. Empty logs are not
// replayed.
func (r *journalReplayer) Replay(events models.Log, dimension models.Dimension) string {
	if len(events) == 0 {
		log.Printf("level=info msg=\"skipping replay of empty log\"")
		return ""
	}
	run, err := r.db.StartRun(events, r.speed)
	if err != nil {
		log.Printf("level=error msg=\"failed to start replay run\" err=%v", err)
		return ""
	}

	recorder := r.db.NewRunRecorder(run.ID)
	player := playback.NewPlayer(r.clock,
		playback.WithRecorder(recorder),
		playback.WithOnComplete(func() { r.finish(run.ID) }),
	)

	r.mu.Lock()
	r.active[run.ID] = &activeRun{player: player, recorder: recorder}
	r.mu.Unlock()

	document := surface.NewDocument(dimension)
	player.Init(playback.Retarget(events, document.Adopt), document, &dimension)
	log.Printf("level=info msg=\"replay started\" run=%s events=%d speed=%g", run.ID, run.EventCount, run.Speed)
	player.Play(0, r.speed)
	return run.ID
}

func (r *journalReplayer) finish(runID string) {
	r.mu.Lock()
	active, ok := r.active[runID]
	delete(r.active, runID)
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := active.recorder.Flush(); err != nil {
		log.Printf("level=error msg=\"failed to journal replay\" run=%s err=%v", runID, err)
		return
	}
	log.Printf("level=info msg=\"replay journaled\" run=%s", runID)
}

// Stop halts every running replay and journals what it applied so far.
func (r *journalReplayer) Stop() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.active))
	for id, active := range r.active {
		active.player.Stop()
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.finish(id)
	}
}
