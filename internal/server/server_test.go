package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/vincentbai/browsetrace-replay/internal/capture"
	"github.com/vincentbai/browsetrace-replay/internal/database"
	"github.com/vincentbai/browsetrace-replay/internal/models"
	"github.com/vincentbai/browsetrace-replay/internal/surface"
)

func setupTestServer(t *testing.T) (*Server, *capture.Engine) {
	t.Helper()

	document := surface.NewDocument(models.Dimension{Width: 1280, Height: 720})
	engine := capture.New(document, capture.DefaultOptions(), nil)
	engine.Init()

	server := NewServer(document, nil, "127.0.0.1:0") // Port 0 for testing
	return server, engine
}

func setupTestDatabase(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func postBatch(t *testing.T, server *Server, batch models.Batch) *http.Response {
	t.Helper()

	jsonData, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("Failed to marshal batch: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(jsonData))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.handleEvents(w, req)
	return w.Result()
}

func intPtr(v int) *int { return &v }

func TestNewServer(t *testing.T) {
	server, _ := setupTestServer(t)

	if server == nil {
		t.Fatal("Expected non-nil server")
	}
	if server.document == nil {
		t.Fatal("Expected non-nil document")
	}
	if server.address != "127.0.0.1:0" {
		t.Errorf("Expected address 127.0.0.1:0, got %s", server.address)
	}
}

func TestHandleHealthz(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	server.handleHealthz(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if body := w.Body.String(); body != "ok" {
		t.Errorf("Expected body 'ok', got %s", body)
	}
}

func TestHandleEventsSuccess(t *testing.T) {
	server, engine := setupTestServer(t)

	resp := postBatch(t, server, models.Batch{Events: []models.WireEvent{
		{Type: models.Click, ClientX: 100, ClientY: 200, Which: 1, Target: &models.WireTarget{ID: "save", NodeName: "BUTTON"}},
	}})

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.StatusCode)
	}
	events := engine.Events()
	if len(events) != 1 || events[0].Type != models.Click {
		t.Fatalf("Expected one click captured, got %+v", events)
	}
	if events[0].Target.NodeName() != "BUTTON" {
		t.Errorf("Expected BUTTON target, got %s", events[0].Target.NodeName())
	}
}

func TestHandleEventsAppliesPageState(t *testing.T) {
	server, engine := setupTestServer(t)

	resp := postBatch(t, server, models.Batch{Events: []models.WireEvent{
		{Type: models.Scroll, ScrollX: intPtr(0), ScrollY: intPtr(480)},
		{Type: models.KeyUp, KeyCode: 65, Key: "a", Target: &models.WireTarget{ID: "q", NodeName: "INPUT", Type: "search", Value: "a"}},
		{Type: models.Change, Target: &models.WireTarget{ID: "size", NodeName: "SELECT", SelectedIndex: intPtr(1)}},
		{Type: models.Resize, Viewport: &models.Dimension{Width: 640, Height: 480}},
		{Type: models.Click, ClientX: 10, ClientY: 10},
	}})

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.StatusCode)
	}
	events := engine.Events()
	if len(events) != 5 {
		t.Fatalf("Expected 5 events, got %d", len(events))
	}
	if v := events[0].Value.(models.ScrollValue); v.Y != 480 {
		t.Errorf("Expected scroll y 480, got %d", v.Y)
	}
	if v := events[1].Value.(models.KeyValue); v.Value != "a" {
		t.Errorf("Expected field value a, got %q", v.Value)
	}
	if v := events[2].Value.(models.ChangeValue); v.SelectedIndex == nil || *v.SelectedIndex != 1 {
		t.Errorf("Expected selected index 1, got %+v", v)
	}
	if v := events[3].Value.(models.ResizeValue); v.Width != 640 || v.Height != 480 {
		t.Errorf("Expected 640x480, got %+v", v)
	}
	if v := events[4].Value.(models.PointerValue); v.Y != 490 {
		t.Errorf("Expected click y offset by scroll to 490, got %d", v.Y)
	}
}

func TestHandleEventsMethodNotAllowed(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()

	server.handleEvents(w, req)

	if resp := w.Result(); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", resp.StatusCode)
	}
}

func TestHandleEventsInvalidJSON(t *testing.T) {
	server, _ := setupTestServer(t)

	invalidJSON := []byte(`{"events": [invalid json]}`)
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(invalidJSON))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.handleEvents(w, req)

	if resp := w.Result(); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestHandleEventsEmptyBatch(t *testing.T) {
	server, engine := setupTestServer(t)

	resp := postBatch(t, server, models.Batch{Events: []models.WireEvent{}})

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.StatusCode)
	}
	if len(engine.Events()) != 0 {
		t.Errorf("Expected nothing captured, got %d", len(engine.Events()))
	}
}

func TestHandleEventsInvalidEvent(t *testing.T) {
	tests := []struct {
		name  string
		event models.WireEvent
	}{
		{"empty type", models.WireEvent{Type: ""}},
		{"target without id", models.WireEvent{Type: models.Click, Target: &models.WireTarget{NodeName: "A"}}},
		{"target without node name", models.WireEvent{Type: models.Click, Target: &models.WireTarget{ID: "nav"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, engine := setupTestServer(t)

			resp := postBatch(t, server, models.Batch{Events: []models.WireEvent{
				{Type: models.Click},
				tt.event,
			}})

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", resp.StatusCode)
			}
			if len(engine.Events()) != 0 {
				t.Errorf("Expected batch to be rejected as a whole, got %d events", len(engine.Events()))
			}
		})
	}
}

func TestHandleEventsUnknownTypeIsDropped(t *testing.T) {
	server, engine := setupTestServer(t)

	resp := postBatch(t, server, models.Batch{Events: []models.WireEvent{{Type: "wheel"}}})

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.StatusCode)
	}
	if len(engine.Events()) != 0 {
		t.Errorf("Expected unknown type to be dropped, got %d events", len(engine.Events()))
	}
}

func TestSetupRoutes(t *testing.T) {
	server, _ := setupTestServer(t)

	mux := server.setupRoutes()
	if mux == nil {
		t.Fatal("Expected non-nil ServeMux")
	}

	tests := []struct {
		path   string
		method string
		status int
	}{
		{"/healthz", http.MethodGet, http.StatusOK},
		{"/events", http.MethodGet, http.StatusMethodNotAllowed}, // Only POST allowed
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d for %s %s, got %d", tt.status, tt.method, tt.path, w.Code)
			}
		})
	}
}

func TestHandleEventsContentType(t *testing.T) {
	server, engine := setupTestServer(t)

	jsonData, _ := json.Marshal(models.Batch{Events: []models.WireEvent{{Type: models.Submit}}})
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(jsonData))
	// Not setting Content-Type header to test robustness
	w := httptest.NewRecorder()

	server.handleEvents(w, req)

	if resp := w.Result(); resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.StatusCode)
	}
	if len(engine.Events()) != 1 {
		t.Errorf("Expected submit captured, got %d events", len(engine.Events()))
	}
}

func TestHandleEventsConcurrentBatchesKeepTheirPageState(t *testing.T) {
	server, engine := setupTestServer(t)

	const posts = 300
	scrollFor := map[string]int{"a": 1000, "b": 0}

	var wg sync.WaitGroup
	for id, scrollY := range scrollFor {
		wg.Add(1)
		go func(id string, scrollY int) {
			defer wg.Done()
			jsonData, err := json.Marshal(models.Batch{Events: []models.WireEvent{
				{Type: models.Click, ClientX: 5, ClientY: 5, ScrollY: intPtr(scrollY), Target: &models.WireTarget{ID: id, NodeName: "BUTTON"}},
			}})
			if err != nil {
				t.Errorf("Failed to marshal batch: %v", err)
				return
			}
			for i := 0; i < posts; i++ {
				req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(jsonData))
				w := httptest.NewRecorder()
				server.handleEvents(w, req)
				if w.Code != http.StatusNoContent {
					t.Errorf("Expected status 204, got %d", w.Code)
					return
				}
			}
		}(id, scrollY)
	}
	wg.Wait()

	events := engine.Events()
	if len(events) != 2*posts {
		t.Fatalf("Expected %d events, got %d", 2*posts, len(events))
	}
	mismatched := 0
	for _, event := range events {
		id := event.Target.(*surface.Node).ID()
		if event.Value.(models.PointerValue).Y != 5+scrollFor[id] {
			mismatched++
		}
	}
	if mismatched != 0 {
		t.Errorf("Expected every click to use its own batch's scroll, %d did not", mismatched)
	}
}

func TestHandleRun(t *testing.T) {
	document := surface.NewDocument(models.Dimension{})
	db := setupTestDatabase(t)
	server := NewServer(document, db, "127.0.0.1:0")
	mux := server.setupRoutes()

	run, err := db.StartRun(models.Log{{Type: models.Click, ElapsedMs: 40}}, 2)
	if err != nil {
		t.Fatalf("Failed to start run: %v", err)
	}
	recorder := db.NewRunRecorder(run.ID)
	recorder.Record(models.Mutation{Seq: 1, EventType: models.Click, Kind: models.MutationPointer, X: 3, Y: 4})
	recorder.Record(models.Mutation{Seq: 2, EventType: models.Click, Kind: models.MutationMarker, X: 3, Y: 4, Label: "1"})
	if err := recorder.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var body runResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Run != run {
		t.Errorf("Expected run %+v, got %+v", run, body.Run)
	}
	if len(body.Mutations) != 2 || body.Mutations[1].Label != "1" || body.Mutations[0].RunID != run.ID {
		t.Errorf("Unexpected mutations %+v", body.Mutations)
	}
}

func TestHandleRunErrors(t *testing.T) {
	document := surface.NewDocument(models.Dimension{})
	server := NewServer(document, setupTestDatabase(t), "127.0.0.1:0")
	mux := server.setupRoutes()

	tests := []struct {
		name   string
		method string
		status int
	}{
		{"missing run", http.MethodGet, http.StatusNotFound},
		{"wrong method", http.MethodPost, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/runs/missing", nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestRunRoutesDisabledWithoutStore(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/runs/anything", nil)
	w := httptest.NewRecorder()
	server.setupRoutes().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
