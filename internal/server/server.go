package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/vincentbai/browsetrace-replay/internal/database"
	"github.com/vincentbai/browsetrace-replay/internal/models"
	"github.com/vincentbai/browsetrace-replay/internal/surface"
)

// RunStore reads back journaled replay runs.
type RunStore interface {
	GetRun(id string) (database.Run, error)
	Mutations(runID string) ([]models.Mutation, error)
}

// Server feeds raw events posted by a page shim into a headless document
// and serves the replay journal.
type Server struct {
	document *surface.Document
	runs     RunStore
	address  string
	server   *http.Server

	// mu keeps a batch's page state and its dispatch together; the
	// document only holds the state of the last applied event.
	mu sync.Mutex
}

// NewServer creates a server for document. A nil runs disables the run
// endpoints.
func NewServer(document *surface.Document, runs RunStore, address string) *Server {
	return &Server{
		document: document,
		runs:     runs,
		address:  address,
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleEvents(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var batch models.Batch
	if err := json.NewDecoder(request.Body).Decode(&batch); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	for i, event := range batch.Events {
		if err := validateEvent(event); err != nil {
			http.Error(w, fmt.Sprintf("Invalid event %d: %v", i, err), http.StatusBadRequest)
			return
		}
	}
	s.mu.Lock()
	for _, event := range batch.Events {
		s.document.Dispatch(s.rawEvent(event))
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent) // success, no body
}

type runResponse struct {
	Run       database.Run      `json:"run"`
	Mutations []models.Mutation `json:"mutations"`
}

func (s *Server) handleRun(w http.ResponseWriter, request *http.Request) {
	id := request.PathValue("id")
	run, err := s.runs.GetRun(id)
	if errors.Is(err, database.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("level=error msg=\"failed to load run\" run=%s err=%v", id, err)
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}
	mutations, err := s.runs.Mutations(id)
	if err != nil {
		log.Printf("level=error msg=\"failed to load mutations\" run=%s err=%v", id, err)
		http.Error(w, "Failed to load mutations", http.StatusInternalServerError)
		return
	}
	if mutations == nil {
		mutations = []models.Mutation{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(runResponse{Run: run, Mutations: mutations}); err != nil {
		log.Printf("level=error msg=\"failed to write run\" run=%s err=%v", id, err)
	}
}

func validateEvent(event models.WireEvent) error {
	if event.Type == "" {
		return fmt.Errorf("type cannot be empty")
	}
	if event.Target != nil && event.Target.ID == "" {
		return fmt.Errorf("target id cannot be empty")
	}
	if event.Target != nil && event.Target.NodeName == "" {
		return fmt.Errorf("target node_name cannot be empty")
	}
	return nil
}

// rawEvent applies the page state carried by event to the document and
// resolves its target.
func (s *Server) rawEvent(event models.WireEvent) models.RawEvent {
	if event.ScrollX != nil || event.ScrollY != nil {
		x, y := s.document.ScrollOffset()
		if event.ScrollX != nil {
			x = *event.ScrollX
		}
		if event.ScrollY != nil {
			y = *event.ScrollY
		}
		s.document.SetScrollOffset(x, y)
	}
	if event.Viewport != nil {
		s.document.SetViewport(*event.Viewport)
	}
	if event.Angle != nil {
		s.document.SetOrientationAngle(*event.Angle)
	}

	raw := models.RawEvent{
		Type:      event.Type,
		ClientX:   event.ClientX,
		ClientY:   event.ClientY,
		KeyCode:   event.KeyCode,
		Which:     event.Which,
		Button:    event.Button,
		Key:       event.Key,
		Clipboard: event.Clipboard,
		Scale:     event.Scale,
	}
	if event.Target != nil {
		raw.Target = s.element(*event.Target)
	}
	return raw
}

func (s *Server) element(target models.WireTarget) *surface.Node {
	node := s.document.Element(target.ID, target.NodeName)
	if target.Type != "" {
		node.SetAttr("type", target.Type)
	}
	if target.Target != "" {
		node.SetAttr("target", target.Target)
	}
	node.SetValue(target.Value)
	node.SetChecked(target.Checked)
	if target.SelectedIndex != nil {
		node.SetSelectedIndex(*target.SelectedIndex)
	}
	return node
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/events", s.handleEvents)
	if s.runs != nil {
		mux.HandleFunc("GET /runs/{id}", s.handleRun)
	}
	return mux
}

func (s *Server) Start() error {
	mux := s.setupRoutes()
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)

	serveErrors := make(chan error, 1)
	go func() {
		log.Printf("BrowserTrace replay agent listening on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrors <- err
		}
	}()

	select {
	case err := <-serveErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case <-shutdownChannel:
	}
	log.Println("Shutting down server...")

	shutdownContext, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownContext); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited")
	return nil
}
