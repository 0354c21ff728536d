// Package dashboard provides a WebSocket server broadcasting sync activity.
//
// The server pushes sweep completions, document reloads and failed-sync
// ledger entries to connected clients, and exposes the ledger over plain
// HTTP for the manual reconciliation tooling.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	wsync "github.com/DustinBergman/workout-app-sub001/internal/sync"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeSweepComplete indicates a full document sweep finished
	MessageTypeSweepComplete MessageType = "sweep_complete"

	// MessageTypeLedgerEntry indicates a sync attempt was refused and
	// recorded in the failed-sync ledger
	MessageTypeLedgerEntry MessageType = "ledger_entry"

	// MessageTypeDocumentLoaded indicates the local document was reloaded
	MessageTypeDocumentLoaded MessageType = "document_loaded"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SweepCompleteData contains sweep completion information
type SweepCompleteData struct {
	Templates       int           `json:"templates"`
	TemplatesFailed int           `json:"templates_failed"`
	Sessions        int           `json:"sessions"`
	SessionsFailed  int           `json:"sessions_failed"`
	Exercises       int           `json:"exercises"`
	WeightEntries   int           `json:"weight_entries"`
	Duration        time.Duration `json:"duration"`
}

// DocumentLoadedData contains document reload information
type DocumentLoadedData struct {
	Version   int `json:"version"`
	Templates int `json:"templates"`
	Sessions  int `json:"sessions"`
}

// Server manages WebSocket connections and broadcasts dashboard messages
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	ledger   *wsync.Ledger

	// WebSocket client management
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Logging
	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Port to listen on (default: 8090)
	Port int

	// Logger for server activity (default: process default logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:   8090,
		Logger: log.Default(),
	}
}

// NewServer creates a new dashboard WebSocket server. The ledger may be nil
// if no failed-sync ledger should be exposed.
func NewServer(config *Config, ledger *wsync.Ledger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      fmt.Sprintf(":%d", config.Port),
		ledger:    ledger,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ledger", s.handleLedger)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", s.addr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	s.cancel()

	// Close all WebSocket connections
	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// BroadcastSweep is a convenience wrapper broadcasting a sweep result.
func (s *Server) BroadcastSweep(res wsync.SweepResult, elapsed time.Duration) {
	data, err := json.Marshal(SweepCompleteData{
		Templates:       res.Templates,
		TemplatesFailed: res.TemplatesFailed,
		Sessions:        res.Sessions,
		SessionsFailed:  res.SessionsFailed,
		Exercises:       res.Exercises,
		WeightEntries:   res.WeightEntries,
		Duration:        elapsed,
	})
	if err != nil {
		s.logger.Printf("Failed to marshal sweep data: %v", err)
		return
	}
	s.Broadcast(Message{Type: MessageTypeSweepComplete, Data: data})
}

// BroadcastLedgerEntry broadcasts a failed-sync ledger entry as it is
// recorded. Wire it up via Ledger.OnAppend.
func (s *Server) BroadcastLedgerEntry(e wsync.Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		s.logger.Printf("Failed to marshal ledger entry: %v", err)
		return
	}
	s.Broadcast(Message{Type: MessageTypeLedgerEntry, Data: data})
}

// BroadcastDocumentLoaded broadcasts that the local document was reloaded.
func (s *Server) BroadcastDocumentLoaded(version, templates, sessions int) {
	data, err := json.Marshal(DocumentLoadedData{
		Version:   version,
		Templates: templates,
		Sessions:  sessions,
	})
	if err != nil {
		s.logger.Printf("Failed to marshal document data: %v", err)
		return
	}
	s.Broadcast(Message{Type: MessageTypeDocumentLoaded, Data: data})
}

// broadcastLoop handles message broadcasting to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			// Send to clients (outside read lock to avoid blocking broadcasts)
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Allow all origins for development
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	go s.readLoop(conn)
}

// readLoop keeps the WebSocket connection alive and handles client disconnects
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		_, _, err := conn.Read(s.ctx)
		if err != nil {
			return
		}
		// We don't process client messages, just keep connection alive
	}
}

// removeClient safely removes a client connection
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	clientCount := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": clientCount,
	})
}

// handleLedger serves the failed-sync ledger, oldest entry first.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		http.Error(w, "no ledger configured", http.StatusNotFound)
		return
	}

	entries, err := s.ledger.Entries()
	if err != nil {
		s.logger.Printf("Failed to read ledger: %v", err)
		http.Error(w, "failed to read ledger", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []wsync.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

// handleRoot returns basic server information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Workout Sync Dashboard</title>
</head>
<body>
    <h1>Workout Sync Dashboard</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Health check: <a href="/health">/health</a></p>
    <p>Failed-sync ledger: <a href="/ledger">/ledger</a></p>
    <p>Connect a WebSocket client to receive real-time sync events.</p>
</body>
</html>`, r.Host)
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
