package app

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session accumulates statistics over one application run
type Session struct {
	ID          string
	StartTime   time.Time
	EndTime     *time.Time
	BytesSent   int64
	BytesRecv   int64
	LogClears   int
	Connections int
	LastPort    string
	IsActive    bool
	mu          sync.RWMutex
}

// NewSession creates a new session
func NewSession() *Session {
	return &Session{
		ID:        generateSessionID(),
		StartTime: time.Now(),
		IsActive:  true,
	}
}

// Connected counts a connection attempt to port
func (s *Session) Connected(port string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Connections++
	s.LastPort = port
}

// UpdateStats updates session statistics
func (s *Session) UpdateStats(bytesSent, bytesRecv int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.BytesSent += bytesSent
	s.BytesRecv += bytesRecv
}

// RecordClears adds n to the number of times a Terminal log was wiped
func (s *Session) RecordClears(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LogClears += n
}

// GetStats returns session statistics
func (s *Session) GetStats() (bytesSent, bytesRecv int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.BytesSent, s.BytesRecv
}

// End marks the session as ended. Only the first call has an effect.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsActive {
		return
	}
	now := time.Now()
	s.EndTime = &now
	s.IsActive = false
}

// Duration returns the time between start and end, or until now while the
// session is active.
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// Summary renders the statistics printed after the UI closes
func (s *Session) Summary() string {
	sent, recv := s.GetStats()

	s.mu.RLock()
	id, connections, port, clears := s.ID, s.Connections, s.LastPort, s.LogClears
	s.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "=== Session Summary ===\n")
	fmt.Fprintf(&b, "Session: %s\n", id)
	fmt.Fprintf(&b, "Duration: %v\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "Connections: %d\n", connections)
	if port != "" {
		fmt.Fprintf(&b, "Last port: %s\n", port)
	}
	fmt.Fprintf(&b, "Bytes Sent: %d\n", sent)
	fmt.Fprintf(&b, "Bytes Received: %d\n", recv)
	fmt.Fprintf(&b, "Log clears: %d\n", clears)
	fmt.Fprintf(&b, "=======================\n")
	return b.String()
}

func generateSessionID() string {
	return uuid.NewString()
}
