package server

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/MeKo-Tech/doctran/internal/pipeline"
)

// runStore is the in-memory registry of document runs.
type runStore struct {
	mu   sync.RWMutex
	runs map[string]*pipeline.DocumentRun
}

func newRunStore() *runStore {
	return &runStore{runs: make(map[string]*pipeline.DocumentRun)}
}

func (s *runStore) create() *pipeline.DocumentRun {
	run := pipeline.NewDocumentRun(newRunID())
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()
	return run
}

func (s *runStore) get(id string) (*pipeline.DocumentRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

func newRunID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
