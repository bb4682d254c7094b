// Package session хранит диалоговое состояние пользователей: вне меню,
// в меню команд, внутри одиночного или массового гейта. Состояние живёт
// в памяти процесса; после рестарта все пользователи возвращаются в Idle.
package session

import "sync"

// State — диалоговое состояние пользователя.
type State int

const (
	// Idle — стартовое состояние, вне меню.
	Idle State = iota
	// BrowsingCommands — открыто меню команд.
	BrowsingCommands
	// InCardGate — внутри одиночного гейта, принимается только /ccn.
	InCardGate
	// InBatchGate — внутри массового гейта, принимается только /mccn.
	InBatchGate
)

// Store — процесс-широкое хранилище состояний, инжектируется в обработчики.
type Store struct {
	mu     sync.RWMutex
	states map[int64]State
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{states: make(map[int64]State)}
}

// Get возвращает состояние пользователя; незнакомый пользователь — Idle.
func (s *Store) Get(tgID int64) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[tgID]
}

// Set переводит пользователя в новое состояние.
func (s *Store) Set(tgID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[tgID] = state
}

// Reset возвращает пользователя в Idle.
func (s *Store) Reset(tgID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, tgID)
}
