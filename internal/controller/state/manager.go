package state

import (
	"sync"
)

// Manager хранит состояния диалогов по chat ID
type Manager struct {
	mu     sync.RWMutex
	states map[int64]ChatState
}

// NewManager создаёт новый менеджер состояний
func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]ChatState),
	}
}

// Get получает текущее состояние чата
func (sm *Manager) Get(chatID int64) ChatState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.states[chatID]
}

// Set устанавливает состояние чата; StateNone удаляет запись
func (sm *Manager) Set(chatID int64, state ChatState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state == StateNone {
		delete(sm.states, chatID)
		return
	}
	sm.states[chatID] = state
}

// Take возвращает состояние и сбрасывает его
func (sm *Manager) Take(chatID int64) ChatState {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	state := sm.states[chatID]
	delete(sm.states, chatID)
	return state
}
