package infrastructure

import (
	"sync"
	"time"
)

// DebounceWindow is the minimum gap between two accepted messages of one chat.
const DebounceWindow = 2 * time.Second

// ChatState tracks the web session and in-flight work of one Telegram chat.
type ChatState struct {
	ChatID       int64
	SessionID    int
	Model        string
	IsProcessing bool
	LastMessage  time.Time
	mu           sync.Mutex
}

// ChatTracker keeps a ChatState per Telegram chat.
type ChatTracker struct {
	chats    map[int64]*ChatState
	mu       sync.RWMutex
	debounce time.Duration
	now      func() time.Time
}

// NewChatTracker rejects messages that follow the previous one within debounce.
func NewChatTracker(debounce time.Duration) *ChatTracker {
	return &ChatTracker{
		chats:    make(map[int64]*ChatState),
		debounce: debounce,
		now:      time.Now,
	}
}

// GetOrCreate returns the state for chatID, creating it on first use.
func (t *ChatTracker) GetOrCreate(chatID int64) *ChatState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, exists := t.chats[chatID]
	if !exists {
		state = &ChatState{ChatID: chatID}
		t.chats[chatID] = state
	}
	return state
}

// Forget drops everything tracked for chatID.
func (t *ChatTracker) Forget(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.chats, chatID)
}

// TryBegin claims the chat for one exchange.
// Returns false while another exchange is running or inside the debounce window.
func (t *ChatTracker) TryBegin(state *ChatState) bool {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.IsProcessing {
		return false
	}
	now := t.now()
	if now.Sub(state.LastMessage) < t.debounce {
		return false
	}
	state.LastMessage = now
	state.IsProcessing = true
	return true
}

func (s *ChatState) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IsProcessing = false
}

// Session returns the tracked web session id and model.
func (s *ChatState) Session() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.SessionID, s.Model
}

func (s *ChatState) SetSession(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SessionID = id
}

func (s *ChatState) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = model
}

// Reset forgets the tracked session so the next message opens a new one.
func (s *ChatState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SessionID = 0
}
