// Package testutil holds in-memory implementations of the storage and
// gateway ports for usecase and handler tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"llamachat/internal/entities"
	"llamachat/internal/interfaces"
)

// Store is a single in-memory database shared by the repository views it hands out.
type Store struct {
	mu       sync.Mutex
	nextID   int
	users    map[int]*entities.User
	sessions map[int]*entities.ChatSession
	messages []entities.Message
	settings map[string]*entities.SystemSetting
	usage    map[usageKey]*entities.DailyUsage

	// Now drives every timestamp the store writes.
	Now func() time.Time
}

type usageKey struct {
	userID int
	date   string
}

func NewStore() *Store {
	return &Store{
		users:    make(map[int]*entities.User),
		sessions: make(map[int]*entities.ChatSession),
		settings: make(map[string]*entities.SystemSetting),
		usage:    make(map[usageKey]*entities.DailyUsage),
		Now:      time.Now,
	}
}

func (s *Store) id() int {
	s.nextID++
	return s.nextID
}

func (s *Store) Users() *Users       { return &Users{s} }
func (s *Store) Sessions() *Sessions { return &Sessions{s} }
func (s *Store) Messages() *Messages { return &Messages{s} }
func (s *Store) Settings() *Settings { return &Settings{s} }
func (s *Store) Usage() *Usage       { return &Usage{s} }

// MessageCount counts every stored message.
func (s *Store) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// SessionCount counts every stored session.
func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Session returns a copy of a stored session, or nil.
func (s *Store) Session(id int) *entities.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs, ok := s.sessions[id]; ok {
		c := *cs
		return &c
	}
	return nil
}

// SetSetting writes a setting directly, bypassing the defaults.
func (s *Store) SetSetting(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = &entities.SystemSetting{Key: key, Value: value, UpdatedAt: s.Now()}
}

// Users ----------------------------------------------------------------------

type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return interfaces.ErrUsernameTaken
		}
		if user.Email != nil && u.Email != nil && *u.Email == *user.Email {
			return interfaces.ErrEmailTaken
		}
	}
	user.ID = r.s.id()
	user.CreatedAt = r.s.Now()
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *Users) find(match func(*entities.User) bool) *entities.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			c := *u
			return &c
		}
	}
	return nil
}

func (r *Users) GetByID(_ context.Context, id int) (*entities.User, error) {
	return r.find(func(u *entities.User) bool { return u.ID == id }), nil
}

func (r *Users) GetByUsername(_ context.Context, username string) (*entities.User, error) {
	return r.find(func(u *entities.User) bool { return u.Username == username }), nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	return r.find(func(u *entities.User) bool { return u.Email != nil && *u.Email == email }), nil
}

func (r *Users) GetByTelegramChatID(_ context.Context, chatID int64) (*entities.User, error) {
	return r.find(func(u *entities.User) bool { return u.TelegramChatID != nil && *u.TelegramChatID == chatID }), nil
}

func (r *Users) GetAllUsers(_ context.Context) ([]entities.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := make([]entities.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *Users) Update(_ context.Context, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users[user.ID]
	if !ok {
		return errors.New("user not found")
	}
	c := *user
	c.CreatedAt = existing.CreatedAt
	c.TelegramChatID = existing.TelegramChatID
	r.s.users[user.ID] = &c
	return nil
}

func (r *Users) UpdateLastLogin(_ context.Context, id int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (r *Users) SetTelegramChatID(_ context.Context, id int, chatID *int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if chatID != nil {
		for _, u := range r.s.users {
			if u.TelegramChatID != nil && *u.TelegramChatID == *chatID {
				u.TelegramChatID = nil
			}
		}
	}
	u, ok := r.s.users[id]
	if !ok {
		return errors.New("user not found")
	}
	u.TelegramChatID = chatID
	return nil
}

func (r *Users) Count(_ context.Context) (int, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	active := 0
	for _, u := range r.s.users {
		if u.IsActive {
			active++
		}
	}
	return len(r.s.users), active, nil
}

// Sessions -------------------------------------------------------------------

type Sessions struct{ s *Store }

func (r *Sessions) Create(_ context.Context, session *entities.ChatSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.Now()
	session.ID = r.s.id()
	session.CreatedAt = now
	session.UpdatedAt = now
	c := *session
	r.s.sessions[session.ID] = &c
	return nil
}

func (r *Sessions) GetForUser(_ context.Context, id, userID int) (*entities.ChatSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cs, ok := r.s.sessions[id]
	if !ok || cs.UserID != userID {
		return nil, nil
	}
	c := *cs
	return &c, nil
}

func (r *Sessions) filter(match func(*entities.ChatSession) bool) []entities.ChatSession {
	var out []entities.ChatSession
	for _, cs := range r.s.sessions {
		if match(cs) {
			out = append(out, *cs)
		}
	}
	return out
}

func (r *Sessions) LatestActive(_ context.Context, userID int) (*entities.ChatSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	active := r.filter(func(cs *entities.ChatSession) bool { return cs.UserID == userID && cs.IsActive })
	if len(active) == 0 {
		return nil, nil
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].ID > active[j].ID
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return &active[0], nil
}

func (r *Sessions) ListByUser(_ context.Context, userID, limit int) ([]entities.ChatSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.filter(func(cs *entities.ChatSession) bool { return cs.UserID == userID })
	sort.Slice(list, func(i, j int) bool {
		if list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *Sessions) ListActive(_ context.Context, userID int) ([]entities.ChatSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.filter(func(cs *entities.ChatSession) bool { return cs.UserID == userID && cs.IsActive })
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *Sessions) ListIdle(_ context.Context, before time.Time) ([]entities.ChatSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := r.filter(func(cs *entities.ChatSession) bool { return cs.IsActive && cs.UpdatedAt.Before(before) })
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *Sessions) CountByUser(_ context.Context, userID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.filter(func(cs *entities.ChatSession) bool { return cs.UserID == userID })), nil
}

func (r *Sessions) CountAll(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.sessions), nil
}

func (r *Sessions) UpdateTitle(_ context.Context, id int, title string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cs, ok := r.s.sessions[id]; ok {
		cs.Title = &title
		cs.UpdatedAt = r.s.Now()
	}
	return nil
}

func (r *Sessions) Touch(_ context.Context, id int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cs, ok := r.s.sessions[id]; ok {
		cs.UpdatedAt = at
	}
	return nil
}

func (r *Sessions) Deactivate(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cs, ok := r.s.sessions[id]; ok {
		cs.IsActive = false
	}
	return nil
}

// Delete removes the session and its messages.
func (r *Sessions) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	kept := r.s.messages[:0]
	for _, m := range r.s.messages {
		if m.SessionID != id {
			kept = append(kept, m)
		}
	}
	r.s.messages = kept
	return nil
}

// Messages -------------------------------------------------------------------

type Messages struct{ s *Store }

func (r *Messages) Create(_ context.Context, msg *entities.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[msg.SessionID]; !ok {
		return errors.New("session does not exist")
	}
	msg.ID = r.s.id()
	msg.CreatedAt = r.s.Now()
	r.s.messages = append(r.s.messages, *msg)
	return nil
}

func (r *Messages) ListBySession(_ context.Context, sessionID int) ([]entities.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entities.Message
	for _, m := range r.s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *Messages) CountBySession(ctx context.Context, sessionID int) (int, error) {
	msgs, _ := r.ListBySession(ctx, sessionID)
	return len(msgs), nil
}

func (r *Messages) LastBySession(ctx context.Context, sessionID int) (*entities.Message, error) {
	msgs, _ := r.ListBySession(ctx, sessionID)
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[len(msgs)-1], nil
}

func (r *Messages) CountAll(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.messages), nil
}

// Settings -------------------------------------------------------------------

type Settings struct{ s *Store }

func (r *Settings) Get(_ context.Context, key string) (*entities.SystemSetting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if st, ok := r.s.settings[key]; ok {
		c := *st
		return &c, nil
	}
	return nil, nil
}

func (r *Settings) GetAll(_ context.Context) ([]entities.SystemSetting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]entities.SystemSetting, 0, len(r.s.settings))
	for _, st := range r.s.settings {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *Settings) Set(_ context.Context, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if st, ok := r.s.settings[key]; ok {
		st.Value = value
		st.UpdatedAt = r.s.Now()
		return nil
	}
	r.s.settings[key] = &entities.SystemSetting{Key: key, Value: value, UpdatedAt: r.s.Now()}
	return nil
}

func (r *Settings) EnsureDefault(_ context.Context, setting entities.SystemSetting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.settings[setting.Key]; ok {
		return nil
	}
	setting.UpdatedAt = r.s.Now()
	r.s.settings[setting.Key] = &setting
	return nil
}

// Usage ----------------------------------------------------------------------

type Usage struct{ s *Store }

func (r *Usage) row(userID int) *entities.DailyUsage {
	now := r.s.Now()
	key := usageKey{userID, now.Format("2006-01-02")}
	row, ok := r.s.usage[key]
	if !ok {
		y, m, d := now.Date()
		row = &entities.DailyUsage{Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
		r.s.usage[key] = row
	}
	return row
}

func (r *Usage) IncrementSent(_ context.Context, userID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.row(userID).MessagesSent++
	return nil
}

func (r *Usage) IncrementReceived(_ context.Context, userID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.row(userID).MessagesReceived++
	return nil
}

func (r *Usage) GetTodayUsage(_ context.Context, userID int) (int, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.usage[usageKey{userID, r.s.Now().Format("2006-01-02")}]
	if !ok {
		return 0, 0, nil
	}
	return row.MessagesSent, row.MessagesReceived, nil
}

func (r *Usage) GetMonthUsage(_ context.Context, userID int) (int, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	month := r.s.Now().Format("2006-01")
	sent, received := 0, 0
	for key, row := range r.s.usage {
		if key.userID == userID && key.date[:7] == month {
			sent += row.MessagesSent
			received += row.MessagesReceived
		}
	}
	return sent, received, nil
}

func (r *Usage) GetUsageHistory(_ context.Context, userID, days int) ([]entities.DailyUsage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	since := r.s.Now().AddDate(0, 0, -days).Format("2006-01-02")
	var out []entities.DailyUsage
	for key, row := range r.s.usage {
		if key.userID == userID && key.date >= since {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
