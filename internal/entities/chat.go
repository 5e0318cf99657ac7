package entities

import "time"

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"

	// DefaultSessionTitle marks a session whose title has not been derived yet.
	DefaultSessionTitle = "New Chat"
)

type ChatSession struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Title     *string   `json:"title"`
	ModelUsed string    `json:"model_used"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `json:"is_active"`
}

// NeedsTitle is true while the title is unset or still the default.
func (s *ChatSession) NeedsTitle() bool {
	return s.Title == nil || *s.Title == "" || *s.Title == DefaultSessionTitle
}

// FormattedDate renders the creation day relative to now: "Today", "Yesterday" or "Jan 02".
func (s *ChatSession) FormattedDate(now time.Time) string {
	created := s.CreatedAt.In(now.Location())
	y, m, d := created.Date()
	ny, nm, nd := now.Date()
	if y == ny && m == nm && d == nd {
		return "Today"
	}
	yesterday := now.AddDate(0, 0, -1)
	yy, ym, yd := yesterday.Date()
	if y == yy && m == ym && d == yd {
		return "Yesterday"
	}
	return created.Format("Jan 02")
}

type Message struct {
	ID           int       `json:"id"`
	SessionID    int       `json:"-"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	TokensUsed   *int      `json:"tokens_used"`
	ResponseTime *float64  `json:"response_time"`
}

// SessionSummary is the dictionary form of a session returned by the API.
type SessionSummary struct {
	ID            int       `json:"id"`
	Title         *string   `json:"title"`
	ModelUsed     string    `json:"model_used"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	IsActive      bool      `json:"is_active"`
	MessageCount  int       `json:"message_count"`
	LastMessage   *Message  `json:"last_message"`
	FormattedDate string    `json:"formatted_date"`
}

// SessionTranscript is the archived form of a session.
type SessionTranscript struct {
	UserID     int            `json:"user_id"`
	Session    SessionSummary `json:"session"`
	Messages   []Message      `json:"messages"`
	ArchivedAt time.Time      `json:"archived_at"`
}
