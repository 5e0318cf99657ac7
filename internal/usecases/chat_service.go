package usecases

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"llamachat/internal/entities"
	"llamachat/internal/interfaces"
)

// recentSessionLimit bounds the sidebar list on the home view.
const recentSessionLimit = 10

// ChatService runs the chat-session lifecycle: session resolution, the
// message cap, titling, generation and persistence of both sides.
type ChatService struct {
	sessions  interfaces.SessionRepository
	messages  interfaces.MessageRepository
	usage     interfaces.UsageRecorder
	generator interfaces.Generator
	settings  *SettingsService
	archiver  interfaces.SessionArchiver
	now       func() time.Time
}

func NewChatService(
	sessions interfaces.SessionRepository,
	messages interfaces.MessageRepository,
	usage interfaces.UsageRecorder,
	generator interfaces.Generator,
	settings *SettingsService,
) *ChatService {
	return &ChatService{
		sessions:  sessions,
		messages:  messages,
		usage:     usage,
		generator: generator,
		settings:  settings,
		now:       time.Now,
	}
}

// SetArchiver enables transcript upload when sessions are closed or deleted.
func (s *ChatService) SetArchiver(archiver interfaces.SessionArchiver) {
	s.archiver = archiver
}

type ChatRequest struct {
	Prompt    string
	Model     string
	SessionID *int
}

type ChatResult struct {
	Reply        string  `json:"response"`
	SessionID    int     `json:"session_id"`
	ResponseTime float64 `json:"response_time"`
}

// Chat handles one exchange for userID.
func (s *ChatService) Chat(ctx context.Context, userID int, req ChatRequest) (*ChatResult, error) {
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	session, err := s.resolveSession(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	maxMessages, err := s.settings.Int(ctx, entities.SettingMaxMessagesPerSession, 100)
	if err != nil {
		return nil, err
	}
	count, err := s.messages.CountBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	if count >= maxMessages {
		return nil, &LimitError{Max: maxMessages}
	}

	userMsg := &entities.Message{SessionID: session.ID, Role: entities.MessageRoleUser, Content: req.Prompt}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	if err := s.usage.IncrementSent(ctx, userID); err != nil {
		log.Printf("[CHAT] usage sent for user %d: %v", userID, err)
	}

	if session.NeedsTitle() {
		if err := s.retitle(ctx, session); err != nil {
			return nil, err
		}
	}

	model, err := s.modelFor(ctx, session, req.Model)
	if err != nil {
		return nil, err
	}

	gen, err := s.generator.Generate(ctx, model, req.Prompt)
	if err != nil {
		log.Printf("[CHAT] generation failed for session %d (model %s): %v", session.ID, model, err)
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	responseTime := gen.Elapsed.Seconds()
	assistantMsg := &entities.Message{
		SessionID:    session.ID,
		Role:         entities.MessageRoleAssistant,
		Content:      gen.Reply,
		ResponseTime: &responseTime,
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("save assistant message: %w", err)
	}
	if err := s.sessions.Touch(ctx, session.ID, s.now()); err != nil {
		log.Printf("[CHAT] touch session %d: %v", session.ID, err)
	}
	if err := s.usage.IncrementReceived(ctx, userID); err != nil {
		log.Printf("[CHAT] usage received for user %d: %v", userID, err)
	}

	return &ChatResult{Reply: gen.Reply, SessionID: session.ID, ResponseTime: responseTime}, nil
}

func (s *ChatService) resolveSession(ctx context.Context, userID int, req ChatRequest) (*entities.ChatSession, error) {
	if req.SessionID != nil {
		session, err := s.sessions.GetForUser(ctx, *req.SessionID, userID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		if session == nil {
			return nil, ErrInvalidSession
		}
		return session, nil
	}
	return s.CreateSession(ctx, userID, req.Model)
}

// retitle derives the title from the stored user messages.
func (s *ChatService) retitle(ctx context.Context, session *entities.ChatSession) error {
	history, err := s.messages.ListBySession(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	title := GenerateTitle(history)
	if err := s.sessions.UpdateTitle(ctx, session.ID, title); err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	session.Title = &title
	return nil
}

func (s *ChatService) modelFor(ctx context.Context, session *entities.ChatSession, requested string) (string, error) {
	if m := strings.TrimSpace(requested); m != "" {
		return m, nil
	}
	if session.ModelUsed != "" {
		return session.ModelUsed, nil
	}
	return s.settings.DefaultModel(ctx)
}

// CreateSession opens a new active session, honouring the per-user quota.
func (s *ChatService) CreateSession(ctx context.Context, userID int, model string) (*entities.ChatSession, error) {
	quota, err := s.settings.Int(ctx, entities.SettingMaxSessionsPerUser, 50)
	if err != nil {
		return nil, err
	}
	if quota > 0 {
		owned, err := s.sessions.CountByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("count sessions: %w", err)
		}
		if owned >= quota {
			return nil, &SessionQuotaError{Max: quota}
		}
	}
	return s.openSession(ctx, userID, model)
}

// openSession stores a new active session without looking at the quota.
func (s *ChatService) openSession(ctx context.Context, userID int, model string) (*entities.ChatSession, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		var err error
		if model, err = s.settings.DefaultModel(ctx); err != nil {
			return nil, err
		}
	}

	session := &entities.ChatSession{UserID: userID, ModelUsed: model, IsActive: true}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// ActiveSession returns the user's most recently created active session, creating one if none exists.
func (s *ChatService) ActiveSession(ctx context.Context, userID int) (*entities.ChatSession, error) {
	session, err := s.sessions.LatestActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load active session: %w", err)
	}
	if session != nil {
		return session, nil
	}
	// The home view always has a session to show, so the quota does not apply here.
	return s.openSession(ctx, userID, "")
}

// StartNewSession opens a fresh session and then closes the user's other active sessions.
// When the quota rejects the new session, the existing ones stay untouched.
func (s *ChatService) StartNewSession(ctx context.Context, userID int, model string) (*entities.ChatSession, error) {
	active, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	fresh, err := s.CreateSession(ctx, userID, model)
	if err != nil {
		return nil, err
	}
	for i := range active {
		if err := s.CloseSession(ctx, &active[i]); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}

// CloseSession deactivates a session and archives its transcript.
func (s *ChatService) CloseSession(ctx context.Context, session *entities.ChatSession) error {
	if err := s.sessions.Deactivate(ctx, session.ID); err != nil {
		return fmt.Errorf("deactivate session %d: %w", session.ID, err)
	}
	session.IsActive = false
	s.archive(ctx, session)
	return nil
}

type HomeView struct {
	ActiveSession  entities.SessionSummary   `json:"active_session"`
	RecentSessions []entities.SessionSummary `json:"recent_sessions"`
	Models         []entities.ModelInfo      `json:"available_models"`
}

func (s *ChatService) Home(ctx context.Context, userID int) (*HomeView, error) {
	active, err := s.ActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	activeSummary, err := s.Summarize(ctx, active)
	if err != nil {
		return nil, err
	}
	recent, err := s.listSummaries(ctx, userID, recentSessionLimit)
	if err != nil {
		return nil, err
	}
	return &HomeView{
		ActiveSession:  *activeSummary,
		RecentSessions: recent,
		Models:         s.generator.ListModels(ctx),
	}, nil
}

// ListSessions returns every session of the user, most recently updated first.
func (s *ChatService) ListSessions(ctx context.Context, userID int) ([]entities.SessionSummary, error) {
	return s.listSummaries(ctx, userID, 0)
}

func (s *ChatService) listSummaries(ctx context.Context, userID, limit int) ([]entities.SessionSummary, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	summaries := make([]entities.SessionSummary, 0, len(sessions))
	for i := range sessions {
		summary, err := s.Summarize(ctx, &sessions[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// Summarize builds the API form of a session.
func (s *ChatService) Summarize(ctx context.Context, session *entities.ChatSession) (*entities.SessionSummary, error) {
	count, err := s.messages.CountBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	last, err := s.messages.LastBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("last message: %w", err)
	}
	return &entities.SessionSummary{
		ID:            session.ID,
		Title:         session.Title,
		ModelUsed:     session.ModelUsed,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
		IsActive:      session.IsActive,
		MessageCount:  count,
		LastMessage:   last,
		FormattedDate: session.FormattedDate(s.now()),
	}, nil
}

// GetSession loads a session owned by userID.
func (s *ChatService) GetSession(ctx context.Context, userID, sessionID int) (*entities.ChatSession, error) {
	session, err := s.sessions.GetForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SessionMessages lists the messages of a session owned by userID in creation order.
func (s *ChatService) SessionMessages(ctx context.Context, userID, sessionID int) ([]entities.Message, error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []entities.Message{}
	}
	return msgs, nil
}

// DeleteSession archives and then removes a session with its messages.
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID int) error {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	s.archive(ctx, session)
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *ChatService) Models(ctx context.Context) []entities.ModelInfo {
	return s.generator.ListModels(ctx)
}

// archive uploads the transcript when an archiver is configured. Failures are only logged.
func (s *ChatService) archive(ctx context.Context, session *entities.ChatSession) {
	if s.archiver == nil {
		return
	}
	summary, err := s.Summarize(ctx, session)
	if err != nil {
		log.Printf("[ARCHIVE] summarize session %d: %v", session.ID, err)
		return
	}
	msgs, err := s.messages.ListBySession(ctx, session.ID)
	if err != nil {
		log.Printf("[ARCHIVE] load messages of session %d: %v", session.ID, err)
		return
	}
	transcript := entities.SessionTranscript{
		UserID:     session.UserID,
		Session:    *summary,
		Messages:   msgs,
		ArchivedAt: s.now().UTC(),
	}
	if err := s.archiver.Archive(ctx, transcript); err != nil {
		log.Printf("[ARCHIVE] session %d: %v", session.ID, err)
	}
}
