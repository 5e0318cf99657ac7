package entities

import "time"

const (
	SettingMaxMessagesPerSession  = "max_messages_per_session"
	SettingDefaultModel           = "default_model"
	SettingSessionTimeoutHours    = "session_timeout_hours"
	SettingEnableUserRegistration = "enable_user_registration"
	SettingMaxSessionsPerUser     = "max_sessions_per_user"

	// FallbackModel is used when neither the request nor the settings name a model.
	FallbackModel = "gemma3:4b-it-qat"
)

type SystemSetting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description *string   `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultSettings are seeded at startup when missing.
var DefaultSettings = []SystemSetting{
	{Key: SettingMaxMessagesPerSession, Value: "100", Description: strPtr("Maximum messages per chat session")},
	{Key: SettingDefaultModel, Value: FallbackModel, Description: strPtr("Default AI model to use")},
	{Key: SettingSessionTimeoutHours, Value: "24", Description: strPtr("Session timeout in hours")},
	{Key: SettingEnableUserRegistration, Value: "true", Description: strPtr("Allow new user registration")},
	{Key: SettingMaxSessionsPerUser, Value: "50", Description: strPtr("Maximum chat sessions per user")},
}

func strPtr(s string) *string { return &s }
