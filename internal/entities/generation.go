package entities

import "time"

// NoModelsAvailable is the sentinel listing returned when the model server cannot be reached.
const NoModelsAvailable = "No Models Available!"

type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

// Generation is one aggregated reply from the model server.
type Generation struct {
	Reply   string
	Elapsed time.Duration
}

type DailyUsage struct {
	Date             time.Time `json:"date"`
	MessagesSent     int       `json:"messages_sent"`
	MessagesReceived int       `json:"messages_received"`
}
