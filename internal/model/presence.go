package model

import "time"

// Presence is the activity record of one user polling one session.
type Presence struct {
	UserID       int64     `json:"user_id"`
	SessionID    int64     `json:"session_id"`
	LastEventID  int64     `json:"last_event_id"`
	LastActivity time.Time `json:"last_activity"`
	Online       bool      `json:"is_online"`
}

// OnlineUser is a presence entry as shown to other session members.
type OnlineUser struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	LastActivity time.Time `json:"last_activity"`
}
