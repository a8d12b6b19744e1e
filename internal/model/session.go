package model

import "time"

// PlayerStatus is the invitation state of a session participant.
type PlayerStatus string

const (
	PlayerInvited  PlayerStatus = "invited"
	PlayerAccepted PlayerStatus = "accepted"
	PlayerDeclined PlayerStatus = "declined"
	PlayerRemoved  PlayerStatus = "removed"
)

// GameSession is a play session run by a Dungeon Master.
type GameSession struct {
	SessionID int64     `json:"session_id"`
	DMUserID  int64     `json:"dm_user_id"`
	Title     string    `json:"session_title"`
	CreatedAt time.Time `json:"created_at"`
}

// IsDM reports whether userID runs this session.
func (s *GameSession) IsDM(userID int64) bool {
	return s.DMUserID == userID
}

// SessionPlayer links a user to a session they were invited to.
type SessionPlayer struct {
	SessionID int64        `json:"session_id"`
	UserID    int64        `json:"user_id"`
	Status    PlayerStatus `json:"status"`
}
