package model

import (
	"encoding/json"
	"time"
)

// Drawing types accepted on session maps.
const (
	DrawingStroke = "stroke"
	DrawingErase  = "erase"
)

// SessionMap is a battle map uploaded to a session.
type SessionMap struct {
	MapID     int64  `json:"map_id"`
	SessionID int64  `json:"session_id"`
	Name      string `json:"map_name"`
}

// Point is one vertex of a drawing path.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Drawing is a freehand stroke or erase path on a session map.
type Drawing struct {
	DrawingID   int64           `json:"drawing_id"`
	MapID       int64           `json:"map_id"`
	UserID      int64           `json:"user_id"`
	DrawingType string          `json:"drawing_type"`
	Color       string          `json:"color"`
	BrushSize   int             `json:"brush_size"`
	PathData    json.RawMessage `json:"path_data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AudioTrack is an uploaded music or sound-effect file.
type AudioTrack struct {
	TrackID         int64  `json:"track_id"`
	SessionID       int64  `json:"session_id"`
	Name            string `json:"track_name"`
	Type            string `json:"track_type"` // "music" or "sound"
	FilePath        string `json:"file_path"`
	DurationSeconds *int   `json:"duration_seconds"`
}
