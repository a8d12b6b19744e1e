package model

import (
	"encoding/json"
	"fmt"
)

// Event type tags written to session_events.event_type.
const (
	EventSoundboardPlay     = "soundboard_play"
	EventAudioControl       = "audio_control"
	EventMapDrawingAdded    = "map_drawing_added"
	EventMapDrawingsCleared = "map_drawings_cleared"
	EventTokenMoved         = "map_token_moved"
	EventHPChange           = "hp_change"
	EventItemGiven          = "item_given"
	EventXPAwarded          = "xp_awarded"
	EventHexesRevealed      = "hex_map_hexes_revealed"
	EventPlayerMoved        = "hex_map_player_moved"
)

// Payload is the typed body of a session event. DecodePayload always returns
// a pointer to one of the variants below, *Unknown included. EncodePayload
// accepts either form.
type Payload interface {
	EventType() string
}

type SoundboardPlay struct {
	SessionID       int64   `json:"session_id"`
	TrackID         int64   `json:"track_id"`
	TrackName       string  `json:"track_name"`
	FilePath        string  `json:"file_path"`
	Volume          float64 `json:"volume"`
	DurationSeconds *int    `json:"duration_seconds"`
}

func (SoundboardPlay) EventType() string { return EventSoundboardPlay }

type AudioControl struct {
	SessionID  int64   `json:"session_id"`
	Action     string  `json:"action"` // play, pause, stop, volume
	TrackID    int64   `json:"track_id,omitempty"`
	PlaylistID int64   `json:"playlist_id,omitempty"`
	Volume     float64 `json:"volume,omitempty"`
}

func (AudioControl) EventType() string { return EventAudioControl }

type MapDrawingAdded struct {
	MapID       int64   `json:"map_id"`
	DrawingID   int64   `json:"drawing_id"`
	UserID      int64   `json:"user_id"`
	DrawingType string  `json:"drawing_type"`
	Color       string  `json:"color"`
	BrushSize   int     `json:"brush_size"`
	PathData    []Point `json:"path_data"`
}

func (MapDrawingAdded) EventType() string { return EventMapDrawingAdded }

type MapDrawingsCleared struct {
	MapID           int64 `json:"map_id"`
	ClearedByUserID int64 `json:"cleared_by_user_id"`
}

func (MapDrawingsCleared) EventType() string { return EventMapDrawingsCleared }

type TokenMoved struct {
	MapID   int64   `json:"map_id"`
	TokenID int64   `json:"token_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (TokenMoved) EventType() string { return EventTokenMoved }

type HPChange struct {
	CharacterID int64 `json:"character_id"`
	OldHP       int   `json:"old_hp"`
	NewHP       int   `json:"new_hp"`
	MaxHP       int   `json:"max_hp,omitempty"`
}

func (HPChange) EventType() string { return EventHPChange }

type ItemGiven struct {
	CharacterID int64  `json:"character_id"`
	ItemID      int64  `json:"item_id"`
	ItemName    string `json:"item_name,omitempty"`
	Quantity    int    `json:"quantity"`
}

func (ItemGiven) EventType() string { return EventItemGiven }

type XPAwarded struct {
	CharacterID int64  `json:"character_id"`
	XPAmount    int    `json:"xp_amount"`
	Reason      string `json:"reason,omitempty"`
}

func (XPAwarded) EventType() string { return EventXPAwarded }

type HexesRevealed struct {
	MapID int64      `json:"map_id"`
	Hexes []HexCoord `json:"hexes"`
}

func (HexesRevealed) EventType() string { return EventHexesRevealed }

type PlayerMoved struct {
	MapID       int64 `json:"map_id"`
	CharacterID int64 `json:"character_id"`
	Q           int   `json:"q"`
	R           int   `json:"r"`
}

func (PlayerMoved) EventType() string { return EventPlayerMoved }

// Unknown preserves events whose type this build does not recognize, or
// whose data does not match the registered shape.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (u Unknown) EventType() string { return u.Type }

// HexCoord is an axial hex coordinate.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

var payloadFactories = map[string]func() Payload{
	EventSoundboardPlay:     func() Payload { return &SoundboardPlay{} },
	EventAudioControl:       func() Payload { return &AudioControl{} },
	EventMapDrawingAdded:    func() Payload { return &MapDrawingAdded{} },
	EventMapDrawingsCleared: func() Payload { return &MapDrawingsCleared{} },
	EventTokenMoved:         func() Payload { return &TokenMoved{} },
	EventHPChange:           func() Payload { return &HPChange{} },
	EventItemGiven:          func() Payload { return &ItemGiven{} },
	EventXPAwarded:          func() Payload { return &XPAwarded{} },
	EventHexesRevealed:      func() Payload { return &HexesRevealed{} },
	EventPlayerMoved:        func() Payload { return &PlayerMoved{} },
}

// DecodePayload returns the typed payload for eventType. Unregistered types
// and undecodable data fall back to Unknown so newer producers never break
// older readers.
func DecodePayload(eventType string, raw json.RawMessage) Payload {
	factory, ok := payloadFactories[eventType]
	if !ok {
		return &Unknown{Type: eventType, Raw: raw}
	}
	p := factory()
	if err := json.Unmarshal(raw, p); err != nil {
		return &Unknown{Type: eventType, Raw: raw}
	}
	return p
}

// EncodePayload marshals p into event data. Unknown payloads are written back
// verbatim.
func EncodePayload(p Payload) (json.RawMessage, error) {
	var u *Unknown
	switch v := p.(type) {
	case Unknown:
		u = &v
	case *Unknown:
		u = v
	}
	if u != nil {
		if len(u.Raw) == 0 {
			return json.RawMessage(`{}`), nil
		}
		return u.Raw, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", p.EventType(), err)
	}
	return data, nil
}
