package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alfredjeanlab/becmi/internal/model"
	"github.com/alfredjeanlab/becmi/internal/realtime"
	"github.com/alfredjeanlab/becmi/internal/store"
)

type soundboardPlayRequest struct {
	SessionID int64    `json:"session_id" validate:"gt=0"`
	TrackID   int64    `json:"track_id" validate:"gt=0"`
	Volume    *float64 `json:"volume" validate:"omitempty,gte=0,lte=1"`
}

type addDrawingRequest struct {
	MapID       int64           `json:"map_id" validate:"gt=0"`
	PathData    json.RawMessage `json:"path_data" validate:"required"`
	DrawingType string          `json:"drawing_type" validate:"omitempty,oneof=stroke erase"`
	Color       string          `json:"color" validate:"max=16"`
	BrushSize   int             `json:"brush_size"`
}

type clearDrawingsRequest struct {
	MapID int64 `json:"map_id" validate:"gt=0"`
}

// handleSoundboardPlay handles POST /audio/soundboard/play. DM only.
func (s *Server) handleSoundboardPlay(w http.ResponseWriter, r *http.Request) {
	var req soundboardPlayRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	ctx := r.Context()
	userID := UserID(ctx)

	if _, err := realtime.AuthorizeDM(ctx, s.store, userID, req.SessionID); err != nil {
		if errors.Is(err, realtime.ErrForbidden) {
			writeAPIError(w, errForbidden("Only the Dungeon Master can play sound effects"))
			return
		}
		s.writeSessionError(w, r, err, "Failed to play sound effect")
		return
	}

	track, err := s.store.GetAudioTrack(ctx, req.SessionID, req.TrackID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, r, err, "Failed to play sound effect")
		return
	}
	if track == nil || track.Type != "sound" {
		writeAPIError(w, errNotFound("Sound effect not found or does not belong to this session"))
		return
	}

	volume := 1.0
	if req.Volume != nil {
		volume = *req.Volume
	}
	e, err := s.broadcaster.Broadcast(ctx, req.SessionID, model.SoundboardPlay{
		SessionID:       req.SessionID,
		TrackID:         track.TrackID,
		TrackName:       track.Name,
		FilePath:        "/" + strings.TrimPrefix(track.FilePath, "/"),
		Volume:          volume,
		DurationSeconds: track.DurationSeconds,
	}, userID)
	if err != nil {
		writeError(w, r, err, "Failed to broadcast soundboard play event")
		return
	}

	writeSuccess(w, "Sound effect played successfully", map[string]int64{"event_id": e.EventID})
}

// handleAddDrawing handles POST /session/maps/drawings/add. Open to the DM
// and accepted participants.
func (s *Server) handleAddDrawing(w http.ResponseWriter, r *http.Request) {
	var req addDrawingRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	var path []model.Point
	if err := json.Unmarshal(req.PathData, &path); err != nil {
		writeAPIError(w, errValidation(map[string]string{
			"path_data": "Path data is required and must be an array of {x, y} points",
		}))
		return
	}

	ctx := r.Context()
	userID := UserID(ctx)

	sm, err := s.store.GetSessionMap(ctx, req.MapID)
	if err != nil {
		if isNotFound(err) {
			writeAPIError(w, errNotFound("Map not found"))
			return
		}
		writeError(w, r, err, "Failed to add drawing")
		return
	}
	if _, err := realtime.Authorize(ctx, s.store, userID, sm.SessionID); err != nil {
		if errors.Is(err, realtime.ErrForbidden) {
			writeAPIError(w, errForbidden("You do not have access to this map"))
			return
		}
		s.writeSessionError(w, r, err, "Failed to add drawing")
		return
	}

	// Re-encode so the stored path is compact and only carries x and y.
	compact, err := json.Marshal(path)
	if err != nil {
		writeError(w, r, err, "Failed to encode path data")
		return
	}
	d := &model.Drawing{
		MapID:       req.MapID,
		UserID:      userID,
		DrawingType: req.DrawingType,
		Color:       req.Color,
		BrushSize:   req.BrushSize,
		PathData:    compact,
	}
	model.NormalizeDrawing(d)
	if err := model.ValidateDrawing(d, path); err != nil {
		writeError(w, r, err, "Failed to add drawing")
		return
	}

	var e *model.Event
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.AddDrawing(ctx, d); err != nil {
			return err
		}
		var err error
		e, err = realtime.Append(ctx, tx, sm.SessionID, model.MapDrawingAdded{
			MapID:       d.MapID,
			DrawingID:   d.DrawingID,
			UserID:      userID,
			DrawingType: d.DrawingType,
			Color:       d.Color,
			BrushSize:   d.BrushSize,
			PathData:    path,
		}, userID)
		return err
	})
	if err != nil {
		writeError(w, r, err, "Failed to add drawing")
		return
	}
	s.broadcaster.Announce(ctx, e)

	writeSuccess(w, "Drawing added", map[string]any{
		"drawing":  d,
		"event_id": e.EventID,
	})
}

// handleClearDrawings handles POST /session/maps/drawings/clear. DM only.
// The delete and its event commit together.
func (s *Server) handleClearDrawings(w http.ResponseWriter, r *http.Request) {
	var req clearDrawingsRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	ctx := r.Context()
	userID := UserID(ctx)

	sm, err := s.store.GetSessionMap(ctx, req.MapID)
	if err != nil {
		if isNotFound(err) {
			writeAPIError(w, errNotFound("Map not found"))
			return
		}
		writeError(w, r, err, "An error occurred while clearing drawings")
		return
	}
	if _, err := realtime.AuthorizeDM(ctx, s.store, userID, sm.SessionID); err != nil {
		if errors.Is(err, realtime.ErrForbidden) {
			writeAPIError(w, errForbidden("Only the DM can clear drawings"))
			return
		}
		s.writeSessionError(w, r, err, "An error occurred while clearing drawings")
		return
	}

	var (
		e       *model.Event
		deleted int64
	)
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		if deleted, err = tx.ClearDrawings(ctx, req.MapID); err != nil {
			return err
		}
		e, err = realtime.Append(ctx, tx, sm.SessionID, model.MapDrawingsCleared{
			MapID:           req.MapID,
			ClearedByUserID: userID,
		}, userID)
		return err
	})
	if err != nil {
		writeError(w, r, err, "An error occurred while clearing drawings")
		return
	}
	s.broadcaster.Announce(ctx, e)

	writeSuccess(w, "Drawings cleared successfully", map[string]int64{
		"map_id":   req.MapID,
		"deleted":  deleted,
		"event_id": e.EventID,
	})
}
