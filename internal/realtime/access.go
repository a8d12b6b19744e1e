package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/becmi/internal/model"
	"github.com/alfredjeanlab/becmi/internal/store"
)

// ErrForbidden is returned when the caller is neither the session's DM nor an
// accepted participant.
var ErrForbidden = errors.New("access denied to this session")

// AccessStore is the subset of the store used for session access checks.
type AccessStore interface {
	GetGameSession(ctx context.Context, sessionID int64) (*model.GameSession, error)
	GetSessionPlayer(ctx context.Context, sessionID, userID int64) (*model.SessionPlayer, error)
}

// Authorize loads the session and checks that userID may read its events.
// A missing session yields an error wrapping store.ErrNotFound.
func Authorize(ctx context.Context, s AccessStore, userID, sessionID int64) (*model.GameSession, error) {
	gs, err := s.GetGameSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if gs.IsDM(userID) {
		return gs, nil
	}
	p, err := s.GetSessionPlayer(ctx, sessionID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("checking participation: %w", err)
	}
	if p.Status != model.PlayerAccepted {
		return nil, ErrForbidden
	}
	return gs, nil
}

// AuthorizeDM is like Authorize but only admits the session's DM.
func AuthorizeDM(ctx context.Context, s AccessStore, userID, sessionID int64) (*model.GameSession, error) {
	gs, err := s.GetGameSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !gs.IsDM(userID) {
		return nil, ErrForbidden
	}
	return gs, nil
}
