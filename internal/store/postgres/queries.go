package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/becmi/internal/model"
	"github.com/alfredjeanlab/becmi/internal/store"
)

const eventColumns = `event_id, session_id, event_type, event_data, created_by_user_id, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// notFound maps sql.ErrNoRows to store.ErrNotFound and wraps anything else.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

// queryAppendEvent must run inside a transaction: the advisory lock is held
// until commit so ids within one session become visible in id order.
func queryAppendEvent(ctx context.Context, db executor, e *model.Event) error {
	if _, err := db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, e.SessionID); err != nil {
		return fmt.Errorf("lock session %d: %w", e.SessionID, err)
	}
	err := db.QueryRowContext(ctx, `
		INSERT INTO session_events (session_id, event_type, event_data, created_by_user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING event_id, created_at`,
		e.SessionID,
		e.Type,
		jsonbOrEmpty(e.Data),
		nullInt64(e.CreatedBy),
	).Scan(&e.EventID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func queryEventsSince(ctx context.Context, db executor, sessionID, afterEventID int64, limit int) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+eventColumns+` FROM session_events
		WHERE session_id = $1 AND event_id > $2
		ORDER BY event_id ASC
		LIMIT $3`, sessionID, afterEventID, limit)
	if err != nil {
		return nil, fmt.Errorf("events since: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func queryEventsAfter(ctx context.Context, db executor, afterEventID int64, limit int) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+eventColumns+` FROM session_events
		WHERE event_id > $1
		ORDER BY event_id ASC
		LIMIT $2`, afterEventID, limit)
	if err != nil {
		return nil, fmt.Errorf("events after: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func queryTouchPresence(ctx context.Context, db executor, userID, sessionID, lastEventID int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_session_activity (user_id, session_id, last_poll_at, last_event_id, is_online)
		VALUES ($1, $2, now(), $3, TRUE)
		ON CONFLICT (user_id, session_id) DO UPDATE SET
			last_poll_at = now(),
			last_event_id = GREATEST(user_session_activity.last_event_id, EXCLUDED.last_event_id),
			is_online = TRUE`,
		userID, sessionID, lastEventID)
	if err != nil {
		return fmt.Errorf("touch presence: %w", err)
	}
	return nil
}

func queryListOnline(ctx context.Context, db executor, sessionID int64, since time.Time) ([]*model.OnlineUser, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT usa.user_id, u.username, usa.last_poll_at
		FROM user_session_activity usa
		JOIN users u ON u.user_id = usa.user_id
		WHERE usa.session_id = $1 AND usa.last_poll_at >= $2 AND usa.is_online
		ORDER BY usa.last_poll_at DESC`, sessionID, since)
	if err != nil {
		return nil, fmt.Errorf("list online: %w", err)
	}
	defer rows.Close()
	return scanOnlineUsers(rows)
}

func queryMarkIdleOffline(ctx context.Context, db executor, before time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE user_session_activity SET is_online = FALSE
		WHERE is_online AND last_poll_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("mark idle offline: %w", err)
	}
	return res.RowsAffected()
}

func queryGetGameSession(ctx context.Context, db executor, sessionID int64) (*model.GameSession, error) {
	var s model.GameSession
	err := db.QueryRowContext(ctx, `
		SELECT session_id, dm_user_id, session_title, created_at
		FROM game_sessions WHERE session_id = $1`, sessionID).
		Scan(&s.SessionID, &s.DMUserID, &s.Title, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err, "game session")
	}
	return &s, nil
}

func queryGetSessionPlayer(ctx context.Context, db executor, sessionID, userID int64) (*model.SessionPlayer, error) {
	var p model.SessionPlayer
	var status string
	err := db.QueryRowContext(ctx, `
		SELECT session_id, user_id, status
		FROM session_players WHERE session_id = $1 AND user_id = $2`, sessionID, userID).
		Scan(&p.SessionID, &p.UserID, &status)
	if err != nil {
		return nil, notFound(err, "session player")
	}
	p.Status = model.PlayerStatus(status)
	return &p, nil
}

func queryGetUserByUsername(ctx context.Context, db executor, username string) (*model.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func queryGetUser(ctx context.Context, db executor, userID int64) (*model.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func queryCreateAuthSession(ctx context.Context, db executor, s *model.AuthSession) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO user_sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at`, s.Token, s.UserID, s.ExpiresAt).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create auth session: %w", err)
	}
	return nil
}

func queryGetAuthSession(ctx context.Context, db executor, token string) (*model.AuthSession, error) {
	var s model.AuthSession
	err := db.QueryRowContext(ctx, `
		UPDATE user_sessions SET last_activity = now()
		WHERE token = $1
		RETURNING token, user_id, expires_at, created_at`, token).
		Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err, "auth session")
	}
	return &s, nil
}

func queryDeleteAuthSession(ctx context.Context, db executor, token string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM user_sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete auth session: %w", err)
	}
	return nil
}

func queryGetSessionMap(ctx context.Context, db executor, mapID int64) (*model.SessionMap, error) {
	var m model.SessionMap
	err := db.QueryRowContext(ctx, `
		SELECT map_id, session_id, map_name FROM session_maps WHERE map_id = $1`, mapID).
		Scan(&m.MapID, &m.SessionID, &m.Name)
	if err != nil {
		return nil, notFound(err, "session map")
	}
	return &m, nil
}

func queryAddDrawing(ctx context.Context, db executor, d *model.Drawing) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO session_map_drawings (map_id, user_id, drawing_type, color, brush_size, path_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING drawing_id, created_at`,
		d.MapID, d.UserID, d.DrawingType, d.Color, d.BrushSize, jsonbOrEmpty(d.PathData),
	).Scan(&d.DrawingID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert drawing: %w", err)
	}
	return nil
}

func queryClearDrawings(ctx context.Context, db executor, mapID int64) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM session_map_drawings WHERE map_id = $1`, mapID)
	if err != nil {
		return 0, fmt.Errorf("clear drawings: %w", err)
	}
	return res.RowsAffected()
}

func queryGetAudioTrack(ctx context.Context, db executor, sessionID, trackID int64) (*model.AudioTrack, error) {
	var t model.AudioTrack
	var duration sql.NullInt64
	err := db.QueryRowContext(ctx, `
		SELECT track_id, session_id, track_name, track_type, file_path, duration_seconds
		FROM session_audio_tracks WHERE track_id = $1 AND session_id = $2`, trackID, sessionID).
		Scan(&t.TrackID, &t.SessionID, &t.Name, &t.Type, &t.FilePath, &duration)
	if err != nil {
		return nil, notFound(err, "audio track")
	}
	if duration.Valid {
		d := int(duration.Int64)
		t.DurationSeconds = &d
	}
	return &t, nil
}
