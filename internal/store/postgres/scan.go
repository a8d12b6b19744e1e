package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/becmi/internal/model"
)

const userColumns = `user_id, username, email, password_hash, created_at`

// scannable is satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		createdBy sql.NullInt64
		data      []byte
	)
	err := row.Scan(&e.EventID, &e.SessionID, &e.Type, &data, &createdBy, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.CreatedBy = createdBy.Int64
	if len(data) > 0 {
		e.Data = json.RawMessage(data)
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func scanOnlineUsers(rows *sql.Rows) ([]*model.OnlineUser, error) {
	users := []*model.OnlineUser{}
	for rows.Next() {
		var u model.OnlineUser
		if err := rows.Scan(&u.UserID, &u.Username, &u.LastActivity); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func scanUser(row scannable) (*model.User, error) {
	var u model.User
	var email sql.NullString
	if err := row.Scan(&u.UserID, &u.Username, &email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Email = email.String
	return &u, nil
}

// nullInt64 converts an id to sql.NullInt64; zero is null.
func nullInt64(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

// jsonbOrEmpty converts json.RawMessage to bytes for a NOT NULL JSONB column.
func jsonbOrEmpty(m json.RawMessage) []byte {
	if len(m) == 0 {
		return []byte("{}")
	}
	return []byte(m)
}
