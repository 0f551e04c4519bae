// Package repository provides data access for sessions and their tabs.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/remote-session-control/backend/internal/model"
)

// SessionRepository provides data access for sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session and its tabs into the database.
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sessions (id, name, state, mode, active_tab_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		session.ID,
		session.Name,
		session.State,
		session.Mode,
		nullString(session.ActiveTabID),
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	for _, tab := range session.Tabs {
		if err := insertTab(ctx, tx, session.ID, &tab); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}

	return nil
}

// GetByID retrieves a session with its tabs by ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	query := `
		SELECT id, name, state, mode, active_tab_id, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`

	session := &model.Session{}
	var activeTabID sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.Name,
		&session.State,
		&session.Mode,
		&activeTabID,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if activeTabID.Valid {
		session.ActiveTabID = activeTabID.String
	}

	tabs, err := r.ListTabs(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Tabs = tabs

	return session, nil
}

// List retrieves all sessions with their tabs, newest first.
func (r *SessionRepository) List(ctx context.Context) ([]*model.Session, error) {
	query := `
		SELECT id, name, state, mode, active_tab_id, created_at, updated_at
		FROM sessions
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session := &model.Session{}
		var activeTabID sql.NullString

		err := rows.Scan(
			&session.ID,
			&session.Name,
			&session.State,
			&session.Mode,
			&activeTabID,
			&session.CreatedAt,
			&session.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		if activeTabID.Valid {
			session.ActiveTabID = activeTabID.String
		}

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	for _, session := range sessions {
		tabs, err := r.ListTabs(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		session.Tabs = tabs
	}

	return sessions, nil
}

// Delete removes a session and, via the foreign key cascade, its tabs.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrSessionNotFound
	}

	return nil
}

// UpdateState updates the state of a session.
func (r *SessionRepository) UpdateState(ctx context.Context, id string, state model.SessionState) error {
	query := `
		UPDATE sessions
		SET state = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, state, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update session state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrSessionNotFound
	}

	return nil
}

// UpdateMode updates the input mode of a session.
func (r *SessionRepository) UpdateMode(ctx context.Context, id string, mode string) error {
	query := `
		UPDATE sessions
		SET mode = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, mode, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update session mode: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrSessionNotFound
	}

	return nil
}

// UpdateActiveTab updates which tab a session has focused.
func (r *SessionRepository) UpdateActiveTab(ctx context.Context, id string, tabID string) error {
	query := `
		UPDATE sessions
		SET active_tab_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, nullString(tabID), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update active tab: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrSessionNotFound
	}

	return nil
}

// InsertTab adds a tab to a session.
func (r *SessionRepository) InsertTab(ctx context.Context, sessionID string, tab *model.Tab) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertTab(ctx, tx, sessionID, tab); err != nil {
		return err
	}

	touch := `UPDATE sessions SET updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, touch, time.Now(), sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tab: %w", err)
	}

	return nil
}

// DeleteTab removes a tab from a session.
func (r *SessionRepository) DeleteTab(ctx context.Context, sessionID, tabID string) error {
	query := `DELETE FROM tabs WHERE id = ? AND session_id = ?`

	result, err := r.db.ExecContext(ctx, query, tabID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete tab: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrTabNotFound
	}

	return nil
}

// RenameTab renames a tab. An empty name is a valid rename target.
func (r *SessionRepository) RenameTab(ctx context.Context, sessionID, tabID, newName string) error {
	query := `UPDATE tabs SET name = ? WHERE id = ? AND session_id = ?`

	result, err := r.db.ExecContext(ctx, query, newName, tabID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to rename tab: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrTabNotFound
	}

	return nil
}

// ListTabs retrieves a session's tabs ordered by position.
func (r *SessionRepository) ListTabs(ctx context.Context, sessionID string) ([]model.Tab, error) {
	query := `
		SELECT id, name, position, created_at
		FROM tabs
		WHERE session_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}
	defer rows.Close()

	var tabs []model.Tab
	for rows.Next() {
		var tab model.Tab
		if err := rows.Scan(&tab.ID, &tab.Name, &tab.Position, &tab.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tab: %w", err)
		}
		tabs = append(tabs, tab)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tabs: %w", err)
	}

	return tabs, nil
}

func insertTab(ctx context.Context, tx *sql.Tx, sessionID string, tab *model.Tab) error {
	query := `
		INSERT INTO tabs (id, session_id, name, position, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := tx.ExecContext(ctx, query, tab.ID, sessionID, tab.Name, tab.Position, tab.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert tab: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
