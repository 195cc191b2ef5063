package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/convene/core"
)

// Store implements core.Store over an opened SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore wraps an opened database (see Open).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const timeLayout = time.RFC3339Nano

// CreateThread implements core.Store. The thread and its agents are written
// in one transaction.
func (s *Store) CreateThread(ctx context.Context, thread *core.Thread) error {
	if thread.ID == "" {
		thread.ID = core.NewID()
	}
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO threads (id, name, owner, locked, enable_agents, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		thread.ID, thread.Name, thread.Owner, boolInt(thread.Locked), boolInt(thread.EnableAgents),
		thread.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}

	for i, a := range thread.Agents {
		if err := insertAgent(ctx, tx, a, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetThread implements core.Store.
func (s *Store) GetThread(ctx context.Context, id string) (*core.Thread, error) {
	var (
		thread  core.Thread
		locked  int
		enabled int
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner, locked, enable_agents, created_at FROM threads WHERE id = ?`, id).
		Scan(&thread.ID, &thread.Name, &thread.Owner, &locked, &enabled, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select thread: %w", err)
	}
	thread.Locked = locked != 0
	thread.EnableAgents = enabled != 0
	thread.CreatedAt = parseTime(created)

	rows, err := s.db.QueryContext(ctx, `
SELECT id, thread_id, type_id, pseudonym, last_active_message_count, created_at
FROM agents
WHERE thread_id = ?
ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("select agents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a       core.Agent
			created string
		)
		if err := rows.Scan(&a.ID, &a.ThreadID, &a.TypeID, &a.Pseudonym, &a.LastActiveMessageCount, &created); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		a.CreatedAt = parseTime(created)
		thread.Agents = append(thread.Agents, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &thread, nil
}

// SaveThread implements core.Store. Thread fields and agent membership/order
// are replaced from the provided document.
func (s *Store) SaveThread(ctx context.Context, thread *core.Thread) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE threads SET name = ?, owner = ?, locked = ?, enable_agents = ? WHERE id = ?`,
		thread.Name, thread.Owner, boolInt(thread.Locked), boolInt(thread.EnableAgents), thread.ID,
	)
	if err != nil {
		return fmt.Errorf("update thread: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrThreadNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM agents WHERE thread_id = ?`, thread.ID); err != nil {
		return fmt.Errorf("clear agents: %w", err)
	}
	for i, a := range thread.Agents {
		if err := insertAgent(ctx, tx, a, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteThread implements core.Store; agents and messages cascade.
func (s *Store) DeleteThread(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrThreadNotFound
	}
	return nil
}

// GetAgent implements core.Store.
func (s *Store) GetAgent(ctx context.Context, id string) (*core.Agent, error) {
	var (
		a       core.Agent
		created string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, thread_id, type_id, pseudonym, last_active_message_count, created_at
FROM agents
WHERE id = ?`, id).
		Scan(&a.ID, &a.ThreadID, &a.TypeID, &a.Pseudonym, &a.LastActiveMessageCount, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select agent: %w", err)
	}
	a.CreatedAt = parseTime(created)
	return &a, nil
}

// SaveAgent implements core.Store.
func (s *Store) SaveAgent(ctx context.Context, agent *core.Agent) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE agents SET pseudonym = ?, last_active_message_count = ? WHERE id = ?`,
		agent.Pseudonym, agent.LastActiveMessageCount, agent.ID,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrAgentNotFound
	}
	return nil
}

// CreateMessage implements core.Store. Insertion and the qualifying-count
// fill run in one transaction so concurrent writers observe a consistent
// running count.
func (s *Store) CreateMessage(ctx context.Context, msg *core.Message) (*core.Message, error) {
	stored := *msg
	if stored.ID == "" {
		stored.ID = core.NewID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM threads WHERE id = ?`, stored.ThreadID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check thread: %w", err)
	}
	if exists == 0 {
		return nil, core.ErrThreadNotFound
	}

	if stored.Count == 0 {
		var qualifying int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM messages WHERE thread_id = ? AND visible = 1 AND from_agent = 0`,
			stored.ThreadID).Scan(&qualifying)
		if err != nil {
			return nil, fmt.Errorf("count messages: %w", err)
		}
		if stored.Qualifying() {
			qualifying++
		}
		stored.Count = qualifying
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO messages (id, thread_id, body, owner, pseudonym, from_agent, visible, count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.ThreadID, stored.Body, stored.Owner, stored.Pseudonym,
		boolInt(stored.FromAgent), boolInt(stored.Visible), stored.Count,
		stored.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ThreadMessages implements core.Store, ordered by creation time.
func (s *Store) ThreadMessages(ctx context.Context, threadID string) ([]core.Message, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM threads WHERE id = ?`, threadID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check thread: %w", err)
	}
	if exists == 0 {
		return nil, core.ErrThreadNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, thread_id, body, owner, pseudonym, from_agent, visible, count, created_at
FROM messages
WHERE thread_id = ?
ORDER BY created_at ASC, rowid ASC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]core.Message, 0)
	for rows.Next() {
		var (
			m         core.Message
			fromAgent int
			visible   int
			created   string
		)
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Body, &m.Owner, &m.Pseudonym, &fromAgent, &visible, &m.Count, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.FromAgent = fromAgent != 0
		m.Visible = visible != 0
		m.CreatedAt = parseTime(created)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func insertAgent(ctx context.Context, tx *sql.Tx, a *core.Agent, position int) error {
	if a.ID == "" {
		a.ID = core.NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO agents (id, thread_id, type_id, pseudonym, last_active_message_count, position, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ThreadID, a.TypeID, a.Pseudonym, a.LastActiveMessageCount, position,
		a.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
