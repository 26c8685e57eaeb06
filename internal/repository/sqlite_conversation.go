package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/kalend/internal/db"
	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SQLiteConversationRepo implements ConversationRepo using a SQLite database.
type SQLiteConversationRepo struct {
	db  db.DBTX
	uow db.UnitOfWork
}

// NewSQLiteConversationRepo creates a new SQLiteConversationRepo. Appends
// run inside uow so sequence numbers stay dense under concurrent writers.
func NewSQLiteConversationRepo(conn db.DBTX, uow db.UnitOfWork) *SQLiteConversationRepo {
	return &SQLiteConversationRepo{db: conn, uow: uow}
}

func (r *SQLiteConversationRepo) Ensure(ctx context.Context, sessionID, userID string) (*ConversationSession, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	now := nowUTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversation_sessions (id, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		sessionID, userID, now, now)
	if err != nil {
		return nil, fmt.Errorf("ensuring conversation session: %w", err)
	}
	return r.getSession(ctx, r.db, sessionID)
}

func (r *SQLiteConversationRepo) getSession(ctx context.Context, conn db.DBTX, id string) (*ConversationSession, error) {
	row := conn.QueryRowContext(ctx,
		`SELECT id, user_id, personality, created_at, updated_at FROM conversation_sessions WHERE id = ?`, id)
	var (
		s                    ConversationSession
		createdAt, updatedAt string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Personality, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning conversation session: %w", err)
	}
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

func (r *SQLiteConversationRepo) SetPersonality(ctx context.Context, sessionID, personality string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversation_sessions SET personality = ?, updated_at = ? WHERE id = ?`,
		personality, nowUTC(), sessionID)
	if err != nil {
		return fmt.Errorf("setting personality: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation session: %w", ErrNotFound)
	}
	return nil
}

func (r *SQLiteConversationRepo) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	return r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := r.getSession(ctx, tx, sessionID); err != nil {
			return err
		}

		var last int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) FROM conversation_turns WHERE session_id = ?`, sessionID,
		).Scan(&last); err != nil {
			return fmt.Errorf("reading last turn: %w", err)
		}

		now := nowUTC()
		for i, t := range turns {
			parts, err := json.Marshal(t.Parts)
			if err != nil {
				return fmt.Errorf("encoding turn parts: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO conversation_turns (id, session_id, seq, role, parts, created_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				uuid.New().String(), sessionID, last+i+1, string(t.Role), string(parts), now)
			if err != nil {
				return fmt.Errorf("inserting turn: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE conversation_sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
			return fmt.Errorf("touching conversation session: %w", err)
		}
		return nil
	})
}

func (r *SQLiteConversationRepo) List(ctx context.Context, sessionID string) ([]domain.StoredTurn, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, seq, role, parts, created_at
		FROM conversation_turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredTurn
	for rows.Next() {
		var (
			st               domain.StoredTurn
			role, parts, cat string
		)
		if err := rows.Scan(&st.ID, &st.SessionID, &st.Seq, &role, &parts, &cat); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		st.Turn.Role = domain.Role(role)
		if err := json.Unmarshal([]byte(parts), &st.Turn.Parts); err != nil {
			return nil, fmt.Errorf("decoding turn parts: %w", err)
		}
		st.CreatedAt = parseTime(cat)
		out = append(out, st)
	}
	return out, rows.Err()
}

// History returns the stored turns of a session in order, without metadata.
func History(stored []domain.StoredTurn) []domain.Turn {
	out := make([]domain.Turn, len(stored))
	for i, st := range stored {
		out[i] = st.Turn
	}
	return out
}

