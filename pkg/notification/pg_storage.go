package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStorage is the PostgreSQL-backed Storage implementation. Schema lives in
// the embedded migrations applied by pg.Migrate.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a Postgres notification store on top of an existing
// connection pool.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

func (s *PGStorage) Create(ctx context.Context, p Payload) (Payload, error) {
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	if strings.TrimSpace(p.UserID) == "" {
		return Payload{}, ErrEmptyUserID
	}

	var data []byte
	if p.Data != nil {
		var err error
		data, err = json.Marshal(p.Data)
		if err != nil {
			return Payload{}, errors.Join(ErrStorageFailure, err)
		}
	}

	p.ID = uuid.New().String()
	p.Read = false
	p.CreatedAt = time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, message, actor_id, actor_name, actor_avatar, data, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.UserID, string(p.Type), p.Message,
		nullable(p.ActorID), nullable(p.ActorName), nullable(p.ActorAvatar),
		data, p.Read, p.CreatedAt,
	)
	if err != nil {
		return Payload{}, errors.Join(ErrStorageFailure, err)
	}
	return p, nil
}

func (s *PGStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Payload, error) {
	query := `
		SELECT id, user_id, type, message, actor_id, actor_name, actor_avatar, data, is_read, created_at
		FROM notifications
		WHERE user_id = $1`
	args := []any{userID}

	if opts.OnlyUnread {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += ` LIMIT $2`
		if opts.Offset > 0 {
			args = append(args, opts.Offset)
			query += ` OFFSET $3`
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	defer rows.Close()

	out := []Payload{}
	for rows.Next() {
		var (
			p                            Payload
			actorID, actorName, actorAvt *string
			data                         []byte
			typ                          string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &typ, &p.Message, &actorID, &actorName, &actorAvt, &data, &p.Read, &p.CreatedAt); err != nil {
			return nil, errors.Join(ErrStorageFailure, err)
		}
		p.Type = EventType(typ)
		p.ActorID = deref(actorID)
		p.ActorName = deref(actorName)
		p.ActorAvatar = deref(actorAvt)
		if len(data) > 0 {
			if err := json.Unmarshal(data, &p.Data); err != nil {
				return nil, errors.Join(ErrStorageFailure, err)
			}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageFailure, err)
	}
	return out, nil
}

func (s *PGStorage) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	)
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PGStorage) Delete(ctx context.Context, id, userID string) error {
	var owner string
	err := s.pool.QueryRow(ctx, `SELECT user_id FROM notifications WHERE id = $1`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotificationNotFound
		}
		return errors.Join(ErrStorageFailure, err)
	}
	if owner != userID {
		return ErrAccessDenied
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id); err != nil {
		return errors.Join(ErrStorageFailure, err)
	}
	return nil
}

func (s *PGStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, errors.Join(ErrStorageFailure, err)
	}
	return count, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
