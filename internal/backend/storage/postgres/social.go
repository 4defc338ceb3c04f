package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-social-client/internal/backend/models"
	"github.com/pribylovaa/go-social-client/internal/backend/storage"
)

// Follow — false, если подписка уже была.
func (s *Storage) Follow(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	const op = "storage.postgres.Follow"

	tag, err := s.db.Exec(ctx,
		`INSERT INTO follows(follower_id, followee_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		followerID, followeeID,
	)
	if err != nil {
		return false, mapErr(op, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *Storage) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	const op = "storage.postgres.Unfollow"

	tag, err := s.db.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID,
	)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *Storage) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	const op = "storage.postgres.IsFollowing"

	var ok bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`,
		followerID, followeeID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

func (s *Storage) FollowCounts(ctx context.Context, userID uuid.UUID) (int, int, error) {
	const op = "storage.postgres.FollowCounts"

	query := `
		SELECT
			(SELECT count(*) FROM follows WHERE followee_id = $1),
			(SELECT count(*) FROM follows WHERE follower_id = $1)
	`

	var followers, following int
	if err := s.db.QueryRow(ctx, query, userID).Scan(&followers, &following); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	return followers, following, nil
}

func (s *Storage) SaveNotification(ctx context.Context, n *models.Notification) error {
	const op = "storage.postgres.SaveNotification"

	query := `
		INSERT INTO notifications(id, user_id, kind, actor_id, post_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	postID := uuid.NullUUID{UUID: n.PostID, Valid: n.PostID != uuid.Nil}

	_, err := s.db.Exec(ctx, query, n.ID, n.UserID, n.Kind, n.ActorID, postID, n.Read, n.CreatedAt)
	if err != nil {
		return mapErr(op, err)
	}

	return nil
}

// ListNotifications — от новых к старым в порядке вставки.
func (s *Storage) ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	const op = "storage.postgres.ListNotifications"

	query := `
		SELECT id, user_id, kind, actor_id, post_id, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY seq DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Notification, error) {
		var (
			n      models.Notification
			postID uuid.NullUUID
		)
		err := row.Scan(&n.ID, &n.UserID, &n.Kind, &n.ActorID, &postID, &n.Read, &n.CreatedAt)
		if postID.Valid {
			n.PostID = postID.UUID
		}
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Storage) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	const op = "storage.postgres.MarkNotificationRead"

	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) SaveMessage(ctx context.Context, m *models.Message) error {
	const op = "storage.postgres.SaveMessage"

	query := `
		INSERT INTO messages(id, from_id, to_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := s.db.Exec(ctx, query, m.ID, m.FromID, m.ToID, m.Text, m.CreatedAt); err != nil {
		return mapErr(op, err)
	}

	return nil
}

// Thread — переписка двух пользователей от старых к новым.
func (s *Storage) Thread(ctx context.Context, a, b uuid.UUID) ([]models.Message, error) {
	const op = "storage.postgres.Thread"

	query := `
		SELECT id, from_id, to_id, text, created_at
		FROM messages
		WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1)
		ORDER BY seq
	`

	rows, err := s.db.Query(ctx, query, a, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// LastMessages — последнее сообщение с каждым собеседником, свежие первыми.
func (s *Storage) LastMessages(ctx context.Context, userID uuid.UUID) ([]models.Message, error) {
	const op = "storage.postgres.LastMessages"

	query := `
		SELECT id, from_id, to_id, text, created_at
		FROM (
			SELECT DISTINCT ON (peer) id, from_id, to_id, text, created_at, seq
			FROM (
				SELECT m.*, CASE WHEN m.from_id = $1 THEN m.to_id ELSE m.from_id END AS peer
				FROM messages m
				WHERE m.from_id = $1 OR m.to_id = $1
			) t
			ORDER BY peer, seq DESC
		) last
		ORDER BY seq DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func scanMessage(row pgx.CollectableRow) (models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.FromID, &m.ToID, &m.Text, &m.CreatedAt)
	return m, err
}
