package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `message_id, listing_id, from_user, read, msg_body, created_at`

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	ListByListing(ctx context.Context, listingID int64) ([]domain.Message, error)
	MarkRead(ctx context.Context, id int64) (*domain.Message, error)
}

type PGMessageRepository struct {
	db DB
}

func NewMessageRepository(db DB) MessageRepository {
	return &PGMessageRepository{db: db}
}

func (r *PGMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	err := r.db.QueryRow(ctx, `INSERT INTO messages (listing_id, from_user, read, msg_body)
		VALUES ($1, $2, $3, $4)
		RETURNING message_id, created_at`,
		msg.ListingID, msg.FromUser, msg.Read, msg.Body).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		if isViolation(err, codeForeignKeyViolation, "") {
			return fmt.Errorf("%w: %d", domain.ErrListingNotFound, msg.ListingID)
		}
		return domain.StoreError("create message", err)
	}
	return nil
}

func (r *PGMessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE message_id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrMessageNotFound, id)
		}
		return nil, domain.StoreError("get message", err)
	}
	return m, nil
}

func (r *PGMessageRepository) ListByListing(ctx context.Context, listingID int64) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `SELECT `+messageColumns+` FROM messages WHERE listing_id=$1 ORDER BY created_at, message_id`, listingID)
	if err != nil {
		return nil, domain.StoreError("list messages", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, domain.StoreError("scan message", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("list messages", err)
	}
	return messages, nil
}

func (r *PGMessageRepository) MarkRead(ctx context.Context, id int64) (*domain.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx, `UPDATE messages SET read=TRUE WHERE message_id=$1 RETURNING `+messageColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrMessageNotFound, id)
		}
		return nil, domain.StoreError("mark message read", err)
	}
	return m, nil
}

func scanMessage(row scanner) (*domain.Message, error) {
	var m domain.Message
	if err := row.Scan(&m.ID, &m.ListingID, &m.FromUser, &m.Read, &m.Body, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

var _ MessageRepository = (*PGMessageRepository)(nil)
