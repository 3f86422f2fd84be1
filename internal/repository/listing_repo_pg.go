package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/Domenick1991/yardhoppers/internal/sqlbuilder"
	"github.com/jackc/pgx/v5"
)

// ListingSchema declares the listing fields accepted by searches and partial updates.
var ListingSchema = sqlbuilder.MustSchema("listings", sqlbuilder.Columns{
	"listingId":   {Name: "listing_id", ReadOnly: true},
	"hostUser":    {Name: "host_user", ReadOnly: true},
	"price":       {Name: "price_cents"},
	"title":       {Name: "title"},
	"description": {Name: "description", Match: sqlbuilder.MatchSubstring},
	"photoUrl":    {Name: "photo_url"},
	"city":        {Name: "city", Match: sqlbuilder.MatchSubstring},
	"state":       {Name: "state", Match: sqlbuilder.MatchSubstring},
	"zipcode":     {Name: "zipcode"},
	"address":     {Name: "address"},
})

const listingColumns = `listing_id, host_user, price_cents, title, description, photo_url, city, state, zipcode, address, created_at, updated_at`

type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
	Exists(ctx context.Context, id int64) (bool, error)
	AddressTaken(ctx context.Context, address string) (bool, error)
	Search(ctx context.Context, filters sqlbuilder.Fields) ([]domain.Listing, error)
	Update(ctx context.Context, id int64, fields sqlbuilder.Fields) (*domain.Listing, error)
	Delete(ctx context.Context, id int64) error
}

type PGListingRepository struct {
	db DB
}

func NewListingRepository(db DB) ListingRepository {
	return &PGListingRepository{db: db}
}

func (r *PGListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	err := r.db.QueryRow(ctx, `INSERT INTO listings (host_user, price_cents, title, description, photo_url, city, state, zipcode, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING listing_id, created_at, updated_at`,
		l.HostUser, l.PriceCents, l.Title, l.Description, l.PhotoURL, l.City, l.State, l.Zipcode, l.Address).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if isViolation(err, codeUniqueViolation, constraintListingAddress) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateListing, l.Address)
		}
		return domain.StoreError("create listing", err)
	}
	return nil
}

func (r *PGListingRepository) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	l, err := scanListing(r.db.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE listing_id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrListingNotFound, id)
		}
		return nil, domain.StoreError("get listing", err)
	}
	return l, nil
}

func (r *PGListingRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM listings WHERE listing_id=$1)`, id).Scan(&exists); err != nil {
		return false, domain.StoreError("listing exists", err)
	}
	return exists, nil
}

func (r *PGListingRepository) AddressTaken(ctx context.Context, address string) (bool, error) {
	var taken bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM listings WHERE address=$1)`, address).Scan(&taken); err != nil {
		return false, domain.StoreError("check listing address", err)
	}
	return taken, nil
}

func (r *PGListingRepository) Search(ctx context.Context, filters sqlbuilder.Fields) ([]domain.Listing, error) {
	clause, err := ListingSchema.Filter(filters)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+listingColumns+` FROM listings `+clause.Where()+` ORDER BY listing_id`, clause.Args...)
	if err != nil {
		return nil, domain.StoreError("search listings", err)
	}
	defer rows.Close()

	listings := make([]domain.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, domain.StoreError("scan listing", err)
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("search listings", err)
	}
	return listings, nil
}

func (r *PGListingRepository) Update(ctx context.Context, id int64, fields sqlbuilder.Fields) (*domain.Listing, error) {
	clause, err := ListingSchema.PartialUpdate(fields)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`UPDATE listings SET %s, updated_at=now() WHERE listing_id=%s RETURNING %s`,
		clause.SQL, sqlbuilder.Placeholder(clause.Next()), listingColumns)
	l, err := scanListing(r.db.QueryRow(ctx, query, append(clause.Args, id)...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("%w: %d", domain.ErrListingNotFound, id)
		case isViolation(err, codeUniqueViolation, constraintListingAddress):
			return nil, domain.ErrDuplicateListing
		case isViolation(err, codeCheckViolation, ""):
			return nil, domain.InvalidArgument("listing values violate a constraint")
		}
		return nil, domain.StoreError("update listing", err)
	}
	return l, nil
}

// Delete removes the listing unless it still has upcoming confirmed bookings.
func (r *PGListingRepository) Delete(ctx context.Context, id int64) error {
	err := inTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT listing_id FROM listings WHERE listing_id=$1 FOR UPDATE`, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %d", domain.ErrListingNotFound, id)
			}
			return err
		}

		var busy bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM bookings WHERE listing_id=$1 AND status=$2 AND check_out > CURRENT_DATE)`,
			id, domain.BookingStatusConfirmed).Scan(&busy); err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("%w: %d", domain.ErrListingHasBookings, id)
		}

		_, err := tx.Exec(ctx, `DELETE FROM listings WHERE listing_id=$1`, id)
		return err
	})
	if err != nil && !domain.IsDomain(err) {
		return domain.StoreError("delete listing", err)
	}
	return err
}

func scanListing(row scanner) (*domain.Listing, error) {
	var l domain.Listing
	if err := row.Scan(&l.ID, &l.HostUser, &l.PriceCents, &l.Title, &l.Description, &l.PhotoURL,
		&l.City, &l.State, &l.Zipcode, &l.Address, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

var _ ListingRepository = (*PGListingRepository)(nil)
