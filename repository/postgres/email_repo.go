package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/repository"
)

var emailTable = versionedTable{
	name:    "email",
	columns: []string{"person_id", "email", "is_verified"},
}

type emailRepository struct {
	db DB
}

func NewEmailRepository(db DB) repository.EmailRepository {
	return &emailRepository{db: db}
}

func (r *emailRepository) GetByAddress(ctx context.Context, address string) (*domain.Email, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM email
		WHERE email = $1 AND active = true
	`, emailTable.selectList())
	return scanEmail(r.db.QueryRow(ctx, query, domain.NormalizeEmail(address)))
}

func (r *emailRepository) GetByPersonID(ctx context.Context, personID string) (*domain.Email, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM email
		WHERE person_id = $1 AND active = true
		ORDER BY changed_on ASC
		LIMIT 1
	`, emailTable.selectList())
	return scanEmail(r.db.QueryRow(ctx, query, personID))
}

func (r *emailRepository) Save(ctx context.Context, email *domain.Email) error {
	if email == nil {
		return domain.ErrInvalidPayload
	}
	email.Address = domain.NormalizeEmail(email.Address)
	if err := email.Validate(); err != nil {
		return err
	}
	err := saveVersioned(ctx, r.db, emailTable, &email.VersionedModel, email.PersonID,
		email.PersonID,
		email.Address,
		email.IsVerified,
	)
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func scanEmail(row rowScanner) (*domain.Email, error) {
	var (
		base       versionedColumns
		personID   pgtype.Text
		address    pgtype.Text
		isVerified pgtype.Bool
	)
	targets := append(base.targets(), &personID, &address, &isVerified)
	if err := row.Scan(targets...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEmailNotFound
		}
		return nil, err
	}
	return &domain.Email{
		VersionedModel: base.model(),
		PersonID:       personID.String,
		Address:        address.String,
		IsVerified:     isVerified.Valid && isVerified.Bool,
	}, nil
}
