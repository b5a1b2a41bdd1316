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

var loginMethodTable = versionedTable{
	name:    "login_method",
	columns: []string{"person_id", "email_id", "method_type", "password"},
}

type loginMethodRepository struct {
	db DB
}

func NewLoginMethodRepository(db DB) repository.LoginMethodRepository {
	return &loginMethodRepository{db: db}
}

func (r *loginMethodRepository) GetByPersonID(ctx context.Context, personID string, methodType domain.LoginMethodType) (*domain.LoginMethod, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM login_method
		WHERE person_id = $1 AND method_type = $2 AND active = true
	`, loginMethodTable.selectList())

	var (
		base     versionedColumns
		pid      pgtype.Text
		emailID  pgtype.Text
		method   pgtype.Text
		password pgtype.Text
	)
	targets := append(base.targets(), &pid, &emailID, &method, &password)
	if err := r.db.QueryRow(ctx, query, personID, string(methodType)).Scan(targets...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoginMethodNotFound
		}
		return nil, err
	}

	return &domain.LoginMethod{
		VersionedModel: base.model(),
		PersonID:       pid.String,
		EmailID:        emailID.String,
		MethodType:     domain.LoginMethodType(method.String),
		PasswordHash:   password.String,
	}, nil
}

func (r *loginMethodRepository) Save(ctx context.Context, method *domain.LoginMethod) error {
	if method == nil {
		return domain.ErrInvalidPayload
	}
	if err := method.Validate(); err != nil {
		return err
	}
	return saveVersioned(ctx, r.db, loginMethodTable, &method.VersionedModel, method.PersonID,
		method.PersonID,
		nullString(method.EmailID),
		string(method.MethodType),
		nullString(method.PasswordHash),
	)
}
