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

var personTable = versionedTable{
	name:    "person",
	columns: []string{"first_name", "last_name"},
}

type personRepository struct {
	db DB
}

// NewPersonRepository instantiates a Postgres-backed person repository.
func NewPersonRepository(db DB) repository.PersonRepository {
	return &personRepository{db: db}
}

func (r *personRepository) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM person
		WHERE entity_id = $1 AND active = true
	`, personTable.selectList())

	var (
		base      versionedColumns
		firstName pgtype.Text
		lastName  pgtype.Text
	)
	targets := append(base.targets(), &firstName, &lastName)
	if err := r.db.QueryRow(ctx, query, id).Scan(targets...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPersonNotFound
		}
		return nil, err
	}

	return &domain.Person{
		VersionedModel: base.model(),
		FirstName:      firstName.String,
		LastName:       lastName.String,
	}, nil
}

func (r *personRepository) Save(ctx context.Context, person *domain.Person) error {
	if person == nil {
		return domain.ErrInvalidPayload
	}
	if err := person.Validate(); err != nil {
		return err
	}
	return saveVersioned(ctx, r.db, personTable, &person.VersionedModel, person.EntityID,
		person.FirstName,
		person.LastName,
	)
}
