package postgres

import (
	"context"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/repository"
)

type registrar struct {
	db DB
}

// NewRegistrar writes signups in one transaction. Each versioned write runs
// in a savepoint of it.
func NewRegistrar(db DB) repository.Registrar {
	return &registrar{db: db}
}

func (r *registrar) Register(ctx context.Context, person *domain.Person, email *domain.Email, method *domain.LoginMethod) (err error) {
	if person == nil || email == nil || method == nil {
		return domain.ErrInvalidPayload
	}

	snapshot := [3]domain.VersionedModel{person.VersionedModel, email.VersionedModel, method.VersionedModel}
	defer func() {
		if err != nil {
			person.VersionedModel, email.VersionedModel, method.VersionedModel = snapshot[0], snapshot[1], snapshot[2]
		}
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = NewPersonRepository(tx).Save(ctx, person); err != nil {
		return err
	}
	email.PersonID = person.EntityID
	if err = NewEmailRepository(tx).Save(ctx, email); err != nil {
		return err
	}
	method.PersonID = person.EntityID
	method.EmailID = email.EntityID
	if err = NewLoginMethodRepository(tx).Save(ctx, method); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
