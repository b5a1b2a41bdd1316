package repository

import (
	"context"

	"github.com/sandpiper/backend/domain"
)

type PersonRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Person, error)
	Save(ctx context.Context, person *domain.Person) error
}

type EmailRepository interface {
	GetByAddress(ctx context.Context, address string) (*domain.Email, error)
	GetByPersonID(ctx context.Context, personID string) (*domain.Email, error)
	Save(ctx context.Context, email *domain.Email) error
}

type LoginMethodRepository interface {
	GetByPersonID(ctx context.Context, personID string, methodType domain.LoginMethodType) (*domain.LoginMethod, error)
	Save(ctx context.Context, method *domain.LoginMethod) error
}

// Registrar stores a new person together with their email and login method.
// Either all three rows are written or none is.
type Registrar interface {
	Register(ctx context.Context, person *domain.Person, email *domain.Email, method *domain.LoginMethod) error
}
