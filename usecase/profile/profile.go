package profile

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/repository"
)

// Profile is the signed-in person together with their primary email.
type Profile struct {
	Person *domain.Person
	Email  *domain.Email
}

// Map serializes the profile for API responses.
func (p *Profile) Map() map[string]interface{} {
	out := p.Person.Map(true)
	out["email"] = nil
	out["email_verified"] = false
	if p.Email != nil {
		out["email"] = p.Email.Address
		out["email_verified"] = p.Email.IsVerified
	}
	return out
}

type UseCase struct {
	persons repository.PersonRepository
	emails  repository.EmailRepository
	logger  *zap.Logger
}

func New(persons repository.PersonRepository, emails repository.EmailRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		persons: persons,
		emails:  emails,
		logger:  logger,
	}
}

func (uc *UseCase) GetProfile(ctx context.Context, personID string) (*Profile, error) {
	person, err := uc.persons.GetByID(ctx, personID)
	if err != nil {
		return nil, err
	}
	return uc.withEmail(ctx, person), nil
}

// UpdateProfile replaces both names. Each must be non-blank.
func (uc *UseCase) UpdateProfile(ctx context.Context, personID, firstName, lastName string) (*Profile, error) {
	person, err := uc.persons.GetByID(ctx, personID)
	if err != nil {
		return nil, err
	}

	person.FirstName = strings.TrimSpace(firstName)
	person.LastName = strings.TrimSpace(lastName)
	if err := person.Validate(); err != nil {
		return nil, err
	}
	if err := uc.persons.Save(ctx, person); err != nil {
		return nil, err
	}

	uc.logger.Info("profile updated", zap.String("person_id", personID))
	return uc.withEmail(ctx, person), nil
}

func (uc *UseCase) withEmail(ctx context.Context, person *domain.Person) *Profile {
	profile := &Profile{Person: person}
	if uc.emails == nil {
		return profile
	}
	email, err := uc.emails.GetByPersonID(ctx, person.EntityID)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.logger.Warn("profile email lookup failed", zap.String("person_id", person.EntityID), zap.Error(err))
		}
		return profile
	}
	profile.Email = email
	return profile
}
