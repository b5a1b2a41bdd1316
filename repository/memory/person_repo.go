package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sandpiper/backend/domain"
	"github.com/sandpiper/backend/repository"
)

// PersonStore keeps persons, emails and login methods in maps. It satisfies
// the three credential repositories through its accessor methods.
type PersonStore struct {
	mu      sync.RWMutex
	persons map[string]domain.Person
	emails  map[string]domain.Email
	methods map[string]domain.LoginMethod
	now     func() time.Time
}

func NewPersonStore() *PersonStore {
	return &PersonStore{
		persons: make(map[string]domain.Person),
		emails:  make(map[string]domain.Email),
		methods: make(map[string]domain.LoginMethod),
		now:     time.Now,
	}
}

func (s *PersonStore) Persons() repository.PersonRepository { return personRepo{s} }

func (s *PersonStore) Emails() repository.EmailRepository { return emailRepo{s} }

func (s *PersonStore) LoginMethods() repository.LoginMethodRepository { return loginMethodRepo{s} }

var _ repository.Registrar = (*PersonStore)(nil)

// Register writes the three signup rows under one lock, or none of them.
func (s *PersonStore) Register(ctx context.Context, person *domain.Person, email *domain.Email, method *domain.LoginMethod) error {
	if person == nil || email == nil || method == nil {
		return domain.ErrInvalidPayload
	}
	email.Address = domain.NormalizeEmail(email.Address)
	email.PersonID = person.EntityID
	method.PersonID = person.EntityID
	method.EmailID = email.EntityID
	for _, v := range []interface{ Validate() error }{person, email, method} {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.emails {
		if e.Address == email.Address {
			return domain.ErrEmailTaken
		}
	}
	if _, ok := s.persons[person.EntityID]; ok {
		return domain.ErrVersionConflict
	}

	now := s.now()
	person.Advance(person.EntityID, now)
	email.Advance(person.EntityID, now)
	method.Advance(person.EntityID, now)
	s.persons[person.EntityID] = *person
	s.emails[email.EntityID] = *email
	s.methods[method.EntityID] = *method
	return nil
}

// Counts returns the number of stored persons, emails and login methods.
func (s *PersonStore) Counts() (persons, emails, methods int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.persons), len(s.emails), len(s.methods)
}

type personRepo struct{ s *PersonStore }

func (r personRepo) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.persons[id]
	if !ok || !p.Active {
		return nil, domain.ErrPersonNotFound
	}
	return &p, nil
}

func (r personRepo) Save(ctx context.Context, person *domain.Person) error {
	if person == nil {
		return domain.ErrInvalidPayload
	}
	if err := person.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if stored, ok := r.s.persons[person.EntityID]; ok && stored.Version != person.Version {
		return domain.ErrVersionConflict
	}
	person.Advance(person.EntityID, r.s.now())
	r.s.persons[person.EntityID] = *person
	return nil
}

type emailRepo struct{ s *PersonStore }

func (r emailRepo) GetByAddress(ctx context.Context, address string) (*domain.Email, error) {
	address = domain.NormalizeEmail(address)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.emails {
		if e.Address == address && e.Active {
			return &e, nil
		}
	}
	return nil, domain.ErrEmailNotFound
}

func (r emailRepo) GetByPersonID(ctx context.Context, personID string) (*domain.Email, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.emails {
		if e.PersonID == personID && e.Active {
			return &e, nil
		}
	}
	return nil, domain.ErrEmailNotFound
}

func (r emailRepo) Save(ctx context.Context, email *domain.Email) error {
	if email == nil {
		return domain.ErrInvalidPayload
	}
	email.Address = domain.NormalizeEmail(email.Address)
	if err := email.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, e := range r.s.emails {
		if id != email.EntityID && e.Address == email.Address {
			return domain.ErrEmailTaken
		}
	}
	if stored, ok := r.s.emails[email.EntityID]; ok && stored.Version != email.Version {
		return domain.ErrVersionConflict
	}
	email.Advance(email.PersonID, r.s.now())
	r.s.emails[email.EntityID] = *email
	return nil
}

type loginMethodRepo struct{ s *PersonStore }

func (r loginMethodRepo) GetByPersonID(ctx context.Context, personID string, methodType domain.LoginMethodType) (*domain.LoginMethod, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.methods {
		if m.PersonID == personID && m.MethodType == methodType && m.Active {
			return &m, nil
		}
	}
	return nil, domain.ErrLoginMethodNotFound
}

func (r loginMethodRepo) Save(ctx context.Context, method *domain.LoginMethod) error {
	if method == nil {
		return domain.ErrInvalidPayload
	}
	if err := method.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if stored, ok := r.s.methods[method.EntityID]; ok && stored.Version != method.Version {
		return domain.ErrVersionConflict
	}
	method.Advance(method.PersonID, r.s.now())
	r.s.methods[method.EntityID] = *method
	return nil
}
