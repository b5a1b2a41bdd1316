package domain

import (
	"encoding/json"
	"strings"
)

// Person represents an authenticated identity that owns todos.
type Person struct {
	VersionedModel
	FirstName string
	LastName  string
}

func NewPerson(firstName, lastName string) *Person {
	return &Person{
		VersionedModel: NewVersionedModel(),
		FirstName:      firstName,
		LastName:       lastName,
	}
}

func (p *Person) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return Validation("first_name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return Validation("last_name is required")
	}
	return nil
}

// FullName is used as the recipient name on outgoing mail.
func (p *Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Person) Map(isoDates bool) map[string]interface{} {
	out := p.VersionedModel.Fields(isoDates)
	out["first_name"] = p.FirstName
	out["last_name"] = p.LastName
	return out
}

func (p *Person) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Map(true))
}

// Email is an address attached to a person. Addresses are stored lowercased.
type Email struct {
	VersionedModel
	PersonID   string
	Address    string
	IsVerified bool
}

func NewEmail(personID, address string) *Email {
	return &Email{
		VersionedModel: NewVersionedModel(),
		PersonID:       personID,
		Address:        NormalizeEmail(address),
	}
}

func (e *Email) Validate() error {
	if e.PersonID == "" {
		return Validation("person_id is required")
	}
	if e.Address == "" || !strings.Contains(e.Address, "@") {
		return Validation("A valid email_address is required.")
	}
	return nil
}

// NormalizeEmail trims and lowercases an address for lookups.
func NormalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// LoginMethodType names how a person authenticates.
type LoginMethodType string

const LoginMethodEmailPassword LoginMethodType = "email-password"

// LoginMethod holds the credential used to authenticate a person.
type LoginMethod struct {
	VersionedModel
	PersonID     string
	EmailID      string
	MethodType   LoginMethodType
	PasswordHash string
}

func (l *LoginMethod) Validate() error {
	if l.PersonID == "" {
		return Validation("person_id is required")
	}
	if l.MethodType == LoginMethodEmailPassword && l.PasswordHash == "" {
		return Validation("password is required")
	}
	return nil
}
