package transport

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sandpiper/backend/domain"
)

// InvalidDueDate is returned for a due_date that is not ISO-8601.
var InvalidDueDate = domain.Validation("Invalid due date format. Use ISO format (YYYY-MM-DDTHH:MM:SS).")

// dueDateLayouts are tried in order. Values without an offset are taken as UTC.
var dueDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05-0700",
}

type TodoCreateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
}

// TodoUpdateRequest carries a partial update. Absent and null fields are
// left untouched.
type TodoUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsCompleted *bool   `json:"is_completed"`
	DueDate     *string `json:"due_date"`
}

type ProfileUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type SignupRequest struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	EmailAddress *string `json:"email_address"`
	Password     *string `json:"password"`
}

type LoginRequest struct {
	EmailAddress *string `json:"email_address"`
	Password     *string `json:"password"`
}

type TokenRequest struct {
	Token *string `json:"token"`
}

type ForgotPasswordRequest struct {
	EmailAddress *string `json:"email_address"`
}

type ResetPasswordRequest struct {
	Token    *string `json:"token"`
	Password *string `json:"password"`
}

// Decode parses a JSON object body into dst.
func Decode(body []byte, dst interface{}) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return domain.Validation("Error parsing request body: empty body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return domain.Validation(fmt.Sprintf("Error parsing request body: %v", err))
	}
	return nil
}

// Required checks a field is present and not blank, returning its value.
func Required(name string, value *string) (string, error) {
	if value == nil {
		return "", domain.Validation(fmt.Sprintf("'%s' is required.", name))
	}
	if strings.TrimSpace(*value) == "" {
		return "", domain.Validation(fmt.Sprintf("'%s' is required and cannot be empty.", name))
	}
	return *value, nil
}

// Optional dereferences value, returning "" when absent.
func Optional(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// ParseDueDate parses an ISO-8601 date or datetime. Nil and blank values
// yield nil.
func ParseDueDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dueDateLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			parsed = parsed.UTC()
			return &parsed, nil
		}
	}
	return nil, InvalidDueDate
}
