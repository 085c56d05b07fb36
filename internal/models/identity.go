package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AccessLevel string

const (
	AccessGuest AccessLevel = "guest"
	AccessUser  AccessLevel = "user"
	AccessAdmin AccessLevel = "admin"
)

func ParseAccessLevel(s string) (AccessLevel, error) {
	switch AccessLevel(s) {
	case AccessGuest, AccessUser, AccessAdmin:
		return AccessLevel(s), nil
	}
	return "", fmt.Errorf("unknown access level %q", s)
}

// Label carries the display name of an identity. Placeholder is true for
// names generated at auto-enrollment, so callers can tell generated names
// from user-provided ones without inspecting the string.
type Label struct {
	Name        string `json:"name" db:"name"`
	Placeholder bool   `json:"placeholder" db:"placeholder"`
}

func NamedLabel(name string) Label {
	return Label{Name: name}
}

// PlaceholderLabel generates a unique display name for an identity enrolled
// without prompted metadata, e.g. "User_20260214153059_a1b2c3".
func PlaceholderLabel(t time.Time) Label {
	tag := uuid.NewString()[:6]
	return Label{
		Name:        fmt.Sprintf("User_%s_%s", t.Format("20060102150405"), tag),
		Placeholder: true,
	}
}

type Identity struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	Label      Label       `json:"label"`
	Access     AccessLevel `json:"access" db:"access"`
	Descriptor []float32   `json:"-" db:"descriptor"`
	ImageKey   string      `json:"image_key" db:"image_key"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}
