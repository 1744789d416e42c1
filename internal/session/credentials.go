package session

import (
	"net/mail"
	"strings"
)

const MinPasswordLength = 6

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login form before it is sent. The returned map is keyed
// by field and empty when the form is acceptable.
func (c Credentials) Validate() map[string]string {
	v := map[string]string{}
	email := strings.TrimSpace(c.Email)
	switch {
	case email == "":
		v["email"] = "required"
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			v["email"] = "invalid"
		}
	}
	if len(c.Password) < MinPasswordLength {
		v["password"] = "too_short"
	}
	return v
}
