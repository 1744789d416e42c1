package session

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Indonesian numbers: +62, 62 or a leading 0, then 9 to 13 digits.
	phonePattern = regexp.MustCompile(`^(\+62|62|0)[0-9]{9,13}$`)
	phoneFiller  = strings.NewReplacer("-", "", " ", "", "\t", "")
)

// Profile is the account form as edited on the terminal.
type Profile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
}

// Validate returns violations keyed by field; empty means the draft may be
// saved. Dashes and spaces in the phone number are ignored.
func (p Profile) Validate() map[string]string {
	v := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		v["name"] = "required"
	}
	if !emailPattern.MatchString(p.Email) {
		v["email"] = "invalid"
	}
	if !phonePattern.MatchString(phoneFiller.Replace(p.Phone)) {
		v["phone"] = "invalid"
	}
	return v
}
