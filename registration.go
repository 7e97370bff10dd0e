package authcore

import (
	"fmt"
	"html"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// markupPolicy strips every tag; display fields must survive it unchanged
// apart from entity escaping.
var markupPolicy = bluemonday.StrictPolicy()

const maxEmailLength = 254

// normalizeRegistration trims and canonicalises req in place and reports the
// first malformed field.
func (e *Engine) normalizeRegistration(req *RegisterRequest) error {
	req.Email = normalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	req.Name = norm.NFC.String(strings.TrimSpace(req.Name))
	req.Function = norm.NFC.String(strings.TrimSpace(req.Function))
	req.Role = strings.TrimSpace(req.Role)
	req.CreatedBy = strings.TrimSpace(req.CreatedBy)
	req.UniqueID = strings.TrimSpace(req.UniqueID)

	if req.Email == "" {
		return &RegistrationError{Field: "email", Reason: "is required"}
	}
	if len(req.Email) > maxEmailLength {
		return &RegistrationError{Field: "email", Reason: "is too long"}
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email || addr.Name != "" {
		return &RegistrationError{Field: "email", Reason: "is not a valid address"}
	}

	if err := checkLength("username", req.Username, 3, 200); err != nil {
		return err
	}
	if !usernamePattern.MatchString(req.Username) {
		return &RegistrationError{Field: "username", Reason: "may only contain letters, digits, '.', '_' and '-'"}
	}

	if err := checkLength("name", req.Name, 2, 300); err != nil {
		return err
	}
	if err := checkPlainText("name", req.Name); err != nil {
		return err
	}
	if req.Function != "" {
		if err := checkLength("function", req.Function, 2, 300); err != nil {
			return err
		}
		if err := checkPlainText("function", req.Function); err != nil {
			return err
		}
	}

	if req.Role == "" {
		req.Role = e.config.Account.DefaultRole
	}
	if err := checkLength("role", req.Role, 2, 300); err != nil {
		return err
	}

	if req.CreatedBy != "" {
		if err := checkLength("created_by", req.CreatedBy, 2, 400); err != nil {
			return err
		}
	}

	switch {
	case req.UniqueID == "":
		if e.config.Account.RequireUniqueID {
			return &RegistrationError{Field: "unique_id", Reason: "is required"}
		}
	case e.config.Account.ValidateUniqueID:
		digits, ok := normalizeCPF(req.UniqueID)
		if !ok {
			return &RegistrationError{Field: "unique_id", Reason: "is not a valid national id"}
		}
		req.UniqueID = digits
	default:
		if err := checkLength("unique_id", req.UniqueID, 1, 64); err != nil {
			return err
		}
	}
	return nil
}

func checkLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return &RegistrationError{Field: field, Reason: fmt.Sprintf("must be between %d and %d characters", min, max)}
	}
	return nil
}

func checkPlainText(field, value string) error {
	if html.UnescapeString(markupPolicy.Sanitize(value)) != value {
		return &RegistrationError{Field: field, Reason: "must not contain markup"}
	}
	return nil
}

// normalizeCPF strips the usual punctuation from a Brazilian CPF and checks
// its two mod-11 check digits.
func normalizeCPF(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == ' ':
		default:
			return "", false
		}
	}
	digits := b.String()
	if len(digits) != 11 {
		return "", false
	}
	if strings.Count(digits, digits[:1]) == len(digits) {
		return "", false
	}

	for _, pos := range []int{9, 10} {
		sum := 0
		for i := 0; i < pos; i++ {
			sum += int(digits[i]-'0') * (pos + 1 - i)
		}
		check := sum * 10 % 11
		if check == 10 {
			check = 0
		}
		if int(digits[pos]-'0') != check {
			return "", false
		}
	}
	return digits, true
}
