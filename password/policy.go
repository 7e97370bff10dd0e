package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSymbols is the punctuation set that satisfies the symbol rule.
const DefaultSymbols = `!@#$%^&*(),.?":{}|<>`

// ErrPolicyViolation matches every *PolicyError.
var ErrPolicyViolation = errors.New("password does not satisfy policy")

// PolicyError lists the hard rules a password broke.
type PolicyError struct {
	Errors []string
}

func (e *PolicyError) Error() string {
	return ErrPolicyViolation.Error() + ": " + strings.Join(e.Errors, "; ")
}

func (e *PolicyError) Is(target error) bool { return target == ErrPolicyViolation }

// Policy scores password strength. The zero value is not usable; start from
// DefaultPolicy.
type Policy struct {
	MinLength         int
	RecommendedLength int
	Symbols           string
	// CommonSequences are matched case-insensitively.
	CommonSequences []string
	// MaxBytes rejects passwords the hasher would refuse. Zero disables it.
	MaxBytes int
}

// Result is the outcome of Policy.Validate. Valid is true iff Errors is empty.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Score    int      `json:"score"`
}

// DefaultPolicy returns the stock rules: 8 characters minimum, all four
// character classes, 12 recommended.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:         8,
		RecommendedLength: 12,
		Symbols:           DefaultSymbols,
		CommonSequences:   []string{"123", "abc", "qwe", "asd"},
		MaxBytes:          DefaultMaxPasswordBytes,
	}
}

type classes struct {
	upper, lower, digit, symbol bool
}

func (c classes) count() int {
	n := 0
	for _, ok := range []bool{c.upper, c.lower, c.digit, c.symbol} {
		if ok {
			n++
		}
	}
	return n
}

// Validate checks password against the policy. It has no side effects.
func (p Policy) Validate(password string) Result {
	length := utf8.RuneCountInString(password)
	cls := p.classify(password)

	res := Result{Errors: []string{}, Warnings: []string{}}
	if length < p.MinLength {
		res.Errors = append(res.Errors, fmt.Sprintf("password must be at least %d characters long", p.MinLength))
	}
	if p.MaxBytes > 0 && len(password) > p.MaxBytes {
		res.Errors = append(res.Errors, fmt.Sprintf("password must be at most %d bytes long", p.MaxBytes))
	}
	if !cls.upper {
		res.Errors = append(res.Errors, "password must contain at least one uppercase letter")
	}
	if !cls.lower {
		res.Errors = append(res.Errors, "password must contain at least one lowercase letter")
	}
	if !cls.digit {
		res.Errors = append(res.Errors, "password must contain at least one digit")
	}
	if !cls.symbol {
		res.Errors = append(res.Errors, "password must contain at least one special character")
	}

	repeated := hasTripleRun(password)
	common := p.hasCommonSequence(password)
	if length < p.RecommendedLength {
		res.Warnings = append(res.Warnings, fmt.Sprintf("consider using at least %d characters", p.RecommendedLength))
	}
	if repeated {
		res.Warnings = append(res.Warnings, "avoid repeating the same character three or more times in a row")
	}
	if common {
		res.Warnings = append(res.Warnings, "avoid common sequences such as 123 or abc")
	}

	res.Valid = len(res.Errors) == 0
	res.Score = score(length, cls, distinctRunes(password), repeated, common)
	return res
}

// Check returns a *PolicyError when password breaks a hard rule.
func (p Policy) Check(password string) error {
	res := p.Validate(password)
	if res.Valid {
		return nil
	}
	return &PolicyError{Errors: res.Errors}
}

func (p Policy) classify(password string) classes {
	var c classes
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsDigit(r):
			c.digit = true
		case strings.ContainsRune(p.Symbols, r):
			c.symbol = true
		}
	}
	return c
}

func (p Policy) hasCommonSequence(password string) bool {
	lower := strings.ToLower(password)
	for _, seq := range p.CommonSequences {
		if seq != "" && strings.Contains(lower, strings.ToLower(seq)) {
			return true
		}
	}
	return false
}

func score(length int, cls classes, distinct int, repeated, common bool) int {
	s := 0
	for _, threshold := range []int{8, 12, 16} {
		if length >= threshold {
			s += 10
		}
	}
	s += 10 * cls.count()
	if distinct >= 8 {
		s += 10
	}
	if distinct >= 12 {
		s += 10
	}
	if repeated {
		s -= 10
	}
	if common {
		s -= 10
	}
	return min(max(s, 0), 100)
}

func hasTripleRun(password string) bool {
	var prev rune
	run := 0
	for _, r := range password {
		if run > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= 3 {
			return true
		}
		prev = r
	}
	return false
}

func distinctRunes(password string) int {
	seen := make(map[rune]struct{}, len(password))
	for _, r := range password {
		seen[r] = struct{}{}
	}
	return len(seen)
}
