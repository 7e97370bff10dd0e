package password

import (
	"reflect"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

// expectedScore recomputes the additive score without the package helpers.
func expectedScore(p Policy, pw string) int {
	runes := []rune(pw)
	s := 0
	for _, n := range []int{8, 12, 16} {
		if len(runes) >= n {
			s += 10
		}
	}
	for _, present := range []bool{
		strings.IndexFunc(pw, unicode.IsUpper) >= 0,
		strings.IndexFunc(pw, unicode.IsLower) >= 0,
		strings.IndexFunc(pw, unicode.IsDigit) >= 0,
		strings.ContainsAny(pw, p.Symbols),
	} {
		if present {
			s += 10
		}
	}

	distinct := map[rune]bool{}
	for _, r := range runes {
		distinct[r] = true
	}
	if len(distinct) >= 8 {
		s += 10
	}
	if len(distinct) >= 12 {
		s += 10
	}

	for i := 2; i < len(runes); i++ {
		if runes[i] == runes[i-1] && runes[i] == runes[i-2] {
			s -= 10
			break
		}
	}
	lower := strings.ToLower(pw)
	for _, seq := range p.CommonSequences {
		if strings.Contains(lower, strings.ToLower(seq)) {
			s -= 10
			break
		}
	}

	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func FuzzPolicyValidate(f *testing.F) {
	for _, seed := range []string{
		"",
		"abc",
		"Str0ng!Pass",
		"Kx9!mP2#vL7&qR4z",
		"Aaa!1aaaQWE",
		"ÄÖÜäöü123!@#",
		"\xff\xfe\xfd",
		strings.Repeat("Zz9!", 300),
	} {
		f.Add(seed)
	}

	p := DefaultPolicy()
	f.Fuzz(func(t *testing.T, pw string) {
		res := p.Validate(pw)

		if res.Score < 0 || res.Score > 100 {
			t.Fatalf("score %d out of range for %q", res.Score, pw)
		}
		if res.Valid != (len(res.Errors) == 0) {
			t.Fatalf("valid=%v with errors %v", res.Valid, res.Errors)
		}
		if again := p.Validate(pw); !reflect.DeepEqual(res, again) {
			t.Fatalf("non-deterministic result for %q: %+v vs %+v", pw, res, again)
		}
		if want := expectedScore(p, pw); res.Score != want {
			t.Fatalf("score for %q = %d, want %d", pw, res.Score, want)
		}
		if res.Valid {
			if utf8.RuneCountInString(pw) < p.MinLength || len(pw) > p.MaxBytes {
				t.Fatalf("length rules violated by accepted %q", pw)
			}
			if p.Check(pw) != nil {
				t.Fatalf("Check disagrees with Validate for %q", pw)
			}
		}
	})
}
