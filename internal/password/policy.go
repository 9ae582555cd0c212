// Package password holds the password strength policy and the one-way
// hashing used for stored credentials.
package password

import (
	"unicode"
	"unicode/utf8"
)

const (
	MinLength = 8
	MaxLength = 128
)

// Violation identifies one failed rule.
type Violation string

const (
	TooShort    Violation = "too_short"
	TooLong     Violation = "too_long"
	NoUppercase Violation = "no_uppercase"
	NoLowercase Violation = "no_lowercase"
	NoDigit     Violation = "no_digit"
	NoSymbol    Violation = "no_symbol"
	HasSpace    Violation = "has_space"
	TooCommon   Violation = "too_common"
)

var messages = map[Violation]string{
	TooShort:    "Password must be at least 8 characters long",
	TooLong:     "Password must not exceed 128 characters",
	NoUppercase: "Password must contain at least one uppercase letter",
	NoLowercase: "Password must contain at least one lowercase letter",
	NoDigit:     "Password must contain at least one number",
	NoSymbol:    "Password must contain at least one special character (!@#$%^&*)",
	HasSpace:    "Password must not contain spaces",
	TooCommon:   "Password is too common, please choose a stronger password",
}

// Message returns the human readable text for v.
func (v Violation) Message() string {
	if m, ok := messages[v]; ok {
		return m
	}
	return "Invalid password"
}

// denylist is matched exactly and case-sensitively.
var denylist = map[string]struct{}{
	"Password123!": {},
	"Qwerty123!":   {},
	"Admin123!":    {},
}

// Result is the outcome of Validate.  Violations keeps rule order.
type Result struct {
	Valid      bool
	Violations []Violation
}

// Messages renders the violations as display strings.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Message())
	}
	return out
}

// Validate checks pw against every rule and reports all failures together.
func Validate(pw string) Result {
	var upper, lower, digit, symbol, space bool
	for _, r := range pw {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	var vs []Violation
	n := utf8.RuneCountInString(pw)
	if n < MinLength {
		vs = append(vs, TooShort)
	}
	if n > MaxLength {
		vs = append(vs, TooLong)
	}
	if !upper {
		vs = append(vs, NoUppercase)
	}
	if !lower {
		vs = append(vs, NoLowercase)
	}
	if !digit {
		vs = append(vs, NoDigit)
	}
	if !symbol {
		vs = append(vs, NoSymbol)
	}
	if space {
		vs = append(vs, HasSpace)
	}
	if _, common := denylist[pw]; common {
		vs = append(vs, TooCommon)
	}
	return Result{Valid: len(vs) == 0, Violations: vs}
}
