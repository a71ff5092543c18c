// Package validation evaluates ordered predicate+message rules over request
// fields and collects every violation in a single pass.
package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Violation is one failed rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is a non-empty, ordered list of violations.
type Errors []Violation

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Rule fails with Message when Valid returns false.
type Rule struct {
	Message string
	Valid   func(string) bool
}

// Field binds a value to the rules it must satisfy.
type Field struct {
	Name  string
	Value string
	Rules []Rule
}

// Check runs every rule of every field, in order.
func Check(fields ...Field) Errors {
	var out Errors
	for _, f := range fields {
		for _, r := range f.Rules {
			if !r.Valid(f.Value) {
				out = append(out, Violation{Field: f.Name, Message: r.Message})
			}
		}
	}
	return out
}

func Required(msg string) Rule {
	return Rule{Message: msg, Valid: func(s string) bool { return strings.TrimSpace(s) != "" }}
}

// MinLen counts runes, not bytes.
func MinLen(n int, msg string) Rule {
	return Rule{Message: msg, Valid: func(s string) bool { return utf8.RuneCountInString(s) >= n }}
}

func MaxLen(n int, msg string) Rule {
	return Rule{Message: msg, Valid: func(s string) bool { return utf8.RuneCountInString(s) <= n }}
}

// Email accepts a bare addr-spec ("local@domain"); display names and angle
// brackets are rejected.
func Email(msg string) Rule {
	return Rule{Message: msg, Valid: IsEmail}
}

func IsEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && at < len(s)-1
}
