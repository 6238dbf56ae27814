// internal/extract/cascade.go
package extract

import (
	"regexp"

	"github.com/valpere/DropScrapexter/internal/utils"
)

// Rule is one candidate pattern for a field. Group selects the submatch
// to return; zero means the whole match. Accept, when set, rejects
// implausible captures so the cascade moves on.
type Rule struct {
	Pattern *regexp.Regexp
	Group   int
	Accept  func(value string) bool
}

// Cascade is an ordered list of rules evaluated first-valid-match-wins
type Cascade []Rule

// rule compiles a pattern into a Rule capturing group 1
func rule(pattern string) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern), Group: 1}
}

// wholeRule compiles a pattern into a Rule returning the whole match
func wholeRule(pattern string) Rule {
	return Rule{Pattern: regexp.MustCompile(pattern)}
}

// accepting returns a copy of r with a validator attached
func (r Rule) accepting(accept func(string) bool) Rule {
	r.Accept = accept
	return r
}

// First returns the first capture accepted by its rule, trying every
// match of a rule before moving to the next one.
func (c Cascade) First(text string) (string, bool) {
	for _, r := range c {
		if m, ok := r.first(text); ok {
			return m, true
		}
	}
	return "", false
}

// FirstMatch is like First but also returns the full submatch slice of
// the winning match, for rules that capture more than one value.
func (c Cascade) FirstMatch(text string) ([]string, bool) {
	for _, r := range c {
		for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
			if r.Group >= len(m) || m[r.Group] == "" {
				continue
			}
			if r.Accept == nil || r.Accept(m[r.Group]) {
				return m, true
			}
		}
	}
	return nil, false
}

// FirstNumber returns the first accepted capture parsed as a number
func (c Cascade) FirstNumber(text string) (float64, bool) {
	m, ok := c.First(text)
	if !ok {
		return 0, false
	}
	return utils.ParseNumber(m)
}

func (r Rule) first(text string) (string, bool) {
	if r.Accept == nil {
		m := r.Pattern.FindStringSubmatch(text)
		if r.Group >= len(m) || m[r.Group] == "" {
			return "", false
		}
		return m[r.Group], true
	}
	for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
		if r.Group >= len(m) || m[r.Group] == "" {
			continue
		}
		if r.Accept(m[r.Group]) {
			return m[r.Group], true
		}
	}
	return "", false
}

// numberBetween accepts numeric captures strictly inside (lo, hi)
func numberBetween(lo, hi float64) func(string) bool {
	return func(s string) bool {
		v, ok := utils.ParseNumber(s)
		return ok && v > lo && v < hi
	}
}

// positiveNumber accepts numeric captures greater than zero
func positiveNumber(s string) bool {
	v, ok := utils.ParseNumber(s)
	return ok && v > 0
}

// minLength accepts captures longer than n bytes
func minLength(n int) func(string) bool {
	return func(s string) bool {
		return len(s) > n
	}
}

// containsDigit accepts captures with at least one digit
func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
