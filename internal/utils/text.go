// internal/utils/text.go
package utils

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	tagRegex        = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
	numberRegex     = regexp.MustCompile(`-?\d[\d,]*\.?\d*`)
	lowerCaser      = cases.Lower(language.Und)
)

// CleanText decodes HTML entities, folds compatibility characters such as
// non-breaking spaces and collapses whitespace runs into single spaces.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	decoded := html.UnescapeString(text)
	decoded = norm.NFKC.String(decoded)
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(decoded, " "))
}

// DescriptionText turns a description that may carry markup into readable
// text. Plain strings only go through CleanText.
func DescriptionText(text string) string {
	if !tagRegex.MatchString(text) {
		return CleanText(text)
	}
	markdown, err := htmltomarkdown.ConvertString(text)
	if err != nil {
		return CleanText(tagRegex.ReplaceAllString(text, " "))
	}
	return CleanText(markdown)
}

// Lower lowercases text using Unicode-aware case mapping.
func Lower(text string) string {
	return lowerCaser.String(text)
}

// ParseNumber coerces a loosely formatted numeric string ("$1,299.99",
// " 19.99 USD") into a float. The boolean is false when no number is present.
func ParseNumber(text string) (float64, bool) {
	match := numberRegex.FindString(strings.TrimSpace(text))
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseInt coerces a string with optional thousands separators into an int.
func ParseInt(text string) (int, bool) {
	value, ok := ParseNumber(text)
	if !ok {
		return 0, false
	}
	return int(value), true
}

// NumberFromAny coerces JSON scalars (numbers or numeric strings) into a float.
func NumberFromAny(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		return ParseNumber(v)
	default:
		return 0, false
	}
}

// StringFromAny renders JSON scalars as strings; objects and arrays yield "".
func StringFromAny(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
