package utils

import (
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"entities", "Tom &amp; Jerry &quot;Deluxe&quot; &#39;set&#39;", `Tom & Jerry "Deluxe" 'set'`},
		{"angle brackets", "&lt;b&gt;", "<b>"},
		{"nbsp", "Wireless&nbsp;Earbuds", "Wireless Earbuds"},
		{"whitespace", "  a \n\t b   c ", "a b c"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.input); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDescriptionText(t *testing.T) {
	got := DescriptionText("<p>Great <b>sound</b></p>")
	if strings.Contains(got, "<") {
		t.Errorf("expected markup to be removed, got %q", got)
	}
	if !strings.Contains(got, "Great") || !strings.Contains(got, "sound") {
		t.Errorf("expected text content to survive, got %q", got)
	}

	if got := DescriptionText("plain  text"); got != "plain text" {
		t.Errorf("expected plain text passthrough, got %q", got)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"19.99", 19.99, true},
		{"$1,299.99", 1299.99, true},
		{" 7 USD", 7, true},
		{"-1", -1, true},
		{"n/a", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseNumber(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseInt(t *testing.T) {
	if got, ok := ParseInt("12,345"); !ok || got != 12345 {
		t.Errorf("ParseInt thousands = %d, %v", got, ok)
	}
}

func TestNumberFromAny(t *testing.T) {
	if v, ok := NumberFromAny(float64(3.5)); !ok || v != 3.5 {
		t.Errorf("float: %v %v", v, ok)
	}
	if v, ok := NumberFromAny("29.99"); !ok || v != 29.99 {
		t.Errorf("string: %v %v", v, ok)
	}
	if _, ok := NumberFromAny(map[string]interface{}{}); ok {
		t.Error("object should not coerce")
	}
}
