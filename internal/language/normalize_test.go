package language

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"es", "es", true},
		{"ES", "es", true},
		{"es-MX", "es", true},
		{"es-419", "es", true},
		{"en-US", "en", true},
		{"en-GB", "en", true},
		{"pt-BR", "pt", true},
		{"", "", false},
		{"  ", "", false},
		{"??", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := Normalize(tc.in)
			if ok != tc.ok || got != tc.want {
				t.Errorf("Normalize(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestNormalizeOr(t *testing.T) {
	if got := NormalizeOr("", "en-US"); got != "en" {
		t.Errorf("empty code should fall back: got %q", got)
	}
	if got := NormalizeOr("fr-CA", "en-US"); got != "fr" {
		t.Errorf("valid code should win: got %q", got)
	}
	if got := NormalizeOr("??", "de-DE"); got != "de" {
		t.Errorf("invalid code should fall back: got %q", got)
	}
}

func TestSame(t *testing.T) {
	if !Same("es-MX", "ES") {
		t.Error("region and case must not split a language")
	}
	if Same("es", "pt") {
		t.Error("distinct languages must not match")
	}
	if Same("", "es") {
		t.Error("empty code never matches")
	}
}
