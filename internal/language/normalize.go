package language

import (
	"strings"

	"golang.org/x/text/language"
)

// Normalize canonicalizes a BCP 47 language code for fan-out grouping.
// Comparison is case- and region-insensitive: "es", "ES", "es-MX" and "es-419"
// all group as "es". Empty or unparsable codes return ok=false so the caller
// can apply its fallback language.
func Normalize(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	return base.String(), true
}

// NormalizeOr normalizes code, falling back to fallback when code is unset or
// unrecognized. The fallback itself is normalized best-effort.
func NormalizeOr(code, fallback string) string {
	if n, ok := Normalize(code); ok {
		return n
	}
	if n, ok := Normalize(fallback); ok {
		return n
	}
	return strings.ToLower(strings.TrimSpace(fallback))
}

// Same reports whether two codes group into the same normalized language.
func Same(a, b string) bool {
	na, oka := Normalize(a)
	nb, okb := Normalize(b)
	return oka && okb && na == nb
}
