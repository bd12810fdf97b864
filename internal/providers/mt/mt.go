// Package mt abstracts machine translation. Calls are idempotent and safe to
// retry; no ordering is guaranteed across language pairs.
package mt

import "context"

type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Close() error
}
