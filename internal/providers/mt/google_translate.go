package mt

import (
	"context"

	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/babelroom/babelroom/internal/utils"
)

// GoogleTranslate calls the Cloud Translation v2 API.
type GoogleTranslate struct {
	c *translate.Client
}

func NewGoogleTranslate(ctx context.Context, opts ...option.ClientOption) (*GoogleTranslate, error) {
	c, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleTranslate{c: c}, nil
}

func (g *GoogleTranslate) Name() string { return "google-translate" }

func (g *GoogleTranslate) Available(ctx context.Context) bool { return g != nil && g.c != nil }

func (g *GoogleTranslate) Close() error { return g.c.Close() }

func (g *GoogleTranslate) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	const op = "GoogleTranslate.Translate"

	target, err := language.Parse(targetLang)
	if err != nil {
		return "", utils.E(utils.CodeInvalidArgument, op, "invalid target language", err)
	}

	opts := &translate.Options{Format: translate.Text}
	if src, err := language.Parse(sourceLang); err == nil {
		opts.Source = src
	}

	out, err := g.c.Translate(ctx, []string{text}, target, opts)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "translation failed", err)
	}
	if len(out) == 0 {
		return "", utils.E(utils.CodeInternal, op, "empty translation response", nil)
	}
	return out[0].Text, nil
}
