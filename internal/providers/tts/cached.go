package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/babelroom/babelroom/internal/cache"
	"github.com/babelroom/babelroom/internal/metrics"
)

// Cached wraps a Provider with a content+voice keyed cache. Synthesis is
// deterministic per key, so repeated phrases (greetings, short confirmations)
// skip the provider entirely.
type Cached struct {
	Inner Provider
	Cache cache.Cache
	TTL   time.Duration
}

func NewCached(inner Provider, c cache.Cache, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cached{Inner: inner, Cache: c, TTL: ttl}
}

func (c *Cached) Name() string                       { return c.Inner.Name() }
func (c *Cached) Available(ctx context.Context) bool { return c.Inner.Available(ctx) }
func (c *Cached) Close() error                       { return c.Inner.Close() }

func (c *Cached) Synthesize(ctx context.Context, text string, voice VoiceConfig) ([]byte, error) {
	key := cacheKey(text, voice)

	if audio, hit, err := c.Cache.GetBytes(ctx, key); err == nil && hit {
		metrics.SynthesisCacheHits.WithLabelValues("hit").Inc()
		return audio, nil
	}
	metrics.SynthesisCacheHits.WithLabelValues("miss").Inc()

	audio, err := c.Inner.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	// Best effort: a failed cache write only costs the next synthesis.
	_ = c.Cache.SetBytes(ctx, key, audio, c.TTL)
	return audio, nil
}

func cacheKey(text string, voice VoiceConfig) string {
	h := sha256.Sum256([]byte(voice.Language + "\x00" + voice.Voice + "\x00" + text))
	return "tts:" + hex.EncodeToString(h[:])
}
