// Package fanout turns one finalized transcript into per-recipient translated
// messages, invoking the translator exactly once per distinct target language
// no matter how many recipients share it.
package fanout

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	lang "github.com/babelroom/babelroom/internal/language"
	"github.com/babelroom/babelroom/internal/metrics"
	"github.com/babelroom/babelroom/internal/models"
	"github.com/babelroom/babelroom/internal/protocol"
	"github.com/babelroom/babelroom/internal/providers/mt"
	"github.com/babelroom/babelroom/internal/registry"
)

type Engine struct {
	mt       mt.Provider
	registry *registry.Registry
	fallback string
	log      *logrus.Entry
}

func NewEngine(provider mt.Provider, reg *registry.Registry, fallbackLang string, log *logrus.Logger) *Engine {
	if fallbackLang == "" {
		fallbackLang = "en-US"
	}
	return &Engine{
		mt:       provider,
		registry: reg,
		fallback: fallbackLang,
		log:      log.WithField("component", "fanout"),
	}
}

// Dispatch fans one final transcript out to the session's recipients. Room
// mode translates for every other present participant grouped by language;
// solo mode translates for the speaker alone into the session's explicit
// target. Group failures are logged and skipped without blocking the rest.
func (e *Engine) Dispatch(ctx context.Context, session models.RecordingSession, seg models.TranscriptSegment) {
	if !seg.IsFinal || seg.Text == "" {
		return
	}

	if session.Mode == models.ModeSolo {
		e.dispatchSolo(ctx, session, seg)
		return
	}

	// Group present recipients by normalized target language. Speakers whose
	// language matches the source still get the original text delivered, so
	// nothing is translated for them.
	groups := make(map[string][]models.Participant)
	for _, p := range e.registry.Present(session.RoomID) {
		if p.UserID == session.UserID {
			continue
		}
		code := lang.NormalizeOr(p.Language, e.fallback)
		groups[code] = append(groups[code], p)
	}
	if len(groups) == 0 {
		return
	}

	job := models.TranslationJob{
		Text:       seg.Text,
		SourceLang: session.Language,
	}
	for code := range groups {
		job.TargetLangs = append(job.TargetLangs, code)
	}

	log := e.log.WithFields(logrus.Fields{
		"room_id":      session.RoomID,
		"session_id":   session.SessionID,
		"seq":          seg.Seq,
		"target_langs": job.TargetLangs,
	})

	// Language groups translate concurrently and fail independently.
	var wg sync.WaitGroup
	for code, recipients := range groups {
		wg.Add(1)
		go func(code string, recipients []models.Participant) {
			defer wg.Done()
			e.deliverGroup(ctx, session, seg, job, code, recipients, log)
		}(code, recipients)
	}
	wg.Wait()
}

func (e *Engine) deliverGroup(ctx context.Context, session models.RecordingSession, seg models.TranscriptSegment, job models.TranslationJob, code string, recipients []models.Participant, log *logrus.Entry) {
	text := job.Text
	if !lang.Same(code, session.Language) {
		translated, err := e.mt.Translate(ctx, job.Text, job.SourceLang, code)
		if err != nil {
			metrics.TranslationCalls.WithLabelValues("error").Inc()
			log.WithError(err).WithField("target_lang", code).Warn("translation failed, skipping language group")
			return
		}
		metrics.TranslationCalls.WithLabelValues("ok").Inc()
		text = translated
	}

	for _, p := range recipients {
		msg := protocol.ServerMessage{
			Type:           protocol.TypeTranslatedMessage,
			Text:           text,
			Seq:            seg.Seq,
			Language:       session.Language,
			TargetLanguage: code,
			FromUserID:     session.UserID,
			ToUserID:       p.UserID,
		}
		if err := e.registry.Send(session.RoomID, p.UserID, msg); err != nil {
			log.WithError(err).WithField("to_user_id", p.UserID).Debug("delivery failed")
			continue
		}
		metrics.TranslatedDeliveries.Inc()
	}
}

func (e *Engine) dispatchSolo(ctx context.Context, session models.RecordingSession, seg models.TranscriptSegment) {
	code := lang.NormalizeOr(session.TargetLanguage, e.fallback)

	text := seg.Text
	if !lang.Same(code, session.Language) {
		translated, err := e.mt.Translate(ctx, seg.Text, session.Language, code)
		if err != nil {
			metrics.TranslationCalls.WithLabelValues("error").Inc()
			e.log.WithError(err).WithFields(logrus.Fields{
				"session_id":  session.SessionID,
				"target_lang": code,
			}).Warn("solo translation failed")
			return
		}
		metrics.TranslationCalls.WithLabelValues("ok").Inc()
		text = translated
	}

	msg := protocol.ServerMessage{
		Type:           protocol.TypeSoloTranslated,
		Text:           text,
		Seq:            seg.Seq,
		Language:       session.Language,
		TargetLanguage: code,
		ToUserID:       session.UserID,
	}
	if err := e.registry.Send(session.RoomID, session.UserID, msg); err != nil {
		e.log.WithError(err).Debug("solo delivery failed")
		return
	}
	metrics.TranslatedDeliveries.Inc()
}
