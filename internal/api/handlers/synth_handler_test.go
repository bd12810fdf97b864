package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/babelroom/babelroom/internal/providers/tts"
)

func newSynthRouter(t *testing.T) (*gin.Engine, *tts.Stub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	stub := tts.NewStub()
	r := gin.New()
	r.POST("/synthesize", NewSynthHandler(stub).Synthesize)
	return r, stub
}

func postSynth(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/synthesize", strings.NewReader(body))
	req.Header.Set("X-User-Id", "alice")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSynthesize(t *testing.T) {
	r, stub := newSynthRouter(t)

	w := postSynth(r, `{"text":"hola","language":"es"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %s", ct)
	}
	if w.Body.String() != "es:hola" {
		t.Errorf("unexpected audio payload %q", w.Body.String())
	}
	if stub.Calls() != 1 {
		t.Errorf("expected 1 synthesis call, got %d", stub.Calls())
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	r, stub := newSynthRouter(t)

	w := postSynth(r, `{"language":"es"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if stub.Calls() != 0 {
		t.Errorf("provider must not be called, got %d", stub.Calls())
	}
}

func TestSynthesizeProviderFailure(t *testing.T) {
	r, stub := newSynthRouter(t)
	stub.SetFail(true)

	w := postSynth(r, `{"text":"hola","language":"es"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
