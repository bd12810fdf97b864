package providers

import (
	"context"
	"testing"

	"github.com/babelroom/babelroom/internal/utils"
)

type fakeProvider struct {
	name      string
	available bool
}

func (p fakeProvider) Name() string                       { return p.name }
func (p fakeProvider) Available(ctx context.Context) bool { return p.available }

func TestResolvePrefersNamedProvider(t *testing.T) {
	got, err := Resolve(context.Background(), "google",
		fakeProvider{name: "stub", available: true},
		fakeProvider{name: "google", available: true},
	)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Name() != "google" {
		t.Errorf("expected google, got %s", got.Name())
	}
}

func TestResolveFallsBackWhenPreferredUnavailable(t *testing.T) {
	got, err := Resolve(context.Background(), "google",
		fakeProvider{name: "google", available: false},
		fakeProvider{name: "stub", available: true},
	)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Name() != "stub" {
		t.Errorf("expected stub fallback, got %s", got.Name())
	}
}

func TestResolveFirstAvailableWithoutPreference(t *testing.T) {
	got, err := Resolve(context.Background(), "",
		fakeProvider{name: "a", available: false},
		fakeProvider{name: "b", available: true},
		fakeProvider{name: "c", available: true},
	)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Name() != "b" {
		t.Errorf("expected first available, got %s", got.Name())
	}
}

func TestResolveNoneAvailable(t *testing.T) {
	_, err := Resolve(context.Background(), "",
		fakeProvider{name: "a", available: false},
	)
	if utils.CodeOf(err) != utils.CodeUnavailable {
		t.Fatalf("expected UNAVAILABLE, got %v", err)
	}
}
