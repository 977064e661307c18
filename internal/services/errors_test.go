package services_test

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"imdbratings/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "tmdb", "search", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"tmdb", "search", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{services.Wrap(services.ErrValidation, "contentid", "parse", "bad id", nil), http.StatusBadRequest},
		{services.Wrap(services.ErrNotFound, "store", "rating", "", nil), http.StatusNotFound},
		{services.Wrap(services.ErrExternalTool, "kitsu", "anime", "", errors.New("io")), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := services.HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestIsRetriable(t *testing.T) {
	if services.IsRetriable(nil) {
		t.Fatal("nil error must not be retriable")
	}
	if !services.IsRetriable(fmt.Errorf("tmdb search returned 503")) {
		t.Fatal("expected 503 to be retriable")
	}
	if !services.IsRetriable(services.Wrap(services.ErrTransient, "", "", "", nil)) {
		t.Fatal("expected transient marker to be retriable")
	}
	if services.IsRetriable(errors.New("decode response: unexpected EOF in 404 body")) {
		t.Fatal("did not expect plain decode error to be retriable")
	}
}
