package api

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"dynastra/internal/game"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc123", want: "abc123"},
		{header: "bearer abc123", want: "abc123"},
		{header: "Bearer   abc123  ", want: "abc123"},
		{header: "Basic abc123", want: ""},
		{header: "abc123", want: ""},
		{header: "", want: ""},
	}
	for _, tc := range tests {
		if got := bearerToken(tc.header); got != tc.want {
			t.Fatalf("header %q: got %q want %q", tc.header, got, tc.want)
		}
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: game.ErrNotFound, want: 404},
		{err: fmt.Errorf("dynasty x: %w", game.ErrNotFound), want: 404},
		{err: game.ErrForbidden, want: 403},
		{err: game.ErrDuplicateDynasty, want: 409},
		{err: game.ErrInsufficientFunds, want: 400},
		{err: game.ErrSelfTrade, want: 400},
		{err: game.ErrListingExpired, want: 400},
		{err: fmt.Errorf("boom"), want: 500},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("err %v: got status %d want %d", tc.err, rec.Code, tc.want)
		}
	}
}
