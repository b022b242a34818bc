// SPDX-License-Identifier: MIT

package panopto

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"golang.org/x/oauth2"
)

func testClient(srv *MockServer) *Client {
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: srv.AccessToken()})
	return New(srv.URL, tokens, Options{})
}

func TestListSessions(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()

	srv.SetFolder("folder-1", []Session{
		{ID: "a", Name: "First", Duration: 3725, Views: 3, State: "Complete"},
		{ID: "b", Name: "Second", Duration: 60, Views: 0, State: "Processing"},
	})

	cl := testClient(srv)
	pg, err := cl.ListSessions(context.Background(), "folder-1", PageRequest{Number: 1, Size: 100})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(pg.Results) != 2 || pg.Total != 2 {
		t.Fatalf("unexpected page: %+v", pg)
	}
	if pg.Results[0].ID != "a" || pg.Results[1].Name != "Second" {
		t.Fatalf("order not preserved: %+v", pg.Results)
	}
	if pg.Page != 1 || pg.Size != 100 {
		t.Fatalf("requested page not echoed: %+v", pg)
	}

	bearers := srv.Bearers()
	if len(bearers) != 1 || bearers[0] != "Bearer "+srv.AccessToken() {
		t.Fatalf("bearer token not attached: %v", bearers)
	}
}

func TestListSessionsPaging(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()

	sessions := make([]Session, 5)
	for i := range sessions {
		sessions[i] = Session{ID: string(rune('a' + i))}
	}
	srv.SetFolder("f", sessions)

	cl := testClient(srv)

	pg, err := cl.ListSessions(context.Background(), "f", PageRequest{Number: 2, Size: 2})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(pg.Results) != 2 || pg.Results[0].ID != "c" {
		t.Fatalf("wrong slice for page 2: %+v", pg.Results)
	}

	pg, err = cl.ListSessions(context.Background(), "f", PageRequest{Number: 4, Size: 2})
	if err != nil {
		t.Fatalf("page past end: %v", err)
	}
	if len(pg.Results) != 0 {
		t.Fatalf("expected empty page, got %+v", pg.Results)
	}
}

func TestListSessionsErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"server error", http.StatusInternalServerError, ErrUpstreamError},
		{"bad gateway", http.StatusBadGateway, ErrUpstreamError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := NewMockServer()
			defer srv.Close()
			srv.FailRequest(1, tc.status)

			cl := testClient(srv)
			_, err := cl.ListSessions(context.Background(), "f", PageRequest{Number: 1, Size: 100})
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("want %v got %v", tc.sentinel, err)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("want *APIError got %T", err)
			}
			if apiErr.Status != tc.status || apiErr.Operation != "sessions" {
				t.Fatalf("error context missing: %+v", apiErr)
			}
		})
	}
}

func TestListSessionsMalformedBody(t *testing.T) {
	srv := NewMockServer()
	defer srv.Close()
	srv.MalformRequest(1)

	cl := testClient(srv)
	_, err := cl.ListSessions(context.Background(), "f", PageRequest{Number: 1, Size: 100})
	if !errors.Is(err, ErrBadResponse) {
		t.Fatalf("want ErrBadResponse got %v", err)
	}
}

func TestListSessionsTransportFailure(t *testing.T) {
	srv := NewMockServer()
	srv.Close() // connection refused from here on

	cl := testClient(srv)
	_, err := cl.ListSessions(context.Background(), "f", PageRequest{Number: 1, Size: 100})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("want ErrUpstreamUnavailable got %v", err)
	}
}

func TestViewerURL(t *testing.T) {
	got := ViewerURL("https://school.hosted.panopto.com/", "abc-123")
	want := "https://school.hosted.panopto.com/Panopto/Pages/Viewer.aspx?id=abc-123"
	if got != want {
		t.Fatalf("want %q got %q", want, got)
	}
}
