package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"margin/internal/apperror"
)

func TestStaticDirectoryTrimsAndDropsBlanks(t *testing.T) {
	d := NewStaticDirectory(" a@x.com, ,b@x.com,")
	emails, err := d.MarginAdminEmails(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emails) != 2 || emails[0] != "a@x.com" || emails[1] != "b@x.com" {
		t.Fatalf("unexpected emails %v", emails)
	}
}

func TestHTTPDirectoryForwardsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer jwt-1" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`[{"email":"admin@x.com"},{"email":""}]`))
	}))
	defer srv.Close()

	emails, err := NewHTTPDirectory(srv.URL, 0).MarginAdminEmails(context.Background(), "jwt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emails) != 1 || emails[0] != "admin@x.com" {
		t.Fatalf("unexpected emails %v", emails)
	}
}

func TestHTTPDirectoryFailureIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPDirectory(srv.URL, 0).MarginAdminEmails(context.Background(), "jwt-1")
	if !apperror.Is(err, apperror.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
