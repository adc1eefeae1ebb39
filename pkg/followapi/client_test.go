package followapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/tcg-hq/followers/pkg/cookies"
)

func newTestServer(t *testing.T, h http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(h)
	return New(srv.URL+"/plugins/com.tcg.followers", WithTimeout(2*time.Second)), srv.Close
}

func TestFetchFollowedIDs(t *testing.T) {
	client, done := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/plugins/com.tcg.followers/follow" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["u1","u2","u1"]`))
	})
	defer done()

	set, err := client.FetchFollowedIDs(context.Background())
	if err != nil {
		t.Fatalf("FetchFollowedIDs: %v", err)
	}
	if set.Len() != 2 || !set.Contains("u1") || !set.Contains("u2") {
		t.Fatalf("unexpected set %v", set.IDs())
	}
}

func TestFetchFollowedIDsNullBodyIsEmpty(t *testing.T) {
	client, done := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})
	defer done()

	set, err := client.FetchFollowedIDs(context.Background())
	if err != nil {
		t.Fatalf("FetchFollowedIDs: %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set, got %v", set.IDs())
	}
}

func TestFetchFollowedIDsServiceErrorMessage(t *testing.T) {
	client, done := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"forbidden"}`))
	})
	defer done()

	_, err := client.FetchFollowedIDs(context.Background())
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %T %v", err, err)
	}
	if svcErr.Message != "forbidden" || svcErr.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected error %+v", svcErr)
	}
}

func TestLongServiceMessageIsCutOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("a", maxMessageBytes-1) + strings.Repeat("é", 10)
	body, _ := json.Marshal(map[string]string{"message": long})
	client, done := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(body)
	})
	defer done()

	_, err := client.FetchFollowedIDs(context.Background())
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected ServiceError, got %T %v", err, err)
	}
	if !utf8.ValidString(svcErr.Message) {
		t.Fatalf("message split a rune: %q", svcErr.Message[len(svcErr.Message)-4:])
	}
	if len(svcErr.Message) != maxMessageBytes-1 {
		t.Fatalf("message length = %d", len(svcErr.Message))
	}
	if got := truncateMessage("héllo", 2); got != "h" {
		t.Fatalf("truncateMessage = %q", got)
	}
}

func TestFetchFollowedIDsFallbackMessage(t *testing.T) {
	client, done := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "plain text failure", http.StatusInternalServerError)
	})
	defer done()

	_, err := client.FetchFollowedIDs(context.Background())
	if err == nil || err.Error() != FallbackMessage {
		t.Fatalf("expected fallback message, got %v", err)
	}
}

func TestFollowPostsBodyWithCSRFHeader(t *testing.T) {
	var calls int
	client, done := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("X-CSRF-Token"); got != "tok" {
			t.Errorf("csrf header = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["follow_id"] != "u2" {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusOK)
	})
	defer done()

	out := client.Follow(context.Background(), "tok", "u2")
	if !out.OK {
		t.Fatalf("expected success, got %+v", out)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestUnfollowDeletesWithQuery(t *testing.T) {
	client, done := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		if got := r.URL.Query().Get("follow_id"); got != "u 2&x" {
			t.Errorf("follow_id = %q", got)
		}
		if got := r.Header.Get("X-CSRF-Token"); got != "tok" {
			t.Errorf("csrf header = %q", got)
		}
		_, _ = w.Write([]byte("Key deleted successfully"))
	})
	defer done()

	if out := client.Unfollow(context.Background(), "tok", "u 2&x"); !out.OK {
		t.Fatalf("expected success, got %+v", out)
	}
}

func TestMutationFailureCarriesServiceMessage(t *testing.T) {
	client, done := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid csrf token"}`))
	})
	defer done()

	out := client.Follow(context.Background(), "", "u2")
	if out.OK || out.Reason != "invalid csrf token" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	var svcErr *ServiceError
	if !errors.As(out.Err, &svcErr) {
		t.Fatalf("expected ServiceError, got %T", out.Err)
	}
}

func TestMutationTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := New(srv.URL, WithTimeout(50*time.Millisecond))
	out := client.Follow(context.Background(), "tok", "u2")
	if out.OK || out.Reason != TimeoutReason {
		t.Fatalf("expected timeout failure, got %+v", out)
	}
	var timeoutErr *TimeoutError
	if !errors.As(out.Err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %T %v", out.Err, out.Err)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, WithTimeout(time.Second)).FetchFollowedIDs(context.Background())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %T %v", err, err)
	}
}

func TestDefaultHeadersAndCookiesAreForwarded(t *testing.T) {
	var userID, cookie, requestedBy string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = r.Header.Get("Mattermost-User-Id")
		cookie = r.Header.Get("Cookie")
		requestedBy = r.Header.Get("X-Requested-With")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := New(srv.URL,
		WithHeader("Mattermost-User-Id", "viewer"),
		WithHeader(" ", "ignored"),
		WithCookies(cookies.Header("MMAUTHTOKEN=abc; MMCSRF=tok")),
	)
	if _, err := client.FetchFollowedIDs(context.Background()); err != nil {
		t.Fatalf("FetchFollowedIDs: %v", err)
	}
	if userID != "viewer" || cookie != "MMAUTHTOKEN=abc; MMCSRF=tok" || requestedBy != "XMLHttpRequest" {
		t.Fatalf("headers user=%q cookie=%q requested-with=%q", userID, cookie, requestedBy)
	}
}
