package services_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/adityaraj/bazario/app/services"
	"github.com/adityaraj/bazario/config"
	"github.com/adityaraj/bazario/pkg/apperr"
	httpclient "github.com/adityaraj/bazario/pkg/http"
	"github.com/adityaraj/bazario/pkg/testkit"
)

const (
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// newGoogleService configures credentials for the duration of one test and
// restores the unconfigured state afterwards.
func newGoogleService(t *testing.T) *services.GoogleService {
	t.Helper()
	config.Set("GOOGLE_CLIENT_ID", "test-client")
	config.Set("GOOGLE_CLIENT_SECRET", "test-secret")
	config.Set("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback")
	t.Cleanup(func() {
		config.Set("GOOGLE_CLIENT_ID", "")
		config.Set("GOOGLE_CLIENT_SECRET", "")
	})
	return services.NewGoogleService()
}

// freshState runs the real AuthURL flow and extracts the sealed state
// parameter, so Exchange sees exactly what a browser would round-trip.
func freshState(t *testing.T, svc *services.GoogleService) string {
	t.Helper()
	authURL, err := svc.AuthURL()
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("auth url has no state parameter")
	}
	return state
}

func TestGoogleDisabledWithoutCredentials(t *testing.T) {
	svc := services.NewGoogleService()
	if svc.Enabled() {
		t.Skip("google credentials present in environment")
	}
	if _, err := svc.AuthURL(); apperr.KindOf(err) != apperr.Unavailable {
		t.Errorf("AuthURL without credentials: want Unavailable, got %v", err)
	}
	_, err := svc.Exchange(context.Background(), "code", "state")
	if apperr.KindOf(err) != apperr.Unavailable {
		t.Errorf("Exchange without credentials: want Unavailable, got %v", err)
	}
}

func TestGoogleAuthURLShape(t *testing.T) {
	svc := newGoogleService(t)

	authURL, err := svc.AuthURL()
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	if !strings.HasPrefix(authURL, "https://accounts.google.com/o/oauth2/v2/auth?") {
		t.Fatalf("unexpected consent url: %s", authURL)
	}
	u, _ := url.Parse(authURL)
	q := u.Query()
	if q.Get("client_id") != "test-client" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q", q.Get("response_type"))
	}
	if !strings.Contains(q.Get("scope"), "email") {
		t.Errorf("scope missing email: %q", q.Get("scope"))
	}

	// Every redirect carries a unique nonce.
	if second := freshState(t, svc); second == q.Get("state") {
		t.Error("two redirects produced the same state")
	}
}

func TestGoogleExchangeHappyPath(t *testing.T) {
	svc := newGoogleService(t)

	mt := testkit.NewMockTransport().
		Stub("POST", googleTokenURL, 200, `{"access_token":"ya29.token","token_type":"Bearer","expires_in":3599}`).
		Stub("GET", googleUserInfoURL, 200, `{"id":"108123","email":"priya@gmail.com","name":"Priya Sharma"}`)
	httpclient.DefaultClient.Transport = mt
	defer httpclient.ResetTransport()

	profile, err := svc.Exchange(context.Background(), "auth-code", freshState(t, svc))
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if profile.ID != "108123" || profile.Email != "priya@gmail.com" || profile.Name != "Priya Sharma" {
		t.Errorf("unexpected profile: %+v", profile)
	}
	mt.AssertAllCalled(t)
}

func TestGoogleExchangeRejectsTamperedState(t *testing.T) {
	svc := newGoogleService(t)

	mt := testkit.NewMockTransport()
	httpclient.DefaultClient.Transport = mt
	defer httpclient.ResetTransport()

	for _, state := range []string{"", "garbage", freshState(t, svc) + "x"} {
		_, err := svc.Exchange(context.Background(), "auth-code", state)
		if apperr.KindOf(err) != apperr.Authentication {
			t.Errorf("state %q: want Authentication, got %v", state, err)
		}
	}
	// A bad state must never reach Google.
	if mt.Calls(0) != 0 {
		t.Error("token endpoint was called despite invalid state")
	}
}

func TestGoogleExchangeRejectedCode(t *testing.T) {
	svc := newGoogleService(t)

	mt := testkit.NewMockTransport().
		Stub("POST", googleTokenURL, 401, `{"error":"invalid_grant"}`)
	httpclient.DefaultClient.Transport = mt
	defer httpclient.ResetTransport()

	_, err := svc.Exchange(context.Background(), "stale-code", freshState(t, svc))
	if apperr.KindOf(err) != apperr.Authentication {
		t.Errorf("want Authentication for rejected code, got %v", err)
	}
}

func TestGoogleExchangeIncompleteProfile(t *testing.T) {
	svc := newGoogleService(t)

	mt := testkit.NewMockTransport().
		Stub("POST", googleTokenURL, 200, `{"access_token":"ya29.token"}`).
		Stub("GET", googleUserInfoURL, 200, `{"name":"No Identifier"}`)
	httpclient.DefaultClient.Transport = mt
	defer httpclient.ResetTransport()

	_, err := svc.Exchange(context.Background(), "auth-code", freshState(t, svc))
	if apperr.KindOf(err) != apperr.Authentication {
		t.Errorf("want Authentication for incomplete profile, got %v", err)
	}
}
