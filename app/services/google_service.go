package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/adityaraj/bazario/config"
	"github.com/adityaraj/bazario/pkg/apperr"
	"github.com/adityaraj/bazario/pkg/crypt"
	"github.com/adityaraj/bazario/pkg/http"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	// stateTTL bounds how long a login redirect stays usable.
	stateTTL = 10 * time.Minute
)

// GoogleService drives the server side of the Google OAuth code flow. It
// produces the redirect URL, verifies the round-tripped state parameter and
// exchanges the authorization code for a profile. The resulting profile is
// handed to AuthService.ExternalCallback, which owns account resolution.
type GoogleService struct {
	clientID     string
	clientSecret string
	redirectURL  string
}

func NewGoogleService() *GoogleService {
	return &GoogleService{
		clientID:     config.GoogleClientID(),
		clientSecret: config.GoogleClientSecret(),
		redirectURL:  config.GoogleRedirectURL(),
	}
}

// Enabled reports whether Google login is configured.
func (s *GoogleService) Enabled() bool {
	return s.clientID != "" && s.clientSecret != ""
}

type oauthState struct {
	Nonce    string `json:"nonce"`
	IssuedAt int64  `json:"iat"`
}

// AuthURL builds the Google consent-screen redirect with a sealed state
// parameter.
func (s *GoogleService) AuthURL() (string, error) {
	if !s.Enabled() {
		return "", apperr.Unavailablef("google login is not configured")
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", apperr.Wrap(apperr.Internal, "state nonce", err)
	}
	state, err := crypt.EncryptJSON(oauthState{
		Nonce:    hex.EncodeToString(nonce),
		IssuedAt: time.Now().Unix(),
	})
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "seal state", err)
	}

	q := url.Values{
		"client_id":     {s.clientID},
		"redirect_uri":  {s.redirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
	}
	return googleAuthURL + "?" + q.Encode(), nil
}

// verifyState rejects states that fail authentication or are older than
// stateTTL. Any tampering surfaces as the same generic error.
func (s *GoogleService) verifyState(state string) error {
	var st oauthState
	if err := crypt.DecryptJSON(state, &st); err != nil {
		return apperr.Authenticationf("invalid login state")
	}
	if time.Since(time.Unix(st.IssuedAt, 0)) > stateTTL {
		return apperr.Authenticationf("login state expired, try again")
	}
	return nil
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type googleUserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange validates the state, trades the authorization code for an access
// token and fetches the user's Google profile.
func (s *GoogleService) Exchange(ctx context.Context, code, state string) (GoogleProfile, error) {
	if !s.Enabled() {
		return GoogleProfile{}, apperr.Unavailablef("google login is not configured")
	}
	if err := s.verifyState(state); err != nil {
		return GoogleProfile{}, err
	}
	if code == "" {
		return GoogleProfile{}, apperr.Authenticationf("missing authorization code")
	}

	resp, err := http.Post(googleTokenURL).
		WithContext(ctx).
		Form(url.Values{
			"code":          {code},
			"client_id":     {s.clientID},
			"client_secret": {s.clientSecret},
			"redirect_uri":  {s.redirectURL},
			"grant_type":    {"authorization_code"},
		}).
		Timeout(10 * time.Second).
		Send()
	if err != nil {
		return GoogleProfile{}, apperr.Wrap(apperr.Unavailable, "google token exchange failed", err)
	}
	if !resp.OK() {
		return GoogleProfile{}, apperr.Authenticationf("google rejected the authorization code")
	}

	var tok googleTokenResponse
	if err := resp.JSON(&tok); err != nil || tok.AccessToken == "" {
		return GoogleProfile{}, apperr.Authenticationf("google rejected the authorization code")
	}

	uresp, err := http.Get(googleUserInfoURL).
		WithContext(ctx).
		Bearer(tok.AccessToken).
		Timeout(10 * time.Second).
		Retry(2, 500*time.Millisecond).
		Send()
	if err != nil {
		return GoogleProfile{}, apperr.Wrap(apperr.Unavailable, "google userinfo failed", err)
	}
	if !uresp.OK() {
		return GoogleProfile{}, apperr.Authenticationf("could not read google profile")
	}

	var info googleUserInfo
	if err := uresp.JSON(&info); err != nil {
		return GoogleProfile{}, apperr.Wrap(apperr.Internal, "decode google profile", err)
	}
	if info.ID == "" || info.Email == "" {
		return GoogleProfile{}, apperr.Authenticationf("google profile is missing id or email")
	}

	return GoogleProfile{ID: info.ID, Email: info.Email, Name: info.Name}, nil
}
