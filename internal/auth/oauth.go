package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ErrOAuthNotConfigured is returned when Google credentials are missing
var ErrOAuthNotConfigured = errors.New("google oauth is not configured")

// GoogleUser is the subset of the userinfo response used for login
type GoogleUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Verified   bool   `json:"verified_email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Name       string `json:"name"`
}

// GoogleProvider wraps the oauth2 config for the Google authorization code flow
type GoogleProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
}

// NewGoogleProvider returns nil when clientID or clientSecret is empty
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &GoogleProvider{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleUserInfoURL,
	}
}

// NewState returns a random value for the oauth_state cookie
func NewState() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AuthCodeURL builds the consent page URL for state
func (p *GoogleProvider) AuthCodeURL(state string) (string, error) {
	if p == nil {
		return "", ErrOAuthNotConfigured
	}
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account")), nil
}

// Exchange trades the authorization code for a token and fetches the user's profile
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	if p == nil {
		return nil, ErrOAuthNotConfigured
	}
	if code == "" {
		return nil, errors.New("missing authorization code")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	client := p.Config.Client(ctx, token)
	resp, err := client.Get(p.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch google user info: status %d", resp.StatusCode)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode google user info: %w", err)
	}
	if user.Email == "" || user.ID == "" {
		return nil, errors.New("google user info is missing email or id")
	}
	user.Email = strings.ToLower(user.Email)
	return &user, nil
}
