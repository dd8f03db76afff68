// Package oauth wraps the Google OAuth 2.0 flow: building the consent URL,
// exchanging the callback code, and fetching the user's profile. The rest of
// the application only sees the resulting model.Identity.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/dukerupert/bywater/internal/model"
)

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleClient struct {
	cfg *oauth2.Config
}

func NewGoogle(clientID, clientSecret, redirectURL string) *GoogleClient {
	return &GoogleClient{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the consent-screen URL carrying the anti-forgery state.
func (c *GoogleClient) AuthURL(state string) string {
	return c.cfg.AuthCodeURL(state)
}

type userinfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Exchange trades the callback code for a token and fetches the user's
// profile. The returned identity id is namespaced with the provider so ids
// from different providers can never collide.
func (c *GoogleClient) Exchange(ctx context.Context, code string) (*model.Identity, error) {
	token, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	resp, err := c.cfg.Client(ctx, token).Get(userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var ui userinfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}

	return &model.Identity{
		ID:         "google:" + ui.ID,
		Provider:   "google",
		Email:      ui.Email,
		Name:       ui.Name,
		PictureURL: ui.Picture,
	}, nil
}
