package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
)

// Kakao endpoints. Kakao wants client_id and client_secret in the token
// request body rather than in a Basic auth header.
var KakaoEndpoint = oauth2.Endpoint{
	AuthURL:   "https://kauth.kakao.com/oauth/authorize",
	TokenURL:  "https://kauth.kakao.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

const kakaoUserInfoURL = "https://kapi.kakao.com/v2/user/me"

// KakaoUser is the part of the Kakao profile we keep.
// Email is empty when the user did not consent to share it.
type KakaoUser struct {
	ID              string
	Email           string
	Nickname        string
	ProfileImageURL string
}

// kakaoUserResponse mirrors the /v2/user/me payload.
type kakaoUserResponse struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// KakaoProvider wraps golang.org/x/oauth2 for the Kakao Authorization Code flow.
type KakaoProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewKakaoProvider creates a provider for the app registered at
// developers.kakao.com. callbackURL must match the registered Redirect URI.
func NewKakaoProvider(clientID, clientSecret, callbackURL string) *KakaoProvider {
	return newKakaoProvider(clientID, clientSecret, callbackURL, KakaoEndpoint, kakaoUserInfoURL)
}

func newKakaoProvider(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, userInfoURL string) *KakaoProvider {
	return &KakaoProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"profile_nickname", "profile_image", "account_email"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

// AuthURL returns the Kakao consent page URL. state must be echoed back by
// the callback; the handler keeps it in a cookie.
func (p *KakaoProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the user's Kakao profile.
func (p *KakaoProvider) Exchange(ctx context.Context, code string) (*KakaoUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building Kakao user request: %w", err)
	}
	resp, err := p.config.Client(ctx, oauthToken).Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Kakao user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Kakao user API returned status %d", resp.StatusCode)
	}

	var body kakaoUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("auth: decoding Kakao user response: %w", err)
	}
	if body.ID == 0 {
		return nil, fmt.Errorf("auth: Kakao returned an invalid user (id = 0)")
	}

	return &KakaoUser{
		ID:              strconv.FormatInt(body.ID, 10),
		Email:           body.KakaoAccount.Email,
		Nickname:        body.KakaoAccount.Profile.Nickname,
		ProfileImageURL: body.KakaoAccount.Profile.ProfileImageURL,
	}, nil
}
