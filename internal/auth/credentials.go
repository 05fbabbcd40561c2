package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Token is an opaque bearer credential with an absolute expiry.
type Token struct {
	Value  string
	Expiry time.Time
}

// Provider issues bearer tokens.
type Provider interface {
	Fetch(ctx context.Context) (Token, error)
}

// ClientCredentials exchanges an Azure AD app registration's id and secret for
// a token scoped to a single resource.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scope        string
	// HTTPClient is used for the token request when set.
	HTTPClient *http.Client
}

func NewClientCredentials(clientID, clientSecret, tokenURL, scope string) *ClientCredentials {
	return &ClientCredentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scope:        scope,
	}
}

func (c *ClientCredentials) Fetch(ctx context.Context) (Token, error) {
	cfg := clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       []string{c.Scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if c.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
	}

	tok, err := cfg.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return Token{}, &AuthenticationError{
				Scope:      c.Scope,
				StatusCode: re.Response.StatusCode,
				Body:       string(re.Body),
				Err:        err,
			}
		}
		return Token{}, &AuthenticationError{Scope: c.Scope, Err: err}
	}
	if tok.AccessToken == "" {
		return Token{}, &AuthenticationError{Scope: c.Scope, Err: errors.New("response missing access_token")}
	}
	if tok.Expiry.IsZero() {
		return Token{}, &AuthenticationError{Scope: c.Scope, Err: errors.New("response missing expires_in")}
	}

	return Token{Value: tok.AccessToken, Expiry: tok.Expiry}, nil
}
