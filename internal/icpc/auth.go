package icpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Cognito defaults for the icpc.global user pool.
const (
	DefaultAuthEndpoint = "https://cognito-idp.us-east-1.amazonaws.com/"
	DefaultAuthClientID = "6q2fe6opm0m24eoebqf9vj4emd"
)

// AuthError reports a failed authentication handshake.
type AuthError struct {
	Status  int
	Kind    string // Cognito exception type, e.g. "NotAuthorizedException"
	Message string
}

func (e *AuthError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("authentication failed: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("authentication failed: status %d", e.Status)
}

// Authenticator performs the USER_PASSWORD_AUTH handshake against the Cognito
// user pool fronting icpc.global and yields the bearer id token used on every
// API call. Credentials are used once and never retained.
type Authenticator struct {
	Endpoint string
	ClientID string
	HTTP     *http.Client
}

// NewAuthenticator creates an Authenticator for the given Cognito endpoint
// and app client id. Empty values fall back to the icpc.global defaults.
func NewAuthenticator(endpoint, clientID string) *Authenticator {
	if endpoint == "" {
		endpoint = DefaultAuthEndpoint
	}
	if clientID == "" {
		clientID = DefaultAuthClientID
	}
	return &Authenticator{
		Endpoint: endpoint,
		ClientID: clientID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Authenticate exchanges the credentials for a bearer id token.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (string, error) {
	payload := map[string]any{
		"AuthFlow": "USER_PASSWORD_AUTH",
		"ClientId": a.ClientID,
		"AuthParameters": map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-amz-json-1.1")
	req.Header.Set("X-Amz-Target", "AWSCognitoIdentityProviderService.InitiateAuth")

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("authenticating: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var cognitoErr struct {
			Type    string `json:"__type"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &cognitoErr)
		return "", &AuthError{Status: resp.StatusCode, Kind: cognitoErr.Type, Message: cognitoErr.Message}
	}

	var result struct {
		AuthenticationResult struct {
			IdToken string `json:"IdToken"`
		} `json:"AuthenticationResult"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decoding auth response: %w", err)
	}
	if result.AuthenticationResult.IdToken == "" {
		return "", &AuthError{Status: resp.StatusCode, Message: "response carried no id token"}
	}
	return result.AuthenticationResult.IdToken, nil
}
