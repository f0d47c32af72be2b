package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Proof is one submitted challenge/response pair.
type Proof struct {
	Challenge string
	Response  string
}

// Token identifies a proof for the session-level "already accepted" cache.
// The verification API rejects replays, so the admission policy must not
// verify the same proof twice.
func (p Proof) Token() string {
	return p.Challenge + p.Response
}

func (p Proof) Empty() bool {
	return strings.TrimSpace(p.Challenge) == "" && strings.TrimSpace(p.Response) == ""
}

type Verifier interface {
	Verify(ctx context.Context, remoteIP string, proof Proof) (bool, error)
}

// AlwaysAccept is used when captcha is globally disabled and in tests.
type AlwaysAccept struct{}

func (AlwaysAccept) Verify(ctx context.Context, remoteIP string, proof Proof) (bool, error) {
	return true, nil
}

const recaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// RecaptchaVerifier checks proofs against the reCAPTCHA verification API.
type RecaptchaVerifier struct {
	secret string
	client *http.Client
}

func NewRecaptcha(secret string) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *RecaptchaVerifier) Verify(ctx context.Context, remoteIP string, proof Proof) (bool, error) {
	form := url.Values{
		"secret":   {v.secret},
		"response": {proof.Response},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recaptchaVerifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, err
	}
	return result.Success, nil
}
