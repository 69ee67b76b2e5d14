package safety

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"

	"github.com/guardlex/guardlex/lib/safecheck"
)

// CensorConfig contains parameters for the censor API checker.
// Credentials have no defaults and must be provided by the caller.
type CensorConfig struct {
	APIKey        string        // client id for the token exchange
	SecretKey     string        // client secret for the token exchange
	TokenURL      string        // credential exchange endpoint
	CensorURL     string        // text moderation endpoint
	RequiredScope string        // scope expected in the token grant, warning only if missing
	CacheTTL      time.Duration // ttl for the verdict cache, 0 disables caching
	CacheSize     int           // max entries in the verdict cache
}

// conclusion codes returned by the moderation endpoint
const (
	conclusionCompliant    = 1 // compliant content
	conclusionUncertain    = 2 // uncertain, resolved in favor of allowing
	conclusionNonCompliant = 3 // non-compliant content
)

const defaultTokenURL = "https://aip.baidubce.com/oauth/2.0/token"
const defaultCensorURL = "https://aip.baidubce.com/rest/2.0/solution/v1/text_censor/v2/user_defined"

// censorChecker moderates texts with an external censor service. It exchanges
// credentials for a bearer token once, at construction; a failed exchange makes
// the checker permanently unavailable, it never retries authentication.
type censorChecker struct {
	client HTTPClient
	params CensorConfig
	token  string
	cache  cache.Cache[string, safecheck.RemoteVerdict]
}

// newCensorChecker makes a censor checker and authenticates it.
func newCensorChecker(client HTTPClient, params CensorConfig) *censorChecker {
	if params.TokenURL == "" {
		params.TokenURL = defaultTokenURL
	}
	if params.CensorURL == "" {
		params.CensorURL = defaultCensorURL
	}
	if params.CacheSize == 0 {
		params.CacheSize = 1000
	}

	res := &censorChecker{client: client, params: params}
	if params.CacheTTL > 0 {
		res.cache = cache.NewCache[string, safecheck.RemoteVerdict]().
			WithMaxKeys(params.CacheSize).WithTTL(params.CacheTTL)
	}
	res.fetchToken()
	return res
}

// available reports if the checker holds a valid token.
func (c *censorChecker) available() bool { return c.token != "" }

// fetchToken exchanges credentials for a bearer token. Any failure leaves the
// checker unavailable, the caller decides what to do about it.
func (c *censorChecker) fetchToken() {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.params.APIKey},
		"client_secret": {c.params.SecretKey},
	}
	req, err := http.NewRequest("POST", c.params.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		log.Printf("[WARN] failed to make token request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("[WARN] failed to get access token: %v", err)
		return
	}
	defer resp.Body.Close()

	tokenData := struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&tokenData); err != nil {
		log.Printf("[WARN] failed to parse token response: %v", err)
		return
	}
	if tokenData.AccessToken == "" {
		log.Printf("[WARN] no access token in response, check api key and secret key")
		return
	}
	if c.params.RequiredScope != "" && !scopeGranted(tokenData.Scope, c.params.RequiredScope) {
		log.Printf("[WARN] token scope %q doesn't include %q, moderation calls may be rejected",
			tokenData.Scope, c.params.RequiredScope)
	}
	c.token = tokenData.AccessToken
	log.Printf("[INFO] access token acquired")
}

// detect submits the text to the moderation endpoint and maps the conclusion
// code to the local verdict shape. Degrades to a neutral safe verdict on any
// transport or parse failure, never propagates those to the caller.
func (c *censorChecker) detect(ctx context.Context, text string) (safecheck.RemoteVerdict, error) {
	if c.token == "" {
		return neutralVerdict("api token invalid"), nil
	}
	if strings.TrimSpace(text) == "" {
		return safecheck.RemoteVerdict{IsSafe: true, RiskLevel: safecheck.RiskSafe, Confidence: 1.0,
			Details: map[string]any{"reason": "empty text"}}, nil
	}
	if err := ctx.Err(); err != nil {
		return neutralVerdict(err.Error()), err
	}

	key := fmt.Sprintf("%x", sha256.Sum256([]byte(text)))
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
	}

	reqURL := fmt.Sprintf("%s?access_token=%s", c.params.CensorURL, c.token)
	form := url.Values{"text": {text}}
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return neutralVerdict(fmt.Sprintf("failed to make request: %v", err)), nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("[WARN] moderation request failed: %v", err)
		return neutralVerdict(fmt.Sprintf("api request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	respData := struct {
		ErrorCode      int              `json:"error_code"`
		ErrorMsg       string           `json:"error_msg"`
		Conclusion     string           `json:"conclusion"`
		ConclusionType int              `json:"conclusionType"`
		Data           []map[string]any `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		log.Printf("[WARN] failed to parse moderation response: %v", err)
		return neutralVerdict(fmt.Sprintf("parse error: %v", err)), nil
	}

	if respData.ErrorCode != 0 {
		log.Printf("[WARN] moderation api error %d: %s", respData.ErrorCode, respData.ErrorMsg)
		return neutralVerdict(respData.ErrorMsg), nil
	}

	verdict := mapConclusion(respData.Conclusion, respData.ConclusionType, respData.Data)
	if c.cache != nil {
		c.cache.Set(key, verdict, 0)
	}
	return verdict, nil
}

// mapConclusion translates the external conclusion taxonomy into the local
// verdict shape. Anything but an explicit non-compliant conclusion resolves to
// safe, the remote side is a supplementary filter and must not block content on
// its own failures or doubts.
func mapConclusion(conclusion string, conclusionType int, data []map[string]any) safecheck.RemoteVerdict {
	details := map[string]any{
		"conclusion":       conclusion,
		"conclusion_type":  conclusionType,
		"detection_method": safecheck.MethodAPI,
	}

	var verdict safecheck.RemoteVerdict
	switch conclusionType {
	case conclusionCompliant:
		verdict = safecheck.RemoteVerdict{IsSafe: true, RiskLevel: safecheck.RiskSafe, Confidence: 0.9}
	case conclusionUncertain:
		verdict = safecheck.RemoteVerdict{IsSafe: true, RiskLevel: safecheck.RiskLow, Confidence: 0.6}
	case conclusionNonCompliant:
		verdict = safecheck.RemoteVerdict{IsSafe: false, RiskLevel: safecheck.RiskHigh, Confidence: 0.95}
	default: // audit failure and anything unexpected
		verdict = safecheck.RemoteVerdict{IsSafe: true, RiskLevel: safecheck.RiskUnknown, Confidence: 0.0}
	}

	if len(data) > 0 {
		details["violations"] = data
		if conclusionType == conclusionNonCompliant {
			verdict.Confidence = min(0.98, verdict.Confidence+0.03)
		}
	}
	verdict.Details = details
	return verdict
}

func neutralVerdict(errMsg string) safecheck.RemoteVerdict {
	return safecheck.RemoteVerdict{
		IsSafe:     true,
		RiskLevel:  safecheck.RiskUnknown,
		Confidence: 0.0,
		Details:    map[string]any{"error": errMsg},
	}
}

func scopeGranted(granted, required string) bool {
	for _, s := range strings.Fields(granted) {
		if s == required {
			return true
		}
	}
	return false
}
