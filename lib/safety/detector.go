package safety

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/forPelevin/gomoji"

	"github.com/guardlex/guardlex/lib/safecheck"
)

//go:generate moq --out mocks/http_client.go --pkg mocks --skip-ensure --with-resets . HTTPClient

// ErrLexiconLoad indicates the banned terms source is missing or unreadable.
// This is the only fatal error, a detector without a lexicon is meaningless.
var ErrLexiconLoad = errors.New("can't load lexicon")

// Detector is a text-safety detector, thread-safe.
// It scans texts against a lexicon of banned terms and, optionally, submits them
// to a remote moderation backend, merging both verdicts into one result.
type Detector struct {
	Config
	lex    *lexicon
	remote remoteChecker

	lock sync.RWMutex
}

// Config is a set of parameters for Detector.
type Config struct {
	WordsFile    string       // path to the banned terms file, one term per line, "#" comments
	WordsReader  io.Reader    // terms source used instead of WordsFile if set
	EnableRemote bool         // if true, use the remote moderation backend when available
	LocalWeight  float64      // weight of the local verdict confidence in fused results
	RemoteWeight float64      // weight of the remote verdict confidence in fused results
	HTTPClient   HTTPClient   // http client for remote calls, default client with 10s timeout if nil
	Censor       CensorConfig // censor API parameters, used to build the remote checker lazily
}

// HTTPClient is an interface for http client, satisfied by http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// remoteChecker is a moderation backend, implemented by the censor API adapter
// and the openai checker. detect never fails on backend degradation, it returns
// a neutral safe verdict instead; the error is reserved for caller-side aborts
// like a canceled context.
type remoteChecker interface {
	detect(ctx context.Context, text string) (safecheck.RemoteVerdict, error)
	available() bool
}

// NewDetector makes a new Detector with the given config and loads the lexicon.
// Fails if the terms source is missing or unreadable.
func NewDetector(cfg Config) (*Detector, error) {
	if cfg.LocalWeight == 0 && cfg.RemoteWeight == 0 {
		cfg.LocalWeight, cfg.RemoteWeight = 0.3, 0.7
	}

	res := &Detector{Config: cfg, lex: newLexicon()}

	switch {
	case cfg.WordsReader != nil:
		count := res.lex.load(cfg.WordsReader)
		log.Printf("[INFO] loaded %d sensitive words", count)
	case cfg.WordsFile != "":
		fh, err := os.Open(cfg.WordsFile) //nolint:gosec // path is provided by the caller
		if err != nil {
			return nil, fmt.Errorf("%w from %q: %v", ErrLexiconLoad, cfg.WordsFile, err)
		}
		count := res.lex.load(fh)
		_ = fh.Close()
		log.Printf("[INFO] loaded %d sensitive words from %s", count, cfg.WordsFile)
	default:
		return nil, fmt.Errorf("%w: no words source provided", ErrLexiconLoad)
	}

	// build remote checker upfront if remote mode requested with credentials,
	// failed authentication degrades it to unavailable but doesn't fail construction
	if cfg.EnableRemote && cfg.Censor.APIKey != "" {
		res.remote = newCensorChecker(res.httpClient(), cfg.Censor)
		if !res.remote.available() {
			log.Printf("[WARN] remote checker unavailable, local detection only")
		}
	}
	return res, nil
}

// Detect checks a single text and returns the verdict. Always returns a result,
// remote path failures degrade to the local verdict with an error annotation.
func (d *Detector) Detect(ctx context.Context, text string) safecheck.Result {
	if strings.TrimSpace(text) == "" {
		return safecheck.Result{
			IsSafe:       true,
			MatchedTerms: []string{},
			RiskLevel:    safecheck.RiskSafe,
			Confidence:   1.0,
			Details:      map[string]any{"reason": "empty text", "detection_method": safecheck.MethodUnknown},
		}
	}

	local := d.localDetect(text)

	d.lock.RLock()
	remote, enabled := d.remote, d.EnableRemote
	localWeight, remoteWeight := d.LocalWeight, d.RemoteWeight
	d.lock.RUnlock()

	if !enabled || remote == nil || !remote.available() {
		return local
	}

	verdict, err := remote.detect(ctx, text)
	if err != nil {
		log.Printf("[WARN] remote check failed, using local result: %v", err)
		local.Details["api_error"] = err.Error()
		return local
	}
	return combineResults(local, verdict, localWeight, remoteWeight)
}

// BatchDetect checks texts one by one, preserving the input order.
// One item never aborts the batch, each gets its own independent result.
func (d *Detector) BatchDetect(ctx context.Context, texts []string) []safecheck.Result {
	res := make([]safecheck.Result, 0, len(texts))
	for _, text := range texts {
		res = append(res, d.Detect(ctx, text))
	}
	return res
}

// IsSafeForLLM reports if a text is safe to be used as input for a language model.
func (d *Detector) IsSafeForLLM(ctx context.Context, text string) bool {
	res := d.Detect(ctx, text)
	return res.IsSafe
}

// localDetect scans the text against the lexicon and scores the matches.
func (d *Detector) localDetect(text string) safecheck.Result {
	matched := d.lex.match(normalize(text))
	sort.Strings(matched) // map-backed match set, sort for consistent output

	riskLevel, confidence := scoreRisk(text, matched)
	return safecheck.Result{
		IsSafe:       len(matched) == 0,
		MatchedTerms: matched,
		RiskLevel:    riskLevel,
		Confidence:   confidence,
		Details: map[string]any{
			"text_length":      len([]rune(text)),
			"matched_count":    len(matched),
			"detection_method": safecheck.MethodPattern,
		},
	}
}

// AddWord adds a term to the lexicon, idempotent.
func (d *Detector) AddWord(term string) {
	if d.lex.add(term) {
		log.Printf("[INFO] added sensitive word %q", term)
	}
}

// RemoveWord removes a term from the lexicon, no-op if absent.
func (d *Detector) RemoveWord(term string) {
	if d.lex.remove(term) {
		log.Printf("[INFO] removed sensitive word %q", term)
	}
}

// Words returns a snapshot of all lexicon terms, no ordering guarantee.
func (d *Detector) Words() []string {
	return d.lex.all()
}

// LoadWords replaces the lexicon with terms from the given readers.
// Used for live reloads, the in-memory add/remove mutations are discarded.
func (d *Detector) LoadWords(readers ...io.Reader) (count int, err error) {
	count = d.lex.load(readers...)
	log.Printf("[INFO] reloaded %d sensitive words", count)
	return count, nil
}

// SetRemoteDetection enables or disables the remote moderation path. Enabling
// lazily constructs the censor checker from the config if none is set; disabling
// keeps the checker instance intact but unused.
func (d *Detector) SetRemoteDetection(enabled bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.EnableRemote = enabled
	if !enabled {
		log.Printf("[INFO] remote detection disabled")
		return
	}

	if d.remote == nil {
		if d.Censor.APIKey == "" {
			log.Printf("[WARN] remote detection enabled but no credentials provided")
			return
		}
		d.remote = newCensorChecker(d.httpClient(), d.Censor)
	}
	if d.remote.available() {
		log.Printf("[INFO] remote detection enabled")
	} else {
		log.Printf("[WARN] remote detection enabled but checker unavailable")
	}
}

// IsRemoteAvailable reports if the remote checker is set and authenticated.
func (d *Detector) IsRemoteAvailable() bool {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.remote != nil && d.remote.available()
}

// DetectionMethodLabel returns a human-readable label of the active detection mode.
func (d *Detector) DetectionMethodLabel() string {
	d.lock.RLock()
	enabled := d.EnableRemote
	d.lock.RUnlock()
	if enabled && d.IsRemoteAvailable() {
		return "dual detection (local+api)"
	}
	return "local detection"
}

// WithCensorChecker sets the censor API moderation backend.
func (d *Detector) WithCensorChecker(client HTTPClient, cfg CensorConfig) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.remote = newCensorChecker(client, cfg)
}

// WithOpenAIChecker sets an openai-backed moderation backend.
func (d *Detector) WithOpenAIChecker(client openAIClient, cfg OpenAIConfig) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.remote = newOpenAIChecker(client, cfg)
}

func (d *Detector) httpClient() HTTPClient {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// normalize prepares a text for lexicon matching: lowercase with control, format
// and invisible characters removed, emojis stripped to defeat in-word separators.
func normalize(text string) string {
	return strings.ToLower(cleanEmoji(cleanText(text)))
}

// cleanText removes control and format characters from a given text
func cleanText(text string) string {
	var result strings.Builder
	result.Grow(len(text))
	for _, r := range text {
		// skip control and format characters
		if unicode.Is(unicode.Cc, r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		// skip specific ranges of invisible characters
		if (r >= 0x200B && r <= 0x200F) || (r >= 0x2060 && r <= 0x206F) {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

func cleanEmoji(s string) string {
	return gomoji.RemoveEmojis(s)
}
