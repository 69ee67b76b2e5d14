package safety

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardlex/guardlex/lib/safecheck"
	"github.com/guardlex/guardlex/lib/safety/mocks"
)

func TestNewDetector(t *testing.T) {
	t.Run("from reader", func(t *testing.T) {
		d, err := NewDetector(Config{WordsReader: bytes.NewBufferString("bad\nworse\n")})
		require.NoError(t, err)
		assert.Len(t, d.Words(), 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewDetector(Config{WordsFile: "/tmp/no-such-file-here.txt"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrLexiconLoad))
		assert.Contains(t, err.Error(), "/tmp/no-such-file-here.txt")
	})

	t.Run("no source at all", func(t *testing.T) {
		_, err := NewDetector(Config{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrLexiconLoad))
	})

	t.Run("default weights", func(t *testing.T) {
		d, err := NewDetector(Config{WordsReader: bytes.NewBufferString("bad")})
		require.NoError(t, err)
		assert.InDelta(t, 0.3, d.LocalWeight, 0.0001)
		assert.InDelta(t, 0.7, d.RemoteWeight, 0.0001)
	})
}

func TestDetector_DetectLocal(t *testing.T) {
	d, err := NewDetector(Config{WordsReader: bytes.NewBufferString("badword\n危险词汇\n")})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("clean text", func(t *testing.T) {
		res := d.Detect(ctx, "a perfectly ordinary question about weather")
		assert.True(t, res.IsSafe)
		assert.Equal(t, safecheck.RiskSafe, res.RiskLevel)
		assert.InDelta(t, 1.0, res.Confidence, 0.0001)
		assert.Empty(t, res.MatchedTerms)
		assert.Equal(t, safecheck.MethodPattern, res.Method())
	})

	t.Run("single term matched once", func(t *testing.T) {
		res := d.Detect(ctx, "this text has badword inside of the body somewhere")
		assert.False(t, res.IsSafe)
		require.Len(t, res.MatchedTerms, 1)
		assert.Equal(t, "badword", res.MatchedTerms[0])
	})

	t.Run("case insensitive", func(t *testing.T) {
		lower := d.Detect(ctx, "this text has badword inside of the body somewhere")
		upper := d.Detect(ctx, strings.ToUpper("this text has badword inside of the body somewhere"))
		assert.Equal(t, lower.IsSafe, upper.IsSafe)
		assert.Equal(t, lower.MatchedTerms, upper.MatchedTerms)
	})

	t.Run("high density chinese text", func(t *testing.T) {
		res := d.Detect(ctx, "这是危险词汇内容")
		assert.False(t, res.IsSafe)
		assert.Equal(t, []string{"危险词汇"}, res.MatchedTerms)
		// 4 matched runes of 8 total, density 0.5 pushes to high with a single match
		assert.Equal(t, safecheck.RiskHigh, res.RiskLevel)
		assert.InDelta(t, 0.95, res.Confidence, 0.0001)
	})

	t.Run("empty text", func(t *testing.T) {
		res := d.Detect(ctx, "")
		assert.True(t, res.IsSafe)
		assert.Equal(t, safecheck.RiskSafe, res.RiskLevel)
		assert.InDelta(t, 1.0, res.Confidence, 0.0001)
		assert.Empty(t, res.MatchedTerms)
	})

	t.Run("blank text", func(t *testing.T) {
		res := d.Detect(ctx, "   \t\n")
		assert.True(t, res.IsSafe)
		assert.InDelta(t, 1.0, res.Confidence, 0.0001)
	})
}

func TestDetector_RiskTiers(t *testing.T) {
	words := "bad\nworse\none\ntwo\nthree\nfour\nfive\n"
	d, err := NewDetector(Config{WordsReader: bytes.NewBufferString(words)})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("low, single match with low density", func(t *testing.T) {
		text := strings.Repeat("z", 76) + " bad" // 80 runes, density 3/80
		res := d.Detect(ctx, text)
		assert.Equal(t, safecheck.RiskLow, res.RiskLevel)
		assert.InDelta(t, 0.5+0.0375*4, res.Confidence, 0.0001)
	})

	t.Run("medium, two matches with moderate density", func(t *testing.T) {
		text := "bad and worse " + strings.Repeat("z", 86) // 100 runes, density 8/100
		res := d.Detect(ctx, text)
		assert.Equal(t, safecheck.RiskMedium, res.RiskLevel)
		assert.InDelta(t, 0.6+0.08*3, res.Confidence, 0.0001)
	})

	t.Run("high, five matches", func(t *testing.T) {
		text := "one two three four five " + strings.Repeat("z", 176) // 200 runes
		res := d.Detect(ctx, text)
		assert.Equal(t, safecheck.RiskHigh, res.RiskLevel)
		require.Len(t, res.MatchedTerms, 5)
	})

	t.Run("high, single long match forces high by density", func(t *testing.T) {
		// "worse" in a 10-rune text, density 0.5, count is just 1
		res := d.Detect(ctx, "v worse vv")
		assert.Equal(t, safecheck.RiskHigh, res.RiskLevel)
		assert.InDelta(t, 0.95, res.Confidence, 0.0001)
	})

	t.Run("confidence always in range", func(t *testing.T) {
		texts := []string{"", "bad", "bad worse one two three four five", strings.Repeat("bad", 100),
			"clean", "这是危险词汇内容", strings.Repeat("z", 500) + "bad"}
		for _, text := range texts {
			res := d.Detect(ctx, text)
			assert.GreaterOrEqual(t, res.Confidence, 0.0, "text %q", text)
			assert.LessOrEqual(t, res.Confidence, 1.0, "text %q", text)
		}
	})
}

func TestDetector_NormalizedMatching(t *testing.T) {
	d, err := NewDetector(Config{WordsReader: bytes.NewBufferString("badword\n危险词汇\n")})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("zero-width separators removed", func(t *testing.T) {
		res := d.Detect(ctx, "text with bad​word inside")
		assert.False(t, res.IsSafe)
		assert.Equal(t, []string{"badword"}, res.MatchedTerms)
	})

	t.Run("emoji separators removed", func(t *testing.T) {
		res := d.Detect(ctx, "text with bad\U0001F600word inside")
		assert.False(t, res.IsSafe)
	})

	t.Run("obfuscated lexicon term matches clean text", func(t *testing.T) {
		d.AddWord("evil​word")
		res := d.Detect(ctx, "contains evilword in plain form")
		assert.False(t, res.IsSafe)
	})
}

func TestDetector_WordsMutation(t *testing.T) {
	d, err := NewDetector(Config{WordsReader: bytes.NewBufferString("bad\n")})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("add is idempotent", func(t *testing.T) {
		d.AddWord("evil")
		sizeAfterFirst := len(d.Words())
		d.AddWord("evil")
		assert.Equal(t, sizeAfterFirst, len(d.Words()))
		assert.False(t, d.Detect(ctx, "pure evil here").IsSafe)
	})

	t.Run("remove restores pre-add behavior", func(t *testing.T) {
		assert.False(t, d.Detect(ctx, "some evil text").IsSafe)
		d.RemoveWord("evil")
		assert.True(t, d.Detect(ctx, "some evil text").IsSafe)
		d.RemoveWord("evil") // second remove is a no-op
		assert.True(t, d.Detect(ctx, "some evil text").IsSafe)
	})

	t.Run("reload replaces lexicon", func(t *testing.T) {
		count, err := d.LoadWords(bytes.NewBufferString("fresh\n"))
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.True(t, d.Detect(ctx, "bad is not matched anymore").IsSafe)
		assert.False(t, d.Detect(ctx, "fresh is matched now").IsSafe)
	})
}

func TestDetector_BatchDetect(t *testing.T) {
	d, err := NewDetector(Config{WordsReader: bytes.NewBufferString("bad\n")})
	require.NoError(t, err)

	texts := []string{"clean one", "bad one", "", "another clean"}
	results := d.BatchDetect(context.Background(), texts)
	require.Len(t, results, 4)
	assert.True(t, results[0].IsSafe)
	assert.False(t, results[1].IsSafe)
	assert.True(t, results[2].IsSafe)
	assert.True(t, results[3].IsSafe)
}

func TestDetector_IsSafeForLLM(t *testing.T) {
	d, err := NewDetector(Config{WordsReader: bytes.NewBufferString("bad\n")})
	require.NoError(t, err)
	assert.True(t, d.IsSafeForLLM(context.Background(), "all fine"))
	assert.False(t, d.IsSafeForLLM(context.Background(), "this is bad"))
}

func TestDetector_RemoteUnavailableFallsBack(t *testing.T) {
	mockedHTTPClient := &mocks.HTTPClientMock{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	d, err := NewDetector(Config{
		WordsReader:  bytes.NewBufferString("bad\n"),
		EnableRemote: true,
		HTTPClient:   mockedHTTPClient,
		Censor:       CensorConfig{APIKey: "key", SecretKey: "secret"},
	})
	require.NoError(t, err)
	assert.False(t, d.IsRemoteAvailable(), "auth failed, adapter degraded to unavailable")

	res := d.Detect(context.Background(), "this is bad")
	assert.False(t, res.IsSafe)
	assert.Equal(t, safecheck.MethodPattern, res.Method(), "local-only result, no crash")
	assert.Equal(t, "local detection", d.DetectionMethodLabel())
}

func TestDetector_DualDetection(t *testing.T) {
	censorResp := `{"conclusion":"合规","conclusionType":1}`
	mockedHTTPClient := &mocks.HTTPClientMock{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			body := `{"access_token":"tkn","scope":"brain_all_scope"}`
			if strings.Contains(req.URL.Path, "text_censor") {
				body = censorResp
			}
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString(body))}, nil
		},
	}

	newRemoteDetector := func(t *testing.T) *Detector {
		d, err := NewDetector(Config{
			WordsReader:  bytes.NewBufferString("bad\nworse\n"),
			EnableRemote: true,
			HTTPClient:   mockedHTTPClient,
			Censor:       CensorConfig{APIKey: "key", SecretKey: "secret", RequiredScope: "brain_all_scope"},
		})
		require.NoError(t, err)
		require.True(t, d.IsRemoteAvailable())
		return d
	}

	t.Run("local unsafe, remote safe", func(t *testing.T) {
		censorResp = `{"conclusion":"合规","conclusionType":1}`
		d := newRemoteDetector(t)
		text := "bad and worse " + strings.Repeat("z", 86) // local medium, 0.84
		res := d.Detect(context.Background(), text)

		assert.False(t, res.IsSafe, "either side unsafe makes it unsafe")
		assert.Equal(t, safecheck.RiskMedium, res.RiskLevel, "neither side is high")
		assert.Equal(t, safecheck.MethodDual, res.Method())
		assert.Equal(t, []string{"bad", "worse"}, res.MatchedTerms)
		assert.InDelta(t, 0.3*0.84+0.7*0.9, res.Confidence, 0.0001)
		assert.Contains(t, res.Details, "local_result")
		assert.Contains(t, res.Details, "api_result")
	})

	t.Run("local safe, remote unsafe", func(t *testing.T) {
		censorResp = `{"conclusion":"不合规","conclusionType":3}`
		d := newRemoteDetector(t)
		res := d.Detect(context.Background(), "looks clean to the local side")

		assert.False(t, res.IsSafe)
		assert.Equal(t, safecheck.RiskHigh, res.RiskLevel)
		assert.Empty(t, res.MatchedTerms, "remote never supplies terms")
		assert.InDelta(t, 0.3*1.0+0.7*0.95, res.Confidence, 0.0001)
	})

	t.Run("both safe", func(t *testing.T) {
		censorResp = `{"conclusion":"合规","conclusionType":1}`
		d := newRemoteDetector(t)
		res := d.Detect(context.Background(), "completely ordinary text")

		assert.True(t, res.IsSafe)
		assert.Equal(t, safecheck.RiskSafe, res.RiskLevel)
		assert.Equal(t, safecheck.MethodDual, res.Method())
		assert.InDelta(t, 0.3*1.0+0.7*0.9, res.Confidence, 0.0001)
	})

	t.Run("empty text skips both detectors", func(t *testing.T) {
		d := newRemoteDetector(t)
		mockedHTTPClient.ResetCalls()
		res := d.Detect(context.Background(), "")
		assert.True(t, res.IsSafe)
		assert.Empty(t, mockedHTTPClient.DoCalls())
	})
}

func TestDetector_WithCensorChecker(t *testing.T) {
	mockedHTTPClient := &mocks.HTTPClientMock{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			body := `{"access_token":"tkn","scope":"brain_all_scope"}`
			if strings.Contains(req.URL.Path, "text_censor") {
				body = `{"conclusion":"不合规","conclusionType":3}`
			}
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString(body))}, nil
		},
	}

	d, err := NewDetector(Config{WordsReader: bytes.NewBufferString("bad\n"), EnableRemote: true})
	require.NoError(t, err)
	require.False(t, d.IsRemoteAvailable(), "no backend set yet")

	d.WithCensorChecker(mockedHTTPClient, CensorConfig{APIKey: "key", SecretKey: "secret"})
	assert.True(t, d.IsRemoteAvailable())
	assert.Equal(t, "dual detection (local+api)", d.DetectionMethodLabel())

	res := d.Detect(context.Background(), "looks clean locally")
	assert.False(t, res.IsSafe, "remote verdict applied through the injected backend")
	assert.Equal(t, safecheck.MethodDual, res.Method())
	assert.NotEmpty(t, mockedHTTPClient.DoCalls())
}

func TestDetector_SetRemoteDetection(t *testing.T) {
	mockedHTTPClient := &mocks.HTTPClientMock{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			body := `{"access_token":"tkn","scope":"brain_all_scope"}`
			if strings.Contains(req.URL.Path, "text_censor") {
				body = `{"conclusion":"合规","conclusionType":1}`
			}
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString(body))}, nil
		},
	}

	t.Run("lazy construction on enable", func(t *testing.T) {
		d, err := NewDetector(Config{
			WordsReader: bytes.NewBufferString("bad\n"),
			HTTPClient:  mockedHTTPClient,
			Censor:      CensorConfig{APIKey: "key", SecretKey: "secret"},
		})
		require.NoError(t, err)
		assert.False(t, d.IsRemoteAvailable(), "not constructed until enabled")

		d.SetRemoteDetection(true)
		assert.True(t, d.IsRemoteAvailable())
		assert.Equal(t, "dual detection (local+api)", d.DetectionMethodLabel())
	})

	t.Run("disable keeps the adapter", func(t *testing.T) {
		d, err := NewDetector(Config{
			WordsReader: bytes.NewBufferString("bad\n"),
			HTTPClient:  mockedHTTPClient,
			Censor:      CensorConfig{APIKey: "key", SecretKey: "secret"},
		})
		require.NoError(t, err)
		d.SetRemoteDetection(true)
		require.True(t, d.IsRemoteAvailable())

		d.SetRemoteDetection(false)
		assert.True(t, d.IsRemoteAvailable(), "adapter intact, just unused")
		assert.Equal(t, "local detection", d.DetectionMethodLabel())

		mockedHTTPClient.ResetCalls()
		res := d.Detect(context.Background(), "this is bad")
		assert.Equal(t, safecheck.MethodPattern, res.Method())
		assert.Empty(t, mockedHTTPClient.DoCalls(), "no remote calls when disabled")
	})

	t.Run("enable without credentials", func(t *testing.T) {
		d, err := NewDetector(Config{WordsReader: bytes.NewBufferString("bad\n")})
		require.NoError(t, err)
		d.SetRemoteDetection(true)
		assert.False(t, d.IsRemoteAvailable())
		assert.Equal(t, "local detection", d.DetectionMethodLabel())
	})
}
