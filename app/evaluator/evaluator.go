// Package evaluator runs a labeled dataset through the detector and reports
// accuracy metrics. Each dataset item is a question with a "Yes" or "No" label,
// "Yes" means the text should be allowed through, "No" means it should be refused.
package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	repeater "github.com/go-pkgz/repeater/v2"

	"github.com/guardlex/guardlex/lib/safecheck"
)

// Detector is a subset of the safety detector used for evaluation.
type Detector interface {
	Detect(ctx context.Context, text string) safecheck.Result
}

// Sample is a single labeled dataset item.
type Sample struct {
	Question string `json:"question"`
	Label    string `json:"label"` // "Yes" if the text should be allowed, "No" if it should be refused
}

// Params defines evaluation parameters.
type Params struct {
	MaxSamples    int           // cap on the number of samples, 0 for all
	ProgressEvery int           // progress log interval, default 50
	RequestDelay  time.Duration // pause between detect calls
	BatchSize     int           // samples per batch, 0 disables batch pacing
	BatchDelay    time.Duration // pause after each batch
	MaxRetries    int           // detect attempts on rate limiting, default 3
	RetryDelay    time.Duration // initial retry delay, grows linearly, default 1s
}

// Stats holds raw counters collected during a run.
type Stats struct {
	TotalCount     int         `json:"total_count"`
	RefuseCount    int         `json:"refuse_count"` // samples labeled "No"
	AllowCount     int         `json:"allow_count"`  // samples labeled "Yes"
	Correct        int         `json:"correct_detections"`
	Incorrect      int         `json:"incorrect_detections"`
	RefuseCorrect  int         `json:"refuse_correct"`  // labeled "No", detected unsafe
	RefuseMissed   int         `json:"refuse_missed"`   // labeled "No", detected safe
	AllowCorrect   int         `json:"allow_correct"`   // labeled "Yes", detected safe
	AllowFlagged   int         `json:"allow_flagged"`   // labeled "Yes", detected unsafe
	Skipped        int         `json:"skipped_count"`   // samples dropped after retries
	FalseNegatives []Misjudged `json:"false_negatives"` // should be refused but passed
	FalsePositives []Misjudged `json:"false_positives"` // should be allowed but flagged
}

// Misjudged is a sample the detector got wrong, kept for the report.
type Misjudged struct {
	Question string           `json:"question"`
	Label    string           `json:"true_label"`
	Result   safecheck.Result `json:"detection_result"`
}

// Metrics are derived from Stats, all values are percentages.
type Metrics struct {
	Accuracy       float64 `json:"overall_accuracy"`
	RefuseAccuracy float64 `json:"refuse_accuracy"`
	AllowAccuracy  float64 `json:"allow_accuracy"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1_score"`
}

// Report is the full evaluation outcome, saved as JSON.
type Report struct {
	Statistics Stats   `json:"statistics"`
	Metrics    Metrics `json:"metrics"`
}

// errRateLimited indicates the remote backend throttled the request.
var errRateLimited = errors.New("rate limited")

// Evaluator runs samples through a detector and collects stats.
type Evaluator struct {
	Params
	detector Detector
}

// New creates an evaluator with the given detector and params.
func New(detector Detector, params Params) *Evaluator {
	if params.ProgressEvery <= 0 {
		params.ProgressEvery = 50
	}
	if params.MaxRetries <= 0 {
		params.MaxRetries = 3
	}
	if params.RetryDelay <= 0 {
		params.RetryDelay = time.Second
	}
	return &Evaluator{Params: params, detector: detector}
}

// LoadSamples reads a JSON dataset, a list of {question, label} objects.
func LoadSamples(r io.Reader) ([]Sample, error) {
	var samples []Sample
	if err := json.NewDecoder(r).Decode(&samples); err != nil {
		return nil, fmt.Errorf("can't decode dataset: %w", err)
	}
	return samples, nil
}

// Run evaluates all samples and returns collected stats.
func (e *Evaluator) Run(ctx context.Context, samples []Sample) (Stats, error) {
	if e.MaxSamples > 0 && len(samples) > e.MaxSamples {
		log.Printf("[INFO] dataset capped to %d samples of %d", e.MaxSamples, len(samples))
		samples = samples[:e.MaxSamples]
	}

	stats := Stats{TotalCount: len(samples), FalseNegatives: []Misjudged{}, FalsePositives: []Misjudged{}}
	log.Printf("[INFO] evaluation started, %d samples, retries:%d, request delay:%v",
		len(samples), e.MaxRetries, e.RequestDelay)

	for i, sample := range samples {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		res, err := e.detectWithRetry(ctx, sample.Question)
		if err != nil {
			log.Printf("[WARN] sample %d skipped: %v", i+1, err)
			stats.Skipped++
			continue
		}

		e.record(&stats, sample, res)

		if (i+1)%e.ProgressEvery == 0 {
			log.Printf("[INFO] processed %d/%d samples", i+1, len(samples))
		}
		e.pace(ctx, i)
	}

	log.Printf("[INFO] evaluation completed, correct:%d, incorrect:%d, skipped:%d",
		stats.Correct, stats.Incorrect, stats.Skipped)
	return stats, nil
}

// detectWithRetry retries rate-limited detections with linearly growing delay.
// any other detector outcome is taken as-is, the facade degrades instead of failing.
func (e *Evaluator) detectWithRetry(ctx context.Context, question string) (safecheck.Result, error) {
	var res safecheck.Result
	worker := func() error {
		res = e.detector.Detect(ctx, question)
		if rateLimited(res) {
			return errRateLimited
		}
		return nil
	}

	r := repeater.NewBackoff(e.MaxRetries, e.RetryDelay, repeater.WithBackoffType(repeater.BackoffLinear))
	if err := r.Do(ctx, worker); err != nil {
		return safecheck.Result{}, fmt.Errorf("detect failed after %d attempts: %w", e.MaxRetries, err)
	}
	return res, nil
}

// rateLimited reports if a result carries a remote throttling error.
func rateLimited(res safecheck.Result) bool {
	if res.Details == nil {
		return false
	}
	apiErr, ok := res.Details["api_error"].(string)
	if !ok {
		// fused results embed the remote error under api_result.details.error
		if nested, ok := res.Details["api_result"].(map[string]any); ok {
			if apiErr, ok = nested["error"].(string); !ok {
				if deeper, ok := nested["details"].(map[string]any); ok {
					apiErr, _ = deeper["error"].(string)
				}
			}
		}
	}
	return strings.Contains(strings.ToLower(apiErr), "qps request limit reached")
}

func (e *Evaluator) record(stats *Stats, sample Sample, res safecheck.Result) {
	detectedUnsafe := !res.IsSafe
	shouldRefuse := sample.Label != "Yes"

	if shouldRefuse {
		stats.RefuseCount++
		if detectedUnsafe {
			stats.RefuseCorrect++
		} else {
			stats.RefuseMissed++
			stats.FalseNegatives = append(stats.FalseNegatives,
				Misjudged{Question: sample.Question, Label: sample.Label, Result: res})
		}
	} else {
		stats.AllowCount++
		if detectedUnsafe {
			stats.AllowFlagged++
			stats.FalsePositives = append(stats.FalsePositives,
				Misjudged{Question: sample.Question, Label: sample.Label, Result: res})
		} else {
			stats.AllowCorrect++
		}
	}

	if shouldRefuse == detectedUnsafe {
		stats.Correct++
	} else {
		stats.Incorrect++
	}
}

// pace sleeps between requests and after each batch, context-aware.
func (e *Evaluator) pace(ctx context.Context, i int) {
	delay := e.RequestDelay
	if e.BatchSize > 0 && (i+1)%e.BatchSize == 0 {
		log.Printf("[DEBUG] batch %d completed, pausing for %v", i/e.BatchSize+1, e.BatchDelay)
		delay = e.BatchDelay
	}
	if delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

// CalculateMetrics derives percentage metrics from raw counters.
func CalculateMetrics(stats Stats) Metrics {
	m := Metrics{}
	if stats.TotalCount > 0 {
		m.Accuracy = float64(stats.Correct) / float64(stats.TotalCount) * 100
	}
	if stats.RefuseCount > 0 {
		m.RefuseAccuracy = float64(stats.RefuseCorrect) / float64(stats.RefuseCount) * 100
	}
	if stats.AllowCount > 0 {
		m.AllowAccuracy = float64(stats.AllowCorrect) / float64(stats.AllowCount) * 100
	}
	if stats.RefuseCorrect+stats.AllowFlagged > 0 {
		m.Precision = float64(stats.RefuseCorrect) / float64(stats.RefuseCorrect+stats.AllowFlagged) * 100
	}
	if stats.RefuseCorrect+stats.RefuseMissed > 0 {
		m.Recall = float64(stats.RefuseCorrect) / float64(stats.RefuseCorrect+stats.RefuseMissed) * 100
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

// SaveReport writes the full report as indented JSON.
func SaveReport(stats Stats, metrics Metrics, path string) error {
	report := Report{Statistics: stats, Metrics: metrics}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("can't marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("can't save report to %s: %w", path, err)
	}
	log.Printf("[INFO] evaluation report saved to %s", path)
	return nil
}

// PrintResults writes a human-readable summary to the given writer.
func PrintResults(w io.Writer, stats Stats, metrics Metrics) {
	fmt.Fprintf(w, "dataset: total:%d, to-refuse:%d, to-allow:%d, skipped:%d\n",
		stats.TotalCount, stats.RefuseCount, stats.AllowCount, stats.Skipped)
	fmt.Fprintf(w, "detections: correct:%d, incorrect:%d\n", stats.Correct, stats.Incorrect)
	fmt.Fprintf(w, "breakdown: refused correctly:%d, missed:%d, allowed correctly:%d, flagged wrongly:%d\n",
		stats.RefuseCorrect, stats.RefuseMissed, stats.AllowCorrect, stats.AllowFlagged)
	fmt.Fprintf(w, "accuracy: overall:%.2f%%, refuse:%.2f%%, allow:%.2f%%\n",
		metrics.Accuracy, metrics.RefuseAccuracy, metrics.AllowAccuracy)
	fmt.Fprintf(w, "precision:%.2f%%, recall:%.2f%%, f1:%.2f%%\n", metrics.Precision, metrics.Recall, metrics.F1)
}
