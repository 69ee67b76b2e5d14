package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/sashabaranov/go-openai"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/guardlex/guardlex/app/evaluator"
	"github.com/guardlex/guardlex/app/webapi"
	"github.com/guardlex/guardlex/app/words"
	"github.com/guardlex/guardlex/lib/safecheck"
	"github.com/guardlex/guardlex/lib/safety"
)

type options struct {
	Text  string `short:"t" long:"text" description:"text to check"`
	File  string `short:"f" long:"file" description:"file to check as a single text"`
	Batch string `short:"b" long:"batch" description:"file to check line by line"`

	Format string `long:"format" env:"FORMAT" choice:"text" choice:"json" default:"text" description:"output format"`

	Words struct {
		Files         []string      `long:"file" env:"FILES" env-delim:"," default:"data/sensitive-words.txt" description:"sensitive words files"`
		Watch         bool          `long:"watch" env:"WATCH" description:"reload words on file change, server mode only"`
		WatchDebounce time.Duration `long:"watch-debounce" env:"WATCH_DEBOUNCE" default:"500ms" description:"debounce for watch reloads"`
	} `group:"words" namespace:"words" env-namespace:"WORDS"`

	Remote struct {
		Enabled       bool          `long:"enabled" env:"ENABLED" description:"enable remote moderation API"`
		APIKey        string        `long:"api-key" env:"API_KEY" description:"moderation API key"`
		SecretKey     string        `long:"secret-key" env:"SECRET_KEY" description:"moderation API secret key"`
		TokenURL      string        `long:"token-url" env:"TOKEN_URL" description:"moderation token endpoint, builtin default if empty"`
		CensorURL     string        `long:"censor-url" env:"CENSOR_URL" description:"moderation censor endpoint, builtin default if empty"`
		RequiredScope string        `long:"scope" env:"SCOPE" description:"required API scope, warn if not granted"`
		Timeout       time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"http timeout for moderation calls"`
		CacheTTL      time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"5m" description:"verdict cache ttl, 0 disables cache"`
		CacheSize     int           `long:"cache-size" env:"CACHE_SIZE" default:"1000" description:"verdict cache max entries"`
		LocalWeight   float64       `long:"local-weight" env:"LOCAL_WEIGHT" default:"0.3" description:"local verdict weight in fused confidence"`
		RemoteWeight  float64       `long:"remote-weight" env:"REMOTE_WEIGHT" default:"0.7" description:"remote verdict weight in fused confidence"`
	} `group:"remote" namespace:"remote" env-namespace:"REMOTE"`

	OpenAI struct {
		Token             string `long:"token" env:"TOKEN" description:"openai token, moderation via openai if set and censor keys are not"`
		Prompt            string `long:"prompt" env:"PROMPT" default:"" description:"openai system prompt, if empty uses builtin default"`
		Model             string `long:"model" env:"MODEL" default:"gpt-4o-mini" description:"openai model"`
		MaxTokensResponse int    `long:"max-tokens-response" env:"MAX_TOKENS_RESPONSE" default:"1024" description:"openai max tokens in response"`
		MaxTokensRequest  int    `long:"max-tokens-request" env:"MAX_TOKENS_REQUEST" default:"1024" description:"openai max tokens in request"`
		MaxSymbolsRequest int    `long:"max-symbols-request" env:"MAX_SYMBOLS_REQUEST" default:"8192" description:"openai max symbols in request, failback if tokenizer failed"`
	} `group:"openai" namespace:"openai" env-namespace:"OPENAI"`

	Server struct {
		Enabled     bool   `long:"enabled" env:"ENABLED" description:"run web API server"`
		Listen      string `long:"listen" env:"LISTEN" default:":8080" description:"listen address"`
		AuthPasswd  string `long:"auth" env:"AUTH" description:"basic auth password for user \"guardlex\""`
		HistorySize int    `long:"history-size" env:"HISTORY_SIZE" default:"100" description:"recent detections to keep"`
	} `group:"server" namespace:"server" env-namespace:"SERVER"`

	Eval struct {
		Dataset       string        `long:"dataset" env:"DATASET" description:"labeled dataset file, enables evaluation mode"`
		Output        string        `long:"output" env:"OUTPUT" default:"evaluation-results.json" description:"evaluation report file"`
		MaxSamples    int           `long:"max-samples" env:"MAX_SAMPLES" description:"cap on evaluated samples, 0 for all"`
		ProgressEvery int           `long:"progress-every" env:"PROGRESS_EVERY" default:"50" description:"progress log interval"`
		RequestDelay  time.Duration `long:"request-delay" env:"REQUEST_DELAY" default:"0s" description:"pause between detect calls"`
		BatchSize     int           `long:"batch-size" env:"BATCH_SIZE" description:"samples per batch, 0 disables batch pacing"`
		BatchDelay    time.Duration `long:"batch-delay" env:"BATCH_DELAY" default:"0s" description:"pause after each batch"`
		MaxRetries    int           `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"detect attempts on rate limiting"`
		RetryDelay    time.Duration `long:"retry-delay" env:"RETRY_DELAY" default:"1s" description:"initial retry delay"`
	} `group:"eval" namespace:"eval" env-namespace:"EVAL"`

	Logger struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"enable rotated unsafe detections log"`
		FileName   string `long:"file" env:"FILE"  default:"guardlex.log" description:"location of the detections log"`
		MaxSize    string `long:"max-size" env:"MAX_SIZE" default:"100M" description:"maximum size before it gets rotated"`
		MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" default:"10" description:"maximum number of old log files to retain"`
	} `group:"logger" namespace:"logger" env-namespace:"LOGGER"`

	Dbg bool `long:"dbg" env:"DEBUG" description:"debug mode"`
}

var revision = "local"

func main() {
	fmt.Printf("guardlex %s\n", revision)
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	p.SubcommandsOptional = true
	if _, err := p.Parse(); err != nil {
		if err.(*flags.Error).Type != flags.ErrHelp {
			log.Printf("[ERROR] cli error: %v", err)
		}
		os.Exit(2)
	}

	setupLog(opts.Dbg, opts.Remote.APIKey, opts.Remote.SecretKey, opts.OpenAI.Token, opts.Server.AuthPasswd)
	log.Printf("[DEBUG] options: %+v", opts)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		// catch signal and invoke graceful termination
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("[WARN] interrupt signal")
		cancel()
	}()

	if err := execute(ctx, opts); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, opts options) error {
	detector, err := makeDetector(opts)
	if err != nil {
		return fmt.Errorf("can't make detector, %w", err)
	}

	loggerWr, err := makeDetectionLogWriter(opts)
	if err != nil {
		return fmt.Errorf("can't make detections log writer, %w", err)
	}
	defer loggerWr.Close()

	switch {
	case opts.Server.Enabled:
		return runServer(ctx, opts, detector)
	case opts.Eval.Dataset != "":
		return runEval(ctx, opts, detector)
	case opts.Batch != "":
		return checkBatch(ctx, opts, detector, loggerWr)
	case opts.File != "":
		data, err := os.ReadFile(opts.File) //nolint:gosec // path is provided by the user
		if err != nil {
			return fmt.Errorf("can't read %s, %w", opts.File, err)
		}
		return checkText(ctx, opts, detector, loggerWr, strings.TrimSpace(string(data)))
	case opts.Text != "":
		return checkText(ctx, opts, detector, loggerWr, opts.Text)
	}
	return errors.New("no input provided, use one of --text, --file, --batch, --eval.dataset or --server.enabled")
}

func makeDetector(opts options) (*safety.Detector, error) {
	readers, err := words.Open(opts.Words.Files...)
	if err != nil {
		if len(readers) == 0 {
			return nil, fmt.Errorf("no usable words files, %w", err)
		}
		log.Printf("[WARN] some words files skipped: %v", err)
	}

	detectorConfig := safety.Config{
		WordsReader:  io.MultiReader(readers...),
		EnableRemote: opts.Remote.Enabled || opts.OpenAI.Token != "",
		LocalWeight:  opts.Remote.LocalWeight,
		RemoteWeight: opts.Remote.RemoteWeight,
		HTTPClient:   &http.Client{Timeout: opts.Remote.Timeout},
		Censor: safety.CensorConfig{
			APIKey:        opts.Remote.APIKey,
			SecretKey:     opts.Remote.SecretKey,
			TokenURL:      opts.Remote.TokenURL,
			CensorURL:     opts.Remote.CensorURL,
			RequiredScope: opts.Remote.RequiredScope,
			CacheTTL:      opts.Remote.CacheTTL,
			CacheSize:     opts.Remote.CacheSize,
		},
	}

	detector, err := safety.NewDetector(detectorConfig)
	if err != nil {
		return nil, err
	}
	log.Printf("[DEBUG] detector config: {remote: %v, local weight: %.2f, remote weight: %.2f}",
		detectorConfig.EnableRemote, detectorConfig.LocalWeight, detectorConfig.RemoteWeight)

	// openai moderation is a fallback backend, the censor API wins if both are configured
	if opts.OpenAI.Token != "" && opts.Remote.APIKey == "" {
		log.Printf("[WARN] openai moderation enabled")
		openAIConfig := safety.OpenAIConfig{
			SystemPrompt:      opts.OpenAI.Prompt,
			Model:             opts.OpenAI.Model,
			MaxTokensResponse: opts.OpenAI.MaxTokensResponse,
			MaxTokensRequest:  opts.OpenAI.MaxTokensRequest,
			MaxSymbolsRequest: opts.OpenAI.MaxSymbolsRequest,
		}
		log.Printf("[DEBUG] openai config: %+v", openAIConfig)
		detector.WithOpenAIChecker(openai.NewClient(opts.OpenAI.Token), openAIConfig)
	}
	return detector, nil
}

func runServer(ctx context.Context, opts options, detector *safety.Detector) error {
	if opts.Words.Watch {
		for _, path := range opts.Words.Files {
			go func(path string) {
				e := words.Watch(ctx, path, opts.Words.WatchDebounce, func(r io.Reader) error {
					readers, oerr := words.Open(opts.Words.Files...)
					if oerr != nil && len(readers) == 0 {
						return oerr
					}
					_, lerr := detector.LoadWords(readers...)
					return lerr
				})
				if e != nil {
					log.Printf("[WARN] failed to watch %s: %v", path, e)
				}
			}(path)
		}
	}

	srv := webapi.NewServer(webapi.Config{
		Version:     revision,
		ListenAddr:  opts.Server.Listen,
		Detector:    detector,
		AuthPasswd:  opts.Server.AuthPasswd,
		HistorySize: opts.Server.HistorySize,
		Dbg:         opts.Dbg,
	})
	return srv.Run(ctx)
}

func runEval(ctx context.Context, opts options, detector *safety.Detector) error {
	fh, err := os.Open(opts.Eval.Dataset) //nolint:gosec // path is provided by the user
	if err != nil {
		return fmt.Errorf("can't open dataset %s, %w", opts.Eval.Dataset, err)
	}
	defer fh.Close()

	samples, err := evaluator.LoadSamples(fh)
	if err != nil {
		return err
	}

	ev := evaluator.New(detector, evaluator.Params{
		MaxSamples:    opts.Eval.MaxSamples,
		ProgressEvery: opts.Eval.ProgressEvery,
		RequestDelay:  opts.Eval.RequestDelay,
		BatchSize:     opts.Eval.BatchSize,
		BatchDelay:    opts.Eval.BatchDelay,
		MaxRetries:    opts.Eval.MaxRetries,
		RetryDelay:    opts.Eval.RetryDelay,
	})

	stats, err := ev.Run(ctx, samples)
	if err != nil {
		return fmt.Errorf("evaluation failed, %w", err)
	}

	metrics := evaluator.CalculateMetrics(stats)
	evaluator.PrintResults(os.Stdout, stats, metrics)
	if opts.Eval.Output != "" {
		return evaluator.SaveReport(stats, metrics, opts.Eval.Output)
	}
	return nil
}

func checkText(ctx context.Context, opts options, detector *safety.Detector, wr io.Writer, text string) error {
	res := detector.Detect(ctx, text)
	logDetection(wr, text, res)
	if opts.Format == "json" {
		return printJSON(os.Stdout, map[string]any{"text": text, "result": res})
	}
	printResult(os.Stdout, text, res)
	return nil
}

func checkBatch(ctx context.Context, opts options, detector *safety.Detector, wr io.Writer) error {
	fh, err := os.Open(opts.Batch) //nolint:gosec // path is provided by the user
	if err != nil {
		return fmt.Errorf("can't open %s, %w", opts.Batch, err)
	}
	defer fh.Close()

	var texts []string
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("can't read %s, %w", opts.Batch, err)
	}
	if len(texts) == 0 {
		return fmt.Errorf("no texts found in %s", opts.Batch)
	}

	results := detector.BatchDetect(ctx, texts)
	for i, res := range results {
		logDetection(wr, texts[i], res)
	}

	if opts.Format == "json" {
		out := make([]map[string]any, len(results))
		for i, res := range results {
			out[i] = map[string]any{"text": texts[i], "result": res}
		}
		return printJSON(os.Stdout, out)
	}

	fmt.Printf("batch results, %d texts:\n", len(texts))
	for i, res := range results {
		fmt.Printf("%d. ", i+1)
		printResult(os.Stdout, texts[i], res)
	}
	return nil
}

// printResult writes a colored human-readable verdict
func printResult(w io.Writer, text string, res safecheck.Result) {
	status := color.New(color.FgGreen).Sprint("safe")
	if !res.IsSafe {
		status = color.New(color.FgHiRed).Sprint("UNSAFE")
	}
	if len([]rune(text)) > 60 {
		text = string([]rune(text)[:60]) + "..."
	}
	fmt.Fprintf(w, "%s | risk:%s, confidence:%0.2f | %s\n", status, res.RiskLevel, res.Confidence, text)
	if len(res.MatchedTerms) > 0 {
		fmt.Fprintf(w, "   matched: %s\n", strings.Join(res.MatchedTerms, ", "))
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// logDetection writes an unsafe detection as a json line to the rotated log
func logDetection(wr io.Writer, text string, res safecheck.Result) {
	if res.IsSafe {
		return
	}
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	log.Printf("[INFO] unsafe text detected: %s", res.String())
	m := struct {
		TimeStamp  string   `json:"ts"`
		Text       string   `json:"text"`
		RiskLevel  string   `json:"risk_level"`
		Confidence float64  `json:"confidence"`
		Terms      []string `json:"terms,omitempty"`
	}{
		TimeStamp:  time.Now().In(time.Local).Format(time.RFC3339),
		Text:       text,
		RiskLevel:  string(res.RiskLevel),
		Confidence: res.Confidence,
		Terms:      res.MatchedTerms,
	}
	line, err := json.Marshal(&m)
	if err != nil {
		log.Printf("[WARN] can't marshal json, %v", err)
		return
	}
	if _, err := wr.Write(append(line, '\n')); err != nil {
		log.Printf("[WARN] can't write to log, %v", err)
	}
}

// makeDetectionLogWriter creates the unsafe detections log writer
// it parses options and makes lumberjack logger with rotation
func makeDetectionLogWriter(opts options) (accessLog io.WriteCloser, err error) {
	if !opts.Logger.Enabled {
		return nopWriteCloser{io.Discard}, nil
	}

	sizeParse := func(inp string) (uint64, error) {
		if inp == "" {
			return 0, errors.New("empty value")
		}
		for i, sfx := range []string{"k", "m", "g", "t"} {
			if strings.HasSuffix(inp, strings.ToUpper(sfx)) || strings.HasSuffix(inp, strings.ToLower(sfx)) {
				val, err := strconv.Atoi(inp[:len(inp)-1])
				if err != nil {
					return 0, fmt.Errorf("can't parse %s: %w", inp, err)
				}
				return uint64(float64(val) * math.Pow(float64(1024), float64(i+1))), nil
			}
		}
		return strconv.ParseUint(inp, 10, 64)
	}

	maxSize, perr := sizeParse(opts.Logger.MaxSize)
	if perr != nil {
		return nil, fmt.Errorf("can't parse logger MaxSize: %w", perr)
	}

	maxSize /= 1048576

	log.Printf("[INFO] logger enabled for %s, max size %dM", opts.Logger.FileName, maxSize)
	return &lumberjack.Logger{
		Filename:   opts.Logger.FileName,
		MaxSize:    int(maxSize), // in MB
		MaxBackups: opts.Logger.MaxBackups,
		Compress:   true,
		LocalTime:  true,
	}, nil
}

type nopWriteCloser struct{ io.Writer }

func (n nopWriteCloser) Close() error { return nil }

func setupLog(dbg bool, secrets ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	var nonEmpty []string
	for _, s := range secrets {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) > 0 {
		logOpts = append(logOpts, lgr.Secret(nonEmpty...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
