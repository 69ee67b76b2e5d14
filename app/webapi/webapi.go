// Package webapi provides a web API for the text safety detection service.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"

	"github.com/guardlex/guardlex/lib/safecheck"
)

//go:generate moq --out mocks/detector.go --pkg mocks --with-resets --skip-ensure . Detector

// Server is a web API server.
type Server struct {
	Config
	history *safecheck.LastDetections
}

// Config defines server parameters
type Config struct {
	Version     string   // version to show in /ping and /status
	ListenAddr  string   // listen address
	Detector    Detector // safety detector
	AuthPasswd  string   // basic auth password for user "guardlex", optional
	HistorySize int      // size of the recent detections ring, default 100
	Dbg         bool     // debug mode
}

// Detector is a safety detector interface.
type Detector interface {
	Detect(ctx context.Context, text string) safecheck.Result
	BatchDetect(ctx context.Context, texts []string) []safecheck.Result
	AddWord(term string)
	RemoveWord(term string)
	Words() []string
	SetRemoteDetection(enabled bool)
	IsRemoteAvailable() bool
	DetectionMethodLabel() string
}

// NewServer creates a new web API server.
func NewServer(config Config) *Server {
	if config.HistorySize <= 0 {
		config.HistorySize = 100
	}
	return &Server{Config: config, history: safecheck.NewLastDetections(config.HistorySize)}
}

// Run starts server and accepts requests checking texts for disallowed content.
func (s *Server) Run(ctx context.Context) error {
	router := routegroup.New(http.NewServeMux())
	router.Use(rest.Recoverer(lgr.Default()))
	router.Use(rest.Throttle(1000))
	router.Use(rest.AppInfo("guardlex", "guardlex", s.Version), rest.Ping)
	router.Use(tollbooth.HTTPMiddleware(tollbooth.NewLimiter(50, nil)))
	router.Use(rest.SizeLimit(1024 * 1024)) // 1M max request size

	if s.AuthPasswd != "" {
		log.Printf("[INFO] basic auth enabled for webapi server")
		router.Use(rest.BasicAuthWithUserPasswd("guardlex", s.AuthPasswd))
	} else {
		log.Printf("[WARN] basic auth disabled, access to webapi is not protected")
	}

	s.routes(router)

	srv := &http.Server{Addr: s.ListenAddr, Handler: router, ReadTimeout: 5 * time.Second, WriteTimeout: 30 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown webapi server: %v", err)
		} else {
			log.Printf("[INFO] webapi server stopped")
		}
	}()

	log.Printf("[INFO] start webapi server on %s", s.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run server: %w", err)
	}
	return nil
}

func (s *Server) routes(router *routegroup.Bundle) {
	router.HandleFunc("POST /check", s.checkHandler)            // check a single text
	router.HandleFunc("POST /check/batch", s.checkBatchHandler) // check multiple texts

	router.HandleFunc("GET /words", s.getWordsHandler)           // get lexicon terms
	router.HandleFunc("POST /words/add", s.addWordHandler)       // add a term to the lexicon
	router.HandleFunc("POST /words/delete", s.deleteWordHandler) // remove a term from the lexicon

	router.HandleFunc("PUT /remote", s.remoteHandler)  // enable or disable remote detection
	router.HandleFunc("GET /status", s.statusHandler)  // service status and detection stats
	router.HandleFunc("GET /recent", s.recentsHandler) // recent detections
}

// checkHandler handles POST /check request.
// it gets text from request body and returns the safety verdict.
func (s *Server) checkHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		log.Printf("[WARN] can't decode request: %v", err)
		return
	}

	res := s.Detector.Detect(r.Context(), req.Text)
	s.history.Push(safecheck.Detection{Text: req.Text, Result: res})
	rest.RenderJSON(w, rest.JSON{"text": req.Text, "result": res})
}

// checkBatchHandler handles POST /check/batch request with a list of texts.
func (s *Server) checkBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Texts []string `json:"texts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		return
	}
	if len(req.Texts) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "texts list is empty"})
		return
	}

	results := s.Detector.BatchDetect(r.Context(), req.Texts)
	for i, res := range results {
		s.history.Push(safecheck.Detection{Text: req.Texts[i], Result: res})
	}
	rest.RenderJSON(w, rest.JSON{"results": results, "count": len(results)})
}

// getWordsHandler handles GET /words request. It returns all lexicon terms.
func (s *Server) getWordsHandler(w http.ResponseWriter, _ *http.Request) {
	words := s.Detector.Words()
	rest.RenderJSON(w, rest.JSON{"words": words, "count": len(words)})
}

// addWordHandler handles POST /words/add request.
func (s *Server) addWordHandler(w http.ResponseWriter, r *http.Request) {
	word, ok := s.wordFromRequest(w, r)
	if !ok {
		return
	}
	s.Detector.AddWord(word)
	rest.RenderJSON(w, rest.JSON{"added": true, "word": word, "count": len(s.Detector.Words())})
}

// deleteWordHandler handles POST /words/delete request.
func (s *Server) deleteWordHandler(w http.ResponseWriter, r *http.Request) {
	word, ok := s.wordFromRequest(w, r)
	if !ok {
		return
	}
	s.Detector.RemoveWord(word)
	rest.RenderJSON(w, rest.JSON{"deleted": true, "word": word, "count": len(s.Detector.Words())})
}

func (s *Server) wordFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Word string `json:"word"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		return "", false
	}
	if strings.TrimSpace(req.Word) == "" {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "word is required"})
		return "", false
	}
	return req.Word, true
}

// remoteHandler handles PUT /remote request, it toggles remote detection.
func (s *Server) remoteHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		return
	}

	s.Detector.SetRemoteDetection(req.Enabled)
	rest.RenderJSON(w, rest.JSON{"enabled": req.Enabled, "available": s.Detector.IsRemoteAvailable()})
}

// statusHandler handles GET /status request. It returns service info and detection stats.
func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	recent := s.history.Last(s.HistorySize)
	unsafeCount := 0
	for _, d := range recent {
		if !d.Result.IsSafe {
			unsafeCount++
		}
	}
	rest.RenderJSON(w, rest.JSON{
		"version":          s.Version,
		"detection_method": s.Detector.DetectionMethodLabel(),
		"remote_available": s.Detector.IsRemoteAvailable(),
		"words_count":      len(s.Detector.Words()),
		"recent_total":     len(recent),
		"recent_unsafe":    unsafeCount,
	})
}

// recentsHandler handles GET /recent request. It returns recent detections, oldest first.
func (s *Server) recentsHandler(w http.ResponseWriter, r *http.Request) {
	n := s.HistorySize
	if v := r.URL.Query().Get("n"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n < 1 {
			w.WriteHeader(http.StatusBadRequest)
			rest.RenderJSON(w, rest.JSON{"error": "invalid n parameter"})
			return
		}
	}
	rest.RenderJSON(w, rest.JSON{"detections": s.history.Last(n)})
}
