package safety

import (
	"bufio"
	"io"
	"iter"
	"log"
	"strings"
	"sync"
)

// lexicon holds the set of banned terms. Terms are keyed by their normalized
// form, the same normalization applied to scanned texts, so a term loaded with
// mixed case, emojis or invisible characters still matches.
// Thread-safe, but see Detector for the locking on combined operations.
type lexicon struct {
	terms map[string]string // normalized term -> term as loaded/added
	lock  sync.RWMutex
}

func newLexicon() *lexicon {
	return &lexicon{terms: map[string]string{}}
}

// load reads terms from the given readers, one term per line, and replaces the
// current set. Blank lines and lines starting with "#" are skipped.
func (l *lexicon) load(readers ...io.Reader) int {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.terms = map[string]string{}
	for term := range termsIterator(readers...) {
		if key := normalize(term); key != "" { // a term normalized away would match everything
			l.terms[key] = term
		}
	}
	return len(l.terms)
}

// add inserts a term, no-op for empty or already present terms.
// returns true if the term was actually added.
func (l *lexicon) add(term string) bool {
	term = strings.TrimSpace(term)
	key := normalize(term)
	if key == "" {
		return false
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	if _, ok := l.terms[key]; ok {
		return false
	}
	l.terms[key] = term
	return true
}

// remove deletes a term, no-op if absent. returns true if removed.
func (l *lexicon) remove(term string) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	if _, ok := l.terms[normalize(term)]; !ok {
		return false
	}
	delete(l.terms, normalize(term))
	return true
}

// all returns a snapshot of all terms, no ordering guarantee.
func (l *lexicon) all() []string {
	l.lock.RLock()
	defer l.lock.RUnlock()
	res := make([]string, 0, len(l.terms))
	for _, term := range l.terms {
		res = append(res, term)
	}
	return res
}

func (l *lexicon) size() int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return len(l.terms)
}

// match scans the normalized text and returns all terms contained in it,
// deduplicated, reported with their stored case. Terms are matched as literal
// substrings, never as patterns.
func (l *lexicon) match(text string) []string {
	if text == "" {
		return []string{}
	}
	l.lock.RLock()
	defer l.lock.RUnlock()

	res := []string{}
	for norm, orig := range l.terms {
		if strings.Contains(text, norm) {
			res = append(res, orig)
		}
	}
	return res
}

// termsIterator parses readers and returns an iterator of terms, one per line.
// Blank lines and "#" comments are skipped.
func termsIterator(readers ...io.Reader) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, reader := range readers {
			scanner := bufio.NewScanner(reader)
			for scanner.Scan() {
				term := strings.Trim(scanner.Text(), " \n\r\t")
				if term == "" || strings.HasPrefix(term, "#") {
					continue
				}
				if !yield(term) {
					return
				}
			}
			if err := scanner.Err(); err != nil {
				log.Printf("[WARN] failed to read terms, error=%v", err)
			}
		}
	}
}
