package scoring

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"pivottriage/pkg/models"
)

// Keyword is one high-signal table entry.
type Keyword struct {
	Keyword       string
	TechniqueID   string
	TechniqueName string
}

// Config holds the static scoring tables.
type Config struct {
	HighSignal   []Keyword
	MediumSignal []string
	Noise        []string
	HighWeight   int
	MediumWeight int
	CacheSize    int
	Workers      int
}

// Result is the outcome of scoring one candidate text.
type Result struct {
	Noise      bool
	Score      int
	Reasons    []string
	Techniques []models.Technique
}

// Scorer assigns keyword-weighted suspicion scores. Score is a pure function
// of the text and the tables; the cache only memoizes it.
type Scorer struct {
	high    []Keyword
	medium  []string
	noise   []string
	hiW     int
	medW    int
	workers int
	cache   *lru.Cache[string, Result]
	hits    atomic.Uint64
}

// NewScorer normalizes the tables and creates a scorer.
func NewScorer(cfg Config) (*Scorer, error) {
	if cfg.HighWeight <= 0 || cfg.MediumWeight <= 0 {
		return nil, fmt.Errorf("scoring weights must be positive (high=%d medium=%d)", cfg.HighWeight, cfg.MediumWeight)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	s := &Scorer{
		medium:  normalizeTerms(cfg.MediumSignal),
		noise:   normalizeTerms(cfg.Noise),
		hiW:     cfg.HighWeight,
		medW:    cfg.MediumWeight,
		workers: workers,
	}

	seen := make(map[string]struct{}, len(cfg.HighSignal))
	for _, kw := range cfg.HighSignal {
		k := strings.ToLower(strings.TrimSpace(kw.Keyword))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		s.high = append(s.high, Keyword{
			Keyword:       k,
			TechniqueID:   strings.TrimSpace(kw.TechniqueID),
			TechniqueName: strings.TrimSpace(kw.TechniqueName),
		})
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, Result](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create score cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// IsNoise reports whether text contains an environment-noise term.
func (s *Scorer) IsNoise(text string) bool {
	text = strings.ToLower(text)
	for _, n := range s.noise {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// Score evaluates text against the noise list and both keyword tiers. Noise
// short-circuits: a noisy text has no score, reasons or techniques.
func (s *Scorer) Score(text string) Result {
	r, _ := s.lookup(text)
	return r
}

// lookup scores text and reports whether the cache served it.
func (s *Scorer) lookup(text string) (Result, bool) {
	text = strings.ToLower(text)
	if s.cache != nil {
		if r, ok := s.cache.Get(text); ok {
			s.hits.Add(1)
			return r.clone(), true
		}
	}

	r := s.score(text)
	if s.cache != nil {
		s.cache.Add(text, r)
	}
	return r.clone(), false
}

func (s *Scorer) score(text string) Result {
	if s.IsNoise(text) {
		return Result{Noise: true, Reasons: []string{}, Techniques: []models.Technique{}}
	}

	r := Result{Reasons: []string{}, Techniques: []models.Technique{}}
	techniques := make(map[string]models.Technique)
	for _, kw := range s.high {
		if !strings.Contains(text, kw.Keyword) {
			continue
		}
		r.Score += s.hiW
		r.Reasons = append(r.Reasons, "high-signal: "+kw.Keyword)
		if _, ok := techniques[kw.TechniqueID]; !ok {
			techniques[kw.TechniqueID] = models.Technique{ID: kw.TechniqueID, Name: kw.TechniqueName}
		}
	}
	for _, kw := range s.medium {
		if !strings.Contains(text, kw) {
			continue
		}
		r.Score += s.medW
		r.Reasons = append(r.Reasons, "medium-signal: "+kw)
	}

	for _, t := range techniques {
		r.Techniques = append(r.Techniques, t)
	}
	SortTechniques(r.Techniques)
	return r
}

// ScoreAll scores every candidate across the worker pool and returns a new
// slice in the input order, plus how many of its lookups hit the cache.
// Input candidates are not modified.
func (s *Scorer) ScoreAll(candidates []models.PivotCandidate) ([]models.PivotCandidate, uint64) {
	out := make([]models.PivotCandidate, len(candidates))
	copy(out, candidates)
	if len(out) == 0 {
		return out, 0
	}

	workers := s.workers
	if workers > len(out) {
		workers = len(out)
	}

	jobs := make(chan int, len(out))
	for i := range out {
		jobs <- i
	}
	close(jobs)

	var (
		wg   sync.WaitGroup
		hits atomic.Uint64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := &out[i]
				r, cached := s.lookup(c.Text())
				if cached {
					hits.Add(1)
				}
				c.IsNoise = r.Noise
				c.Score = r.Score
				c.Reasons = r.Reasons
				c.Techniques = r.Techniques
			}
		}()
	}
	wg.Wait()
	return out, hits.Load()
}

// CacheHits returns how many lookups were served from the cache over the
// scorer's lifetime.
func (s *Scorer) CacheHits() uint64 {
	return s.hits.Load()
}

// SortTechniques orders techniques by ID, then name.
func SortTechniques(ts []models.Technique) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].ID != ts[j].ID {
			return ts[i].ID < ts[j].ID
		}
		return ts[i].Name < ts[j].Name
	})
}

func (r Result) clone() Result {
	r.Reasons = slices.Clone(r.Reasons)
	r.Techniques = slices.Clone(r.Techniques)
	return r
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
