package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"contex/contexts/context-routing/keyword-index-service/domain/entities"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type document struct {
	nodeKey string
	terms   map[string]int
	length  int
}

// Store is a minimal BM25 scorer over an in-memory corpus, used for hybrid
// mode in tests and the embedded deployment mode; production hybrid search
// runs against OpenSearch.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]map[string]document // project_id -> node_key -> document
	docFreq  map[string]map[string]int      // project_id -> term -> number of docs containing it
	totalLen map[string]int
	docCount map[string]int
}

func NewStore() *Store {
	return &Store{
		docs:     make(map[string]map[string]document),
		docFreq:  make(map[string]map[string]int),
		totalLen: make(map[string]int),
		docCount: make(map[string]int),
	}
}

func (s *Store) Index(_ context.Context, projectID, nodeKey, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs[projectID] == nil {
		s.docs[projectID] = make(map[string]document)
		s.docFreq[projectID] = make(map[string]int)
	}

	if old, exists := s.docs[projectID][nodeKey]; exists {
		s.removeLocked(projectID, old)
	}

	terms := tokenize(text)
	doc := document{nodeKey: nodeKey, terms: terms, length: sumValues(terms)}
	s.docs[projectID][nodeKey] = doc
	s.totalLen[projectID] += doc.length
	s.docCount[projectID]++
	for term := range terms {
		s.docFreq[projectID][term]++
	}
	return nil
}

func (s *Store) Delete(_ context.Context, projectID, nodeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.docs[projectID]
	if !ok {
		return nil
	}
	if doc, exists := byKey[nodeKey]; exists {
		s.removeLocked(projectID, doc)
		delete(byKey, nodeKey)
	}
	return nil
}

func (s *Store) removeLocked(projectID string, doc document) {
	s.totalLen[projectID] -= doc.length
	s.docCount[projectID]--
	for term := range doc.terms {
		s.docFreq[projectID][term]--
	}
}

func (s *Store) BM25Search(_ context.Context, projectID, query string, topK int) ([]entities.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := s.docs[projectID]
	docCount := s.docCount[projectID]
	if docCount == 0 {
		return []entities.Match{}, nil
	}
	avgLen := float64(s.totalLen[projectID]) / float64(docCount)

	queryTerms := tokenize(query)
	matches := make([]entities.Match, 0, len(byKey))
	for nodeKey, doc := range byKey {
		var score float64
		for term := range queryTerms {
			tf := float64(doc.terms[term])
			if tf == 0 {
				continue
			}
			df := float64(s.docFreq[projectID][term])
			idf := math.Log(1 + (float64(docCount)-df+0.5)/(df+0.5))
			numerator := tf * (bm25K1 + 1)
			denominator := tf + bm25K1*(1-bm25B+bm25B*float64(doc.length)/avgLen)
			score += idf * numerator / denominator
		}
		if score > 0 {
			matches = append(matches, entities.Match{NodeKey: nodeKey, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].NodeKey < matches[j].NodeKey
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func tokenize(text string) map[string]int {
	terms := make(map[string]int)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		terms[tok]++
	}
	return terms
}

func sumValues(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}
