// Package bm25 defines the lexical-search collaborator the scanner
// pipeline feeds alongside the vector store, plus a minimal in-memory
// Okapi BM25 scorer so the pipeline is exercisable end-to-end without an
// external search engine.
package bm25

import (
	"math"
	"sort"
	"strings"
	"sync"
)

// Document is a single indexed unit: one code segment's searchable text.
type Document struct {
	ID       string
	FilePath string
	Content  string
}

// Match pairs a document id with its BM25 score.
type Match struct {
	ID    string
	Score float64
}

// Index is the collaborator the scanner pipeline feeds documents into.
type Index interface {
	AddDocuments(docs []Document) error
	DeleteByFilePath(path string) error
	DeleteByMultipleFilePaths(paths []string) error
	Search(query string, limit int) ([]Match, error)
	Clear() error
}

const (
	k1 = 1.2
	b  = 0.75
)

// MemoryIndex is an in-process Okapi BM25 index.
type MemoryIndex struct {
	mu sync.RWMutex

	docs      map[string]Document
	docTokens map[string][]string
	docLens   map[string]int
	avgDocLen float64
	totalDocs int
	docFreq   map[string]int // term -> number of documents containing it
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		docs:      make(map[string]Document),
		docTokens: make(map[string][]string),
		docLens:   make(map[string]int),
		docFreq:   make(map[string]int),
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	})
}

func (idx *MemoryIndex) AddDocuments(docs []Document) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, d := range docs {
		if d.ID == "" {
			continue
		}
		if _, exists := idx.docs[d.ID]; exists {
			idx.removeLocked(d.ID)
		}
		tokens := tokenize(d.Content)
		idx.docs[d.ID] = d
		idx.docTokens[d.ID] = tokens
		idx.docLens[d.ID] = len(tokens)
		for term := range uniqueTerms(tokens) {
			idx.docFreq[term]++
		}
	}
	idx.recomputeAvgLenLocked()
	return nil
}

func uniqueTerms(tokens []string) map[string]struct{} {
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}
	return seen
}

func (idx *MemoryIndex) removeLocked(id string) {
	tokens, ok := idx.docTokens[id]
	if !ok {
		return
	}
	for term := range uniqueTerms(tokens) {
		idx.docFreq[term]--
		if idx.docFreq[term] <= 0 {
			delete(idx.docFreq, term)
		}
	}
	delete(idx.docs, id)
	delete(idx.docTokens, id)
	delete(idx.docLens, id)
}

func (idx *MemoryIndex) recomputeAvgLenLocked() {
	idx.totalDocs = len(idx.docs)
	if idx.totalDocs == 0 {
		idx.avgDocLen = 0
		return
	}
	var total int
	for _, l := range idx.docLens {
		total += l
	}
	idx.avgDocLen = float64(total) / float64(idx.totalDocs)
}

func (idx *MemoryIndex) DeleteByFilePath(path string) error {
	return idx.DeleteByMultipleFilePaths([]string{path})
}

func (idx *MemoryIndex) DeleteByMultipleFilePaths(paths []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}
	for id, d := range idx.docs {
		if want[d.FilePath] {
			idx.removeLocked(id)
		}
	}
	idx.recomputeAvgLenLocked()
	return nil
}

// Search scores every document against the query's terms using Okapi
// BM25 and returns the top `limit` matches, highest score first.
func (idx *MemoryIndex) Search(query string, limit int) ([]Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 || idx.totalDocs == 0 {
		return nil, nil
	}

	scores := make(map[string]float64, len(idx.docs))
	for id, tokens := range idx.docTokens {
		tf := termFrequencies(tokens)
		docLen := float64(idx.docLens[id])
		var score float64
		for _, term := range queryTerms {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			df := idx.docFreq[term]
			idf := math.Log(1 + (float64(idx.totalDocs)-float64(df)+0.5)/(float64(df)+0.5))
			denom := f + k1*(1-b+b*docLen/idx.avgDocLen)
			score += idf * (f * (k1 + 1)) / denom
		}
		if score > 0 {
			scores[id] = score
		}
	}

	matches := make([]Match, 0, len(scores))
	for id, score := range scores {
		matches = append(matches, Match{ID: id, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func termFrequencies(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

func (idx *MemoryIndex) Clear() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs = make(map[string]Document)
	idx.docTokens = make(map[string][]string)
	idx.docLens = make(map[string]int)
	idx.docFreq = make(map[string]int)
	idx.avgDocLen = 0
	idx.totalDocs = 0
	return nil
}
