// Package similarity builds a lexical TF-IDF vector space over memory text
// and computes cosine similarity for duplicate detection and ranked search.
// The representation is deliberately lexical, not learned: results are
// deterministic and fully portable.
package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Tier classifies a pairwise similarity score. Thresholds are a shared
// contract between this engine and its callers.
type Tier int

const (
	TierNovel Tier = iota
	TierSimilar
	TierNearDuplicate
	TierDuplicate
)

const (
	duplicateThreshold = 0.95
	nearDupThreshold   = 0.90
	similarThreshold   = 0.70
	loopThreshold      = 0.60
)

// Classify maps a similarity score to its handling tier.
func Classify(sim float64) Tier {
	switch {
	case sim >= duplicateThreshold:
		return TierDuplicate
	case sim >= nearDupThreshold:
		return TierNearDuplicate
	case sim >= similarThreshold:
		return TierSimilar
	default:
		return TierNovel
	}
}

func (t Tier) String() string {
	switch t {
	case TierDuplicate:
		return "duplicate"
	case TierNearDuplicate:
		return "near-duplicate"
	case TierSimilar:
		return "similar"
	}
	return "novel"
}

// LoopSeverity bands a rejected-vs-rejected similarity score. Empty means no
// loop warning.
func LoopSeverity(sim float64) string {
	switch {
	case sim > 0.95:
		return "critical"
	case sim > 0.80:
		return "high"
	case sim > loopThreshold:
		return "moderate"
	}
	return ""
}

var tokenRe = regexp.MustCompile(`[a-z0-9_]+`)

// Tokenize lowercases and splits text into word tokens.
func Tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

type doc struct {
	id string
	tf map[string]float64
}

// Corpus is a growing set of documents with lazily recomputed IDF weights.
type Corpus struct {
	docs  []doc
	index map[string]int // id -> docs position
	df    map[string]int
	dirty bool
	idf   map[string]float64
}

// New creates an empty corpus.
func New() *Corpus {
	return &Corpus{index: map[string]int{}, df: map[string]int{}}
}

// Add indexes a document. Re-adding an existing id replaces it.
func (c *Corpus) Add(id, text string) {
	tf := termFreq(Tokenize(text))
	if pos, ok := c.index[id]; ok {
		for term := range c.docs[pos].tf {
			c.df[term]--
		}
		c.docs[pos].tf = tf
	} else {
		c.index[id] = len(c.docs)
		c.docs = append(c.docs, doc{id: id, tf: tf})
	}
	for term := range tf {
		c.df[term]++
	}
	c.dirty = true
}

// Len is the number of indexed documents.
func (c *Corpus) Len() int { return len(c.docs) }

func termFreq(tokens []string) map[string]float64 {
	tf := map[string]float64{}
	for _, t := range tokens {
		tf[t]++
	}
	n := float64(len(tokens))
	if n > 0 {
		for t := range tf {
			tf[t] /= n
		}
	}
	return tf
}

// weights returns IDF weights, recomputing them after any corpus change.
// On an empty corpus every term weighs 1, so pairwise similarity degrades to
// plain term-frequency cosine instead of failing.
func (c *Corpus) weights() map[string]float64 {
	if !c.dirty && c.idf != nil {
		return c.idf
	}
	n := float64(len(c.docs))
	idf := make(map[string]float64, len(c.df))
	for term, df := range c.df {
		if df > 0 {
			idf[term] = math.Log(1+n/float64(df)) + 1
		}
	}
	c.idf = idf
	c.dirty = false
	return idf
}

func (c *Corpus) vectorize(tf map[string]float64) map[string]float64 {
	idf := c.weights()
	vec := make(map[string]float64, len(tf))
	var norm float64
	for term, f := range tf {
		w := f
		if iw, ok := idf[term]; ok {
			w *= iw
		}
		vec[term] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for term := range vec {
			vec[term] /= norm
		}
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for term, wa := range a {
		dot += wa * b[term]
	}
	// Vectors are unit length; clamp accumulated float error.
	if dot > 1 {
		dot = 1
	}
	return dot
}

// Similarity computes cosine similarity between two texts in [0,1], weighted
// by the corpus IDF. Either text being empty yields 0.
func (c *Corpus) Similarity(a, b string) float64 {
	va := c.vectorize(termFreq(Tokenize(a)))
	vb := c.vectorize(termFreq(Tokenize(b)))
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}
	return cosine(va, vb)
}

// Match is one ranked search hit.
type Match struct {
	ID    string
	Score float64
}

// Rank scores every indexed document against the query, best first. An empty
// corpus or an empty query yields no matches.
func (c *Corpus) Rank(query string, limit int) []Match {
	qv := c.vectorize(termFreq(Tokenize(query)))
	if len(qv) == 0 || len(c.docs) == 0 {
		return nil
	}

	var out []Match
	for _, d := range c.docs {
		score := cosine(qv, c.vectorize(d.tf))
		if score > 0 {
			out = append(out, Match{ID: d.id, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Best returns the highest similarity between text and any indexed document,
// along with that document's id. Zero on an empty corpus.
func (c *Corpus) Best(text string) (string, float64) {
	tv := c.vectorize(termFreq(Tokenize(text)))
	if len(tv) == 0 {
		return "", 0
	}
	var bestID string
	var best float64
	for _, d := range c.docs {
		if score := cosine(tv, c.vectorize(d.tf)); score > best {
			best, bestID = score, d.id
		}
	}
	return bestID, best
}
