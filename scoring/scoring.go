// Package scoring provides the selectable similarity models used when
// scoring term matches. The model is a configuration parameter so that
// independent implementations can be verified against each other with a
// known formula.
package scoring

import "math"

// Stats carries the per-segment collection statistics a similarity may use.
type Stats struct {
	// DocCount is the number of documents in the segment.
	DocCount uint32
	// DocFreq is the number of documents containing the scored term.
	DocFreq uint32
	// TotalTokens is the total token count across all documents.
	TotalTokens uint64
}

// AvgDocLen returns the average document length in tokens.
func (s Stats) AvgDocLen() float64 {
	if s.DocCount == 0 {
		return 0
	}
	return float64(s.TotalTokens) / float64(s.DocCount)
}

// Similarity scores one term match within one document.
type Similarity interface {
	// Score returns the contribution of a term with frequency tf in a
	// document of docLen tokens.
	Score(tf uint32, docLen uint32, stats Stats) float32
	// Name identifies the model, for recording in the manifest.
	Name() string
}

// Default is the similarity used when none is configured. Raw term
// frequency depends only on the document itself, so scores are stable
// across flush and merge schedules.
var Default Similarity = TF()

// TF returns the baseline term-frequency model: score equals the raw
// frequency of the term in the document.
func TF() Similarity { return tfSimilarity{} }

type tfSimilarity struct{}

func (tfSimilarity) Score(tf uint32, _ uint32, _ Stats) float32 { return float32(tf) }

func (tfSimilarity) Name() string { return "tf" }

// Boolean returns a model scoring every match as 1, regardless of
// frequency. Useful when only set membership matters.
func Boolean() Similarity { return booleanSimilarity{} }

type booleanSimilarity struct{}

func (booleanSimilarity) Score(_ uint32, _ uint32, _ Stats) float32 { return 1 }

func (booleanSimilarity) Name() string { return "boolean" }

// BM25 returns the Okapi BM25 model with the given parameters.
// k1 controls term-frequency saturation, b controls length normalization.
// Note that BM25 scores depend on segment-level statistics, so they change
// when segments are merged.
func BM25(k1, b float64) Similarity {
	return &bm25Similarity{k1: k1, b: b}
}

type bm25Similarity struct {
	k1 float64
	b  float64
}

func (s *bm25Similarity) Score(tf uint32, docLen uint32, stats Stats) float32 {
	if stats.DocCount == 0 {
		return 0
	}

	// IDF = log(1 + (N - n + 0.5) / (n + 0.5))
	N := float64(stats.DocCount)
	n := float64(stats.DocFreq)
	idf := math.Log(1 + (N-n+0.5)/(n+0.5))

	f := float64(tf)
	num := f * (s.k1 + 1)
	denom := f + s.k1*(1-s.b+s.b*(float64(docLen)/stats.AvgDocLen()))

	return float32(idf * (num / denom))
}

func (s *bm25Similarity) Name() string { return "bm25" }

// ByName returns the similarity model registered under name. BM25 is
// constructed with the conventional defaults (k1=1.2, b=0.75).
func ByName(name string) (Similarity, bool) {
	switch name {
	case "tf":
		return TF(), true
	case "boolean":
		return Boolean(), true
	case "bm25":
		return BM25(1.2, 0.75), true
	default:
		return nil, false
	}
}
