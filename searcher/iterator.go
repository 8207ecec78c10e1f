package searcher

import (
	"github.com/hupe1980/lexgo/model"
	"github.com/hupe1980/lexgo/scoring"
)

// PostingsIterator is the pull-based cursor a segment exposes for one
// term: a lazy, finite, forward-only sequence of (doc id, freq) pairs in
// strictly increasing doc-id order.
type PostingsIterator interface {
	Next() bool
	Doc() uint32
	Freq() uint32
	Err() error
}

// scoredIterator walks segment-local matches of a query node in
// increasing doc-id order. The strictly-increasing invariant of posting
// lists is what makes the lock-step combinators below correct.
type scoredIterator interface {
	next() bool
	doc() uint32
	score() float32
	err() error
}

// termScorer scores one posting list with the configured similarity.
type termScorer struct {
	it      PostingsIterator
	sim     scoring.Similarity
	stats   scoring.Stats
	docLen  func(model.DocID) uint32
	current float32
}

func (s *termScorer) next() bool {
	if !s.it.Next() {
		return false
	}
	s.current = s.sim.Score(s.it.Freq(), s.docLen(model.DocID(s.it.Doc())), s.stats)
	return true
}

func (s *termScorer) doc() uint32 { return s.it.Doc() }

func (s *termScorer) score() float32 { return s.current }

func (s *termScorer) err() error { return s.it.Err() }

// emptyIterator matches nothing (absent term).
type emptyIterator struct{}

func (emptyIterator) next() bool     { return false }
func (emptyIterator) doc() uint32    { return 0 }
func (emptyIterator) score() float32 { return 0 }
func (emptyIterator) err() error     { return nil }

// conjunctionIterator advances all sub-iterators in lock-step and emits
// doc ids present in every one, with summed scores.
type conjunctionIterator struct {
	subs    []scoredIterator
	cur     []uint32
	scores  []float32
	started bool
	done    bool
	e       error

	curDoc   uint32
	curScore float32
}

func newConjunction(subs []scoredIterator) *conjunctionIterator {
	return &conjunctionIterator{
		subs:   subs,
		cur:    make([]uint32, len(subs)),
		scores: make([]float32, len(subs)),
	}
}

func (c *conjunctionIterator) advanceSub(i int) bool {
	if !c.subs[i].next() {
		if err := c.subs[i].err(); err != nil {
			c.e = err
		}
		c.done = true
		return false
	}
	c.cur[i] = c.subs[i].doc()
	c.scores[i] = c.subs[i].score()
	return true
}

func (c *conjunctionIterator) next() bool {
	if c.done || c.e != nil {
		return false
	}

	if !c.started {
		c.started = true
		for i := range c.subs {
			if !c.advanceSub(i) {
				return false
			}
		}
	} else if !c.advanceSub(0) {
		return false
	}

	for {
		// Align all cursors on the largest current doc id.
		max := c.cur[0]
		aligned := true
		for _, d := range c.cur[1:] {
			if d != c.cur[0] {
				aligned = false
			}
			if d > max {
				max = d
			}
		}
		if aligned {
			c.curDoc = c.cur[0]
			c.curScore = 0
			for _, s := range c.scores {
				c.curScore += s
			}
			return true
		}
		for i := range c.subs {
			for c.cur[i] < max {
				if !c.advanceSub(i) {
					return false
				}
			}
		}
	}
}

func (c *conjunctionIterator) doc() uint32 { return c.curDoc }

func (c *conjunctionIterator) score() float32 { return c.curScore }

func (c *conjunctionIterator) err() error { return c.e }

// disjunctionIterator merges sub-iterators by doc id and emits the union
// with scores summed across the subs matching each doc.
type disjunctionIterator struct {
	subs    []scoredIterator
	cur     []uint32
	scores  []float32
	valid   []bool
	started bool
	e       error

	curDoc   uint32
	curScore float32
}

func newDisjunction(subs []scoredIterator) *disjunctionIterator {
	return &disjunctionIterator{
		subs:   subs,
		cur:    make([]uint32, len(subs)),
		scores: make([]float32, len(subs)),
		valid:  make([]bool, len(subs)),
	}
}

func (d *disjunctionIterator) advanceSub(i int) {
	if d.subs[i].next() {
		d.cur[i] = d.subs[i].doc()
		d.scores[i] = d.subs[i].score()
		d.valid[i] = true
		return
	}
	d.valid[i] = false
	if err := d.subs[i].err(); err != nil && d.e == nil {
		d.e = err
	}
}

func (d *disjunctionIterator) next() bool {
	if d.e != nil {
		return false
	}

	if !d.started {
		d.started = true
		for i := range d.subs {
			d.advanceSub(i)
		}
	} else {
		for i := range d.subs {
			if d.valid[i] && d.cur[i] == d.curDoc {
				d.advanceSub(i)
			}
		}
	}
	if d.e != nil {
		return false
	}

	min := uint32(0)
	found := false
	for i := range d.subs {
		if d.valid[i] && (!found || d.cur[i] < min) {
			min = d.cur[i]
			found = true
		}
	}
	if !found {
		return false
	}

	d.curDoc = min
	d.curScore = 0
	for i := range d.subs {
		if d.valid[i] && d.cur[i] == min {
			d.curScore += d.scores[i]
		}
	}
	return true
}

func (d *disjunctionIterator) doc() uint32 { return d.curDoc }

func (d *disjunctionIterator) score() float32 { return d.curScore }

func (d *disjunctionIterator) err() error { return d.e }

// negationIterator emits every doc id in [0, docCount) that the excluded
// iterator does not match. Matches carry no score of their own.
type negationIterator struct {
	docCount uint32
	excl     scoredIterator

	nextCand  uint32
	exclDoc   uint32
	exclValid bool
	started   bool
	e         error

	curDoc uint32
}

func newNegation(docCount uint32, excl scoredIterator) *negationIterator {
	return &negationIterator{docCount: docCount, excl: excl}
}

func (n *negationIterator) advanceExcl() {
	if n.excl.next() {
		n.exclDoc = n.excl.doc()
		n.exclValid = true
		return
	}
	n.exclValid = false
	if err := n.excl.err(); err != nil {
		n.e = err
	}
}

func (n *negationIterator) next() bool {
	if n.e != nil {
		return false
	}
	if !n.started {
		n.started = true
		n.advanceExcl()
		if n.e != nil {
			return false
		}
	}

	for cand := n.nextCand; cand < n.docCount; cand++ {
		for n.exclValid && n.exclDoc < cand {
			n.advanceExcl()
			if n.e != nil {
				return false
			}
		}
		if n.exclValid && n.exclDoc == cand {
			continue
		}
		n.curDoc = cand
		n.nextCand = cand + 1
		return true
	}
	return false
}

func (n *negationIterator) doc() uint32 { return n.curDoc }

func (n *negationIterator) score() float32 { return 0 }

func (n *negationIterator) err() error { return n.e }
