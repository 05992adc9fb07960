package grading

import (
	"context"
)

// Q is a minimal view of a question needed for grading.
// CorrectOptionIDs is the full set of options flagged correct in the bank.
type Q struct {
	ID               int64
	Points           int
	AllowsMultiple   bool
	CorrectOptionIDs []int64
}

// Result is the outcome of grading a single question response.
type Result struct {
	AutoPoints int // points awarded automatically
	MaxPoints  int // the question's max points
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, selected []int64) (Result, error)
}

// Grader routes by question kind to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, selected []int64) (Result, error)
}

type defaultGrader struct {
	single Strategy
	multi  Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, selected []int64) (Result, error) {
	if q.AllowsMultiple {
		return g.multi.Grade(ctx, q, selected)
	}
	return g.single.Grade(ctx, q, selected)
}

// Engine options

type Option func(*config)

type config struct {
	AllowPartialMulti bool // partial credit for multi-correct without false positives
}

func WithPartialMulti(b bool) Option { return func(c *config) { c.AllowPartialMulti = b } }

// NewDefaultGrader installs the built-in strategies. Multi-correct questions
// require exact set equality unless partial credit is enabled.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	return &defaultGrader{
		single: singleChoiceStrategy{},
		multi:  multiChoiceStrategy{allowPartial: cfg.AllowPartialMulti},
	}
}

// --- Strategies ---

type singleChoiceStrategy struct{}

// Exactly one option must be selected and it must be among the flagged-correct
// set. Several options flagged correct on a single-choice question are
// tolerated: any one of them earns the points.
func (singleChoiceStrategy) Grade(_ context.Context, q Q, selected []int64) (Result, error) {
	res := Result{MaxPoints: q.Points}
	if len(selected) != 1 {
		return res, nil
	}
	for _, k := range q.CorrectOptionIDs {
		if selected[0] == k {
			res.AutoPoints = q.Points
			return res, nil
		}
	}
	return res, nil
}

type multiChoiceStrategy struct{ allowPartial bool }

func (s multiChoiceStrategy) Grade(_ context.Context, q Q, selected []int64) (Result, error) {
	res := Result{MaxPoints: q.Points}
	correct := toSet(q.CorrectOptionIDs)
	resp := toSet(selected)

	if setEqual(correct, resp) && len(correct) > 0 {
		res.AutoPoints = q.Points
		return res, nil
	}
	if !s.allowPartial {
		return res, nil
	}
	for r := range resp {
		if _, ok := correct[r]; !ok {
			// false positive: no partial credit
			return res, nil
		}
	}
	if len(correct) > 0 {
		inter := 0
		for k := range resp {
			if _, ok := correct[k]; ok {
				inter++
			}
		}
		res.AutoPoints = q.Points * inter / len(correct)
	}
	return res, nil
}

// helpers

func toSet(arr []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(arr))
	for _, v := range arr {
		m[v] = struct{}{}
	}
	return m
}

func setEqual(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
