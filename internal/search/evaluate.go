package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/asteroid-belt/partmatch/internal/matcherr"
)

// EvalQuery is a query text with the product code it should retrieve.
type EvalQuery struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// QueryResult is the outcome of one evaluation query.
type QueryResult struct {
	Query EvalQuery   `json:"query"`
	Rank  int         `json:"rank"` // 1-based; 0 when the code was not retrieved
	Top   []Candidate `json:"top"`
}

// Report summarises retrieval quality over a query set.
type Report struct {
	TopK    int           `json:"top_k"`
	Results []QueryResult `json:"results"`
	HitAt1  float64       `json:"hit_at_1"`
	HitAtK  float64       `json:"hit_at_k"`
	MRR     float64       `json:"mrr"`
}

// LoadEvalQueries reads a JSON array of evaluation queries.
func LoadEvalQueries(path string) ([]EvalQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, matcherr.WrapErr(matcherr.ErrConfiguration, "read evaluation file", err)
	}
	var queries []EvalQuery
	if err := json.Unmarshal(data, &queries); err != nil {
		return nil, matcherr.WrapErr(matcherr.ErrConfiguration, "parse evaluation file", err)
	}
	for i, q := range queries {
		if strings.TrimSpace(q.Code) == "" || strings.TrimSpace(q.Text) == "" {
			return nil, matcherr.Wrapf(matcherr.ErrConfiguration, "evaluation query %d needs both code and text", i)
		}
	}
	return queries, nil
}

// Evaluate runs each query with no score threshold and records where the
// expected code ranks.
func (s *Service) Evaluate(ctx context.Context, queries []EvalQuery, topK int) (*Report, error) {
	if len(queries) == 0 {
		return nil, matcherr.Wrap(matcherr.ErrPrecondition, "no evaluation queries")
	}
	report := &Report{TopK: topK, Results: make([]QueryResult, 0, len(queries))}
	var hit1, hitK, rr float64
	for _, q := range queries {
		top, err := s.Search(ctx, q.Text, topK, 0)
		if err != nil {
			return nil, fmt.Errorf("evaluate %q: %w", q.Text, err)
		}
		res := QueryResult{Query: q, Top: top}
		for i, c := range top {
			if strings.EqualFold(c.Product.Code, q.Code) {
				res.Rank = i + 1
				break
			}
		}
		if res.Rank == 1 {
			hit1++
		}
		if res.Rank > 0 {
			hitK++
			rr += 1 / float64(res.Rank)
		}
		report.Results = append(report.Results, res)
	}
	n := float64(len(queries))
	report.HitAt1 = hit1 / n
	report.HitAtK = hitK / n
	report.MRR = rr / n
	return report, nil
}

// Markdown renders the report as a markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Retrieval evaluation\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Queries | %d |\n", len(r.Results))
	fmt.Fprintf(&b, "| Hit@1 | %.3f |\n", r.HitAt1)
	fmt.Fprintf(&b, "| Hit@%d | %.3f |\n", r.TopK, r.HitAtK)
	fmt.Fprintf(&b, "| MRR | %.3f |\n\n", r.MRR)

	b.WriteString("## Queries\n\n| Expected | Rank | Top match | Score | Query |\n|---|---|---|---|---|\n")
	for _, res := range r.Results {
		rank := "-"
		if res.Rank > 0 {
			rank = fmt.Sprintf("%d", res.Rank)
		}
		topCode, topScore := "-", "-"
		if len(res.Top) > 0 {
			topCode = res.Top[0].Product.Code
			topScore = fmt.Sprintf("%.3f", res.Top[0].Score)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			res.Query.Code, rank, topCode, topScore, escapeCell(res.Query.Text))
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
