package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/lps/internal/engine"
	"github.com/roach88/lps/internal/ir"
	"github.com/roach88/lps/internal/parse"
)

// QueryAnswer is the result of one --query, asked once the run has
// finished.
type QueryAnswer struct {
	Query   string   `json:"query"`
	Kind    string   `json:"kind"`
	Answers []string `json:"answers"` // "X = a, Y = b"; "true" for a ground match
}

type runQuery struct {
	lit  ir.Term
	kind engine.QueryKind
}

// parseRunQueries parses the --query literals. They are checked before the
// program is compiled so a typo does not cost a whole run.
func parseRunQueries(srcs []string, kind string) ([]runQuery, error) {
	if len(srcs) == 0 {
		return nil, nil
	}
	k, err := engine.ParseQueryKind(kind)
	if err != nil {
		return nil, err
	}
	queries := make([]runQuery, 0, len(srcs))
	for _, src := range srcs {
		lit, err := parse.Term(src)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", src, err)
		}
		queries = append(queries, runQuery{lit: lit, kind: k})
	}
	return queries, nil
}

// answerQueries asks every query against the engine's final state.
func answerQueries(eng *engine.Engine, queries []runQuery) ([]QueryAnswer, error) {
	out := make([]QueryAnswer, 0, len(queries))
	for _, q := range queries {
		thetas, err := eng.Query(q.lit, q.kind)
		if err != nil {
			return out, err
		}
		answers := make([]string, 0, len(thetas))
		for _, th := range thetas {
			answers = append(answers, formatAnswer(th))
		}
		out = append(out, QueryAnswer{Query: q.lit.String(), Kind: q.kind.String(), Answers: answers})
	}
	return out, nil
}

func formatAnswer(th ir.Theta) string {
	if len(th) == 0 {
		return "true"
	}
	parts := make([]string, 0, len(th))
	for _, name := range th.SortedKeys() {
		parts = append(parts, name+" = "+th[name].String())
	}
	return strings.Join(parts, ", ")
}

func writeQueryAnswer(p *cyclePrinter, a QueryAnswer) {
	result := "no"
	if len(a.Answers) > 0 {
		result = strings.Join(a.Answers, "; ")
	}
	fmt.Fprintf(p.w, "?- %s [%s]: %s\n", a.Query, a.Kind, result)
}
