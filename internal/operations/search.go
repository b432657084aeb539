package operations

import (
	"context"
	"fmt"

	"github.com/rahul/stepwise/internal/plan"
	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// Searcher is the slice of a langchaingo tool the Search operation needs.
type Searcher interface {
	Call(ctx context.Context, input string) (string, error)
}

type SearchOperation struct {
	client Searcher
}

func NewSearch(maxResults int) (*SearchOperation, error) {
	ddg, err := duckduckgo.New(maxResults, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &SearchOperation{client: ddg}, nil
}

// NewSearchWith wraps any searcher, e.g. another langchaingo tool.
func NewSearchWith(client Searcher) *SearchOperation {
	return &SearchOperation{client: client}
}

func (s *SearchOperation) Name() string { return "Search" }

func (s *SearchOperation) Description() string {
	return "Searches the web using DuckDuckGo and returns the top results as text"
}

func (s *SearchOperation) Arity() int { return 1 }

func (s *SearchOperation) Parameters() map[string]any {
	return positional("string", "search query")
}

func (s *SearchOperation) Invoke(ctx context.Context, args []plan.Argument) (plan.Argument, error) {
	if err := checkArity(s.Name(), 1, args); err != nil {
		return nil, err
	}
	query, err := stringArg(s.Name(), args, 0)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Call(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return res, nil
}
