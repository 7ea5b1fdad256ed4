package matching

import (
	"context"
	"fmt"
	"math"
	"sort"

	"splay/entities"
)

const (
	DefaultMatchLimit = 20
	TopMatches        = 5
	BudgetRank        = 6
	BudgetPriceRatio  = 0.8
	BudgetMinScore    = 0.75
)

type (
	// ProductSource lists the candidate products for a category.
	ProductSource interface {
		GetInStockByCategory(ctx context.Context, category string) ([]*entities.Product, error)
	}

	Match struct {
		Product    *entities.Product
		Similarity float64
	}

	RankedMatch struct {
		Product         *entities.Product
		SimilarityScore float64
		IsBudget        bool
		Rank            int
	}

	MatchingService interface {
		FindMatches(ctx context.Context, category string, embedding []float64, limit int) ([]Match, error)
		Rank(matches []Match) []RankedMatch
	}

	matchingService struct {
		products ProductSource
	}
)

func NewMatchingService(products ProductSource) MatchingService {
	return &matchingService{products: products}
}

// FindMatches scores in-stock products of the category that carry an
// embedding and returns the best limit of them, most similar first.
func (s *matchingService) FindMatches(ctx context.Context, category string, embedding []float64, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultMatchLimit
	}

	products, err := s.products.GetInStockByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("loading %s products: %w", category, err)
	}

	matches := make([]Match, 0, len(products))
	for _, p := range products {
		if len(p.Embedding) == 0 {
			continue
		}
		matches = append(matches, Match{Product: p, Similarity: Cosine(embedding, p.Embedding)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *matchingService) Rank(matches []Match) []RankedMatch {
	return Rank(matches)
}

// Rank keeps the top five matches and appends, at rank 6, the first later
// match priced under 80% of the top match with similarity of at least 0.75.
func Rank(matches []Match) []RankedMatch {
	if len(matches) == 0 {
		return []RankedMatch{}
	}

	top := matches
	if len(top) > TopMatches {
		top = matches[:TopMatches]
	}

	ranked := make([]RankedMatch, 0, len(top)+1)
	for i, m := range top {
		ranked = append(ranked, RankedMatch{
			Product:         m.Product,
			SimilarityScore: round3(m.Similarity),
			Rank:            i + 1,
		})
	}

	if len(matches) > TopMatches {
		maxPrice := top[0].Product.Price * BudgetPriceRatio
		for _, m := range matches[TopMatches:] {
			if m.Product.Price < maxPrice && m.Similarity >= BudgetMinScore {
				ranked = append(ranked, RankedMatch{
					Product:         m.Product,
					SimilarityScore: round3(m.Similarity),
					IsBudget:        true,
					Rank:            BudgetRank,
				})
				break
			}
		}
	}
	return ranked
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
