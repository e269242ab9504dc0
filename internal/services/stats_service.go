package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stwalsh4118/streettrees/internal/logger"
	"github.com/stwalsh4118/streettrees/internal/models"
	"github.com/stwalsh4118/streettrees/internal/observability"
)

// CityArea labels the citywide row of a popularity table.
const CityArea = "NYC"

// Service-level errors
var (
	ErrEmptyQuery     = errors.New("species query must not be blank")
	ErrUnknownBorough = errors.New("unknown borough")
)

// TreeIndex is the read side of a loaded tree catalog.
type TreeIndex interface {
	Size() int
	CountBySpecies(species string) int
	CountByBorough(borough string) int
	CountBySpeciesAndBorough(species, borough string) int
	MatchingSpeciesNames(query string) []string
	SpeciesNames() []string
	BoroughTotals() map[string]int
	Each(fn func(*models.TreeRecord) bool)
}

// PopularityRow is one line of a popularity table: how many of an area's
// trees belong to the queried species.
type PopularityRow struct {
	Area    string  `json:"area"`
	Count   int     `json:"count"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// SpeciesStats answers a species query.
// Popularity holds the citywide row followed by one row per borough in
// canonical order. It is empty when nothing matched.
type SpeciesStats struct {
	Query      string          `json:"query"`
	Matches    []string        `json:"matches"`
	Popularity []PopularityRow `json:"popularity"`
}

// HasMatches reports whether any species matched the query.
func (s *SpeciesStats) HasMatches() bool {
	return len(s.Matches) > 0
}

// clone returns a deep copy, so cached answers never share slices with callers.
func (s *SpeciesStats) clone() *SpeciesStats {
	c := *s
	c.Matches = append([]string{}, s.Matches...)
	c.Popularity = append([]PopularityRow{}, s.Popularity...)
	return &c
}

// BoroughTotal is the number of trees recorded in one borough.
type BoroughTotal struct {
	Borough string `json:"borough"`
	Count   int    `json:"count"`
}

// TreeListing is a page of the trees whose species matched a query.
// Total counts every matching tree, not only the ones in Trees.
type TreeListing struct {
	Query string
	Total int
	Trees []*models.TreeRecord
}

// StatsService answers species and borough questions over a loaded catalog.
type StatsService interface {
	// SpeciesStats finds every species whose name contains query, ignoring
	// case, and sums their counts citywide and per borough.
	// Returns ErrEmptyQuery for a blank query. No matches is not an error.
	SpeciesStats(ctx context.Context, query string) (*SpeciesStats, error)

	// CountInBorough returns the popularity of one exact species in one borough.
	// Returns ErrEmptyQuery for a blank species and ErrUnknownBorough for a
	// name that is not a NYC borough.
	CountInBorough(ctx context.Context, species, borough string) (*PopularityRow, error)

	// SpeciesNames lists every distinct species in the catalog.
	SpeciesNames(ctx context.Context) []string

	// BoroughTotals lists the tree count of every borough in canonical order.
	BoroughTotals(ctx context.Context) []BoroughTotal

	// Trees lists the trees whose species contains query, ignoring case,
	// ordered by species in reverse alphabetical order and then by descending
	// id. At most limit trees are returned; limit <= 0 returns all of them.
	// Returns ErrEmptyQuery for a blank query.
	Trees(ctx context.Context, query string, limit int) (*TreeListing, error)

	// CatalogSize returns the number of trees in the catalog.
	CatalogSize(ctx context.Context) int
}

// cancelCheckEvery is how many records a catalog walk visits between
// context checks.
const cancelCheckEvery = 4096

type statsService struct {
	index   TreeIndex
	log     *logger.Logger
	metrics *observability.Metrics
	cache   *cache.Cache
}

// NewStatsService creates a StatsService over index. Species lookups are
// cached for cacheTTL; zero disables the cache. metrics may be nil.
func NewStatsService(index TreeIndex, log *logger.Logger, metrics *observability.Metrics, cacheTTL time.Duration) StatsService {
	s := &statsService{
		index:   index,
		log:     log.WithComponent("stats"),
		metrics: metrics,
	}
	if cacheTTL > 0 {
		s.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return s
}

// percentage returns part as a percentage of whole, or 0 when whole is 0.
func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func (s *statsService) SpeciesStats(ctx context.Context, query string) (*SpeciesStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	key := models.Fold(query)
	if s.cache != nil {
		if cached, found := s.cache.Get(key); found {
			s.observeCache("hit")
			stats := cached.(*SpeciesStats).clone()
			stats.Query = query
			s.observeQuery(stats)
			return stats, nil
		}
		s.observeCache("miss")
	}

	stats := s.computeStats(query)

	if s.cache != nil {
		s.cache.Set(key, stats.clone(), cache.DefaultExpiration)
	}
	s.observeQuery(stats)

	s.log.Debug("Species query answered", map[string]interface{}{
		"query":   query,
		"matches": len(stats.Matches),
	})
	return stats, nil
}

func (s *statsService) computeStats(query string) *SpeciesStats {
	stats := &SpeciesStats{
		Query:      query,
		Matches:    s.index.MatchingSpeciesNames(query),
		Popularity: []PopularityRow{},
	}
	if !stats.HasMatches() {
		return stats
	}

	boroughs := models.CanonicalBoroughs()
	counts := make([]int, len(boroughs))
	cityCount := 0
	for _, species := range stats.Matches {
		cityCount += s.index.CountBySpecies(species)
		for i, borough := range boroughs {
			counts[i] += s.index.CountBySpeciesAndBorough(species, borough)
		}
	}

	size := s.index.Size()
	stats.Popularity = append(stats.Popularity, PopularityRow{
		Area:    CityArea,
		Count:   cityCount,
		Total:   size,
		Percent: percentage(cityCount, size),
	})
	for i, borough := range boroughs {
		total := s.index.CountByBorough(borough)
		stats.Popularity = append(stats.Popularity, PopularityRow{
			Area:    borough,
			Count:   counts[i],
			Total:   total,
			Percent: percentage(counts[i], total),
		})
	}
	return stats
}

func (s *statsService) CountInBorough(ctx context.Context, species, borough string) (*PopularityRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	species = strings.TrimSpace(species)
	if species == "" {
		return nil, ErrEmptyQuery
	}
	canonical, ok := models.ParseBorough(strings.TrimSpace(borough))
	if !ok {
		s.log.Warn("Unknown borough requested", map[string]interface{}{
			"borough": borough,
		})
		return nil, fmt.Errorf("%w: %q", ErrUnknownBorough, borough)
	}

	count := s.index.CountBySpeciesAndBorough(species, canonical)
	total := s.index.CountByBorough(canonical)
	return &PopularityRow{
		Area:    canonical,
		Count:   count,
		Total:   total,
		Percent: percentage(count, total),
	}, nil
}

func (s *statsService) SpeciesNames(ctx context.Context) []string {
	return s.index.SpeciesNames()
}

func (s *statsService) BoroughTotals(ctx context.Context) []BoroughTotal {
	totals := s.index.BoroughTotals()
	boroughs := models.CanonicalBoroughs()

	result := make([]BoroughTotal, 0, len(boroughs))
	for _, borough := range boroughs {
		result = append(result, BoroughTotal{Borough: borough, Count: totals[borough]})
	}
	return result
}

func (s *statsService) Trees(ctx context.Context, query string, limit int) (*TreeListing, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	want := models.Fold(query)
	var trees []*models.TreeRecord
	var err error
	visited := 0
	s.index.Each(func(tree *models.TreeRecord) bool {
		if visited%cancelCheckEvery == 0 {
			if err = ctx.Err(); err != nil {
				return false
			}
		}
		visited++
		if strings.Contains(tree.SpeciesKey(), want) {
			trees = append(trees, tree)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	models.SortTrees(trees)
	listing := &TreeListing{Query: query, Total: len(trees), Trees: trees}
	if limit > 0 && len(listing.Trees) > limit {
		listing.Trees = listing.Trees[:limit]
	}
	if listing.Trees == nil {
		listing.Trees = []*models.TreeRecord{}
	}
	return listing, nil
}

func (s *statsService) CatalogSize(ctx context.Context) int {
	return s.index.Size()
}

func (s *statsService) observeCache(result string) {
	if s.metrics != nil {
		s.metrics.QueryCache.WithLabelValues(result).Inc()
	}
}

func (s *statsService) observeQuery(stats *SpeciesStats) {
	if s.metrics == nil {
		return
	}
	outcome := "match"
	if !stats.HasMatches() {
		outcome = "empty"
	}
	s.metrics.SpeciesQueries.WithLabelValues(outcome).Inc()
}
