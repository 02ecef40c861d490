package analyzer

import (
	"math"
	"strings"

	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

// Score bounds for a single competency rating.
const (
	MinScore = 1.0
	MaxScore = 5.0
)

// RelationshipWeights holds the base aggregation weight per relationship.
type RelationshipWeights struct {
	Senior float64 `json:"senior"`
	Peer   float64 `json:"peer"`
	Junior float64 `json:"junior"`
}

// DefaultRelationshipWeights are the reference base weights.
var DefaultRelationshipWeights = RelationshipWeights{
	Senior: 0.40,
	Peer:   0.35,
	Junior: 0.25,
}

// For returns the base weight for r, or 0 for an unrecognized relationship.
func (w RelationshipWeights) For(r feedback.Relationship) float64 {
	switch r {
	case feedback.RelationshipSenior:
		return w.Senior
	case feedback.RelationshipPeer:
		return w.Peer
	case feedback.RelationshipJunior:
		return w.Junior
	}
	return 0
}

// Collection is the output of CollectScores.
type Collection struct {
	// All holds every score from requests admitted by the employee filter.
	All map[string][]CompetencyScore

	// Filtered holds scores surviving the relationship filter. Competencies
	// with no surviving score are absent. When UsesAll is true it is All.
	Filtered map[string][]CompetencyScore

	// UsesAll is true when no relationship filter applies, including the case
	// where every relationship is selected.
	UsesAll bool

	// Skipped counts entries excluded for an unrecognized relationship, an
	// empty competency name, or a non-finite score.
	Skipped int
}

// Scores returns the score set callers should aggregate: the unfiltered set
// when UsesAll, otherwise the filtered set.
func (c Collection) Scores() map[string][]CompetencyScore {
	if c.UsesAll {
		return c.All
	}
	return c.Filtered
}

// CollectScores flattens requests into per-competency score lists.
func CollectScores(requests []feedback.Request, filter Filter, weights RelationshipWeights) Collection {
	c := Collection{
		All:     make(map[string][]CompetencyScore),
		UsesAll: filter.coversAllRelationships(),
	}

	for _, req := range requests {
		if !filter.includesEmployee(req.EmployeeID) {
			continue
		}
		for _, insight := range req.Insights() {
			rel := feedback.NormalizeRelationship(insight.Relationship)
			for _, entry := range insight.Competencies {
				score, ok := newCompetencyScore(req, rel, entry, weights)
				if !ok {
					c.Skipped++
					continue
				}
				c.All[score.Name] = append(c.All[score.Name], score)
			}
		}
	}

	if c.UsesAll {
		c.Filtered = c.All
		return c
	}

	allowed := filter.relationshipSet()
	c.Filtered = make(map[string][]CompetencyScore)
	for name, scores := range c.All {
		var kept []CompetencyScore
		for _, s := range scores {
			if allowed[s.Relationship] {
				kept = append(kept, s)
			}
		}
		if len(kept) > 0 {
			c.Filtered[name] = kept
		}
	}
	return c
}

func newCompetencyScore(req feedback.Request, rel feedback.Relationship, entry feedback.CompetencyEntry, weights RelationshipWeights) (CompetencyScore, bool) {
	name := strings.TrimSpace(entry.Name)
	if name == "" || !rel.Valid() {
		return CompetencyScore{}, false
	}
	if math.IsNaN(entry.Score) || math.IsInf(entry.Score, 0) {
		return CompetencyScore{}, false
	}

	evidence := entry.EvidenceCount
	if evidence < 0 {
		evidence = 0
	}

	var quotes []string
	if len(entry.EvidenceQuotes) > 0 {
		quotes = append([]string(nil), entry.EvidenceQuotes...)
	}

	base := weights.For(rel)
	return CompetencyScore{
		Name:            name,
		RequestID:       req.ID,
		EmployeeID:      req.EmployeeID,
		Score:           clip(entry.Score, MinScore, MaxScore),
		ConfidenceLabel: entry.Confidence,
		EvidenceCount:   evidence,
		Relationship:    rel,
		EvidenceQuotes:  quotes,
		Description:     entry.Description,
		BaseWeight:      base,
		AdjustedWeight:  base,
	}, true
}
