package analyzer

import (
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

// rating is a compact fixture for one competency entry.
type rating struct {
	rel      string
	name     string
	score    float64
	evidence int
}

// newRequest builds a request where each rating becomes its own insight.
func newRequest(id, employee string, ratings ...rating) feedback.Request {
	req := feedback.Request{ID: id, EmployeeID: employee, Analytics: &feedback.Analytics{}}
	for _, r := range ratings {
		req.Analytics.Insights = append(req.Analytics.Insights, feedback.Insight{
			Relationship: r.rel,
			Competencies: []feedback.CompetencyEntry{{
				Name:          r.name,
				Score:         r.score,
				EvidenceCount: r.evidence,
			}},
		})
	}
	return req
}

// scoresFor builds collected scores directly, bypassing requests.
func scoresFor(name string, ratings ...rating) []CompetencyScore {
	out := make([]CompetencyScore, 0, len(ratings))
	for _, r := range ratings {
		rel := feedback.NormalizeRelationship(r.rel)
		w := DefaultRelationshipWeights.For(rel)
		out = append(out, CompetencyScore{
			Name:           name,
			Score:          r.score,
			EvidenceCount:  r.evidence,
			Relationship:   rel,
			BaseWeight:     w,
			AdjustedWeight: w,
		})
	}
	return out
}

// nineAndOne is nine 4s and a single peer 1: mean 3.7, std-dev 0.9, z(1) = 3.
func nineAndOne() []CompetencyScore {
	var rs []rating
	for i := 0; i < 9; i++ {
		rs = append(rs, rating{rel: "senior", score: 4, evidence: 1})
	}
	rs = append(rs, rating{rel: "peer", score: 1, evidence: 1})
	return scoresFor("Communication", rs...)
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
