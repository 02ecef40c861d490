// Package feedback provides types and loaders for 360-degree feedback request data.
package feedback

// Request is a single feedback request for one reviewed person, as exported
// from the feedback backend.
type Request struct {
	ID           string     `json:"id" yaml:"id"`
	EmployeeID   string     `json:"employee_id" yaml:"employee_id"`
	EmployeeName string     `json:"employee_name,omitempty" yaml:"employee_name"`
	CycleID      string     `json:"cycle_id,omitempty" yaml:"cycle_id"`
	CreatedAt    string     `json:"created_at,omitempty" yaml:"created_at"`
	Analytics    *Analytics `json:"analytics,omitempty" yaml:"analytics"`
	Responses    []Response `json:"feedback_responses,omitempty" yaml:"feedback_responses"`
}

// Analytics holds AI-derived analysis attached to a request.
type Analytics struct {
	Insights []Insight `json:"insights,omitempty" yaml:"insights"`
}

// Insight is the AI analysis of one reviewer group's free-text feedback.
type Insight struct {
	ID           string            `json:"id,omitempty" yaml:"id"`
	ResponseID   string            `json:"response_id,omitempty" yaml:"response_id"`
	Relationship string            `json:"relationship" yaml:"relationship"`
	Competencies []CompetencyEntry `json:"competencies,omitempty" yaml:"competencies"`
}

// CompetencyEntry is one per-competency score record inside an insight.
type CompetencyEntry struct {
	Name           string   `json:"name" yaml:"name"`
	Score          float64  `json:"score" yaml:"score"`
	EvidenceCount  int      `json:"evidenceCount" yaml:"evidenceCount"`
	EvidenceQuotes []string `json:"evidenceQuotes,omitempty" yaml:"evidenceQuotes"`
	Description    string   `json:"description,omitempty" yaml:"description"`
	Confidence     string   `json:"confidence,omitempty" yaml:"confidence"`
}

// Response is a single reviewer's submitted feedback.
type Response struct {
	ID                  string `json:"id" yaml:"id"`
	Relationship        string `json:"relationship" yaml:"relationship"`
	Strengths           string `json:"strengths,omitempty" yaml:"strengths"`
	AreasForImprovement string `json:"areas_for_improvement,omitempty" yaml:"areas_for_improvement"`
	SubmittedAt         string `json:"submitted_at,omitempty" yaml:"submitted_at"`
	Status              string `json:"status,omitempty" yaml:"status"`
}

// Insights returns the request's insights, or nil when no analytics exist.
func (r Request) Insights() []Insight {
	if r.Analytics == nil {
		return nil
	}
	return r.Analytics.Insights
}

// HasInsights reports whether the request carries at least one insight.
func (r Request) HasInsights() bool {
	return len(r.Insights()) > 0
}

// Text returns the combined free text of a response.
func (r Response) Text() string {
	switch {
	case r.Strengths == "":
		return r.AreasForImprovement
	case r.AreasForImprovement == "":
		return r.Strengths
	default:
		return r.Strengths + "\n\n" + r.AreasForImprovement
	}
}

// CoreCompetencies is the default competency taxonomy used for coverage
// reporting. Insights may carry names outside this list; they are still
// aggregated.
var CoreCompetencies = []string{
	"Technical Expertise",
	"Communication",
	"Collaboration",
	"Leadership & Influence",
	"Problem Solving",
	"Execution & Accountability",
	"Adaptability",
	"Growth Mindset",
}
