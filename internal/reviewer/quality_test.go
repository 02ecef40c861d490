package reviewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

func issueCodes(r QualityReport) []string {
	codes := make([]string, len(r.Issues))
	for i, is := range r.Issues {
		codes[i] = is.Code
	}
	return codes
}

func TestReviewResponse_Strong(t *testing.T) {
	resp := feedback.Response{
		ID:           "resp-1",
		Relationship: "senior",
		Strengths: "During the March release Priya ran the incident review and kept the discussion " +
			"focused on causes rather than blame. For example, she wrote up the timeline within " +
			"two hours and shared it with every affected team.",
		AreasForImprovement: "She should delegate more of the follow-up work so that the on-call " +
			"engineers learn the process themselves.",
	}

	r := ReviewResponse(resp)
	assert.Equal(t, "resp-1", r.ResponseID)
	assert.Equal(t, feedback.RelationshipSenior, r.Relationship)
	assert.Equal(t, 55, r.WordCount)
	assert.Equal(t, 95, r.Score)
	assert.Equal(t, VerdictStrong, r.Verdict)
	assert.Empty(t, r.Issues)
}

func TestReviewResponse_Adequate(t *testing.T) {
	resp := feedback.Response{
		Relationship:        "equal_colleague",
		Strengths:           "Communicates clearly in meetings and is easy to work with on shared projects across the team.",
		AreasForImprovement: "Could take on more ownership of planning and estimation for the larger features we build.",
	}

	r := ReviewResponse(resp)
	assert.Equal(t, feedback.RelationshipPeer, r.Relationship)
	assert.Equal(t, 31, r.WordCount)
	assert.Equal(t, 60, r.Score)
	assert.Equal(t, VerdictAdequate, r.Verdict)
	assert.Equal(t, []string{IssueTooShort, IssueNoExamples}, issueCodes(r))
}

func TestReviewResponse_WeakAndVague(t *testing.T) {
	r := ReviewResponse(feedback.Response{Strengths: "Good job, always nice."})

	assert.Equal(t, 4, r.WordCount)
	assert.Equal(t, 1, r.Score)
	assert.Equal(t, VerdictWeak, r.Verdict)
	assert.Equal(t,
		[]string{IssueTooShort, IssueNoExamples, IssueNotActionable, IssueOneSided, IssueVague},
		issueCodes(r))
	assert.Contains(t, r.Issues[3].Message, "areas for improvement")
}

func TestReviewResponse_Empty(t *testing.T) {
	r := ReviewResponse(feedback.Response{ID: "x", Strengths: "   "})
	assert.Equal(t, 0, r.Score)
	assert.Equal(t, VerdictWeak, r.Verdict)
	require.Len(t, r.Issues, 1)
	assert.Equal(t, IssueEmpty, r.Issues[0].Code)
}

func TestReviewResponse_OnlyImprovement(t *testing.T) {
	r := ReviewResponse(feedback.Response{AreasForImprovement: "Try to share status updates earlier."})
	assert.Contains(t, issueCodes(r), IssueOneSided)
	assert.NotContains(t, issueCodes(r), IssueNotActionable)
	assert.Contains(t, r.Issues[len(r.Issues)-1].Message, "strengths")
}

func TestReviewRequest(t *testing.T) {
	req := feedback.Request{Responses: []feedback.Response{
		{ID: "a", Strengths: "Fine."},
		{ID: "b", Strengths: "Led the 3 planning sessions.", AreasForImprovement: "Consider writing more docs."},
	}}
	reports := ReviewRequest(req)
	require.Len(t, reports, 2)
	assert.Equal(t, "a", reports[0].ResponseID)
	assert.Greater(t, reports[1].Score, reports[0].Score)
}

func TestCountAny_AdjacentRepeats(t *testing.T) {
	assert.Equal(t, 3, countAny("ok ok ok", []string{"ok"}))
	assert.Equal(t, 1, countAny("a good job overall", []string{"good job"}))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "e g the q3 launch", normalizeText("E.g., the Q3 launch!"))
}
