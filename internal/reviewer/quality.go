// Package reviewer checks the quality of individual reviewer responses and
// extracts competency insights from their free text, either with a rule-based
// review or through the Anthropic Messages API.
package reviewer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
)

// Verdict values for a QualityReport.
const (
	VerdictStrong   = "strong"
	VerdictAdequate = "adequate"
	VerdictWeak     = "weak"
)

// Issue codes reported by ReviewResponse.
const (
	IssueEmpty         = "empty"
	IssueTooShort      = "too_short"
	IssueNoExamples    = "no_examples"
	IssueNotActionable = "not_actionable"
	IssueOneSided      = "one_sided"
	IssueVague         = "vague_language"
)

// Points available per check. They sum to 100.
const (
	lengthPoints     = 25
	examplePoints    = 25
	actionablePoints = 20
	balancePoints    = 20
	clarityPoints    = 10
)

// Issue is a single problem found in a response.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// QualityReport is the rule-based assessment of one reviewer response.
type QualityReport struct {
	ResponseID   string                `json:"response_id"`
	Relationship feedback.Relationship `json:"relationship"`
	Score        int                   `json:"score"`
	Verdict      string                `json:"verdict"`
	WordCount    int                   `json:"word_count"`
	Issues       []Issue               `json:"issues,omitempty"`
}

var examplePhrases = []string{
	"for example", "for instance", "e g", "such as", "specifically",
	"last week", "last month", "last quarter", "last sprint", "during the",
	"in the meeting", "when she", "when he", "when they", "recently",
}

var actionablePhrases = []string{
	"should", "could", "try", "recommend", "suggest", "consider",
	"would benefit", "next time", "work on", "focus on", "start", "stop",
}

var vaguePhrases = []string{
	"good job", "great job", "nice", "fine", "ok", "okay", "awesome",
	"amazing", "always", "never", "bad", "whatever", "stuff", "things",
}

// ReviewResponse scores a response from 0 to 100 on length, concrete
// examples, actionable suggestions, balance between strengths and
// improvement areas, and how much vague language it uses.
func ReviewResponse(resp feedback.Response) QualityReport {
	report := QualityReport{
		ResponseID:   resp.ID,
		Relationship: feedback.NormalizeRelationship(resp.Relationship),
	}

	text := normalizeText(resp.Text())
	report.WordCount = len(strings.Fields(text))
	if report.WordCount == 0 {
		report.Verdict = VerdictWeak
		report.Issues = append(report.Issues, Issue{IssueEmpty, "Response has no written feedback."})
		return report
	}

	score := 0

	switch {
	case report.WordCount >= 80:
		score += lengthPoints
	case report.WordCount >= 40:
		score += 20
	case report.WordCount >= 15:
		score += 10
		report.Issues = append(report.Issues, Issue{IssueTooShort,
			fmt.Sprintf("Only %d words. Aim for at least 40.", report.WordCount)})
	default:
		report.Issues = append(report.Issues, Issue{IssueTooShort,
			fmt.Sprintf("Only %d words. Aim for at least 40.", report.WordCount)})
	}

	if containsAny(text, examplePhrases) || hasDigit(text) {
		score += examplePoints
	} else {
		report.Issues = append(report.Issues, Issue{IssueNoExamples,
			"No concrete examples. Describe a specific situation and what happened."})
	}

	improvement := normalizeText(resp.AreasForImprovement)
	if improvement != "" && containsAny(improvement, actionablePhrases) {
		score += actionablePoints
	} else {
		report.Issues = append(report.Issues, Issue{IssueNotActionable,
			"No actionable suggestion. Say what the person could do differently."})
	}

	hasStrengths := strings.TrimSpace(resp.Strengths) != ""
	hasImprovement := strings.TrimSpace(resp.AreasForImprovement) != ""
	if hasStrengths && hasImprovement {
		score += balancePoints
	} else {
		missing := "strengths"
		if hasStrengths {
			missing = "areas for improvement"
		}
		report.Issues = append(report.Issues, Issue{IssueOneSided,
			fmt.Sprintf("Response leaves %s blank.", missing)})
	}

	vague := countAny(text, vaguePhrases)
	score += max(clarityPoints-3*vague, 0)
	if vague >= 2 {
		report.Issues = append(report.Issues, Issue{IssueVague,
			fmt.Sprintf("%d vague phrases. Replace general praise or criticism with observed behaviour.", vague)})
	}

	report.Score = score
	report.Verdict = verdictFor(score)
	return report
}

// ReviewRequest reviews every response attached to a request.
func ReviewRequest(req feedback.Request) []QualityReport {
	reports := make([]QualityReport, 0, len(req.Responses))
	for _, resp := range req.Responses {
		reports = append(reports, ReviewResponse(resp))
	}
	return reports
}

func verdictFor(score int) string {
	switch {
	case score >= 75:
		return VerdictStrong
	case score >= 45:
		return VerdictAdequate
	default:
		return VerdictWeak
	}
}

// normalizeText lowercases s and collapses punctuation to single spaces so
// phrase matching works on word boundaries.
func normalizeText(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	return strings.Join(words, " ")
}

func containsAny(text string, phrases []string) bool {
	padded := " " + text + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func countAny(text string, phrases []string) int {
	words := strings.Fields(text)
	n := 0
	for _, p := range phrases {
		pw := strings.Fields(p)
		for i := 0; i+len(pw) <= len(words); i++ {
			if strings.Join(words[i:i+len(pw)], " ") == p {
				n++
			}
		}
	}
	return n
}

func hasDigit(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}
