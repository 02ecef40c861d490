package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
	"github.com/blackwell-systems/feedbackwatch/internal/output"
)

var coverageEmployees []string

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Show how much feedback backs the scores",
	Long: `Count feedback requests, reviewer responses and AI insights per reviewer
relationship, and list core competencies nobody has rated yet.`,
	RunE: runCoverage,
}

func init() {
	coverageCmd.Flags().StringSliceVar(&coverageEmployees, "employee", nil, "Only these employee IDs")
	rootCmd.AddCommand(coverageCmd)
}

// coverageOutput is the JSON-serializable result of the coverage command.
type coverageOutput struct {
	analyzer.Coverage
	InsightRate float64 `json:"insight_rate"`
}

func runCoverage(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	reqs, err := env.loadRequests(cmd.Context())
	if err != nil {
		return err
	}

	analysis := env.engine.Analyze(reqs, analyzer.NewFilter(coverageEmployees, nil))
	cov := analysis.Coverage
	if flagJSON {
		return writeJSON(os.Stdout, coverageOutput{Coverage: cov, InsightRate: cov.InsightRate()})
	}

	renderCoverage(cov)
	return nil
}

func renderCoverage(c analyzer.Coverage) {
	fmt.Println(output.Section("Feedback Coverage"))
	fmt.Println()
	fmt.Printf(" %s %d\n", output.StyleLabel.Render("Employees"), c.Employees)
	fmt.Printf(" %s %d\n", output.StyleLabel.Render("Requests"), c.TotalRequests)
	fmt.Printf(" %s %d\n", output.StyleLabel.Render("Responses"), c.TotalResponses)
	fmt.Printf(" %s %d of %d (%s)\n", output.StyleLabel.Render("Requests with insights"),
		c.RequestsWithInsights, c.TotalRequests, output.Percent(c.InsightRate()))
	fmt.Println()

	tbl := output.NewTable("Relationship", "Responses", "Insights")
	for _, r := range feedback.AllRelationships() {
		tbl.AddRow(r.String(),
			fmt.Sprintf("%d", c.ResponsesByRelationship[r]),
			fmt.Sprintf("%d", c.InsightsByRelationship[r]))
	}
	if c.UnrecognizedResponses > 0 {
		tbl.AddRow(output.StyleWarning.Render("unrecognized"), fmt.Sprintf("%d", c.UnrecognizedResponses), "─")
	}
	tbl.Print()

	fmt.Println()
	if len(c.MissingCompetencies) == 0 {
		fmt.Printf(" %s\n", output.StyleSuccess.Render("Every core competency has at least one score."))
		return
	}
	fmt.Printf(" %s %s\n", output.StyleWarning.Render("Not yet rated:"), strings.Join(c.MissingCompetencies, ", "))
}
