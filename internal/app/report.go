package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
	"github.com/blackwell-systems/feedbackwatch/internal/output"
	"github.com/blackwell-systems/feedbackwatch/internal/prefs"
)

var (
	reportEmployees     []string
	reportRelationships []string
	reportByEmployee    bool
	reportSaveFilter    string
	reportFilter        string
	reportCollapse      []string
	reportExpand        []string
)

// reportView is the prefs view name for collapsed report sections.
const reportView = "report"

// Report sections that can be collapsed.
const (
	sectionCompetencies  = "competencies"
	sectionRelationships = "relationships"
	sectionOutliers      = "outliers"
)

var reportSections = []string{sectionCompetencies, sectionRelationships, sectionOutliers}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate competency scores with confidence levels",
	Long: `Aggregate every competency score in the feedback data into one weighted,
outlier-adjusted score per competency, with a confidence level.

Examples:
  feedbackwatch report
  feedbackwatch report --employee e42 --relationship senior,peer
  feedbackwatch report --by-employee --json
  feedbackwatch report --employee e42 --save-filter alice
  feedbackwatch report --filter alice
  feedbackwatch report --collapse outliers     # hide a section in future runs`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringSliceVar(&reportEmployees, "employee", nil, "Only these employee IDs")
	reportCmd.Flags().StringSliceVar(&reportRelationships, "relationship", nil, "Only these reviewer relationships (senior, peer, junior)")
	reportCmd.Flags().BoolVar(&reportByEmployee, "by-employee", false, "Report each employee separately")
	reportCmd.Flags().StringVar(&reportSaveFilter, "save-filter", "", "Save the employee and relationship filter under a name")
	reportCmd.Flags().StringVar(&reportFilter, "filter", "", "Apply a saved filter")
	reportCmd.Flags().StringSliceVar(&reportCollapse, "collapse", nil, "Collapse report sections (competencies, relationships, outliers)")
	reportCmd.Flags().StringSliceVar(&reportExpand, "expand", nil, "Expand previously collapsed report sections")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	write := reportSaveFilter != "" || len(reportCollapse) > 0 || len(reportExpand) > 0
	ps, closePrefs, err := openPrefs(write)
	if err != nil {
		return err
	}
	defer closePrefs()

	filter, err := resolveFilter(ps, reportFilter, reportEmployees, reportRelationships)
	if err != nil {
		return err
	}
	if reportSaveFilter != "" {
		if err := prefs.SaveFilter(ps, reportSaveFilter, savedFilterFrom(filter)); err != nil {
			return err
		}
	}
	if err := updateCollapsed(ps, reportCollapse, reportExpand); err != nil {
		return err
	}

	reqs, err := env.loadRequests(cmd.Context())
	if err != nil {
		return err
	}

	if reportByEmployee {
		results := env.engine.AnalyzeByEmployee(reqs, filter)
		if flagJSON {
			return writeJSON(os.Stdout, map[string]any{"employees": results})
		}
		for _, r := range results {
			title := "Employee " + r.EmployeeID
			if r.EmployeeName != "" {
				title = fmt.Sprintf("%s (%s)", r.EmployeeName, r.EmployeeID)
			}
			renderReport(title, r.Analysis, ps)
		}
		return nil
	}

	analysis := env.engine.Analyze(reqs, filter)
	if flagJSON {
		return writeJSON(os.Stdout, analysis)
	}
	renderReport("Competency Report", analysis, ps)
	return nil
}

// resolveFilter builds the analysis filter from a saved filter, overridden by
// any employees or relationships given explicitly.
func resolveFilter(ps prefs.Store, saved string, employees, relationships []string) (analyzer.Filter, error) {
	if saved != "" {
		f, err := prefs.LoadFilter(ps, saved)
		if err != nil {
			if errors.Is(err, prefs.ErrNotFound) {
				return analyzer.Filter{}, fmt.Errorf("no saved filter named %q", saved)
			}
			return analyzer.Filter{}, err
		}
		if len(employees) == 0 {
			employees = f.EmployeeIDs
		}
		if len(relationships) == 0 {
			relationships = f.Relationships
		}
	}

	return analyzer.ParseFilter(employees, relationships)
}

func savedFilterFrom(f analyzer.Filter) prefs.SavedFilter {
	s := prefs.SavedFilter{EmployeeIDs: f.EmployeeIDs}
	for _, r := range f.Relationships {
		s.Relationships = append(s.Relationships, r.String())
	}
	return s
}

// updateCollapsed persists section collapse state for the report view.
func updateCollapsed(ps prefs.Store, collapse, expand []string) error {
	for _, names := range []struct {
		sections  []string
		collapsed bool
	}{{collapse, true}, {expand, false}} {
		for _, section := range names.sections {
			if !isReportSection(section) {
				return fmt.Errorf("unknown report section %q (use %s)", section, strings.Join(reportSections, ", "))
			}
			if err := prefs.SetCollapsed(ps, reportView, section, names.collapsed); err != nil {
				return fmt.Errorf("saving section state: %w", err)
			}
		}
	}
	return nil
}

func isReportSection(name string) bool {
	for _, s := range reportSections {
		if s == name {
			return true
		}
	}
	return false
}

// describeFilter renders a filter for the report header.
func describeFilter(f analyzer.Filter) string {
	employees := "all employees"
	if len(f.EmployeeIDs) > 0 {
		employees = "employees " + strings.Join(f.EmployeeIDs, ", ")
	}
	relationships := "all relationships"
	if len(f.Relationships) > 0 {
		var names []string
		for _, r := range f.Relationships {
			names = append(names, r.String())
		}
		relationships = strings.Join(names, ", ") + " reviewers"
	}
	return employees + " · " + relationships
}

func renderReport(title string, a analyzer.Analysis, ps prefs.Store) {
	fmt.Println(output.Section(title))
	fmt.Println()
	fmt.Printf(" %s\n", output.StyleMuted.Render(describeFilter(a.Filter)))
	fmt.Printf(" %d requests · %d responses · %d employees\n\n",
		a.Coverage.TotalRequests, a.Coverage.TotalResponses, a.Coverage.Employees)

	if len(a.Aggregates) == 0 {
		fmt.Println(" No competency scores in scope.")
		return
	}

	s := a.Summary
	fmt.Printf(" %s %s\n", output.StyleLabel.Render("Overall score"), output.ScoreBar(s.OverallScore, 20))
	fmt.Printf(" %s %s\n", output.StyleLabel.Render("Strongest"), s.Strongest)
	fmt.Printf(" %s %s\n", output.StyleLabel.Render("Weakest"), s.Weakest)
	fmt.Printf(" %s %d high · %d medium · %d low\n", output.StyleLabel.Render("Confidence"),
		s.ConfidenceCounts[analyzer.ConfidenceHigh],
		s.ConfidenceCounts[analyzer.ConfidenceMedium],
		s.ConfidenceCounts[analyzer.ConfidenceLow])
	if a.SkippedScores > 0 {
		fmt.Printf(" %s %d entries with an unknown relationship or unusable score\n",
			output.StyleLabel.Render("Skipped"), a.SkippedScores)
	}

	ordered := a.Ordered()

	if sectionHeader("Competencies", sectionCompetencies, ps) {
		tbl := output.NewTable("Competency", "Score", "Confidence", "Evidence", "Reviews", "Outliers")
		for _, agg := range ordered {
			tbl.AddRow(
				agg.Name,
				output.ScoreBar(agg.Score, 16),
				output.ConfidenceBadge(string(agg.Confidence), agg.ConfidenceValue),
				fmt.Sprintf("%d", agg.EvidenceCount),
				fmt.Sprintf("%d", agg.ReviewCount),
				fmt.Sprintf("%d", agg.OutlierCount),
			)
		}
		tbl.Print()
	}

	if sectionHeader("By Relationship", sectionRelationships, ps) {
		headers := []string{"Competency"}
		for _, r := range feedback.AllRelationships() {
			headers = append(headers, strings.ToUpper(r.String()[:1])+r.String()[1:])
		}
		tbl := output.NewTable(headers...)
		for _, agg := range ordered {
			row := []string{agg.Name}
			for _, r := range feedback.AllRelationships() {
				if avg, ok := agg.RelationshipAverage(r); ok {
					row = append(row, output.ScoreStyle(avg).Render(fmt.Sprintf("%.2f (%d)", avg, agg.RelationshipBreakdown[r])))
				} else {
					row = append(row, output.StyleMuted.Render("─"))
				}
			}
			tbl.AddRow(row...)
		}
		tbl.Print()
	}

	if sectionHeader("Outlier Adjustments", sectionOutliers, ps) {
		renderOutliers(ordered)
	}
	fmt.Println()
}

// sectionHeader prints a sub-section header and reports whether its body
// should be rendered.
func sectionHeader(title, section string, ps prefs.Store) bool {
	fmt.Println()
	if prefs.IsCollapsed(ps, reportView, section) {
		fmt.Printf(" %s %s\n", output.StyleHeader.Render(title),
			output.StyleMuted.Render(fmt.Sprintf("(collapsed, --expand %s to show)", section)))
		return false
	}
	fmt.Printf(" %s\n", output.StyleHeader.Render(title))
	return true
}

func renderOutliers(ordered []analyzer.CompetencyAggregate) {
	tbl := output.NewTable("Competency", "Request", "Relationship", "Score", "Z", "Weight")
	n := 0
	for _, agg := range ordered {
		for _, sc := range agg.Scores {
			if !sc.HasOutliers || sc.AdjustmentDetails == nil {
				continue
			}
			d := sc.AdjustmentDetails
			tbl.AddRow(
				agg.Name,
				sc.RequestID,
				sc.Relationship.String(),
				fmt.Sprintf("%.1f", sc.Score),
				fmt.Sprintf("%+.2f", d.ZScore),
				fmt.Sprintf("%.3f → %.3f", d.OriginalWeight, d.AdjustedWeight),
			)
			n++
		}
	}
	if n == 0 {
		fmt.Println(" No outliers detected.")
		return
	}
	tbl.Print()
}
