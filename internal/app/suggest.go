package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/output"
	"github.com/blackwell-systems/feedbackwatch/internal/suggest"
)

var (
	suggestLimit     int
	suggestCategory  string
	suggestEmployees []string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Generate ranked development recommendations",
	Long: `Analyze competency scores, confidence and reviewer coverage to generate
ranked recommendations: development areas, strengths, perception gaps between
senior and junior reviewers, and where more feedback is needed. Suggestions are
scored by impact and sorted from highest to lowest.`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 10, "Maximum number of suggestions to show")
	suggestCmd.Flags().StringVar(&suggestCategory, "category", "", "Filter by category (coverage, development, strength, calibration, perception)")
	suggestCmd.Flags().StringSliceVar(&suggestEmployees, "employee", nil, "Only these employee IDs")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	reqs, err := env.loadRequests(cmd.Context())
	if err != nil {
		return err
	}

	analysis := env.engine.Analyze(reqs, analyzer.NewFilter(suggestEmployees, nil))
	suggestions := suggest.NewEngine().Run(suggest.NewContext(analysis, suggestThresholds(env.cfg)))
	suggestions = suggest.Filter(suggestions, suggestCategory)

	if suggestLimit > 0 && len(suggestions) > suggestLimit {
		suggestions = suggestions[:suggestLimit]
	}

	if flagJSON {
		if suggestions == nil {
			suggestions = []suggest.Suggestion{}
		}
		return writeJSON(os.Stdout, suggestions)
	}

	renderSuggestions(suggestions)
	return nil
}

func renderSuggestions(suggestions []suggest.Suggestion) {
	if len(suggestions) == 0 {
		fmt.Println(output.Section("Suggestions"))
		fmt.Println()
		fmt.Println(" No suggestions. Scores are well supported and balanced.")
		return
	}

	fmt.Println(output.Section("Development Suggestions"))
	fmt.Println()

	for i, s := range suggestions {
		priorityLabel := priorityToLabel(s.Priority)
		priorityStyled := stylePriority(s.Priority, priorityLabel)

		fmt.Printf(" #%d %s %s\n", i+1, priorityStyled, output.StyleBold.Render(s.Title))
		fmt.Printf("    Impact: %.1f  |  Category: %s\n", s.ImpactScore, s.Category)
		fmt.Printf("    %s\n", s.Description)
		fmt.Println()
	}
}

func priorityToLabel(priority int) string {
	switch priority {
	case suggest.PriorityCritical:
		return "[CRITICAL]"
	case suggest.PriorityHigh:
		return "[HIGH]"
	case suggest.PriorityMedium:
		return "[MEDIUM]"
	case suggest.PriorityLow:
		return "[LOW]"
	default:
		return "[UNKNOWN]"
	}
}

func stylePriority(priority int, label string) string {
	switch priority {
	case suggest.PriorityCritical, suggest.PriorityHigh:
		return output.StyleError.Render(label)
	case suggest.PriorityMedium:
		return output.StyleWarning.Render(label)
	default:
		return output.StyleMuted.Render(label)
	}
}
