package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
	"github.com/blackwell-systems/feedbackwatch/internal/output"
	"github.com/blackwell-systems/feedbackwatch/internal/reviewer"
)

var (
	reviewAI          bool
	reviewWrite       string
	reviewAllInsights bool
)

// maxParallelExtractions bounds concurrent calls to the messages API.
const maxParallelExtractions = 4

var reviewCmd = &cobra.Command{
	Use:   "review [request-id...]",
	Short: "Check the quality of written feedback",
	Long: `Score every reviewer response for specificity, examples, actionable
suggestions, balance and vague language, and flag weak feedback.

With --ai, the free text of each response is sent to the Anthropic Messages
API and turned into per-competency scores. Requests that already carry
insights are skipped unless --all is given. --write saves the requests with
the extracted insights to a new export file (JSON, or YAML by extension).

Examples:
  feedbackwatch review
  feedbackwatch review req-17 req-18
  feedbackwatch review --ai --write enriched.json`,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewAI, "ai", false, "Extract competency scores from the feedback text with the Anthropic API")
	reviewCmd.Flags().StringVar(&reviewWrite, "write", "", "Write requests with extracted insights to this file (requires --ai)")
	reviewCmd.Flags().BoolVar(&reviewAllInsights, "all", false, "With --ai, also extract for requests that already have insights")
	rootCmd.AddCommand(reviewCmd)
}

// requestReview is the quality review of one request.
type requestReview struct {
	RequestID  string                   `json:"request_id"`
	EmployeeID string                   `json:"employee_id"`
	Reports    []reviewer.QualityReport `json:"reports"`
}

// extraction is the outcome of AI extraction for one response.
type extraction struct {
	RequestID  string            `json:"request_id"`
	ResponseID string            `json:"response_id"`
	Insight    *feedback.Insight `json:"insight,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func runReview(cmd *cobra.Command, args []string) error {
	if reviewWrite != "" && !reviewAI {
		return errors.New("--write requires --ai")
	}

	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	if reviewWrite != "" {
		if err := checkWriteTarget(reviewWrite, env.dataPaths()); err != nil {
			return err
		}
	}

	reqs, err := env.loadRequests(cmd.Context())
	if err != nil {
		return err
	}
	selected, err := selectRequests(reqs, args)
	if err != nil {
		return err
	}

	reviews := make([]requestReview, 0, len(selected))
	for _, i := range selected {
		reviews = append(reviews, requestReview{
			RequestID:  reqs[i].ID,
			EmployeeID: reqs[i].EmployeeID,
			Reports:    reviewer.ReviewRequest(reqs[i]),
		})
	}

	var extractions []extraction
	if reviewAI {
		opts := reviewer.Options{
			APIKey:       env.cfg.AI.APIKey,
			Model:        env.cfg.AI.Model,
			BaseURL:      env.cfg.AI.BaseURL,
			Competencies: engineOptions(env.cfg).Competencies,
		}
		if opts.APIKey == "" {
			return fmt.Errorf("%w (set ANTHROPIC_API_KEY or ai.api_key)", reviewer.ErrMissingAPIKey)
		}
		extractions, err = extractInsights(cmd.Context(), reqs, selected, opts, env.logger)
		if err != nil {
			return err
		}
		if reviewWrite != "" {
			if err := writeRequests(reviewWrite, reqs); err != nil {
				return err
			}
		}
	}

	if flagJSON {
		out := map[string]any{"reviews": reviews}
		if reviewAI {
			out["extractions"] = extractions
		}
		return writeJSON(os.Stdout, out)
	}

	renderReviews(reviews)
	if reviewAI {
		renderExtractions(extractions)
		if reviewWrite != "" {
			fmt.Printf(" Wrote %d requests to %s\n\n", len(reqs), reviewWrite)
		}
	}
	return nil
}

// selectRequests returns the indexes of the requests named by ids, or of
// every request when ids is empty.
func selectRequests(reqs []feedback.Request, ids []string) ([]int, error) {
	if len(ids) == 0 {
		out := make([]int, len(reqs))
		for i := range reqs {
			out[i] = i
		}
		return out, nil
	}
	byID := make(map[string]int, len(reqs))
	for i, r := range reqs {
		if _, ok := byID[r.ID]; !ok {
			byID[r.ID] = i
		}
	}
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		i, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("request %q not found", id)
		}
		out = append(out, i)
	}
	return out, nil
}

// extractInsights runs AI extraction for every response of the selected
// requests and appends the resulting insights to reqs in place. A failed
// response is recorded and does not stop the others.
func extractInsights(ctx context.Context, reqs []feedback.Request, selected []int, opts reviewer.Options, logger *zap.Logger) ([]extraction, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	type job struct {
		req  int
		resp feedback.Response
	}
	var jobs []job
	for _, i := range selected {
		if reqs[i].HasInsights() && !reviewAllInsights {
			logger.Debug("skipping request with insights", zap.String("request", reqs[i].ID))
			continue
		}
		for _, resp := range reqs[i].Responses {
			if strings.TrimSpace(resp.Text()) == "" {
				continue
			}
			jobs = append(jobs, job{req: i, resp: resp})
		}
	}

	results := make([]extraction, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelExtractions)
	for n, j := range jobs {
		g.Go(func() error {
			res := extraction{RequestID: reqs[j.req].ID, ResponseID: j.resp.ID}
			insight, err := reviewer.ExtractInsight(gctx, j.resp, opts)
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			case err != nil:
				logger.Warn("extraction failed", zap.String("response", j.resp.ID), zap.Error(err))
				res.Error = err.Error()
			default:
				res.Insight = &insight
			}
			results[n] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extracting insights: %w", err)
	}

	// Attach in job order so output does not depend on completion order.
	for n, j := range jobs {
		if results[n].Insight == nil {
			continue
		}
		if reqs[j.req].Analytics == nil {
			reqs[j.req].Analytics = &feedback.Analytics{}
		}
		reqs[j.req].Analytics.Insights = append(reqs[j.req].Analytics.Insights, *results[n].Insight)
	}
	return results, nil
}

// checkWriteTarget rejects a --write path that a later load of dataPaths would
// read alongside the files it was built from. Overwriting the only data file
// in place is allowed.
func checkWriteTarget(target string, dataPaths []string) error {
	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", target, err)
	}
	for _, p := range dataPaths {
		dataAbs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", p, err)
		}
		info, err := os.Stat(dataAbs)
		if err != nil {
			continue
		}
		conflict := false
		if info.IsDir() {
			conflict = filepath.Dir(abs) == dataAbs && feedback.IsExportFile(abs)
		} else {
			conflict = abs == dataAbs && len(dataPaths) > 1
		}
		if conflict {
			return fmt.Errorf("--write %s would be loaded again with the data in %s and double-count requests; write outside the data path", target, p)
		}
	}
	return nil
}

// writeRequests writes reqs as an export envelope. A .yaml or .yml path is
// written as YAML, anything else as JSON.
func writeRequests(path string, reqs []feedback.Request) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	envelope := map[string]any{"requests": reqs}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(envelope); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	default:
		if err := writeJSON(f, envelope); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return f.Close()
}

func renderReviews(reviews []requestReview) {
	fmt.Println(output.Section("Feedback Quality"))
	fmt.Println()

	counts := map[string]int{}
	tbl := output.NewTable("Request", "Response", "Relationship", "Score", "Verdict", "Issues")
	for _, rv := range reviews {
		for _, r := range rv.Reports {
			counts[r.Verdict]++
			var codes []string
			for _, is := range r.Issues {
				codes = append(codes, is.Code)
			}
			tbl.AddRow(rv.RequestID, r.ResponseID, string(r.Relationship),
				fmt.Sprintf("%d", r.Score), styleVerdict(r.Verdict), strings.Join(codes, ", "))
		}
	}
	if counts[reviewer.VerdictStrong]+counts[reviewer.VerdictAdequate]+counts[reviewer.VerdictWeak] == 0 {
		fmt.Println(" No reviewer responses to review.")
		fmt.Println()
		return
	}
	tbl.Print()
	fmt.Println()
	fmt.Printf(" %d strong · %d adequate · %d weak\n\n",
		counts[reviewer.VerdictStrong], counts[reviewer.VerdictAdequate], counts[reviewer.VerdictWeak])
}

func styleVerdict(v string) string {
	switch v {
	case reviewer.VerdictStrong:
		return output.StyleSuccess.Render(v)
	case reviewer.VerdictAdequate:
		return output.StyleWarning.Render(v)
	default:
		return output.StyleError.Render(v)
	}
}

func renderExtractions(extractions []extraction) {
	fmt.Println(output.Section("AI Extraction"))
	fmt.Println()
	if len(extractions) == 0 {
		fmt.Println(" Nothing to extract. Use --all to re-extract requests that already have insights.")
		fmt.Println()
		return
	}

	tbl := output.NewTable("Request", "Response", "Competency", "Score", "Evidence")
	failed := 0
	for _, e := range extractions {
		if e.Insight == nil {
			failed++
			tbl.AddRow(e.RequestID, e.ResponseID, output.StyleError.Render("failed"), "", output.StyleMuted.Render(e.Error))
			continue
		}
		for _, c := range e.Insight.Competencies {
			tbl.AddRow(e.RequestID, e.ResponseID, c.Name,
				output.ScoreStyle(c.Score).Render(fmt.Sprintf("%.1f", c.Score)),
				fmt.Sprintf("%d", c.EvidenceCount))
		}
	}
	tbl.Print()
	fmt.Println()
	fmt.Printf(" %d responses analyzed, %d failed\n\n", len(extractions)-failed, failed)
}
