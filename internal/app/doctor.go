package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/config"
	"github.com/blackwell-systems/feedbackwatch/internal/feedback"
	"github.com/blackwell-systems/feedbackwatch/internal/output"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether the feedbackwatch setup is healthy",
	Long: `Run a series of health checks against your feedbackwatch configuration
and feedback data. Prints a pass/fail line for each check and a summary of
how many checks passed.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// doctorCheck holds the result of a single health check.
type doctorCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// doctorOutput is the JSON-serializable result of the doctor command.
type doctorOutput struct {
	Checks      []doctorCheck `json:"checks"`
	PassedCount int           `json:"passed"`
	TotalCount  int           `json:"total"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	checks := []doctorCheck{
		checkConfigFile(flagConfig),
		checkWeights(env.cfg),
	}
	for _, p := range env.dataPaths() {
		checks = append(checks, checkDataPath(p))
	}
	checks = append(checks,
		checkFeedbackData(cmd.Context(), env),
		checkDatabase(),
		checkWatchDaemon(),
		checkAPIKey(env.cfg.AI.APIKey),
	)

	// Count passes.
	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}

	if flagJSON {
		return writeJSON(os.Stdout, doctorOutput{
			Checks:      checks,
			PassedCount: passed,
			TotalCount:  len(checks),
		})
	}

	// Render styled output.
	fmt.Println(output.Section("Doctor"))
	fmt.Println()

	for _, c := range checks {
		renderDoctorCheck(c)
	}

	fmt.Println()
	summary := fmt.Sprintf("%d/%d checks passed", passed, len(checks))
	if passed == len(checks) {
		fmt.Printf(" %s\n\n", output.StyleSuccess.Render(summary))
	} else {
		fmt.Printf(" %s\n\n", output.StyleWarning.Render(summary))
	}

	return nil
}

// renderDoctorCheck prints a single check result line.
func renderDoctorCheck(c doctorCheck) {
	var indicator string
	if c.Passed {
		indicator = output.StyleSuccess.Render("✓")
	} else {
		indicator = output.StyleWarning.Render("✗")
	}
	label := output.StyleBold.Render(c.Name)
	detail := output.StyleMuted.Render(c.Message)
	fmt.Printf("  %s  %-30s %s\n", indicator, label, detail)
}

// checkConfigFile reports which config file is in use. Running on defaults
// is not a failure.
func checkConfigFile(cfgFile string) doctorCheck {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), config.DefaultConfigFile)
	}
	if _, err := os.Stat(path); err != nil {
		if cfgFile != "" {
			return doctorCheck{Name: "Config file", Passed: false, Message: fmt.Sprintf("not found: %s", path)}
		}
		return doctorCheck{Name: "Config file", Passed: true, Message: "none found, using defaults"}
	}
	return doctorCheck{Name: "Config file", Passed: true, Message: path}
}

// checkWeights verifies the relationship weights are usable.
func checkWeights(cfg *config.Config) doctorCheck {
	w := cfg.Weights
	if w.Senior < 0 || w.Peer < 0 || w.Junior < 0 {
		return doctorCheck{Name: "Relationship weights", Passed: false, Message: "weights must not be negative"}
	}
	sum := w.Senior + w.Peer + w.Junior
	if sum == 0 {
		return doctorCheck{Name: "Relationship weights", Passed: false, Message: "all weights are zero"}
	}
	return doctorCheck{
		Name:    "Relationship weights",
		Passed:  true,
		Message: fmt.Sprintf("senior %.2f · peer %.2f · junior %.2f", w.Senior, w.Peer, w.Junior),
	}
}

// checkDataPath verifies that a data path exists.
func checkDataPath(path string) doctorCheck {
	name := fmt.Sprintf("Data path: %s", filepath.Base(path))
	info, err := os.Stat(path)
	if err != nil {
		return doctorCheck{Name: name, Passed: false, Message: fmt.Sprintf("not found: %s", path)}
	}
	kind := "file"
	if info.IsDir() {
		kind = "directory"
	}
	return doctorCheck{Name: name, Passed: true, Message: fmt.Sprintf("%s (%s)", path, kind)}
}

// checkFeedbackData loads the data and reports how much of it is usable.
func checkFeedbackData(ctx context.Context, env *runEnv) doctorCheck {
	reqs, err := feedback.NewLoader(env.logger).LoadPaths(ctx, env.dataPaths()...)
	if errors.Is(err, feedback.ErrNoRequests) {
		return doctorCheck{Name: "Feedback data", Passed: false, Message: "no feedback requests found"}
	}
	if err != nil {
		return doctorCheck{Name: "Feedback data", Passed: false, Message: fmt.Sprintf("load error: %v", err)}
	}

	a := env.engine.Analyze(reqs, analyzer.Filter{})
	msg := fmt.Sprintf("%d requests, %d with insights, %d competencies",
		a.Coverage.TotalRequests, a.Coverage.RequestsWithInsights, a.Summary.CompetencyCount)
	if a.Coverage.UnrecognizedResponses > 0 {
		msg += fmt.Sprintf(", %d unrecognized relationships", a.Coverage.UnrecognizedResponses)
	}
	return doctorCheck{
		Name:    "Feedback data",
		Passed:  a.Coverage.RequestsWithInsights > 0,
		Message: msg,
	}
}

// checkDatabase verifies that the SQLite database file exists.
func checkDatabase() doctorCheck {
	dbPath := config.DBPath()
	if _, err := os.Stat(dbPath); err != nil {
		return doctorCheck{
			Name:    "SQLite database",
			Passed:  false,
			Message: fmt.Sprintf("not found at %s (run 'feedbackwatch track' to create)", dbPath),
		}
	}
	return doctorCheck{Name: "SQLite database", Passed: true, Message: dbPath}
}

// checkWatchDaemon checks whether the watch daemon PID file exists and the process is running.
func checkWatchDaemon() doctorCheck {
	pid, err := readPID()
	if err != nil {
		if os.IsNotExist(err) {
			return doctorCheck{Name: "Watch daemon", Passed: false, Message: "not running (no PID file)"}
		}
		return doctorCheck{Name: "Watch daemon", Passed: false, Message: fmt.Sprintf("unreadable PID file: %v", err)}
	}
	if !processExists(pid) {
		return doctorCheck{
			Name:    "Watch daemon",
			Passed:  false,
			Message: fmt.Sprintf("PID %d is not running (stale PID file)", pid),
		}
	}
	return doctorCheck{Name: "Watch daemon", Passed: true, Message: fmt.Sprintf("running (PID %d)", pid)}
}

// checkAPIKey verifies that an Anthropic API key is configured.
func checkAPIKey(key string) doctorCheck {
	if key == "" {
		return doctorCheck{
			Name:    "API key",
			Passed:  false,
			Message: "no API key (set ANTHROPIC_API_KEY or ai.api_key; needed for 'review --ai')",
		}
	}
	// Show only the first few characters.
	masked := key[:min(8, len(key))] + "..."
	return doctorCheck{Name: "API key", Passed: true, Message: fmt.Sprintf("configured (%s)", masked)}
}
