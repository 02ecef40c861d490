package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/config"
	"github.com/blackwell-systems/feedbackwatch/internal/metrics"
	"github.com/blackwell-systems/feedbackwatch/internal/watcher"
)

var (
	watchDaemon        bool
	watchInterval      string
	watchStop          bool
	watchQuiet         bool
	watchMetricsAddr   string
	watchEmployees     []string
	watchRelationships []string
)

// minWatchInterval keeps polling from hammering the data directory.
const minWatchInterval = 5 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the analysis when feedback data changes",
	Long: `Poll the feedback data directory and re-run the aggregation whenever it
changes. New requests, competency score shifts, confidence changes and
competencies appearing or disappearing raise desktop notifications and/or
terminal alerts.

With --metrics-addr, the latest scores are exposed as Prometheus metrics.

Examples:
  feedbackwatch watch                          # run in foreground (ctrl-c to stop)
  feedbackwatch watch --daemon                 # run in background, write PID file
  feedbackwatch watch --interval 1m            # check every minute (default from config)
  feedbackwatch watch --metrics-addr :9464     # serve /metrics
  feedbackwatch watch --stop                   # stop the background daemon`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "Run in background mode (write PID file, log to file)")
	watchCmd.Flags().StringVar(&watchInterval, "interval", "", "Check interval as duration string (default: watch.interval from config)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "Stop a running background daemon")
	watchCmd.Flags().BoolVar(&watchQuiet, "quiet", false, "Suppress terminal output, only send notifications")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	watchCmd.Flags().StringSliceVar(&watchEmployees, "employee", nil, "Only these employee IDs")
	watchCmd.Flags().StringSliceVar(&watchRelationships, "relationship", nil, "Only these reviewer relationships")
	rootCmd.AddCommand(watchCmd)
}

// pidFilePath returns the path to the daemon PID file.
func pidFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.pid")
}

// logFilePath returns the path to the daemon log file.
func logFilePath() string {
	return filepath.Join(config.ConfigDir(), "watch.log")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchStop {
		return stopDaemon()
	}

	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	interval, err := parseWatchInterval(watchInterval, env.cfg.Watch.Interval)
	if err != nil {
		return err
	}
	filter, err := resolveFilter(nil, "", watchEmployees, watchRelationships)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer cancel()

	var rec *metrics.Recorder
	if watchMetricsAddr != "" {
		rec = metrics.New()
		srv, err := serveMetrics(watchMetricsAddr, rec, env.logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	newWatcher := func(alertFn func(watcher.Alert)) *watcher.Watcher {
		w := watcher.New(env.dataPaths()[0], interval, env.engine, env.logger, alertFn)
		w.Filter = filter
		w.ScoreShift = env.cfg.Watch.ScoreShift
		w.Metrics = rec
		return w
	}

	if watchDaemon {
		return runDaemon(ctx, interval, newWatcher)
	}
	return runForeground(ctx, interval, newWatcher)
}

// parseWatchInterval resolves the --interval flag, falling back to the
// configured interval.
func parseWatchInterval(flagValue, configValue string) (time.Duration, error) {
	raw := flagValue
	if raw == "" {
		raw = configValue
	}
	if raw == "" {
		raw = config.DefaultWatch.Interval
	}
	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", raw, err)
	}
	if interval < minWatchInterval {
		return 0, fmt.Errorf("interval must be at least %s, got %s", minWatchInterval, interval)
	}
	return interval, nil
}

// serveMetrics starts an HTTP server exposing rec on /metrics. The listener
// is bound before returning so address errors surface immediately.
func serveMetrics(addr string, rec *metrics.Recorder, logger *zap.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", srv.Addr))
	return srv, nil
}

// runForeground runs the watcher in the foreground with live terminal output.
func runForeground(ctx context.Context, interval time.Duration, newWatcher func(func(watcher.Alert)) *watcher.Watcher) error {
	if !watchQuiet {
		fmt.Printf("feedbackwatch watching... (checking every %s)\n", interval)
	}

	w := newWatcher(func(a watcher.Alert) {
		// Send desktop notification.
		_ = watcher.Notify(a)

		// Print to terminal unless quiet mode.
		if !watchQuiet {
			printAlert(a)
		}
	})

	// Take initial snapshot and display baseline.
	initial, err := w.Baseline(ctx)
	if err != nil {
		return fmt.Errorf("initial snapshot failed: %w", err)
	}
	if !watchQuiet {
		fmt.Printf("[%s] %s %s\n", time.Now().Format("15:04:05"), checkMark(), baselineSummary(initial.Analysis(), initial.RequestCount))
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if !watchQuiet {
			fmt.Println("\nStopped.")
		}
		return nil
	}
	return err
}

// runDaemon sets up PID and log files, then runs the watcher. The actual
// backgrounding should be done by the caller (nohup, &, etc.) since Go
// cannot reliably fork.
func runDaemon(ctx context.Context, interval time.Duration, newWatcher func(func(watcher.Alert)) *watcher.Watcher) error {
	// Ensure config directory exists.
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	// Check for existing daemon.
	if pid, err := readPID(); err == nil {
		if processExists(pid) {
			return fmt.Errorf("daemon already running (PID %d). Use --stop to stop it", pid)
		}
		// Stale PID file, remove it.
		_ = os.Remove(pidFilePath())
	}

	// Write PID file.
	pid := os.Getpid()
	if err := os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer func() { _ = os.Remove(pidFilePath()) }()

	// Open log file for output.
	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	writeLog(logFile, "feedbackwatch daemon started (PID %d, interval %s)", pid, interval)

	w := newWatcher(func(a watcher.Alert) {
		// Send desktop notification.
		_ = watcher.Notify(a)

		// Log to file.
		writeLog(logFile, "[%s] %s: %s", a.Level, a.Title, a.Message)
	})

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		writeLog(logFile, "daemon stopped")
		return nil
	}
	return err
}

// stopDaemon stops the background watcher named in the PID file.
func stopDaemon() error {
	pid, err := readPID()
	if err != nil {
		return fmt.Errorf("no watch daemon running (reading PID file: %w)", err)
	}
	if !processExists(pid) {
		_ = os.Remove(pidFilePath())
		return fmt.Errorf("no watch daemon running (PID %d is gone, removed stale PID file)", pid)
	}
	if err := terminate(pid); err != nil {
		return fmt.Errorf("stopping watch daemon (PID %d): %w", pid, err)
	}
	_ = os.Remove(pidFilePath())
	fmt.Printf("Stopped watch daemon (PID %d)\n", pid)
	return nil
}

// baselineSummary describes the initial state shown when watching starts.
func baselineSummary(a analyzer.Analysis, requests int) string {
	if requests == 0 {
		return "No feedback data yet"
	}
	return fmt.Sprintf("Baseline: %d requests, %d competencies, overall %.2f",
		requests, a.Summary.CompetencyCount, a.Summary.OverallScore)
}

// readPID reads the daemon PID from the PID file.
func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// writeLog writes a timestamped line to the log file.
func writeLog(f *os.File, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	_, _ = fmt.Fprintf(f, "[%s] %s\n", timestamp, msg)
}

// printAlert formats and prints an alert to the terminal.
func printAlert(a watcher.Alert) {
	timestamp := a.Time.Format("15:04:05")
	icon := alertIcon(a.Level)
	fmt.Printf("[%s] %s %s\n", timestamp, icon, a.Title)
	if a.Message != "" {
		fmt.Printf("         %s\n", a.Message)
	}
}

// alertIcon returns the terminal indicator for an alert level.
func alertIcon(level string) string {
	switch level {
	case watcher.LevelCritical:
		return "\xf0\x9f\x94\xb4" // red circle
	case watcher.LevelWarning:
		return "\xe2\x9a\xa0\xef\xb8\x8f" // warning sign
	case watcher.LevelInfo:
		return "\xe2\x9c\x93" // check mark
	default:
		return " "
	}
}

// checkMark returns a terminal check mark indicator.
func checkMark() string {
	return "\xe2\x9c\x93"
}
