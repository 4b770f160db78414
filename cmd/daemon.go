package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/daemon"
	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
	"github.com/theirongolddev/cbill/internal/summarizer"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run a background anomaly poller with HTTP/SSE endpoints",
	Long: "Poll the data directory, rebuild the report when exports change and\n" +
		"serve it over HTTP: /v1/status, /v1/anomalies, /v1/business-days,\n" +
		"/v1/summary, /v1/impact, /v1/events, /v1/stream (SSE) and /metrics.",
	RunE: runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default daemon.addr)")
	pf.DurationVar(&flagDaemonInterval, "interval", 0, "Polling interval (default daemon.poll_seconds)")
	pf.StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(pipeline.CacheDir(), "cbilld.pid"), "PID file path")
	pf.StringVar(&flagDaemonLogFile, "log-file", filepath.Join(pipeline.CacheDir(), "cbilld.log"), "Log file path for detached mode")
	pf.IntVar(&flagDaemonEventsBuffer, "events-buffer", 0, "Max in-memory events retained (default daemon.events_buffer)")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// resolveDaemonFlags fills unset daemon flags from the [daemon] config section.
func resolveDaemonFlags() {
	if flagDaemonAddr == "" {
		flagDaemonAddr = cfg.Daemon.Addr
	}
	if flagDaemonInterval <= 0 {
		flagDaemonInterval = cfg.PollInterval()
	}
	if flagDaemonEventsBuffer <= 0 {
		flagDaemonEventsBuffer = cfg.Daemon.EventsBuffer
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	resolveDaemonFlags()
	pf := pidFile(flagDaemonPIDFile)

	switch {
	case flagDaemonDetach && flagDaemonChild:
		return errors.New("invalid daemon launch mode")
	case flagDaemonDetach:
		return startDetached(pf)
	default:
		return serveForeground(cmd.Context(), pf)
	}
}

// startDetached re-executes the current command line with --child in a new
// process whose output goes to the log file.
func startDetached(pf pidFile) error {
	if err := pf.claim(); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	args := append(withoutDetach(os.Args[1:]), "--child")

	for _, dir := range []string{filepath.Dir(pf.path()), filepath.Dir(flagDaemonLogFile)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create daemon directory: %w", err)
		}
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", pf.path())
	fmt.Printf("  API: http://%s/v1/status\n", flagDaemonAddr)
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func serveForeground(ctx context.Context, pf pidFile) error {
	if err := pf.claim(); err != nil {
		return err
	}
	if err := pf.write(daemonState{
		PID:       os.Getpid(),
		Addr:      flagDaemonAddr,
		StartedAt: time.Now(),
		DataDir:   cfg.General.DataDir,
	}); err != nil {
		return err
	}
	defer pf.remove()

	opts, err := reportOptions(cfg)
	if err != nil {
		return err
	}
	svc := daemon.New(daemon.Config{
		DataDir:      cfg.General.DataDir,
		LOBFilter:    flagLOB,
		UseCache:     !flagNoCache,
		Interval:     flagDaemonInterval,
		Addr:         flagDaemonAddr,
		EventsBuffer: flagDaemonEventsBuffer,
		Report:       opts,
		Summarizer:   summarizer.NewClient(cfg.Summarizer.Endpoint, cfg.Summarizer.APIKey, cfg.SummarizerTimeout()),
		Logger:       slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	})

	fmt.Printf("  cbill daemon listening on http://%s\n", flagDaemonAddr)
	fmt.Printf("  Polling every %s from %s\n", flagDaemonInterval, cfg.General.DataDir)
	fmt.Printf("  Stop with: cbill daemon stop --pid-file %s\n", pf.path())

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	resolveDaemonFlags()
	pf := pidFile(flagDaemonPIDFile)

	st, err := pf.read()
	if err != nil {
		fmt.Printf("  Daemon: not running (%v)\n", err)
		return nil
	}
	if !processAlive(st.PID) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", st.PID)
		return nil
	}

	addr := st.Addr
	if addr == "" {
		addr = flagDaemonAddr
	}
	fmt.Printf("  Daemon PID: %d\n", st.PID)
	fmt.Printf("  Address: http://%s\n", addr)
	if !st.StartedAt.IsZero() {
		fmt.Printf("  Started: %s\n", st.StartedAt.Local().Format(time.RFC3339))
	}

	status, err := fetchStatus(addr)
	if err != nil {
		fmt.Printf("  API status: %v\n", err)
		return nil
	}
	printDaemonStatus(status)
	return nil
}

func fetchStatus(addr string) (daemon.Status, error) {
	var st daemon.Status
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status check
	if err != nil {
		return st, fmt.Errorf("unreachable (%w)", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed response (%w)", err)
	}
	return st, nil
}

func printDaemonStatus(st daemon.Status) {
	if st.LastPollAt.IsZero() {
		fmt.Printf("  Last poll: pending\n")
	} else {
		fmt.Printf("  Last poll: %s\n", st.LastPollAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Poll count: %d\n", st.PollCount)
	fmt.Printf("  Data: %s (calendar %s)\n", st.DataDir, st.Jurisdiction)
	if len(st.Summary.Periods) > 0 {
		fmt.Printf("  Periods: %s\n", strings.Join(st.Summary.Periods, ", "))
	}
	fmt.Printf("  Records: %d\n", st.Summary.Records)
	fmt.Printf("  Flagged: %d\n", st.Summary.Flagged)
	for _, sev := range model.Severities {
		if n := st.Summary.BySeverity[string(sev)]; n > 0 {
			fmt.Printf("    %-12s %d\n", sev, n)
		}
	}
	if st.Summary.FileErrors > 0 {
		fmt.Printf("  Skipped files: %d\n", st.Summary.FileErrors)
	}
	fmt.Printf("  Events: %d buffered, %d subscribers\n", st.EventCount, st.SubscriberCount)
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pf := pidFile(flagDaemonPIDFile)
	st, err := pf.read()
	if err != nil {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	for deadline := time.Now().Add(8 * time.Second); time.Now().Before(deadline); time.Sleep(150 * time.Millisecond) {
		if !processAlive(st.PID) {
			pf.remove()
			fmt.Printf("  Stopped daemon (pid %d)\n", st.PID)
			return nil
		}
	}
	return fmt.Errorf("daemon (pid %d) did not exit in time", st.PID)
}

// withoutDetach drops --detach so the child runs in the foreground.
func withoutDetach(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

// daemonState is written next to the pid file so status can find the API.
type daemonState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DataDir   string    `json:"data_dir"`
}

// pidFile is the path of the daemon pid file. Its state lives at path+".json".
type pidFile string

func (p pidFile) path() string      { return string(p) }
func (p pidFile) statePath() string { return string(p) + ".json" }

// claim fails if a live daemon owns the pid file and clears a stale one.
func (p pidFile) claim() error {
	st, err := p.read()
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err == nil && processAlive(st.PID) {
		return fmt.Errorf("daemon already running (pid %d)", st.PID)
	}
	p.remove()
	return nil
}

func (p pidFile) write(st daemonState) error {
	if err := os.MkdirAll(filepath.Dir(p.path()), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(p.path(), []byte(strconv.Itoa(st.PID)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.statePath(), append(data, '\n'), 0o600)
}

// read returns the recorded state. The pid file is authoritative; the state
// file only adds detail.
func (p pidFile) read() (daemonState, error) {
	var st daemonState
	data, err := os.ReadFile(p.path())
	if err != nil {
		return st, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return st, fmt.Errorf("invalid pid in %s", p.path())
	}
	if raw, err := os.ReadFile(p.statePath()); err == nil {
		_ = json.Unmarshal(raw, &st)
	}
	st.PID = pid
	return st, nil
}

func (p pidFile) remove() {
	_ = os.Remove(p.path())
	_ = os.Remove(p.statePath())
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
