// Package cmd implements the single top-level command spec.md §6 names:
// one positional source argument plus the stage-selection, concurrency,
// retry, and workspace flags, built with cobra/pflag the way the teacher's
// cmd/root.go is, collapsed to one command since there are no
// subcommands here.
package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/k0kubun/pp"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/faughnn/factreel/internal/adapters"
	"github.com/faughnn/factreel/internal/cache"
	"github.com/faughnn/factreel/internal/config"
	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/internal/diagnostics"
	"github.com/faughnn/factreel/internal/eventapi"
	"github.com/faughnn/factreel/internal/orchestrator"
	"github.com/faughnn/factreel/internal/retry"
	"github.com/faughnn/factreel/internal/twopass"
	"github.com/faughnn/factreel/internal/version"
	"github.com/faughnn/factreel/internal/workspace"
	"github.com/faughnn/factreel/pkg/llms"
)

var (
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()

	cfgFile             string
	stagesFlag          string
	fromFlag, toFlag    int
	contentRootFlag     string
	concurrencyFlag     int
	clipConcurrencyFlag int
	maxRetriesFlag      int
	retryBaseDelayFlag  float64
	forceFlag           bool
	dryRunFlag          bool
	eventsAddrFlag      string
)

var rootCmd = &cobra.Command{
	Use:   "factreel <source>",
	Short: "Turn a source video reference into a narrated, fact-checking compilation video",
	Long: `factreel converts a source video reference (a remote URL or a local
audio path) into a narrated, fact-checking compilation video: extraction,
transcription/diarization, two-pass content analysis, narration synthesis,
clipping, and composition, run over a resumable, content-addressed
per-episode workspace.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runPipeline,
	Version: version.String(),
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	cobra.OnInitialize(func() {
		if err := config.InitConfig(cfgFile); err != nil {
			color.Yellowf("Error loading config: %v\n", err)
		}
		version.CheckForUpdate()
	})

	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "configuration file (default is $XDG_CONFIG_HOME/factreel/config.yaml)")
	rootCmd.Flags().StringVar(&stagesFlag, "stages", "", "comma-separated subset of stages 1..7 to run")
	rootCmd.Flags().IntVar(&fromFlag, "from", 0, "inclusive lower stage bound")
	rootCmd.Flags().IntVar(&toFlag, "to", 0, "inclusive upper stage bound")
	rootCmd.Flags().StringVar(&contentRootFlag, "content-root", "", "episode workspace root (default from config)")
	rootCmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "worker count for stage 5 (TTS)")
	rootCmd.Flags().IntVar(&clipConcurrencyFlag, "clip-concurrency", 0, "worker count for stage 6 (clipping), default same as concurrency.clip_workers")
	rootCmd.Flags().IntVar(&maxRetriesFlag, "max-retries", 0, "max attempts per external adapter call")
	rootCmd.Flags().Float64Var(&retryBaseDelayFlag, "retry-base-delay", 0, "retry base delay in seconds")
	rootCmd.Flags().BoolVar(&forceFlag, "force", false, "invalidate caches for selected stages")
	rootCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "resolve the stage plan and exit without executing")
	rootCmd.Flags().StringVar(&eventsAddrFlag, "events-addr", "", "host:port to serve the session event stream on (disabled by default)")
}

// Execute runs the root command and exits with the §6 exit code mapping.
func Execute() {
	err := rootCmd.Execute()
	if newer, tag := version.NewerVersionAvailable(); newer {
		color.Yellowf("a newer factreel release is available: %s\n", tag)
	}
	if err != nil {
		var exitErr *exitCodeError
		if ok := asExitCodeError(err, &exitErr); ok {
			os.Exit(exitErr.code)
		}
		os.Exit(2)
	}
}

// exitCodeError carries a resolved process exit code alongside the error
// that produced it, so Execute can propagate it past cobra's generic error
// handling without re-deriving the classification.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func asExitCodeError(err error, target **exitCodeError) bool {
	if ece, ok := err.(*exitCodeError); ok {
		*target = ece
		return true
	}
	return false
}

func runPipeline(cmd *cobra.Command, args []string) error {
	source := args[0]

	settings, err := config.LoadSettings()
	if err != nil {
		return &exitCodeError{code: 2, err: fmt.Errorf("loading config: %w", err)}
	}

	stages, err := parseStages(stagesFlag)
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}

	contentRoot := contentRootFlag
	if contentRoot == "" {
		contentRoot = settings.Paths.ContentRoot
	}
	if contentRoot == "" {
		return &exitCodeError{code: 2, err: &core.InputError{Detail: "--content-root not set and paths.content_root missing from config"}}
	}

	retryCfg := retry.Config{
		MaxAttempts:           settings.Retry.MaxAttempts,
		BaseDelaySeconds:      settings.Retry.BaseDelaySeconds,
		PerCallTimeoutSeconds: settings.Retry.PerCallTimeoutSeconds,
	}
	if maxRetriesFlag > 0 {
		retryCfg.MaxAttempts = maxRetriesFlag
	}
	if retryBaseDelayFlag > 0 {
		retryCfg.BaseDelaySeconds = retryBaseDelayFlag
	}

	concurrency := settings.Concurrency.TTSWorkers
	if concurrencyFlag > 0 {
		concurrency = concurrencyFlag
	}

	clipConcurrency := settings.Concurrency.ClipWorkers
	if clipConcurrencyFlag > 0 {
		clipConcurrency = clipConcurrencyFlag
	}

	deps, err := buildDeps(settings, retryCfg)
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}

	orch := orchestrator.New(deps, contentRoot, &logger)

	if eventsAddrFlag != "" {
		srv, err := startEventAPI(eventsAddrFlag, contentRoot, source)
		if err != nil {
			color.Yellowf("event API not started: %v\n", err)
		} else {
			defer srv.Shutdown()
			color.Cyanf("event stream listening on %s (port %d)\n", eventsAddrFlag, srv.Port())
		}
	}

	cancel := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		close(cancel)
	}()

	opts := orchestrator.Options{
		Stages:         stages,
		StartFrom:      fromFlag,
		StopAfter:      toFlag,
		MaxConcurrency: concurrency,
		ClipConcurrency: clipConcurrency,
		Retry:          retryCfg,
		Force:          forceFlag,
		DryRun:         dryRunFlag,
		Cancel:         cancel,
	}

	if dryRunFlag {
		report, err := orch.Run(context.Background(), source, opts)
		pp.Println(report)
		if err != nil {
			return &exitCodeError{code: orchestrator.ExitCode(err), err: err}
		}
		return nil
	}

	report, err := orch.Run(context.Background(), source, opts)
	printReport(report)
	if err != nil {
		color.Redf("pipeline failed: %v\n", err)
		if bundlePath, berr := writeFailureReport(contentRoot, source, report, settings, err); berr != nil {
			color.Yellowf("could not write debug report: %v\n", berr)
		} else {
			color.Yellowf("debug report written to %s\n", bundlePath)
		}
		return &exitCodeError{code: orchestrator.ExitCode(err), err: err}
	}
	color.Greenf("final video: %s\n", report.FinalVideoPath)
	return nil
}

// writeFailureReport bundles the failed run's stage ledger, redacted
// settings, and NDJSON session log into a zip under the episode's
// Processing/reports directory, for the operator to attach to a bug report.
func writeFailureReport(contentRoot, source string, report orchestrator.RunReport, settings config.Settings, cause error) (string, error) {
	ref, err := workspace.Locate(source)
	if err != nil {
		return "", err
	}
	ws, err := workspace.Ensure(contentRoot, ref)
	if err != nil {
		return "", err
	}
	return diagnostics.WriteReport(
		ws.PathOf("Processing/reports"),
		diagnostics.ModeStageFailure,
		report.SessionID,
		cause,
		report.Stages,
		settings,
		ws.SessionLogPath(report.SessionID),
	)
}

// startEventAPI resolves the same episode workspace Run will use and
// serves its NDJSON session log over the event API (SPEC_FULL §4.8),
// started ahead of the pipeline run so a client can attach from the first
// event onward.
func startEventAPI(addr, contentRoot, source string) (*eventapi.Server, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid --events-addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid --events-addr port %q: %w", portStr, err)
	}

	ref, err := workspace.Locate(source)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Ensure(contentRoot, ref)
	if err != nil {
		return nil, err
	}

	srv, err := eventapi.NewServer(&eventapi.Config{Host: host, Port: port}, ws, logger)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(); err != nil {
		return nil, err
	}
	return srv, nil
}

func parseStages(raw string) (map[int]bool, error) {
	if raw == "" {
		return nil, nil
	}
	set := make(map[int]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 7 {
			return nil, &core.InputError{Detail: "invalid --stages entry: " + part}
		}
		set[n] = true
	}
	return set, nil
}

func printReport(report orchestrator.RunReport) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Stage", "State", "Cached", "Progress", "Error"})
	for i, s := range report.Stages {
		table.Append([]string{
			fmt.Sprintf("%d %s", i+1, s.Name),
			string(s.State),
			fmt.Sprintf("%v", s.Cached),
			fmt.Sprintf("%.0f%%", s.ProgressPct),
			s.Error,
		})
	}
	table.Render()
}

// buildDeps wires concrete C5 adapter implementations from settings,
// registering every LLM provider the pack's pkg/llms exposes that has a
// configured API key, and a genai.Client for pass-1/pass-2 file uploads.
func buildDeps(settings config.Settings, retryCfg retry.Config) (orchestrator.Deps, error) {
	timeout := time.Duration(retryCfg.PerCallTimeoutSeconds * float64(time.Second))
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	llms.Initialize(logger)
	llmClient := llms.GetDefaultClient()

	var genaiClient *genai.Client
	if settings.Adapters.LLM.APIKey != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: settings.Adapters.LLM.APIKey, Backend: genai.BackendGeminiAPI})
		if err == nil {
			genaiClient = c
		}
	}

	llmAdapter := adapters.NewMultiProviderLLM(llmClient, genaiClient, settings.Adapters.LLM.Provider, settings.Adapters.LLM.Model)

	downloader := adapters.NewYTDLPDownloader(&logger)
	if settings.Adapters.Downloader.Binary != "" {
		downloader.Binary = settings.Adapters.Downloader.Binary
	}

	diarizer := adapters.NewReplicateDiarizer(settings.Adapters.Diarizer.APIToken, settings.Adapters.Diarizer.Owner, settings.Adapters.Diarizer.Name, timeout)
	tts := adapters.NewElevenLabsTTS(settings.Adapters.TTS.APIKey, settings.Adapters.TTS.VoiceID, timeout)
	clipper := adapters.NewFFmpegClipper()
	compositor := adapters.NewFFmpegCompositor()

	filterCfg := twopass.FilterConfig{
		TargetCount:          settings.TwoPass.TargetCount,
		MinCount:             settings.TwoPass.MinCount,
		MaxCount:             settings.TwoPass.MaxCount,
		QualityThreshold:     settings.TwoPass.QualityThreshold,
		FallbackThreshold:    settings.TwoPass.FallbackThreshold,
		AutoIncludeThreshold: settings.TwoPass.AutoIncludeThreshold,
		MaxCategoryFraction:  settings.TwoPass.MaxCategoryFraction,
		SimilarityThreshold:  settings.TwoPass.SimilarityThreshold,
		Similarity:           twopass.JaccardSimilarity,
	}
	twoPassCfg := twopass.Config{
		Filter:            filterCfg,
		Retry:             retryCfg,
		PromptsDir:        settings.Paths.PromptsDir,
		AnalysisRulesPath: settings.Paths.AnalysisRulesPath,
	}
	twoPassFactory := func(store *cache.Store) *twopass.Controller {
		return twopass.New(llmAdapter, store, twoPassCfg, &logger)
	}

	return orchestrator.Deps{
		Downloader: downloader,
		Diarizer:   diarizer,
		TTS:        tts,
		Clipper:    clipper,
		Compositor: compositor,
		TwoPass:    twoPassFactory,
	}, nil
}

