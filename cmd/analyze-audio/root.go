package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kdimtricp/faik/internal/analysis"
	"github.com/kdimtricp/faik/internal/audio"
	"github.com/kdimtricp/faik/internal/classifier"
	"github.com/kdimtricp/faik/internal/detection"
	"github.com/kdimtricp/faik/internal/logging"
)

type options struct {
	chunkDuration float64
	overlap       float64
	classifierURL string
	modelName     string
	timeout       time.Duration
	workers       int
	failurePolicy string
	sampleRate    int
	format        string
	logLevel      string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "analyze-audio [flags] <file>...",
		Short: "Detect AI generated speech in audio files",
		Long: `Split each audio file into overlapping windows, score every window with
the classifier service and report whether the file is a deepfake.

Examples:
  analyze-audio clip.wav
  analyze-audio --chunk-duration 3 --overlap 0.3 --format table a.wav b.mp3`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	defaultURL := os.Getenv("CLASSIFIER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8000"
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.chunkDuration, "chunk-duration", detection.DefaultChunkDuration, "window length in seconds (1-30)")
	flags.Float64Var(&opts.overlap, "overlap", detection.DefaultOverlap, "fraction of each window shared with the next (0-0.9)")
	flags.StringVar(&opts.classifierURL, "classifier-url", defaultURL, "base URL of the classifier service")
	flags.StringVar(&opts.modelName, "model", classifier.DefaultModelName, "model name sent to the classifier")
	flags.DurationVar(&opts.timeout, "timeout", classifier.DefaultTimeout, "per request classifier timeout")
	flags.IntVarP(&opts.workers, "workers", "w", 1, "concurrent classifier requests")
	flags.StringVar(&opts.failurePolicy, "failure-policy", "abort", "chunk failure policy (abort or skip)")
	flags.IntVar(&opts.sampleRate, "sample-rate", audio.DefaultSampleRate, "rate the audio is resampled to")
	flags.StringVarP(&opts.format, "format", "f", "json", "output format (json or table)")
	flags.StringVar(&opts.logLevel, "log-level", "warning", "log level")

	return cmd
}

type fileReport struct {
	File   string                    `json:"file"`
	Result *detection.AnalysisResult `json:"result,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

func run(ctx context.Context, out io.Writer, opts *options, files []string) error {
	if err := logging.Setup(os.Stderr, opts.logLevel, "text"); err != nil {
		return err
	}
	if opts.format != "json" && opts.format != "table" {
		return fmt.Errorf("unknown output format %q", opts.format)
	}

	params := detection.Params{ChunkDuration: opts.chunkDuration, Overlap: opts.overlap}
	if err := detection.ValidateParams(params); err != nil {
		return err
	}
	policy, err := detection.ParseFailurePolicy(opts.failurePolicy)
	if err != nil {
		return err
	}

	config := classifier.NewConfig()
	config.BaseURL = opts.classifierURL
	config.ModelName = opts.modelName
	config.Timeout = opts.timeout

	backend, err := classifier.NewHTTPClient(config)
	if err != nil {
		return err
	}
	model := classifier.NewService(backend)
	if err := model.Load(ctx); err != nil {
		return err
	}

	service := analysis.NewService(
		audio.NewLoader(audio.LoaderConfig{SampleRate: opts.sampleRate}),
		model,
		nil, nil, nil,
		analysis.Config{
			Evaluator: detection.EvaluatorConfig{Workers: opts.workers, Policy: policy},
		},
	)

	reports := make([]fileReport, 0, len(files))
	failed := 0
	for _, path := range files {
		report := fileReport{File: path}

		data, err := os.ReadFile(path)
		if err == nil {
			var outcome *analysis.Outcome
			outcome, err = service.Analyze(ctx, analysis.Upload{Filename: filepath.Base(path), Data: data}, params)
			if err == nil {
				report.Result = outcome.Result
			}
		}
		if err != nil {
			log.WithError(err).WithField("file", path).Error("analysis failed")
			report.Error = err.Error()
			failed++
		}
		reports = append(reports, report)
	}

	if opts.format == "table" {
		printTable(out, reports)
	} else {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func printTable(out io.Writer, reports []fileReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tVERDICT\tCONFIDENCE\tAI CHUNKS\tRATIO")
	for _, r := range reports {
		if r.Result == nil {
			fmt.Fprintf(w, "%s\terror\t-\t-\t%s\n", r.File, r.Error)
			continue
		}
		verdict := "real"
		if r.Result.IsDeepfake {
			verdict = "deepfake"
		}
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%d/%d\t%.2f\n",
			r.File, verdict, r.Result.OverallConfidence,
			r.Result.Summary.AIGeneratedChunks, r.Result.TotalChunks,
			r.Result.Summary.AIGeneratedRatio)
	}
	w.Flush()
}
