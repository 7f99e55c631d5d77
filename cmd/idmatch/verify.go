package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/config"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/ingest"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/pipeline"
)

const (
	modeJSON   = "json"
	modeFolder = "folder"
)

type verifyOptions struct {
	mode     string
	input    string
	output   string
	progress bool
}

func newVerifyCmd() *cobra.Command {
	opts := verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run face verification over a manifest or a folder tree",
		Example: `  idmatch verify --mode json --input applicants.json
  idmatch verify --mode folder --input ./dataset --output result.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", modeJSON, "Input mode: json or folder")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Manifest file (json mode) or root directory (folder mode)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "output.json", "File the verification result is written to")
	cmd.Flags().BoolVar(&opts.progress, "progress", true, "Show a progress bar on stderr")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runVerify(cmd *cobra.Command, opts verifyOptions) error {
	ctx := cmd.Context()

	if opts.mode != modeJSON && opts.mode != modeFolder {
		return fmt.Errorf("invalid mode %q (use: %s, %s)", opts.mode, modeJSON, modeFolder)
	}
	if _, err := os.Stat(opts.input); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrInputNotFound, opts.input)
		}
		return fmt.Errorf("stat input: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// stdout is left for the summary
	logger := config.NewLoggerTo(cfg.Environment, os.Stderr)
	slog.SetDefault(logger)

	logger.Info("starting idmatch",
		slog.String("version", Version),
		slog.String("mode", opts.mode),
		slog.String("input", opts.input),
	)

	p, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("cleanup failed", slog.Any("error", err))
		}
	}()

	var src ingest.Source
	switch opts.mode {
	case modeJSON:
		src, err = ingest.OpenManifest(opts.input, cfg.DatasetDir, p.Fetcher, logger)
		if err != nil {
			return err
		}
	case modeFolder:
		src = ingest.NewFolderSource(opts.input, logger)
	}

	if opts.progress {
		var bar *progressbar.ProgressBar
		p.Service.WithProgress(func(role string, done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Verifying applicants"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
				)
			}
			bar.Describe("Verified " + role)
			_ = bar.Set(done)
			if done == total {
				_ = bar.Finish()
				fmt.Fprintln(os.Stderr)
			}
		})
	}

	output, err := p.Service.Run(ctx, src)
	if err != nil {
		return err
	}

	if err := writeOutput(opts.output, output); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d applicant report(s) written to %s\n",
		output.RunID, countReports(output), opts.output)
	return nil
}

func writeOutput(path string, output *domain.VerificationOutput) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func countReports(output *domain.VerificationOutput) int {
	n := len(output.CoApplicants)
	if output.Applicant != nil {
		n++
	}
	return n
}
