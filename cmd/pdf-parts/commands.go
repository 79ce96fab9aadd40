package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-pdf-parts/internal/config"
	"github.com/a3tai/mcp-pdf-parts/internal/export"
	"github.com/a3tai/mcp-pdf-parts/internal/parts"
	"github.com/a3tai/mcp-pdf-parts/internal/pdf"
	pdferrors "github.com/a3tai/mcp-pdf-parts/internal/pdf/errors"
)

// outputOptions are the flags shared by every subcommand.
type outputOptions struct {
	csv    bool
	output string
}

func newRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	root := &cobra.Command{
		Use:   "pdf-parts",
		Short: "Extract part numbers from PDF drawings and parts lists",
		Long: `pdf-parts reads the text layer and tables of PDF files, falls back to OCR
for scanned pages, and reports part numbers. With --l, --w or --t it reports
the lines whose dimensions match instead.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewViper(cmd.Flags())
			if err != nil {
				return err
			}
			cfg.ApplyPipeline(v)
			return cfg.ValidatePipeline()
		},
	}
	config.RegisterPipelineFlags(root.PersistentFlags(), cfg)

	root.AddCommand(newListCmd(cfg), newSearchCmd(cfg), newLinesCmd(cfg))
	return root
}

func newListCmd(cfg *config.Config) *cobra.Command {
	var out outputOptions
	cmd := &cobra.Command{
		Use:   "list [files or directories...]",
		Short: "List every part number in the given PDFs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, cfg, args, parts.Request{Mode: parts.ModePartsList}, out)
		},
	}
	addOutputFlags(cmd, &out)
	return cmd
}

func newSearchCmd(cfg *config.Config) *cobra.Command {
	var (
		out     outputOptions
		l, w, t string
	)
	cmd := &cobra.Command{
		Use:   "search [files or directories...]",
		Short: "Find lines whose L/W/T values match, with their part numbers",
		Long: `Search reports every line whose dimension values match the given L, W and T
within the configured tolerance. Unset axes are ignored; without any value
search behaves like list.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := parts.Request{Mode: parts.ModeAuto, L: l, W: w, T: t}
			return runPipeline(cmd, cfg, args, req, out)
		},
	}
	cmd.Flags().StringVar(&l, "l", "", "length to match")
	cmd.Flags().StringVar(&w, "w", "", "width to match")
	cmd.Flags().StringVar(&t, "t", "", "thickness to match")
	addOutputFlags(cmd, &out)
	return cmd
}

func newLinesCmd(cfg *config.Config) *cobra.Command {
	var out outputOptions
	cmd := &cobra.Command{
		Use:   "lines [files or directories...]",
		Short: "Print every extracted line with file, page and line number",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, cfg, args, parts.Request{Mode: parts.ModeLines}, out)
		},
	}
	addOutputFlags(cmd, &out)
	return cmd
}

func addOutputFlags(cmd *cobra.Command, out *outputOptions) {
	cmd.Flags().BoolVar(&out.csv, "csv", false, "write CSV instead of text")
	cmd.Flags().StringVarP(&out.output, "output", "o", "",
		"write to this file, or to the default CSV name inside this directory")
}

func runPipeline(cmd *cobra.Command, cfg *config.Config, args []string, req parts.Request, out outputOptions) error {
	logger := newLogger(cfg, cmd.ErrOrStderr())

	pipeline, err := parts.NewPipeline(cfg.PipelineOptions(), parts.WithLogger(logrus.NewEntry(logger)))
	if err != nil {
		return err
	}

	req.Files, err = readInputs(pdf.NewSearch(cfg.MaxFileSize), args)
	if err != nil {
		return err
	}

	resp, err := pipeline.Run(cmd.Context(), req)
	if err != nil {
		return errors.New(pdferrors.Describe(err))
	}

	if !out.csv {
		return writeOutput(cmd, out.output, "", func(w io.Writer) error {
			_, err := io.WriteString(w, export.Summary(resp))
			return err
		})
	}

	for _, a := range resp.Annotations {
		cmd.PrintErrln("warning: " + export.FormatAnnotation(a))
	}
	return writeOutput(cmd, out.output, export.FileName(export.SchemaFor(resp.Mode)), func(w io.Writer) error {
		_, err := export.WriteResponse(w, resp)
		return err
	})
}

// readInputs reads the named files in order. A directory contributes
// every PDF below it, sorted by path.
func readInputs(search *pdf.Search, args []string) ([]pdf.NamedFile, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := search.FindPDFsInDirectory(arg)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		return nil, errors.New("no PDF files found")
	}
	return search.ReadFiles(paths)
}

// writeOutput writes to stdout, to target, or to target/defaultName when
// target is a directory.
func writeOutput(cmd *cobra.Command, target, defaultName string, write func(io.Writer) error) error {
	if target == "" {
		return write(cmd.OutOrStdout())
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		if defaultName == "" {
			return fmt.Errorf("output %s is a directory", target)
		}
		target = filepath.Join(target, defaultName)
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	cmd.PrintErrf("wrote %s\n", target)
	return nil
}

func newLogger(cfg *config.Config, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	// Run summaries stay quiet unless debugging.
	if level == logrus.InfoLevel {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}
