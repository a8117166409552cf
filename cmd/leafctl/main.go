package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/gabriel-vasile/mimetype"
	"github.com/urfave/cli/v2"

	"cropcare/internal/analysis"
	"cropcare/internal/model"
	"cropcare/internal/predict"
	"cropcare/internal/result"
)

func main() {
	app := cli.NewApp()
	app.Name = "leafctl"
	app.Usage = "diagnose a leaf image against the inference service"
	app.Commands = []*cli.Command{
		predictCmd,
	}

	app.RunAndExitOnError()
}

var predictCmd = &cli.Command{
	Name:      "predict",
	Usage:     "upload one image and print the diagnosis",
	ArgsUsage: "<image>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "origin",
			Value:   predict.DefaultOrigin,
			EnvVars: []string{"PREDICT_ORIGIN"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "give up after this long; 0 waits forever",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print the raw response body",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "disable coloured output",
		},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return cli.Exit("expected exactly one image path", 2)
		}
		if cctx.Bool("no-color") {
			color.NoColor = true
		}

		img, err := readImage(cctx.Args().First())
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if d := cctx.Duration("timeout"); d > 0 {
			var cancelTimeout context.CancelFunc
			ctx, cancelTimeout = context.WithTimeout(ctx, d)
			defer cancelTimeout()
		}

		client := predict.NewClient(cctx.String("origin"), 0)
		res, err := client.Predict(ctx, img, progressPrinter(os.Stderr))
		if err != nil {
			fmt.Fprintln(os.Stderr)
			return cli.Exit(fmt.Sprintf("%s\n(%s: %v)", analysis.FailureMessage, predict.Outcome(err), err), 1)
		}
		fmt.Fprintln(os.Stderr)

		if cctx.Bool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printView(os.Stdout, result.Build(res, client.Origin()))
		return nil
	},
}

func readImage(path string) (model.LeafImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.LeafImage{}, fmt.Errorf("read image failed: %w", err)
	}
	return model.LeafImage{
		Filename:    filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

// progressPrinter rewrites one status line as the upload advances.
func progressPrinter(w io.Writer) predict.ProgressFunc {
	gray := color.New(color.FgHiBlack)
	last := -1
	return func(p predict.Progress) {
		pct := 0
		if p.Total > 0 {
			pct = int(p.Sent * 100 / p.Total)
		}
		if pct == last {
			return
		}
		last = pct
		msg := analysis.MessageUploading
		if p.Done() {
			msg = analysis.MessageAnalyzing
		}
		gray.Fprintf(w, "\r%s %3d%%", msg, pct)
	}
}

func tierColor(t result.Tier) *color.Color {
	switch t.Color {
	case result.ColorHigh:
		return color.New(color.FgGreen, color.Bold)
	case result.ColorMedium:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func printView(w io.Writer, v result.View) {
	cyan := color.New(color.FgCyan)
	bold := color.New(color.Bold)

	cyan.Fprint(w, "Diagnosis   ")
	bold.Fprintln(w, v.Diagnosis)
	if v.TopClassMismatch {
		color.New(color.FgYellow).Fprintf(w, "            top-ranked prediction is %s\n", v.TopLabel)
	}
	cyan.Fprint(w, "Confidence  ")
	tierColor(v.Tier).Fprintf(w, "%s (%s)\n", v.ConfidencePct, v.Tier.Label)
	if v.ImageURL != "" {
		cyan.Fprint(w, "Image       ")
		fmt.Fprintln(w, v.ImageURL)
	}

	if len(v.Alternatives) > 0 {
		fmt.Fprintln(w)
		cyan.Fprintln(w, "Alternative Diagnoses")
		for _, a := range v.Alternatives {
			fmt.Fprintf(w, "  - %s\n", a.Label)
		}
	}

	if v.HasRecommendations() {
		fmt.Fprintln(w)
		cyan.Fprintln(w, "Treatment Recommendations")
		for _, s := range v.Sections {
			bold.Fprintf(w, "  %s\n", s.Title)
			for _, line := range strings.Split(strings.TrimSpace(s.Text), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
		if v.SourceNote != "" {
			color.New(color.Italic, color.FgHiBlack).Fprintf(w, "  %s\n", v.SourceNote)
		}
	}
}
