// Command extract sends one file to the Extraction Service and prints the
// result the way the upload panel renders it.
//
//	extract [-endpoint URL] [-o DIR] [-download] FILE
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/smart-extractor/backend/internal/config"
	"github.com/smart-extractor/backend/internal/download"
	"github.com/smart-extractor/backend/internal/extract"
	"github.com/smart-extractor/backend/internal/filesource"
	"github.com/smart-extractor/backend/internal/models"
	"github.com/smart-extractor/backend/internal/panel"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.FromEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	endpoint := fs.String("endpoint", cfg.Extraction.Endpoint, "Extraction Service URL")
	outDir := fs.String("o", cfg.Download.Directory, "directory for extracted.json")
	save := fs.Bool("download", false, "save the result as extracted.json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: extract [-endpoint URL] [-o DIR] [-download] FILE\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := cfg.NewLogger(os.Stderr)
	p := panel.New(extract.NewClient(*endpoint, extract.WithLogger(logger)), logger)

	var files []*models.File
	if fs.NArg() > 0 {
		f, err := filesource.FromPath(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		files = append(files, f)
	}
	p.Pick(files)

	if err := p.Upload(context.Background()); err != nil {
		if errors.Is(err, panel.ErrNoFile) {
			fmt.Fprintln(os.Stderr, err)
			fs.Usage()
			return 2
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	view := p.View()
	fmt.Println(view.Output)

	if *save && view.DownloadAvailable {
		sink, err := download.NewFileSink(*outDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := p.Download(sink); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		logger.Info("extract.download.saved", "path", sink.Path)
	}

	if view.Outcome == models.OutcomeError {
		return 1
	}
	return 0
}
