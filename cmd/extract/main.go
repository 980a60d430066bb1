package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"video-recipe-go/internal/actionable"
	"video-recipe-go/internal/aggregator"
	"video-recipe-go/internal/app"
	"video-recipe-go/internal/config"
	"video-recipe-go/internal/dataset"
	"video-recipe-go/internal/logger"
	"video-recipe-go/internal/pipeline"
	"video-recipe-go/internal/processor"
	"video-recipe-go/internal/render"
	"video-recipe-go/internal/types"
)

// shutdownGrace is how long interrupted runs get to clean up after
// themselves before their sessions are removed underneath them.
const shutdownGrace = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	videoURL := flag.String("url", "", "video URL to extract a recipe from")
	sheet := flag.String("sheet", "", "xlsx file with a column of video URLs")
	out := flag.String("out", "recipes.xlsx", "report path for -sheet runs")
	workers := flag.Int("workers", 2, "concurrent runs for -sheet")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	flag.Parse()

	if (*videoURL == "") == (*sheet == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -url or -sheet is required")
		flag.Usage()
		return 2
	}

	// stdout carries the result; logs go to stderr
	log := logger.NewWithOptions(logger.Options{Level: os.Getenv("LOG_LEVEL"), Output: os.Stderr})
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		return 1
	}
	a := app.Build(cfg, log)

	// a signal cancels ctx; runs unwind through their sessions and the
	// watcher only releases what is left after the grace period
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	stopWatch := a.Sessions.ReleaseOnCancel(ctx, shutdownGrace)
	defer stopWatch()

	if *videoURL != "" {
		return single(ctx, a, *videoURL, *asJSON)
	}
	return batch(ctx, a, log, *sheet, *out, *workers, *asJSON)
}

func single(ctx context.Context, a *app.App, videoURL string, asJSON bool) int {
	opts := a.Options
	if !asJSON {
		opts.OnProgress = func(ev processor.ProgressEvent) {
			fmt.Fprintln(os.Stderr, render.Progress(ev))
		}
	}
	res := a.Processor.Process(ctx, videoURL, opts)
	if asJSON {
		printJSON(res)
	} else {
		fmt.Println(render.Result(res))
	}
	if !res.Success {
		return 1
	}
	return 0
}

func batch(ctx context.Context, a *app.App, log *logger.Logger, sheet, out string, workers int, asJSON bool) int {
	rows, err := dataset.Load(sheet)
	if err != nil {
		log.WithError(err).Error("failed to load sheet")
		return 1
	}
	log.WithField("rows", len(rows)).Info("sheet loaded")

	urls := make([]string, len(rows))
	for i, r := range rows {
		urls[i] = r.URL
	}
	results := pipeline.RunBatch(ctx, a.Processor, urls, workers, a.Options, func(i int, res *types.ProcessingResult) {
		entry := log.WithField("row", rows[i].ID).WithField("success", res.Success)
		if !res.Success {
			entry = entry.WithField("error_code", res.ErrorCode)
		}
		entry.Info("row finished")
	})

	insight := aggregator.Aggregate(results)
	card := actionable.Generate(insight)
	if err := dataset.WriteReport(out, rows, results, insight, card); err != nil {
		log.WithError(err).Error("failed to write report")
		return 1
	}
	log.WithField("path", out).Info("report written")

	if asJSON {
		printJSON(map[string]any{"insight": insight, "action": card})
	} else {
		fmt.Println(render.Batch(insight, card))
	}
	if insight.Succeeded == 0 {
		return 1
	}
	return 0
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
