package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/D13ya/devtimer/internal/workload"
	"github.com/D13ya/devtimer/pkg/logger"
	"github.com/D13ya/devtimer/pkg/profiler"
	"github.com/D13ya/devtimer/pkg/timer"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("timerdemo: %v", err)
	}
}

type options struct {
	mode      timer.Mode
	onFailure string
	workload  string
	runs      int
	unit      string
	verbose   bool
	wl        workload.Config
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("timerdemo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := workload.DefaultConfig()
	mode := fs.String("mode", "host", "timer backend: host or device")
	onFailure := fs.String("on-failure", "abort", "backend failure policy: abort or continue")
	name := fs.String("workload", "loop", fmt.Sprintf("work to time per run %v", workload.Names()))
	runs := fs.Int("n", 5, "number of timed runs")
	unit := fs.String("unit", "ms", "reporting unit: ms, us or s")
	verbose := fs.Bool("v", false, "log setup and total run time")
	loopCount := fs.Int("loop-count", def.LoopCount, "lines printed by the loop workload")
	printLoop := fs.Bool("print", false, "send loop workload output to stdout")
	imagePath := fs.String("image", "", "image for the resize workload (synthetic if empty)")
	dstSize := fs.Int("size", def.DstSize, "output edge length for the resize workload")
	modelPath := fs.String("model", "", "ONNX model for the infer workload")
	ortLib := fs.String("ort-lib", "", "path to the onnxruntime shared library")
	ortCUDA := fs.Bool("ort-cuda", false, "run the infer workload on the CUDA execution provider")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	m, err := timer.ParseMode(*mode)
	if err != nil {
		return options{}, err
	}
	switch *onFailure {
	case "abort", "continue":
	default:
		return options{}, fmt.Errorf("unknown failure policy %q", *onFailure)
	}
	switch *unit {
	case "ms", "us", "s":
	default:
		return options{}, fmt.Errorf("unknown unit %q", *unit)
	}
	if *runs <= 0 {
		return options{}, errors.New("-n must be positive")
	}

	wl := def
	wl.LoopCount = *loopCount
	wl.ImagePath = *imagePath
	wl.DstSize = *dstSize
	wl.ModelPath = *modelPath
	wl.SharedLibPath = *ortLib
	wl.UseCUDA = *ortCUDA
	if *printLoop {
		wl.Out = nil
	}

	return options{
		mode:      m,
		onFailure: *onFailure,
		workload:  *name,
		runs:      *runs,
		unit:      *unit,
		verbose:   *verbose,
		wl:        wl,
	}, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	l := logger.NewTo(stderr, "timerdemo: ")
	if opts.wl.Out == nil {
		opts.wl.Out = stdout
	}

	cfg := timer.Config{Mode: opts.mode, Logger: l}
	if opts.onFailure == "continue" {
		cfg.OnFailure = timer.Continue
	}
	tm, err := timer.NewWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("create %s timer: %w", opts.mode, err)
	}
	defer tm.Close()

	defer workload.DestroyONNXEnvironment()
	w, err := workload.New(opts.workload, opts.wl)
	if err != nil {
		return err
	}
	defer w.Close()

	if opts.verbose {
		l.Printf("timing %d runs of %s on the %s backend", opts.runs, w.Name(), tm.Mode())
	}
	total := profiler.Start(fmt.Sprintf("%d runs of %s", opts.runs, w.Name()))

	for i := 0; i < opts.runs; i++ {
		tm.Start()
		if err := w.Run(); err != nil {
			tm.Stop()
			return fmt.Errorf("run %d: %w", i, err)
		}
		fmt.Fprintf(stdout, "run %d: %.3f %s\n", i, read(tm, opts.unit), opts.unit)
	}
	if err := tm.Err(); err != nil {
		return fmt.Errorf("timer backend: %w", err)
	}

	if opts.verbose {
		total.Stop(l)
	}
	return nil
}

func read(tm *timer.Timer, unit string) float64 {
	switch unit {
	case "us":
		return tm.MicroSeconds()
	case "s":
		return tm.Seconds()
	default:
		return tm.MilliSeconds()
	}
}
