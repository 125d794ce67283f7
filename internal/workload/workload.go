package workload

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

var (
	ErrUnknownWorkload = errors.New("unknown workload")
	ErrModelNotLoaded  = errors.New("ONNX model not loaded")
	ErrClosed          = errors.New("workload is closed")
)

// Workload is one unit of work timed per cycle by the demo driver.
type Workload interface {
	Name() string
	Run() error
	Close() error
}

// Config holds the settings for every workload kind. Fields a workload
// does not use are ignored.
type Config struct {
	// loop
	Out       io.Writer
	LoopCount int

	// resize
	ImagePath string
	SrcSize   int
	DstSize   int

	// sign
	Message []byte

	// infer
	ModelPath     string
	SharedLibPath string
	InputName     string
	OutputName    string
	InputShape    []int64
	OutputShape   []int64
	UseCUDA       bool
}

// DefaultConfig mirrors the values the demo driver uses.
func DefaultConfig() Config {
	return Config{
		Out:         io.Discard,
		LoopCount:   1000,
		SrcSize:     1024,
		DstSize:     224,
		Message:     []byte("devtimer"),
		InputName:   "image",
		OutputName:  "hash",
		InputShape:  []int64{1, 3, 224, 224},
		OutputShape: []int64{1, 128},
	}
}

type factory func(Config) (Workload, error)

var registry = map[string]factory{
	"loop":   func(c Config) (Workload, error) { return NewLoop(c), nil },
	"resize": func(c Config) (Workload, error) { return NewResize(c) },
	"sign":   func(c Config) (Workload, error) { return NewSign(c) },
	"infer":  func(c Config) (Workload, error) { return NewInfer(c) },
}

// New builds the named workload.
func New(name string, cfg Config) (Workload, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownWorkload, name, Names())
	}
	return f(cfg)
}

// Names lists the registered workloads in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
