package workload

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv guards the process-wide onnxruntime environment shared by every
// infer workload.
var ortEnv struct {
	sync.Mutex
	loaded bool
}

// InitONNXEnvironment loads onnxruntime for the infer workload. libPath
// overrides the shared library search; repeated calls are no-ops.
func InitONNXEnvironment(libPath string) error {
	ortEnv.Lock()
	defer ortEnv.Unlock()
	if ortEnv.loaded {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("load onnxruntime for infer workload: %w", err)
	}
	ortEnv.loaded = true
	return nil
}

// DestroyONNXEnvironment unloads onnxruntime once every infer workload is
// closed. It is safe to call when nothing was loaded.
func DestroyONNXEnvironment() error {
	ortEnv.Lock()
	defer ortEnv.Unlock()
	if !ortEnv.loaded {
		return nil
	}
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("unload onnxruntime: %w", err)
	}
	ortEnv.loaded = false
	return nil
}

// Infer runs one forward pass of an ONNX model per run. The input tensor
// is filled once with a fixed ramp so every run does identical work.
type Infer struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	closed       bool
}

func NewInfer(cfg Config) (*Infer, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("%w: model path is required", ErrModelNotLoaded)
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: model file not found: %s", ErrModelNotLoaded, cfg.ModelPath)
	}

	def := DefaultConfig()
	if cfg.InputName == "" {
		cfg.InputName = def.InputName
	}
	if cfg.OutputName == "" {
		cfg.OutputName = def.OutputName
	}
	if len(cfg.InputShape) == 0 {
		cfg.InputShape = def.InputShape
	}
	if len(cfg.OutputShape) == 0 {
		cfg.OutputShape = def.OutputShape
	}

	if err := InitONNXEnvironment(cfg.SharedLibPath); err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("infer input tensor %v: %w", cfg.InputShape, err)
	}
	input := inputTensor.GetData()
	for i := range input {
		input[i] = float32(i%256)/127.5 - 1.0
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("infer output tensor %v: %w", cfg.OutputShape, err)
	}

	opts, err := sessionOptions(cfg.UseCUDA)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, err
	}
	if opts != nil {
		defer opts.Destroy()
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("open model %s: %w", cfg.ModelPath, err)
	}

	return &Infer{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// sessionOptions returns nil for the default CPU provider.
func sessionOptions(useCUDA bool) (*ort.SessionOptions, error) {
	if !useCUDA {
		return nil, nil
	}
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("create cuda provider options: %w", err)
	}
	defer cudaOpts.Destroy()
	if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("enable cuda provider: %w", err)
	}
	return opts, nil
}

func (w *Infer) Name() string { return "infer" }

func (w *Infer) Run() error {
	if w.closed {
		return ErrClosed
	}
	if err := w.session.Run(); err != nil {
		return fmt.Errorf("infer run: %w", err)
	}
	return nil
}

// Output returns the output tensor of the last Run.
func (w *Infer) Output() []float32 {
	return w.outputTensor.GetData()
}

// Close destroys the session and both tensors.
func (w *Infer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if err := w.session.Destroy(); err != nil {
		errs = append(errs, err)
	}
	if err := w.inputTensor.Destroy(); err != nil {
		errs = append(errs, err)
	}
	if err := w.outputTensor.Destroy(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
