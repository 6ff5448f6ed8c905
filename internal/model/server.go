package model

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/mnist-api/internal/digit"
)

type Options struct {
	ModelPath   string
	LibraryPath string
	Metadata    Metadata
}

// Server runs the ONNX classifier. The input and output tensors are bound to
// the session once, so Infer calls are serialised.
type Server struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func NewServer(opts Options) (*Server, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, unavailable("model file", err)
	}

	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, unavailable("failed to initialize ONNX environment", err)
	}

	s, err := newServer(opts)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, err
	}
	return s, nil
}

func newServer(opts Options) (*Server, error) {
	metadata := opts.Metadata

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, unavailable("failed to create input tensor", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, unavailable("failed to create output tensor", err)
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, unavailable("failed to create ONNX session", err)
	}

	return &Server{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Infer runs the model on t and returns one score per digit.
func (s *Server) Infer(t *digit.Tensor) (digit.Scores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.inputTensor.GetData(), t[:])

	if err := s.session.Run(); err != nil {
		return digit.Scores{}, unavailable("inference failed", err)
	}

	return scoresFrom(s.outputTensor.GetData())
}

func scoresFrom(output []float32) (digit.Scores, error) {
	var scores digit.Scores
	if len(output) != len(scores) {
		return scores, fmt.Errorf("%w: model returned %d scores, want %d",
			digit.ErrInferenceUnavailable, len(output), len(scores))
	}
	copy(scores[:], output)
	return scores, scores.Validate()
}

func unavailable(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", digit.ErrInferenceUnavailable, what, err)
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}
