package main

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/mnist-api/internal/config"
	"github.com/Brownie44l1/mnist-api/internal/digit"
	"github.com/Brownie44l1/mnist-api/internal/export"
	"github.com/Brownie44l1/mnist-api/internal/logger"
	"github.com/Brownie44l1/mnist-api/internal/model"
	"github.com/Brownie44l1/mnist-api/internal/recognizer"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mnist-api",
		Short:        "Handwritten digit recognition over an MNIST ONNX model",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	root.AddCommand(serveCmd(), predictCmd(), configCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, lggr, err := setup()
	if err != nil {
		return err
	}
	defer lggr.Sync()
	return serve(cfg, lggr)
}

func predictCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "predict <image>",
		Short: "Classify a drawn digit image and print the ranked probabilities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lggr, err := setup()
			if err != nil {
				return err
			}
			defer lggr.Sync()

			img, err := decodeFile(args[0])
			if err != nil {
				return err
			}

			rec, closeModel, err := newRecognizer(cfg, lggr)
			if err != nil {
				return err
			}
			defer closeModel()

			res, err := rec.Recognize(img)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Prediction: %d (confidence %.2f%%)\n", res.Top.Digit, res.Top.Probability*100)
			for _, p := range res.Ranking {
				fmt.Fprintf(out, "  %d  %6.2f%%\n", p.Digit, p.Probability*100)
			}

			if save {
				path, err := export.NewStore(cfg.Export.Dir).Save(res.Tensor, res.Top.Digit, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved: %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "save the preprocessed digit under the export dir")
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	lggr, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, lggr, nil
}

// newRecognizer loads the model once and wires it into a Recognizer. The
// returned func releases the ONNX session.
func newRecognizer(cfg *config.Config, lggr logger.Logger) (*recognizer.Recognizer, func(), error) {
	resample, err := digit.ResamplerByName(cfg.Preprocess.Resample)
	if err != nil {
		return nil, nil, err
	}

	lggr.Infow("Loading model", "path", cfg.Model.Path)
	srv, err := model.NewServer(model.Options{
		ModelPath:   cfg.Model.Path,
		LibraryPath: cfg.Model.LibraryPath,
		Metadata:    model.MNISTMetadata(cfg.Model.InputName, cfg.Model.OutputName),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize model server: %w", err)
	}

	return recognizer.New(srv, resample, lggr), srv.Close, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", digit.ErrInvalidInput, path, err)
	}
	return img, nil
}
