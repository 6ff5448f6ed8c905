package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/mnist-api/internal/digit"
)

// ModelConfig locates the ONNX model and names its input and output tensors.
type ModelConfig struct {
	Path        string `mapstructure:"path" yaml:"path"`                 // Path to the .onnx model file
	LibraryPath string `mapstructure:"library_path" yaml:"library_path"` // Optional path to the onnxruntime shared library
	InputName   string `mapstructure:"input_name" yaml:"input_name"`
	OutputName  string `mapstructure:"output_name" yaml:"output_name"`
}

type PreprocessConfig struct {
	Resample string `mapstructure:"resample" yaml:"resample"` // One of digit.ResamplerNames()
}

type ExportConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`                   // Directory saved digits are written to
	GallerySize int    `mapstructure:"gallery_size" yaml:"gallery_size"` // Number of saved digits listed by /saved
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Config wraps the entire configuration of the service.
type Config struct {
	Port       string           `mapstructure:"port" yaml:"port"`
	Model      ModelConfig      `mapstructure:"model" yaml:"model"`
	Preprocess PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess"`
	Export     ExportConfig     `mapstructure:"export" yaml:"export"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

var (
	defaults = map[string]any{
		"port":                "8080",
		"model.path":          "models/mnist-8.onnx",
		"model.library_path":  "",
		"model.input_name":    "Input3",
		"model.output_name":   "Plus214_Output_0",
		"preprocess.resample": digit.DefaultResampler,
		"export.dir":          "saved_images",
		"export.gallery_size": 10,
		"log.level":           "info",
	}

	// envBindings maps config keys to the environment variables that can set
	// them. The first name is preferred; later names are kept for
	// compatibility.
	envBindings = map[string][]string{
		"port":                {"MNIST_PORT", "PORT"},
		"model.path":          {"MNIST_MODEL_PATH", "MODEL_PATH"},
		"model.library_path":  {"MNIST_MODEL_LIBRARY_PATH", "ONNXRUNTIME_LIB"},
		"model.input_name":    {"MNIST_MODEL_INPUT_NAME"},
		"model.output_name":   {"MNIST_MODEL_OUTPUT_NAME"},
		"preprocess.resample": {"MNIST_PREPROCESS_RESAMPLE"},
		"export.dir":          {"MNIST_EXPORT_DIR", "SAVE_DIR"},
		"export.gallery_size": {"MNIST_EXPORT_GALLERY_SIZE"},
		"log.level":           {"MNIST_LOG_LEVEL", "LOG_LEVEL"},
	}
)

// Load loads the config from the file path, falling back to defaults and env
// vars if the path is empty or the file does not exist. Env vars override
// values from the file.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", filePath, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port must be set"))
	}
	if c.Model.Path == "" {
		errs = append(errs, errors.New("model.path must be set"))
	}
	if c.Model.InputName == "" || c.Model.OutputName == "" {
		errs = append(errs, errors.New("model.input_name and model.output_name must be set"))
	}
	if _, err := digit.ResamplerByName(c.Preprocess.Resample); err != nil {
		errs = append(errs, fmt.Errorf("preprocess.resample: %w", err))
	}
	if c.Export.GallerySize <= 0 {
		errs = append(errs, fmt.Errorf("export.gallery_size must be positive, got %d", c.Export.GallerySize))
	}

	return errors.Join(errs...)
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
