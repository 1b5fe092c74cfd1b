package flashcard

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed params/*.yaml
var paramsFS embed.FS

// DefaultParametersVersion names the parameter set used when none is configured.
const DefaultParametersVersion = "fsrs-6/default"

var ErrInvalidParameters = errors.New("invalid scheduler parameters")

// Parameters is a versioned set of scheduling constants. Outputs of the
// scheduler are only reproducible for the same Version.
type Parameters struct {
	Version          string
	Weights          [21]float64
	DesiredRetention float64
	LearningSteps    []time.Duration
	RelearningSteps  []time.Duration
	MinimumInterval  int
	MaximumInterval  int
	EnableFuzz       bool
}

type parametersFile struct {
	Version          string    `yaml:"version"`
	DesiredRetention float64   `yaml:"desired_retention"`
	Weights          []float64 `yaml:"weights"`
	LearningSteps    []string  `yaml:"learning_steps"`
	RelearningSteps  []string  `yaml:"relearning_steps"`
	MinimumInterval  int       `yaml:"minimum_interval"`
	MaximumInterval  int       `yaml:"maximum_interval"`
	EnableFuzz       bool      `yaml:"enable_fuzz"`
}

var weightLowerBounds = [21]float64{
	0.001, 0.001, 0.001, 0.001,
	1.0, 0.001, 0.001, 0.001,
	0.0, 0.0, 0.001, 0.001,
	0.001, 0.001, 0.0, 0.0,
	1.0, 0.0, 0.0, 0.0,
	0.1,
}

var weightUpperBounds = [21]float64{
	100.0, 100.0, 100.0, 100.0,
	10.0, 4.0, 4.0, 0.75,
	4.5, 0.8, 3.5, 5.0,
	0.25, 0.9, 4.0, 1.0,
	6.0, 2.0, 2.0, 0.8,
	0.8,
}

// DefaultParameters returns the embedded default parameter set.
func DefaultParameters() Parameters {
	data, err := paramsFS.ReadFile("params/fsrs-6-default.yaml")
	if err != nil {
		panic(fmt.Sprintf("flashcard: embedded parameters missing: %v", err))
	}
	p, err := ParseParameters(data)
	if err != nil {
		panic(fmt.Sprintf("flashcard: embedded parameters invalid: %v", err))
	}
	return p
}

// LoadParameters reads a parameter set from a YAML file. An empty path
// returns the default set.
func LoadParameters(path string) (Parameters, error) {
	if path == "" {
		return DefaultParameters(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Parameters{}, fmt.Errorf("read parameters %s: %w", path, err)
	}
	return ParseParameters(data)
}

func ParseParameters(data []byte) (Parameters, error) {
	var f parametersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Parameters{}, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if len(f.Weights) != 21 {
		return Parameters{}, fmt.Errorf("%w: expected 21 weights, got %d", ErrInvalidParameters, len(f.Weights))
	}

	p := Parameters{
		Version:          f.Version,
		DesiredRetention: f.DesiredRetention,
		MinimumInterval:  f.MinimumInterval,
		MaximumInterval:  f.MaximumInterval,
		EnableFuzz:       f.EnableFuzz,
	}
	copy(p.Weights[:], f.Weights)

	var err error
	if p.LearningSteps, err = parseSteps(f.LearningSteps); err != nil {
		return Parameters{}, err
	}
	if p.RelearningSteps, err = parseSteps(f.RelearningSteps); err != nil {
		return Parameters{}, err
	}
	if err := p.Validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

// EncodeParameters renders p in the same YAML layout ParseParameters reads.
func EncodeParameters(p Parameters) ([]byte, error) {
	f := parametersFile{
		Version:          p.Version,
		DesiredRetention: p.DesiredRetention,
		Weights:          p.Weights[:],
		LearningSteps:    formatSteps(p.LearningSteps),
		RelearningSteps:  formatSteps(p.RelearningSteps),
		MinimumInterval:  p.MinimumInterval,
		MaximumInterval:  p.MaximumInterval,
		EnableFuzz:       p.EnableFuzz,
	}
	return yaml.Marshal(f)
}

func (p Parameters) Validate() error {
	if p.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidParameters)
	}
	for i, w := range p.Weights {
		if w < weightLowerBounds[i] || w > weightUpperBounds[i] {
			return fmt.Errorf("%w: w[%d] = %f, bounds [%f, %f]",
				ErrInvalidParameters, i, w, weightLowerBounds[i], weightUpperBounds[i])
		}
	}
	if p.DesiredRetention <= 0 || p.DesiredRetention >= 1 {
		return fmt.Errorf("%w: desired retention %f out of range (0, 1)", ErrInvalidParameters, p.DesiredRetention)
	}
	if p.MinimumInterval < 1 {
		return fmt.Errorf("%w: minimum interval must be at least 1 day", ErrInvalidParameters)
	}
	if p.MaximumInterval < p.MinimumInterval {
		return fmt.Errorf("%w: maximum interval %d below minimum %d", ErrInvalidParameters, p.MaximumInterval, p.MinimumInterval)
	}
	for _, steps := range [][]time.Duration{p.LearningSteps, p.RelearningSteps} {
		for _, d := range steps {
			if d <= 0 {
				return fmt.Errorf("%w: step %v must be positive", ErrInvalidParameters, d)
			}
		}
	}
	return nil
}

func parseSteps(in []string) ([]time.Duration, error) {
	out := make([]time.Duration, 0, len(in))
	for _, s := range in {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("%w: step %q: %v", ErrInvalidParameters, s, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func formatSteps(in []time.Duration) []string {
	out := make([]string, len(in))
	for i, d := range in {
		out[i] = d.String()
	}
	return out
}
