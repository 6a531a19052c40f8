package testkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"

	"abtester/ports"
)

// Shape is the distribution a synthetic group is drawn from
type Shape string

const (
	ShapeNormal    Shape = "normal"
	ShapeLogNormal Shape = "lognormal"
	ShapeUniform   Shape = "uniform"
	// ShapeOutlier is a near-constant sample with one extreme value
	ShapeOutlier Shape = "outlier"
)

// GroupSpec describes one synthetic group
type GroupSpec struct {
	Label string  `json:"label"`
	Size  int     `json:"size"`
	Shape Shape   `json:"shape"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
}

// SampleGeneratorConfig configures the A/B sample generator
type SampleGeneratorConfig struct {
	GroupColumn string      `json:"group_column"`
	ValueColumn string      `json:"value_column"`
	Groups      []GroupSpec `json:"groups"`
	Seed        int64       `json:"seed"`
}

// DefaultSampleConfig returns two normal groups of 150 with a small mean shift
func DefaultSampleConfig() SampleGeneratorConfig {
	return SampleGeneratorConfig{
		GroupColumn: "version",
		ValueColumn: "value",
		Groups: []GroupSpec{
			{Label: "A", Size: 150, Shape: ShapeNormal, Mean: 50, Std: 10},
			{Label: "B", Size: 150, Shape: ShapeNormal, Mean: 52, Std: 10},
		},
		Seed: 42,
	}
}

// SampleGenerator produces reproducible synthetic groups
type SampleGenerator struct {
	config SampleGeneratorConfig
	rng    ports.RNGPort
}

// NewSampleGenerator creates a generator backed by SeededRNG
func NewSampleGenerator(config SampleGeneratorConfig) *SampleGenerator {
	return NewSampleGeneratorWithRNG(config, SeededRNG{})
}

// NewSampleGeneratorWithRNG creates a generator over a custom RNG port
func NewSampleGeneratorWithRNG(config SampleGeneratorConfig, rng ports.RNGPort) *SampleGenerator {
	return &SampleGenerator{config: config, rng: rng}
}

// Generate returns the samples keyed by group label
func (g *SampleGenerator) Generate() map[string][]float64 {
	out := make(map[string][]float64, len(g.config.Groups))
	for _, group := range g.config.Groups {
		out[group.Label] = g.generateGroup(group)
	}
	return out
}

func (g *SampleGenerator) generateGroup(group GroupSpec) []float64 {
	r := g.rng.Stream(group.Label, g.config.Seed)
	values := make([]float64, group.Size)
	for i := range values {
		values[i] = draw(r, group, i)
	}
	return values
}

func draw(r *rand.Rand, group GroupSpec, i int) float64 {
	switch group.Shape {
	case ShapeLogNormal:
		// Std is the sigma of the underlying normal
		return math.Exp(math.Log(group.Mean) + group.Std*r.NormFloat64())
	case ShapeUniform:
		half := group.Std * math.Sqrt(3)
		return group.Mean - half + 2*half*r.Float64()
	case ShapeOutlier:
		if i == group.Size-1 {
			return group.Mean + 100*group.Std
		}
		return group.Mean + group.Std*r.NormFloat64()
	}
	return group.Mean + group.Std*r.NormFloat64()
}

// WriteCSV writes the generated groups as a long-format table with a
// group column and a value column
func (g *SampleGenerator) WriteCSV(w io.Writer) error {
	samples := g.Generate()

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{g.config.GroupColumn, g.config.ValueColumn}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, group := range g.config.Groups {
		for _, v := range samples[group.Label] {
			row := []string{group.Label, strconv.FormatFloat(v, 'f', -1, 64)}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
