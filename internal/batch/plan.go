package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"abtester/adapters/dataset"
	"abtester/domain/experiment"
	"abtester/internal/errors"
)

// Plan describes a set of A/B comparisons over one dataset
type Plan struct {
	DataFile    string       `yaml:"data_file"`
	GroupColumn string       `yaml:"group_column"`
	ValueColumn string       `yaml:"value_column"`
	Workers     int          `yaml:"workers,omitempty"`
	Defaults    Defaults     `yaml:"defaults,omitempty"`
	Comparisons []Comparison `yaml:"comparisons"`
}

// Defaults apply to every comparison that leaves the field unset
type Defaults struct {
	Alpha       float64                `yaml:"alpha,omitempty"`
	Alternative experiment.Alternative `yaml:"alternative,omitempty"`
	RankTest    experiment.RankTest    `yaml:"rank_test,omitempty"`
	Filter      dataset.Filter         `yaml:"filter,omitempty"`
}

// Comparison is one A/B pairing of group labels
type Comparison struct {
	Name        string                 `yaml:"name"`
	LabelA      string                 `yaml:"label_a"`
	LabelB      string                 `yaml:"label_b"`
	Alpha       float64                `yaml:"alpha,omitempty"`
	Alternative experiment.Alternative `yaml:"alternative,omitempty"`
	RankTest    experiment.RankTest    `yaml:"rank_test,omitempty"`
	Filter      *dataset.Filter        `yaml:"filter,omitempty"`
	// IncludeSwapped adds a job evaluating B against A with the flipped alternative
	IncludeSwapped bool `yaml:"include_swapped,omitempty"`
}

// LoadPlan reads a YAML plan. A relative data_file is resolved against the
// plan's directory.
func LoadPlan(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read plan %s", path)
	}
	plan, err := ParsePlan(raw)
	if err != nil {
		return nil, err
	}
	if plan.DataFile != "" && !filepath.IsAbs(plan.DataFile) {
		plan.DataFile = filepath.Join(filepath.Dir(path), plan.DataFile)
	}
	return plan, nil
}

// ParsePlan decodes and validates a YAML plan
func ParsePlan(raw []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("invalid plan: %w", err))
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Validate checks that every comparison resolves to a valid configuration
func (p *Plan) Validate() error {
	if p.GroupColumn == "" || p.ValueColumn == "" {
		return errors.ValidationError("plan needs group_column and value_column")
	}
	if len(p.Comparisons) == 0 {
		return errors.ValidationError("plan has no comparisons")
	}
	if p.Workers < 0 {
		return errors.ValidationError("workers must not be negative")
	}
	for i, c := range p.Comparisons {
		if c.LabelA == "" || c.LabelB == "" {
			return errors.ValidationError(fmt.Sprintf("comparison %d needs label_a and label_b", i+1))
		}
		if err := p.configFor(c).Validate(); err != nil {
			return errors.Wrapf(err, "comparison %q", c.displayName())
		}
	}
	return nil
}

func (p *Plan) configFor(c Comparison) experiment.Config {
	cfg := experiment.DefaultConfig()
	cfg.LabelA, cfg.LabelB = c.LabelA, c.LabelB
	if p.Defaults.Alpha != 0 {
		cfg.Alpha = p.Defaults.Alpha
	}
	if p.Defaults.Alternative != "" {
		cfg.Alternative = p.Defaults.Alternative
	}
	if p.Defaults.RankTest != "" {
		cfg.RankTest = p.Defaults.RankTest
	}
	if c.Alpha != 0 {
		cfg.Alpha = c.Alpha
	}
	if c.Alternative != "" {
		cfg.Alternative = c.Alternative
	}
	if c.RankTest != "" {
		cfg.RankTest = c.RankTest
	}
	return cfg
}

func (p *Plan) filterFor(c Comparison) dataset.Filter {
	if c.Filter != nil {
		return *c.Filter
	}
	return p.Defaults.Filter
}

func (c Comparison) displayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.LabelA + " vs " + c.LabelB
}

// Jobs splits the table into one job per comparison, plus the swapped
// counterpart where requested. A comparison whose split fails yields a job
// carrying that error.
func (p *Plan) Jobs(table *dataset.Table) []Job {
	jobs := make([]Job, 0, len(p.Comparisons))
	for _, c := range p.Comparisons {
		cfg := p.configFor(c)
		job := Job{Name: c.displayName(), Config: cfg}

		samples, err := dataset.Split(table, dataset.SplitConfig{
			GroupColumn: p.GroupColumn,
			ValueColumn: p.ValueColumn,
			LabelA:      c.LabelA,
			LabelB:      c.LabelB,
			Filter:      p.filterFor(c),
		})
		if err != nil {
			job.SplitErr = err
		} else {
			job.A, job.B = samples.A, samples.B
		}
		jobs = append(jobs, job)

		if c.IncludeSwapped {
			jobs = append(jobs, Job{
				Name:     job.Name + " (swapped)",
				A:        job.B,
				B:        job.A,
				Config:   cfg.Swapped(),
				SplitErr: job.SplitErr,
			})
		}
	}
	return jobs
}
