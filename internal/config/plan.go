package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"seqedit/pkg/domain"
)

// PlanStep is one action of a batch plan file.
type PlanStep struct {
	Kind     string `yaml:"kind" json:"kind"`
	Sequence string `yaml:"sequence" json:"sequence"`
	Start    int    `yaml:"start" json:"start"`
	End      int    `yaml:"end,omitempty" json:"end,omitempty"`
	Strand   string `yaml:"strand,omitempty" json:"strand,omitempty"`
	Payload  string `yaml:"payload,omitempty" json:"payload,omitempty"`
}

// ActionKind returns the step kind.
func (s PlanStep) ActionKind() domain.ActionKind {
	return domain.ActionKind(strings.ToLower(strings.TrimSpace(s.Kind)))
}

// Region returns the target region of the step.
func (s PlanStep) Region() domain.Region {
	return domain.Region{SequenceID: s.Sequence, Start: s.Start, End: s.End, Strand: domain.Strand(s.Strand)}
}

// LoadPlan reads a list of steps from a YAML or JSON file.
func LoadPlan(path string) ([]PlanStep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var steps []PlanStep
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &steps)
	case ".yml", ".yaml":
		err = yaml.UnmarshalWithOptions(data, &steps, yaml.Strict())
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	for i, step := range steps {
		if !step.ActionKind().Valid() {
			return nil, fmt.Errorf("plan step %d: unknown kind %q", i, step.Kind)
		}
	}
	return steps, nil
}
