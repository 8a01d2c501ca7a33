package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TestCase is a single evaluation case for a prompt.
type TestCase struct {
	// Name identifies the case in reports.
	Name string `yaml:"name" json:"name"`
	// Input maps template placeholder names to values.
	Input map[string]string `yaml:"input" json:"input"`
	// Expected describes the expected output, if any.
	Expected string `yaml:"expected,omitempty" json:"expected,omitempty"`
	// Criteria gives the judge additional scoring guidance.
	Criteria string `yaml:"criteria,omitempty" json:"criteria,omitempty"`
}

// TestSuite is a named collection of test cases.
type TestSuite struct {
	// Name identifies the suite.
	Name string `yaml:"name"`
	// Cases are the evaluation cases.
	Cases []TestCase `yaml:"cases"`
}

// LoadTestSuite reads a test suite from a YAML file.
func LoadTestSuite(path string) (*TestSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test suite: %w", err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parse test suite: %w", err)
	}
	if len(suite.Cases) == 0 {
		return nil, fmt.Errorf("test suite %s has no cases", path)
	}
	for i, c := range suite.Cases {
		if c.Name == "" {
			return nil, fmt.Errorf("test suite %s: case %d has no name", path, i)
		}
	}
	return &suite, nil
}
