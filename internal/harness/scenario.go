package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/manp/internal/manp"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path of a CUE file or directory holding the program.
	// Relative paths are resolved against the scenario file's directory.
	Program string `yaml:"program,omitempty"`

	// Source is an inline CUE program, used instead of Program.
	Source string `yaml:"source,omitempty"`

	// Function names the function to analyze. It may be omitted when the
	// program has exactly one function.
	Function string `yaml:"function,omitempty"`

	// MaxBits bounds squared norm widths (manp.Config.MaxBits).
	MaxBits uint `yaml:"max_bits,omitempty"`

	// Expect lists annotations that must be present. Values not listed are
	// not checked.
	Expect []Expectation `yaml:"expect,omitempty"`

	// ExpectMaxMANP is the expected largest MANP of the function.
	ExpectMaxMANP string `yaml:"expect_max_manp,omitempty"`

	// ExpectError is set when the analysis must fail.
	ExpectError *ExpectedError `yaml:"expect_error,omitempty"`
}

// Expectation is the expected annotation of one value.
// Numbers are decimal strings so that they are not limited to 64 bits.
type Expectation struct {
	Value  string `yaml:"value"`
	SqNorm string `yaml:"sq_norm,omitempty"`
	MANP   string `yaml:"manp,omitempty"`
}

// ExpectedError is the expected diagnostic of a failing analysis.
type ExpectedError struct {
	Code  string `yaml:"code"`
	Value string `yaml:"value,omitempty"`
	Op    string `yaml:"op,omitempty"`
}

var knownCodes = map[string]bool{
	string(manp.ErrCodeUnsupportedOperation): true,
	string(manp.ErrCodeMalformedGraph):       true,
	string(manp.ErrCodeWidthOverflow):        true,
}

// LoadScenario reads and parses a scenario YAML file.
// The program path is resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the program path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) && basePath != "" {
		scenario.Program = filepath.Join(basePath, scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Program == "" && s.Source == "":
		return fmt.Errorf("one of program or source is required")
	case s.Program != "" && s.Source != "":
		return fmt.Errorf("program and source are mutually exclusive")
	}

	if s.Program != "" {
		if _, err := os.Stat(s.Program); os.IsNotExist(err) {
			return fmt.Errorf("program not found: %s", s.Program)
		}
	}

	hasExpect := len(s.Expect) > 0 || s.ExpectMaxMANP != ""
	if !hasExpect && s.ExpectError == nil {
		return fmt.Errorf("one of expect, expect_max_manp or expect_error is required")
	}
	if hasExpect && s.ExpectError != nil {
		return fmt.Errorf("expect and expect_error are mutually exclusive")
	}

	for i, e := range s.Expect {
		if e.Value == "" {
			return fmt.Errorf("expect[%d]: value is required", i)
		}
		if e.SqNorm == "" && e.MANP == "" {
			return fmt.Errorf("expect[%d]: one of sq_norm or manp is required", i)
		}
	}

	if s.ExpectError != nil {
		if s.ExpectError.Code == "" {
			return fmt.Errorf("expect_error: code is required")
		}
		if !knownCodes[s.ExpectError.Code] {
			return fmt.Errorf("expect_error: unknown code %q", s.ExpectError.Code)
		}
	}

	return nil
}

// FindScenarios returns the YAML scenario files under dir, in lexical
// order. A non-empty filter is a glob matched against the file name
// without extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}
