package notebook

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bobg/bookshelf/frame"
)

// DataDictionary describes the dimensions of a dataset's timeseries.
type DataDictionary []DimensionSpec

// DimensionSpec describes one dimension.
type DimensionSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Required dimensions must be present in every timeseries.
	Required bool `yaml:"required_column"`

	// AllowedNA permits empty values.
	AllowedNA bool `yaml:"allowed_NA"`

	// ControlledVocabulary, if non-empty, lists the only permitted values.
	ControlledVocabulary []Term `yaml:"controlled_vocabulary"`
}

// Term is one permitted value of a dimension.
type Term struct {
	Value       string `yaml:"value"`
	Description string `yaml:"description"`
}

// ValidationError lists the ways a timeseries violates a data dictionary.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "data dictionary violations: " + strings.Join(e.Problems, "; ")
}

// Validate checks ts against the dictionary:
// every dimension of ts must be described,
// required dimensions must be present,
// values may be empty only where allowed,
// and controlled vocabularies must be respected.
// An empty dictionary accepts anything.
func (dd DataDictionary) Validate(ts *frame.Timeseries) error {
	if len(dd) == 0 {
		return nil
	}

	specs := make(map[string]DimensionSpec, len(dd))
	for _, s := range dd {
		specs[s.Name] = s
	}

	var problems []string

	present := make(map[string]int, len(ts.Dimensions))
	for i, dim := range ts.Dimensions {
		present[dim] = i
		if _, ok := specs[dim]; !ok {
			problems = append(problems, fmt.Sprintf("dimension %q is not in the data dictionary", dim))
		}
	}

	for _, s := range dd {
		i, ok := present[s.Name]
		if !ok {
			if s.Required {
				problems = append(problems, fmt.Sprintf("required dimension %q is missing", s.Name))
			}
			continue
		}

		var vocab map[string]bool
		if len(s.ControlledVocabulary) > 0 {
			vocab = make(map[string]bool, len(s.ControlledVocabulary))
			for _, t := range s.ControlledVocabulary {
				vocab[t.Value] = true
			}
		}

		var (
			empty   bool
			unknown = make(map[string]bool)
		)
		for _, series := range ts.Series {
			v := series.Meta[i]
			switch {
			case v == "":
				empty = true
			case vocab != nil && !vocab[v]:
				unknown[v] = true
			}
		}
		if empty && !s.AllowedNA {
			problems = append(problems, fmt.Sprintf("dimension %q has empty values", s.Name))
		}
		if len(unknown) > 0 {
			vals := make([]string, 0, len(unknown))
			for v := range unknown {
				vals = append(vals, fmt.Sprintf("%q", v))
			}
			sort.Strings(vals)
			problems = append(problems, fmt.Sprintf("dimension %q has values outside its controlled vocabulary: %s", s.Name, strings.Join(vals, ", ")))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
