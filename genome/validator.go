package genome

import (
	"fmt"
	"math"
)

// ValidationError reports one out-of-range or malformed gene.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ConfigurationError is returned for settings that make training impossible,
// such as inverted gene bounds or a non-positive population size. It is
// always reported before the first generation starts.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
	}
	return "configuration error: " + e.Message
}

// Validate checks that every declared range is finite and non-inverted and
// that every default lies inside its range.
func (s *Schema) Validate() error {
	for i, spec := range s {
		field := "gene_bounds." + Gene(i).String()
		switch {
		case spec.Name == "":
			return &ConfigurationError{Field: field, Message: "gene has no name"}
		case !finite(spec.Min) || !finite(spec.Max) || !finite(spec.Default):
			return &ConfigurationError{Field: field, Message: "bounds must be finite"}
		case spec.Min > spec.Max:
			return &ConfigurationError{
				Field:   field,
				Message: fmt.Sprintf("min %.3f is greater than max %.3f", spec.Min, spec.Max),
			}
		case spec.Default < spec.Min || spec.Default > spec.Max:
			return &ConfigurationError{
				Field:   field,
				Message: fmt.Sprintf("default %.3f outside [%.3f, %.3f]", spec.Default, spec.Min, spec.Max),
			}
		}
	}
	return nil
}

// GenomeValidator reports genes that Normalize would change.
type GenomeValidator struct {
	Schema *Schema
}

// Validate returns a list of validation errors (empty = already normalized).
func (v *GenomeValidator) Validate(g *Genome) []ValidationError {
	schema := v.Schema
	if schema == nil {
		schema = &defaultSchema
	}

	var errors []ValidationError
	for i, value := range g.Genes {
		spec := schema[i]
		switch {
		case !finite(value):
			errors = append(errors, ValidationError{
				Field:   spec.Name,
				Message: "value is not a finite number",
			})
		case value < spec.Min || value > spec.Max:
			errors = append(errors, ValidationError{
				Field:   spec.Name,
				Message: fmt.Sprintf("%.4f outside [%.3f, %.3f]", value, spec.Min, spec.Max),
			})
		}
	}
	return errors
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
