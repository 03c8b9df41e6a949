package genome

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MarshalJSON writes the genome as a flat gene-name to number mapping plus
// an "id" string.
func (g Genome) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, NumGenes+1)
	m["id"] = g.ID
	for i, v := range g.Genes {
		m[Gene(i).String()] = v
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads the flat mapping. Missing genes take their default
// value and unknown keys are ignored; callers normalize before use.
func (g *Genome) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode genome: %w", err)
	}

	out := defaultSchema.Default()
	for key, value := range raw {
		if key == "id" {
			if err := json.Unmarshal(value, &out.ID); err != nil {
				return fmt.Errorf("failed to decode genome id: %w", err)
			}
			continue
		}
		gene, ok := GeneByName(key)
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("failed to decode gene %s: %w", key, err)
		}
		out.Genes[gene] = v
	}
	*g = out
	return nil
}

// GeneMap returns the genome's genes keyed by name.
func (g *Genome) GeneMap() map[string]float64 {
	m := make(map[string]float64, NumGenes)
	for i, v := range g.Genes {
		m[Gene(i).String()] = v
	}
	return m
}

// Describe renders the genome as "name=value" lines in schema order.
func (g *Genome) Describe() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "id=%s\n", g.ID)
	for i := Gene(0); i < NumGenes; i++ {
		fmt.Fprintf(&buf, "%-30s %8.4f\n", i.String(), g.Genes[i])
	}
	return buf.String()
}

// SaveJSON writes a genome to path, creating the directory if needed.
// The file is written to a temp path first and renamed into place.
func SaveJSON(path string, g Genome) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal genome: %w", err)
	}
	return writeFileAtomic(path, data)
}

// LoadJSON reads a genome and normalizes it against schema (nil = default).
// Out-of-range genes are clamped, not rejected; the corrections are returned
// so callers can report them.
func LoadJSON(path string, schema *Schema) (Genome, []ValidationError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genome{}, nil, fmt.Errorf("failed to read genome: %w", err)
	}
	var g Genome
	if err := json.Unmarshal(data, &g); err != nil {
		return Genome{}, nil, err
	}
	if schema == nil {
		schema = &defaultSchema
	}
	v := &GenomeValidator{Schema: schema}
	issues := v.Validate(&g)
	return schema.Normalize(g), issues, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load reads a genome saved by SaveJSON or, for a ".fb" path, SaveBinary,
// normalized against schema (nil = default). Clamped genes are reported for
// JSON input only.
func Load(path string, schema *Schema) (Genome, []ValidationError, error) {
	if strings.EqualFold(filepath.Ext(path), ".fb") {
		g, err := LoadBinary(path, schema)
		return g, nil, err
	}
	return LoadJSON(path, schema)
}
