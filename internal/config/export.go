package config

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ExportTOML writes the current viper settings to w as TOML, for
// "flowctl config export --format toml" (the teacher's own
// cmd/bd/formula.go direct BurntSushi/toml dependency, given a home here
// as the alternate config export format alongside YAML; the loader reads
// only YAML).
func ExportTOML(w io.Writer) error {
	settings := v.AllSettings()
	enc := toml.NewEncoder(w)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("config: encode toml: %w", err)
	}
	return nil
}

// ExportYAML writes the current viper settings to w as YAML, encoding
// directly with gopkg.in/yaml.v3 rather than viper's own WriteConfigTo so
// the emitted document's indentation is ours to control. The settings are
// a map, so keys come out in yaml.v3's sorted order.
func ExportYAML(w io.Writer) error {
	settings := v.AllSettings()
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("config: encode yaml: %w", err)
	}
	return nil
}
