// config.go loads default -I/-D lists from an optional YAML config file, so
// a project can check in a `.pp.yaml` instead of repeating the same flags
// on every invocation.
package cpp

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of a -config file: default include paths and
// macro definitions merged ahead of whatever the command line supplies.
type Config struct {
	Include []string `yaml:"include"`
	Define  []string `yaml:"define"`
	Undef   []string `yaml:"undef"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyTo merges the config's defaults into opts, with whatever opts
// already contains taking precedence by being appended after (so a
// command-line -D overriding a config-file -D still wins on redefinition,
// matching MacroTable.insert's "last one wins" rule).
func (c *Config) ApplyTo(opts *PreprocessorOptions) {
	if c == nil {
		return
	}
	opts.IncludePaths = append(append([]string{}, c.Include...), opts.IncludePaths...)
	opts.Defines = append(append([]string{}, c.Define...), opts.Defines...)
	opts.Undefines = append(append([]string{}, c.Undef...), opts.Undefines...)
}
