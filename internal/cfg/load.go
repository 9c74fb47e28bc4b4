package cfg

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load builds a Config starting from Default, overlaying an optional YAML
// file at path (skipped if path is empty; a path that does not exist is an
// error) and finally the bound pflag/viper values, the same override order
// the mount tool documents for its own config: defaults, then file, then
// flags/env.
func Load(path string, v *viper.Viper) (Config, error) {
	config := Default()

	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config file %q not found: %w", path, err)
			}
			return Config{}, fmt.Errorf("reading config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("parsing config file %q: %w", path, err)
		}
	}

	if v != nil {
		if data != nil {
			// Feed the file to viper so an unset flag's default does not
			// override a value the file provides.
			var raw map[string]any
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return Config{}, fmt.Errorf("parsing config file %q: %w", path, err)
			}
			if err := v.MergeConfigMap(raw); err != nil {
				return Config{}, fmt.Errorf("merging config file %q: %w", path, err)
			}
		}
		if err := v.Unmarshal(&config, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
			return Config{}, fmt.Errorf("applying bound flags: %w", err)
		}
	}

	if err := Validate(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}
