// SPDX-License-Identifier: MIT

package config

// LoadFileConfig loads a YAML config file without applying defaults or env
// overrides.
func LoadFileConfig(path string) (*FileConfig, error) {
	loader := NewLoader(path, "")
	return loader.loadFile(path)
}
