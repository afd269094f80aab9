package config

// ComponentConfig holds per-component configuration for one NHANES survey
// component. This allows narrowing or tuning the fetch behavior per component.
type ComponentConfig struct {
	// ListingURL overrides the listing page URL for this component.
	// If empty, the global template is used with the component name.
	ListingURL string `yaml:"listingURL,omitempty"`

	// Cycles restricts downloads to the given survey cycles
	// (e.g. "2017-2018"). Empty means all cycles.
	Cycles []string `yaml:"cycles,omitempty"`

	// Disabled excludes this component from fetch runs without removing
	// its configuration.
	Disabled bool `yaml:"disabled,omitempty"`
}

// File represents the structure of the .nhaneskit configuration file.
type File struct {
	// Components maps NHANES component names to their configurations.
	// When non-empty, only the listed, non-disabled components are fetched.
	Components map[string]ComponentConfig `yaml:"components,omitempty"`

	// Defaults contains default component configuration applied to all
	// components unless overridden per component.
	Defaults ComponentConfig `yaml:"defaults,omitempty"`
}

// GetComponentConfig returns the configuration for a specific component.
// It merges the component-specific configuration with defaults.
func (cf *File) GetComponentConfig(component string) ComponentConfig {
	result := cf.Defaults

	if cc, ok := cf.Components[component]; ok {
		if cc.ListingURL != "" {
			result.ListingURL = cc.ListingURL
		}
		if len(cc.Cycles) > 0 {
			result.Cycles = cc.Cycles
		}
		if cc.Disabled {
			result.Disabled = true
		}
	}

	return result
}

// ComponentNames returns the configured component names, or nil when the
// file lists none. Disabled components are excluded.
func (cf *File) ComponentNames() []string {
	if len(cf.Components) == 0 {
		return nil
	}

	names := make([]string, 0, len(cf.Components))
	for name, cc := range cf.Components {
		if cc.Disabled {
			continue
		}
		names = append(names, name)
	}
	return names
}

// WantsCycle reports whether files from the given survey cycle should be
// downloaded for this component. An empty cycle filter accepts every cycle.
func (cc ComponentConfig) WantsCycle(cycle string) bool {
	if len(cc.Cycles) == 0 {
		return true
	}
	for _, c := range cc.Cycles {
		if c == cycle {
			return true
		}
	}
	return false
}
