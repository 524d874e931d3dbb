package extract

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOverrides replaces strategy lists for any site named in the YAML
// file. Only the lists present in the file are replaced; omitted fields
// keep their built-in values. Selector lists are volatile configuration,
// so operators can patch a broken site without a release.
func (e *Extractor) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read selector overrides: %w", err)
	}
	return e.applyOverrides(data)
}

func (e *Extractor) applyOverrides(data []byte) error {
	var overrides map[Site]Strategies
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse selector overrides: %w", err)
	}

	for site, ov := range overrides {
		base, ok := e.sites[site]
		if !ok {
			return fmt.Errorf("selector overrides name unknown site %q", site)
		}
		if len(ov.Title) > 0 {
			base.Title = ov.Title
		}
		if len(ov.Price) > 0 {
			base.Price = ov.Price
		}
		if len(ov.Availability) > 0 {
			base.Availability = ov.Availability
		}
		if len(ov.PriceFallback) > 0 {
			base.PriceFallback = ov.PriceFallback
		}
		e.sites[site] = base
	}
	return nil
}
