package provider

// Resolver merges provider settings from three layers: global defaults,
// descriptor defaults, then the configured values for that provider, with
// caller overrides applied on top. The configured-values source is injected
// so the resolver itself stays a pure merge.
type Resolver struct {
	global     Settings
	configured func(name string) Settings
}

// NewResolver creates a settings resolver. configured is the external
// configuration collaborator; it is re-queried on every resolve so runtime
// credential changes are picked up.
func NewResolver(global Settings, configured func(name string) Settings) *Resolver {
	if configured == nil {
		configured = func(string) Settings { return nil }
	}
	return &Resolver{global: global, configured: configured}
}

// Resolve merges settings for the descriptor and verifies every required
// key is present. Precedence, lowest first: global defaults, descriptor
// defaults, configured values, caller overrides.
func (r *Resolver) Resolve(d *Descriptor, overrides Settings) (Settings, error) {
	merged := make(Settings)
	for k, v := range r.global {
		merged[k] = v
	}
	for k, v := range d.Defaults {
		merged[k] = v
	}
	for k, v := range r.configured(d.Name) {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	var missing []string
	for _, key := range d.RequiredKeys {
		if merged[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingRequiredConfigError{Name: d.Name, Missing: missing}
	}

	return merged, nil
}

// Configured reports whether the descriptor's required keys are all present
// without caller overrides.
func (r *Resolver) Configured(d *Descriptor) bool {
	_, err := r.Resolve(d, nil)
	return err == nil
}
