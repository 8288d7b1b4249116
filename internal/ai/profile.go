package ai

import "strings"

// Profile tunes a generation call site.
type Profile struct {
	Name            string  `mapstructure:"name"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxOutputTokens int     `mapstructure:"max-output-tokens"`
}

var (
	// Precise is used where structured, reproducible output is parsed.
	Precise = Profile{Name: "precise", Temperature: 0.2, MaxOutputTokens: 1024}
	// Conversational is used for questions asked to the candidate.
	Conversational = Profile{Name: "conversational", Temperature: 0.7, MaxOutputTokens: 512}
	// Creative is used for long narrative texts.
	Creative = Profile{Name: "creative", Temperature: 0.9, MaxOutputTokens: 4096}
)

// Profiles groups the three recognised profiles so they can be overridden from config.
type Profiles struct {
	Precise        *Profile `mapstructure:"precise"`
	Conversational *Profile `mapstructure:"conversational"`
	Creative       *Profile `mapstructure:"creative"`
}

// WithDefaults fills unset profiles and fields from the built-ins.
func (p Profiles) WithDefaults() Profiles {
	return Profiles{
		Precise:        merge(p.Precise, Precise),
		Conversational: merge(p.Conversational, Conversational),
		Creative:       merge(p.Creative, Creative),
	}
}

// Lookup returns the profile with the given name, falling back to Conversational.
func (p Profiles) Lookup(name string) Profile {
	p = p.WithDefaults()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Precise.Name:
		return *p.Precise
	case Creative.Name:
		return *p.Creative
	default:
		return *p.Conversational
	}
}

func merge(override *Profile, base Profile) *Profile {
	out := base
	if override == nil {
		return &out
	}
	if override.Temperature > 0 {
		out.Temperature = override.Temperature
	}
	if override.MaxOutputTokens > 0 {
		out.MaxOutputTokens = override.MaxOutputTokens
	}
	return &out
}
