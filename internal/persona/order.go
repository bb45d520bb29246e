package persona

import (
	"strings"

	"github.com/samber/lo"
)

// builtin is the full set of known personas keyed by alias.
var builtin = map[string]Profile{
	WebProfile.Alias:         WebProfile,
	MWebProfile.Alias:        MWebProfile,
	AndroidProfile.Alias:     AndroidProfile,
	IOSProfile.Alias:         IOSProfile,
	TVProfile.Alias:          TVProfile,
	WebEmbeddedProfile.Alias: WebEmbeddedProfile,
}

// Lookup returns the builtin profile for a configuration alias.
func Lookup(alias string) (Profile, bool) {
	p, ok := builtin[strings.ToLower(strings.TrimSpace(alias))]
	return p, ok
}

// defaultOrder mirrors the operator-tuned practical defaults: an untokened
// app persona first, then the richer web surfaces, then the TV fallback.
func defaultOrder(authenticated bool) []string {
	if authenticated {
		return []string{"tv", "web", "web_embedded"}
	}
	return []string{"android", "web", "ios", "web_embedded"}
}

// Order resolves the configured persona order into concrete profiles.
// Unknown and duplicate aliases are dropped; an empty or fully invalid
// configuration falls back to the package defaults. Priority reflects the
// final position and is fixed for the life of a resolution call.
func Order(configured []string, authenticated bool) []Profile {
	aliases := lo.FilterMap(configured, func(raw string, _ int) (string, bool) {
		alias := strings.ToLower(strings.TrimSpace(raw))
		return alias, alias != ""
	})
	aliases = lo.Uniq(aliases)

	profiles := lo.FilterMap(aliases, func(alias string, _ int) (Profile, bool) {
		return Lookup(alias)
	})
	if len(profiles) == 0 {
		profiles = lo.FilterMap(defaultOrder(authenticated), func(alias string, _ int) (Profile, bool) {
			return Lookup(alias)
		})
	}

	for i := range profiles {
		profiles[i].Priority = i
	}
	return profiles
}
