package model

// Referrers every entity may be configured under besides relation paths.
const (
	ReferrerStandard = "standard"
	ReferrerList     = "list"
	ReferrerSingle   = "single"
)

// RelationReferrer is the referrer of an entity embedded through a relation,
// e.g. "Cabin.facilities".
func RelationReferrer(parent, relation string) string {
	return parent + "." + relation
}

// ResolveAPI returns the configuration registered under the first matching
// candidate, most specific first, falling back to "standard".
func (e *Entity) ResolveAPI(candidates ...string) *APIConfig {
	for _, ref := range candidates {
		if ref == "" {
			continue
		}
		if cfg, ok := e.API[ref]; ok {
			return cfg
		}
	}
	return e.API[ReferrerStandard]
}
