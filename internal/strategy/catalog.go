package strategy

import (
	"fmt"
	"sort"
)

// #region catalog

// Catalog maps strategy names to factories for the built-in families.
var Catalog = map[string]Factory{
	"boulware": func(p Params) (Strategy, error) {
		return NewTimeConcession("boulware", DefaultTimeConcessionConfig(BoulwareExponent), p)
	},
	"linear": func(p Params) (Strategy, error) {
		return NewTimeConcession("linear", DefaultTimeConcessionConfig(LinearExponent), p)
	},
	"conceder": func(p Params) (Strategy, error) {
		return NewTimeConcession("conceder", DefaultTimeConcessionConfig(ConcederExponent), p)
	},
	"parscat": func(p Params) (Strategy, error) {
		return NewParsCat(p)
	},
	"iamhaggler": func(p Params) (Strategy, error) {
		return NewIAMhaggler(DefaultIAMhagglerConfig(), p)
	},
}

// #endregion catalog

// #region lookup

// New builds the named built-in strategy.
func New(name string, p Params) (Strategy, error) {
	f, ok := Catalog[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: %w", name, ErrUnknownStrategy)
	}
	s, err := f(p)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return s, nil
}

// Names returns the catalog names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Catalog))
	for n := range Catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// #endregion lookup
