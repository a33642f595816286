package priors

import (
	"slices"
	"strings"

	"github.com/sells-group/veracity-cli/internal/model"
)

// Lookup resolves a normalized domain to its prior.
type Lookup map[string]model.SourcePrior

// NewLookup indexes priors by normalized domain.
func NewLookup(ps []model.SourcePrior) Lookup {
	l := make(Lookup, len(ps))
	for _, p := range ps {
		l[NormalizeDomain(p.Domain)] = p
	}
	return l
}

// Get returns the prior for domain and whether one exists.
func (l Lookup) Get(domain string) (model.SourcePrior, bool) {
	p, ok := l[NormalizeDomain(domain)]
	return p, ok
}

func sortByDomain(ps []model.SourcePrior) {
	slices.SortFunc(ps, func(a, b model.SourcePrior) int {
		return strings.Compare(a.Domain, b.Domain)
	})
}
