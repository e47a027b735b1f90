package transform

import (
	"github.com/care-sm/care2omop/omop"
	"github.com/care-sm/care2omop/tabular"
)

// AggregateVisits derives VISIT_OCCURRENCE from the untrimmed outputs of the
// visit-carrying domain tables. Each contribution is projected onto the full
// visit column set (columns the source lacks come in as null), the
// projections are concatenated in the order given, exact full-row duplicates
// are dropped, and the visit defaulting and date rules run over the result.
func (tr *Transformer) AggregateVisits(sources ...*tabular.Table) (*tabular.Table, error) {
	projected := make([]*tabular.Table, 0, len(sources))
	for _, src := range sources {
		if src == nil {
			continue
		}
		projected = append(projected, src.Project(omop.VisitOccurrenceColumns))
	}

	candidates := tabular.Concat(projected...)
	candidates.Deduplicate()

	tr.log.Debug().
		Int("candidates", candidates.Len()).
		Msg("Collected visit candidate rows")

	return tr.Apply(omop.VisitOccurrenceSpec, candidates)
}
