package processors

import "glyph-skeleton/internal/results"

// Summary is the result of the built-in class strategies.
type Summary struct {
	Processor   string
	Branches    int
	TotalLength float64
	ByType      map[string]int
}

// SummaryStrategy reports branch counts and total length, tagged with name.
func SummaryStrategy(name string) Strategy {
	return StrategyFunc(func(table results.Table) (Result, error) {
		byType := make(map[string]int)
		for kind, n := range table.CountByType() {
			byType[kind.String()] = n
		}
		return Summary{
			Processor:   name,
			Branches:    len(table),
			TotalLength: table.TotalLength(),
			ByType:      byType,
		}, nil
	})
}

// Default returns a sealed registry with the built-in classes A and B.
func Default() *Registry {
	r := NewRegistry()
	// Labels are constant and distinct, registration cannot fail.
	_ = r.Register("A", SummaryStrategy("AProcessor"))
	_ = r.Register("B", SummaryStrategy("BProcessor"))
	r.Seal()
	return r
}
