package ranking

import (
	"sort"

	"vastdeploy/internal/estimate"
	"vastdeploy/internal/marketplace"
)

// Option is an offer paired with its estimated cost
type Option struct {
	Offer *marketplace.Offer `json:"offer"`
	Cost  estimate.Breakdown `json:"cost"`
}

// Rank estimates every offer and orders them cheapest first by window total.
// Offers with equal totals keep the order the marketplace returned them in.
func Rank(offers []*marketplace.Offer, a estimate.Assumptions) []Option {
	options := make([]Option, 0, len(offers))
	for _, o := range offers {
		options = append(options, Option{Offer: o, Cost: a.Estimate(o)})
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Cost.WindowTotal < options[j].Cost.WindowTotal
	})

	return options
}

// Top returns at most n options from the front of a ranked list
func Top(options []Option, n int) []Option {
	if n < 0 {
		n = 0
	}
	if len(options) < n {
		n = len(options)
	}
	return options[:n]
}
