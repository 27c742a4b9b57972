package predict

type Tiers struct {
	SafeLow  Tier
	Standard Tier
	Fast     Tier
	Fastest  Tier
}

// SelectTiers picks, for each threshold, the cheapest price in t accepted by at
// least that percentage of hashpower. Fastest is the cheapest price with the
// highest acceptance in t; it is unavailable if nothing is accepted at all.
// t must be sorted by increasing price.
func SelectTiers(t Table, th Thresholds) Tiers {
	return Tiers{
		SafeLow:  minPriceAccepting(t, th.SafeLow),
		Standard: minPriceAccepting(t, th.Standard),
		Fast:     minPriceAccepting(t, th.Fast),
		Fastest:  maxAcceptingPrice(t),
	}
}

func minPriceAccepting(t Table, pct float64) Tier {
	for _, r := range t {
		if float64(r.Accepting) >= pct {
			return Tier{Bucket: r.GasPrice, OK: true}
		}
	}
	return Tier{}
}

func maxAcceptingPrice(t Table) Tier {
	var best Tier
	max := 0
	for _, r := range t {
		if r.Accepting > max {
			max = r.Accepting
			best = Tier{Bucket: r.GasPrice, OK: true}
		}
	}
	return best
}
