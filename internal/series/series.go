package series

import "slices"

type column struct {
	name string
	get  func(r *Record) float64
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var columns = []column{
	{"tick", func(r *Record) float64 { return float64(r.Tick) }},
	{"viable", func(r *Record) float64 { return b2f(r.Viable) }},
	{"lockdown", func(r *Record) float64 { return b2f(r.Lockdown) }},
	{"traffickers", func(r *Record) float64 { return float64(r.Traffickers) }},
	{"packagers", func(r *Record) float64 { return float64(r.Packagers) }},
	{"retailers", func(r *Record) float64 { return float64(r.Retailers) }},
	{"members", func(r *Record) float64 { return float64(r.Members) }},
	{"treasury", func(r *Record) float64 { return r.Treasury }},
	{"daily_revenue", func(r *Record) float64 { return r.DailyRevenue }},
	{"daily_expenses", func(r *Record) float64 { return r.DailyExpenses }},
	{"revenues", func(r *Record) float64 { return r.Revenues }},
	{"expenses", func(r *Record) float64 { return r.Expenses }},
	{"profit", func(r *Record) float64 { return r.Profit }},
	{"arrears", func(r *Record) float64 { return r.Arrears }},
	{"wholesale_price", func(r *Record) float64 { return r.WholesalePrice }},
	{"doses_demanded", func(r *Record) float64 { return float64(r.DosesDemanded) }},
	{"doses_sold", func(r *Record) float64 { return float64(r.DosesSold) }},
	{"acquisitions", func(r *Record) float64 { return float64(r.Acquisitions) }},
	{"recruits", func(r *Record) float64 { return float64(r.Recruits) }},
	{"arrested_minor", func(r *Record) float64 { return float64(r.ArrestedMinor) }},
	{"arrested_major", func(r *Record) float64 { return float64(r.ArrestedMajor) }},
	{"stock_traffickers", func(r *Record) float64 { return r.StockTraffickers }},
	{"stock_packagers", func(r *Record) float64 { return r.StockPackagers }},
	{"stock_retailers", func(r *Record) float64 { return r.StockRetailers }},
	{"stock", func(r *Record) float64 { return r.Stock() }},
	{"seized_drug", func(r *Record) float64 { return r.SeizedDrug }},
	{"exhaust_traffickers", func(r *Record) float64 { return float64(r.ExhaustTraffickers) }},
	{"exhaust_packagers", func(r *Record) float64 { return float64(r.ExhaustPackagers) }},
	{"exhaust_retailers", func(r *Record) float64 { return float64(r.ExhaustRetailers) }},
	{"stats_tick", func(r *Record) float64 { return float64(r.StatsTick) }},
	{"edges", func(r *Record) float64 { return float64(r.Network.Edges) }},
	{"components", func(r *Record) float64 { return float64(r.Network.Components) }},
	{"largest_component", func(r *Record) float64 { return float64(r.Network.LargestComponent) }},
	{"min_degree", func(r *Record) float64 { return r.Network.MinDegree }},
	{"avg_degree", func(r *Record) float64 { return r.Network.AvgDegree }},
	{"max_degree", func(r *Record) float64 { return r.Network.MaxDegree }},
	{"degree_centralization", func(r *Record) float64 { return r.Network.DegreeCentralization }},
	{"min_betweenness", func(r *Record) float64 { return r.Network.MinBetweenness }},
	{"avg_betweenness", func(r *Record) float64 { return r.Network.AvgBetweenness }},
	{"max_betweenness", func(r *Record) float64 { return r.Network.MaxBetweenness }},
	{"betweenness_centralization", func(r *Record) float64 { return r.Network.BetweennessCentralization }},
	{"average_geodesic", func(r *Record) float64 { return r.Network.AverageGeodesic }},
	{"reachable_pairs", func(r *Record) float64 { return float64(r.Network.ReachablePairs) }},
	{"diameter", func(r *Record) float64 { return float64(r.Network.Diameter) }},
}

// Names lists the metric names in column order.
func Names() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.name
	}
	return out
}

// Series is an append-only sequence of records in tick order.
type Series struct {
	records []Record
}

// New creates a series from existing records.
func New(records []Record) *Series {
	return &Series{records: slices.Clone(records)}
}

// Append adds a record.
func (s *Series) Append(r Record) {
	s.records = append(s.records, r)
}

// Len is the number of records.
func (s *Series) Len() int { return len(s.records) }

// Records returns a copy of the records.
func (s *Series) Records() []Record {
	return slices.Clone(s.records)
}

// Last returns the most recent record.
func (s *Series) Last() (Record, bool) {
	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[len(s.records)-1], true
}

// Since returns the records with Tick > tick.
func (s *Series) Since(tick uint64) []Record {
	i, _ := slices.BinarySearchFunc(s.records, tick+1, func(r Record, t uint64) int {
		switch {
		case r.Tick < t:
			return -1
		case r.Tick > t:
			return 1
		}
		return 0
	})
	return slices.Clone(s.records[i:])
}

// Column returns one metric across all records.
func (s *Series) Column(name string) ([]float64, bool) {
	for _, c := range columns {
		if c.name == name {
			return s.extract(c), true
		}
	}
	return nil, false
}

// Columns maps every metric name to its per-tick values.
func (s *Series) Columns() map[string][]float64 {
	out := make(map[string][]float64, len(columns))
	for _, c := range columns {
		out[c.name] = s.extract(c)
	}
	return out
}

func (s *Series) extract(c column) []float64 {
	vals := make([]float64, len(s.records))
	for i := range s.records {
		vals[i] = c.get(&s.records[i])
	}
	return vals
}
