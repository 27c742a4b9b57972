package predict

import (
	"encoding/json"

	est "github.com/bitcoinfees/ethgas/estimate"
)

// Grid is the canonical set of bucketed prices covered by a prediction table:
// 0 to 0.9 gwei in steps of 0.1, then 1 to 100 gwei in steps of 1.
var Grid = func() []est.Bucket {
	g := make([]est.Bucket, 0, 109)
	for b := est.Bucket(0); b < 10; b++ {
		g = append(g, b)
	}
	for b := est.Bucket(10); b <= 1000; b += 10 {
		g = append(g, b)
	}
	return g
}()

type Row struct {
	GasPrice  est.Bucket
	Accepting int // Percentage of hashpower accepting GasPrice, 0-100
}

// Table is the hashpower acceptance of every Grid price, in increasing order
// of price.
type Table []Row

// MakeTable evaluates the acceptance curve on Grid.
func MakeTable(c *est.Curve) Table {
	t := make(Table, len(Grid))
	for i, p := range Grid {
		t[i] = Row{GasPrice: p, Accepting: int(c.Acceptance(p))}
	}
	return t
}

type jsonRow struct {
	GasPrice  float64 `json:"gasprice"`
	Accepting int     `json:"hashpower_accepting"`
}

// MarshalJSON encodes the table as a list of records, with prices in gwei.
func (t Table) MarshalJSON() ([]byte, error) {
	rows := make([]jsonRow, len(t))
	for i, r := range t {
		rows[i] = jsonRow{GasPrice: r.GasPrice.Gwei(), Accepting: r.Accepting}
	}
	return json.Marshal(rows)
}

func (t *Table) UnmarshalJSON(b []byte) error {
	var rows []jsonRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return err
	}
	tt := make(Table, len(rows))
	for i, r := range rows {
		// Round to the nearest bucket; gwei values are exact tenths.
		tt[i] = Row{GasPrice: est.Bucket(r.GasPrice*10 + 0.5), Accepting: r.Accepting}
	}
	*t = tt
	return nil
}
