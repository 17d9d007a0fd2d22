package domain

import "math"

// Instrument is a tradable symbol together with its price rounding rule
// and classification (used by the range-size filter).
type Instrument struct {
	Symbol    string  `json:"symbol"`
	Class     string  `json:"class"`
	PriceStep float64 `json:"price_step"`
}

// ShrinkPrice rounds a raw price to the instrument's tick.
func (i *Instrument) ShrinkPrice(price float64) float64 {
	if i.PriceStep <= 0 {
		return price
	}
	return math.Round(price/i.PriceStep) * i.PriceStep
}
