package domain

import "time"

// DailyRange holds the morning price extremes for one instrument.
// Only today's range is ever kept; a recomputation overwrites it in place.
type DailyRange struct {
	Symbol string    `json:"symbol"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Date   time.Time `json:"date"` // calendar day of the last tape trade
}

func (r *DailyRange) Width() float64 {
	return r.High - r.Low
}

// Fresh reports whether the range was computed on the given calendar day.
func (r *DailyRange) Fresh(day time.Time) bool {
	return r.Date.Year() == day.Year() && r.Date.YearDay() == day.YearDay()
}
