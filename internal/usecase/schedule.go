package usecase

import "time"

// FirstComputeAt returns the initial range-computation instant for a run
// started on the given day: the cutoff time on that day, pushed past the
// weekend when the day itself is one.
func FirstComputeAt(today time.Time, cutoff TimeOfDay) time.Time {
	at := cutoff.On(today)
	switch today.Weekday() {
	case time.Saturday:
		return at.AddDate(0, 0, 2)
	case time.Sunday:
		return at.AddDate(0, 0, 1)
	}
	return at
}

// NextComputeAt returns the instant of the computation following one that ran
// on the given day: the cutoff time on the next trading day, skipping the
// weekend.
func NextComputeAt(today time.Time, cutoff TimeOfDay) time.Time {
	at := cutoff.On(today)
	switch today.AddDate(0, 0, 1).Weekday() {
	case time.Saturday:
		return at.AddDate(0, 0, 3)
	case time.Sunday:
		return at.AddDate(0, 0, 2)
	}
	return at.AddDate(0, 0, 1)
}
