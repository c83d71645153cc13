package watch

import "time"

// SourceReport summarizes one repository in one cycle.
type SourceReport struct {
	Category string
	Source   string
	Listings int
	Opened   int
	Closed   int
	// Stale counts opened listings not announced because of their age.
	Stale   int
	Skipped bool
	Reason  string
}

// Report summarizes one cycle.
type Report struct {
	CycleID   string
	Started   time.Time
	Duration  time.Duration
	Sources   []SourceReport
	Delivered int
	Failed    int
}

// Opened returns the number of opened listings across sources.
func (r Report) Opened() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Opened
	}
	return n
}

// Closed returns the number of closed listings across sources.
func (r Report) Closed() int {
	n := 0
	for _, s := range r.Sources {
		n += s.Closed
	}
	return n
}

// Skipped returns the sources that were not compared or not delivered.
func (r Report) Skipped() []SourceReport {
	var out []SourceReport
	for _, s := range r.Sources {
		if s.Skipped {
			out = append(out, s)
		}
	}
	return out
}
