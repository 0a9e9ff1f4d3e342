package domain

// Stats summarizes the ledger for the stats command and the read API.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`

	// Responded counts applications that progressed past applied.
	Responded  int `json:"responded"`
	Interviews int `json:"interviews"`
	Offers     int `json:"offers"`
	Rejections int `json:"rejections"`

	// ResponseRate is Responded / Total; zero when the ledger is empty.
	ResponseRate float64 `json:"response_rate"`
}

// ComputeStats derives summary numbers from a ledger snapshot.
func ComputeStats(apps []Application) Stats {
	s := Stats{ByStatus: make(map[Status]int)}
	for _, a := range apps {
		s.Total++
		s.ByStatus[a.CurrentStatus]++
		if a.CurrentStatus != StatusApplied {
			s.Responded++
		}
		switch a.CurrentStatus {
		case StatusInterviewScheduled:
			s.Interviews++
		case StatusOffer:
			s.Offers++
		case StatusRejected:
			s.Rejections++
		}
	}
	if s.Total > 0 {
		s.ResponseRate = float64(s.Responded) / float64(s.Total)
	}
	return s
}
