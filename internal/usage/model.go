package usage

// Record is a user's conversion count for one UTC day. Day uses the
// YYYY-MM-DD form so records from different days never compare equal.
type Record struct {
	Day  string `json:"day"`
	Used int    `json:"used"`
}

// Snapshot is the outward-facing view of today's usage.
type Snapshot struct {
	Day       string `json:"date"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}
