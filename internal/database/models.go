package database

// BatchJobRecord is a persisted batch job.
type BatchJobRecord struct {
	ID             string
	Status         string
	MaxConcurrency int
	RequestCount   int
	CreatedAt      string
	CompletedAt    *string
}

// BatchResultRecord is one persisted per-request outcome of a batch job.
type BatchResultRecord struct {
	JobID        string
	RequestIndex int
	Accepted     bool
	ProviderUsed *string
	OverallScore *float64
	FailureKind  *string
	LastError    *string
	Content      *string
	AttemptsJSON *string
}

// KBRecord is a knowledge-base entry about a plant, piece of equipment, or
// growing technique.
type KBRecord struct {
	ID             int64
	Name           string
	Kind           string
	Aliases        []string
	Facts          []string
	Misconceptions []string
	CreatedAt      *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalJobs       int
	CompletedJobs   int
	CancelledJobs   int
	TotalResults    int
	AcceptedResults int
	KBRecords       int
}
