package database

import "fmt"

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM batch_jobs", &stats.TotalJobs},
		{"SELECT COUNT(*) FROM batch_jobs WHERE status = 'completed'", &stats.CompletedJobs},
		{"SELECT COUNT(*) FROM batch_jobs WHERE status = 'cancelled'", &stats.CancelledJobs},
		{"SELECT COUNT(*) FROM batch_results", &stats.TotalResults},
		{"SELECT COUNT(*) FROM batch_results WHERE accepted = 1", &stats.AcceptedResults},
		{"SELECT COUNT(*) FROM kb_records", &stats.KBRecords},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("getting stats: %w", err)
		}
	}

	return stats, nil
}
