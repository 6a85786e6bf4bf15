package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260115-173000",
		Description: "HTML snapshot keys on check runs",
		Up: []string{
			// Object-storage key of the archived page HTML for this run.
			// NULL when archival is disabled or the upload failed.
			`ALTER TABLE check_runs ADD COLUMN snapshot_key TEXT`,
			`CREATE INDEX IF NOT EXISTS idx_check_runs_started ON check_runs(started_at)`,
		},
	})
}
