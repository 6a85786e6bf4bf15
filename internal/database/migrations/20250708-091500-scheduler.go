package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250708-091500",
		Description: "Scheduler sweep logs and tracked items",
		Up: []string{
			// Scheduler logs - one row per sweep over the tracked products.
			// Created with placeholder counters at sweep start and finalized
			// at sweep end; rows left open by a crashed process are marked
			// stale on the next startup.
			`CREATE TABLE IF NOT EXISTS scheduler_logs (
				id TEXT PRIMARY KEY,
				run_started_at TEXT NOT NULL,
				run_finished_at TEXT,
				products_checked INTEGER NOT NULL DEFAULT 0,
				items_checked INTEGER NOT NULL DEFAULT 0,
				success INTEGER,
				error_summary TEXT,
				metadata TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_scheduler_logs_started ON scheduler_logs(run_started_at)`,

			// Tracked items - user subscriptions to a product (optionally a
			// specific variant). The scheduler reads these to determine the
			// sweep scope; user_id values are issued by the external API.
			`CREATE TABLE IF NOT EXISTS tracked_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL,
				product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
				variant_id INTEGER REFERENCES variants(id) ON DELETE SET NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tracked_items_user ON tracked_items(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_tracked_items_product ON tracked_items(product_id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_tracked_items_user_product ON tracked_items(user_id, product_id)`,
		},
	})
}
