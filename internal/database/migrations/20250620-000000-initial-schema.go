package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250620-000000",
		Description: "Initial schema",
		Up: []string{
			// Products - one row per observed product page URL
			`CREATE TABLE IF NOT EXISTS products (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				url TEXT UNIQUE NOT NULL,
				canonical_url TEXT,
				name TEXT,
				description TEXT,
				vendor TEXT,
				image_url TEXT,
				metadata TEXT,
				last_checked_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_products_canonical_url ON products(canonical_url)`,
			`CREATE INDEX IF NOT EXISTS idx_products_last_checked_at ON products(last_checked_at)`,

			// Variants - purchasable configurations of a product.
			// attributes is canonical JSON (keys sorted, values trimmed) so
			// equality comparison works at the SQL level. prices are stored
			// as decimal strings to avoid float drift.
			`CREATE TABLE IF NOT EXISTS variants (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
				sku TEXT,
				attributes TEXT NOT NULL DEFAULT '{}',
				current_price TEXT,
				currency TEXT,
				current_stock_status TEXT NOT NULL DEFAULT 'unknown',
				is_available INTEGER,
				image_url TEXT,
				metadata TEXT,
				last_checked_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_variants_product_id ON variants(product_id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_product_sku ON variants(product_id, sku) WHERE sku IS NOT NULL`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_product_attributes ON variants(product_id, attributes) WHERE sku IS NULL`,

			// Price history - append-only observations, one row per change
			`CREATE TABLE IF NOT EXISTS price_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				variant_id INTEGER NOT NULL REFERENCES variants(id) ON DELETE CASCADE,
				price TEXT,
				currency TEXT,
				raw TEXT,
				metadata TEXT,
				recorded_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_price_history_variant ON price_history(variant_id, recorded_at)`,

			// Stock history - append-only observations, one row per change
			`CREATE TABLE IF NOT EXISTS stock_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				variant_id INTEGER NOT NULL REFERENCES variants(id) ON DELETE CASCADE,
				stock_status TEXT NOT NULL,
				is_available INTEGER,
				raw TEXT,
				metadata TEXT,
				recorded_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_stock_history_variant ON stock_history(variant_id, recorded_at)`,

			// Check runs - one row per observation attempt
			`CREATE TABLE IF NOT EXISTS check_runs (
				id TEXT PRIMARY KEY,
				product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
				trigger_source TEXT NOT NULL DEFAULT 'manual',
				status TEXT NOT NULL DEFAULT 'running',
				error_code TEXT,
				error_message TEXT,
				metadata TEXT,
				started_at TEXT NOT NULL,
				finished_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_check_runs_product ON check_runs(product_id, started_at)`,
			`CREATE INDEX IF NOT EXISTS idx_check_runs_status ON check_runs(status)`,
		},
	})
}
