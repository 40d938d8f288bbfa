package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Traces table - stores recorded touch paths, optionally labeled
		// with the expected result
		`CREATE TABLE IF NOT EXISTS traces (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL DEFAULT 'features' CHECK(mode IN ('features', 'offset')),
			aspect_ratio REAL NOT NULL DEFAULT 1.0,
			points TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Classifications table - stores recognizer output for a trace
		`CREATE TABLE IF NOT EXISTS classifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id TEXT NOT NULL REFERENCES traces(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			direction TEXT NOT NULL,
			sense TEXT NOT NULL,
			features TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Bindings table - plugin actions to run when a result is recognized
		`CREATE TABLE IF NOT EXISTS bindings (
			id TEXT PRIMARY KEY,
			gesture TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'session' CHECK(source IN ('session', 'classify', 'trace', 'any')),
			plugin TEXT NOT NULL,
			action TEXT NOT NULL,
			params TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_traces_label ON traces(label)`,
		`CREATE INDEX IF NOT EXISTS idx_bindings_gesture ON bindings(gesture)`,
		`CREATE INDEX IF NOT EXISTS idx_classifications_trace_id ON classifications(trace_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
