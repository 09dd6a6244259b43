package sqlite

const schemaSQL = `
-- Analyst ratings: append-only time series per ticker
CREATE TABLE IF NOT EXISTS ratings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker TEXT NOT NULL,
	analyst TEXT,
	firm TEXT,
	rating TEXT NOT NULL,
	confidence REAL,
	timestamp INTEGER NOT NULL,
	source_document_id TEXT NOT NULL,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);

CREATE INDEX IF NOT EXISTS idx_ratings_ticker_ts ON ratings(ticker, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_ratings_firm ON ratings(firm, timestamp DESC);

-- Financial metrics: original value string preserved (sign, units)
CREATE TABLE IF NOT EXISTS metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker TEXT NOT NULL,
	metric_type TEXT NOT NULL,
	metric_value TEXT NOT NULL,
	period TEXT,
	confidence REAL,
	source_document_id TEXT NOT NULL,
	table_index INTEGER,
	row_index INTEGER,
	timestamp INTEGER NOT NULL,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);

CREATE INDEX IF NOT EXISTS idx_metrics_ticker_type ON metrics(ticker, metric_type, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_metrics_period ON metrics(ticker, metric_type, period);

-- Price targets
CREATE TABLE IF NOT EXISTS price_targets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker TEXT NOT NULL,
	analyst TEXT,
	firm TEXT,
	target_price REAL NOT NULL,
	currency TEXT NOT NULL DEFAULT 'USD',
	confidence REAL,
	timestamp INTEGER NOT NULL,
	source_document_id TEXT NOT NULL,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);

CREATE INDEX IF NOT EXISTS idx_price_targets_ticker_ts ON price_targets(ticker, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_price_targets_firm ON price_targets(firm, timestamp DESC);

-- Graph entities: entity_id is the stable upsert key, so re-ingestion
-- overwrites instead of duplicating
CREATE TABLE IF NOT EXISTS entities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_id TEXT NOT NULL UNIQUE,
	entity_type TEXT NOT NULL,
	entity_name TEXT NOT NULL,
	confidence REAL,
	source_document_id TEXT NOT NULL,
	metadata TEXT,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);

CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);

-- Graph relationships: append-only, no natural unique key
CREATE TABLE IF NOT EXISTS relationships (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_entity TEXT NOT NULL,
	target_entity TEXT NOT NULL,
	relationship_type TEXT NOT NULL,
	confidence REAL,
	source_document_id TEXT NOT NULL,
	metadata TEXT,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);

CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_entity);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_entity);
CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(relationship_type);
`

// InitSchema initializes the database schema
func (s *SQLiteDB) InitSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return err
	}
	s.logger.Debug().Msg("Signal store schema initialized")
	return nil
}
