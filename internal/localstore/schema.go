package localstore

// SchemaVersion is the current database schema version (bumped whenever
// migrations.go gains a new step).
const SchemaVersion = 2

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_info (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS food_log_entries (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	food_name TEXT NOT NULL,
	serving_size REAL NOT NULL DEFAULT 0,
	serving_unit TEXT NOT NULL DEFAULT '',
	calories REAL DEFAULT 0,
	protein_g REAL DEFAULT 0,
	carbs_g REAL DEFAULT 0,
	fat_g REAL DEFAULT 0,
	micros_json TEXT DEFAULT '{}',
	meal_type TEXT NOT NULL DEFAULT 'snack',
	consumed_date TEXT NOT NULL,
	logged_at INTEGER NOT NULL,
	sync_status TEXT NOT NULL DEFAULT 'pending',
	last_modified INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_food_log_dedup
	ON food_log_entries(user_id, food_name, consumed_date, meal_type, serving_size, serving_unit)
	WHERE sync_status != 'deleted';
CREATE INDEX IF NOT EXISTS idx_food_log_status ON food_log_entries(sync_status);
CREATE INDEX IF NOT EXISTS idx_food_log_consumed ON food_log_entries(consumed_date);

CREATE TABLE IF NOT EXISTS perishable_items (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	quantity REAL NOT NULL DEFAULT 1,
	unit TEXT DEFAULT '',
	expiry_date TEXT NOT NULL,
	added_date TEXT NOT NULL,
	metadata_json TEXT DEFAULT '{}',
	sync_status TEXT NOT NULL DEFAULT 'pending',
	last_modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_perishable_expiry ON perishable_items(expiry_date);
CREATE INDEX IF NOT EXISTS idx_perishable_status ON perishable_items(sync_status);

CREATE TABLE IF NOT EXISTS weight_entries (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	weight REAL NOT NULL,
	date TEXT NOT NULL,
	bmi REAL,
	waist REAL,
	dress_size TEXT,
	photos_json TEXT DEFAULT '[]',
	sync_status TEXT NOT NULL DEFAULT 'pending',
	last_modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_weight_status ON weight_entries(sync_status);
CREATE INDEX IF NOT EXISTS idx_weight_date ON weight_entries(date);

CREATE TABLE IF NOT EXISTS user_settings (
	id TEXT PRIMARY KEY DEFAULT 'current',
	user_id TEXT NOT NULL,
	calorie_goal REAL DEFAULT 2000,
	protein_pct REAL DEFAULT 30,
	carbs_pct REAL DEFAULT 40,
	fat_pct REAL DEFAULT 30,
	allergens_json TEXT DEFAULT '[]',
	sync_status TEXT NOT NULL DEFAULT 'pending',
	last_modified INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fasting_plans (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT DEFAULT '',
	payload BLOB NOT NULL,
	sync_status TEXT NOT NULL DEFAULT 'pending',
	last_modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fasting_plans_status ON fasting_plans(sync_status);

CREATE TABLE IF NOT EXISTS fasting_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	plan_id TEXT DEFAULT '',
	started_at INTEGER NOT NULL,
	payload BLOB NOT NULL,
	sync_status TEXT NOT NULL DEFAULT 'pending',
	last_modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fasting_sessions_status ON fasting_sessions(sync_status);
CREATE INDEX IF NOT EXISTS idx_fasting_sessions_started ON fasting_sessions(started_at);

CREATE TABLE IF NOT EXISTS reaction_logs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	food_name TEXT DEFAULT '',
	occurred_at INTEGER NOT NULL,
	payload BLOB NOT NULL,
	sync_status TEXT NOT NULL DEFAULT 'pending',
	last_modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reaction_logs_status ON reaction_logs(sync_status);

CREATE TABLE IF NOT EXISTS favorite_foods (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	food_name TEXT DEFAULT '',
	payload BLOB NOT NULL,
	sync_status TEXT NOT NULL DEFAULT 'pending',
	last_modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_favorite_foods_status ON favorite_foods(sync_status);

CREATE TABLE IF NOT EXISTS sync_queue (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	collection TEXT NOT NULL,
	document_id TEXT NOT NULL,
	data BLOB,
	timestamp REAL NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	next_retry_time REAL NOT NULL DEFAULT 0,
	UNIQUE(collection, document_id, type)
);
CREATE INDEX IF NOT EXISTS idx_queue_ready ON sync_queue(next_retry_time);
CREATE INDEX IF NOT EXISTS idx_queue_doc ON sync_queue(collection, document_id);

CREATE TABLE IF NOT EXISTS failed_operations (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	collection TEXT NOT NULL,
	document_id TEXT NOT NULL,
	data BLOB,
	timestamp REAL NOT NULL,
	failed_at REAL NOT NULL,
	error_message TEXT NOT NULL,
	retry_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_failed_doc ON failed_operations(collection, document_id);

CREATE TABLE IF NOT EXISTS sync_conflicts (
	id TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	document_id TEXT NOT NULL,
	local_data BLOB,
	server_data BLOB,
	local_version INTEGER NOT NULL,
	server_version INTEGER NOT NULL,
	detected_at REAL NOT NULL,
	resolved INTEGER NOT NULL DEFAULT 0
);
`
