package registry

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	language    TEXT NOT NULL,
	description TEXT,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id              INTEGER NOT NULL,
	original_filename       TEXT NOT NULL,
	file_type               TEXT NOT NULL,
	file_path               TEXT NOT NULL,
	status                  TEXT NOT NULL DEFAULT 'pending',
	processed_markdown_path TEXT,
	processed_html_path     TEXT,
	ocr_model               TEXT,
	text_model              TEXT,
	processing_error        TEXT,
	created_at              INTEGER NOT NULL,
	processed_at            INTEGER,
	FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);
CREATE INDEX IF NOT EXISTS idx_documents_status  ON documents(project_id, status);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
