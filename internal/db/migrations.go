package db

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id BIGSERIAL PRIMARY KEY,
		contact_type VARCHAR(20) NOT NULL DEFAULT 'company',
		company_name VARCHAR(200),
		salutation VARCHAR(50),
		first_name VARCHAR(100),
		last_name VARCHAR(100),
		street VARCHAR(200),
		zip_code VARCHAR(20),
		city VARCHAR(100),
		country VARCHAR(100) DEFAULT 'Deutschland',
		email VARCHAR(200),
		phone VARCHAR(50),
		customer_number VARCHAR(50),
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS number_sequences (
		id BIGSERIAL PRIMARY KEY,
		prefix VARCHAR(10) NOT NULL,
		year INTEGER NOT NULL,
		last_number INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_number_sequences_prefix_year
		ON number_sequences (prefix, year);`,
	`CREATE TABLE IF NOT EXISTS documents (
		id BIGSERIAL PRIMARY KEY,
		doc_type VARCHAR(30) NOT NULL,
		doc_number VARCHAR(50) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		contact_id BIGINT NOT NULL REFERENCES contacts(id),
		doc_date DATE NOT NULL,
		subject VARCHAR(500),
		content TEXT,
		notes TEXT,
		positions JSON,
		net_total NUMERIC(18,2),
		vat_total NUMERIC(18,2),
		gross_total NUMERIC(18,2),
		due_date DATE,
		valid_until DATE,
		prepayment_percent NUMERIC(5,2),
		pdf_path VARCHAR(500),
		archive_task_id VARCHAR(100),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_doc_number ON documents (doc_number);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_contact_id ON documents (contact_id);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_doc_type ON documents (doc_type);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents (status);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_doc_date ON documents (doc_date);`,
}

func runMigrations(db *gorm.DB, log zerolog.Logger) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	log.Info().Int("statements", len(migrationStatements)).Msg("migrations applied")
	return nil
}
