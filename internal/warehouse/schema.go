package warehouse

import (
	"context"
	"fmt"
)

// schemaStatements creates the star schema: deduplicated dimension tables
// referenced by surrogate ids, and the append-only transactions fact table.
// Statements are ordered so foreign keys always point at existing tables.
var schemaStatements = []struct {
	table string
	sql   string
}{
	{"companies", `
CREATE TABLE IF NOT EXISTS companies (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
)`},
	{"roles", `
CREATE TABLE IF NOT EXISTS roles (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	role TEXT NOT NULL UNIQUE
)`},
	{"dates", `
CREATE TABLE IF NOT EXISTS dates (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	date DATE NOT NULL UNIQUE
)`},
	{"currencies", `
CREATE TABLE IF NOT EXISTS currencies (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	currency TEXT NOT NULL UNIQUE
)`},
	{"instruments", `
CREATE TABLE IF NOT EXISTS instruments (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	company_id BIGINT NOT NULL REFERENCES companies (id),
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	isin TEXT NOT NULL,
	UNIQUE (company_id, isin)
)`},
	{"people", `
CREATE TABLE IF NOT EXISTS people (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	role_id BIGINT NOT NULL REFERENCES roles (id),
	company_id BIGINT NOT NULL REFERENCES companies (id),
	name TEXT NOT NULL,
	UNIQUE (company_id, role_id, name)
)`},
	{"transactions", `
CREATE TABLE IF NOT EXISTS transactions (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	people_id BIGINT NOT NULL REFERENCES people (id),
	instrument_id BIGINT NOT NULL REFERENCES instruments (id),
	purchase_date_id BIGINT NOT NULL REFERENCES dates (id),
	publication_date_id BIGINT NOT NULL REFERENCES dates (id),
	nature_of_purchase TEXT NOT NULL,
	related TEXT NOT NULL,
	volume NUMERIC(20, 4) NOT NULL,
	volume_unit TEXT NOT NULL,
	price NUMERIC(14, 6) NOT NULL,
	currency_id BIGINT NOT NULL REFERENCES currencies (id)
)`},
}

// EnsureSchema creates the star-schema tables when they do not yet exist.
// It is idempotent and safe to run before every crawl.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := w.pool.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("create table %s: %w", stmt.table, err)
		}
	}
	return nil
}
