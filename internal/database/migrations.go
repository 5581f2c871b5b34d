package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createTicketsTable,
		createStockUnitsTable,
		createPurchasesTable,
		createCheckinsTable,
		createStockUnitsFreeIndex,
		createStockUnitsReservedIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    id SERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    quantity INTEGER NOT NULL,
    price BIGINT NOT NULL DEFAULT 0,
    sale_starts_at TIMESTAMP NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (quantity > 0)
);`

const createStockUnitsTable = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
CREATE TABLE IF NOT EXISTS stock_units (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    ticket_id INTEGER NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
    unit_no INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'FREE',
    holder_id VARCHAR(64),
    reserved_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE(ticket_id, unit_no),
    CHECK (status IN ('FREE', 'RESERVED', 'SOLD'))
);`

const createPurchasesTable = `
CREATE TABLE IF NOT EXISTS purchases (
    id SERIAL PRIMARY KEY,
    ticket_id INTEGER NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
    buyer_id VARCHAR(64) NOT NULL,
    unit_id UUID REFERENCES stock_units(id),
    status VARCHAR(20) NOT NULL DEFAULT 'PURCHASED',
    purchase_time TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE(ticket_id, buyer_id),
    CHECK (status IN ('PURCHASED', 'REFUNDED'))
);`

const createCheckinsTable = `
CREATE TABLE IF NOT EXISTS checkins (
    id SERIAL PRIMARY KEY,
    ticket_id INTEGER NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
    buyer_id VARCHAR(64) NOT NULL,
    checked BOOLEAN NOT NULL DEFAULT FALSE,
    checkin_time TIMESTAMP,

    UNIQUE(ticket_id, buyer_id)
);`

const createStockUnitsFreeIndex = `
CREATE INDEX IF NOT EXISTS stock_units_free_idx
ON stock_units (ticket_id, unit_no) WHERE status = 'FREE';`

const createStockUnitsReservedIndex = `
CREATE INDEX IF NOT EXISTS stock_units_reserved_idx
ON stock_units (reserved_at) WHERE status = 'RESERVED';`
