// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// Schema mirrors the postgres migrations using types sqlite drivers can scan
// back into Go values.
var Schema = []string{
	`CREATE TABLE events (
		id BIGINT PRIMARY KEY,
		delivery_id TEXT,
		service_id TEXT,
		live BOOLEAN,
		resource_type TEXT NOT NULL,
		resource_external_id TEXT NOT NULL,
		parent_resource_external_id TEXT,
		event_date DATETIME NOT NULL,
		event_type TEXT NOT NULL,
		event_data TEXT NOT NULL,
		event_data_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_events_identity ON events (resource_external_id, resource_type, event_type, event_date, event_data_hash)`,
	`CREATE TABLE transactions (
		id BIGINT PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		parent_external_id TEXT,
		service_id TEXT,
		gateway_account_id TEXT,
		transaction_type TEXT NOT NULL,
		state TEXT NOT NULL,
		amount BIGINT,
		total_amount BIGINT,
		net_amount BIGINT,
		fee BIGINT,
		corporate_surcharge BIGINT,
		reference TEXT,
		description TEXT,
		email TEXT,
		cardholder_name TEXT,
		card_brand TEXT,
		first_digits_card_number TEXT,
		last_digits_card_number TEXT,
		gateway_transaction_id TEXT,
		gateway_payout_id TEXT,
		agreement_id TEXT,
		source TEXT,
		moto BOOLEAN NOT NULL DEFAULT FALSE,
		live BOOLEAN,
		created_date DATETIME NOT NULL,
		event_count INTEGER NOT NULL,
		transaction_details TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE metadata_keys (
		id BIGINT PRIMARY KEY,
		key TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE transaction_metadata (
		transaction_external_id TEXT NOT NULL,
		metadata_key_id BIGINT NOT NULL,
		value TEXT,
		PRIMARY KEY (transaction_external_id, metadata_key_id)
	)`,
	`CREATE TABLE agreements (
		id BIGINT PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		service_id TEXT,
		gateway_account_id TEXT,
		reference TEXT,
		description TEXT,
		user_identifier TEXT,
		payment_instrument_external_id TEXT,
		status TEXT NOT NULL,
		live BOOLEAN,
		created_date DATETIME NOT NULL,
		event_count INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE payment_instruments (
		id BIGINT PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		agreement_external_id TEXT,
		service_id TEXT,
		email TEXT,
		cardholder_name TEXT,
		address_line1 TEXT,
		address_line2 TEXT,
		address_postcode TEXT,
		address_city TEXT,
		address_county TEXT,
		address_country TEXT,
		first_digits_card_number TEXT,
		last_digits_card_number TEXT,
		expiry_date TEXT,
		card_brand TEXT,
		card_type TEXT,
		live BOOLEAN,
		created_date DATETIME NOT NULL,
		event_count INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE payouts (
		id BIGINT PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		service_id TEXT,
		gateway_account_id TEXT,
		amount BIGINT,
		paid_out_date DATETIME,
		statement_descriptor TEXT,
		status TEXT NOT NULL,
		live BOOLEAN,
		created_date DATETIME NOT NULL,
		event_count INTEGER NOT NULL,
		payout_details TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE transaction_summary (
		gateway_account_id TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		transaction_date TEXT NOT NULL,
		state TEXT NOT NULL,
		live BOOLEAN NOT NULL,
		moto BOOLEAN NOT NULL,
		total_amount_in_pence BIGINT NOT NULL DEFAULT 0,
		no_of_transactions BIGINT NOT NULL DEFAULT 0,
		total_fee_in_pence BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (gateway_account_id, transaction_type, transaction_date, state, live, moto)
	)`,
}

// SetupTestDB opens a fresh in-memory sqlite database with the ledger schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	for _, stmt := range Schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// NewNode returns a snowflake node for test id generation.
func NewNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

// AssertCount fails the test unless query returns expected.
func AssertCount(t *testing.T, db *gorm.DB, query string, expected int64, args ...any) {
	t.Helper()
	var count int64
	if err := db.Raw(query, args...).Scan(&count).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected %d rows for %q, got %d", expected, query, count)
	}
}
