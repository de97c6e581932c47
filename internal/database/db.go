package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// InitSchema ensures baseline tables exist.  Totals and lifecycle invariants
// are enforced at the write boundary (repositories and ledger), not by
// database triggers, so the schema stays portable.
func InitSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS venues (
			id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
			name VARCHAR(255) NOT NULL,
			timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS beacons (
			id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
			venue_id BIGINT UNSIGNED NOT NULL,
			name VARCHAR(255) NOT NULL,
			uuid CHAR(36) NOT NULL,
			major SMALLINT UNSIGNED NOT NULL,
			minor SMALLINT UNSIGNED NOT NULL,
			threshold_dbm INT NOT NULL DEFAULT -65,
			active TINYINT(1) NOT NULL DEFAULT 1,
			last_seen DATETIME NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_beacons_ref (uuid, major, minor),
			KEY idx_beacons_venue (venue_id)
		)`,
		`CREATE TABLE IF NOT EXISTS zones (
			id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
			venue_id BIGINT UNSIGNED NOT NULL,
			name VARCHAR(255) NOT NULL,
			type ENUM('entry','exit','bar','seating','other') NOT NULL DEFAULT 'other',
			trigger_action ENUM('activate_tab','close_tab','notification','none') NOT NULL DEFAULT 'none',
			dwell_seconds INT NOT NULL DEFAULT 0,
			priority INT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_zones_venue (venue_id)
		)`,
		`CREATE TABLE IF NOT EXISTS zone_beacons (
			zone_id BIGINT UNSIGNED NOT NULL,
			beacon_id BIGINT UNSIGNED NOT NULL,
			PRIMARY KEY (zone_id, beacon_id),
			KEY idx_zone_beacons_beacon (beacon_id)
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
			venue_id BIGINT UNSIGNED NOT NULL,
			patron_key CHAR(36) NOT NULL,
			table_label VARCHAR(64) NOT NULL,
			status ENUM('pending','active','closed','cancelled') NOT NULL DEFAULT 'pending',
			entry_time DATETIME NULL,
			exit_time DATETIME NULL,
			subtotal_cents INT UNSIGNED NOT NULL DEFAULT 0,
			tip_cents INT UNSIGNED NOT NULL DEFAULT 0,
			total_cents INT UNSIGNED NOT NULL DEFAULT 0,
			payment_on_file TINYINT(1) NOT NULL DEFAULT 0,
			settlement_status ENUM('pending','requested','settled','failed') NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_sessions_patron_key (patron_key),
			KEY idx_sessions_venue_status (venue_id, status)
		)`,
		`CREATE TABLE IF NOT EXISTS tab_items (
			id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
			session_id BIGINT UNSIGNED NOT NULL,
			name VARCHAR(255) NOT NULL,
			price_cents INT UNSIGNED NOT NULL,
			quantity INT UNSIGNED NOT NULL,
			total_price_cents INT UNSIGNED NOT NULL,
			added_by BIGINT UNSIGNED NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_tab_items_session (session_id)
		)`,
		`CREATE TABLE IF NOT EXISTS staff (
			id BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
			venue_id BIGINT UNSIGNED NOT NULL,
			email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(32) NOT NULL DEFAULT 'staff',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_staff_email (email)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
