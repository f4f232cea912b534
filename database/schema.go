package database

import (
	"context"
	"fmt"

	"github.com/apex/log"
)

type table struct {
	name string
	ddl  string
}

// Order matters: referenced tables come first.
var tables = []table{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT NOT NULL AUTO_INCREMENT,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(32),
			avatar MEDIUMTEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE INDEX email_unique (email)
		)`},
	{"reports", `
		CREATE TABLE IF NOT EXISTS reports (
			id BIGINT NOT NULL AUTO_INCREMENT,
			user_id BIGINT NOT NULL,
			location TEXT NOT NULL,
			waste_type VARCHAR(255) NOT NULL,
			amount VARCHAR(255) NOT NULL,
			image_url MEDIUMTEXT,
			verification_result JSON,
			status ENUM('pending', 'in_progress', 'completed', 'verified') NOT NULL DEFAULT 'pending',
			collector_id BIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			INDEX user_id_index (user_id),
			INDEX status_index (status),
			INDEX collector_id_index (collector_id),
			INDEX created_at_index (created_at),
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (collector_id) REFERENCES users(id)
		)`},
	{"rewards", `
		CREATE TABLE IF NOT EXISTS rewards (
			id BIGINT NOT NULL AUTO_INCREMENT,
			user_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			collection_info TEXT NOT NULL,
			description TEXT,
			points DOUBLE NOT NULL DEFAULT 0,
			level INT NOT NULL DEFAULT 1,
			is_available BOOL NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE INDEX user_name_unique (user_id, name),
			INDEX points_index (points),
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`},
	{"collected_wastes", `
		CREATE TABLE IF NOT EXISTS collected_wastes (
			id BIGINT NOT NULL AUTO_INCREMENT,
			report_id BIGINT NOT NULL,
			collector_id BIGINT NOT NULL,
			collection_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			status VARCHAR(32) NOT NULL DEFAULT 'verified',
			verification_result JSON,
			PRIMARY KEY (id),
			INDEX report_id_index (report_id),
			INDEX collector_id_index (collector_id),
			FOREIGN KEY (report_id) REFERENCES reports(id),
			FOREIGN KEY (collector_id) REFERENCES users(id)
		)`},
	{"notifications", `
		CREATE TABLE IF NOT EXISTS notifications (
			id BIGINT NOT NULL AUTO_INCREMENT,
			user_id BIGINT NOT NULL,
			message TEXT NOT NULL,
			type VARCHAR(50) NOT NULL,
			is_read BOOL NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			INDEX user_unread_index (user_id, is_read),
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`},
	{"transactions", `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGINT NOT NULL AUTO_INCREMENT,
			user_id BIGINT NOT NULL,
			type ENUM('earned_report', 'earned_collect', 'redeemed') NOT NULL,
			amount DOUBLE NOT NULL,
			description TEXT NOT NULL,
			date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			INDEX user_date_index (user_id, date),
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`},
	{"stations", `
		CREATE TABLE IF NOT EXISTS stations (
			id BIGINT NOT NULL AUTO_INCREMENT,
			name VARCHAR(255) NOT NULL,
			location TEXT NOT NULL,
			recycle_types TEXT NOT NULL,
			active_status BOOL NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id)
		)`},
}

// EnsureSchema creates every table that does not exist yet.
func (d *Database) EnsureSchema(ctx context.Context) error {
	for _, t := range tables {
		if _, err := d.db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
		log.Infof("%s table ensured", t.name)
	}
	return nil
}
