package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; parents before children.  order_items keep a
// RESTRICT reference to seats so an event cannot vanish under sold seats.
var schema = []struct {
	table string
	ddl   string
}{
	{"users", `CREATE TABLE IF NOT EXISTS users (
  username VARCHAR(50) PRIMARY KEY,
  password VARCHAR(255) NOT NULL,
  role ENUM('ADMIN','USER') NOT NULL DEFAULT 'USER'
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"events", `CREATE TABLE IF NOT EXISTS events (
  id VARCHAR(64) PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  date DATE NULL,
  venue VARCHAR(255),
  start_time TIME NULL,
  end_time TIME NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"seats", `CREATE TABLE IF NOT EXISTS seats (
  event_id VARCHAR(64) NOT NULL,
  row_label VARCHAR(4) NOT NULL,
  seat_number INT NOT NULL,
  type ENUM('STANDARD','VIP') NOT NULL DEFAULT 'STANDARD',
  status ENUM('AVAILABLE','RESERVED') NOT NULL DEFAULT 'AVAILABLE',
  price_cents INT NOT NULL,
  PRIMARY KEY (event_id, row_label, seat_number),
  KEY idx_seats_event_status (event_id, status),
  FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"seat_holds", `CREATE TABLE IF NOT EXISTS seat_holds (
  event_id VARCHAR(64) NOT NULL,
  row_label VARCHAR(4) NOT NULL,
  seat_number INT NOT NULL,
  user_id VARCHAR(50) NOT NULL,
  hold_token CHAR(36) NOT NULL,
  expires_at DATETIME NOT NULL,
  PRIMARY KEY (event_id, row_label, seat_number),
  KEY idx_seat_holds_expires (expires_at),
  FOREIGN KEY (event_id, row_label, seat_number)
    REFERENCES seats(event_id, row_label, seat_number) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"orders", `CREATE TABLE IF NOT EXISTS orders (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  user_id VARCHAR(50) NOT NULL,
  booked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  total_cents INT NOT NULL,
  KEY idx_orders_user (user_id, booked_at),
  FOREIGN KEY (user_id) REFERENCES users(username) ON DELETE CASCADE ON UPDATE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"order_items", `CREATE TABLE IF NOT EXISTS order_items (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  order_id BIGINT NOT NULL,
  event_id VARCHAR(64) NOT NULL,
  row_label VARCHAR(4) NOT NULL,
  seat_number INT NOT NULL,
  price_cents INT NOT NULL,
  KEY idx_order_items_event (event_id),
  FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE ON UPDATE CASCADE,
  FOREIGN KEY (event_id, row_label, seat_number)
    REFERENCES seats(event_id, row_label, seat_number) ON DELETE RESTRICT ON UPDATE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
}

// Migrate creates any missing table.  A failure here is fatal for startup:
// the ledger cannot run against a partial schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, s := range schema {
		if _, err := db.ExecContext(ctx, s.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", s.table, err)
		}
	}
	return nil
}
