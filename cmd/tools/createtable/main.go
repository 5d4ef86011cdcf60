package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get DB: %v", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS order_reviews (
		  id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		  user_id CHAR(36) NOT NULL,
		  order_data JSON NOT NULL,
		  shipping_address JSON NOT NULL,
		  admin_picture_replies JSON NULL,
		  customer_confirmations JSON NULL,
		  subtotal_cents INT NOT NULL,
		  shipping_cents INT NOT NULL,
		  tax_cents INT NOT NULL,
		  total_cents INT NOT NULL,
		  currency CHAR(3) NOT NULL DEFAULT 'USD',
		  shipping_method VARCHAR(32) NOT NULL,
		  customer_notes TEXT NULL,
		  operator_notes TEXT NULL,
		  status VARCHAR(32) NOT NULL,
		  reject_reason VARCHAR(500) NULL,
		  submitted_at DATETIME(3) NOT NULL,
		  reviewed_at DATETIME(3) NULL,
		  picture_reply_uploaded_at DATETIME(3) NULL,
		  confirmed_at DATETIME(3) NULL,
		  updated_at DATETIME(3) NOT NULL,
		  PRIMARY KEY (id),
		  KEY ix_order_reviews_user_id (user_id),
		  KEY ix_order_reviews_status (status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS orders (
		  id CHAR(36) NOT NULL,
		  order_number VARCHAR(64) NOT NULL,
		  order_review_id BIGINT UNSIGNED NOT NULL,
		  user_id CHAR(36) NOT NULL,
		  items_json JSON NOT NULL,
		  shipping_address JSON NOT NULL,
		  subtotal_cents INT NOT NULL,
		  shipping_cents INT NOT NULL,
		  tax_cents INT NOT NULL,
		  total_cents INT NOT NULL,
		  refunded_cents INT NOT NULL DEFAULT 0,
		  currency CHAR(3) NOT NULL,
		  payment_status VARCHAR(32) NOT NULL,
		  fulfillment_status VARCHAR(32) NOT NULL,
		  payment_provider VARCHAR(64) NOT NULL,
		  capture_reference VARCHAR(128) NULL,
		  transaction_id VARCHAR(128) NULL,
		  tracking_carrier VARCHAR(64) NULL,
		  tracking_number VARCHAR(128) NULL,
		  paid_at DATETIME(3) NOT NULL,
		  shipped_at DATETIME(3) NULL,
		  delivered_at DATETIME(3) NULL,
		  refunded_at DATETIME(3) NULL,
		  created_at DATETIME(3) NOT NULL,
		  updated_at DATETIME(3) NOT NULL,
		  PRIMARY KEY (id),
		  UNIQUE KEY ux_orders_order_number (order_number),
		  UNIQUE KEY ux_orders_order_review_id (order_review_id),
		  KEY ix_orders_user_id (user_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS order_events (
		  id CHAR(36) NOT NULL,
		  order_id CHAR(36) NOT NULL,
		  actor_user_id CHAR(36) NOT NULL,
		  action VARCHAR(32) NOT NULL,
		  from_status VARCHAR(32) NOT NULL,
		  to_status VARCHAR(32) NOT NULL,
		  note VARCHAR(500) NULL,
		  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		  PRIMARY KEY (id),
		  KEY ix_order_events_order_id (order_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS order_financial_entries (
		  id CHAR(36) NOT NULL,
		  order_id CHAR(36) NOT NULL,
		  event VARCHAR(32) NOT NULL,
		  amount_cents INT NOT NULL,
		  currency CHAR(3) NOT NULL,
		  ref_type VARCHAR(16) NOT NULL,
		  ref_id CHAR(36) NOT NULL,
		  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		  PRIMARY KEY (id),
		  KEY ix_order_financial_entries_order_id (order_id),
		  KEY ix_order_financial_entries_ref (ref_type, ref_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS provider_events (
		  id CHAR(36) NOT NULL,
		  provider VARCHAR(64) NOT NULL,
		  event_id VARCHAR(128) NOT NULL,
		  event_type VARCHAR(64) NOT NULL,
		  payload_json JSON NOT NULL,
		  received_at DATETIME(3) NOT NULL,
		  processed_at DATETIME(3) NULL,
		  process_error VARCHAR(255) NULL,
		  PRIMARY KEY (id),
		  UNIQUE KEY ux_provider_events_provider_event (provider, event_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,

		`CREATE TABLE IF NOT EXISTS refund_requests (
		  id CHAR(36) NOT NULL,
		  order_id CHAR(36) NOT NULL,
		  type VARCHAR(16) NOT NULL,
		  requested_cents INT NOT NULL,
		  original_cents INT NOT NULL,
		  currency CHAR(3) NOT NULL,
		  lines_json JSON NULL,
		  reason_code VARCHAR(64) NOT NULL,
		  description VARCHAR(500) NULL,
		  status VARCHAR(32) NOT NULL,
		  admin_notes VARCHAR(500) NULL,
		  rejection_reason VARCHAR(500) NULL,
		  requested_by_user_id CHAR(36) NOT NULL,
		  capture_reference VARCHAR(128) NULL,
		  provider_refund_id VARCHAR(128) NULL,
		  last_process_error VARCHAR(255) NULL,
		  requested_at DATETIME(3) NOT NULL,
		  reviewed_at DATETIME(3) NULL,
		  processed_at DATETIME(3) NULL,
		  completed_at DATETIME(3) NULL,
		  updated_at DATETIME(3) NOT NULL,
		  PRIMARY KEY (id),
		  KEY ix_refund_requests_order_id (order_id),
		  KEY ix_refund_requests_status (status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	}

	for _, stmt := range stmts {
		if _, err := sqlDB.Exec(stmt); err != nil {
			log.Fatalf("Failed to create table: %v", err)
		}
	}

	log.Println("✓ order_reviews table ready")
	log.Println("✓ orders table ready")
	log.Println("✓ order_events table ready")
	log.Println("✓ order_financial_entries table ready")
	log.Println("✓ provider_events table ready")
	log.Println("✓ refund_requests table ready")
}
