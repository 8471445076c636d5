package repos

import (
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"agrimarket/internal/domain"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	var schema []string
	switch driver {
	case DriverSQLite, "":
		driver, schema = DriverSQLite, sqliteSchema
	case DriverMySQL:
		schema = mysqlSchema
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// An in-memory database lives on a single connection, and SQLite only
		// admits one writer anyway.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("schema: %w", err)
		}
	}
	return db, nil
}

var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON`,

	// Users are owned by the auth collaborator; this service only reads them.
	`CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL CHECK (role IN ('farmer','consumer')),
  password_hash TEXT NOT NULL DEFAULT '',
  created_at TEXT
)`,

	`CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  farmer_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  commodity TEXT NOT NULL,
  units TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 0),
  image_url TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'available',
  uploaded_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_products_farmer ON products(farmer_id)`,

	`CREATE TABLE IF NOT EXISTS negotiations(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  sender_id TEXT NOT NULL,
  receiver_id TEXT NOT NULL,
  suggested_price TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  justification TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','accepted','rejected')),
  is_read INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_negotiations_sender   ON negotiations(sender_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_negotiations_receiver ON negotiations(receiver_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_negotiations_product  ON negotiations(product_id)`,

	`CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  product_id TEXT NOT NULL REFERENCES products(id),
  negotiation_id TEXT UNIQUE REFERENCES negotiations(id),
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  total_price TEXT NOT NULL,
  negotiated_price TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id, created_at)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users(
  id VARCHAR(64) PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  phone VARCHAR(32) NOT NULL DEFAULT '',
  image_url VARCHAR(1024) NOT NULL DEFAULT '',
  role VARCHAR(16) NOT NULL,
  password_hash VARCHAR(255) NOT NULL DEFAULT '',
  created_at VARCHAR(32),
  CHECK (role IN ('farmer','consumer'))
)`,

	`CREATE TABLE IF NOT EXISTS products(
  id VARCHAR(64) PRIMARY KEY,
  farmer_id VARCHAR(64) NOT NULL,
  product_name VARCHAR(255) NOT NULL,
  commodity VARCHAR(255) NOT NULL,
  units VARCHAR(64) NOT NULL DEFAULT '',
  price DECIMAL(14,2) NOT NULL,
  quantity INT NOT NULL,
  image_url VARCHAR(1024) NOT NULL DEFAULT '',
  status VARCHAR(32) NOT NULL DEFAULT 'available',
  uploaded_at VARCHAR(32) NOT NULL,
  INDEX idx_products_farmer (farmer_id),
  CHECK (quantity >= 0)
)`,

	`CREATE TABLE IF NOT EXISTS negotiations(
  id VARCHAR(64) PRIMARY KEY,
  product_id VARCHAR(64) NOT NULL,
  sender_id VARCHAR(64) NOT NULL,
  receiver_id VARCHAR(64) NOT NULL,
  suggested_price DECIMAL(14,2) NOT NULL,
  quantity INT NOT NULL,
  justification TEXT NOT NULL,
  status VARCHAR(16) NOT NULL DEFAULT 'pending',
  is_read TINYINT(1) NOT NULL DEFAULT 0,
  created_at VARCHAR(32) NOT NULL,
  INDEX idx_negotiations_sender (sender_id, created_at),
  INDEX idx_negotiations_receiver (receiver_id, created_at),
  INDEX idx_negotiations_product (product_id),
  FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
  CHECK (quantity > 0),
  CHECK (status IN ('pending','accepted','rejected'))
)`,

	`CREATE TABLE IF NOT EXISTS orders(
  id VARCHAR(64) PRIMARY KEY,
  buyer_id VARCHAR(64) NOT NULL,
  product_id VARCHAR(64) NOT NULL,
  negotiation_id VARCHAR(64) NULL UNIQUE,
  quantity INT NOT NULL,
  total_price DECIMAL(14,2) NOT NULL,
  negotiated_price DECIMAL(14,2) NULL,
  status VARCHAR(16) NOT NULL DEFAULT 'pending',
  created_at VARCHAR(32) NOT NULL,
  INDEX idx_orders_buyer (buyer_id, created_at),
  FOREIGN KEY (product_id) REFERENCES products(id),
  FOREIGN KEY (negotiation_id) REFERENCES negotiations(id),
  CHECK (quantity > 0)
)`,
}

// SeedDemo inserts a few farmers, consumers and products when the users table
// is empty. Safe to run on every start.
func SeedDemo(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo users/products")

	type u struct {
		ID, Name, Phone, Role string
	}
	users := []u{
		{"u-ramesh", "Ramesh", "+91-9000000001", domain.RoleFarmer},
		{"u-lakshmi", "Lakshmi", "+91-9000000002", domain.RoleFarmer},
		{"u-anita", "Anita", "+91-9000000003", domain.RoleConsumer},
		{"u-vikram", "Vikram", "+91-9000000004", domain.RoleConsumer},
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := domain.Now()
	for _, x := range users {
		h, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO users(id,name,phone,image_url,role,password_hash,created_at)
			VALUES(?,?,?,?,?,?,?)
		`, x.ID, x.Name, x.Phone, "", x.Role, string(h), now); err != nil {
			return err
		}
	}

	type p struct {
		ID, Farmer, Name, Commodity, Units, Price string
		Qty                                      int
	}
	products := []p{
		{"p-tomato", "u-ramesh", "Tomato", "Tomato", "kg", "24.00", 120},
		{"p-banana", "u-ramesh", "Banana", "Banana", "dozen", "48.50", 40},
		{"p-onion", "u-lakshmi", "Onion", "Onion", "kg", "31.00", 200},
	}
	for _, x := range products {
		if _, err := tx.Exec(`
			INSERT INTO products(id,farmer_id,product_name,commodity,units,price,quantity,image_url,status,uploaded_at)
			VALUES(?,?,?,?,?,?,?,?,?,?)
		`, x.ID, x.Farmer, x.Name, x.Commodity, x.Units, decimal.RequireFromString(x.Price), x.Qty,
			"products/"+x.ID+".jpg", domain.ProductAvailable, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}
