package database

import (
    "context"
    "database/sql"
    "fmt"
)

// schema is applied in order at startup.  Every statement is idempotent.
// restaurant_tables and menu_items belong to the catalog and are created
// only so the service can run on an empty database.
var schema = []string{
    `CREATE TABLE IF NOT EXISTS restaurant_tables (
        id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        restaurant_id BIGINT UNSIGNED NOT NULL,
        name          VARCHAR(64)     NOT NULL,
        capacity      INT             NOT NULL,
        KEY idx_tables_restaurant (restaurant_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS menu_items (
        id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        restaurant_id BIGINT UNSIGNED NOT NULL,
        name          VARCHAR(128)    NOT NULL,
        price         DECIMAL(12,2)   NOT NULL,
        is_available  TINYINT(1)      NOT NULL DEFAULT 1,
        KEY idx_menu_restaurant (restaurant_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS reservations (
        id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        restaurant_id BIGINT UNSIGNED NOT NULL,
        table_id      BIGINT UNSIGNED NOT NULL,
        customer_id   BIGINT UNSIGNED NOT NULL,
        window_start  DATETIME        NOT NULL,
        window_end    DATETIME        NOT NULL,
        party_size    INT             NOT NULL,
        status        ENUM('PENDING','CONFIRMED','CANCELLED','COMPLETED') NOT NULL,
        notes         VARCHAR(500)    NULL,
        created_at    DATETIME        NOT NULL,
        updated_at    DATETIME        NOT NULL,
        KEY idx_reservations_window (table_id, window_start, window_end),
        KEY idx_reservations_customer (customer_id),
        KEY idx_reservations_restaurant (restaurant_id, window_start),
        KEY idx_reservations_status_end (status, window_end),
        CONSTRAINT chk_reservations_window CHECK (window_end > window_start)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS orders (
        id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        reservation_id BIGINT UNSIGNED NOT NULL,
        customer_id    BIGINT UNSIGNED NOT NULL,
        status         ENUM('OPEN','FINALIZED') NOT NULL,
        total          DECIMAL(12,2)   NOT NULL,
        created_at     DATETIME        NOT NULL,
        updated_at     DATETIME        NOT NULL,
        KEY idx_orders_reservation (reservation_id),
        KEY idx_orders_customer (customer_id),
        CONSTRAINT fk_orders_reservation FOREIGN KEY (reservation_id) REFERENCES reservations (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS order_items (
        id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        order_id     BIGINT UNSIGNED NOT NULL,
        menu_item_id BIGINT UNSIGNED NOT NULL,
        quantity     INT             NOT NULL,
        unit_price   DECIMAL(12,2)   NOT NULL,
        KEY idx_order_items_order (order_id),
        CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders (id) ON DELETE CASCADE
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
    for i, stmt := range schema {
        if _, err := db.ExecContext(ctx, stmt); err != nil {
            return fmt.Errorf("migration step %d: %w", i+1, err)
        }
    }
    return nil
}
