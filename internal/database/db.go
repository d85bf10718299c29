package database

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/restaurant-reservation/internal/config"
)

// DSN builds the MySQL data source name for cfg.
// parseTime=true maps DATETIME to time.Time and loc=UTC keeps reservation
// windows comparable across hosts.
func DSN(cfg config.Config) string {
    mc := mysql.NewConfig()
    mc.User = cfg.DBUser
    mc.Passwd = cfg.DBPass
    mc.Net = "tcp"
    mc.Addr = cfg.DBHost + ":" + cfg.DBPort
    mc.DBName = cfg.DBName
    mc.ParseTime = true
    mc.Loc = time.UTC
    mc.Params = map[string]string{"charset": "utf8mb4"}
    return mc.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(cfg config.Config) (*sql.DB, error) {
    db, err := sql.Open("mysql", DSN(cfg))
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
        _ = db.Close()
        return nil, fmt.Errorf("ping %s:%s: %w", cfg.DBHost, cfg.DBPort, err)
    }
    return db, nil
}
