// Command tokengen prints a signed access token for local testing.
//
//	go run ./cmd/tokengen -user 42 -role CUSTOMER -ttl 1h
//
// The secret is read from JWT_SECRET (a .env file is honoured).
package main

import (
    "flag"
    "fmt"
    "log"
    "os"
    "time"

    "github.com/joho/godotenv"

    "github.com/iliyamo/restaurant-reservation/internal/model"
    "github.com/iliyamo/restaurant-reservation/internal/utils"
)

func main() {
    user := flag.Uint64("user", 0, "user id (sub claim)")
    role := flag.String("role", string(model.RoleCustomer), "CUSTOMER or ADMIN")
    ttl := flag.Duration("ttl", time.Hour, "token lifetime")
    flag.Parse()

    _ = godotenv.Load()
    secret := os.Getenv("JWT_SECRET")
    if secret == "" {
        log.Fatal("JWT_SECRET is not set")
    }
    if *user == 0 {
        log.Fatal("-user is required")
    }
    r := model.Role(*role)
    if r != model.RoleCustomer && r != model.RoleAdmin {
        log.Fatalf("unknown role %q", *role)
    }

    tok, err := utils.NewAccessToken(secret, model.Identity{UserID: *user, Role: r}, *ttl)
    if err != nil {
        log.Fatal(err)
    }
    fmt.Println(tok.Token)
}
