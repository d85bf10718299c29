package model

import "github.com/shopspring/decimal"

// Table is a seating table of a restaurant.  It is owned by the restaurant
// catalog and read-only to the reservation engine.
//
// Fields:
//  ID           – restaurant_tables.id
//  RestaurantID – restaurant_tables.restaurant_id
//  Name         – display label such as "T4" or "Terrace 2".
//  Capacity     – maximum party size the table seats.
type Table struct {
    ID           uint64 `json:"id"`
    RestaurantID uint64 `json:"restaurant_id"`
    Name         string `json:"name"`
    Capacity     int    `json:"capacity"`
}

// MenuItem is a priceable entry of a restaurant menu.
type MenuItem struct {
    ID           uint64          `json:"id"`
    RestaurantID uint64          `json:"restaurant_id"`
    Name         string          `json:"name"`
    Price        decimal.Decimal `json:"price"`
    Available    bool            `json:"available"`
}
