package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Order is a set of menu items bound to exactly one reservation.  Several
// orders may reference the same reservation (incremental additions).
type Order struct {
    ID            uint64          `json:"id"`
    ReservationID uint64          `json:"reservation_id"`
    CustomerID    uint64          `json:"customer_id"`
    State         OrderState      `json:"state"`
    Items         []OrderItem     `json:"items"`
    Total         decimal.Decimal `json:"total"`
    CreatedAt     time.Time       `json:"created_at"`
    UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderItem is a single line of an order.  UnitPrice is a snapshot of the
// menu price at the time the line was written.
type OrderItem struct {
    MenuItemID uint64          `json:"menu_item_id"`
    Quantity   int             `json:"quantity"`
    UnitPrice  decimal.Decimal `json:"unit_price"`
}

// LineItem is a requested order line before it has been priced.
type LineItem struct {
    MenuItemID uint64 `json:"menu_item_id"`
    Quantity   int    `json:"quantity"`
}

// Subtotal returns quantity times unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
    return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SumItems totals the given lines.
func SumItems(items []OrderItem) decimal.Decimal {
    total := decimal.Zero
    for _, it := range items {
        total = total.Add(it.Subtotal())
    }
    return total
}
