package booking

import (
    "context"
    "errors"
    "fmt"
    "log/slog"

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// OrderBinder attaches orders to reservations and keeps them consistent
// with the reservation lifecycle.  Mutations run under the reservation's
// table lock so that a concurrent cancellation cannot slip in between the
// state check and the write.
type OrderBinder struct {
    m      *Manager
    orders OrderStore
    menu   MenuCatalog
}

// NewOrderBinder shares the manager's store, arbiter, publisher and logger.
func NewOrderBinder(m *Manager, orders OrderStore, menu MenuCatalog) *OrderBinder {
    if m == nil || orders == nil || menu == nil {
        panic("nil dependency passed to NewOrderBinder")
    }
    return &OrderBinder{m: m, orders: orders, menu: menu}
}

// MaxLineQuantity caps the quantity of one menu item in an order, after
// repeated lines are merged.
const MaxLineQuantity = 1000

// normalizeLines rejects empty lists and bad quantities and merges repeated
// menu items, keeping first-seen order.
func normalizeLines(lines []model.LineItem) ([]model.LineItem, error) {
    if len(lines) == 0 {
        return nil, validationf("order must include at least one item")
    }
    out := make([]model.LineItem, 0, len(lines))
    pos := make(map[uint64]int, len(lines))
    for _, l := range lines {
        if l.MenuItemID == 0 {
            return nil, validationf("menu_item_id is required")
        }
        if l.Quantity <= 0 {
            return nil, validationf("quantity for menu item %d must be positive", l.MenuItemID)
        }
        if l.Quantity > MaxLineQuantity {
            return nil, validationf("quantity for menu item %d exceeds %d", l.MenuItemID, MaxLineQuantity)
        }
        if i, ok := pos[l.MenuItemID]; ok {
            // Both operands are at most MaxLineQuantity, so the sum cannot overflow.
            if out[i].Quantity+l.Quantity > MaxLineQuantity {
                return nil, validationf("quantity for menu item %d exceeds %d", l.MenuItemID, MaxLineQuantity)
            }
            out[i].Quantity += l.Quantity
            continue
        }
        pos[l.MenuItemID] = len(out)
        out = append(out, l)
    }
    return out, nil
}

// price resolves every line against the menu of the reservation's
// restaurant and snapshots its price.
func (b *OrderBinder) price(ctx context.Context, restaurantID uint64, lines []model.LineItem) ([]model.OrderItem, error) {
    items := make([]model.OrderItem, 0, len(lines))
    for _, l := range lines {
        mi, err := b.menu.GetMenuItem(ctx, l.MenuItemID)
        if errors.Is(err, ErrNotFound) {
            return nil, validationf("menu item %d does not exist", l.MenuItemID)
        }
        if err != nil {
            return nil, err
        }
        if mi.RestaurantID != restaurantID {
            return nil, validationf("menu item %d does not belong to restaurant %d", l.MenuItemID, restaurantID)
        }
        if !mi.Available {
            return nil, validationf("menu item %d is not available", l.MenuItemID)
        }
        items = append(items, model.OrderItem{MenuItemID: mi.ID, Quantity: l.Quantity, UnitPrice: mi.Price})
    }
    return items, nil
}

func bookable(r model.Reservation) error {
    if !r.State.HoldsTable() {
        return invalidStatef("reservation %d is %s", r.ID, r.State)
    }
    return nil
}

// AttachOrder creates an order on a PENDING or CONFIRMED reservation.
func (b *OrderBinder) AttachOrder(ctx context.Context, actor model.Identity, reservationID uint64, lines []model.LineItem) (model.Order, error) {
    lines, err := normalizeLines(lines)
    if err != nil {
        return model.Order{}, err
    }
    r, err := b.m.store.GetReservation(ctx, reservationID)
    if err != nil {
        return model.Order{}, err
    }
    if !r.OwnedBy(actor) {
        return model.Order{}, fmt.Errorf("%w: reservation %d belongs to another customer", ErrForbidden, reservationID)
    }
    if err := bookable(r); err != nil {
        return model.Order{}, err
    }
    items, err := b.price(ctx, r.RestaurantID, lines)
    if err != nil {
        return model.Order{}, err
    }

    var o model.Order
    err = b.m.arbiter.WithTableLock(ctx, r.TableID, func() error {
        cur, err := b.m.store.GetReservation(ctx, reservationID)
        if err != nil {
            return err
        }
        if err := bookable(cur); err != nil {
            return err
        }
        o = model.Order{
            ReservationID: reservationID,
            CustomerID:    cur.CustomerID,
            State:         model.OrderOpen,
            Items:         items,
            Total:         model.SumItems(items),
        }
        return b.orders.CreateOrder(ctx, &o)
    })
    if err != nil {
        b.m.logOutcome(ctx, "attach_order", r.TableID, err)
        return model.Order{}, err
    }
    b.m.log.Info(ctx, "attach_order", "order attached",
        slog.Uint64("order_id", o.ID), slog.Uint64("reservation_id", reservationID))
    b.emit(ctx, EventOrderAttached, o, r, actor.UserID)
    return o, nil
}

// ModifyOrder replaces the items of an OPEN order.  The reservation state is
// checked as it is now, not as it was when the order was created.
func (b *OrderBinder) ModifyOrder(ctx context.Context, actor model.Identity, orderID uint64, lines []model.LineItem) (model.Order, error) {
    lines, err := normalizeLines(lines)
    if err != nil {
        return model.Order{}, err
    }
    o, r, err := b.load(ctx, actor, orderID)
    if err != nil {
        return model.Order{}, err
    }
    items, err := b.price(ctx, r.RestaurantID, lines)
    if err != nil {
        return model.Order{}, err
    }

    var out model.Order
    err = b.m.arbiter.WithTableLock(ctx, r.TableID, func() error {
        cur, err := b.orders.GetOrder(ctx, orderID)
        if err != nil {
            return err
        }
        if !cur.State.Mutable() {
            return invalidStatef("order %d is %s", orderID, cur.State)
        }
        res, err := b.m.store.GetReservation(ctx, o.ReservationID)
        if err != nil {
            return err
        }
        if err := bookable(res); err != nil {
            return err
        }
        out, err = b.orders.ReplaceOrderItems(ctx, orderID, items, model.SumItems(items))
        return err
    })
    if err != nil {
        b.m.logOutcome(ctx, "modify_order", r.TableID, err)
        return model.Order{}, err
    }
    b.emit(ctx, EventOrderModified, out, r, actor.UserID)
    return out, nil
}

// FinalizeOrder freezes an OPEN order once the meal is served, regardless of
// the reservation state.  Administrators only.
func (b *OrderBinder) FinalizeOrder(ctx context.Context, actor model.Identity, orderID uint64) (model.Order, error) {
    if !actor.IsAdmin() {
        return model.Order{}, fmt.Errorf("%w: only administrators finalize orders", ErrForbidden)
    }
    o, r, err := b.load(ctx, actor, orderID)
    if err != nil {
        return model.Order{}, err
    }
    var out model.Order
    err = b.m.arbiter.WithTableLock(ctx, r.TableID, func() error {
        cur, err := b.orders.GetOrder(ctx, o.ID)
        if err != nil {
            return err
        }
        if !cur.State.CanTransitionTo(model.OrderFinalized) {
            return invalidStatef("order %d is %s", orderID, cur.State)
        }
        out, err = b.orders.TransitionOrder(ctx, orderID, cur.State, model.OrderFinalized)
        return err
    })
    if err != nil {
        return model.Order{}, err
    }
    b.emit(ctx, EventOrderFinalized, out, r, actor.UserID)
    return out, nil
}

// GetOrder returns an order visible to the actor.
func (b *OrderBinder) GetOrder(ctx context.Context, actor model.Identity, orderID uint64) (model.Order, error) {
    o, _, err := b.load(ctx, actor, orderID)
    return o, err
}

// ListOrders returns the orders bound to a reservation visible to the actor.
func (b *OrderBinder) ListOrders(ctx context.Context, actor model.Identity, reservationID uint64) ([]model.Order, error) {
    if _, err := b.m.Get(ctx, actor, reservationID); err != nil {
        return nil, err
    }
    return b.orders.ListOrdersByReservation(ctx, reservationID)
}

// ListMine returns the actor's orders across all reservations, newest first.
func (b *OrderBinder) ListMine(ctx context.Context, actor model.Identity) ([]model.Order, error) {
    return b.orders.ListOrdersByCustomer(ctx, actor.UserID)
}

// ListByRestaurant returns every order placed at a restaurant.
// Administrators only.
func (b *OrderBinder) ListByRestaurant(ctx context.Context, actor model.Identity, restaurantID uint64) ([]model.Order, error) {
    if !actor.IsAdmin() {
        return nil, fmt.Errorf("%w: only administrators list restaurant orders", ErrForbidden)
    }
    return b.orders.ListOrdersByRestaurant(ctx, restaurantID)
}

func (b *OrderBinder) load(ctx context.Context, actor model.Identity, orderID uint64) (model.Order, model.Reservation, error) {
    o, err := b.orders.GetOrder(ctx, orderID)
    if err != nil {
        return model.Order{}, model.Reservation{}, err
    }
    r, err := b.m.store.GetReservation(ctx, o.ReservationID)
    if err != nil {
        return model.Order{}, model.Reservation{}, err
    }
    if !r.OwnedBy(actor) {
        return model.Order{}, model.Reservation{}, fmt.Errorf("%w: order %d belongs to another customer", ErrForbidden, orderID)
    }
    return o, r, nil
}

func (b *OrderBinder) emit(ctx context.Context, typ string, o model.Order, r model.Reservation, actorID uint64) {
    b.m.emit(ctx, Event{
        Type:          typ,
        ReservationID: r.ID,
        OrderID:       o.ID,
        RestaurantID:  r.RestaurantID,
        TableID:       r.TableID,
        CustomerID:    r.CustomerID,
        ActorID:       actorID,
        Window:        windowOf(r),
        State:         string(o.State),
        OccurredAt:    b.m.now().UTC(),
    })
}
