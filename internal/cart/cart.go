package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
)

// Line is the stored form of one cart entry. Price is the unit price
// captured on first add and is never refreshed from the catalog.
type Line struct {
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Item is a line resolved against the catalog.
type Item struct {
	Product  models.Product
	Quantity int
	Price    decimal.Decimal
	Total    decimal.Decimal
}

type Catalog interface {
	FindByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
}

// Cart is bound to one session slot. Mutations stay in memory until Save.
type Cart struct {
	store session.Store
	sid   string
	slot  string

	lines   map[string]*Line
	dirty   bool
	cleared bool
}

func New(store session.Store, sid, slot string) *Cart {
	return &Cart{
		store: store,
		sid:   sid,
		slot:  slot,
		lines: map[string]*Line{},
	}
}

// Load reads the cart slot of the session. A missing slot yields an empty cart.
func Load(ctx context.Context, store session.Store, sid, slot string) (*Cart, error) {
	c := New(store, sid, slot)

	data, err := store.Get(ctx, sid, slot)
	if errors.Is(err, session.ErrNoSlot) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	if err := json.Unmarshal(data, &c.lines); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if c.lines == nil {
		c.lines = map[string]*Line{}
	}
	return c, nil
}

func (c *Cart) SessionID() string { return c.sid }

// Reload reads the stored state of the same session slot. Unsaved
// mutations on c are not carried over.
func (c *Cart) Reload(ctx context.Context) (*Cart, error) {
	return Load(ctx, c.store, c.sid, c.slot)
}

func (c *Cart) Add(p models.Product, quantity int, replace bool) {
	key := lineKey(p.ID)
	line, ok := c.lines[key]
	if !ok {
		line = &Line{Quantity: 0, Price: p.Price.StringFixed(2)}
		c.lines[key] = line
	}

	if replace {
		line.Quantity = quantity
	} else {
		line.Quantity += quantity
	}
	c.dirty = true
}

func (c *Cart) Remove(productID uint) {
	key := lineKey(productID)
	if _, ok := c.lines[key]; ok {
		delete(c.lines, key)
		c.dirty = true
	}
}

// Clear drops every line and removes the slot on Save.
func (c *Cart) Clear() {
	c.lines = map[string]*Line{}
	c.cleared = true
	c.dirty = true
}

// Len is the sum of quantities over every stored line, resolvable or not.
func (c *Cart) Len() int {
	n := 0
	for _, line := range c.lines {
		n += line.Quantity
	}
	return n
}

// Empty reports whether the cart has no stored lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// TotalPrice sums snapshot price times quantity over every stored line.
// It does not consult the catalog. A malformed price panics.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		price := decimal.RequireFromString(line.Price)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Items resolves the stored lines with one catalog lookup. Lines whose
// product no longer exists are skipped. Each call performs a fresh lookup.
func (c *Cart) Items(ctx context.Context, catalog Catalog) ([]Item, error) {
	if len(c.lines) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(c.lines))
	for key := range c.lines {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products, err := catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve cart items: %w", err)
	}

	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		line := c.lines[lineKey(id)]
		price := decimal.RequireFromString(line.Price)
		items = append(items, Item{
			Product:  p,
			Quantity: line.Quantity,
			Price:    price,
			Total:    price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return items, nil
}

// Save persists pending mutations. A cleared cart with no new lines
// deletes the slot.
func (c *Cart) Save(ctx context.Context) error {
	if !c.dirty {
		return nil
	}

	if c.cleared && len(c.lines) == 0 {
		if err := c.store.Delete(ctx, c.sid, c.slot); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		c.dirty = false
		return nil
	}

	data, err := json.Marshal(c.lines)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.store.Set(ctx, c.sid, c.slot, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	c.dirty = false
	return nil
}

func lineKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
