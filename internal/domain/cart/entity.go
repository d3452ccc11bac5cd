// internal/domain/cart/entity.go
package cart

// Item is the product data captured when a product is added to the cart
type Item struct {
	ProductID      string `json:"id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	CollectionName string `json:"collection"`
	UnitPrice      int64  `json:"price" binding:"required,gt=0"` // Smallest display unit
	Image          string `json:"image"`
}

// Line represents one product entry in the cart.
// The JSON shape is what gets written to shared storage.
type Line struct {
	ProductID      string `json:"id"`
	Name           string `json:"name"`
	CollectionName string `json:"collection"`
	UnitPrice      int64  `json:"price"`
	Image          string `json:"image"`
	Quantity       int    `json:"quantity"`
}

// Total returns unit price multiplied by quantity
func (l Line) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Totals represents calculated cart totals
type Totals struct {
	ItemCount     int   `json:"item_count"`     // Number of unique lines
	TotalQuantity int   `json:"total_quantity"` // Sum of all quantities
	SubTotal      int64 `json:"sub_total"`      // Total before discount/shipping
}

// EventType names a cart notification
type EventType string

const (
	// EventItemAdded fires after AddItem, for presentation-layer effects
	EventItemAdded EventType = "item-added"
	// EventCartUpdated fires after every change, local or remote
	EventCartUpdated EventType = "cart-updated"
)

// Origin tells whether a change was made by this tab or received from another one
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// Event is delivered to same-tab listeners
type Event struct {
	Type     EventType `json:"type"`
	Origin   Origin    `json:"origin"`
	Lines    []Line    `json:"lines"`
	Line     *Line     `json:"line,omitempty"`     // Set for item-added
	Quantity int       `json:"quantity,omitempty"` // Quantity added, for item-added
}

// CalculateTotals computes totals for a set of lines
func CalculateTotals(lines []Line) Totals {
	var totals Totals

	totals.ItemCount = len(lines)
	for _, line := range lines {
		totals.TotalQuantity += line.Quantity
		totals.SubTotal += line.Total()
	}

	return totals
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
