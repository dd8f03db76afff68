package model

import "time"

type GroceryList struct {
	ID        int64             `json:"id"`
	Title     string            `json:"title"`
	Budget    *float64          `json:"budget"`
	Items     []GroceryListItem `json:"items"`
	OwnerID   string            `json:"owner_id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type GroceryListGroup struct {
	ID        int64     `json:"id"`
	ListID    int64     `json:"list_id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GroceryListItem struct {
	ID                  int64             `json:"id"`
	ListID              int64             `json:"list_id"`
	SubstituteForItemID *int64            `json:"substitute_for_item_id"`
	Name                string            `json:"name"`
	Quantity            *int64            `json:"quantity"`
	Notes               *string           `json:"notes"`
	Link                *string           `json:"link"`
	Group               *GroceryListGroup `json:"group"`
	OwnerID             string            `json:"owner_id"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// ListSummary is the minified list view shown on the lists index. ItemCount
// counts main items only; substitute rows are excluded.
type ListSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	ItemCount int64     `json:"item_count"`
}

// UpsertList is the validated command describing the desired state of a
// grocery list. A nil ID means the list does not exist yet.
type UpsertList struct {
	ID     *int64
	Title  string
	Budget *float64
	Items  []UpsertListItem
}

// UpsertListItem describes the desired state of one item. ListKey is a
// request-scoped correlation token, never persisted: it lets a substitute for
// a not-yet-created item name its target (via SubstituteForItemListKey)
// before either row has a real id. SubstituteForItemID is used instead when
// the target is already persisted.
type UpsertListItem struct {
	ID                       *int64
	Name                     string
	Quantity                 *int64
	Notes                    *string
	Link                     *string
	GroupName                *string
	ListKey                  string
	SubstituteForItemID      *int64
	SubstituteForItemListKey *string
}
