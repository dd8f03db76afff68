// Package form decodes the grocery-list editor's form submission into a
// validated model.UpsertList. Validation is driven by a fixed table of field
// descriptors applied uniformly, rather than a hand-written block per field;
// every failure lands in an errors map keyed by the offending form field.
package form

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dukerupert/bywater/internal/model"
)

type kind int

const (
	kindString kind = iota
	kindInt
	kindFloat
)

// field describes one form field: its base key (the item's listKey is
// appended for per-item fields), its type, and its bounds. For strings the
// bounds are rune-count limits; for numbers they are value limits. A max of
// zero means unbounded.
type field struct {
	key      string
	kind     kind
	required bool
	min      float64
	max      float64
}

var listFields = []field{
	{key: "id", kind: kindInt},
	{key: "title", kind: kindString, required: true, min: 1, max: 256},
	{key: "budget", kind: kindFloat, min: 0},
}

var itemFields = []field{
	{key: "itemId", kind: kindInt},
	{key: "itemName", kind: kindString, required: true, min: 1, max: 256},
	{key: "itemQuantity", kind: kindInt, min: 1, max: 1000000},
	{key: "itemNotes", kind: kindString, min: 1, max: 256},
	{key: "itemLink", kind: kindString, min: 1, max: 256},
	{key: "itemGroupName", kind: kindString, min: 1, max: 256},
	{key: "itemSubstituteForItemId", kind: kindInt},
	{key: "itemSubstituteForItemListKey", kind: kindString, min: 1},
}

// ParseGroceryList decodes values into an upsert command. The form carries an
// itemsCount field and, for each index i, an itemListKey{i} field whose value
// keys every other field of that item (itemName{listKey}, itemId{listKey},
// ...). On any validation failure the command is nil and the map holds one
// message per failed field.
func ParseGroceryList(values url.Values) (*model.UpsertList, map[string]string) {
	errs := make(map[string]string)

	itemsCount, ok := parseCount(values.Get("itemsCount"))
	if !ok {
		errs["itemsCount"] = "must be a non-negative number"
		return nil, errs
	}

	parsed := parseFields(values, listFields, "", errs)

	items := make([]model.UpsertListItem, 0, itemsCount)
	for i := 0; i < itemsCount; i++ {
		indexKey := fmt.Sprintf("itemListKey%d", i)
		listKey := strings.TrimSpace(values.Get(indexKey))
		if listKey == "" {
			errs[indexKey] = "is required"
			continue
		}

		itemParsed := parseFields(values, itemFields, listKey, errs)
		items = append(items, model.UpsertListItem{
			ID:                       intField(itemParsed, "itemId"),
			Name:                     stringValue(itemParsed, "itemName"),
			Quantity:                 intField(itemParsed, "itemQuantity"),
			Notes:                    stringField(itemParsed, "itemNotes"),
			Link:                     stringField(itemParsed, "itemLink"),
			GroupName:                stringField(itemParsed, "itemGroupName"),
			ListKey:                  listKey,
			SubstituteForItemID:      intField(itemParsed, "itemSubstituteForItemId"),
			SubstituteForItemListKey: stringField(itemParsed, "itemSubstituteForItemListKey"),
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	cmd := &model.UpsertList{
		ID:     intField(parsed, "id"),
		Title:  stringValue(parsed, "title"),
		Budget: floatField(parsed, "budget"),
		Items:  items,
	}
	return cmd, errs
}

func parseCount(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseFields runs every descriptor against values, suffixing keys with
// suffix, and returns the parsed values keyed by base key. Missing or empty
// optional fields parse to nil.
func parseFields(values url.Values, fields []field, suffix string, errs map[string]string) map[string]any {
	parsed := make(map[string]any, len(fields))
	for _, f := range fields {
		formKey := f.key + suffix
		value, msg := parseField(values.Get(formKey), f)
		if msg != "" {
			errs[formKey] = msg
			continue
		}
		parsed[f.key] = value
	}
	return parsed
}

func parseField(raw string, f field) (any, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if f.required {
			return nil, "is required"
		}
		return nil, ""
	}

	switch f.kind {
	case kindString:
		n := len([]rune(raw))
		if n < int(f.min) {
			return nil, fmt.Sprintf("must be at least %d characters", int(f.min))
		}
		if f.max > 0 && n > int(f.max) {
			return nil, fmt.Sprintf("cannot be more than %d characters", int(f.max))
		}
		return raw, ""
	case kindInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, "must be a number"
		}
		if float64(v) < f.min {
			return nil, fmt.Sprintf("must be at least %d", int(f.min))
		}
		if f.max > 0 && float64(v) > f.max {
			return nil, fmt.Sprintf("cannot be more than %d", int(f.max))
		}
		return v, ""
	case kindFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, "must be a number"
		}
		if v < f.min {
			return nil, fmt.Sprintf("must be at least %g", f.min)
		}
		if f.max > 0 && v > f.max {
			return nil, fmt.Sprintf("cannot be more than %g", f.max)
		}
		return v, ""
	}
	return nil, ""
}

func intField(parsed map[string]any, key string) *int64 {
	if v, ok := parsed[key].(int64); ok {
		return &v
	}
	return nil
}

func floatField(parsed map[string]any, key string) *float64 {
	if v, ok := parsed[key].(float64); ok {
		return &v
	}
	return nil
}

func stringField(parsed map[string]any, key string) *string {
	if v, ok := parsed[key].(string); ok {
		return &v
	}
	return nil
}

func stringValue(parsed map[string]any, key string) string {
	if v, ok := parsed[key].(string); ok {
		return v
	}
	return ""
}
