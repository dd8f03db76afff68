package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/bywater/internal/apperr"
	"github.com/dukerupert/bywater/internal/model"
)

type ListStore struct {
	db *sql.DB
}

func NewListStore(db *sql.DB) *ListStore {
	return &ListStore{db: db}
}

// Upsert makes the persisted list match cmd exactly: the list row is
// inserted or updated, groups not named by any item are pruned, items absent
// from the command are deleted, and the remaining items are inserted or
// updated in place. Everything runs in one transaction; on error no partial
// state is left behind.
func (s *ListStore) Upsert(cmd model.UpsertList, userID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	listID, err := upsertListRow(tx, cmd, userID)
	if err != nil {
		return err
	}

	groupIDByName, err := reconcileGroups(tx, cmd, listID, userID)
	if err != nil {
		return err
	}

	if err := deleteDroppedItems(tx, cmd); err != nil {
		return err
	}

	if err := upsertItems(tx, cmd, listID, groupIDByName, userID); err != nil {
		return err
	}

	return tx.Commit()
}

// upsertListRow inserts the list row, or on id conflict updates title and
// budget, and returns the persisted id. Owner is set only at creation, and the
// conflict update is guarded by owner so a submitted id cannot take over
// another user's list; the guard makes RETURNING yield no row, which surfaces
// as not found.
func upsertListRow(tx *sql.Tx, cmd model.UpsertList, userID string) (int64, error) {
	var id int64
	var err error
	if cmd.ID != nil {
		err = tx.QueryRow(
			`INSERT INTO grocery_lists (id, title, budget, owner_id) VALUES (?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
				title = excluded.title,
				budget = excluded.budget,
				updated_at = CURRENT_TIMESTAMP
			 WHERE grocery_lists.owner_id = excluded.owner_id
			 RETURNING id`,
			*cmd.ID, cmd.Title, cmd.Budget, userID,
		).Scan(&id)
		if err == sql.ErrNoRows {
			return 0, apperr.NotFound("grocery list")
		}
	} else {
		err = tx.QueryRow(
			`INSERT INTO grocery_lists (title, budget, owner_id) VALUES (?, ?, ?) RETURNING id`,
			cmd.Title, cmd.Budget, userID,
		).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("upsert list: %w", err)
	}
	return id, nil
}

// reconcileGroups deletes groups whose name is no longer referenced by any
// item, then resolves every referenced name to a group id, inserting rows
// for names that do not exist yet. Group identity is by name.
func reconcileGroups(tx *sql.Tx, cmd model.UpsertList, listID int64, userID string) (map[string]int64, error) {
	var names []string
	seen := make(map[string]struct{})
	for _, item := range cmd.Items {
		if item.GroupName == nil {
			continue
		}
		if _, ok := seen[*item.GroupName]; ok {
			continue
		}
		seen[*item.GroupName] = struct{}{}
		names = append(names, *item.GroupName)
	}

	if cmd.ID != nil {
		if len(names) > 0 {
			query := `DELETE FROM grocery_list_groups WHERE grocery_list_id = ? AND name NOT IN (` + placeholders(len(names)) + `)`
			args := make([]any, 0, len(names)+1)
			args = append(args, *cmd.ID)
			for _, name := range names {
				args = append(args, name)
			}
			if _, err := tx.Exec(query, args...); err != nil {
				return nil, fmt.Errorf("prune groups: %w", err)
			}
		} else {
			if _, err := tx.Exec(`DELETE FROM grocery_list_groups WHERE grocery_list_id = ?`, *cmd.ID); err != nil {
				return nil, fmt.Errorf("delete groups: %w", err)
			}
		}
	}

	groupIDByName := make(map[string]int64)
	if len(names) == 0 {
		return groupIDByName, nil
	}

	query := `SELECT id, name FROM grocery_list_groups WHERE grocery_list_id = ? AND name IN (` + placeholders(len(names)) + `)`
	args := make([]any, 0, len(names)+1)
	args = append(args, listID)
	for _, name := range names {
		args = append(args, name)
	}
	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("select groups: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groupIDByName[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select groups: %w", err)
	}

	for _, name := range names {
		if _, ok := groupIDByName[name]; ok {
			continue
		}
		var id int64
		if err := tx.QueryRow(
			`INSERT INTO grocery_list_groups (grocery_list_id, name, owner_id) VALUES (?, ?, ?) RETURNING id`,
			listID, name, userID,
		).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert group: %w", err)
		}
		groupIDByName[name] = id
	}

	return groupIDByName, nil
}

// deleteDroppedItems removes persisted items the client no longer submits.
// Only items that carry an id count as "kept"; when the command has items but
// none of them carry an id, nothing is deleted here.
func deleteDroppedItems(tx *sql.Tx, cmd model.UpsertList) error {
	if cmd.ID == nil {
		return nil
	}

	var keep []any
	for _, item := range cmd.Items {
		if item.ID != nil {
			keep = append(keep, *item.ID)
		}
	}

	switch {
	case len(keep) > 0:
		query := `DELETE FROM grocery_list_items WHERE grocery_list_id = ? AND id NOT IN (` + placeholders(len(keep)) + `)`
		args := append([]any{*cmd.ID}, keep...)
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("prune items: %w", err)
		}
	case len(cmd.Items) == 0:
		if _, err := tx.Exec(`DELETE FROM grocery_list_items WHERE grocery_list_id = ?`, *cmd.ID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
	}
	return nil
}

// upsertItems writes the command's items in two phases. Phase one upserts
// every item whose substitute target (if any) already has a persisted id.
// Phase two handles forward references: a new item that other new items
// substitute for is inserted singly so its generated id is known, then its
// substitutes are inserted pointing at that id. A batched upsert cannot
// express "insert A, then insert B referencing A's generated id", hence the
// split.
func upsertItems(tx *sql.Tx, cmd model.UpsertList, listID int64, groupIDByName map[string]int64, userID string) error {
	if len(cmd.Items) == 0 {
		return nil
	}

	pendingSubs := make(map[string]bool)
	for _, item := range cmd.Items {
		if item.SubstituteForItemListKey != nil {
			pendingSubs[*item.SubstituteForItemListKey] = true
		}
	}

	// A new main item is deferred to phase two when another item in the
	// command names its listKey as a substitute target.
	isDeferredTarget := func(item model.UpsertListItem) bool {
		return item.ID == nil && item.SubstituteForItemListKey == nil && pendingSubs[item.ListKey]
	}

	for _, item := range cmd.Items {
		if item.SubstituteForItemListKey != nil && item.SubstituteForItemID == nil {
			// Substitute for a not-yet-created item; its target id is
			// unknown until phase two.
			continue
		}
		if isDeferredTarget(item) {
			continue
		}
		if err := upsertItemRow(tx, item, listID, item.SubstituteForItemID, groupIDByName, userID); err != nil {
			return err
		}
	}

	for _, item := range cmd.Items {
		if !isDeferredTarget(item) {
			continue
		}
		newID, err := insertItemRow(tx, item, listID, item.SubstituteForItemID, groupIDByName, userID)
		if err != nil {
			return err
		}
		for _, sub := range cmd.Items {
			if sub.SubstituteForItemListKey == nil || *sub.SubstituteForItemListKey != item.ListKey {
				continue
			}
			if sub.SubstituteForItemID != nil {
				// Already resolved and written in phase one.
				continue
			}
			if _, err := insertItemRow(tx, sub, listID, &newID, groupIDByName, userID); err != nil {
				return err
			}
		}
	}

	return nil
}

func upsertItemRow(tx *sql.Tx, item model.UpsertListItem, listID int64, substituteForItemID *int64, groupIDByName map[string]int64, userID string) error {
	if item.ID == nil {
		_, err := insertItemRow(tx, item, listID, substituteForItemID, groupIDByName, userID)
		return err
	}

	_, err := tx.Exec(
		`INSERT INTO grocery_list_items
			(id, grocery_list_id, grocery_list_group_id, substitute_for_item_id, name, quantity, notes, link, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			substitute_for_item_id = excluded.substitute_for_item_id,
			quantity = excluded.quantity,
			notes = excluded.notes,
			link = excluded.link,
			grocery_list_group_id = excluded.grocery_list_group_id,
			updated_at = CURRENT_TIMESTAMP`,
		*item.ID, listID, resolveGroupID(item.GroupName, groupIDByName), substituteForItemID,
		item.Name, item.Quantity, item.Notes, item.Link, userID,
	)
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

func insertItemRow(tx *sql.Tx, item model.UpsertListItem, listID int64, substituteForItemID *int64, groupIDByName map[string]int64, userID string) (int64, error) {
	var id int64
	err := tx.QueryRow(
		`INSERT INTO grocery_list_items
			(grocery_list_id, grocery_list_group_id, substitute_for_item_id, name, quantity, notes, link, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		listID, resolveGroupID(item.GroupName, groupIDByName), substituteForItemID,
		item.Name, item.Quantity, item.Notes, item.Link, userID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	return id, nil
}

func resolveGroupID(groupName *string, groupIDByName map[string]int64) *int64 {
	if groupName == nil {
		return nil
	}
	if id, ok := groupIDByName[*groupName]; ok {
		return &id
	}
	return nil
}

func placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return strings.Join(marks, ", ")
}

const listGraphQuery = `
SELECT
	l.id, l.title, l.budget, l.owner_id, l.created_at, l.updated_at,
	i.id, i.grocery_list_id, i.grocery_list_group_id, i.substitute_for_item_id,
	i.name, i.quantity, i.notes, i.link, i.owner_id, i.created_at, i.updated_at,
	g.id, g.grocery_list_id, g.name, g.owner_id, g.created_at, g.updated_at
FROM grocery_lists l
LEFT JOIN grocery_list_items i ON i.grocery_list_id = l.id
LEFT JOIN grocery_list_groups g ON g.grocery_list_id = l.id
WHERE l.owner_id = ? AND l.id = ?`

// GetByIDAndOwner loads the full list graph: the list, its items in
// first-seen order, and each item's group. Returns (nil, nil) when the list
// does not exist or belongs to someone else; ownership is enforced in the
// query, so a foreign list is indistinguishable from a missing one.
func (s *ListStore) GetByIDAndOwner(userID string, listID int64) (*model.GroceryList, error) {
	rows, err := s.db.Query(listGraphQuery, userID, listID)
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}
	defer rows.Close()

	// The group join repeats each list/item pair once per group row, so fold
	// rows into an accumulator keyed by list id and dedupe items by id,
	// back-filling the group when its row finally lines up.
	lists := make(map[int64]*model.GroceryList)
	var order []int64
	for rows.Next() {
		var (
			list        model.GroceryList
			budget      sql.NullFloat64
			itemID      sql.NullInt64
			itemListID  sql.NullInt64
			itemGroupID sql.NullInt64
			itemSubFor  sql.NullInt64
			itemName    sql.NullString
			itemQty     sql.NullInt64
			itemNotes   sql.NullString
			itemLink    sql.NullString
			itemOwner   sql.NullString
			itemCreated sql.NullTime
			itemUpdated sql.NullTime
			gID         sql.NullInt64
			gListID     sql.NullInt64
			gName       sql.NullString
			gOwner      sql.NullString
			gCreated    sql.NullTime
			gUpdated    sql.NullTime
		)
		if err := rows.Scan(
			&list.ID, &list.Title, &budget, &list.OwnerID, &list.CreatedAt, &list.UpdatedAt,
			&itemID, &itemListID, &itemGroupID, &itemSubFor,
			&itemName, &itemQty, &itemNotes, &itemLink, &itemOwner, &itemCreated, &itemUpdated,
			&gID, &gListID, &gName, &gOwner, &gCreated, &gUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan list row: %w", err)
		}

		acc, ok := lists[list.ID]
		if !ok {
			if budget.Valid {
				list.Budget = &budget.Float64
			}
			list.Items = []model.GroceryListItem{}
			lists[list.ID] = &list
			order = append(order, list.ID)
			acc = &list
		}

		if !itemID.Valid {
			continue
		}

		var group *model.GroceryListGroup
		if gID.Valid && itemGroupID.Valid && gID.Int64 == itemGroupID.Int64 {
			group = &model.GroceryListGroup{
				ID:        gID.Int64,
				ListID:    gListID.Int64,
				Name:      gName.String,
				OwnerID:   gOwner.String,
				CreatedAt: gCreated.Time,
				UpdatedAt: gUpdated.Time,
			}
		}

		existing := -1
		for j := range acc.Items {
			if acc.Items[j].ID == itemID.Int64 {
				existing = j
				break
			}
		}
		if existing >= 0 {
			if group != nil {
				acc.Items[existing].Group = group
			}
			continue
		}

		item := model.GroceryListItem{
			ID:        itemID.Int64,
			ListID:    itemListID.Int64,
			Name:      itemName.String,
			Group:     group,
			OwnerID:   itemOwner.String,
			CreatedAt: itemCreated.Time,
			UpdatedAt: itemUpdated.Time,
		}
		if itemSubFor.Valid {
			item.SubstituteForItemID = &itemSubFor.Int64
		}
		if itemQty.Valid {
			item.Quantity = &itemQty.Int64
		}
		if itemNotes.Valid {
			item.Notes = &itemNotes.String
		}
		if itemLink.Valid {
			item.Link = &itemLink.String
		}
		acc.Items = append(acc.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}

	if len(order) == 0 {
		return nil, nil
	}
	return lists[order[0]], nil
}

// Duplicate clones the list under a new id owned by userID: title prefixed
// with "Copy of ", groups recreated by name, and every substitute remapped to
// its target's newly generated id. Same two-phase ordering as Upsert, for the
// same reason.
func (s *ListStore) Duplicate(userID string, listID int64) error {
	src, err := s.GetByIDAndOwner(userID, listID)
	if err != nil {
		return err
	}
	if src == nil {
		return apperr.NotFound("grocery list")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var newListID int64
	if err := tx.QueryRow(
		`INSERT INTO grocery_lists (title, budget, owner_id) VALUES (?, ?, ?) RETURNING id`,
		"Copy of "+src.Title, src.Budget, userID,
	).Scan(&newListID); err != nil {
		return fmt.Errorf("insert list copy: %w", err)
	}

	if len(src.Items) > 0 {
		groupIDByName := make(map[string]int64)
		for _, item := range src.Items {
			if item.Group == nil {
				continue
			}
			if _, ok := groupIDByName[item.Group.Name]; ok {
				continue
			}
			var id int64
			if err := tx.QueryRow(
				`INSERT INTO grocery_list_groups (grocery_list_id, name, owner_id) VALUES (?, ?, ?) RETURNING id`,
				newListID, item.Group.Name, userID,
			).Scan(&id); err != nil {
				return fmt.Errorf("insert group copy: %w", err)
			}
			groupIDByName[item.Group.Name] = id
		}

		hasSubstitute := make(map[int64]bool)
		for _, item := range src.Items {
			if item.SubstituteForItemID != nil {
				hasSubstitute[*item.SubstituteForItemID] = true
			}
		}

		for _, item := range src.Items {
			if item.SubstituteForItemID != nil || hasSubstitute[item.ID] {
				continue
			}
			if _, err := copyItemRow(tx, item, newListID, nil, groupIDByName, userID); err != nil {
				return err
			}
		}

		for _, item := range src.Items {
			if item.SubstituteForItemID != nil || !hasSubstitute[item.ID] {
				continue
			}
			newID, err := copyItemRow(tx, item, newListID, nil, groupIDByName, userID)
			if err != nil {
				return err
			}
			for _, sub := range src.Items {
				if sub.SubstituteForItemID == nil || *sub.SubstituteForItemID != item.ID {
					continue
				}
				if _, err := copyItemRow(tx, sub, newListID, &newID, groupIDByName, userID); err != nil {
					return err
				}
			}
		}
	}

	return tx.Commit()
}

func copyItemRow(tx *sql.Tx, item model.GroceryListItem, listID int64, substituteForItemID *int64, groupIDByName map[string]int64, userID string) (int64, error) {
	var groupID *int64
	if item.Group != nil {
		if id, ok := groupIDByName[item.Group.Name]; ok {
			groupID = &id
		}
	}

	var id int64
	err := tx.QueryRow(
		`INSERT INTO grocery_list_items
			(grocery_list_id, grocery_list_group_id, substitute_for_item_id, name, quantity, notes, link, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		listID, groupID, substituteForItemID,
		item.Name, item.Quantity, item.Notes, item.Link, userID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("copy item: %w", err)
	}
	return id, nil
}

// SummariesByOwner lists the caller's lists with a count of main items;
// substitute rows are kept out of the count by the join condition.
func (s *ListStore) SummariesByOwner(userID string) ([]model.ListSummary, error) {
	rows, err := s.db.Query(
		`SELECT l.id, l.title, l.updated_at, COUNT(i.id)
		 FROM grocery_lists l
		 LEFT JOIN grocery_list_items i
			ON i.grocery_list_id = l.id AND i.substitute_for_item_id IS NULL
		 WHERE l.owner_id = ?
		 GROUP BY l.id
		 ORDER BY l.updated_at DESC, l.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []model.ListSummary
	for rows.Next() {
		var sum model.ListSummary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.UpdatedAt, &sum.ItemCount); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Delete removes the list if it is owned by userID; items and groups go with
// it via cascade. Deleting a missing or foreign list is a no-op.
func (s *ListStore) Delete(userID string, listID int64) error {
	_, err := s.db.Exec(`DELETE FROM grocery_lists WHERE id = ? AND owner_id = ?`, listID, userID)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}
