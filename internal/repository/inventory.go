package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pressstart/platform/internal/domain"
)

type inventoryRepo struct{}

// NewInventoryRepository returns a pgx-backed InventoryRepository.
func NewInventoryRepository() InventoryRepository {
	return &inventoryRepo{}
}

func (r *inventoryRepo) HasItem(ctx context.Context, db DBTX, userID uuid.UUID, itemID string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM inventory_items WHERE user_id = $1 AND item_id = $2
		)`, userID, itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check item: %w", err)
	}
	return exists, nil
}

func (r *inventoryRepo) AddItem(ctx context.Context, db DBTX, userID uuid.UUID, itemID string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO inventory_items (user_id, item_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, item_id) DO NOTHING`, userID, itemID)
	if err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	return nil
}

func (r *inventoryRepo) RemoveItem(ctx context.Context, db DBTX, userID uuid.UUID, itemID string) error {
	_, err := db.Exec(ctx, `
		DELETE FROM inventory_items WHERE user_id = $1 AND item_id = $2`, userID, itemID)
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

func (r *inventoryRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.InventoryItem, error) {
	rows, err := db.Query(ctx, `
		SELECT id, user_id, item_id, acquired_at
		FROM inventory_items
		WHERE user_id = $1
		ORDER BY acquired_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		var it domain.InventoryItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.ItemID, &it.AcquiredAt); err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
