package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/obelisco/pkg/config"
	"github.com/example/obelisco/pkg/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// OrderArchive mirrors finalized orders into MySQL. The key-value history
// stays canonical; the archive is a durable copy for reporting.
type OrderArchive struct {
	db *gorm.DB
}

func NewOrderArchive(cfg *config.MySQLConfig) (*OrderArchive, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	if err := db.AutoMigrate(&models.ArchivedOrder{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &OrderArchive{db: db}, nil
}

func (o *OrderArchive) Archive(ctx context.Context, rec *models.OrderRecord) error {
	itemsJSON, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("failed to serialize items: %w", err)
	}

	row := &models.ArchivedOrder{
		ID:       rec.ID,
		Items:    string(itemsJSON),
		Subtotal: rec.Subtotal,
		Shipping: rec.Shipping,
		Tax:      rec.Tax,
		Total:    rec.Total,
		Status:   "confirmed",
		PlacedAt: rec.PlacedAt,
	}

	return o.db.WithContext(ctx).Create(row).Error
}

func (o *OrderArchive) Recent(ctx context.Context, limit int) ([]models.ArchivedOrder, error) {
	var rows []models.ArchivedOrder
	err := o.db.WithContext(ctx).
		Order("placed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
