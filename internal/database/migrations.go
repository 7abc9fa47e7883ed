package database

import (
	"fmt"

	"github.com/yukikurage/taskmaster/internal/models"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes used by owner-scoped task queries.
func AddIndexes(db *gorm.DB) error {
	type index struct {
		name    string
		columns string
	}
	indexes := []index{
		// List: WHERE user_id = ? ORDER BY created_at DESC
		{"idx_tasks_user_created", "user_id, created_at"},
		// Scoped update/delete: WHERE id = ? AND user_id = ?
		{"idx_tasks_id_user", "id, user_id"},
	}

	m := db.Migrator()
	for _, idx := range indexes {
		if m.HasIndex(&models.Task{}, idx.name) {
			continue
		}
		sql := fmt.Sprintf("CREATE INDEX %s ON tasks (%s)", idx.name, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
