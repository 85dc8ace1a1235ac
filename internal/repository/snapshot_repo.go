package repository

import (
	"context"
	"fmt"
	"slices"

	"ChessSync/internal/interfaces"
	"ChessSync/internal/model"

	"gorm.io/gorm"
)

type SnapshotRepository struct {
	db     *gorm.DB
	tables Tables
}

func NewSnapshotRepository(db *gorm.DB, tables Tables) interfaces.SnapshotRepository {
	return &SnapshotRepository{db: db, tables: tables}
}

// InsertRecords 同一方法本轮的全部快照在一个事务内追加
func (r *SnapshotRepository) InsertRecords(ctx context.Context, table string, rows []*model.IngestionRecord) (int, error) {
	if !slices.Contains(model.SnapshotTables, table) {
		return 0, &StorageError{Kind: StorageOther, Table: table, Err: fmt.Errorf("未知快照表: %s", table)}
	}
	if len(rows) == 0 {
		return 0, nil
	}
	qualified := r.tables.Qualified(table)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(qualified).Create(rows).Error
	})
	if err != nil {
		return 0, wrapStorageError(qualified, fmt.Errorf("写入快照失败: %w", err))
	}
	return len(rows), nil
}
