package repository

import (
	"context"
	"time"

	"ChessSync/internal/interfaces"
	"ChessSync/internal/model"

	"gorm.io/gorm"
)

type WatermarkRepository struct {
	db    *gorm.DB
	table string
}

func NewWatermarkRepository(db *gorm.DB, tables Tables) interfaces.WatermarkTracker {
	return &WatermarkRepository{db: db, table: tables.Qualified(model.TableGames)}
}

// Latest 返回棋手已入库对局的最大 end_time_utc；没有对局或表不存在时返回 nil。
// 用 ORDER BY ... LIMIT 1 代替 max()，SQLite 下聚合结果会丢失列类型。
func (r *WatermarkRepository) Latest(ctx context.Context, username string) (*time.Time, error) {
	var ends []time.Time
	err := r.db.WithContext(ctx).
		Table(r.table).
		Where("username = ? AND end_time_utc IS NOT NULL", username).
		Order("end_time_utc DESC").
		Limit(1).
		Pluck("end_time_utc", &ends).Error
	if err != nil {
		se := wrapStorageError(r.table, err)
		if se.Kind == StorageSchemaMissing {
			return nil, nil
		}
		return nil, se
	}
	if len(ends) == 0 {
		return nil, nil
	}
	latest := ends[0].UTC()
	return &latest, nil
}
