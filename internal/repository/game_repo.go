package repository

import (
	"context"
	"fmt"

	"ChessSync/internal/interfaces"
	"ChessSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 500

type GameRepository struct {
	db    *gorm.DB
	table string
}

func NewGameRepository(db *gorm.DB, tables Tables) interfaces.GameRepository {
	return &GameRepository{db: db, table: tables.Qualified(model.TableGames)}
}

// UpsertGames 单棋手的对局在一个事务内写入，冲突时覆盖
func (r *GameRepository) UpsertGames(ctx context.Context, rows []*model.GameRecord) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	// 开启事务
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return 0, wrapStorageError(r.table, fmt.Errorf("开启事务失败: %w", tx.Error))
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	res := tx.Table(r.table).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}, {Name: "game_url"}},
			DoUpdates: clause.AssignmentColumns(model.GameUpsertColumns),
		}).
		CreateInBatches(rows, upsertBatchSize)
	if res.Error != nil {
		tx.Rollback()
		return 0, wrapStorageError(r.table, fmt.Errorf("写入对局失败: %w", res.Error))
	}

	// 提交事务
	if err := tx.Commit().Error; err != nil {
		return 0, wrapStorageError(r.table, fmt.Errorf("提交事务失败: %w", err))
	}
	return len(rows), nil
}
