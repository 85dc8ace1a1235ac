package repository

import (
	"context"
	"fmt"
	"strings"

	"ChessSync/internal/model"

	"gorm.io/gorm"
)

// Tables 按 schema 拼接限定表名；schema 为空时直接使用表名（SQLite 测试）
type Tables struct {
	Schema string
}

func (t Tables) Qualified(name string) string {
	if t.Schema == "" {
		return name
	}
	return t.Schema + "." + name
}

// EnsureSchema 创建 schema 与源表，只做非破坏性的 AutoMigrate
func EnsureSchema(ctx context.Context, db *gorm.DB, tables Tables) error {
	db = db.WithContext(ctx)
	if tables.Schema != "" && db.Dialector.Name() == "postgres" {
		stmt := fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, strings.ReplaceAll(tables.Schema, `"`, `""`))
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("创建schema %s失败: %w", tables.Schema, err)
		}
	}

	games := tables.Qualified(model.TableGames)
	if err := db.Table(games).AutoMigrate(&model.GameRecord{}); err != nil {
		return fmt.Errorf("迁移%s失败: %w", games, err)
	}
	for _, name := range model.SnapshotTables {
		table := tables.Qualified(name)
		if err := db.Table(table).AutoMigrate(&model.IngestionRecord{}); err != nil {
			return fmt.Errorf("迁移%s失败: %w", table, err)
		}
	}
	return nil
}
