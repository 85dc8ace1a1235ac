package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
)

// StorageErrorKind 存储错误分类
type StorageErrorKind string

const (
	StorageSchemaMissing StorageErrorKind = "schema_missing"
	StorageOther         StorageErrorKind = "other"
)

// StorageError 数据库读写失败
type StorageError struct {
	Kind  StorageErrorKind
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s table=%s: %v", e.Kind, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsSchemaMissing 表或 schema 尚未创建
func IsSchemaMissing(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Kind == StorageSchemaMissing
}

func wrapStorageError(table string, err error) *StorageError {
	kind := StorageOther
	if schemaMissing(err) {
		kind = StorageSchemaMissing
	}
	return &StorageError{Kind: kind, Table: table, Err: err}
}

// schemaMissing 42P01 undefined_table / 3F000 invalid_schema_name；SQLite 只能按文本判断
func schemaMissing(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01" || pgErr.Code == "3F000"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}
