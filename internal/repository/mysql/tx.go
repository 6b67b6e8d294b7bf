package mysql

import (
	"context"
	"database/sql"
	"errors"

	"commerce-backend/internal/repository/interfaces"
	"commerce-backend/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type txKey struct{}

// TxManager 管理一次用例内的数据库事务
type TxManager struct {
	db *sqlx.DB
}

var _ interfaces.Transactor = (*TxManager)(nil)

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Transact 开启事务并把它放进 ctx；fn 返回错误或 panic 时回滚。
// ctx 中已有事务时直接复用，提交由最外层负责。
func (m *TxManager) Transact(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		util.Logger.Error("开始事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				util.Logger.Error("回滚事务失败", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return err
	}
	return nil
}

// conn 返回 ctx 中的事务，没有事务时返回连接池
func conn(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// forUpdate 行锁后缀，sqlite 不支持 FOR UPDATE（整库写锁）
func forUpdate(db *sqlx.DB) string {
	if db.DriverName() == "mysql" {
		return " FOR UPDATE"
	}
	return ""
}

// getOne 查询单行，不存在时返回 (false, nil)
func getOne(ctx context.Context, q sqlx.QueryerContext, dest interface{}, query string, args ...interface{}) (bool, error) {
	err := sqlx.GetContext(ctx, q, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// mustAffect 校验带条件的更新命中了记录
func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrConditionFailed
	}
	return nil
}

// pageBounds 规范化分页参数
func pageBounds(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return pageSize, (page - 1) * pageSize
}
