package interfaces

import (
	"context"
	"errors"
)

// ErrConditionFailed 带条件的更新没有命中任何行（状态已变化或不变量不满足）
var ErrConditionFailed = errors.New("condition failed: no rows affected")

// Transactor 在一个数据库事务中执行 fn。
// 事务通过 ctx 传递，嵌套调用会加入外层事务。
type Transactor interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}
