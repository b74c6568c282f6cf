package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：条件更新未命中任何记录（状态或版本已被其他操作修改）
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
