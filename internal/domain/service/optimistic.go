package service

import (
	"context"

	"go.uber.org/zap"
)

// Mutation 一次乐观写事务的描述
//
// Snapshot 是提交前的权威值，Guess 是预期结果，Apply 把一个完整实体
// 写入缓存（整值替换），Call 执行远端写并返回权威回显。
type Mutation[E any] struct {
	Snapshot E
	Guess    E
	Apply    func(E)
	Call     func(ctx context.Context) (E, error)
}

// RunOptimistic 执行乐观写：先落预期值，远端成功后以回显整值覆盖
// （server-wins），失败则原子回滚快照并把错误原样上抛。
//
// 所有乐观路径都走这一个入口，回滚语义只在这里实现一次。
// 回滚与推送事件之间的竞争是已知且接受的：两者都是整值替换，
// 后写者胜，不会产生撕裂值。
func RunOptimistic[E any](ctx context.Context, logger *zap.Logger, m Mutation[E]) (E, error) {
	m.Apply(m.Guess)

	echo, err := m.Call(ctx)
	if err != nil {
		m.Apply(m.Snapshot)
		if logger != nil {
			logger.Warn("Optimistic mutation reverted", zap.Error(err))
		}
		var zero E
		return zero, err
	}

	m.Apply(echo)
	return echo, nil
}
