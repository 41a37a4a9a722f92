package media

import (
	"context"
	"log/slog"
)

// rollback 记录本次操作已写入的对象 key。操作成功后 commit，
// 否则 run 会尽力删除已写入的对象，失败只记录日志。
type rollback struct {
	store     ObjectStore
	logger    *slog.Logger
	keys      []string
	committed bool
}

func (s *Service) newRollback() *rollback {
	return &rollback{store: s.store, logger: s.logger}
}

func (r *rollback) register(key string) {
	r.keys = append(r.keys, key)
}

func (r *rollback) commit() {
	r.committed = true
}

func (r *rollback) run(ctx context.Context) {
	if r.committed {
		return
	}
	for _, key := range r.keys {
		if err := r.store.Delete(ctx, key); err != nil {
			r.logger.Error("rollback delete failed",
				slog.String("object_key", key),
				slog.Any("error", err),
			)
		}
	}
}
