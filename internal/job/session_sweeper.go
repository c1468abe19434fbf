package job

import (
	"context"
	"log"
	"time"

	"banksystem/internal/config"
	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/repository"
)

// SessionSweeper 定期回收过期的活跃会话。
// 客户端异常断开时会话标记会残留，靠这里兜底清理
type SessionSweeper struct {
	sessionRepo *repository.SessionRepository
	cfg         *config.Config
	stopCh      chan struct{}
	interval    time.Duration
}

func NewSessionSweeper(sessionRepo *repository.SessionRepository, cfg *config.Config) *SessionSweeper {
	return &SessionSweeper{
		sessionRepo: sessionRepo,
		cfg:         cfg,
		stopCh:      make(chan struct{}),
		interval:    time.Minute,
	}
}

func (j *SessionSweeper) Start(ctx context.Context) {
	if j.cfg.Business.SessionMaxAgeMinutes <= 0 {
		log.Println("[SessionSweeper] 会话过期时间未配置，任务不启动")
		return
	}

	log.Println("[SessionSweeper] 会话清理任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[SessionSweeper] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[SessionSweeper] 任务停止")
			return
		case <-ticker.C:
			j.sweepExpiredSessions()
		}
	}
}

func (j *SessionSweeper) Stop() {
	close(j.stopCh)
}

func (j *SessionSweeper) sweepExpiredSessions() {
	maxAge := time.Duration(j.cfg.Business.SessionMaxAgeMinutes) * time.Minute
	cutoff := time.Now().Add(-maxAge)

	h, err := j.sessionRepo.Lock(lock.Exclusive)
	if err != nil {
		log.Printf("[SessionSweeper] 获取会话锁失败: %v", err)
		return
	}
	defer h.Release()

	sessions, indexes, err := j.sessionRepo.ListActiveOlderThanLocked(cutoff)
	if err != nil {
		log.Printf("[SessionSweeper] 查询过期会话失败: %v", err)
		return
	}

	if len(sessions) == 0 {
		return
	}

	swept := 0
	for i := range sessions {
		if err := j.sessionRepo.DeactivateAtLocked(indexes[i], &sessions[i]); err != nil {
			log.Printf("[SessionSweeper] 回收会话失败: userID=%d, err=%v", sessions[i].UserID, err)
			continue
		}
		swept++
	}

	log.Printf("[SessionSweeper] 本次回收 %d 个过期会话", swept)
}
