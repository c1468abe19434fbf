package lock

import (
	"errors"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// ============================================================================
// 文件锁管理器
//
// 所有数据文件的读写序列都必须先取锁：共享锁允许并发读，
// 排他锁独占整个文件。两层实现：
//   - 进程内 RWMutex：串行化本进程各连接 goroutine 之间的访问
//     （fcntl/flock 对同一进程内的多个线程不互斥）
//   - flock(2) 协商锁：与 cmd/dump 等协作进程互斥
//
// 取锁是阻塞的，没有超时。涉及多个文件的操作必须按固定顺序取锁：
//   users < loans < accounts < transactions < feedback < sessions < outbox
// ============================================================================

var ErrLockFailed = errors.New("获取文件锁失败")

// Mode 锁模式
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

// Manager 按文件路径管理锁
type Manager struct {
	mu    sync.Mutex
	files map[string]*sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{files: make(map[string]*sync.RWMutex)}
}

// Handle 已持有的锁，用 Release 释放
type Handle struct {
	mu       *sync.RWMutex
	f        *os.File
	mode     Mode
	released bool
}

func (m *Manager) rwmutex(path string) *sync.RWMutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	rw, ok := m.files[path]
	if !ok {
		rw = &sync.RWMutex{}
		m.files[path] = rw
	}
	return rw
}

// Acquire 阻塞获取整文件锁
func (m *Manager) Acquire(path string, mode Mode) (*Handle, error) {
	rw := m.rwmutex(path)
	if mode == Exclusive {
		rw.Lock()
	} else {
		rw.RLock()
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		unlock(rw, mode)
		return nil, ErrLockFailed
	}

	how := unix.LOCK_SH
	if mode == Exclusive {
		how = unix.LOCK_EX
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		unlock(rw, mode)
		return nil, ErrLockFailed
	}

	return &Handle{mu: rw, f: f, mode: mode}, nil
}

// Release 释放锁。重复释放是无害的空操作
func (h *Handle) Release() error {
	if h == nil || h.released {
		return nil
	}
	h.released = true
	err := unix.Flock(int(h.f.Fd()), unix.LOCK_UN)
	h.f.Close()
	unlock(h.mu, h.mode)
	return err
}

func unlock(rw *sync.RWMutex, mode Mode) {
	if mode == Exclusive {
		rw.Unlock()
	} else {
		rw.RUnlock()
	}
}
