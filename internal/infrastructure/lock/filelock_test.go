package lock

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestExclusiveSerializesWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.dat")
	m := NewManager()

	const n = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := m.Acquire(path, Exclusive)
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			counter++
			h.Release()
		}()
	}
	wg.Wait()

	if counter != n {
		t.Fatalf("counter = %d, 期望 %d（排他锁未能互斥）", counter, n)
	}
}

func TestSharedAllowsConcurrentReaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.dat")
	m := NewManager()

	// 两个共享锁互不阻塞
	h1, err := m.Acquire(path, Shared)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	h2, err := m.Acquire(path, Shared)
	if err != nil {
		t.Fatalf("第二个共享锁: %v", err)
	}
	h1.Release()
	h2.Release()
}

func TestSharedBlocksExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.dat")
	m := NewManager()

	h, err := m.Acquire(path, Shared)
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		eh, err := m.Acquire(path, Exclusive)
		if err == nil {
			eh.Release()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("共享锁未释放时排他锁不应成功")
	default:
	}

	h.Release()
	<-acquired
}

func TestReleaseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rel.dat")
	m := NewManager()

	h, err := m.Acquire(path, Exclusive)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("重复 Release: %v", err)
	}

	// 释放后可以再次获取
	h2, err := m.Acquire(path, Exclusive)
	if err != nil {
		t.Fatalf("释放后重新获取: %v", err)
	}
	h2.Release()
}
