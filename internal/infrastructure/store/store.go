package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// HeaderSize 文件头宽度：next_id int32 + record_count int32
const HeaderSize = 8

var (
	ErrOutOfRange = errors.New("记录越界")
)

// Header 文件头，持有下一个待分配 ID 和记录数
type Header struct {
	NextID      int32
	RecordCount int32
}

// Store 定长记录文件。不做任何缓存，每次操作重新打开文件；
// 读写序列必须由调用方先取得对应的文件锁
type Store struct {
	path       string
	recordSize int
}

// Open 打开记录文件，不存在则创建并写入空文件头 {next_id:1, count:0}
func Open(path string, recordSize int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		h := Header{NextID: 1, RecordCount: 0}
		if _, err := f.WriteAt(encodeHeader(h), 0); err != nil {
			return nil, err
		}
		if err := f.Sync(); err != nil {
			return nil, err
		}
	}
	return &Store{path: path, recordSize: recordSize}, nil
}

func (s *Store) Path() string    { return s.path }
func (s *Store) RecordSize() int { return s.recordSize }

func encodeHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(h.NextID))
	binary.LittleEndian.PutUint32(b[4:8], uint32(h.RecordCount))
	return b
}

func decodeHeader(b []byte) Header {
	return Header{
		NextID:      int32(binary.LittleEndian.Uint32(b[0:4])),
		RecordCount: int32(binary.LittleEndian.Uint32(b[4:8])),
	}
}

func (s *Store) open() (*os.File, error) {
	return os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o644)
}

// ReadHeader 读取文件头
func (s *Store) ReadHeader() (Header, error) {
	f, err := s.open()
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	b := make([]byte, HeaderSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, HeaderSize), b); err != nil {
		// 空文件或损坏的文件头按初始状态处理
		return Header{NextID: 1, RecordCount: 0}, nil
	}
	return decodeHeader(b), nil
}

// WriteHeader 改写文件头并落盘
func (s *Store) WriteHeader(h Header) error {
	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteAt(encodeHeader(h), 0); err != nil {
		return err
	}
	return f.Sync()
}

// AllocateID 取出 next_id 并同时递增 next_id 与 record_count。
// 必须在排他锁内与随后的 Append 配对调用
func (s *Store) AllocateID() (int32, error) {
	h, err := s.ReadHeader()
	if err != nil {
		return 0, err
	}
	id := h.NextID
	h.NextID++
	h.RecordCount++
	if err := s.WriteHeader(h); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) offset(index int) int64 {
	return HeaderSize + int64(index)*int64(s.recordSize)
}

// ReadAt 按槽位读取一条记录，越过文件尾返回 ErrOutOfRange
func (s *Store) ReadAt(index int) ([]byte, error) {
	if index < 0 {
		return nil, ErrOutOfRange
	}
	f, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b := make([]byte, s.recordSize)
	n, err := f.ReadAt(b, s.offset(index))
	if err != nil || n != s.recordSize {
		return nil, ErrOutOfRange
	}
	return b, nil
}

// WriteAt 原位改写一条记录并落盘
func (s *Store) WriteAt(index int, rec []byte) error {
	if len(rec) != s.recordSize {
		return fmt.Errorf("记录宽度错误: %d != %d", len(rec), s.recordSize)
	}
	if index < 0 {
		return ErrOutOfRange
	}
	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteAt(rec, s.offset(index)); err != nil {
		return err
	}
	return f.Sync()
}

// Append 在文件尾追加一条记录并落盘。文件头的计数由调用方维护
func (s *Store) Append(rec []byte) error {
	if len(rec) != s.recordSize {
		return fmt.Errorf("记录宽度错误: %d != %d", len(rec), s.recordSize)
	}
	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	if _, err := f.Write(rec); err != nil {
		return err
	}
	return f.Sync()
}

// Scan 从第 0 条记录起顺序遍历，短读即终止。
// fn 返回 false 停止遍历。遍历期间必须持有共享或排他锁
func (s *Store) Scan(fn func(index int, rec []byte) (bool, error)) error {
	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(HeaderSize, io.SeekStart); err != nil {
		return err
	}
	b := make([]byte, s.recordSize)
	for index := 0; ; index++ {
		n, err := io.ReadFull(f, b)
		if err != nil || n != s.recordSize {
			return nil // 短读，扫描结束
		}
		rec := make([]byte, s.recordSize)
		copy(rec, b)
		cont, err := fn(index, rec)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}
