package model

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

// 定长字段宽度，与磁盘格式一一对应，不可改动
const (
	MaxUsernameLen    = 50
	MaxPasswordLen    = 64
	MaxFeedbackLen    = 100
	MaxDescriptionLen = 100

	reservedLen = 100
)

var enc = binary.LittleEndian

// putString 写入定宽字符串，末位始终保留 NUL 终止符
func putString(dst []byte, s string) {
	n := copy(dst[:len(dst)-1], s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func getString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func putFloat(dst []byte, f float64) {
	enc.PutUint64(dst, math.Float64bits(f))
}

func getFloat(b []byte) float64 {
	return math.Float64frombits(enc.Uint64(b))
}

func putTime(dst []byte, t time.Time) {
	if t.IsZero() {
		enc.PutUint64(dst, 0)
		return
	}
	enc.PutUint64(dst, uint64(t.Unix()))
}

func getTime(b []byte) time.Time {
	sec := int64(enc.Uint64(b))
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

func putBool(dst []byte, v bool) {
	if v {
		enc.PutUint32(dst, 1)
	} else {
		enc.PutUint32(dst, 0)
	}
}

func getBool(b []byte) bool {
	return enc.Uint32(b) != 0
}
