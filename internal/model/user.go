package model

import (
	"fmt"
	"time"
)

// Role 用户角色
type Role int32

const (
	RoleCustomer Role = iota
	RoleEmployee
	RoleManager
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "CUSTOMER"
	case RoleEmployee:
		return "EMPLOYEE"
	case RoleManager:
		return "MANAGER"
	case RoleAdmin:
		return "ADMIN"
	}
	return "UNKNOWN"
}

// ParseRole 解析协议中的角色标记（LOGIN <ROLE> ...）
func ParseRole(s string) (Role, bool) {
	switch s {
	case "CUSTOMER":
		return RoleCustomer, true
	case "EMPLOYEE":
		return RoleEmployee, true
	case "MANAGER":
		return RoleManager, true
	case "ADMIN":
		return RoleAdmin, true
	}
	return 0, false
}

// UserRecordSize 用户记录的磁盘宽度
const UserRecordSize = 4 + MaxUsernameLen + MaxPasswordLen + 4 + 4 + 8 + reservedLen

// User 用户记录。ID 即记录槽位（offset = header + (id-1)*size）
type User struct {
	ID        int32
	Username  string
	Password  string // 存储的凭证串，比对方式由 AuthConfig 决定
	Role      Role
	Active    bool
	LastLogin time.Time
}

func (u *User) MarshalRecord() []byte {
	b := make([]byte, UserRecordSize)
	enc.PutUint32(b[0:4], uint32(u.ID))
	putString(b[4:54], u.Username)
	putString(b[54:118], u.Password)
	enc.PutUint32(b[118:122], uint32(u.Role))
	putBool(b[122:126], u.Active)
	putTime(b[126:134], u.LastLogin)
	return b
}

func UnmarshalUser(b []byte) (*User, error) {
	if len(b) != UserRecordSize {
		return nil, fmt.Errorf("用户记录长度错误: %d", len(b))
	}
	return &User{
		ID:        int32(enc.Uint32(b[0:4])),
		Username:  getString(b[4:54]),
		Password:  getString(b[54:118]),
		Role:      Role(enc.Uint32(b[118:122])),
		Active:    getBool(b[122:126]),
		LastLogin: getTime(b[126:134]),
	}, nil
}
