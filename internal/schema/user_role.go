package schema

import "time"

const RoleAdmin = "admin"

// UserRole 用户角色（目前只用到 admin）
type UserRole struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:uniq_user_role,priority:1"`
	Role      string    `gorm:"size:32;not null;uniqueIndex:uniq_user_role,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
