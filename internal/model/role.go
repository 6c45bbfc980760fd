package model

import "time"

// Role 角色表 对应 role
type Role struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"           json:"id"`
	Name        string `gorm:"type:varchar(255);not null;unique" json:"name"`
	Description string `gorm:"type:varchar(500)"                  json:"description"`
	Timestamps

	// 关联
	Permissions []RolePermission `gorm:"foreignKey:Role;references:Name" json:"permissions"`
}

// TableName 指定表名
func (Role) TableName() string { return "role" }

// Permission 权限表，主键为权限编码（READ / WRITE）
type Permission struct {
	ID          string    `gorm:"type:varchar(64);primaryKey"        json:"id"`
	Name        string    `gorm:"type:varchar(255);not null;unique" json:"name"`
	Description string    `gorm:"type:varchar(500)"                  json:"description"`
	Created     time.Time `gorm:"column:created;autoCreateTime"      json:"created"`
}

// TableName 指定表名
func (Permission) TableName() string { return "permission" }

// RolePermission 角色-权限关联
type RolePermission struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"     json:"-"`
	Role       string `gorm:"type:varchar(255);not null"  json:"-"`
	Permission string `gorm:"type:varchar(64);not null"   json:"permission"`
}

// TableName 指定表名
func (RolePermission) TableName() string { return "role_permission" }
