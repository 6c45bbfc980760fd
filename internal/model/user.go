package model

import "time"

// UserStatus 账号状态
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusSuspend UserStatus = "suspend"
	UserStatusDeleted UserStatus = "deleted"
)

// IdentityType 证件类型
type IdentityType string

const (
	IdentityTypeCCCD IdentityType = "cccd"
	IdentityTypeCMND IdentityType = "cmnd"
	IdentityTypeHC   IdentityType = "hc"
)

// UserAccount 用户账号表 对应 user_account
type UserAccount struct {
	ID                  uint         `gorm:"primaryKey;autoIncrement"                  json:"id"`
	Username            string       `gorm:"type:varchar(255);not null;unique"        json:"username"`
	Password            string       `gorm:"type:varchar(255);not null"               json:"-"`
	Department          *string      `gorm:"type:varchar(255)"                        json:"department"`
	Role                *string      `gorm:"type:varchar(255)"                        json:"role"`
	LineManager         *string      `gorm:"type:varchar(255)"                        json:"line_manager"`
	Firstname           string       `gorm:"type:varchar(255);not null"               json:"firstname"`
	Middlename          *string      `gorm:"type:varchar(255)"                        json:"middlename"`
	Lastname            string       `gorm:"type:varchar(255);not null"               json:"lastname"`
	Gender              string       `gorm:"type:varchar(32);not null"                json:"gender"`
	Email               string       `gorm:"type:varchar(255);not null;unique"        json:"email"`
	Status              UserStatus   `gorm:"type:varchar(16);not null"                json:"status"`
	Identity            string       `gorm:"type:varchar(64);not null;unique"         json:"identity"`
	IdentityType        IdentityType `gorm:"type:varchar(8);not null"                 json:"identity_type"`
	Enable2Verification bool         `gorm:"column:enable_2_verification;not null;default:false" json:"enable_2_verification"`
	Timestamps
}

// TableName 指定表名
func (UserAccount) TableName() string { return "user_account" }

// DepartmentName 部门名，未设置时为空串
func (u *UserAccount) DepartmentName() string { return deref(u.Department) }

// RoleName 角色名，未设置时为空串
func (u *UserAccount) RoleName() string { return deref(u.Role) }

// MiddlenameValue 中间名，未设置时为空串
func (u *UserAccount) MiddlenameValue() string { return deref(u.Middlename) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ActiveUserStatus 激活记录状态
type ActiveUserStatus string

const (
	ActiveUserPending   ActiveUserStatus = "pending"
	ActiveUserActive    ActiveUserStatus = "active"
	ActiveUserExpired   ActiveUserStatus = "expired"
	ActiveUserCancelled ActiveUserStatus = "cancelled"
)

// ActiveUser 账号激活（OTP）记录 对应 active_user
type ActiveUser struct {
	ID        uint             `gorm:"primaryKey;autoIncrement"  json:"-"`
	Username  string           `gorm:"type:varchar(255);not null;index" json:"username"`
	OTP       int              `gorm:"column:otp;not null"      json:"-"`
	Status    ActiveUserStatus `gorm:"type:varchar(16);not null" json:"status"`
	ExpiredAt time.Time        `gorm:"not null"                  json:"expired_at"`
	Attempts  int              `gorm:"not null"                  json:"attempts"`
}

// TableName 指定表名
func (ActiveUser) TableName() string { return "active_user" }

// UserToken 登录 Token 对应 user_token
type UserToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"        json:"-"`
	Username  string    `gorm:"type:varchar(255);not null;index" json:"username"`
	Token     string    `gorm:"type:text;not null;unique"       json:"token"`
	ExpiredAt time.Time `gorm:"not null"                        json:"expired_at"`
	Timestamps
}

// TableName 指定表名
func (UserToken) TableName() string { return "user_token" }

// UserImage 用户人脸图片 对应 user_image
type UserImage struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"         json:"id"`
	Username  string    `gorm:"type:varchar(255);not null;index" json:"username"`
	Image     string    `gorm:"type:varchar(255);not null"       json:"image"`
	ImageType *string   `gorm:"type:varchar(64)"                 json:"image_type"`
	Created   time.Time `gorm:"column:created;autoCreateTime"    json:"created"`
}

// TableName 指定表名
func (UserImage) TableName() string { return "user_image" }

// ContentType 图片 MIME 类型，缺省 image/png
func (i *UserImage) ContentType() string {
	if i.ImageType == nil || *i.ImageType == "" {
		return "image/png"
	}
	if len(*i.ImageType) > 6 && (*i.ImageType)[:6] == "image/" {
		return *i.ImageType
	}
	return "image/" + *i.ImageType
}
