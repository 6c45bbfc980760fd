package model

// Department 部门表 对应 department
type Department struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"           json:"id"`
	Name        string `gorm:"type:varchar(255);not null;unique" json:"name"`
	Description string `gorm:"type:varchar(500)"                  json:"description"`
	Timestamps
}

// TableName 指定表名
func (Department) TableName() string { return "department" }
