package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamps 通用审计字段
type Timestamps struct {
	Created     time.Time `gorm:"column:created;autoCreateTime"      json:"created"`
	LastUpdated time.Time `gorm:"column:last_updated;autoUpdateTime" json:"last_updated"`
}

// ── DATE 列类型 ──

const DateLayout = "2006-01-02"

// Date 对应数据库 DATE 列，JSON 格式为 2006-01-02
type Date struct {
	time.Time
}

// NewDate 截断到日期
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate 解析 2006-01-02
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	*d = parsed
	return nil
}

// Scan 兼容驱动返回 time.Time 或文本
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) >= len(DateLayout) {
		parsed, err := ParseDate(s[:len(DateLayout)])
		if err == nil {
			*d = parsed
			return nil
		}
	}
	return fmt.Errorf("Date.Scan: invalid value %q", s)
}

// Value 写入时只保留日期部分
func (d Date) Value() (driver.Value, error) {
	return NewDate(d.Time).Time, nil
}

// ── HH:MM:SS ──

const ClockLayout = "15:04:05"

// NormalizeClock 接受 HH:MM 或 HH:MM:SS，统一为 HH:MM:SS
func NormalizeClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{ClockLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time %q, expected HH:MM:SS", s)
}
