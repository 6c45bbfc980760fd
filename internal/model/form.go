package model

// FormStatus 表单状态
type FormStatus string

const (
	FormStatusPending   FormStatus = "pending"
	FormStatusApproved  FormStatus = "approved"
	FormStatusCancelled FormStatus = "cancelled"
)

// FormStatuses 按展示顺序排列
var FormStatuses = []FormStatus{FormStatusPending, FormStatusApproved, FormStatusCancelled}

var formStatusDisplay = map[FormStatus]string{
	FormStatusPending:   "Chờ duyệt",
	FormStatusApproved:  "Đã duyệt",
	FormStatusCancelled: "Không duyệt",
}

func (s FormStatus) Valid() bool { _, ok := formStatusDisplay[s]; return ok }

func (s FormStatus) Display() string { return formStatusDisplay[s] }

// FormPhase 当前审批环节
type FormPhase string

const (
	FormPhaseDirectorApproved         FormPhase = "director_approved"
	FormPhaseAuthorizedPersonApproved FormPhase = "authorized_person_approved"
	FormPhaseDirectManagerApproved    FormPhase = "direct_manager_approved"
)

var formPhaseDisplay = map[FormPhase]string{
	FormPhaseDirectorApproved:         "Director Approved",
	FormPhaseAuthorizedPersonApproved: "Authorized Person Approved",
	FormPhaseDirectManagerApproved:    "Direct Manager Approved",
}

func (p FormPhase) Display() string { return formPhaseDisplay[p] }

// FormType 表单类型
type FormType string

const (
	FormTypeLeaveRequest        FormType = "leave_request"
	FormTypeAbsentee            FormType = "absentee"
	FormTypeJobOvertime         FormType = "job_overtime"
	FormTypeCheckInOut          FormType = "check_in_out"
	FormTypeShiftChange         FormType = "shift_change"
	FormTypeShiftOvertime       FormType = "shift_overtime"
	FormTypeShiftRegistration   FormType = "shift_registration"
	FormTypeBusinessTripRequest FormType = "business_trip_request"
	FormTypeWorkModeRequest     FormType = "work_mode_request"
	FormTypeResignation         FormType = "resignation"
)

// FormTypes 按声明顺序排列
var FormTypes = []FormType{
	FormTypeLeaveRequest,
	FormTypeAbsentee,
	FormTypeJobOvertime,
	FormTypeCheckInOut,
	FormTypeShiftChange,
	FormTypeShiftOvertime,
	FormTypeShiftRegistration,
	FormTypeBusinessTripRequest,
	FormTypeWorkModeRequest,
	FormTypeResignation,
}

var formTypeDisplay = map[FormType]string{
	FormTypeLeaveRequest:        "Leave Request",
	FormTypeAbsentee:            "Absentee",
	FormTypeJobOvertime:         "Job Overtime",
	FormTypeCheckInOut:          "Check In Out",
	FormTypeShiftChange:         "Shift Change",
	FormTypeShiftOvertime:       "Shift Overtime",
	FormTypeShiftRegistration:   "Shift Registration",
	FormTypeBusinessTripRequest: "Business Trip Request",
	FormTypeWorkModeRequest:     "Work Mode Request",
	FormTypeResignation:         "Resignation",
}

func (t FormType) Valid() bool { _, ok := formTypeDisplay[t]; return ok }

func (t FormType) Display() string { return formTypeDisplay[t] }

// FormProductivity 计薪方式
type FormProductivity string

const (
	NoProductivity   FormProductivity = "no_productivity"
	Productivity     FormProductivity = "productivity"
	HalfProductivity FormProductivity = "half_productivity"
)

var productivityDisplay = map[FormProductivity]string{
	NoProductivity:   "Không tính công",
	Productivity:     "Tính công",
	HalfProductivity: "Nữa ngày công",
}

func (p FormProductivity) Valid() bool { _, ok := productivityDisplay[p]; return ok }

func (p FormProductivity) Display() string { return productivityDisplay[p] }

// FormReason 表单原因（初始化数据） 对应 form_reason
type FormReason struct {
	ID           uint             `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name         string           `gorm:"type:varchar(255);not null" json:"name"`
	Description  string           `gorm:"type:varchar(500)"          json:"description"`
	Productivity FormProductivity `gorm:"type:varchar(32);default:no_productivity" json:"productivity"`
	FormType     FormType         `gorm:"type:varchar(32);not null"  json:"form_type"`
}

// TableName 指定表名
func (FormReason) TableName() string { return "form_reason" }

// Form 表单 对应 form
type Form struct {
	ID           uint             `gorm:"primaryKey;autoIncrement"                 json:"id"`
	FormStatus   FormStatus       `gorm:"type:varchar(16);not null;default:pending" json:"form_status"`
	FormPhase    FormPhase        `gorm:"type:varchar(32);not null"                json:"form_phase"`
	FormType     FormType         `gorm:"type:varchar(32);not null"                json:"form_type"`
	Reason       uint             `gorm:"not null"                                 json:"reason"`
	Productivity FormProductivity `gorm:"type:varchar(32);not null"                json:"productivity"`
	Department   string           `gorm:"type:varchar(255);not null;index"         json:"department"`
	Role         string           `gorm:"type:varchar(255);not null"               json:"role"`
	CreatedUser  string           `gorm:"type:varchar(255);not null;index"         json:"created_user"`
	AssignedUser string           `gorm:"type:varchar(255);not null;index"         json:"assigned_user"`
	Description  *string          `gorm:"type:text"                                json:"description"`
	Note         *string          `gorm:"type:text"                                json:"note"`
	Version      int              `gorm:"not null;default:1"                       json:"version"`
	Timestamps

	// 关联
	FormReason *FormReason  `gorm:"foreignKey:Reason"                 json:"form_reason,omitempty"`
	Details    []FormDetail `gorm:"foreignKey:Form;references:ID"     json:"details"`
}

// TableName 指定表名
func (Form) TableName() string { return "form" }

// FormDetail 表单时间段明细 对应 form_detail
type FormDetail struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Form     uint   `gorm:"not null;index"            json:"form"`
	FromTime string `gorm:"type:varchar(8);not null"  json:"from_time"`
	ToTime   string `gorm:"type:varchar(8);not null"  json:"to_time"`
	FromDate Date   `gorm:"type:date;not null"        json:"from_date"`
	ToDate   Date   `gorm:"type:date;not null"        json:"to_date"`
}

// TableName 指定表名
func (FormDetail) TableName() string { return "form_detail" }
