package models

// Setting keys used by the application.
const (
	SettingAdminPassword = "admin_password"
	SettingTotalBudget   = "total_budget"
)

// Setting is a plain key-value configuration row.
type Setting struct {
	BaseModel
	Key   string `gorm:"uniqueIndex" json:"key"`
	Value string `json:"value"`
}
