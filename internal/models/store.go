package models

// Store is a participating merchant. Codes are short sequential
// strings ("01", "02", ...) assigned at creation. Stores are never
// deleted; deactivation is a soft flag.
type Store struct {
	BaseModel
	Code         string `gorm:"uniqueIndex" json:"code"`
	Name         string `json:"name"`
	ManagerName  string `json:"manager_name"`
	ManagerPhone string `json:"manager_phone"`
	IsActive     bool   `json:"is_active"`
}

// Settlement is one reimbursement payment from operator to merchant.
// Rows are append-only: never edited, never deleted.
type Settlement struct {
	BaseModel
	StoreCode string `gorm:"index" json:"store_code"`
	Amount    int64  `json:"amount"`
	Note      string `json:"note"`
}
