package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskType groups tasks by recurrence
type TaskType string

const (
	TaskDaily   TaskType = "daily"
	TaskWeekly  TaskType = "weekly"
	TaskOneTime TaskType = "one_time"
	TaskSpecial TaskType = "special"
)

// Task is an item of GET /tasks
type Task struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Type         TaskType        `json:"type"`
	Reward       decimal.Decimal `json:"reward"`
	StartDate    *time.Time      `json:"startDate,omitempty"`
	EndDate      *time.Time      `json:"endDate,omitempty"`
	Requirements string          `json:"requirements,omitempty"`
	Completed    bool            `json:"completed"`
}

// CompleteTaskResult is the response of POST /tasks/{id}/complete
type CompleteTaskResult struct {
	Success     bool            `json:"success"`
	Reward      decimal.Decimal `json:"reward"`
	Transaction Transaction     `json:"transaction"`
}

// QRScanResult is the response of POST /qr/scan
type QRScanResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	ScannedAmount decimal.Decimal `json:"scannedAmount"`
	EarnedPoints  decimal.Decimal `json:"earnedPoints"`
	NewBalance    decimal.Decimal `json:"newBalance"`
	Invoice       struct {
		Code         string `json:"code"`
		Validated    bool   `json:"validated"`
		AmountSource string `json:"amountSource"`
	} `json:"invoice"`
}

// ScanHistoryItem is an item of GET /qr/history
type ScanHistoryItem struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"userId"`
	QRContent    string          `json:"qrContent"`
	Amount       decimal.Decimal `json:"amount"`
	PointsEarned decimal.Decimal `json:"pointsEarned"`
	CreatedAt    time.Time       `json:"createdAt"`
	Status       string          `json:"status"`
}
