package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/layer-3/cobic/core"
)

// defaultReceiptAmount is credited for receipts whose code carries no amount
var defaultReceiptAmount = decimal.NewFromInt(50_000)

func defaultTasks() []core.Task {
	return []core.Task{
		{ID: 1, Title: "Open the app", Description: "Open Cobic today", Type: core.TaskDaily, Reward: decimal.RequireFromString("0.5")},
		{ID: 2, Title: "Invite a friend", Description: "Share your referral code", Type: core.TaskWeekly, Reward: decimal.NewFromInt(3)},
		{ID: 3, Title: "Complete your profile", Description: "Fill in your personal details", Type: core.TaskOneTime, Reward: decimal.NewFromInt(2)},
		{ID: 4, Title: "Visit a Cobic store", Description: "Scan a receipt at any Cobic store", Type: core.TaskSpecial, Reward: decimal.NewFromInt(10)},
	}
}

// Tasks lists tasks with the caller's completion state
func (b *Backend) Tasks(ctx context.Context, userID int64, taskType core.TaskType) ([]core.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return nil, err
	}

	now := b.now()
	out := make([]core.Task, 0, len(b.tasks))
	for _, task := range b.tasks {
		if taskType != "" && task.Type != taskType {
			continue
		}
		at, done := acc.completed[task.ID]
		task.Completed = done && !taskRenewed(task.Type, at, now)
		out = append(out, task)
	}
	return out, nil
}

// CompleteTask credits a task reward once per task period
func (b *Backend) CompleteTask(ctx context.Context, userID, taskID int64) (*core.CompleteTaskResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return nil, err
	}

	var task *core.Task
	for i := range b.tasks {
		if b.tasks[i].ID == taskID {
			task = &b.tasks[i]
			break
		}
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	now := b.now()
	if at, done := acc.completed[taskID]; done && !taskRenewed(task.Type, at, now) {
		return nil, ErrTaskCompleted
	}

	acc.completed[taskID] = now
	tx := b.creditLocked(acc, task.Reward, core.TransactionTaskReward, "Task: "+task.Title)
	return &core.CompleteTaskResult{Success: true, Reward: task.Reward, Transaction: tx}, nil
}

// taskRenewed reports whether a completion at done no longer counts at now
func taskRenewed(t core.TaskType, done, now time.Time) bool {
	switch t {
	case core.TaskDaily:
		y1, m1, d1 := done.Date()
		y2, m2, d2 := now.Date()
		return y1 != y2 || m1 != m2 || d1 != d2
	case core.TaskWeekly:
		return now.Sub(done) >= 7*24*time.Hour
	default:
		return false
	}
}

// ScanQR credits points for a receipt code of the form CODE or CODE|AMOUNT.
// Each receipt code can be redeemed once.
func (b *Backend) ScanQR(ctx context.Context, userID int64, content string) (*core.QRScanResult, error) {
	code, rawAmount, hasAmount := strings.Cut(strings.TrimSpace(content), "|")
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidQR
	}

	amount := defaultReceiptAmount
	source := "default"
	if hasAmount {
		parsed, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
		if err != nil || !parsed.IsPositive() {
			return nil, fmt.Errorf("%w: bad amount", ErrInvalidQR)
		}
		amount = parsed
		source = "qr"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return nil, err
	}
	if _, used := b.invoices[code]; used {
		return nil, ErrQRAlreadyScanned
	}
	b.invoices[code] = struct{}{}

	points := amount.Mul(b.opts.QRPointRate)
	b.creditLocked(acc, points, core.TransactionAdmin, "Receipt "+code)

	b.nextScanID++
	b.scans = append(b.scans, core.ScanHistoryItem{
		ID:           b.nextScanID,
		UserID:       userID,
		QRContent:    content,
		Amount:       amount,
		PointsEarned: points,
		CreatedAt:    b.now(),
		Status:       "completed",
	})

	res := &core.QRScanResult{
		Success:       true,
		Message:       fmt.Sprintf("You earned %s COBIC", points.String()),
		ScannedAmount: amount,
		EarnedPoints:  points,
		NewBalance:    acc.user.Balance,
	}
	res.Invoice.Code = code
	res.Invoice.Validated = true
	res.Invoice.AmountSource = source
	return res, nil
}

// ScanHistory lists userID's scans, newest first
func (b *Backend) ScanHistory(ctx context.Context, userID int64) []core.ScanHistoryItem {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := []core.ScanHistoryItem{}
	for i := len(b.scans) - 1; i >= 0; i-- {
		if b.scans[i].UserID == userID {
			out = append(out, b.scans[i])
		}
	}
	return out
}
