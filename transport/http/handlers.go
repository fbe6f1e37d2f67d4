package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/sandbox"
)

// Handlers serves the sandbox API
type Handlers struct {
	backend *sandbox.Backend
}

// NewHandlers creates new handlers
func NewHandlers(backend *sandbox.Backend) *Handlers {
	return &Handlers{backend: backend}
}

func invalidRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}

// writeError maps backend errors to status codes and the {"error": ...} body
// the client reads
func writeError(c *gin.Context, err error) {
	var cooldown *sandbox.CooldownError
	if errors.As(err, &cooldown) {
		body := gin.H{"error": cooldown.Error(), "remainingHours": cooldown.RemainingHours()}
		if cooldown.Action == "mining" {
			body["nextMiningTime"] = cooldown.Next
		} else {
			body["nextCheckInTime"] = cooldown.Next
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}

	status := http.StatusInternalServerError
	msg := "Internal server error"
	switch {
	case errors.Is(err, sandbox.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, sandbox.ErrUnauthorized), errors.Is(err, sandbox.ErrTokenRevoked):
		status, msg = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, sandbox.ErrUserNotFound),
		errors.Is(err, sandbox.ErrRecipientNotFound),
		errors.Is(err, sandbox.ErrTransactionNotFound),
		errors.Is(err, sandbox.ErrTaskNotFound):
		status, msg = http.StatusNotFound, upperFirst(err.Error())
	case errors.Is(err, sandbox.ErrUserExists),
		errors.Is(err, sandbox.ErrEmailExists),
		errors.Is(err, sandbox.ErrQRAlreadyScanned):
		status, msg = http.StatusConflict, upperFirst(err.Error())
	case errors.Is(err, sandbox.ErrSelfTransfer),
		errors.Is(err, sandbox.ErrInvalidAmount),
		errors.Is(err, sandbox.ErrInsufficientBalance),
		errors.Is(err, sandbox.ErrTaskCompleted),
		errors.Is(err, sandbox.ErrInvalidQR),
		errors.Is(err, sandbox.ErrKYCAlreadySubmitted),
		errors.Is(err, sandbox.ErrInvalidReferral),
		errors.Is(err, sandbox.ErrSelfReferral),
		errors.Is(err, sandbox.ErrAlreadyReferred),
		errors.Is(err, sandbox.ErrReferralLimitReached),
		errors.Is(err, sandbox.ErrWrongPassword),
		errors.Is(err, sandbox.ErrInvalidInput):
		status, msg = http.StatusBadRequest, upperFirst(err.Error())
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func upperFirst(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		invalidRequest(c)
		return 0, false
	}
	return id, true
}

// Login handles the login request
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}

	res, err := h.backend.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Register handles account creation
func (h *Handlers) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}

	res, err := h.backend.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GuestRegister creates a guest account
func (h *Handlers) GuestRegister(c *gin.Context) {
	res, err := h.backend.GuestRegister(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ForgotPassword handles reset requests
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	c.JSON(http.StatusOK, h.backend.ForgotPassword(c.Request.Context(), req.Email))
}

// Me returns the profile of the authenticated user
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.backend.Me(c.Request.Context(), claimsFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout revokes the presented token
func (h *Handlers) Logout(c *gin.Context) {
	h.backend.Logout(c.Request.Context(), claimsFrom(c))
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// PublicStats returns network statistics
func (h *Handlers) PublicStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.backend.Stats(c.Request.Context()))
}

// MiningStatus returns the caller's cooldown state
func (h *Handlers) MiningStatus(c *gin.Context) {
	status, err := h.backend.MiningStatus(c.Request.Context(), claimsFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Mine claims the mining reward
func (h *Handlers) Mine(c *gin.Context) {
	res, err := h.backend.Mine(c.Request.Context(), claimsFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CheckIn claims the daily check-in reward
func (h *Handlers) CheckIn(c *gin.Context) {
	res, err := h.backend.CheckIn(c.Request.Context(), claimsFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateUsername renames the caller
func (h *Handlers) UpdateUsername(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	if err := h.backend.UpdateUsername(c.Request.Context(), claimsFrom(c).UserID, req.Username); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Username updated"})
}

// ChangePassword replaces the caller's password
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	if err := h.backend.ChangePassword(c.Request.Context(), claimsFrom(c).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// UpdateProfile changes personal details
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req core.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	if err := h.backend.UpdateProfile(c.Request.Context(), claimsFrom(c).UserID, req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// UpdateEmail changes the contact address
func (h *Handlers) UpdateEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	if err := h.backend.UpdateEmail(c.Request.Context(), claimsFrom(c).UserID, req.Email); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email updated"})
}

// SubmitReferral redeems a referral code
func (h *Handlers) SubmitReferral(c *gin.Context) {
	var req struct {
		ReferralCode string `json:"referralCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	if err := h.backend.ApplyReferral(c.Request.Context(), claimsFrom(c).UserID, req.ReferralCode); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Referral code applied"})
}

// ReferralStats reports the caller's referrals
func (h *Handlers) ReferralStats(c *gin.Context) {
	stats, err := h.backend.ReferralStats(c.Request.Context(), claimsFrom(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Transactions lists the caller's ledger
func (h *Handlers) Transactions(c *gin.Context) {
	limit, err1 := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, err2 := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err1 != nil || err2 != nil || limit < 0 || offset < 0 {
		invalidRequest(c)
		return
	}
	filters := core.TransactionFilters{
		Limit:  limit,
		Offset: offset,
		Type:   core.TransactionType(c.DefaultQuery("type", string(core.TransactionAll))),
	}
	c.JSON(http.StatusOK, h.backend.Transactions(c.Request.Context(), claimsFrom(c).UserID, filters))
}

// Transaction returns one ledger entry
func (h *Handlers) Transaction(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	tx, err := h.backend.Transaction(c.Request.Context(), claimsFrom(c).UserID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// Transfer sends points to another user
func (h *Handlers) Transfer(c *gin.Context) {
	var req core.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RecipientUsername == "" {
		invalidRequest(c)
		return
	}
	res, err := h.backend.Transfer(c.Request.Context(), claimsFrom(c).UserID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Tasks lists tasks
func (h *Handlers) Tasks(c *gin.Context) {
	tasks, err := h.backend.Tasks(c.Request.Context(), claimsFrom(c).UserID, core.TaskType(c.Query("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// CompleteTask claims a task reward
func (h *Handlers) CompleteTask(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	res, err := h.backend.CompleteTask(c.Request.Context(), claimsFrom(c).UserID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ScanQR redeems a receipt code
func (h *Handlers) ScanQR(c *gin.Context) {
	var req struct {
		QRContent string `json:"qrContent" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	res, err := h.backend.ScanQR(c.Request.Context(), claimsFrom(c).UserID, req.QRContent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ScanHistory lists earlier scans
func (h *Handlers) ScanHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.backend.ScanHistory(c.Request.Context(), claimsFrom(c).UserID))
}

// SubmitKYC stores identity documents
func (h *Handlers) SubmitKYC(c *gin.Context) {
	var req core.KYCSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	if req.DocumentFront == "" {
		req.DocumentFront = req.IDCardFrontImage
	}
	if req.DocumentBack == "" {
		req.DocumentBack = req.IDCardBackImage
	}
	if err := h.backend.SubmitKYC(c.Request.Context(), claimsFrom(c).UserID, req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "KYC submitted for review"})
}
