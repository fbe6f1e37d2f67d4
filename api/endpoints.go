package api

import "fmt"

// REST paths relative to the API base URL
const (
	EndpointLogin          = "/auth/login"
	EndpointRegister       = "/auth/register"
	EndpointGuestRegister  = "/auth/guest-register"
	EndpointForgotPassword = "/auth/forgot-password"
	EndpointMe             = "/auth/me"
	EndpointLogout         = "/auth/logout"

	EndpointPublicStats = "/public/stats"

	EndpointMiningStatus = "/mining/status"
	EndpointMine         = "/mining/mine"
	EndpointCheckIn      = "/mining/daily-check-in"

	EndpointUsername      = "/user/username"
	EndpointPassword      = "/user/password"
	EndpointProfile       = "/user/profile"
	EndpointEmail         = "/user/email"
	EndpointReferral      = "/referral"
	EndpointReferralStats = "/user/referral-stats"
	EndpointKYC           = "/kyc/submit"

	EndpointTransactions = "/transactions"
	EndpointTransfer     = "/transactions/transfer"

	EndpointTasks = "/tasks"

	EndpointQRScan    = "/qr/scan"
	EndpointQRHistory = "/qr/history"
)

var publicEndpoints = map[string]struct{}{
	EndpointLogin:          {},
	EndpointRegister:       {},
	EndpointGuestRegister:  {},
	EndpointForgotPassword: {},
	EndpointPublicStats:    {},
}

// IsPublic reports whether path may be called without a credential. Matching
// is exact: "/auth/login-history" is not public.
func IsPublic(path string) bool {
	_, ok := publicEndpoints[path]
	return ok
}

// PublicEndpoints lists the paths that never carry a credential
func PublicEndpoints() []string {
	return []string{
		EndpointLogin,
		EndpointRegister,
		EndpointGuestRegister,
		EndpointForgotPassword,
		EndpointPublicStats,
	}
}

// TransactionPath returns the path of a single transaction
func TransactionPath(id int64) string {
	return fmt.Sprintf("%s/%d", EndpointTransactions, id)
}

// TaskCompletePath returns the path that completes a task
func TaskCompletePath(id int64) string {
	return fmt.Sprintf("%s/%d/complete", EndpointTasks, id)
}
