package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/sandbox"
)

// SetupRouter sets up the Gin router. All routes live under /api; the paths
// match the client's endpoint constants.
func SetupRouter(backend *sandbox.Backend, logger logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	handlers := NewHandlers(backend)
	root := router.Group("/api")

	// Public routes
	root.POST(api.EndpointLogin, handlers.Login)
	root.POST(api.EndpointRegister, handlers.Register)
	root.POST(api.EndpointGuestRegister, handlers.GuestRegister)
	root.POST(api.EndpointForgotPassword, handlers.ForgotPassword)
	root.GET(api.EndpointPublicStats, handlers.PublicStats)

	// Protected routes
	protected := root.Group("")
	protected.Use(AuthMiddleware(backend))
	{
		protected.GET(api.EndpointMe, handlers.Me)
		protected.POST(api.EndpointLogout, handlers.Logout)

		protected.GET(api.EndpointMiningStatus, handlers.MiningStatus)
		protected.POST(api.EndpointMine, handlers.Mine)
		protected.POST(api.EndpointCheckIn, handlers.CheckIn)

		protected.PATCH(api.EndpointUsername, handlers.UpdateUsername)
		protected.PATCH(api.EndpointPassword, handlers.ChangePassword)
		protected.PATCH(api.EndpointProfile, handlers.UpdateProfile)
		protected.PATCH(api.EndpointEmail, handlers.UpdateEmail)
		protected.POST(api.EndpointReferral, handlers.SubmitReferral)
		protected.GET(api.EndpointReferralStats, handlers.ReferralStats)

		protected.GET(api.EndpointTransactions, handlers.Transactions)
		protected.GET(api.EndpointTransactions+"/:id", handlers.Transaction)
		protected.POST(api.EndpointTransfer, handlers.Transfer)

		protected.GET(api.EndpointTasks, handlers.Tasks)
		protected.POST(api.EndpointTasks+"/:id/complete", handlers.CompleteTask)

		protected.POST(api.EndpointQRScan, handlers.ScanQR)
		protected.GET(api.EndpointQRHistory, handlers.ScanHistory)

		protected.POST(api.EndpointKYC, handlers.SubmitKYC)
	}

	return router
}
