package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"talentBack/internal/metrics"
	"talentBack/internal/models"
)

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders)
	authMiddleware := standardMiddleware.Append(app.authenticate)
	talentMiddleware := authMiddleware.Append(requireRole(models.RoleTalent))

	mux := pat.New()

	// Bookings
	mux.Post("/bookings", authMiddleware.ThenFunc(app.bookingHandler.CreateBooking))
	mux.Get("/bookings", authMiddleware.ThenFunc(app.bookingHandler.ListBookings))
	mux.Get("/bookings/:id", authMiddleware.ThenFunc(app.bookingHandler.GetBooking))
	mux.Post("/bookings/:id/decline", authMiddleware.ThenFunc(app.bookingHandler.DeclineBooking))
	mux.Post("/bookings/:id/complete", authMiddleware.ThenFunc(app.bookingHandler.CompleteBooking))

	// Gigs
	mux.Get("/gigs", authMiddleware.ThenFunc(app.bookingHandler.ListGigs))
	mux.Post("/gigs/:id/claim", talentMiddleware.ThenFunc(app.bookingHandler.ClaimGig))
	mux.Post("/gigs/:id/decline", authMiddleware.ThenFunc(app.bookingHandler.DeclineGig))
	mux.Post("/gigs/:id/applications", talentMiddleware.ThenFunc(app.bookingHandler.ApplyToGig))
	mux.Get("/gigs/:id/applications", authMiddleware.ThenFunc(app.bookingHandler.ListApplications))
	mux.Post("/gigs/:id/applications/withdraw", talentMiddleware.ThenFunc(app.bookingHandler.WithdrawApplication))

	// Invoices and payments
	mux.Post("/bookings/:id/invoice/rate", authMiddleware.ThenFunc(app.paymentHandler.IssueRateInvoice))
	mux.Post("/bookings/:id/invoice/manual", authMiddleware.ThenFunc(app.paymentHandler.IssueManualInvoice))
	mux.Get("/payments/:id", authMiddleware.ThenFunc(app.paymentHandler.GetPayment))
	mux.Post("/payments/:id/decline", authMiddleware.ThenFunc(app.paymentHandler.DeclinePayment))
	mux.Post("/payments/:id/checkout", authMiddleware.ThenFunc(app.paymentHandler.StartCheckout))

	// Provider webhooks are authenticated by signature, not by token.
	mux.Post("/webhooks/payments", standardMiddleware.ThenFunc(app.webhookHandler.PaymentWebhook))

	// Notifications
	mux.Get("/notifications", authMiddleware.ThenFunc(app.notificationHandler.ListNotifications))
	mux.Post("/notifications/:id/read", authMiddleware.ThenFunc(app.notificationHandler.MarkRead))
	mux.Post("/devices", authMiddleware.ThenFunc(app.notificationHandler.RegisterDevice))

	mux.Get("/ws", authMiddleware.ThenFunc(app.hub.ServeWS))
	mux.Get("/metrics", metrics.Handler())
	mux.Get("/healthz", http.HandlerFunc(app.healthz))

	return mux
}
