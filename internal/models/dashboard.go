package models

import "time"

// PassSummary aggregates the passes of one university for the admin dashboard.
type PassSummary struct {
	UniversityID      string    `db:"-" json:"universityId"`
	TotalPasses       int       `db:"total_passes" json:"totalPasses"`
	ActivePasses      int       `db:"active_passes" json:"activePasses"`
	InactivePasses    int       `db:"inactive_passes" json:"inactivePasses"`
	PaymentDue        int       `db:"payment_due" json:"paymentDue"`
	PaymentOverdue    int       `db:"payment_overdue" json:"paymentOverdue"`
	PaymentPaid       int       `db:"payment_paid" json:"paymentPaid"`
	OutstandingAmount float64   `db:"outstanding_amount" json:"outstandingAmount"`
	AppleInstalled    int       `db:"apple_installed" json:"appleInstalled"`
	GoogleInstalled   int       `db:"google_installed" json:"googleInstalled"`
	NotificationsSent int       `db:"notifications_sent" json:"notificationsSent"`
	GeneratedAt       time.Time `db:"-" json:"generatedAt"`
}
