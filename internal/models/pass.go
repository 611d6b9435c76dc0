package models

import "time"

// PaymentStatus is the billing state of a pass.
type PaymentStatus string

const (
	PaymentStatusDue     PaymentStatus = "Due"
	PaymentStatusOverdue PaymentStatus = "Overdue"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// PassStatus tells whether the pass is usable. Passes are never hard deleted.
type PassStatus string

const (
	PassStatusActive   PassStatus = "Active"
	PassStatusInactive PassStatus = "Inactive"
)

// StudentStatus is the academic state of the holder.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "Active"
	StudentStatusInactive  StudentStatus = "Inactive"
	StudentStatusGraduated StudentStatus = "Graduated"
)

// InstallationStatus moves from Pending to Installed once per platform.
type InstallationStatus string

const (
	InstallationPending   InstallationStatus = "Pending"
	InstallationInstalled InstallationStatus = "Installed"
)

// WalletPlatform selects a wallet provider.
type WalletPlatform string

const (
	PlatformApple  WalletPlatform = "apple"
	PlatformGoogle WalletPlatform = "google"
)

// Pass is one academic enrollment record with wallet linkage, identified by
// (universityId, uniqueIdentifier, careerId).
type Pass struct {
	ID                       string             `db:"id" json:"id"`
	UniversityID             string             `db:"university_id" json:"universityId"`
	UniqueIdentifier         string             `db:"unique_identifier" json:"uniqueIdentifier"`
	CareerID                 string             `db:"career_id" json:"careerId"`
	Name                     string             `db:"name" json:"name"`
	Email                    string             `db:"email" json:"email"`
	City                     string             `db:"city" json:"city"`
	Semester                 int                `db:"semester" json:"semester"`
	EnrollmentYear           int                `db:"enrollment_year" json:"enrollmentYear"`
	PaymentReference         string             `db:"payment_reference" json:"paymentReference"`
	PaymentStatus            PaymentStatus      `db:"payment_status" json:"paymentStatus"`
	TotalToPay               float64            `db:"total_to_pay" json:"totalToPay"`
	StartDueDate             Date               `db:"start_due_date" json:"startDueDate"`
	EndDueDate               Date               `db:"end_due_date" json:"endDueDate"`
	OnlinePaymentLink        *string            `db:"online_payment_link" json:"onlinePaymentLink"`
	AcademicCalendarLink     *string            `db:"academic_calendar_link" json:"academicCalendarLink"`
	Graduated                bool               `db:"graduated" json:"graduated"`
	CurrentlyStudying        bool               `db:"currently_studying" json:"currentlyStudying"`
	Cashback                 float64            `db:"cashback" json:"cashback"`
	StudentStatus            StudentStatus      `db:"student_status" json:"studentStatus"`
	GoogleWalletObjectID     *string            `db:"google_wallet_object_id" json:"googleWalletObjectId"`
	AppleWalletSerialNumber  *string            `db:"apple_wallet_serial_number" json:"appleWalletSerialNumber"`
	GoogleInstallationStatus InstallationStatus `db:"google_installation_status" json:"googleInstallationStatus"`
	AppleInstallationStatus  InstallationStatus `db:"apple_installation_status" json:"appleInstallationStatus"`
	NotificationCount        int                `db:"notification_count" json:"notificationCount"`
	LastNotificationDate     *time.Time         `db:"last_notification_date" json:"lastNotificationDate"`
	Status                   PassStatus         `db:"status" json:"status"`
	CreatedAt                time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time          `db:"updated_at" json:"updatedAt"`
}

// Key returns the composite identity used by batch operations.
func (p Pass) Key() PassKey {
	return PassKey{UniqueIdentifier: p.UniqueIdentifier, CareerID: p.CareerID}
}

// PassKey is the composite identity of a pass within a university.
type PassKey struct {
	UniqueIdentifier string `json:"uniqueIdentifier" validate:"required,min=1"`
	CareerID         string `json:"careerId" validate:"required,min=1"`
}

// CreatePassRequest is the enrollment payload for a single pass.
type CreatePassRequest struct {
	UniqueIdentifier     string        `json:"uniqueIdentifier" validate:"required,min=1"`
	Name                 string        `json:"name" validate:"required,min=1"`
	Email                string        `json:"email" validate:"omitempty,email"`
	City                 string        `json:"city"`
	CareerID             string        `json:"careerId" validate:"required,min=1"`
	Semester             int           `json:"semester" validate:"required,min=1"`
	EnrollmentYear       int           `json:"enrollmentYear" validate:"required,gt=0"`
	PaymentReference     string        `json:"paymentReference" validate:"required,min=1"`
	PaymentStatus        PaymentStatus `json:"paymentStatus" validate:"required,oneof=Due Overdue Paid"`
	TotalToPay           float64       `json:"totalToPay" validate:"gte=0"`
	StartDueDate         Date          `json:"startDueDate"`
	EndDueDate           Date          `json:"endDueDate"`
	OnlinePaymentLink    *string       `json:"onlinePaymentLink" validate:"omitempty,url"`
	AcademicCalendarLink *string       `json:"academicCalendarLink" validate:"omitempty,url"`
	Graduated            bool          `json:"graduated"`
	CurrentlyStudying    bool          `json:"currentlyStudying"`
	Cashback             float64       `json:"cashback" validate:"gte=0"`
	StudentStatus        StudentStatus `json:"studentStatus" validate:"omitempty,oneof=Active Inactive Graduated"`
}

// UpdateDueItem changes the billing fields of the pass identified by its key.
type UpdateDueItem struct {
	PassKey
	PaymentReference  string        `json:"paymentReference" validate:"required,min=1"`
	PaymentStatus     PaymentStatus `json:"paymentStatus" validate:"required,oneof=Due Overdue Paid"`
	TotalToPay        float64       `json:"totalToPay" validate:"gte=0"`
	StartDueDate      Date          `json:"startDueDate"`
	EndDueDate        Date          `json:"endDueDate"`
	OnlinePaymentLink *string       `json:"onlinePaymentLink" validate:"omitempty,url"`
	Cashback          float64       `json:"cashback" validate:"gte=0"`
}

// UpdateDueRequest is a batch; duplicate keys reject the whole batch.
type UpdateDueRequest struct {
	Items []UpdateDueItem `json:"items" validate:"required,min=1,dive"`
}

// PassListFilter captures paging and simple lookups for listing passes.
type PassListFilter struct {
	UniversityID string
	CareerID     string
	Status       *PassStatus
	Search       string
	Page         int
	PageSize     int
}

// Normalize applies paging defaults.
func (f *PassListFilter) Normalize() {
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)
}

// ImportResult reports the outcome of an XLSX enrollment import.
type ImportResult struct {
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}

// ImportRowError locates a rejected spreadsheet row (1-based, header is row 1).
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// MarkInstalledRequest flags a platform as installed.
type MarkInstalledRequest struct {
	Platform WalletPlatform `json:"platform" validate:"required,oneof=apple google"`
}

// ExportFormat selects the roster rendering.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)
