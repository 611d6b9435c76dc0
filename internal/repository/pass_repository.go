package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unipass-api/internal/models"
	"github.com/noah-isme/unipass-api/pkg/database"
)

// PassRepository persists student passes.
type PassRepository struct {
	db *sqlx.DB
}

// NewPassRepository constructs a PassRepository.
func NewPassRepository(db *sqlx.DB) *PassRepository {
	return &PassRepository{db: db}
}

const passColumns = `id, university_id, unique_identifier, career_id, name, email, city, semester, enrollment_year,
	payment_reference, payment_status, total_to_pay, start_due_date, end_due_date, online_payment_link,
	academic_calendar_link, graduated, currently_studying, cashback, student_status, google_wallet_object_id,
	apple_wallet_serial_number, google_installation_status, apple_installation_status, notification_count,
	last_notification_date, status, created_at, updated_at`

const insertPassQuery = `INSERT INTO passes (` + passColumns + `) VALUES (:id, :university_id, :unique_identifier, :career_id, :name, :email,
	:city, :semester, :enrollment_year, :payment_reference, :payment_status, :total_to_pay, :start_due_date, :end_due_date,
	:online_payment_link, :academic_calendar_link, :graduated, :currently_studying, :cashback, :student_status,
	:google_wallet_object_id, :apple_wallet_serial_number, :google_installation_status, :apple_installation_status,
	:notification_count, :last_notification_date, :status, :created_at, :updated_at)`

func preparePass(pass *models.Pass, now time.Time) {
	if pass.ID == "" {
		pass.ID = uuid.NewString()
	}
	if pass.Status == "" {
		pass.Status = models.PassStatusActive
	}
	if pass.StudentStatus == "" {
		pass.StudentStatus = models.StudentStatusActive
	}
	if pass.GoogleInstallationStatus == "" {
		pass.GoogleInstallationStatus = models.InstallationPending
	}
	if pass.AppleInstallationStatus == "" {
		pass.AppleInstallationStatus = models.InstallationPending
	}
	pass.CreatedAt = now
	pass.UpdatedAt = now
}

// Create inserts a pass.
func (r *PassRepository) Create(ctx context.Context, pass *models.Pass) error {
	preparePass(pass, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertPassQuery, pass); err != nil {
		return fmt.Errorf("create pass: %w", err)
	}
	return nil
}

// CreateMany inserts passes atomically.
func (r *PassRepository) CreateMany(ctx context.Context, passes []models.Pass) error {
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range passes {
			preparePass(&passes[i], now)
			if _, err := tx.NamedExecContext(ctx, insertPassQuery, passes[i]); err != nil {
				return fmt.Errorf("create pass %s: %w", passes[i].UniqueIdentifier, err)
			}
		}
		return nil
	})
}

// FindByID fetches a pass by its surrogate id.
func (r *PassRepository) FindByID(ctx context.Context, universityID, id string) (*models.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE university_id = $1 AND id = $2`
	var pass models.Pass
	if err := r.db.GetContext(ctx, &pass, query, universityID, id); err != nil {
		return nil, err
	}
	return &pass, nil
}

// FindByKey fetches a pass by (careerId, uniqueIdentifier).
func (r *PassRepository) FindByKey(ctx context.Context, universityID string, key models.PassKey) (*models.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE university_id = $1 AND career_id = $2 AND unique_identifier = $3`
	var pass models.Pass
	if err := r.db.GetContext(ctx, &pass, query, universityID, key.CareerID, key.UniqueIdentifier); err != nil {
		return nil, err
	}
	return &pass, nil
}

// FindBySerial fetches the pass linked to an Apple serial number.
func (r *PassRepository) FindBySerial(ctx context.Context, serial string) (*models.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE apple_wallet_serial_number = $1`
	var pass models.Pass
	if err := r.db.GetContext(ctx, &pass, query, serial); err != nil {
		return nil, err
	}
	return &pass, nil
}

// ExistingKeys returns which of keys already exist in the university.
func (r *PassRepository) ExistingKeys(ctx context.Context, universityID string, keys []models.PassKey) (map[models.PassKey]bool, error) {
	existing := make(map[models.PassKey]bool)
	if len(keys) == 0 {
		return existing, nil
	}
	args := []interface{}{universityID}
	tuples := make([]string, 0, len(keys))
	for _, key := range keys {
		args = append(args, key.CareerID, key.UniqueIdentifier)
		tuples = append(tuples, fmt.Sprintf("($%d, $%d)", len(args)-1, len(args)))
	}
	query := fmt.Sprintf(`SELECT career_id, unique_identifier FROM passes WHERE university_id = $1 AND (career_id, unique_identifier) IN (%s)`, strings.Join(tuples, ", "))

	var rows []struct {
		CareerID         string `db:"career_id"`
		UniqueIdentifier string `db:"unique_identifier"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("check pass keys: %w", err)
	}
	for _, row := range rows {
		existing[models.PassKey{CareerID: row.CareerID, UniqueIdentifier: row.UniqueIdentifier}] = true
	}
	return existing, nil
}

// List returns a page of passes and the total number of matches.
func (r *PassRepository) List(ctx context.Context, filter models.PassListFilter) ([]models.Pass, int, error) {
	conditions := []string{"university_id = $1"}
	args := []interface{}{filter.UniversityID}

	if filter.CareerID != "" {
		args = append(args, filter.CareerID)
		conditions = append(conditions, fmt.Sprintf("career_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(unique_identifier) LIKE $%d OR LOWER(email) LIKE $%d)", len(args), len(args), len(args)))
	}

	where := "WHERE " + strings.Join(conditions, " AND ")
	offset := (filter.Page - 1) * filter.PageSize
	query := fmt.Sprintf(`SELECT %s FROM passes %s ORDER BY career_id ASC, unique_identifier ASC LIMIT %d OFFSET %d`, passColumns, where, filter.PageSize, offset)

	var passes []models.Pass
	if err := r.db.SelectContext(ctx, &passes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list passes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM passes %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count passes: %w", err)
	}
	return passes, total, nil
}

// Query returns the active passes of a university matching the base-field
// clauses of filter, ordered by key.
func (r *PassRepository) Query(ctx context.Context, universityID string, filter models.PassFilter) ([]models.Pass, error) {
	conditions := []string{"university_id = $1", "status = $2"}
	args := []interface{}{universityID, models.PassStatusActive}
	conditions, args = passFilterConditions(filter, conditions, args)

	query := fmt.Sprintf(`SELECT %s FROM passes WHERE %s ORDER BY career_id ASC, unique_identifier ASC`, passColumns, strings.Join(conditions, " AND "))
	var passes []models.Pass
	if err := r.db.SelectContext(ctx, &passes, query, args...); err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	return passes, nil
}

// UpdateDue applies payment updates in one transaction. It fails with
// sql.ErrNoRows when any key does not exist.
func (r *PassRepository) UpdateDue(ctx context.Context, universityID string, items []models.UpdateDueItem) error {
	const query = `UPDATE passes SET payment_reference = $4, payment_status = $5, total_to_pay = $6, start_due_date = $7,
		end_due_date = $8, online_payment_link = $9, cashback = $10, updated_at = $11
		WHERE university_id = $1 AND career_id = $2 AND unique_identifier = $3`
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, item := range items {
			res, err := tx.ExecContext(ctx, query, universityID, item.CareerID, item.UniqueIdentifier, item.PaymentReference,
				item.PaymentStatus, item.TotalToPay, item.StartDueDate, item.EndDueDate, item.OnlinePaymentLink, item.Cashback, now)
			if err != nil {
				return fmt.Errorf("update due for %s: %w", item.UniqueIdentifier, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("update due rows affected: %w", err)
			}
			if affected == 0 {
				return sql.ErrNoRows
			}
		}
		return nil
	})
}

// Deactivate marks a pass inactive.
func (r *PassRepository) Deactivate(ctx context.Context, universityID string, key models.PassKey) error {
	const query = `UPDATE passes SET status = $4, updated_at = $5 WHERE university_id = $1 AND career_id = $2 AND unique_identifier = $3`
	res, err := r.db.ExecContext(ctx, query, universityID, key.CareerID, key.UniqueIdentifier, models.PassStatusInactive, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate pass: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAppleSerial links an Apple serial number to a pass.
func (r *PassRepository) SetAppleSerial(ctx context.Context, passID, serial string) error {
	const query = `UPDATE passes SET apple_wallet_serial_number = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, passID, serial, time.Now().UTC()); err != nil {
		return fmt.Errorf("set apple serial: %w", err)
	}
	return nil
}

// SetGoogleObjectID links a Google Wallet object to a pass.
func (r *PassRepository) SetGoogleObjectID(ctx context.Context, passID, objectID string) error {
	const query = `UPDATE passes SET google_wallet_object_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, passID, objectID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set google object id: %w", err)
	}
	return nil
}

// MarkInstalled moves the platform's installation status from Pending to
// Installed. It reports false when the status was already Installed.
func (r *PassRepository) MarkInstalled(ctx context.Context, passID string, platform models.WalletPlatform) (bool, error) {
	column := "google_installation_status"
	if platform == models.PlatformApple {
		column = "apple_installation_status"
	}
	query := fmt.Sprintf(`UPDATE passes SET %s = $2, updated_at = $3 WHERE id = $1 AND %s = $4`, column, column)
	res, err := r.db.ExecContext(ctx, query, passID, models.InstallationInstalled, time.Now().UTC(), models.InstallationPending)
	if err != nil {
		return false, fmt.Errorf("mark installed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark installed rows affected: %w", err)
	}
	return affected > 0, nil
}

// IncrementNotification bumps the notification counter of a pass. The last
// notification date only moves forward, whatever order concurrent sends
// commit in.
func (r *PassRepository) IncrementNotification(ctx context.Context, passID string, at time.Time) error {
	const query = `UPDATE passes SET notification_count = notification_count + 1,
		last_notification_date = GREATEST(COALESCE(last_notification_date, $2), $2) WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, passID, at); err != nil {
		return fmt.Errorf("increment notification: %w", err)
	}
	return nil
}

// Summary aggregates pass counters for a university. Payment and
// installation counters only consider active passes.
func (r *PassRepository) Summary(ctx context.Context, universityID string) (*models.PassSummary, error) {
	const query = `SELECT
	COUNT(*) AS total_passes,
	COUNT(*) FILTER (WHERE status = 'Active') AS active_passes,
	COUNT(*) FILTER (WHERE status = 'Inactive') AS inactive_passes,
	COUNT(*) FILTER (WHERE status = 'Active' AND payment_status = 'Due') AS payment_due,
	COUNT(*) FILTER (WHERE status = 'Active' AND payment_status = 'Overdue') AS payment_overdue,
	COUNT(*) FILTER (WHERE status = 'Active' AND payment_status = 'Paid') AS payment_paid,
	COALESCE(SUM(total_to_pay) FILTER (WHERE status = 'Active' AND payment_status <> 'Paid'), 0) AS outstanding_amount,
	COUNT(*) FILTER (WHERE status = 'Active' AND apple_installation_status = 'Installed') AS apple_installed,
	COUNT(*) FILTER (WHERE status = 'Active' AND google_installation_status = 'Installed') AS google_installed,
	COALESCE(SUM(notification_count), 0) AS notifications_sent
FROM passes WHERE university_id = $1`
	var summary models.PassSummary
	if err := r.db.GetContext(ctx, &summary, query, universityID); err != nil {
		return nil, fmt.Errorf("pass summary: %w", err)
	}
	summary.UniversityID = universityID
	return &summary, nil
}
