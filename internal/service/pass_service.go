package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unipass-api/internal/models"
	"github.com/noah-isme/unipass-api/internal/passquery"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/export"
	applog "github.com/noah-isme/unipass-api/pkg/logger"
	"github.com/noah-isme/unipass-api/pkg/validation"
)

type passRepository interface {
	Create(ctx context.Context, pass *models.Pass) error
	CreateMany(ctx context.Context, passes []models.Pass) error
	FindByKey(ctx context.Context, universityID string, key models.PassKey) (*models.Pass, error)
	ExistingKeys(ctx context.Context, universityID string, keys []models.PassKey) (map[models.PassKey]bool, error)
	List(ctx context.Context, filter models.PassListFilter) ([]models.Pass, int, error)
	Query(ctx context.Context, universityID string, filter models.PassFilter) ([]models.Pass, error)
	UpdateDue(ctx context.Context, universityID string, items []models.UpdateDueItem) error
	Deactivate(ctx context.Context, universityID string, key models.PassKey) error
	MarkInstalled(ctx context.Context, passID string, platform models.WalletPlatform) (bool, error)
}

type careerLookup interface {
	Exists(ctx context.Context, universityID, code string) (bool, error)
}

type tagValueReader interface {
	ListValuesByTags(ctx context.Context, universityID string, tagIDs []string) (map[string]map[string]models.TagValue, error)
}

type passCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// PassUpdateListener is told about passes whose payment data changed so the
// wallet copies can be refreshed.
type PassUpdateListener interface {
	PassesUpdated(ctx context.Context, universityID string, keys []models.PassKey)
}

// PassServiceConfig tunes query caching.
type PassServiceConfig struct {
	QueryCacheTTL time.Duration
}

// PassService implements pass enrollment, payment updates and filtering.
type PassService struct {
	repo      passRepository
	careers   careerLookup
	tags      tagValueReader
	cache     passCache
	validator *validator.Validate
	logger    *zap.Logger
	config    PassServiceConfig
	listener  PassUpdateListener
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	xlsx      *export.XLSXExporter
}

// NewPassService constructs the pass service. cache may be nil.
func NewPassService(repo passRepository, careers careerLookup, tags tagValueReader, cache passCache, validate *validator.Validate, logger *zap.Logger, cfg PassServiceConfig) *PassService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueryCacheTTL <= 0 {
		cfg.QueryCacheTTL = 5 * time.Minute
	}
	return &PassService{
		repo:      repo,
		careers:   careers,
		tags:      tags,
		cache:     cache,
		validator: validate,
		logger:    logger,
		config:    cfg,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		xlsx:      export.NewXLSXExporter(),
	}
}

// SetUpdateListener registers the receiver of payment update events.
func (s *PassService) SetUpdateListener(listener PassUpdateListener) {
	s.listener = listener
}

// Create enrolls a single pass.
func (s *PassService) Create(ctx context.Context, universityID string, req models.CreatePassRequest) (*models.Pass, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}
	if err := s.ensureCareer(ctx, universityID, req.CareerID); err != nil {
		return nil, err
	}
	key := models.PassKey{UniqueIdentifier: req.UniqueIdentifier, CareerID: req.CareerID}
	existing, err := s.repo.ExistingKeys(ctx, universityID, []models.PassKey{key})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate pass key")
	}
	if existing[key] {
		return nil, appErrors.Clone(appErrors.ErrConflict, "pass already exists for this career and identifier")
	}

	pass := passFromRequest(universityID, req)
	if err := s.repo.Create(ctx, &pass); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create pass")
	}
	s.invalidate(ctx, universityID)
	return &pass, nil
}

// List returns a page of passes.
func (s *PassService) List(ctx context.Context, filter models.PassListFilter) ([]models.Pass, *models.Pagination, error) {
	filter.Normalize()
	passes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list passes")
	}
	return passes, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one pass by composite key.
func (s *PassService) Get(ctx context.Context, universityID string, key models.PassKey) (*models.Pass, error) {
	pass, err := s.repo.FindByKey(ctx, universityID, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pass not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pass")
	}
	return pass, nil
}

// Import enrolls the rows of an XLSX workbook. Invalid rows are reported,
// rows whose key already exists are skipped, the rest are created together.
func (s *PassService) Import(ctx context.Context, universityID string, r io.Reader) (*models.ImportResult, error) {
	data, err := export.ReadXLSX(r)
	if err != nil {
		return nil, appErrors.Invalid(err, "invalid enrollment workbook")
	}

	result := &models.ImportResult{}
	careers := make(map[string]bool)
	seen := make(map[models.PassKey]int)
	var pending []models.Pass
	var keys []models.PassKey
	for i, row := range data.Rows {
		rowNumber := i + 2
		req, err := passRequestFromRow(row)
		if err == nil {
			err = s.validateCreate(req)
		}
		if err != nil {
			result.Errors = append(result.Errors, models.ImportRowError{Row: rowNumber, Message: err.Error()})
			continue
		}
		known, ok := careers[req.CareerID]
		if !ok {
			if known, err = s.careers.Exists(ctx, universityID, req.CareerID); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate career")
			}
			careers[req.CareerID] = known
		}
		if !known {
			result.Errors = append(result.Errors, models.ImportRowError{Row: rowNumber, Message: fmt.Sprintf("unknown career %q", req.CareerID)})
			continue
		}
		key := models.PassKey{UniqueIdentifier: req.UniqueIdentifier, CareerID: req.CareerID}
		if first, dup := seen[key]; dup {
			result.Errors = append(result.Errors, models.ImportRowError{Row: rowNumber, Message: fmt.Sprintf("duplicate of row %d", first)})
			continue
		}
		seen[key] = rowNumber
		keys = append(keys, key)
		pending = append(pending, passFromRequest(universityID, req))
	}

	existing, err := s.repo.ExistingKeys(ctx, universityID, keys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate pass keys")
	}
	toCreate := pending[:0]
	for _, pass := range pending {
		if existing[pass.Key()] {
			result.Skipped++
			continue
		}
		toCreate = append(toCreate, pass)
	}
	if len(toCreate) > 0 {
		if err := s.repo.CreateMany(ctx, toCreate); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import passes")
		}
		s.invalidate(ctx, universityID)
	}
	result.Created = len(toCreate)
	applog.For(ctx, s.logger).Info("passes imported",
		zap.String("university_id", universityID),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// UpdateDue applies a batch of payment updates. Duplicate keys reject the
// whole batch before anything is written.
func (s *PassService) UpdateDue(ctx context.Context, universityID string, req models.UpdateDueRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid update due payload")
	}
	var fields appErrors.FieldErrors
	for i, item := range req.Items {
		checkDates(&fields, fmt.Sprintf("items[%d].", i), item.StartDueDate, item.EndDueDate)
	}
	if err := fields.OrNil(); err != nil {
		return err
	}

	firstSeen := make(map[models.PassKey]int, len(req.Items))
	keys := make([]models.PassKey, 0, len(req.Items))
	for i, item := range req.Items {
		if first, ok := firstSeen[item.PassKey]; ok {
			return appErrors.Clone(appErrors.ErrDuplicateKey, fmt.Sprintf(
				"duplicate key careerId=%s uniqueIdentifier=%s at items[%d], first at items[%d]",
				item.CareerID, item.UniqueIdentifier, i, first))
		}
		firstSeen[item.PassKey] = i
		keys = append(keys, item.PassKey)
	}

	if err := s.repo.UpdateDue(ctx, universityID, req.Items); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "one or more passes not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update due")
	}
	s.invalidate(ctx, universityID)
	if s.listener != nil {
		s.listener.PassesUpdated(ctx, universityID, keys)
	}
	return nil
}

// Deactivate flips a pass to Inactive; passes are never deleted.
func (s *PassService) Deactivate(ctx context.Context, universityID string, key models.PassKey) error {
	if err := s.repo.Deactivate(ctx, universityID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "pass not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate pass")
	}
	s.invalidate(ctx, universityID)
	return nil
}

// MarkInstalled records that the pass was added to a wallet. It reports
// whether the status changed.
func (s *PassService) MarkInstalled(ctx context.Context, universityID string, key models.PassKey, req models.MarkInstalledRequest) (bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return false, appErrors.Invalid(err, "invalid platform")
	}
	pass, err := s.Get(ctx, universityID, key)
	if err != nil {
		return false, err
	}
	changed, err := s.repo.MarkInstalled(ctx, pass.ID, req.Platform)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update installation status")
	}
	if changed {
		s.invalidate(ctx, universityID)
	}
	return changed, nil
}

// Query returns a page of active passes matching the filter and whether it
// was served from cache.
func (s *PassService) Query(ctx context.Context, universityID string, req models.QueryPassesRequest) ([]models.Pass, *models.Pagination, bool, error) {
	req.Normalize()
	if fields := passquery.Validate(req.Filter); fields != nil {
		return nil, nil, false, fields
	}

	cacheKey, err := queryCacheKey(universityID, req)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build cache key")
	}
	var cached queryPage
	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return cached.Passes, &cached.Pagination, true, nil
		}
	}

	matches, err := s.resolve(ctx, universityID, req.Filter)
	if err != nil {
		return nil, nil, false, err
	}
	start := (req.Page - 1) * req.PageSize
	if start > len(matches) {
		start = len(matches)
	}
	end := start + req.PageSize
	if end > len(matches) {
		end = len(matches)
	}
	page := queryPage{
		Passes:     matches[start:end],
		Pagination: models.Pagination{Page: req.Page, PageSize: req.PageSize, TotalCount: len(matches)},
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, page, s.config.QueryCacheTTL)
	}
	return page.Passes, &page.Pagination, false, nil
}

// Resolve returns every active pass matching the filter.
func (s *PassService) Resolve(ctx context.Context, universityID string, filter models.PassFilter) ([]models.Pass, error) {
	if fields := passquery.Validate(filter); fields != nil {
		return nil, fields
	}
	return s.resolve(ctx, universityID, filter)
}

func (s *PassService) resolve(ctx context.Context, universityID string, filter models.PassFilter) ([]models.Pass, error) {
	candidates, err := s.repo.Query(ctx, universityID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query passes")
	}
	values := map[string]map[string]models.TagValue{}
	if filter.HasTagClauses() {
		values, err = s.tags.ListValuesByTags(ctx, universityID, filterTagIDs(filter))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tag values")
		}
	}
	matches := make([]models.Pass, 0, len(candidates))
	for _, pass := range candidates {
		if passquery.Matches(pass, values[models.TagValueKey(pass.CareerID, pass.UniqueIdentifier)], filter) {
			matches = append(matches, pass)
		}
	}
	return matches, nil
}

var rosterHeaders = []string{"careerId", "uniqueIdentifier", "name", "email", "city", "semester", "enrollmentYear",
	"paymentReference", "paymentStatus", "totalToPay", "startDueDate", "endDueDate", "graduated", "currentlyStudying",
	"cashback", "studentStatus", "appleInstallationStatus", "googleInstallationStatus", "notificationCount"}

// Export renders the passes matching filter as a downloadable roster.
func (s *PassService) Export(ctx context.Context, universityID string, filter models.PassFilter, format models.ExportFormat) ([]byte, string, string, error) {
	passes, err := s.Resolve(ctx, universityID, filter)
	if err != nil {
		return nil, "", "", err
	}
	data := export.Dataset{Headers: rosterHeaders, Rows: make([]map[string]string, len(passes))}
	for i, pass := range passes {
		data.Rows[i] = rosterRow(pass)
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	var (
		out         []byte
		contentType string
	)
	switch format {
	case models.ExportFormatCSV, "":
		format = models.ExportFormatCSV
		out, err = s.csv.Render(data)
		contentType = "text/csv"
	case models.ExportFormatPDF:
		out, err = s.pdf.Render(data, "Passes "+stamp)
		contentType = "application/pdf"
	case models.ExportFormatXLSX:
		out, err = s.xlsx.Render(data, "Passes")
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return out, fmt.Sprintf("passes-%s.%s", stamp, format), contentType, nil
}

type queryPage struct {
	Passes     []models.Pass     `json:"passes"`
	Pagination models.Pagination `json:"pagination"`
}

func queryCacheKey(universityID string, req models.QueryPassesRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("passes:query:%s:%s", universityID, hex.EncodeToString(sum[:])), nil
}

// passQueryPattern matches every cached query page and the dashboard
// summary of a university.
func passQueryPattern(universityID string) string {
	return fmt.Sprintf("passes:query:%s:*", universityID)
}

func (s *PassService) invalidate(ctx context.Context, universityID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, passQueryPattern(universityID)); err != nil {
		s.logger.Warn("failed to invalidate pass query cache", zap.String("university_id", universityID), zap.Error(err))
	}
}

func (s *PassService) validateCreate(req models.CreatePassRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid pass payload")
	}
	var fields appErrors.FieldErrors
	checkDates(&fields, "", req.StartDueDate, req.EndDueDate)
	return fields.OrNil()
}

func (s *PassService) ensureCareer(ctx context.Context, universityID, careerID string) error {
	exists, err := s.careers.Exists(ctx, universityID, careerID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate career")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "career not found")
	}
	return nil
}

func checkDates(fields *appErrors.FieldErrors, prefix string, start, end models.Date) {
	if start.IsZero() {
		fields.Add(prefix+"startDueDate", "is required")
	}
	if end.IsZero() {
		fields.Add(prefix+"endDueDate", "is required")
	}
}

func filterTagIDs(filter models.PassFilter) []string {
	set := make(map[string]struct{})
	for _, c := range filter.GenericNumericTag {
		set[c.TagID] = struct{}{}
	}
	for _, c := range filter.GenericDateTag {
		set[c.TagID] = struct{}{}
	}
	for _, c := range filter.GenericBooleanTag {
		set[c.TagID] = struct{}{}
	}
	for _, c := range filter.GenericListTag {
		set[c.TagID] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func passFromRequest(universityID string, req models.CreatePassRequest) models.Pass {
	status := req.StudentStatus
	if status == "" {
		status = models.StudentStatusActive
	}
	return models.Pass{
		UniversityID:         universityID,
		UniqueIdentifier:     req.UniqueIdentifier,
		CareerID:             req.CareerID,
		Name:                 req.Name,
		Email:                req.Email,
		City:                 req.City,
		Semester:             req.Semester,
		EnrollmentYear:       req.EnrollmentYear,
		PaymentReference:     req.PaymentReference,
		PaymentStatus:        req.PaymentStatus,
		TotalToPay:           req.TotalToPay,
		StartDueDate:         req.StartDueDate,
		EndDueDate:           req.EndDueDate,
		OnlinePaymentLink:    req.OnlinePaymentLink,
		AcademicCalendarLink: req.AcademicCalendarLink,
		Graduated:            req.Graduated,
		CurrentlyStudying:    req.CurrentlyStudying,
		Cashback:             req.Cashback,
		StudentStatus:        status,
	}
}

// passRequestFromRow maps a workbook row whose headers follow the JSON field names.
func passRequestFromRow(row map[string]string) (models.CreatePassRequest, error) {
	var (
		req  models.CreatePassRequest
		errs []string
	)
	atoi := func(field string) int {
		if row[field] == "" {
			return 0
		}
		n, err := strconv.Atoi(row[field])
		if err != nil {
			errs = append(errs, field+" must be an integer")
		}
		return n
	}
	atof := func(field string) float64 {
		if row[field] == "" {
			return 0
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(row[field], ",", ""), 64)
		if err != nil {
			errs = append(errs, field+" must be a number")
		}
		return n
	}
	date := func(field string) models.Date {
		if row[field] == "" {
			return models.Date{}
		}
		d, err := models.ParseDate(row[field])
		if err != nil {
			errs = append(errs, field+" must be a date")
		}
		return d
	}
	optional := func(field string) *string {
		if row[field] == "" {
			return nil
		}
		v := row[field]
		return &v
	}

	req.UniqueIdentifier = row["uniqueIdentifier"]
	req.Name = row["name"]
	req.Email = row["email"]
	req.City = row["city"]
	req.CareerID = row["careerId"]
	req.Semester = atoi("semester")
	req.EnrollmentYear = atoi("enrollmentYear")
	req.PaymentReference = row["paymentReference"]
	req.PaymentStatus = models.PaymentStatus(row["paymentStatus"])
	req.TotalToPay = atof("totalToPay")
	req.StartDueDate = date("startDueDate")
	req.EndDueDate = date("endDueDate")
	req.OnlinePaymentLink = optional("onlinePaymentLink")
	req.AcademicCalendarLink = optional("academicCalendarLink")
	req.Graduated = parseBool(row["graduated"])
	req.CurrentlyStudying = parseBool(row["currentlyStudying"])
	req.Cashback = atof("cashback")
	req.StudentStatus = models.StudentStatus(row["studentStatus"])

	if len(errs) > 0 {
		return req, errors.New(strings.Join(errs, "; "))
	}
	return req, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "si", "sí", "x":
		return true
	}
	return false
}

func rosterRow(p models.Pass) map[string]string {
	return map[string]string{
		"careerId":                 p.CareerID,
		"uniqueIdentifier":         p.UniqueIdentifier,
		"name":                     p.Name,
		"email":                    p.Email,
		"city":                     p.City,
		"semester":                 strconv.Itoa(p.Semester),
		"enrollmentYear":           strconv.Itoa(p.EnrollmentYear),
		"paymentReference":         p.PaymentReference,
		"paymentStatus":            string(p.PaymentStatus),
		"totalToPay":               strconv.FormatFloat(p.TotalToPay, 'f', 2, 64),
		"startDueDate":             p.StartDueDate.String(),
		"endDueDate":               p.EndDueDate.String(),
		"graduated":                strconv.FormatBool(p.Graduated),
		"currentlyStudying":        strconv.FormatBool(p.CurrentlyStudying),
		"cashback":                 strconv.FormatFloat(p.Cashback, 'f', 2, 64),
		"studentStatus":            string(p.StudentStatus),
		"appleInstallationStatus":  string(p.AppleInstallationStatus),
		"googleInstallationStatus": string(p.GoogleInstallationStatus),
		"notificationCount":        strconv.Itoa(p.NotificationCount),
	}
}
