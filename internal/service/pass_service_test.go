package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
)

type fakePassRepo struct {
	passes      []models.Pass
	existing    map[models.PassKey]bool
	created     []models.Pass
	updateCalls int
	updateErr   error
	queryCalls  int
	installed   map[string]bool
}

func (f *fakePassRepo) Create(_ context.Context, pass *models.Pass) error {
	pass.ID = "new-id"
	f.created = append(f.created, *pass)
	return nil
}

func (f *fakePassRepo) CreateMany(_ context.Context, passes []models.Pass) error {
	f.created = append(f.created, passes...)
	return nil
}

func (f *fakePassRepo) FindByKey(_ context.Context, universityID string, key models.PassKey) (*models.Pass, error) {
	for _, p := range f.passes {
		if p.UniversityID == universityID && p.Key() == key {
			clone := p
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePassRepo) ExistingKeys(_ context.Context, _ string, keys []models.PassKey) (map[models.PassKey]bool, error) {
	out := map[models.PassKey]bool{}
	for _, k := range keys {
		if f.existing[k] {
			out[k] = true
		}
	}
	return out, nil
}

func (f *fakePassRepo) List(_ context.Context, _ models.PassListFilter) ([]models.Pass, int, error) {
	return f.passes, len(f.passes), nil
}

func (f *fakePassRepo) Query(_ context.Context, _ string, _ models.PassFilter) ([]models.Pass, error) {
	f.queryCalls++
	return f.passes, nil
}

func (f *fakePassRepo) UpdateDue(_ context.Context, _ string, _ []models.UpdateDueItem) error {
	f.updateCalls++
	return f.updateErr
}

func (f *fakePassRepo) Deactivate(_ context.Context, _ string, key models.PassKey) error {
	for _, p := range f.passes {
		if p.Key() == key {
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakePassRepo) MarkInstalled(_ context.Context, passID string, platform models.WalletPlatform) (bool, error) {
	if f.installed == nil {
		f.installed = map[string]bool{}
	}
	k := passID + string(platform)
	if f.installed[k] {
		return false, nil
	}
	f.installed[k] = true
	return true, nil
}

type fakeCareerLookup map[string]bool

func (f fakeCareerLookup) Exists(_ context.Context, _, code string) (bool, error) {
	return f[code], nil
}

type fakeTagValues map[string]map[string]models.TagValue

func (f fakeTagValues) ListValuesByTags(context.Context, string, []string) (map[string]map[string]models.TagValue, error) {
	return f, nil
}

type memoryCache struct {
	entries     map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

type recordingListener struct {
	keys []models.PassKey
}

func (r *recordingListener) PassesUpdated(_ context.Context, _ string, keys []models.PassKey) {
	r.keys = append(r.keys, keys...)
}

func validCreatePassRequest() models.CreatePassRequest {
	return models.CreatePassRequest{
		UniqueIdentifier: "A001",
		Name:             "Ana Perez",
		Email:            "ana@example.edu",
		CareerID:         "SIS",
		Semester:         3,
		EnrollmentYear:   2022,
		PaymentReference: "REF-1",
		PaymentStatus:    models.PaymentStatusDue,
		TotalToPay:       1000,
		StartDueDate:     models.NewDate(2024, time.January, 1),
		EndDueDate:       models.NewDate(2024, time.January, 31),
	}
}

func updateItem(id string) models.UpdateDueItem {
	return models.UpdateDueItem{
		PassKey:          models.PassKey{UniqueIdentifier: id, CareerID: "SIS"},
		PaymentReference: "REF-" + id,
		PaymentStatus:    models.PaymentStatusPaid,
		StartDueDate:     models.NewDate(2024, time.February, 1),
		EndDueDate:       models.NewDate(2024, time.February, 28),
	}
}

func queryPasses() []models.Pass {
	a := walletTestPass()
	a.ID, a.UniqueIdentifier, a.Semester = "a", "A001", 2
	b := walletTestPass()
	b.ID, b.UniqueIdentifier, b.Semester = "b", "A002", 5
	c := walletTestPass()
	c.ID, c.UniqueIdentifier, c.Semester = "c", "A003", 8
	return []models.Pass{a, b, c}
}

func newTestPassService(repo *fakePassRepo, cache passCache, tags fakeTagValues) *PassService {
	return NewPassService(repo, fakeCareerLookup{"SIS": true}, tags, cache, nil, nil, PassServiceConfig{})
}

func TestPassServiceCreate(t *testing.T) {
	repo := &fakePassRepo{}
	cache := newMemoryCache()
	svc := newTestPassService(repo, cache, nil)

	pass, err := svc.Create(context.Background(), "uni-1", validCreatePassRequest())
	require.NoError(t, err)
	assert.Equal(t, "new-id", pass.ID)
	assert.Equal(t, models.StudentStatusActive, pass.StudentStatus)
	assert.Equal(t, []string{"passes:query:uni-1:*"}, cache.invalidated)
}

func TestPassServiceCreateConflictAndUnknownCareer(t *testing.T) {
	req := validCreatePassRequest()
	repo := &fakePassRepo{existing: map[models.PassKey]bool{{UniqueIdentifier: "A001", CareerID: "SIS"}: true}}
	svc := newTestPassService(repo, nil, nil)

	_, err := svc.Create(context.Background(), "uni-1", req)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	req.CareerID = "MED"
	_, err = svc.Create(context.Background(), "uni-1", req)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestPassServiceCreateRequiresDates(t *testing.T) {
	req := validCreatePassRequest()
	req.EndDueDate = models.Date{}
	svc := newTestPassService(&fakePassRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), "uni-1", req)
	var fields appErrors.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Len(t, fields, 1)
	assert.Equal(t, "endDueDate", fields[0].Path)
}

func TestPassServiceUpdateDueRejectsDuplicateKeysBeforeWriting(t *testing.T) {
	repo := &fakePassRepo{}
	listener := &recordingListener{}
	svc := newTestPassService(repo, nil, nil)
	svc.SetUpdateListener(listener)

	err := svc.UpdateDue(context.Background(), "uni-1", models.UpdateDueRequest{Items: []models.UpdateDueItem{
		updateItem("A001"), updateItem("A002"), updateItem("A001"),
	}})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrDuplicateKey.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "items[2]")
	assert.Contains(t, appErr.Message, "first at items[0]")
	assert.Zero(t, repo.updateCalls)
	assert.Empty(t, listener.keys)
}

func TestPassServiceUpdateDueNotifiesListener(t *testing.T) {
	repo := &fakePassRepo{}
	listener := &recordingListener{}
	svc := newTestPassService(repo, nil, nil)
	svc.SetUpdateListener(listener)

	err := svc.UpdateDue(context.Background(), "uni-1", models.UpdateDueRequest{Items: []models.UpdateDueItem{updateItem("A001"), updateItem("A002")}})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.updateCalls)
	assert.Len(t, listener.keys, 2)
}

func TestPassServiceUpdateDueMissingPass(t *testing.T) {
	repo := &fakePassRepo{updateErr: sql.ErrNoRows}
	listener := &recordingListener{}
	svc := newTestPassService(repo, nil, nil)
	svc.SetUpdateListener(listener)

	err := svc.UpdateDue(context.Background(), "uni-1", models.UpdateDueRequest{Items: []models.UpdateDueItem{updateItem("A001")}})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Empty(t, listener.keys)
}

func TestPassServiceQueryFiltersPaginatesAndCaches(t *testing.T) {
	repo := &fakePassRepo{passes: queryPasses()}
	cache := newMemoryCache()
	svc := newTestPassService(repo, cache, nil)
	four := 4.0
	req := models.QueryPassesRequest{
		Filter:   models.PassFilter{Semester: &models.ValueOrList{SingleValue: &four, Comparation: models.ComparationGreaterThan}},
		Page:     1,
		PageSize: 1,
	}

	passes, pagination, hit, err := svc.Query(context.Background(), "uni-1", req)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, passes, 1)
	assert.Equal(t, "b", passes[0].ID)
	assert.Equal(t, 2, pagination.TotalCount)

	passes, _, hit, err = svc.Query(context.Background(), "uni-1", req)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "b", passes[0].ID)
	assert.Equal(t, 1, repo.queryCalls)

	require.NoError(t, svc.Deactivate(context.Background(), "uni-1", models.PassKey{UniqueIdentifier: "A001", CareerID: "SIS"}))
	_, _, hit, err = svc.Query(context.Background(), "uni-1", req)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.queryCalls)
}

func TestPassServiceQueryUsesTagValues(t *testing.T) {
	repo := &fakePassRepo{passes: queryPasses()}
	yes := true
	tags := fakeTagValues{
		models.TagValueKey("SIS", "A003"): {"scholar": {TagID: "scholar", Type: models.TagTypeBoolean, Boolean: &yes}},
	}
	svc := newTestPassService(repo, nil, tags)

	passes, err := svc.Resolve(context.Background(), "uni-1", models.PassFilter{
		GenericBooleanTag: []models.BooleanTagFilter{{TagID: "scholar", Value: &yes}},
	})
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, "c", passes[0].ID)
}

func TestPassServiceQueryRejectsInvalidFilter(t *testing.T) {
	repo := &fakePassRepo{passes: queryPasses()}
	svc := newTestPassService(repo, nil, nil)

	_, _, _, err := svc.Query(context.Background(), "uni-1", models.QueryPassesRequest{
		Filter: models.PassFilter{CareerID: &models.CareerFilter{Comparation: "sometimes", Values: []string{"SIS"}}},
	})
	var fields appErrors.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Zero(t, repo.queryCalls)
}

func TestPassServiceMarkInstalledOnce(t *testing.T) {
	repo := &fakePassRepo{passes: queryPasses()}
	svc := newTestPassService(repo, nil, nil)
	key := models.PassKey{UniqueIdentifier: "A001", CareerID: "SIS"}

	changed, err := svc.MarkInstalled(context.Background(), "uni-1", key, models.MarkInstalledRequest{Platform: models.PlatformGoogle})
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = svc.MarkInstalled(context.Background(), "uni-1", key, models.MarkInstalledRequest{Platform: models.PlatformGoogle})
	require.NoError(t, err)
	assert.False(t, changed)
}

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestPassServiceImport(t *testing.T) {
	header := []interface{}{"uniqueIdentifier", "name", "careerId", "semester", "enrollmentYear", "paymentReference",
		"paymentStatus", "totalToPay", "startDueDate", "endDueDate", "graduated"}
	row := func(id, career, semester string) []interface{} {
		return []interface{}{id, "Student " + id, career, semester, "2022", "REF-" + id, "Due", "1,500", "2024-01-01", "2024-01-31", "no"}
	}
	workbook := buildWorkbook(t, [][]interface{}{
		header,
		row("A001", "SIS", "3"),
		row("A002", "SIS", "x"),
		row("A003", "MED", "3"),
		row("A001", "SIS", "4"),
		row("A004", "SIS", "1"),
	})
	repo := &fakePassRepo{existing: map[models.PassKey]bool{{UniqueIdentifier: "A004", CareerID: "SIS"}: true}}
	svc := newTestPassService(repo, nil, nil)

	result, err := svc.Import(context.Background(), "uni-1", workbook)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Message, "semester")
	assert.Contains(t, result.Errors[1].Message, "unknown career")
	assert.Contains(t, result.Errors[2].Message, "duplicate of row 2")
	require.Len(t, repo.created, 1)
	assert.Equal(t, 1500.0, repo.created[0].TotalToPay)
}

func TestPassServiceExportFormats(t *testing.T) {
	repo := &fakePassRepo{passes: queryPasses()}
	svc := newTestPassService(repo, nil, nil)

	data, filename, contentType, err := svc.Export(context.Background(), "uni-1", models.PassFilter{}, models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.True(t, strings.HasSuffix(filename, ".csv"))
	assert.Contains(t, string(data), "A002")

	_, filename, _, err = svc.Export(context.Background(), "uni-1", models.PassFilter{}, models.ExportFormatXLSX)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))

	_, _, _, err = svc.Export(context.Background(), "uni-1", models.PassFilter{}, "doc")
	require.Error(t, err)
}
