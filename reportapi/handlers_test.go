package reportapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/bizcheckau/reports_backend/alares"
	"github.com/bizcheckau/reports_backend/ingest"
	"github.com/bizcheckau/reports_backend/middlewares"
	"github.com/bizcheckau/reports_backend/models"
	"github.com/bizcheckau/reports_backend/testdb"
	"github.com/bizcheckau/reports_backend/utils"
	"github.com/bizcheckau/reports_backend/workflow"
	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type fakeCreator struct {
	inputs    []workflow.CreateReportInput
	result    *workflow.CreateReportResult
	err       error
	reingests []uint
}

func (f *fakeCreator) CreateReport(_ context.Context, input workflow.CreateReportInput) (*workflow.CreateReportResult, error) {
	f.inputs = append(f.inputs, input)
	return f.result, f.err
}

func (f *fakeCreator) Reingest(_ context.Context, reportId uint) (*ingest.Outcome, error) {
	f.reingests = append(f.reingests, reportId)
	return &ingest.Outcome{Skipped: true, SkipReason: ingest.SkipAlreadyIngested, Status: models.IngestionStatusSkipped}, nil
}

type apiFixture struct {
	router  *gin.Engine
	db      *gorm.DB
	creator *fakeCreator
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	t.Setenv("API_SECRET", "reports-test-secret")
	gin.SetMode(gin.TestMode)
	db := testdb.Open(t)
	logger, _ := logtest.NewNullLogger()
	creator := &fakeCreator{result: &workflow.CreateReportResult{Success: true, ReportId: 1, Uuid: "u-1", Status: "completed", Type: "ASIC Current"}}
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware(), middlewares.AuthMiddleware())
	(&Handler{DB: db, Reports: creator, Logger: logger}).Register(r)
	return &apiFixture{router: r, db: db, creator: creator}
}

func bearer(t *testing.T, userId uint, role string) string {
	t.Helper()
	token, err := utils.JwtGenerate(userId, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func (fx *apiFixture) do(method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func seedIngestedReport(t *testing.T, db *gorm.DB, ownerId uint) *models.Report {
	t.Helper()
	report := &models.Report{Abn: "51824753556", Category: "ASIC", Uuid: "u-1", UserId: ownerId}
	require.NoError(t, db.Create(report).Error)
	name := "ACME PTY LTD"
	require.NoError(t, db.Create(&models.Entity{ReportId: report.ID, Name: &name, FormerNames: []byte(`[]`)}).Error)
	extract := &models.AsicExtract{ReportId: report.ID, Uid: "ext-1"}
	require.NoError(t, db.Create(extract).Error)
	jane, suburb, role := "Jane Doe", "Sydney", "Director"
	require.NoError(t, db.Create(&models.Director{AsicExtractId: extract.ID, Type: models.OfficeholderTypeDirector, Name: &jane}).Error)
	require.NoError(t, db.Create(&models.Address{AsicExtractId: extract.ID, Category: models.AddressCategoryDirector, Entity: &role, Suburb: &suburb}).Error)
	_, err := models.LinkReport(context.Background(), db, ownerId, nil, report.ID, "ACME")
	require.NoError(t, err)
	return report
}

func TestHealthz(t *testing.T) {
	fx := newAPI(t)
	w := fx.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateReportHandler(t *testing.T) {
	fx := newAPI(t)

	w := fx.do(http.MethodPost, "/api/reports", "", map[string]string{"abn": "1", "type": "asic"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = fx.do(http.MethodPost, "/api/reports", bearer(t, 7, "user"), map[string]string{"type": "asic"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":{"Abn":"required"}}`, w.Body.String())

	w = fx.do(http.MethodPost, "/api/reports", bearer(t, 7, "user"), map[string]interface{}{"abn": "51824753556", "type": "asic-current", "matterId": 3, "paymentRef": "pi_1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"reportId":1,"uuid":"u-1","status":"completed","fromCache":false,"type":"ASIC Current"}`, w.Body.String())

	require.Len(t, fx.creator.inputs, 1)
	in := fx.creator.inputs[0]
	require.Equal(t, uint(7), in.UserId)
	require.Equal(t, uint(3), *in.MatterId)
	require.Equal(t, "pi_1", in.PaymentRef)
}

func TestCreateReportHandlerMapsErrors(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantCode  int
		retryable interface{}
	}{
		{"unsupported type", workflow.ErrUnsupportedType, http.StatusBadRequest, nil},
		{"foreign matter", models.ErrMatterNotOwned, http.StatusForbidden, nil},
		{"in progress", workflow.ErrIdempotencyInProgress, http.StatusConflict, nil},
		{"timeout", workflow.ErrReportTimeout, http.StatusGatewayTimeout, true},
		{"upstream 502", &alares.FetchError{Upstream: "alares", StatusCode: 502, Message: "bad gateway"}, http.StatusBadGateway, true},
		{"upstream 400", &alares.FetchError{Upstream: "alares", StatusCode: 400, Message: "bad abn"}, http.StatusBadGateway, false},
		{"unexpected", context.Canceled, http.StatusInternalServerError, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newAPI(t)
			fx.creator.err = tc.err
			w := fx.do(http.MethodPost, "/api/reports", bearer(t, 7, "user"), map[string]string{"abn": "51824753556", "type": "asic"})
			require.Equal(t, tc.wantCode, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, false, body["success"])
			require.Equal(t, tc.retryable, body["retryable"])
		})
	}
}

func TestGetReportChecksOwnership(t *testing.T) {
	fx := newAPI(t)
	report := seedIngestedReport(t, fx.db, 7)
	path := "/api/reports/" + utoa(report.ID)

	w := fx.do(http.MethodGet, path, bearer(t, 7, "user"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "ACME PTY LTD", *got.Entity.Name)
	require.Len(t, got.AsicExtracts, 1)
	require.Len(t, got.AsicExtracts[0].Directors, 1)
	require.Equal(t, models.AddressCategoryDirector, got.AsicExtracts[0].Addresses[0].Category)

	w = fx.do(http.MethodGet, path, bearer(t, 8, "user"), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = fx.do(http.MethodGet, path, bearer(t, 99, utils.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = fx.do(http.MethodGet, "/api/reports/abc", bearer(t, 7, "user"), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportReport(t *testing.T) {
	fx := newAPI(t)
	report := seedIngestedReport(t, fx.db, 7)

	w := fx.do(http.MethodGet, "/api/reports/"+utoa(report.ID)+"/export", bearer(t, 7, "user"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	require.Contains(t, f.GetSheetList(), "Summary")
	require.Contains(t, f.GetSheetList(), "Officeholders")

	name, err := f.GetCellValue("Officeholders", "C2")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", name)
	suburb, err := f.GetCellValue("Addresses", "F2")
	require.NoError(t, err)
	require.Equal(t, "Sydney", suburb)
}

func TestMattersAndUserReports(t *testing.T) {
	fx := newAPI(t)
	auth := bearer(t, 7, "user")

	w := fx.do(http.MethodPost, "/api/matters", auth, map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = fx.do(http.MethodPost, "/api/matters", auth, map[string]string{"name": "Acquisition"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = fx.do(http.MethodGet, "/api/matters", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var matters struct {
		Data []models.Matter `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matters))
	require.Len(t, matters.Data, 1)
	require.Equal(t, "Acquisition", matters.Data[0].Name)

	seedIngestedReport(t, fx.db, 7)
	w = fx.do(http.MethodGet, "/api/user-reports", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var links struct {
		Data []models.UserReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
	require.Len(t, links.Data, 1)
	require.Equal(t, "ACME", links.Data[0].DisplayName)

	w = fx.do(http.MethodGet, "/api/user-reports?matterId=x", auth, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReingestRequiresAdmin(t *testing.T) {
	fx := newAPI(t)

	w := fx.do(http.MethodPost, "/internal/ops/reports/5/reingest", bearer(t, 7, "user"), nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, fx.creator.reingests)

	w = fx.do(http.MethodPost, "/internal/ops/reports/5/reingest", bearer(t, 1, utils.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []uint{5}, fx.creator.reingests)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, true, body["skipped"])
	require.Equal(t, ingest.SkipAlreadyIngested, body["skipReason"])

	w = fx.do(http.MethodGet, "/internal/ops/reports/5/ingestion-runs", bearer(t, 1, utils.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func utoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
