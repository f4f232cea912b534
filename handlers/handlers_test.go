package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	stdimage "image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecopoints/database"
	"ecopoints/middleware"
	"ecopoints/models"
	"ecopoints/service"
	"ecopoints/session"
	"ecopoints/verifier"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	created    = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)
	userCols   = []string{"id", "email", "name", "phone", "avatar", "created_at", "updated_at"}
	reportCols = []string{"id", "user_id", "location", "waste_type", "amount", "image_url", "verification_result", "status", "collector_id", "created_at"}
	rewardCols = []string{"id", "user_id", "name", "collection_info", "description", "points", "level", "is_available", "created_at", "updated_at"}
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router   *gin.Engine
	mock     sqlmock.Sqlmock
	sessions *session.Manager
}

func newTestServer(t *testing.T, pinger Pinger, opts ...service.Option) *testServer {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sessions := session.NewManager("test-secret", time.Hour)
	svc := service.New(database.New(db), opts...)
	h := NewHandlers(svc, sessions, nil, pinger)
	return &testServer{
		router:   NewRouter(h, middleware.NewRateLimiter(60, 5)),
		mock:     mock,
		sessions: sessions,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, userID int64) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID > 0 {
		token, err := s.sessions.Issue(userID, "ann@example.com")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	w := s.do(t, http.MethodGet, "/health", "", 0)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	s = newTestServer(t, fakePinger{err: errors.New("connection refused")})
	w = s.do(t, http.MethodGet, "/health", "", 0)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVersion(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/version", "", 0)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"service":"ecopoints"`)
}

func TestCreateSession(t *testing.T) {
	s := newTestServer(t, nil)
	s.mock.ExpectQuery("SELECT (.+) FROM users WHERE email = (.+)").
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(7), "ann@example.com", "Ann", nil, nil, created, created))

	w := s.do(t, http.MethodPost, "/api/v1/session", `{"email":"ann@example.com","name":"Ann"}`, 0)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	sess, err := s.sessions.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), sess.UserID)
	assert.NoError(t, s.mock.ExpectationsWereMet())

	w = s.do(t, http.MethodPost, "/api/v1/session", `{"email":"not-an-email"}`, 0)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	s := newTestServer(t, nil)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/me"},
		{http.MethodPost, "/api/v1/reports"},
		{http.MethodPost, "/api/v1/tasks/5/claim"},
		{http.MethodPost, "/api/v1/me/rewards/0/redeem"},
		{http.MethodGet, "/api/v1/me/notifications/ws"},
	} {
		w := s.do(t, route.method, route.path, "", 0)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestCreateReportValidation(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/v1/reports", `{"location":"Moda","wasteType":"glass","amount":"some"}`, 7)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid waste amount")

	w = s.do(t, http.MethodPost, "/api/v1/reports", `{"location":"Moda"}`, 7)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestClaimTaskConflict(t *testing.T) {
	s := newTestServer(t, nil)
	s.mock.ExpectExec("UPDATE reports SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = (.+)").
		WillReturnRows(sqlmock.NewRows(reportCols).
			AddRow(int64(5), int64(2), "Moda", "glass", "3 kg", nil, nil, models.StatusInProgress, int64(9), created))

	w := s.do(t, http.MethodPost, "/api/v1/tasks/5/claim", "", 7)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestClaimTaskBadID(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/v1/tasks/abc/claim", "", 7)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTaskStatusRejectsUnknownStatus(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPut, "/api/v1/tasks/5/status", `{"status":"done"}`, 7)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/tasks/5/status", `{"status":"verified"}`, 7)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestUpdateTaskStatusCollector(t *testing.T) {
	t.Run("Defaults to the caller", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.mock.ExpectExec("UPDATE reports SET status = (.+), collector_id = (.+) WHERE id = (.+) AND status IN").
			WithArgs(models.StatusInProgress, int64(7), int64(5), models.StatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))
		s.mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = (.+)").
			WillReturnRows(sqlmock.NewRows(reportCols).
				AddRow(int64(5), int64(2), "Moda", "glass", "3 kg", nil, nil, models.StatusInProgress, int64(7), created))

		w := s.do(t, http.MethodPut, "/api/v1/tasks/5/status", `{"status":"in_progress"}`, 7)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, s.mock.ExpectationsWereMet())
	})

	t.Run("Another collector is refused", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodPut, "/api/v1/tasks/5/status", `{"status":"in_progress","collectorId":9}`, 7)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NoError(t, s.mock.ExpectationsWereMet())
	})
}

func TestVerifyTask(t *testing.T) {
	t.Run("No image and no result", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodPost, "/api/v1/tasks/5/verify", `{}`, 7)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Malformed result", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodPost, "/api/v1/tasks/5/verify", `{"result":{"quantity":"3 kg"}}`, 7)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp models.VerifyTaskResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
	})

	t.Run("Mismatch reports the flags", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = (.+)").
			WillReturnRows(sqlmock.NewRows(reportCols).
				AddRow(int64(5), int64(2), "Moda", "glass", "3 kg", nil, nil, models.StatusInProgress, int64(7), created))

		w := s.do(t, http.MethodPost, "/api/v1/tasks/5/verify",
			`{"result":{"wasteType":"plastic","quantity":"3 kg","confidence":0.95}}`, 7)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp models.VerifyTaskResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.WasteTypeMatch)
		assert.True(t, resp.QuantityMatch)
		assert.Equal(t, 0.95, resp.Confidence)
		assert.NoError(t, s.mock.ExpectationsWereMet())
	})
}

func TestAnalyzeWithoutClassifier(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/v1/analyze", `{"image":"data:image/png;base64,iVBORw0KGgo="}`, 7)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAnalyzeClassifierFailureHidesDetails(t *testing.T) {
	const apiKey = "SUPERSECRETKEY123"
	classifier := verifier.NewClient(apiKey, "gemini-1.5-flash", time.Nanosecond)
	s := newTestServer(t, nil, service.WithClassifier(classifier))

	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	body := `{"image":"data:image/png;base64,` + base64.StdEncoding.EncodeToString(buf.Bytes()) + `"}`

	w := s.do(t, http.MethodPost, "/api/v1/analyze", body, 7)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), apiKey)
	assert.NotContains(t, w.Body.String(), "googleapis.com")
	assert.JSONEq(t, `{"error":"image classifier unavailable"}`, w.Body.String())
}

func TestRedeemInsufficientPoints(t *testing.T) {
	s := newTestServer(t, nil)
	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO rewards").WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectQuery("SELECT (.+) FROM rewards WHERE user_id = (.+) FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(rewardCols).AddRow(int64(11), int64(7), models.DefaultRewardName, "info", nil, 5.0, 1, true, created, created))
	s.mock.ExpectQuery("SELECT (.+) FROM rewards WHERE id = (.+)").
		WillReturnRows(sqlmock.NewRows(rewardCols).AddRow(int64(30), int64(1), "Cinema ticket", "info", nil, 50.0, 1, true, created, created))
	s.mock.ExpectExec("UPDATE rewards SET points = points -").WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectRollback()

	w := s.do(t, http.MethodPost, "/api/v1/me/rewards/30/redeem", "", 7)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient points")
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestInternalErrorsStayGeneric(t *testing.T) {
	s := newTestServer(t, nil)
	s.mock.ExpectQuery("SELECT (.+) FROM stations").WillReturnError(errors.New("dial tcp 10.0.0.3:3306: i/o timeout"))

	w := s.do(t, http.MethodGet, "/api/v1/stations", "", 0)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

func TestListStationsFilters(t *testing.T) {
	s := newTestServer(t, nil)
	rows := sqlmock.NewRows([]string{"id", "name", "location", "recycle_types", "active_status", "created_at"}).
		AddRow(int64(1), "Depot A", "Besiktas, Istanbul", "glass, paper", true, created).
		AddRow(int64(2), "Depot B", "Cankaya, Ankara", "glass", true, created)
	s.mock.ExpectQuery("SELECT (.+) FROM stations").WillReturnRows(rows)

	w := s.do(t, http.MethodGet, "/api/v1/stations?location=istanbul&type=Glass", "", 0)
	require.Equal(t, http.StatusOK, w.Code)

	var stations []models.Station
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stations))
	require.Len(t, stations, 1)
	assert.Equal(t, "Depot A", stations[0].Name)
}

func TestListTasksBadLimit(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/api/v1/tasks?limit=-1", "", 0)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
