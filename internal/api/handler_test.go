package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"voe-monitor-backend/config"
	"voe-monitor-backend/internal/fetch"
	"voe-monitor-backend/internal/model"
	"voe-monitor-backend/internal/schedule"
	"voe-monitor-backend/internal/store"
	"voe-monitor-backend/internal/worker"
)

// stubVOE is a canned VOEClient for handler tests.
type stubVOE struct {
	cities   []fetch.AutocompleteItem
	streets  []fetch.AutocompleteItem
	houses   []fetch.AutocompleteItem
	schedule string
	err      error
}

func (s *stubVOE) Cities(_ context.Context, _ string) ([]fetch.AutocompleteItem, error) {
	return s.cities, s.err
}

func (s *stubVOE) Streets(_ context.Context, _ int64, _ string) ([]fetch.AutocompleteItem, error) {
	return s.streets, s.err
}

func (s *stubVOE) Houses(_ context.Context, _ int64, _ string) ([]fetch.AutocompleteItem, error) {
	return s.houses, s.err
}

func (s *stubVOE) Schedule(_ context.Context, _, _, _ int64) (string, error) {
	return s.schedule, s.err
}

type apiFixture struct {
	router   *gin.Engine
	store    store.Store
	voe      *stubVOE
	settings *worker.Settings
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Address{},
		&model.Subscription{},
		&model.ScheduleHash{},
	))

	st := store.NewGormStore(db)
	voe := &stubVOE{}
	settings := &worker.Settings{}
	handler := NewHandler(st, voe, schedule.NewParser(zap.NewNop()), settings, 2, zap.NewNop())
	router := NewRouter(&config.ServerConfig{
		Port:            8080,
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 60,
	}, handler)

	return &apiFixture{router: router, store: st, voe: voe, settings: settings}
}

func (f *apiFixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestGetCities(t *testing.T) {
	f := newAPIFixture(t)
	f.voe.cities = []fetch.AutocompleteItem{{Value: "42", Label: "м. Вінниця"}}

	rec := f.do(http.MethodGet, "/api/autocomplete/cities?q=%D0%92%D1%96%D0%BD", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []fetch.AutocompleteItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "м. Вінниця", items[0].Label)
}

func TestGetCities_MissingQuery(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodGet, "/api/autocomplete/cities", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCities_SourceUnavailable(t *testing.T) {
	f := newAPIFixture(t)
	f.voe.err = fetch.ErrSourceUnavailable

	rec := f.do(http.MethodGet, "/api/autocomplete/cities?q=a", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetStreets_InvalidCityID(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodGet, "/api/autocomplete/streets?city_id=abc&q=a", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	body := `{"user_id":500,"city_id":42,"street_id":1001,"house_id":7,"name":"вул. Соборна, 1","kind":"today"}`
	rec := f.do(http.MethodPut, "/api/subscriptions", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created subscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "42-1001-7", created.AddressID)
	assert.Equal(t, "today", created.Kind)

	rec = f.do(http.MethodGet, "/api/subscriptions?user_id=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var subs []subscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, "вул. Соборна, 1", subs[0].Name)

	rec = f.do(http.MethodDelete, "/api/subscriptions?user_id=500&address_id=42-1001-7&kind=today", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/subscriptions?user_id=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subs))
	assert.Empty(t, subs)
}

func TestPutSubscription_InvalidKind(t *testing.T) {
	f := newAPIFixture(t)

	body := `{"user_id":500,"city_id":42,"street_id":1001,"house_id":7,"name":"адреса","kind":"weekly"}`
	rec := f.do(http.MethodPut, "/api/subscriptions", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutSubscription_MissingFields(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPut, "/api/subscriptions", `{"user_id":500}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSchedule(t *testing.T) {
	f := newAPIFixture(t)
	f.voe.schedule = `<div class="disconnection-detailed-table"><p>6.2 черга</p></div>` +
		`<div class="disconnection-detailed-table-container"></div>`

	rec := f.do(http.MethodGet, "/api/addresses/42-1001-7/schedule", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp schedule.ScheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "6.2 черга", resp.DisconnectionQueue)
}

func TestGetSchedule_InvalidAddressID(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(http.MethodGet, "/api/addresses/not-an-id/schedule", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSchedule_SourceUnavailable(t *testing.T) {
	f := newAPIFixture(t)
	f.voe.err = fetch.ErrSourceUnavailable

	rec := f.do(http.MethodGet, "/api/addresses/42-1001-7/schedule", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPostSilentRecalc(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/api/admin/silent-recalc", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, f.settings.TakeSilentRecalc())
}

func TestGetStatus(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.store.AddSubscription(context.Background(), 500, model.Address{
		ID: "42-1001-7", CityID: 42, StreetID: 1001, HouseID: 7, Name: "адреса",
	}, model.KindToday))

	rec := f.do(http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tracked_addresses":1}`, rec.Body.String())
}
