package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/irctc-booking-supporter/internal/config"
	"github.com/iliyamo/irctc-booking-supporter/internal/model"
	"github.com/iliyamo/irctc-booking-supporter/internal/repository"
	"github.com/iliyamo/irctc-booking-supporter/internal/service"
	"github.com/iliyamo/irctc-booking-supporter/internal/status"
	"github.com/iliyamo/irctc-booking-supporter/internal/utils"
)

const bookingJSON = `{
	"journey": {"from": "NDLS", "to": "BCT", "date": "2025-03-10", "class": "3A", "trainPreference": "12951", "paymentMode": "UPI"},
	"contact": {"mobile": "9876543210"},
	"passengers": [{"name": "A Kumar", "age": 30, "gender": "M"}],
	"mode": "tatkal"
}`

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type fakeMessenger struct {
	got  []service.Request
	resp service.Response
}

func (f *fakeMessenger) Handle(_ context.Context, req service.Request) service.Response {
	f.got = append(f.got, req)
	return f.resp
}

func TestMessagesEnvelope(t *testing.T) {
	m := &fakeMessenger{resp: service.Response{Success: true, RunID: "run-a"}}
	h := NewMessageHandler(m)
	e := echo.New()
	e.POST("/v1/messages", h.Post)

	rec := serve(e, http.MethodPost, "/v1/messages", `{"action":"startBooking","config":`+bookingJSON+`}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"success":true,"runId":"run-a"}`, rec.Body.String())
	require.Len(t, m.got, 1)
	assert.Equal(t, service.ActionStartBooking, m.got[0].Action)
	require.NotNil(t, m.got[0].Config)
	assert.Equal(t, "12951", m.got[0].Config.Journey.TrainPreference)

	m.resp = service.Response{Success: true}
	rec = serve(e, http.MethodPost, "/v1/messages", `{"action":"openIRCTC"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestMessagesStatusCodes(t *testing.T) {
	m := &fakeMessenger{}
	h := NewMessageHandler(m)
	e := echo.New()
	e.POST("/v1/booking/start", h.StartBooking)
	e.POST("/v1/irctc/open", h.OpenIRCTC)
	e.POST("/v1/messages", h.Post)

	m.resp = service.Response{Error: "Mobile Number must be 10 digits", Reason: "invalid_mobile"}
	assert.Equal(t, http.StatusUnprocessableEntity, serve(e, http.MethodPost, "/v1/booking/start", bookingJSON).Code)

	m.resp = service.Response{Error: "no browser"}
	assert.Equal(t, http.StatusServiceUnavailable, serve(e, http.MethodPost, "/v1/irctc/open", "").Code)

	m.resp = service.Response{Error: "Unknown action"}
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/v1/messages", `{"action":"dance"}`).Code)

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/v1/messages", `{"action":`).Code)
}

func newConfigEcho(t *testing.T) *echo.Echo {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	h := NewConfigHandler(repository.NewRedisConfigStore(rdb))

	e := echo.New()
	e.GET("/v1/configurations", h.List)
	e.GET("/v1/configurations/latest", h.Latest)
	e.GET("/v1/configurations/:label", h.Get)
	e.PUT("/v1/configurations/:label", h.Put)
	e.DELETE("/v1/configurations/:label", h.Delete)
	return e
}

func TestConfigurationsCRUD(t *testing.T) {
	e := newConfigEcho(t)

	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/v1/configurations/latest", "").Code)

	rec := serve(e, http.MethodPut, "/v1/configurations/Weekend%20Trip", bookingJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved model.SavedConfiguration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "Weekend Trip", saved.Label)

	rec = serve(e, http.MethodGet, "/v1/configurations/Weekend%20Trip", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"trainPreference":"12951"`)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/v1/configurations/%20Weekend%20Trip%20", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPut, "/v1/configurations/%20%20", bookingJSON).Code)

	rec = serve(e, http.MethodGet, "/v1/configurations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Configurations []repository.ConfigSummary `json:"configurations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Configurations, 1)
	assert.Equal(t, "Weekend Trip", list.Configurations[0].Label)

	rec = serve(e, http.MethodGet, "/v1/configurations/latest", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodDelete, "/v1/configurations/Weekend%20Trip", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodDelete, "/v1/configurations/Weekend%20Trip", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/v1/configurations/Weekend%20Trip", "").Code)
}

func TestConfigurationsRejectInvalidRequest(t *testing.T) {
	e := newConfigEcho(t)
	body := strings.Replace(bookingJSON, `"9876543210"`, `"98765"`, 1)

	rec := serve(e, http.MethodPut, "/v1/configurations/Office", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"Mobile Number must be 10 digits","reason":"invalid_mobile"}`, rec.Body.String())

	rec = serve(e, http.MethodPut, "/v1/configurations/%20", bookingJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeLive struct {
	active *model.RunRecord
	runs   []model.RunRecord
}

func (f fakeLive) Active() (model.RunRecord, bool) {
	if f.active == nil {
		return model.RunRecord{}, false
	}
	return *f.active, true
}

func (f fakeLive) Runs() []model.RunRecord { return f.runs }

func (f fakeLive) Run(id string) (model.RunRecord, bool) {
	for _, r := range f.runs {
		if r.ID == id {
			return r, true
		}
	}
	return model.RunRecord{}, false
}

func TestStatusAndRuns(t *testing.T) {
	snap := &status.Snapshot{}
	run := model.RunRecord{ID: "run-a", State: model.StateSearching, StartedAt: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)}
	live := fakeLive{active: &run, runs: []model.RunRecord{run, {ID: "run-0", State: model.StateError}}}
	h := NewStatusHandler(snap, live, nil)

	e := echo.New()
	e.GET("/v1/status", h.Status)
	e.GET("/v1/runs", h.Runs)
	e.GET("/v1/runs/:id", h.Run)

	rec := serve(e, http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"update"`)

	snap.Report(context.Background(), status.Update{RunID: "run-a", State: model.StateSearching, Level: status.LevelInfo, Message: "Filling search form..."})
	rec = serve(e, http.MethodGet, "/v1/status", "")
	var st struct {
		Running bool          `json:"running"`
		Update  status.Update `json:"update"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Running)
	assert.Equal(t, "Filling search form...", st.Update.Message)

	rec = serve(e, http.MethodGet, "/v1/runs?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-a")
	assert.NotContains(t, rec.Body.String(), "run-0")

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodGet, "/v1/runs?limit=x", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/v1/runs/run-0", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/v1/runs/nope", "").Code)
}

func TestPair(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	h := NewAuthHandler(config.Config{JWTSecret: "s3cret", AccessTTLMin: 5, ShellPassphraseHash: string(hash)})
	e := echo.New()
	e.POST("/v1/auth/pair", h.Pair)

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/v1/auth/pair", `{}`).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodPost, "/v1/auth/pair", `{"passphrase":"guess"}`).Code)

	rec := serve(e, http.MethodPost, "/v1/auth/pair", `{"passphrase":"open sesame"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp pairResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	cl, err := utils.ParseAccessToken("s3cret", resp.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.ShellID, cl.Subject)
	assert.Equal(t, utils.RoleShell, cl.Role)
}

func TestReady(t *testing.T) {
	e := echo.New()
	e.GET("/readyz", Ready(map[string]Check{
		"redis": func(context.Context) error { return nil },
	}))
	e.GET("/broken", Ready(map[string]Check{
		"mysql": func(context.Context) error { return assert.AnError },
	}))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/readyz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(e, http.MethodGet, "/broken", "").Code)
}
