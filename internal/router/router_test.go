package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/irctc-booking-supporter/internal/config"
	"github.com/iliyamo/irctc-booking-supporter/internal/handler"
	"github.com/iliyamo/irctc-booking-supporter/internal/model"
	"github.com/iliyamo/irctc-booking-supporter/internal/repository"
	"github.com/iliyamo/irctc-booking-supporter/internal/service"
	"github.com/iliyamo/irctc-booking-supporter/internal/status"
)

type okMessenger struct{}

func (okMessenger) Handle(context.Context, service.Request) service.Response {
	return service.Response{Success: true}
}

type noRuns struct{}

func (noRuns) Active() (model.RunRecord, bool) { return model.RunRecord{}, false }
func (noRuns) Runs() []model.RunRecord { return nil }
func (noRuns) Run(string) (model.RunRecord, bool) { return model.RunRecord{}, false }

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("open sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := config.Config{JWTSecret: "s3cret", AccessTTLMin: 5, ShellPassphraseHash: string(hash)}

	d := Deps{
		Cfg:       cfg,
		RateLimit: config.RateLimitConfig{Enabled: false},
		Cache:     config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "t:cache", MaxBodyBytes: 1 << 16},
		Rdb:       rdb,
		Auth:      handler.NewAuthHandler(cfg),
		Messages:  handler.NewMessageHandler(okMessenger{}),
		Configs:   handler.NewConfigHandler(repository.NewRedisConfigStore(rdb)),
		Status:    handler.NewStatusHandler(&status.Snapshot{}, noRuns{}, nil),
	}
	e := echo.New()
	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterControl(e, d)
	return e
}

func call(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPairThenControl(t *testing.T) {
	e := newServer(t)

	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/readyz", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodPost, "/v1/messages", "", `{"action":"openIRCTC"}`).Code)

	rec := call(e, http.MethodPost, "/v1/auth/pair", "", `{"passphrase":"open sesame"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var pair struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	tok := pair.Access.Token

	assert.Equal(t, http.StatusOK, call(e, http.MethodPost, "/v1/messages", tok, `{"action":"openIRCTC"}`).Code)
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/status", tok, "").Code)
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/v1/me", tok, "").Code)
}

func TestConfigurationReadsSeeWrites(t *testing.T) {
	e := newServer(t)
	rec := call(e, http.MethodPost, "/v1/auth/pair", "", `{"passphrase":"open sesame"}`)
	var pair struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	tok := pair.Access.Token

	first := call(e, http.MethodGet, "/v1/configurations", tok, "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, `{"configurations":[]}`, first.Body.String())

	body := `{"journey":{"from":"NDLS","to":"BCT","date":"2025-03-10","class":"3A","trainPreference":"12951"},
		"contact":{"mobile":"9876543210"},"passengers":[{"name":"A","age":30,"gender":"F"}]}`
	require.Equal(t, http.StatusOK, call(e, http.MethodPut, "/v1/configurations/Office", tok, body).Code)

	after := call(e, http.MethodGet, "/v1/configurations", tok, "")
	assert.Equal(t, "MISS", after.Header().Get("X-Cache"))
	assert.Contains(t, after.Body.String(), `"label":"Office"`)
}
