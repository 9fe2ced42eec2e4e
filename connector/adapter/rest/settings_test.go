package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	settingsApp "github.com/VIER-CognitiveVoice/cvg-connect/core/settings/application"
	"github.com/VIER-CognitiveVoice/cvg-connect/ui/rest/middleware"
)

func newSettingsApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	app := fiber.New()
	app.Use(middleware.Recovery())
	InitRestSettings(app, testToken, settingsApp.NewSettingsService(db))
	return app
}

func settingsRequest(t *testing.T, app *fiber.App, method, path, body string, authorized bool) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSettings_RequireBearer(t *testing.T) {
	app := newSettingsApp(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/settings"},
		{http.MethodPut, "/settings"},
		{http.MethodDelete, "/settings/cvg_start_intent"},
	} {
		resp := settingsRequest(t, app, tc.method, tc.path, "{}", false)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}

func TestSettings_UpdateThenGet(t *testing.T) {
	app := newSettingsApp(t)

	resp := settingsRequest(t, app, http.MethodPut, "/settings",
		`{"startIntent":"/cvg_welcome","operationDelayMs":40,"blockingEndpoints":false}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = settingsRequest(t, app, http.MethodGet, "/settings", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Results settingsApp.DynamicSettings `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))

	assert.Equal(t, "/cvg_welcome", envelope.Results.StartIntent)
	require.NotNil(t, envelope.Results.OperationDelayMs)
	assert.Equal(t, 40, *envelope.Results.OperationDelayMs)
	require.NotNil(t, envelope.Results.BlockingEndpoints)
	assert.False(t, *envelope.Results.BlockingEndpoints)
	// Fields absent from the update stay unset.
	assert.Nil(t, envelope.Results.IgnoreMessagesWhenBusy)
}

func TestSettings_UpdateRejectsInvalidJSON(t *testing.T) {
	app := newSettingsApp(t)

	resp := settingsRequest(t, app, http.MethodPut, "/settings", "not json", true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSettings_ResetRestoresEnvironmentValue(t *testing.T) {
	app := newSettingsApp(t)

	resp := settingsRequest(t, app, http.MethodPut, "/settings", `{"startIntent":"/cvg_welcome"}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = settingsRequest(t, app, http.MethodDelete, "/settings/cvg_start_intent", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = settingsRequest(t, app, http.MethodGet, "/settings", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Results settingsApp.DynamicSettings `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Empty(t, envelope.Results.StartIntent)
}

func TestSettings_ResetUnknownKeyRejected(t *testing.T) {
	app := newSettingsApp(t)

	resp := settingsRequest(t, app, http.MethodDelete, "/settings/nonsense", "", true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
