package rest

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	settingsApp "github.com/VIER-CognitiveVoice/cvg-connect/core/settings/application"
	settingsDomain "github.com/VIER-CognitiveVoice/cvg-connect/core/settings/domain"
	pkgError "github.com/VIER-CognitiveVoice/cvg-connect/pkg/error"
	"github.com/VIER-CognitiveVoice/cvg-connect/pkg/utils"
)

// Settings exposes the operator-tunable behaviour switches. Stored values win
// over the environment and are applied on the next start.
type Settings struct {
	bearer  string
	Service *settingsApp.SettingsService
}

func InitRestSettings(app fiber.Router, token string, service *settingsApp.SettingsService) Settings {
	handler := Settings{bearer: "Bearer " + token, Service: service}

	app.Get("/settings", handler.Get)
	app.Put("/settings", handler.Update)
	app.Delete("/settings/:key", handler.Reset)

	return handler
}

type settingsUpdateRequest struct {
	StartIntent            *string `json:"startIntent"`
	EngineURL              *string `json:"engineUrl"`
	OperationDelayMs       *int    `json:"operationDelayMs"`
	BlockingEndpoints      *bool   `json:"blockingEndpoints"`
	IgnoreMessagesWhenBusy *bool   `json:"ignoreMessagesWhenBusy"`
}

func (controller *Settings) Get(c *fiber.Ctx) error {
	controller.requireBearer(c)

	settings, err := controller.Service.GetDynamicSettings(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch settings",
		Results: settings,
	})
}

// Update stores every field present in the body; absent fields keep their
// stored value.
func (controller *Settings) Update(c *fiber.Ctx) error {
	controller.requireBearer(c)

	var request settingsUpdateRequest
	if err := json.Unmarshal(c.Body(), &request); err != nil {
		panic(pkgError.ValidationError("body is not valid json"))
	}

	ctx := c.UserContext()
	if request.StartIntent != nil {
		utils.PanicIfNeeded(controller.Service.SetStartIntent(ctx, *request.StartIntent))
	}
	if request.EngineURL != nil {
		utils.PanicIfNeeded(controller.Service.SetEngineURL(ctx, *request.EngineURL))
	}
	if request.OperationDelayMs != nil {
		utils.PanicIfNeeded(controller.Service.SetOperationDelay(ctx, *request.OperationDelayMs))
	}
	if request.BlockingEndpoints != nil {
		utils.PanicIfNeeded(controller.Service.SetBlockingEndpoints(ctx, *request.BlockingEndpoints))
	}
	if request.IgnoreMessagesWhenBusy != nil {
		utils.PanicIfNeeded(controller.Service.SetIgnoreMessagesWhenBusy(ctx, *request.IgnoreMessagesWhenBusy))
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings stored, applied on next start",
	})
}

func (controller *Settings) Reset(c *fiber.Ctx) error {
	controller.requireBearer(c)

	if err := controller.Service.Reset(c.UserContext(), c.Params("key")); err != nil {
		if errors.Is(err, settingsDomain.ErrUnknownSetting) {
			panic(pkgError.ValidationError(err.Error()))
		}
		utils.PanicIfNeeded(err)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Setting reset, environment value applies on next start",
	})
}

func (controller *Settings) requireBearer(c *fiber.Ctx) {
	if c.Get(fiber.HeaderAuthorization) != controller.bearer {
		panic(pkgError.UnauthorizedError("bot token is invalid"))
	}
}
