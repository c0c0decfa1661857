package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/photomanager/api/internal/service"
	"github.com/photomanager/api/internal/store"
	"github.com/photomanager/api/pkg/response"
)

type SettingsHandler struct {
	store     store.Store
	validator *validator.Validate
	defaults  SettingsDefaults
}

// SettingsDefaults are reported when no settings row exists yet.
type SettingsDefaults struct {
	Provider string
	Language string
}

func NewSettingsHandler(st store.Store, v *validator.Validate, defaults SettingsDefaults) *SettingsHandler {
	return &SettingsHandler{store: st, validator: v, defaults: defaults}
}

type updateSettingsRequest struct {
	Provider string `json:"provider" validate:"omitempty,oneof=openai grok openrouter ollama"`
	Language string `json:"language" validate:"omitempty,oneof=fr en es"`
}

// Get handles GET /api/settings/ai
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	provider, err := h.store.GetSetting(c.Context(), service.SettingAIProvider)
	if err != nil {
		return response.ServiceError(c, "Failed to read settings")
	}
	if provider == "" {
		provider = h.defaults.Provider
	}

	language, err := h.store.GetSetting(c.Context(), service.SettingAILanguage)
	if err != nil {
		return response.ServiceError(c, "Failed to read settings")
	}
	if language == "" {
		language = h.defaults.Language
	}

	return response.OK(c, fiber.Map{
		"provider": provider,
		"language": language,
	})
}

// Update handles PUT /api/settings/ai
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req updateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Invalid settings", err.Error())
	}
	if req.Provider == "" && req.Language == "" {
		return response.ValidationError(c, "Nothing to update", nil)
	}

	if req.Provider != "" {
		if err := h.store.SetSetting(c.Context(), service.SettingAIProvider, req.Provider); err != nil {
			return response.ServiceError(c, "Failed to save settings")
		}
	}
	if req.Language != "" {
		if err := h.store.SetSetting(c.Context(), service.SettingAILanguage, req.Language); err != nil {
			return response.ServiceError(c, "Failed to save settings")
		}
	}

	return h.Get(c)
}
