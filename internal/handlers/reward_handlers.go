package handlers

import (
	"errors"
	"net/http"

	"github.com/caldana20/referral-sys/internal/common"
	"github.com/caldana20/referral-sys/internal/services"

	"github.com/labstack/echo/v4"
)

// RewardHandlers handles reward setting management
type RewardHandlers struct {
	rewardService services.RewardService
}

func NewRewardHandlers(rewardService services.RewardService) *RewardHandlers {
	return &RewardHandlers{rewardService: rewardService}
}

// ListActiveRewards returns the rewards shown on the public referral page
func (h *RewardHandlers) ListActiveRewards(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Tenant not found")
	}

	rewards, err := h.rewardService.ListActive(ctx, tenantID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list rewards")
	}

	return c.JSON(http.StatusOK, rewards)
}

// CreateRewardRequest represents the reward creation payload
type CreateRewardRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateReward adds a reward setting; new rewards start active
func (h *RewardHandlers) CreateReward(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateRewardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	reward, err := h.rewardService.Create(ctx, tenantID, req.Name)
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrDuplicateReward):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.As(err, &validationErr):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create reward")
		}
	}

	return c.JSON(http.StatusCreated, reward)
}

// ListRewards returns all reward settings for the tenant, active or not
func (h *RewardHandlers) ListRewards(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	rewards, err := h.rewardService.List(ctx, tenantID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list rewards")
	}

	return c.JSON(http.StatusOK, rewards)
}

// SetRewardActiveRequest represents the activation toggle payload
type SetRewardActiveRequest struct {
	Active bool `json:"active"`
}

// SetRewardActive toggles whether a reward appears on the public page
func (h *RewardHandlers) SetRewardActive(c echo.Context) error {
	ctx := c.Request().Context()

	rewardID, err := common.ValidateUUID(c.Param("id"), "reward id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req SetRewardActiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	reward, err := h.rewardService.SetActive(ctx, tenantID, rewardID, req.Active)
	if err != nil {
		if errors.Is(err, services.ErrRewardNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update reward")
	}

	return c.JSON(http.StatusOK, reward)
}

// DeleteReward removes a reward setting
func (h *RewardHandlers) DeleteReward(c echo.Context) error {
	ctx := c.Request().Context()

	rewardID, err := common.ValidateUUID(c.Param("id"), "reward id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tenantID, ok := common.GetTenantIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Tenant not found")
	}

	if err := h.rewardService.Delete(ctx, tenantID, rewardID); err != nil {
		if errors.Is(err, services.ErrRewardNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete reward")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Reward deleted successfully",
	})
}
