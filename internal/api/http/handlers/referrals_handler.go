package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/referral-service/internal/api/dto"
	"github.com/spec-kit/referral-service/internal/auth"
	"github.com/spec-kit/referral-service/internal/service"
	apperrors "github.com/spec-kit/referral-service/pkg/util"
)

// ReferralsHandler exposes the referral code and referral listing endpoints.
type ReferralsHandler struct {
	referrals *service.ReferralService
}

// NewReferralsHandler constructs handler.
func NewReferralsHandler(referrals *service.ReferralService) *ReferralsHandler {
	return &ReferralsHandler{referrals: referrals}
}

// CreateCode handles POST /referral_code.
func (h *ReferralsHandler) CreateCode(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	code, err := h.referrals.CreateCode(c.UserContext(), user)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.ReferralCodeResponse{
		Code:           code.Code,
		ExpirationDate: code.ExpirationDate,
	})
}

// DeleteCode handles DELETE /referral_code.
func (h *ReferralsHandler) DeleteCode(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	if err := h.referrals.DeleteCode(c.UserContext(), user); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// GetCodeByEmail handles POST /referral_code/get_by_email.
func (h *ReferralsHandler) GetCodeByEmail(c *fiber.Ctx) error {
	var req dto.EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email required")
	}

	code, err := h.referrals.ResolveByReferrerEmail(c.UserContext(), req.Email)
	if err != nil {
		return err
	}

	return c.JSON(dto.ReferralCodeResponse{
		Code:           code.Code,
		ExpirationDate: code.ExpirationDate,
	})
}

// ListReferrals handles GET /referrals/:userId.
func (h *ReferralsHandler) ListReferrals(c *fiber.Ctx) error {
	referrerID := c.Params("userId")
	if referrerID == "" {
		return fiber.NewError(http.StatusBadRequest, "user id required")
	}

	referrals, err := h.referrals.ListReferrals(c.UserContext(), referrerID)
	if err != nil {
		return err
	}

	resp := make([]dto.ReferralResponse, 0, len(referrals))
	for _, ref := range referrals {
		resp = append(resp, dto.ReferralResponse{
			ReferralUsername: ref.Username,
			ReferralEmail:    ref.Email,
		})
	}
	return c.JSON(resp)
}
