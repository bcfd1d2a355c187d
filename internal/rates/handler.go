package rates

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/corebox-crm/corebox/internal/money"
	"github.com/corebox-crm/corebox/internal/platform/httpx"
	"github.com/corebox-crm/corebox/internal/shared"
)

// Handler manages rate settings endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers rate settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rates", h.getRates)
	r.Put("/rates", h.updateRates)
}

type policyPayload struct {
	HourlyRate     money.Money `json:"hourly_rate"`
	HalfHourRate   money.Money `json:"half_hour_rate"`
	RegularRate60  money.Money `json:"regular_rate_60"`
	RegularRate45  money.Money `json:"regular_rate_45"`
	RegularRate30  money.Money `json:"regular_rate_30"`
	DiscountRate60 money.Money `json:"discount_rate_60"`
	DiscountRate45 money.Money `json:"discount_rate_45"`
	DiscountRate30 money.Money `json:"discount_rate_30"`
}

type policyUpdatePayload struct {
	HourlyRate     *money.Money `json:"hourly_rate"`
	HalfHourRate   *money.Money `json:"half_hour_rate"`
	RegularRate60  *money.Money `json:"regular_rate_60"`
	RegularRate45  *money.Money `json:"regular_rate_45"`
	RegularRate30  *money.Money `json:"regular_rate_30"`
	DiscountRate60 *money.Money `json:"discount_rate_60"`
	DiscountRate45 *money.Money `json:"discount_rate_45"`
	DiscountRate30 *money.Money `json:"discount_rate_30"`
}

func (h *Handler) getRates(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	policy, err := h.service.Policy(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("get rate policy", slog.Any("error", err), slog.Int64("owner_id", ownerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, policyToPayload(policy))
}

func (h *Handler) updateRates(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())

	var payload policyUpdatePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}

	policy, err := h.service.UpdatePolicy(r.Context(), ownerID, UpdatePolicyInput{
		HourlyRate:     payload.HourlyRate,
		HalfHourRate:   payload.HalfHourRate,
		RegularRate60:  payload.RegularRate60,
		RegularRate45:  payload.RegularRate45,
		RegularRate30:  payload.RegularRate30,
		DiscountRate60: payload.DiscountRate60,
		DiscountRate45: payload.DiscountRate45,
		DiscountRate30: payload.DiscountRate30,
	})
	if err != nil {
		h.logger.Error("update rate policy", slog.Any("error", err), slog.Int64("owner_id", ownerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, policyToPayload(policy))
}

func policyToPayload(p *RatePolicy) policyPayload {
	return policyPayload{
		HourlyRate:     p.HourlyRate.Round(),
		HalfHourRate:   p.HalfHourRate.Round(),
		RegularRate60:  p.RegularRate60.Round(),
		RegularRate45:  p.RegularRate45.Round(),
		RegularRate30:  p.RegularRate30.Round(),
		DiscountRate60: p.DiscountRate60.Round(),
		DiscountRate45: p.DiscountRate45.Round(),
		DiscountRate30: p.DiscountRate30.Round(),
	}
}
