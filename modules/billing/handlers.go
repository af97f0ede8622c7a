package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/notenibblers/notenibblers/pkg/billing"
	"github.com/notenibblers/notenibblers/pkg/jwt"
	"github.com/notenibblers/notenibblers/pkg/profile"
	"github.com/notenibblers/notenibblers/pkg/qrcode"
	"github.com/notenibblers/notenibblers/pkg/response"
)

// maxWebhookBody bounds provider webhook payloads.
const maxWebhookBody = 1 << 20

const qrSize = 256

type handlers struct {
	svc *billing.Service
	log *slog.Logger
}

type planView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	QuizLimit     int64    `json:"quiz_limit"`
	QuestionLimit int      `json:"question_limit"`
	PriceAmount   int64    `json:"price_amount"`
	PriceCurrency string   `json:"price_currency"`
	Features      []string `json:"features,omitempty"`
}

func toPlanView(p billing.Plan) planView {
	return planView{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		QuizLimit:     p.QuizLimit,
		QuestionLimit: p.QuestionLimit,
		PriceAmount:   p.Price.Amount,
		PriceCurrency: p.Price.Currency,
		Features:      p.Features,
	}
}

func (h *handlers) listPlans(w http.ResponseWriter, r *http.Request) {
	plans := h.svc.Plans()
	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanView(p))
	}
	response.JSON(w, http.StatusOK, out)
}

type subscriptionView struct {
	Plan             planView   `json:"plan"`
	Status           string     `json:"status"`
	QuizCount        int64      `json:"quiz_count"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

func (h *handlers) getSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	rec, plan, err := h.svc.GetSubscription(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}

	view := subscriptionView{
		Plan:      toPlanView(plan),
		Status:    string(rec.Status),
		QuizCount: rec.QuizCount,
	}
	if !rec.CurrentPeriodEnd.IsZero() {
		view.CurrentPeriodEnd = &rec.CurrentPeriodEnd
	}
	response.JSON(w, http.StatusOK, view)
}

type checkoutRequest struct {
	PlanID string `json:"plan_id"`
}

type checkoutView struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

func (h *handlers) startCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
		response.Error(w, response.ErrBadRequest.WithMessage("plan_id is required"))
		return
	}

	sess, err := h.svc.StartCheckout(r.Context(), userID, req.PlanID)
	if err != nil {
		response.Error(w, mapBillingError(err))
		return
	}
	response.JSON(w, http.StatusOK, checkoutView{SessionID: sess.SessionID, CheckoutURL: sess.URL})
}

// checkoutQR serves the checkout URL as a QR code so a desktop session can
// be paid from a phone.
func (h *handlers) checkoutQR(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	planID := r.URL.Query().Get("plan_id")
	if planID == "" {
		response.Error(w, response.ErrBadRequest.WithMessage("plan_id is required"))
		return
	}

	sess, err := h.svc.StartCheckout(r.Context(), userID, planID)
	if err != nil {
		response.Error(w, mapBillingError(err))
		return
	}

	png, err := qrcode.Generate(sess.URL, qrSize)
	if err != nil {
		response.Error(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type cancelView struct {
	Status      string     `json:"status"`
	EffectiveAt *time.Time `json:"effective_at,omitempty"`
}

func (h *handlers) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	effectiveAt, err := h.svc.CancelSubscription(r.Context(), userID)
	if err != nil {
		response.Error(w, mapBillingError(err))
		return
	}

	view := cancelView{Status: string(billing.StatusCanceling)}
	if !effectiveAt.IsZero() {
		view.EffectiveAt = &effectiveAt
	}
	response.JSON(w, http.StatusOK, view)
}

// webhook receives provider events. The raw body must reach signature
// verification untouched. A non-2xx response makes the provider redeliver.
func (h *handlers) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		signature = r.Header.Get("Paddle-Signature")
	}

	if err := h.svc.HandleWebhook(r.Context(), payload, signature); err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidSignature):
			h.log.WarnContext(r.Context(), "webhook rejected, bad signature")
			response.Error(w, response.ErrBadRequest.WithMessage("invalid signature"))
		case errors.Is(err, billing.ErrInvalidEvent):
			response.Error(w, response.ErrBadRequest.WithMessage("invalid event payload"))
		default:
			// Transient failure: signal the provider to retry.
			h.log.ErrorContext(r.Context(), "webhook processing failed", slog.Any("error", err))
			response.Error(w, response.ErrInternalServerError)
		}
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

func mapBillingError(err error) error {
	switch {
	case errors.Is(err, billing.ErrInvalidPlan), errors.Is(err, billing.ErrPlanNotFound):
		return response.ErrBadRequest.WithMessage("unknown or non-purchasable plan")
	case errors.Is(err, billing.ErrAlreadySubscribed):
		return response.ErrConflict.WithMessage("you already have an active subscription to this plan")
	case errors.Is(err, billing.ErrNoActiveSubscription):
		return response.ErrNotFound.WithMessage("no active subscription to cancel")
	case errors.Is(err, profile.ErrNotFound):
		return response.ErrUnauthorized
	case errors.Is(err, billing.ErrProviderError):
		return response.NewHTTPError(http.StatusBadGateway, "billing_provider_error").
			WithMessage("the billing provider is unavailable, please try again")
	default:
		return err
	}
}
