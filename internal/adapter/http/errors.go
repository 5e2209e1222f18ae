package http

import (
	"errors"
	"net/http"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/i18n"
	"github.com/aq2208/gorder-pos/internal/logging"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/gin-gonic/gin"
)

type errorResp struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondError maps the domain taxonomy to a status and a localized
// message. Anything unrecognised is a 500 that names only the action.
func respondError(c *gin.Context, tr *i18n.Translator, action string, err error) {
	status, code, msg := classify(tr, err)
	if status >= http.StatusInternalServerError {
		logging.From(c).Error("request failed", "action", action, "err", err)
		msg = tr.T(i18n.MsgInternal, tr.T(action))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResp{Error: code, Message: msg})
}

func classify(tr *i18n.Translator, err error) (int, string, string) {
	var stock *domain.InsufficientStockError
	switch {
	case errors.As(err, &stock):
		return http.StatusBadRequest, "insufficient_stock", tr.T(i18n.MsgInsufficientStock, stock.Available, stock.Name)
	case errors.Is(err, domain.ErrInsufficientPayment):
		return http.StatusBadRequest, "insufficient_payment", tr.T(i18n.MsgInsufficientPayment)
	case errors.Is(err, domain.ErrPriceChanged):
		return http.StatusBadRequest, "price_changed", tr.T(i18n.MsgPriceChanged)
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "invalid_request", tr.T(i18n.MsgNewCustomerFields)
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_request", tr.T(i18n.MsgInvalidPrice)
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid_request", tr.T(i18n.MsgInvalidQuantity)
	case errors.Is(err, domain.ErrInvalidImages):
		return http.StatusBadRequest, "invalid_request", tr.T(i18n.MsgInvalidImages)
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request", tr.T(i18n.MsgInvalidRequest)
	case errors.Is(err, usecase.ErrDuplicate):
		return http.StatusConflict, "duplicate_request", tr.T(i18n.MsgDuplicateRequest)
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "not_found", tr.T(i18n.MsgProductNotFound)
	case errors.Is(err, domain.ErrInvoiceNotFound):
		return http.StatusNotFound, "not_found", tr.T(i18n.MsgInvoiceNotFound)
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "not_found", tr.T(i18n.MsgOrderNotFound)
	case errors.Is(err, domain.ErrCustomerNotFound):
		return http.StatusNotFound, "not_found", tr.T(i18n.MsgCustomerNotFound)
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusInternalServerError, "generation_failed", tr.T(i18n.MsgBarcodeFailed)
	}
	return http.StatusInternalServerError, "internal", ""
}

type warningResp struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func warnings(tr *i18n.Translator, errs []error) []warningResp {
	out := make([]warningResp, 0, len(errs))
	for _, err := range errs {
		switch {
		case errors.Is(err, domain.ErrPostCommitInventory):
			out = append(out, warningResp{Code: "inventory_adjustment_failed", Message: tr.T(i18n.MsgInventoryNeedsReview)})
		case errors.Is(err, domain.ErrInvoiceGeneration):
			out = append(out, warningResp{Code: "invoice_generation_failed", Message: tr.T(i18n.MsgInvoiceFailed)})
		default:
			out = append(out, warningResp{Code: "warning", Message: err.Error()})
		}
	}
	return out
}
