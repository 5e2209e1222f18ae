package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aq2208/gorder-pos/internal/adapter/http/middleware"
	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/i18n"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	checkout *usecase.Checkout
	tr       *i18n.Translator
	timeout  time.Duration
}

func NewCheckoutHandler(checkout *usecase.Checkout, tr *i18n.Translator, timeout time.Duration) *CheckoutHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CheckoutHandler{checkout: checkout, tr: tr, timeout: timeout}
}

type cartLineReq struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// checkoutReq is the POS client's body. employee_id is optional; the token
// subject is authoritative and a different value is rejected.
type checkoutReq struct {
	CustomerPhone   string        `json:"customerPhone"`
	CustomerName    string        `json:"customerName"`
	CustomerAddress string        `json:"customerAddress"`
	Products        []cartLineReq `json:"products"`
	AmountPaid      int64         `json:"amountPaid"`
	EmployeeID      string        `json:"employee_id"`
}

type checkoutResp struct {
	Message  string           `json:"message"`
	Order    *domain.Order    `json:"order"`
	Customer *domain.Customer `json:"customer"`
	Warnings []warningResp    `json:"warnings"`
}

// Checkout handler: translate to use case input
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResp{Error: "invalid_request", Message: h.tr.T(i18n.MsgInvalidRequest)})
		return
	}
	// The use case validates the same fields; checking here gives the
	// cashier a precise message.
	switch {
	case len(req.Products) == 0:
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResp{Error: "invalid_request", Message: h.tr.T(i18n.MsgCartEmpty)})
		return
	case strings.TrimSpace(req.CustomerPhone) == "":
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResp{Error: "invalid_request", Message: h.tr.T(i18n.MsgPhoneRequired)})
		return
	}
	employeeID := middleware.EmployeeID(c)
	if employeeID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResp{Error: "invalid_request", Message: h.tr.T(i18n.MsgEmployeeRequired)})
		return
	}
	if claimed := strings.TrimSpace(req.EmployeeID); claimed != "" && claimed != employeeID {
		c.AbortWithStatusJSON(http.StatusForbidden, errorResp{Error: "employee_mismatch", Message: h.tr.T(i18n.MsgEmployeeMismatch)})
		return
	}

	in := usecase.CheckoutInput{
		CustomerPhone:   req.CustomerPhone,
		CustomerName:    req.CustomerName,
		CustomerAddress: req.CustomerAddress,
		AmountPaid:      req.AmountPaid,
		EmployeeID:      employeeID,
		IdempotencyKey:  c.GetHeader(middleware.IdempotencyHeader),
	}
	for _, l := range req.Products {
		in.Lines = append(in.Lines, usecase.CartLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	out, err := h.checkout.Execute(ctx, in)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResp{Error: "invalid_request", Message: h.tr.T(i18n.MsgProductNotFound)})
			return
		}
		respondError(c, h.tr, i18n.ActCheckout, err)
		return
	}

	status, msg := http.StatusCreated, h.tr.T(i18n.MsgOrderCreated)
	if out.Replayed {
		status, msg = http.StatusOK, h.tr.T(i18n.MsgOrderReplayed)
	}
	c.JSON(status, checkoutResp{
		Message:  msg,
		Order:    out.Order,
		Customer: out.Customer,
		Warnings: warnings(h.tr, out.Warnings),
	})
}
