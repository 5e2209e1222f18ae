package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aq2208/gorder-pos/internal/i18n"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InvoiceHandler struct {
	invoices *usecase.Invoices
	tr       *i18n.Translator
}

func NewInvoiceHandler(invoices *usecase.Invoices, tr *i18n.Translator) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, tr: tr}
}

func (h *InvoiceHandler) orderID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResp{Error: "invalid_request", Message: h.tr.T(i18n.MsgInvalidRequest)})
		return "", false
	}
	return id.String(), true
}

// Download serves the stored document. It never renders on demand.
func (h *InvoiceHandler) Download(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	doc, err := h.invoices.Get(ctx, id)
	if err != nil {
		respondError(c, h.tr, i18n.ActInvoice, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}

func (h *InvoiceHandler) Regenerate(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if err := h.invoices.Generate(ctx, id); err != nil {
		respondError(c, h.tr, i18n.ActInvoice, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderId": id, "message": h.tr.T(i18n.MsgInvoiceRegenerated)})
}
