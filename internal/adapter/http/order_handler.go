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

type OrderHandler struct {
	query *usecase.OrderQueries
	tr    *i18n.Translator
}

func NewOrderHandler(query *usecase.OrderQueries, tr *i18n.Translator) *OrderHandler {
	return &OrderHandler{query: query, tr: tr}
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResp{Error: "invalid_request", Message: h.tr.T(i18n.MsgInvalidRequest)})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	o, err := h.query.Get(ctx, id)
	if err != nil {
		respondError(c, h.tr, i18n.ActLookup, err)
		return
	}
	// completed orders never change
	c.Header("Cache-Control", "private, max-age=300")
	c.JSON(http.StatusOK, o)
}
