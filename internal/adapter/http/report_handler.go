package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aq2208/gorder-pos/internal/i18n"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports *usecase.Reports
	tr      *i18n.Translator
}

func NewReportHandler(reports *usecase.Reports, tr *i18n.Translator) *ReportHandler {
	return &ReportHandler{reports: reports, tr: tr}
}

// Sales serves GET /v1/reports?range=&from=&to=&page=&size=.
func (h *ReportHandler) Sales(c *gin.Context) {
	page, size, ok := h.paging(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rep, err := h.reports.Sales(ctx, usecase.ReportQuery{
		Range: c.Query("range"),
		From:  c.Query("from"),
		To:    c.Query("to"),
		Page:  page,
		Size:  size,
	})
	if err != nil {
		respondError(c, h.tr, i18n.ActReport, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// CustomerOrders serves GET /v1/customers/:id/orders?page=&size=.
func (h *ReportHandler) CustomerOrders(c *gin.Context) {
	page, size, ok := h.paging(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	hist, err := h.reports.CustomerHistory(ctx, c.Param("id"), page, size)
	if err != nil {
		respondError(c, h.tr, i18n.ActPurchaseHistory, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}

// paging reads page and size; absent values are left to the use case.
func (h *ReportHandler) paging(c *gin.Context) (page, size int, ok bool) {
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &page}, {"size", &size}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResp{Error: "invalid_request", Message: h.tr.T(i18n.MsgInvalidRequest)})
			return 0, 0, false
		}
		*p.dst = n
	}
	return page, size, true
}
