package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/i18n"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	create    *usecase.CreateProduct
	catalog   *usecase.Catalog
	customers *usecase.CustomerDirectory
	tr        *i18n.Translator
}

func NewCatalogHandler(create *usecase.CreateProduct, catalog *usecase.Catalog,
	customers *usecase.CustomerDirectory, tr *i18n.Translator) *CatalogHandler {
	return &CatalogHandler{create: create, catalog: catalog, customers: customers, tr: tr}
}

type createProductReq struct {
	Name        string         `json:"name"`
	ImportPrice int64          `json:"importPrice"`
	RetailPrice int64          `json:"retailPrice"`
	Category    string         `json:"category"`
	Quantity    int            `json:"quantity"`
	Description string         `json:"description"`
	Images      []domain.Image `json:"images"`
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResp{Error: "invalid_request", Message: h.tr.T(i18n.MsgInvalidRequest)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	p, err := h.create.Execute(ctx, usecase.CreateProductInput{
		Name:        req.Name,
		ImportPrice: req.ImportPrice,
		RetailPrice: req.RetailPrice,
		CategoryID:  req.Category,
		Quantity:    req.Quantity,
		Description: req.Description,
		Images:      req.Images,
	})
	if err != nil {
		respondError(c, h.tr, i18n.ActCreateProduct, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": h.tr.T(i18n.MsgProductCreated), "product": p})
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	p, err := h.catalog.ByBarcode(ctx, c.Param("barcode"))
	if err != nil {
		respondError(c, h.tr, i18n.ActLookup, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// cartDraft is what the register adds to the cart for a looked-up product.
type cartDraft struct {
	ProductID string `json:"product_id"`
	Barcode   string `json:"barcode"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Total     int64  `json:"total"`
	InStock   bool   `json:"inStock"`
}

func (h *CatalogHandler) CartLookup(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResp{Error: "invalid_request", Message: h.tr.T(i18n.MsgQueryRequired)})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	products, err := h.catalog.Lookup(ctx, q)
	if err != nil {
		respondError(c, h.tr, i18n.ActLookup, err)
		return
	}
	items := make([]cartDraft, 0, len(products))
	for _, p := range products {
		items = append(items, cartDraft{
			ProductID: p.ID,
			Barcode:   p.Barcode,
			Name:      p.Name,
			UnitPrice: p.RetailPrice,
			Quantity:  1,
			Total:     p.RetailPrice,
			InStock:   p.InStock,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *CatalogHandler) FindCustomer(c *gin.Context) {
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResp{Error: "invalid_request", Message: h.tr.T(i18n.MsgPhoneRequired)})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	cust, err := h.customers.FindByPhone(ctx, phone)
	if err != nil {
		respondError(c, h.tr, i18n.ActLookup, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}
