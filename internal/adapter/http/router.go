package http

import (
	"github.com/aq2208/gorder-pos/internal/adapter/http/middleware"
	"github.com/aq2208/gorder-pos/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Checkout *CheckoutHandler
	Invoices *InvoiceHandler
	Catalog  *CatalogHandler
	Orders   *OrderHandler
	Reports  *ReportHandler
	// Metrics is optional.
	Metrics  middleware.HTTPRecorder
}

func NewRouter(h Handlers, authz *middleware.Authz) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if h.Metrics != nil {
		r.Use(middleware.Metrics(h.Metrics))
	}
	r.Use(middleware.Logging(logging.New("http")))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/checkout", authz.Require(middleware.PermCheckout), h.Checkout.Checkout)

		v1.GET("/invoices/:orderId", authz.Require(middleware.PermInvoicesRead), h.Invoices.Download)
		v1.POST("/invoices/:orderId/regenerate", authz.Require(middleware.PermInvoicesRead), h.Invoices.Regenerate)

		v1.POST("/products", authz.Require(middleware.PermCatalogWrite), h.Catalog.CreateProduct)
		v1.GET("/products/:barcode", authz.Require(middleware.PermRead), h.Catalog.GetProduct)
		v1.GET("/cart/lookup", authz.Require(middleware.PermRead), h.Catalog.CartLookup)
		v1.GET("/customers", authz.Require(middleware.PermRead), h.Catalog.FindCustomer)

		v1.GET("/orders/:id", authz.Require(middleware.PermRead), h.Orders.GetOrderByID)

		v1.GET("/reports", authz.Require(middleware.PermReportsRead), h.Reports.Sales)
		v1.GET("/customers/:id/orders", authz.Require(middleware.PermRead), h.Reports.CustomerOrders)
	}

	return r
}
