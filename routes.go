package main

import (
	"bitbucket.org/mmdatafocus/retail_ledger/models"
	"github.com/gin-gonic/gin"
)

func registerRoutes(api *gin.RouterGroup) {
	customers := api.Group("/customers")
	customers.GET("", listByNameHandler("name", models.ListCustomers))
	customers.POST("", createHandler(models.CreateCustomer))
	customers.GET("/:id", idHandler(models.GetCustomer))
	customers.PUT("/:id", updateHandler(models.UpdateCustomer))
	customers.DELETE("/:id", idHandler(models.DeleteCustomer))

	suppliers := api.Group("/suppliers")
	suppliers.GET("", listByNameHandler("company", models.ListSuppliers))
	suppliers.POST("", createHandler(models.CreateSupplier))
	suppliers.GET("/:id", idHandler(models.GetSupplier))
	suppliers.PUT("/:id", updateHandler(models.UpdateSupplier))
	suppliers.DELETE("/:id", idHandler(models.DeleteSupplier))

	sources := api.Group("/sources")
	sources.GET("", listByNameHandler("name", models.ListSources))
	sources.POST("", createHandler(models.CreateSource))
	sources.GET("/:id", idHandler(models.GetSource))
	sources.PUT("/:id", updateHandler(models.UpdateSource))
	sources.DELETE("/:id", idHandler(models.DeleteSource))

	categories := api.Group("/categories")
	categories.GET("", listByNameHandler("name", models.ListCategories))
	categories.POST("", createHandler(models.CreateCategory))
	categories.GET("/:id", idHandler(models.GetCategory))
	categories.PUT("/:id", updateHandler(models.UpdateCategory))
	categories.DELETE("/:id", idHandler(models.DeleteCategory))

	products := api.Group("/products")
	products.GET("", listProductsHandler)
	products.POST("", createHandler(models.CreateProduct))
	products.GET("/:id", idHandler(models.GetProduct))
	products.PUT("/:id", updateHandler(models.UpdateProduct))
	products.DELETE("/:id", idHandler(models.DeleteProduct))
	products.GET("/:id/movements", stockMovementsHandler)
	products.POST("/:id/image", productImageHandler)

	invoices := api.Group("/invoices")
	invoices.GET("", listInvoicesHandler)
	invoices.POST("", createInvoiceHandler)
	invoices.GET("/:id", getInvoiceHandler)
	invoices.DELETE("/:id", idHandler(models.DeleteInvoice))
	invoices.PUT("/:id/returns", updateReturnsHandler)

	payments := api.Group("/payments")
	payments.GET("", listPaymentsHandler)
	payments.POST("", createHandler(models.RecordCreditPayment))
	payments.GET("/:id", idHandler(models.GetCreditPayment))
	payments.DELETE("/:id", idHandler(models.DeleteCreditPayment))

	api.GET("/sales/total", salesTotalsHandler)
	api.GET("/sales/:dimension", salesByDimensionHandler)
	api.GET("/cashflow", cashflowHandler)
}
