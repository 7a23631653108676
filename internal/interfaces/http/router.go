package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Sync     SyncService
	Locks    LockReader
	Orders   OrderSyncer
	Ledger   Ledger
	APIToken string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", APITokenMiddleware(deps.APIToken))

	// Sincronización de ofertas (asíncrona, 202 + job_id)
	syncHandler := NewSyncHandler(deps.Sync, deps.Locks, deps.Orders)
	syncGroup := api.Group("/sync")
	syncGroup.Post("/full", syncHandler.RunFull)
	syncGroup.Post("/accounts/:id", syncHandler.RunAccount)
	syncGroup.Post("/skus/:sku", syncHandler.RunSKU)
	syncGroup.Get("/jobs/:id", syncHandler.JobStatus)
	syncGroup.Get("/locks/:sku", syncHandler.Lock)

	// Pedidos
	ordersGroup := api.Group("/orders")
	ordersGroup.Post("/sync/:account", syncHandler.SyncOrders)
	ordersGroup.Delete("/watermark/:account", syncHandler.ResetWatermark)

	// Libro de stock
	stockHandler := NewStockHandler(deps.Ledger)
	stock := api.Group("/stock")
	stock.Post("/movements", stockHandler.Movement)
	stock.Post("/restock", stockHandler.Restock)
	stock.Post("/transfer", stockHandler.Transfer)
	stock.Post("/deduct", stockHandler.Deduct)
	stock.Get("/:sku", stockHandler.Get)
	api.Get("/sales", stockHandler.Sales)
	api.Put("/products", stockHandler.ImportProduct)
}
