package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
)

// SyncService superficie del orquestador usada por la API.
type SyncService interface {
	RunFullSync(ctx context.Context) (string, error)
	RunAccountSync(ctx context.Context, accountID string) (string, error)
	RunSkuSync(ctx context.Context, sku string) (string, error)
	Status(jobID string) (dto.JobStatusDTO, bool)
}

// LockReader consulta de auditoría de locks por SKU.
type LockReader interface {
	Get(ctx context.Context, sku string) (*entity.SyncLock, error)
}

// OrderSyncer pasada de ingesta de pedidos bajo demanda.
type OrderSyncer interface {
	Run(ctx context.Context, accountID string) (*dto.OrderPassDTO, error)
	ResetWatermark(ctx context.Context, accountID string) error
}

// SyncHandler endpoints de sincronización de ofertas y pedidos.
type SyncHandler struct {
	sync   SyncService
	locks  LockReader
	orders OrderSyncer
}

// NewSyncHandler construye el handler.
func NewSyncHandler(sync SyncService, locks LockReader, orders OrderSyncer) *SyncHandler {
	return &SyncHandler{sync: sync, locks: locks, orders: orders}
}

// RunFull godoc
// @Summary      Sincronización completa
// @Description  Reconcilia todos los SKUs en todas las cuentas activas. El job corre en segundo plano.
// @Tags         sync
// @Produce      json
// @Success      202  {object}  dto.JobAcceptedResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/sync/full [post]
func (h *SyncHandler) RunFull(c *fiber.Ctx) error {
	id, err := h.sync.RunFullSync(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.JobAcceptedResponse{JobID: id})
}

// RunAccount godoc
// @Summary      Sincronizar una cuenta
// @Tags         sync
// @Produce      json
// @Param        id   path  string  true  "ID de la cuenta"
// @Success      202  {object}  dto.JobAcceptedResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sync/accounts/{id} [post]
func (h *SyncHandler) RunAccount(c *fiber.Ctx) error {
	id, err := h.sync.RunAccountSync(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.JobAcceptedResponse{JobID: id})
}

// RunSKU godoc
// @Summary      Sincronizar un SKU en todas las cuentas
// @Tags         sync
// @Produce      json
// @Param        sku  path  string  true  "SKU"
// @Success      202  {object}  dto.JobAcceptedResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sync/skus/{sku} [post]
func (h *SyncHandler) RunSKU(c *fiber.Ctx) error {
	id, err := h.sync.RunSkuSync(c.UserContext(), c.Params("sku"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.JobAcceptedResponse{JobID: id})
}

// JobStatus godoc
// @Summary      Estado de un job de sincronización
// @Tags         sync
// @Produce      json
// @Param        id   path  string  true  "ID del job"
// @Success      200  {object}  dto.JobStatusDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sync/jobs/{id} [get]
func (h *SyncHandler) JobStatus(c *fiber.Ctx) error {
	st, ok := h.sync.Status(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "job no encontrado"})
	}
	return c.JSON(st)
}

// Lock godoc
// @Summary      Último estado del lock de un SKU
// @Tags         sync
// @Produce      json
// @Param        sku  path  string  true  "SKU"
// @Success      200  {object}  dto.SyncLockDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sync/locks/{sku} [get]
func (h *SyncHandler) Lock(c *fiber.Ctx) error {
	l, err := h.locks.Get(c.UserContext(), c.Params("sku"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.SyncLockDTO{
		SKU:        l.SKU,
		Owner:      l.Owner,
		Status:     string(l.Status),
		AcquiredAt: l.AcquiredAt,
		LastError:  l.LastError,
		UpdatedAt:  l.UpdatedAt,
	})
}

// SyncOrders godoc
// @Summary      Pasada de ingesta de pedidos
// @Description  Ejecuta una pasada síncrona para la cuenta y devuelve sus contadores.
// @Tags         orders
// @Produce      json
// @Param        account  path  string  true  "ID de la cuenta"
// @Success      200  {object}  dto.OrderPassDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/sync/{account} [post]
func (h *SyncHandler) SyncOrders(c *fiber.Ctx) error {
	res, err := h.orders.Run(c.UserContext(), c.Params("account"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// ResetWatermark godoc
// @Summary      Reiniciar la marca de agua de pedidos
// @Tags         orders
// @Param        account  path  string  true  "ID de la cuenta"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/watermark/{account} [delete]
func (h *SyncHandler) ResetWatermark(c *fiber.Ctx) error {
	account := c.Params("account")
	if account == "" {
		return writeError(c, domain.ErrInvalidInput)
	}
	if err := h.orders.ResetWatermark(c.UserContext(), account); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
