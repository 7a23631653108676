package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stocksync/internal/application/dto"
	"github.com/jhoicas/stocksync/internal/domain"
	"github.com/jhoicas/stocksync/internal/domain/entity"
	"github.com/jhoicas/stocksync/internal/domain/repository"
)

// Ledger operaciones del libro de stock expuestas por HTTP.
type Ledger interface {
	Restock(ctx context.Context, sku, warehouse string, qty int) error
	Transfer(ctx context.Context, sku string, qty int, from, to string) error
	Deduct(ctx context.Context, sku, warehouse string, qty int) (*entity.Sale, error)
	StockBySKU(ctx context.Context, sku string) ([]*entity.Stock, error)
	ListSales(ctx context.Context, filter repository.SaleFilter) ([]*entity.Sale, error)
	ApplyMovementFromRequest(ctx context.Context, in dto.StockMovementRequest) error
	ImportProductFromRequest(ctx context.Context, in dto.ImportProductRequest) (bool, error)
}

// StockHandler movimientos de stock, consultas del libro e importación de productos.
type StockHandler struct {
	ledger Ledger
}

// NewStockHandler construye el handler.
func NewStockHandler(ledger Ledger) *StockHandler {
	return &StockHandler{ledger: ledger}
}

// Movement godoc
// @Summary      Registrar un movimiento de stock (RESTOCK, TRANSFER o DEDUCT)
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockMovementRequest  true  "Movimiento"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/movements [post]
func (h *StockHandler) Movement(c *fiber.Ctx) error {
	var in dto.StockMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.ledger.ApplyMovementFromRequest(c.UserContext(), in); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "movimiento registrado"})
}

// Restock godoc
// @Summary      Reponer stock
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockMovementRequest  true  "sku, warehouse, quantity"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/restock [post]
func (h *StockHandler) Restock(c *fiber.Ctx) error {
	var in dto.StockMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.ledger.Restock(c.UserContext(), in.SKU, in.Warehouse, in.Quantity); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "stock repuesto"})
}

// Transfer godoc
// @Summary      Transferir stock entre bodegas
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockMovementRequest  true  "sku, from_warehouse, to_warehouse, quantity"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/transfer [post]
func (h *StockHandler) Transfer(c *fiber.Ctx) error {
	var in dto.StockMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.ledger.Transfer(c.UserContext(), in.SKU, in.Quantity, in.FromWarehouse, in.ToWarehouse); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "transferencia registrada"})
}

// Deduct godoc
// @Summary      Descontar stock (venta manual)
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockMovementRequest  true  "sku, warehouse, quantity"
// @Success      201   {object}  dto.SaleDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/deduct [post]
func (h *StockHandler) Deduct(c *fiber.Ctx) error {
	var in dto.StockMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	sale, err := h.ledger.Deduct(c.UserContext(), in.SKU, in.Warehouse, in.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSaleDTO(sale))
}

// Get godoc
// @Summary      Stock de un SKU por bodega
// @Tags         stock
// @Produce      json
// @Param        sku  path  string  true  "SKU"
// @Success      200  {object}  dto.StockResponse
// @Router       /api/stock/{sku} [get]
func (h *StockHandler) Get(c *fiber.Ctx) error {
	sku := c.Params("sku")
	rows, err := h.ledger.StockBySKU(c.UserContext(), sku)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.StockResponse{SKU: sku, Warehouses: make([]dto.StockRowDTO, 0, len(rows))}
	for _, r := range rows {
		out.Total += r.Quantity
		out.Warehouses = append(out.Warehouses, dto.StockRowDTO{
			Warehouse: r.Warehouse,
			Quantity:  r.Quantity,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return c.JSON(out)
}

// Sales godoc
// @Summary      Log de ventas
// @Tags         stock
// @Produce      json
// @Param        sku     query  string  false  "Filtrar por SKU"
// @Param        from    query  string  false  "Desde (RFC3339)"
// @Param        to      query  string  false  "Hasta (RFC3339)"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {array}   dto.SaleDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/sales [get]
func (h *StockHandler) Sales(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return writeError(c, domain.ErrInvalidInput)
	}
	page.DefaultPage()
	filter := repository.SaleFilter{SKU: c.Query("sku"), Limit: page.Limit, Offset: page.Offset}
	var err error
	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		return writeError(c, err)
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		return writeError(c, err)
	}
	sales, err := h.ledger.ListSales(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.SaleDTO, 0, len(sales))
	for _, s := range sales {
		out = append(out, toSaleDTO(s))
	}
	return c.JSON(out)
}

// ImportProduct godoc
// @Summary      Importar producto
// @Description  Crea el producto o fusiona nombre y EANs si el SKU ya existe. Con warehouse y quantity
//
//	repone stock en la misma operación.
//
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ImportProductRequest  true  "Producto"
// @Success      200   {object}  map[string]any
// @Success      201   {object}  map[string]any
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/products [put]
func (h *StockHandler) ImportProduct(c *fiber.Ctx) error {
	var in dto.ImportProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	created, err := h.ledger.ImportProductFromRequest(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"sku": in.SKU, "created": created})
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	return &t, nil
}

func toSaleDTO(s *entity.Sale) dto.SaleDTO {
	return dto.SaleDTO{
		ID:        s.ID,
		SKU:       s.SKU,
		Warehouse: s.Warehouse,
		Quantity:  s.Quantity,
		UnitPrice: s.UnitPrice.StringFixed(2),
		OrderID:   s.OrderID,
		SoldAt:    s.SoldAt,
	}
}
