package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/service"
)

type InventoryHandler struct {
	Inventory Inventory
	Log       logrus.FieldLogger
}

func NewInventoryHandler(inv Inventory, log logrus.FieldLogger) *InventoryHandler {
	return &InventoryHandler{Inventory: inv, Log: log}
}

type inventoryItem struct {
	RoomID     uint64 `json:"roomId" validate:"required"`
	TotalCount int    `json:"totalCount" validate:"min=0"`
}

type inventoryReq struct {
	Items []inventoryItem `json:"items" validate:"required,min=1,dive"`
}

// Update handles PATCH /v1/admin/rooms/inventory.  Either every item is
// applied or none is.
func (h *InventoryHandler) Update(c echo.Context) error {
	var req inventoryReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	changes := make([]service.InventoryChange, len(req.Items))
	for i, it := range req.Items {
		changes[i] = service.InventoryChange{RoomID: it.RoomID, TotalCount: it.TotalCount}
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	rooms, err := h.Inventory.UpdateTotals(ctx, changes)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rooms})
}
