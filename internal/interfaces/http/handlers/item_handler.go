package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/itemsvc/internal/application/dto"
	"github.com/turtacn/itemsvc/internal/application/service"
	"github.com/turtacn/itemsvc/pkg/errors"
)

// ItemHandler serves item lookups.
type ItemHandler struct {
	itemService service.ItemAppService
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(itemService service.ItemAppService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

// GetItem godoc
// @Summary      Get item
// @Description  Looks up a single item by its numeric identifier.
// @Tags         items
// @Produce      json
// @Param        id   path      int  true  "Item ID"
// @Success      200  {object}  dto.ItemResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/item/{id} [get]
func (h *ItemHandler) GetItem(c *gin.Context) {
	id, err := parseItemID(c.Param("id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}

	item, err := h.itemService.GetItem(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		dto.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// parseItemID accepts positive base-10 integers only.
func parseItemID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.ErrValidation("item id must be a positive integer")
	}
	return id, nil
}
