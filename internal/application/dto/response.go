package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/itemsvc/internal/domain/models"
	"github.com/turtacn/itemsvc/pkg/constants"
	"github.com/turtacn/itemsvc/pkg/errors"
)

// ItemResponse 条目查询响应
type ItemResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewItemResponse converts a stored item into its wire form.
func NewItemResponse(item *models.Item) ItemResponse {
	return ItemResponse{ID: item.ID, Name: item.Name}
}

// ErrorResponse 错误响应. Only client-safe text is ever placed here.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// NewErrorResponse maps err to its status code and body. Errors outside the service taxonomy
// become a generic internal error so no cause text leaks to the client.
func NewErrorResponse(err error) (int, ErrorResponse) {
	svcErr, ok := errors.AsServiceError(err)
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{
			Error:            string(constants.ErrCodeInternal),
			ErrorDescription: "An unexpected error occurred",
		}
	}
	return svcErr.HTTPStatus(), ErrorResponse{
		Error:            string(svcErr.Code()),
		ErrorDescription: svcErr.Description(),
	}
}

// SendError writes err as a JSON error response and aborts the handler chain.
func SendError(c *gin.Context, err error) {
	status, body := NewErrorResponse(err)
	c.AbortWithStatusJSON(status, body)
}
