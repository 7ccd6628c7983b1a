package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	shoppinglistdomain "github.com/smallbiznis/pricewatch/internal/shoppinglist/domain"
)

type createListRequest struct {
	Name string `json:"name"`
}

type addListItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

func (s *Server) CreateList(c *gin.Context) {
	var req createListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.shoppingSvc.CreateList(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListLists(c *gin.Context) {
	resp, err := s.shoppingSvc.ListLists(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetListByID(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, shoppinglistdomain.ErrInvalidID)
		return
	}

	resp, err := s.shoppingSvc.GetList(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddListItem(c *gin.Context) {
	listID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, shoppinglistdomain.ErrInvalidID)
		return
	}

	var req addListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	productID, err := parseSnowflakeID(req.ProductID)
	if err != nil {
		AbortWithError(c, newValidationError("product_id", "invalid_product_id", "invalid product_id"))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	resp, err := s.shoppingSvc.AddItem(c.Request.Context(), listID, shoppinglistdomain.AddItemRequest{
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveListItem(c *gin.Context) {
	listID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, shoppinglistdomain.ErrInvalidID)
		return
	}
	itemID, err := parseSnowflakeID(c.Param("itemId"))
	if err != nil {
		AbortWithError(c, shoppinglistdomain.ErrInvalidID)
		return
	}

	if err := s.shoppingSvc.RemoveItem(c.Request.Context(), listID, itemID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetListSavings(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, shoppinglistdomain.ErrInvalidID)
		return
	}

	resp, err := s.shoppingSvc.Price(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
