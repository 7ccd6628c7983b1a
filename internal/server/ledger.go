package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/pricewatch/internal/ledger/domain"
)

type productResponse struct {
	ID        snowflake.ID    `json:"id"`
	Name      string          `json:"name"`
	Source    string          `json:"source"`
	Price     decimal.Decimal `json:"price"`
	URL       string          `json:"url,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type lowestPriceResponse struct {
	Name   string          `json:"name"`
	Lowest decimal.Decimal `json:"lowest"`
}

func (s *Server) ListProducts(c *gin.Context) {
	resp, err := s.ledgerSvc.ListProducts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductByID(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ledgerdomain.ErrInvalidProductID)
		return
	}

	product, err := s.ledgerSvc.GetProduct(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": productResponse{
		ID:        product.ID,
		Name:      product.Name,
		Source:    product.Source,
		Price:     product.PriceDecimal(),
		URL:       product.URLString(),
		CreatedAt: product.CreatedAt,
		UpdatedAt: product.UpdatedAt,
	}})
}

func (s *Server) historyFilter(c *gin.Context) (ledgerdomain.HistoryFilter, error) {
	since, err := parseHistorySince(c.Query("range"), s.clock.Now())
	if err != nil {
		return ledgerdomain.HistoryFilter{}, newValidationError("range", "invalid_range", "range must be one of 1w, 1m, 3m, 6m, 1y, all")
	}
	return ledgerdomain.HistoryFilter{Since: since}, nil
}

func (s *Server) GetProductHistory(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ledgerdomain.ErrInvalidProductID)
		return
	}
	filter, err := s.historyFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	points, found, err := s.ledgerSvc.GetHistory(c.Request.Context(), id, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !found {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": points})
}

func (s *Server) GetHistoryByName(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	source := strings.TrimSpace(c.Query("source"))
	if name == "" || source == "" {
		AbortWithError(c, newValidationError("name", "required", "name and source are required"))
		return
	}
	filter, err := s.historyFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	points, found, err := s.ledgerSvc.GetHistoryByName(c.Request.Context(), name, source, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !found {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": points})
}

func (s *Server) ListPricesByName(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		AbortWithError(c, newValidationError("name", "required", "name is required"))
		return
	}

	ctx := c.Request.Context()
	rows, err := s.ledgerSvc.ListByName(ctx, name)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{"name": name, "prices": rows}
	if len(rows) > 0 {
		// rows are sorted by price, lowest first
		resp["lowest"] = rows[0].Price
		resp["lowest_source"] = rows[0].Source
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLowestPrice(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		AbortWithError(c, newValidationError("name", "required", "name is required"))
		return
	}

	lowest, found, err := s.ledgerSvc.GetLowestPrice(c.Request.Context(), name)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !found {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": lowestPriceResponse{Name: name, Lowest: lowest}})
}
