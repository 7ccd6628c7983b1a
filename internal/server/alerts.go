package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	savingsdomain "github.com/smallbiznis/pricewatch/internal/savings/domain"
)

type evaluateAlertsRequest struct {
	Thresholds map[string]decimal.Decimal `json:"thresholds"`
}

// EvaluateAlerts checks the posted thresholds, or the preference thresholds
// when the body is empty.
func (s *Server) EvaluateAlerts(c *gin.Context) {
	var req evaluateAlertsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	thresholds := req.Thresholds
	if len(thresholds) == 0 {
		thresholds = s.prefs.Get().Thresholds()
	}

	resp, err := s.alertSvc.Evaluate(c.Request.Context(), thresholds)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type savingsLineRequest struct {
	Name          string          `json:"name"`
	Source        string          `json:"source"`
	Quantity      int             `json:"quantity"`
	RecordedPrice decimal.Decimal `json:"recorded_price"`
}

type computeSavingsRequest struct {
	Items []savingsLineRequest `json:"items"`
}

func (s *Server) ComputeSavings(c *gin.Context) {
	var req computeSavingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items := make([]savingsdomain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, savingsdomain.LineItem{
			Name:          strings.TrimSpace(item.Name),
			Source:        strings.TrimSpace(item.Source),
			Quantity:      item.Quantity,
			RecordedPrice: item.RecordedPrice,
		})
	}

	resp, err := s.savingsSvc.Breakdown(c.Request.Context(), items)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
