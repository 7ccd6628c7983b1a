package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	aggdomain "github.com/smallbiznis/pricewatch/internal/aggregation/domain"
)

// resolveSources returns the explicit ?sources= list, the favorite stores
// when ?favorites=true, or nil for every registered source.
func (s *Server) resolveSources(c *gin.Context) ([]string, error) {
	if sources := splitCSV(c.Query("sources")); len(sources) > 0 {
		return sources, nil
	}
	favorites, err := parseOptionalBool(c.Query("favorites"))
	if err != nil {
		return nil, newValidationError("favorites", "invalid_favorites", "invalid favorites")
	}
	if favorites != nil && *favorites {
		return s.prefs.Get().FavoriteStores, nil
	}
	return nil, nil
}

func (s *Server) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		AbortWithError(c, newValidationError("q", "required", "q is required"))
		return
	}
	sources, err := s.resolveSources(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.aggregation.Search(c.Request.Context(), aggdomain.SearchRequest{
		Query:   query,
		Sources: sources,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPromotions(c *gin.Context) {
	sources, err := s.resolveSources(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.aggregation.Promotions(c.Request.Context(), sources)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Refresh runs a price refresh in the request. Only one manual refresh runs
// at a time; a second caller gets 409.
func (s *Server) Refresh(c *gin.Context) {
	select {
	case s.refreshGuard <- struct{}{}:
	default:
		AbortWithError(c, ErrConflict)
		return
	}
	defer func() { <-s.refreshGuard }()

	resp, err := s.aggregation.Refresh(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
