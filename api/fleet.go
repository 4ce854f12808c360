package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// getFleetStatistics returns the live fleet aggregate for dashboards.
func (s *Server) getFleetStatistics(c *gin.Context) {
	stats, err := s.stats.ReadAggregate(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read fleet statistics")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "statistics temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
