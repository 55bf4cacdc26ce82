package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meetingindex.app/internal/core/meeting"
	"meetingindex.app/internal/core/search"
	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

// searchQuery binds the /meetings query parameters. The geo filter applies
// only when the full latitude/longitude/distance triple is given; partial
// triples fall back to an unfiltered search.
type searchQuery struct {
	Latitude  *float64 `form:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `form:"longitude" binding:"omitempty,gte=-180,lte=180"`
	Distance  *float64 `form:"distance" binding:"omitempty,gt=0"`
}

func (q searchQuery) toRequest() search.Request {
	if q.Latitude == nil || q.Longitude == nil || q.Distance == nil {
		return search.Request{}
	}
	return search.Request{Distance: &ports.DistanceSearch{
		Latitude:  *q.Latitude,
		Longitude: *q.Longitude,
		Distance:  *q.Distance,
	}}
}

// getMeetings handles GET /meetings requests
func (s *HTTPServerAdapter) getMeetings(c *gin.Context) {
	var query searchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.handleError(c, errors.NewValidationError("invalid query parameters"))
		return
	}

	results, err := s.searchUseCase.Search(c.Request.Context(), query.toRequest())
	if err != nil {
		s.logger.Error("Meeting search failed", ports.F("error", err))
		s.handleError(c, err)
		return
	}

	if results == nil {
		results = []meeting.SearchMeeting{}
	}
	c.JSON(http.StatusOK, results)
}
