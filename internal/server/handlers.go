package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spigell/erranza/internal/catalog"
	"github.com/spigell/erranza/internal/questionnaire"
	"github.com/spigell/erranza/internal/service"
	"github.com/spigell/erranza/internal/session"
)

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type DestinationsQuery struct {
	Countries       []string `form:"country"`
	Regions         []string `form:"region"`
	MaxFlightHours  float64  `form:"max_flight_hours" binding:"gte=0"`
	IncludeInactive bool     `form:"include_inactive"`
}

func (s *Server) Destinations(c *gin.Context) {
	var q DestinationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	filtered, statuses, err := s.matcher.Destinations(c.Request.Context(), catalog.Config{
		Countries:       splitList(q.Countries),
		Regions:         splitList(q.Regions),
		MaxFlightHours:  q.MaxFlightHours,
		IncludeInactive: q.IncludeInactive,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":        filtered.Len(),
		"destinations": filtered.Items,
		"filters":      statuses,
	})
}

type MatchRequest struct {
	RespondentID   string                    `json:"respondent_id"`
	Answers        questionnaire.RawResponse `json:"answers"`
	Top            int                       `json:"top" binding:"gte=0,lte=50"`
	Countries      []string                  `json:"countries"`
	Regions        []string                  `json:"regions"`
	MaxFlightHours float64                   `json:"max_flight_hours" binding:"gte=0"`
	Exclude        []string                  `json:"exclude"`
	NoPersist      bool                      `json:"no_persist"`
	SkipProse      bool                      `json:"skip_prose"`
}

func (s *Server) Match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	req.RespondentID = strings.TrimSpace(req.RespondentID)
	if req.RespondentID == "" && req.Answers == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "respondent_id or answers is required"})
		return
	}

	opts := service.Options{
		Top: req.Top,
		Catalog: catalog.Config{
			Countries:      splitList(req.Countries),
			Regions:        splitList(req.Regions),
			MaxFlightHours: req.MaxFlightHours,
			Exclude:        req.Exclude,
		},
		NoPersist: req.NoPersist,
		SkipProse: req.SkipProse,
	}

	sess := session.New(session.SourceAPI)

	var (
		report *service.Report
		err    error
	)
	if req.Answers != nil {
		report, err = s.matcher.MatchAnswers(c.Request.Context(), sess, req.RespondentID, req.Answers, opts)
	} else {
		report, err = s.matcher.Match(c.Request.Context(), sess, req.RespondentID, opts)
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) Traits(c *gin.Context) {
	report, err := s.matcher.Traits(c.Request.Context(), c.Param("respondent"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// splitList accepts both repeated values and comma separated lists.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
