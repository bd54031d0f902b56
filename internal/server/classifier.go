package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/classifier"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/classify"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/metrics"
)

type classifierService struct {
	threshold float64
	log       *zap.Logger
	now       func() time.Time
}

// NewClassifier serves the keyword classifier with the same contract as the
// hosted model: POST /classify and GET /health.
func NewClassifier(threshold float64, log *zap.Logger) *echo.Echo {
	if log == nil {
		log = zap.NewNop()
	}
	s := &classifierService{threshold: threshold, log: log.Named("classifier"), now: time.Now}
	e := newEcho(s.log)
	e.GET("/health", s.health)
	e.POST("/classify", s.classify)
	return e
}

func (s *classifierService) health(c echo.Context) error {
	return c.JSON(http.StatusOK, classifier.Health{Status: "ok", TS: s.now().Unix()})
}

func (s *classifierService) classify(c echo.Context) error {
	start := time.Now()

	var req classifier.Request
	// A malformed body is treated like an empty one.
	if err := c.Bind(&req); err != nil {
		s.log.Debug("ignoring malformed classify body", zap.Error(err))
	}
	abstract := strings.TrimSpace(req.Abstract)
	if abstract == "" {
		metrics.RecordClassify("invalid", time.Since(start).Seconds())
		return echo.NewHTTPError(http.StatusBadRequest, "abstract is required")
	}

	resp := classify.Classify(abstract, s.threshold)
	metrics.RecordClassify("ok", time.Since(start).Seconds())
	s.log.Debug("classified",
		zap.String("discipline", resp.PrimaryCategory),
		zap.String("methodology", resp.ResearchMethodology),
		zap.Int("categories", len(resp.Categories)))
	return c.JSON(http.StatusOK, resp)
}
