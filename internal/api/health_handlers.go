package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Component states, worst last.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

var severity = map[string]int{statusHealthy: 0, statusDegraded: 1, statusUnhealthy: 2}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Time the check took"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Worst component status"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports the session, the filter index, the reader and the event stream",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	checks := map[string]func() ComponentHealth{
		"session": s.checkSession,
		"search":  s.checkSearchIndex,
		"reader":  s.checkReader,
		"sse":     s.checkEvents,
	}

	resp := HealthResponse{Status: statusHealthy, Components: make(map[string]ComponentHealth, len(checks))}
	for name, check := range checks {
		c := check()
		resp.Components[name] = c
		if severity[c.Status] > severity[resp.Status] {
			resp.Status = c.Status
		}
	}
	return &HealthOutput{Body: resp}, nil
}

// checkSession is degraded while logged out; that is a normal state.
func (s *Server) checkSession() ComponentHealth {
	if s.services == nil || s.services.Session == nil {
		return ComponentHealth{Status: statusUnhealthy, Message: "session store not configured"}
	}
	user := s.services.Session.User()
	if user == nil {
		return ComponentHealth{Status: statusDegraded, Message: "not logged in"}
	}
	return ComponentHealth{Status: statusHealthy, Message: "logged in as " + user.Username}
}

func (s *Server) checkSearchIndex() ComponentHealth {
	if s.index == nil {
		return ComponentHealth{Status: statusDegraded, Message: "search index not configured"}
	}

	start := time.Now()
	count, err := s.index.DocumentCount()
	latency := time.Since(start).String()
	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Latency: latency, Message: err.Error()}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency, Message: fmt.Sprintf("%d documents indexed", count)}
}

func (s *Server) checkReader() ComponentHealth {
	if s.services == nil || s.services.Reader == nil {
		return ComponentHealth{Status: statusDegraded, Message: "reader not configured"}
	}
	v := s.services.Reader.View()
	if v.Book == nil {
		return ComponentHealth{Status: statusHealthy, Message: "no book open"}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Message: fmt.Sprintf("reading %q, chapter %d of %d", v.Book.Name, v.ChapterIndex+1, v.ChapterCount),
	}
}

func (s *Server) checkEvents() ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{Status: statusDegraded, Message: "event stream not configured"}
	}
	return ComponentHealth{Status: statusHealthy, Message: fmt.Sprintf("%d subscribers", s.sseManager.SubscriberCount())}
}
