package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
	"github.com/JoergFritschi-crypto/garden-climate/internal/pipeline"
)

// maxComputeBody caps uploaded datasets; 30 years of daily records is well under it.
const maxComputeBody = 32 << 20

type computeRequest struct {
	Latitude *float64       `json:"latitude"`
	Records  domain.Dataset `json:"records"`
}

// handleClimate serves GET /v1/climate?location=<name> or ?lat=&lon=, with optional years and refresh.
func (s *Server) handleClimate(w http.ResponseWriter, r *http.Request) {
	req, err := parseClimateQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.reports.Generate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseClimateQuery(r *http.Request) (domain.ReportRequest, error) {
	q := r.URL.Query()
	req := domain.ReportRequest{
		RequestID: r.Header.Get("X-Request-ID"),
		Location:  q.Get("location"),
	}

	var err error
	if req.Lat, err = optionalFloat(q.Get("lat"), "lat"); err != nil {
		return req, err
	}
	if req.Lon, err = optionalFloat(q.Get("lon"), "lon"); err != nil {
		return req, err
	}
	if v := q.Get("years"); v != "" {
		if req.Years, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("%w: years must be an integer", domain.ErrInvalidRequest)
		}
	}
	if v := q.Get("refresh"); v != "" {
		if req.Refresh, err = strconv.ParseBool(v); err != nil {
			return req, fmt.Errorf("%w: refresh must be a boolean", domain.ErrInvalidRequest)
		}
	}
	return req, req.Validate()
}

func optionalFloat(s, name string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidRequest, name)
	}
	return &v, nil
}

// handleCompute serves POST /v1/climate/compute for a caller-supplied dataset.
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var body computeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxComputeBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
		return
	}
	if body.Latitude != nil && (*body.Latitude < -90 || *body.Latitude > 90) {
		s.writeError(w, r, fmt.Errorf("%w: latitude out of range", domain.ErrInvalidRequest))
		return
	}

	report, err := s.reports.Compute(r.Context(), body.Records, body.Latitude)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleZones serves GET /v1/zones?coldest=<°C>.
func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	coldest, err := optionalFloat(r.URL.Query().Get("coldest"), "coldest")
	if err == nil && coldest == nil {
		err = fmt.Errorf("%w: coldest is required", domain.ErrInvalidRequest)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ClassifyZones(*coldest))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrLocationRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
