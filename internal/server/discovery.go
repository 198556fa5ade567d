package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/hyperjump/tansaku/internal/discovery"
	"github.com/hyperjump/tansaku/internal/models"
	"go.uber.org/zap"
)

// searchParams are the discovery query parameters. Absent limit/offset stay models.Unset.
type searchParams struct {
	query          string
	limit          int
	offset         int
	excludeDeleted bool
}

func parseSearchParams(r *http.Request) (searchParams, error) {
	q := r.URL.Query()
	p := searchParams{query: q.Get("query"), limit: models.Unset, offset: models.Unset}
	var err error
	if p.limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return p, err
	}
	if p.offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return p, err
	}
	if v := q.Get("excludeDeletedEntities"); v != "" {
		if p.excludeDeleted, err = strconv.ParseBool(v); err != nil {
			return p, fmt.Errorf("%w: excludeDeletedEntities must be a boolean, got %q", discovery.ErrInvalidArgument, v)
		}
	}
	return p, nil
}

func intParam(v, name string) (int, error) {
	if v == "" {
		return models.Unset, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", discovery.ErrInvalidArgument, name, v)
	}
	return n, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchParams(r)
	if err != nil {
		s.respondDiscoveryError(w, r, err)
		return
	}
	env, err := s.dispatcher.Search(r.Context(), p.query, p.limit, p.offset)
	s.respondEnvelope(w, r, env, err)
}

func (s *Server) handleSearchDSL(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchParams(r)
	if err != nil {
		s.respondDiscoveryError(w, r, err)
		return
	}
	env, err := s.dispatcher.SearchDSL(r.Context(), p.query, p.limit, p.offset)
	s.respondEnvelope(w, r, env, err)
}

func (s *Server) handleSearchFullText(w http.ResponseWriter, r *http.Request) {
	p, err := parseSearchParams(r)
	if err != nil {
		s.respondDiscoveryError(w, r, err)
		return
	}
	env, err := s.dispatcher.SearchFullText(r.Context(), p.query, p.limit, p.offset, p.excludeDeleted)
	s.respondEnvelope(w, r, env, err)
}

func (s *Server) respondEnvelope(w http.ResponseWriter, r *http.Request, env *discovery.Envelope, err error) {
	if err != nil {
		s.respondDiscoveryError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, env)
}

// respondDiscoveryError maps the error class to 400 or 500.
func (s *Server) respondDiscoveryError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if discovery.Classify(err) == discovery.ClassClient {
		status = http.StatusBadRequest
		s.logger.Debug("discovery request rejected", zap.Error(err))
	} else {
		s.logger.Error("discovery search failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
	}
	s.respondError(w, r, status, err.Error())
}
