// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/specforge/internal/api/job"
	"github.com/newthinker/specforge/internal/api/response"
	"github.com/newthinker/specforge/internal/core"
	"github.com/newthinker/specforge/internal/generator"
	"github.com/newthinker/specforge/internal/normalize"
	"github.com/newthinker/specforge/internal/schema"
	"github.com/newthinker/specforge/internal/schema/agent"
	"github.com/newthinker/specforge/internal/schema/backtest"
)

// generateTimeout bounds one async generation including corrections.
const generateTimeout = 10 * time.Minute

type generateRequest struct {
	Description string `json:"description"`
	Async       bool   `json:"async"`
}

type generateResponse struct {
	StrategySpec map[string]any `json:"strategy_spec"`
	Notes        map[string]any `json:"notes"`
	ArchivePath  string         `json:"archive_path,omitempty"`
}

type validateRequest struct {
	StrategySpec any  `json:"strategy_spec"`
	Normalize    bool `json:"normalize"`
}

type validateResponse struct {
	Valid        bool                `json:"valid"`
	Diagnostics  []schema.Diagnostic `json:"diagnostics"`
	StrategySpec map[string]any      `json:"strategy_spec,omitempty"`
	Assumptions  []string            `json:"assumptions,omitempty"`
}

func (s *Server) handleGenerate(family string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.gen == nil {
			response.Error(w, http.StatusServiceUnavailable,
				core.WrapError(core.ErrConfigMissing, fmt.Errorf("no LLM provider configured")))
			return
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrBadRequest, err))
			return
		}
		if req.Description == "" {
			response.Error(w, http.StatusBadRequest,
				core.WrapError(core.ErrBadRequest, fmt.Errorf("description is required")))
			return
		}

		if req.Async {
			j := s.jobs.Create(family + "_generate")
			go s.runGenerateJob(j.ID, family, req.Description)
			response.JSON(w, http.StatusAccepted, j)
			return
		}

		result, err := s.generate(r.Context(), family, req.Description)
		if err != nil {
			response.Error(w, generateStatus(err), err)
			return
		}
		response.JSON(w, http.StatusOK, s.withArchive(r.Context(), family, result))
	}
}

func (s *Server) generate(ctx context.Context, family, description string) (*generator.Result, error) {
	if family == "agent" {
		return s.gen.GenerateAgent(ctx, description)
	}
	return s.gen.GenerateBacktest(ctx, description)
}

// runGenerateJob drives one async generation to completion.
func (s *Server) runGenerateJob(jobID, family, description string) {
	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	s.jobs.Update(jobID, func(j *job.Job) { j.Status = job.StatusRunning })
	if s.metrics != nil {
		s.metrics.SetJobsActive(family+"_generate", s.jobs.Count())
	}

	result, err := s.generate(ctx, family, description)
	if err != nil {
		s.logger.Error("generation job failed",
			zap.String("job_id", jobID), zap.String("family", family), zap.Error(err))
		s.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
		return
	}

	payload := s.withArchive(ctx, family, result)
	s.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = payload
	})
}

// withArchive persists an accepted result when an archive is configured.
func (s *Server) withArchive(ctx context.Context, family string, result *generator.Result) generateResponse {
	resp := generateResponse{
		StrategySpec: result.StrategySpec,
		Notes:        result.Notes,
	}
	if s.store == nil {
		return resp
	}

	envelope := map[string]any{
		"strategy_spec": result.StrategySpec,
		"notes":         result.Notes,
	}
	path, err := s.store.SaveAccepted(ctx, family, envelope)
	if err != nil {
		s.logger.Warn("archiving accepted spec failed", zap.String("family", family), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordArchiveWrite(s.backend, "error")
		}
		return resp
	}
	if s.metrics != nil {
		s.metrics.RecordArchiveWrite(s.backend, "ok")
	}
	resp.ArchivePath = path
	return resp
}

func (s *Server) handleValidateBacktest(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrBadRequest, err))
		return
	}

	doc := req.StrategySpec
	resp := validateResponse{}

	if req.Normalize {
		input, ok := doc.(map[string]any)
		if !ok {
			response.Error(w, http.StatusBadRequest, core.ErrSpecNotObject)
			return
		}
		normalized, assumptions, err := normalize.Backtest(input, "", time.Now())
		if err != nil {
			response.Error(w, http.StatusBadRequest, err)
			return
		}
		doc = normalized
		resp.StrategySpec = normalized
		resp.Assumptions = assumptions
	}

	valid, diags := backtest.Validate(doc)
	if s.metrics != nil {
		s.metrics.RecordValidation("backtest", valid, len(diags))
	}
	resp.Valid = valid
	resp.Diagnostics = nonNil(diags)
	response.JSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidateAgent(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrBadRequest, err))
		return
	}

	valid, diags := agent.Validate(req.StrategySpec)
	if s.metrics != nil {
		s.metrics.RecordValidation("agent", valid, len(diags))
	}
	response.JSON(w, http.StatusOK, validateResponse{
		Valid:       valid,
		Diagnostics: nonNil(diags),
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.jobs.List())
}

// generateStatus maps generation errors to HTTP status codes.
func generateStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrCorrectionExhausted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrResponseNotJSON), errors.Is(err, core.ErrLLMFailed):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrSpecNotObject):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func asCoreError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return core.WrapError(core.ErrGeneratorFailed, err)
}

func nonNil(diags []schema.Diagnostic) []schema.Diagnostic {
	if diags == nil {
		return []schema.Diagnostic{}
	}
	return diags
}
