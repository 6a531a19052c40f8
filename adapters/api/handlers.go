package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"abtester/adapters/dataset"
	"abtester/domain/core"
	"abtester/domain/experiment"
	"abtester/internal/batch"
	"abtester/internal/errors"
	"abtester/internal/profiling"
	"abtester/internal/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	req := EvaluateRequest{Config: experiment.DefaultConfig()}
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.evaluate(w, r, req.SampleA, req.SampleB, req.Config, req.Profile)
}

// handleEvaluateUpload evaluates a CSV or XLSX file sent as multipart field
// "file"; the split and test settings come from the other form fields
func (s *Server) handleEvaluateUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		s.writeError(w, errors.InvalidInput(fmt.Sprintf("invalid multipart form: %v", err)))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, errors.InvalidInput("missing file field"))
		return
	}
	defer file.Close()

	cfg, split, err := uploadSettings(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	reader := dataset.NewDataReader(header.Filename).WithLogger(s.logger)
	var table *dataset.Table
	if dataset.DetectFileType(header.Filename) == dataset.FileTypeCSV {
		table, err = reader.ReadCSV(file)
	} else {
		table, err = reader.ReadXLSX(file)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	samples, err := dataset.Split(table, split)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Debug("[API] upload %s: n_a=%d n_b=%d dropped=%d", header.Filename, len(samples.A), len(samples.B), samples.Dropped)
	s.evaluate(w, r, samples.A, samples.B, cfg, r.FormValue("profile") == "true")
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request, a, b []float64, cfg experiment.Config, profile bool) {
	format := report.FormatJSON
	if raw := r.URL.Query().Get("format"); raw != "" {
		var err error
		if format, err = report.ParseFormat(raw); err != nil {
			s.writeError(w, errors.InvalidInput(err.Error()))
			return
		}
	}

	if err := s.inflight.Acquire(r.Context(), 1); err != nil {
		s.writeError(w, errors.Wrap(err, "request cancelled"))
		return
	}
	result, err := s.engine.Evaluate(a, b, cfg)
	s.inflight.Release(1)
	if err != nil {
		s.writeError(w, err)
		return
	}

	id := core.NewEvaluationID()
	var profiles []profiling.GroupProfile
	if profile {
		profiles, err = s.profiler.ProfileGroups(map[string][]float64{cfg.LabelA: a, cfg.LabelB: b}, []string{cfg.LabelA, cfg.LabelB})
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	if format == report.FormatJSON {
		h0, h1 := cfg.Alternative.Hypotheses()
		writeJSON(w, http.StatusOK, EvaluateResponse{
			ID:          id.String(),
			EvaluatedAt: core.Now(),
			Hypothesis:  Hypothesis{H0: h0, H1: h1},
			Result:      result,
			Profiles:    profiles,
		})
		return
	}

	var buf bytes.Buffer
	rep := report.Report{ID: id.String(), Config: cfg, Result: result, Profiles: profiles}
	if err := s.renderer.Render(&buf, rep, format); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if len(req.Jobs) == 0 {
		s.writeError(w, errors.InvalidInput("batch has no jobs"))
		return
	}

	jobs := make([]batch.Job, len(req.Jobs))
	for i, j := range req.Jobs {
		cfg := j.Config
		if cfg.Alpha == 0 {
			cfg.Alpha = experiment.DefaultAlpha
		}
		if cfg.Alternative == "" {
			cfg.Alternative = experiment.TwoSided
		}
		name := j.Name
		if name == "" {
			name = fmt.Sprintf("job-%d", i+1)
		}
		jobs[i] = batch.Job{Name: name, A: j.SampleA, B: j.SampleB, Config: cfg}
	}

	results, err := s.runner.Run(r.Context(), jobs)
	if err != nil {
		s.writeError(w, errors.Wrap(err, "batch aborted"))
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Results: report.FromJobResults(results)})
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	var req DescribeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	order := req.Order
	if len(order) == 0 {
		for label := range req.Groups {
			order = append(order, label)
		}
		sort.Strings(order)
	}
	profiles, err := s.profiler.ProfileGroups(req.Groups, order)
	if err != nil {
		s.writeError(w, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	writeJSON(w, http.StatusOK, DescribeResponse{Profiles: profiles})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.InvalidInput(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func uploadSettings(r *http.Request) (experiment.Config, dataset.SplitConfig, error) {
	cfg := experiment.DefaultConfig()
	split := dataset.SplitConfig{
		GroupColumn: r.FormValue("group_column"),
		ValueColumn: r.FormValue("value_column"),
		LabelA:      r.FormValue("label_a"),
		LabelB:      r.FormValue("label_b"),
	}
	if split.GroupColumn == "" || split.ValueColumn == "" || split.LabelA == "" || split.LabelB == "" {
		return cfg, split, errors.InvalidInput("group_column, value_column, label_a and label_b are required")
	}
	cfg.LabelA, cfg.LabelB = split.LabelA, split.LabelB

	if raw := r.FormValue("alpha"); raw != "" {
		alpha, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return cfg, split, core.NewValidationError("alpha", fmt.Sprintf("not a number: %q", raw))
		}
		cfg.Alpha = alpha
	}
	if raw := r.FormValue("alternative"); raw != "" {
		alt, err := experiment.ParseAlternative(raw)
		if err != nil {
			return cfg, split, err
		}
		cfg.Alternative = alt
	}
	if raw := r.FormValue("rank_test"); raw != "" {
		rt, err := experiment.ParseRankTest(raw)
		if err != nil {
			return cfg, split, err
		}
		cfg.RankTest = rt
	}

	var err error
	if split.Filter.Min, err = optionalFloat(r, "min"); err != nil {
		return cfg, split, err
	}
	if split.Filter.Max, err = optionalFloat(r, "max"); err != nil {
		return cfg, split, err
	}
	return cfg, split, nil
}

func optionalFloat(r *http.Request, field string) (*float64, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, core.NewValidationError(field, fmt.Sprintf("not a number: %q", raw))
	}
	return &v, nil
}

func contentType(format report.Format) string {
	switch format {
	case report.FormatHTML:
		return "text/html; charset=utf-8"
	case report.FormatMarkdown:
		return "text/markdown; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}
