package api

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "menu-advisor/internal/common/errors"
	"menu-advisor/internal/common/export"
	"menu-advisor/internal/common/validation"
	"menu-advisor/internal/models"
	runanalysis "menu-advisor/internal/workers/analysis/run-analysis"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 64 << 10

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.config.App.Version,
	})
}

func (s *Server) ready(c *gin.Context) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(c.Request.Context()); err != nil {
			s.logger.Warn("readiness check failed", map[string]interface{}{"error": err})
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) analyze(c *gin.Context) {
	const route = "/api/analyze"

	body, err := readBody(c)
	if err != nil {
		s.fail(c, route, err)
		return
	}
	prefs, err := decodePreferences(body)
	if err != nil {
		s.fail(c, route, err)
		return
	}

	out, err := s.deps.Analyzer.Execute(c.Request.Context(), &runanalysis.Input{Preferences: prefs})
	if err != nil {
		s.fail(c, route, err)
		return
	}

	if out.Cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
		s.index(c, out.Result)
	}
	c.JSON(http.StatusOK, out.Result)
}

func (s *Server) export(c *gin.Context) {
	const route = "/api/export"

	prefs, err := preferencesFromQuery(c)
	if err != nil {
		s.fail(c, route, err)
		return
	}
	raw, _ := json.Marshal(prefs)
	if _, err := decodePreferences(raw); err != nil {
		s.fail(c, route, err)
		return
	}

	out, err := s.deps.Analyzer.Execute(c.Request.Context(), &runanalysis.Input{Preferences: prefs})
	if err != nil {
		s.fail(c, route, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, out.Result); err != nil {
		s.fail(c, route, err)
		return
	}

	if dir := s.config.Export.CSVDir; dir != "" {
		if path, err := export.WriteFile(dir, out.Result); err != nil {
			s.logger.Warn("csv export not written", map[string]interface{}{"dir": dir, "error": err})
		} else {
			s.logger.Info("csv export written", map[string]interface{}{"path": path})
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(out.Result)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

type clearCacheRequest struct {
	Password string `json:"password"`
}

func (s *Server) clearCache(c *gin.Context) {
	const route = "/api/clear-cache"

	body, err := readBody(c)
	if err != nil {
		s.fail(c, route, err)
		return
	}
	if err := validate(validation.ClearCacheSchema, body); err != nil {
		s.fail(c, route, err)
		return
	}
	var req clearCacheRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.fail(c, route, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	secret := s.config.Admin.ClearCacheSecret
	if secret == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(secret)) != 1 {
		s.fail(c, route, apperrors.NewUnauthorizedError())
		return
	}

	if err := s.deps.Cache.Clear(c.Request.Context()); err != nil {
		s.fail(c, route, err)
		return
	}
	s.logger.Info("analysis cache cleared", map[string]interface{}{"clientIp": c.ClientIP()})
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared successfully"})
}

func (s *Server) index(c *gin.Context, result *models.AnalysisResult) {
	if s.deps.Sink == nil {
		return
	}
	if err := s.deps.Sink.Index(c.Request.Context(), result); err != nil {
		s.logger.Warn("analysis not indexed", map[string]interface{}{"runId": result.RunID, "error": err})
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewInvalidRequestError("request body too large or unreadable")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return []byte("{}"), nil
	}
	return body, nil
}

func validate(schema *validation.Schema, body []byte) error {
	result, err := schema.ValidateBytes(body)
	if err != nil {
		return apperrors.NewInvalidRequestError("body is not valid JSON")
	}
	if !result.Valid {
		return apperrors.NewInvalidRequestError(strings.Join(result.GetErrorMessages(), "; "))
	}
	return nil
}

// decodePreferences validates body against the analyze schema before decoding.
func decodePreferences(body []byte) (models.Preferences, error) {
	var prefs models.Preferences
	if err := validate(validation.AnalyzeRequestSchema, body); err != nil {
		return prefs, err
	}
	if err := json.Unmarshal(body, &prefs); err != nil {
		return prefs, apperrors.NewInvalidRequestError(err.Error())
	}
	return prefs, nil
}

func preferencesFromQuery(c *gin.Context) (models.Preferences, error) {
	prefs := models.Preferences{Campus: c.Query("campus")}
	flags := []struct {
		name string
		dst  *bool
	}{
		{"vegetarian", &prefs.Vegetarian},
		{"vegan", &prefs.Vegan},
		{"exclude_beef", &prefs.ExcludeBeef},
		{"exclude_pork", &prefs.ExcludePork},
		{"prioritize_protein", &prefs.PrioritizeProtein},
	}
	for _, f := range flags {
		raw := c.Query(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return prefs, apperrors.NewInvalidRequestError(fmt.Sprintf("%s: expected a boolean, got %q", f.name, raw))
		}
		*f.dst = v
	}
	return prefs, nil
}
