// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes address confirmation over a local JSON API.
package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/geoverify/events"
	"github.com/jcodagnone/geoverify/geocoding"
	"github.com/jcodagnone/geoverify/spatial"
	"github.com/jcodagnone/geoverify/theme"
	"github.com/jcodagnone/geoverify/verification"
)

// DefaultFormID is used when a request carries no form_id.
const DefaultFormID = "default"

type Server struct {
	sessions *verification.Sessions
	repo     verification.Repository
	console  *events.Console
	themes   *theme.Service
}

// NewServer builds a server. repo may be nil, in which case nothing is
// recorded and the history routes answer 503.
func NewServer(sessions *verification.Sessions, repo verification.Repository, console *events.Console, themes *theme.Service) *Server {
	return &Server{
		sessions: sessions,
		repo:     repo,
		console:  console,
		themes:   themes,
	}
}

// Router registers every route on a new gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.POST("/api/address/confirm", s.confirmAddress)
	r.POST("/api/address/classify", s.classifyFeature)
	r.POST("/api/address/autofill", s.autofill)
	r.GET("/api/verifications", s.listVerifications)
	r.GET("/api/verifications/nearby", s.nearbyVerifications)
	r.GET("/api/events", s.listEvents)
	r.DELETE("/api/events", s.clearEvents)
	r.PUT("/api/events", s.toggleAllEvents)
	r.PUT("/api/events/:name", s.toggleEvent)
	r.GET("/api/theme", s.getTheme)
	r.PUT("/api/theme", s.setTheme)

	return r
}

func (s *Server) Run(addr string) error {
	fmt.Printf("📍 Geocoding: %s\n", s.sessions.Verifier().Geocoder().Name())
	fmt.Printf("🌐 Listening on http://%s\n", addr)

	return s.Router().Run(addr)
}

type confirmRequest struct {
	FormID  string                       `json:"form_id"`
	Address verification.AddressFormData `json:"address"`
}

func (s *Server) confirmAddress(ctx *gin.Context) {
	var req confirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if req.FormID == "" {
		req.FormID = DefaultFormID
	}

	out := s.sessions.Get(req.FormID).Confirm(ctx.Request.Context(), req.Address)

	switch {
	case out.Status == verification.StatusInvalid, out.Status == verification.StatusSuperseded:
	case out.ErrorType == verification.ErrorTypeCanceled:
	default:
		s.record(out)
	}

	ctx.JSON(http.StatusOK, out)
}

func (s *Server) record(out *verification.Outcome) {
	if s.repo == nil {
		return
	}

	rec, err := verification.NewRecord(out)
	if err == nil {
		err = s.repo.Save(rec)
	}

	if err != nil {
		log.Printf("⚠️  saving verification: %v", err)
	}
}

func (s *Server) classifyFeature(ctx *gin.Context) {
	var feature geocoding.Feature
	if err := ctx.ShouldBindJSON(&feature); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	v := s.sessions.Verifier()

	ctx.JSON(http.StatusOK, gin.H{
		"badge":        v.Badge(&feature),
		"verification": v.Verification(&feature),
	})
}

type autofillRequest struct {
	FormID  string             `json:"form_id"`
	Feature *geocoding.Feature `json:"feature"`
}

func (s *Server) autofill(ctx *gin.Context) {
	var req autofillRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if req.FormID == "" {
		req.FormID = DefaultFormID
	}

	form, ok := s.sessions.Get(req.FormID).Select(req.Feature)
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "feature is required"})

		return
	}

	p := req.Feature.Properties
	s.console.Log("select", map[string]any{
		"formatted": p.Formatted,
		"lat":       p.Lat,
		"lon":       p.Lon,
	})

	ctx.JSON(http.StatusOK, gin.H{
		"address":     form,
		"can_confirm": verification.CanConfirm(form),
		"focus":       verification.FirstMissingField(form),
	})
}

func (s *Server) listVerifications(ctx *gin.Context) {
	if !s.hasHistory(ctx) {
		return
	}

	page := 1
	perPage := 50

	if p := ctx.Query("page"); p != "" {
		if _, err := fmt.Sscanf(p, "%d", &page); err != nil || page < 1 {
			page = 1
		}
	}

	if pp := ctx.Query("per_page"); pp != "" {
		if _, err := fmt.Sscanf(pp, "%d", &perPage); err != nil || perPage < 1 {
			perPage = 50
		}
	}

	var status *verification.Status

	if st := ctx.Query("status"); st != "" {
		v := verification.Status(st)
		status = &v
	}

	offset := (page - 1) * perPage

	records, err := s.repo.List(status, perPage, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	total, err := s.repo.Count(status)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if records == nil {
		records = []*verification.Record{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"verifications": records,
		"total":         total,
		"page":          page,
		"per_page":      perPage,
	})
}

func (s *Server) hasHistory(ctx *gin.Context) bool {
	if s.repo == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "verification history is disabled"})

		return false
	}

	return true
}

type nearbyQuery struct {
	Lat *float64 `form:"lat" binding:"required"`
	Lng *float64 `form:"lng" binding:"required"`
}

// nearbyVerifications lists the records sharing the H3 cell of a point.
func (s *Server) nearbyVerifications(ctx *gin.Context) {
	if !s.hasHistory(ctx) {
		return
	}

	var q nearbyQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	p := spatial.Point{Lat: *q.Lat, Lng: *q.Lng}
	if err := p.Validate(); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	cell, err := p.Cell(verification.CellResolution)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	records, err := s.repo.ListByCell(cell)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if records == nil {
		records = []*verification.Record{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"cell":          fmt.Sprintf("%x", cell),
		"verifications": records,
	})
}

func (s *Server) listEvents(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"entries": s.console.Entries(),
		"enabled": s.console.Enabled(),
	})
}

func (s *Server) clearEvents(ctx *gin.Context) {
	s.console.Clear()
	ctx.Status(http.StatusNoContent)
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) toggleAllEvents(ctx *gin.Context) {
	var req toggleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.console.SetAll(*req.Enabled)
	ctx.JSON(http.StatusOK, gin.H{"enabled": s.console.Enabled()})
}

func (s *Server) toggleEvent(ctx *gin.Context) {
	var req toggleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	name := ctx.Param("name")
	if err := s.console.SetEnabled(name, *req.Enabled); err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"enabled": s.console.Enabled()})
}

func (s *Server) themeState() gin.H {
	current := s.themes.Current()

	return gin.H{
		"theme":      current,
		"stylesheet": theme.Stylesheet(current),
		"themes":     s.themes.Themes(),
	}
}

func (s *Server) getTheme(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.themeState())
}

func (s *Server) setTheme(ctx *gin.Context) {
	var req struct {
		Theme string `json:"theme" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := s.themes.Set(req.Theme); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, theme.ErrUnknownTheme) {
			status = http.StatusBadRequest
		}

		ctx.JSON(status, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, s.themeState())
}
