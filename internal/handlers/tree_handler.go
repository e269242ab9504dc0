package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/streettrees/internal/errors"
	"github.com/stwalsh4118/streettrees/internal/middleware"
	"github.com/stwalsh4118/streettrees/internal/models"
	"github.com/stwalsh4118/streettrees/internal/services"
)

var registerValidators sync.Once

// RegisterValidators adds the "borough" tag to gin's validator and makes
// validation errors report parameter names (q, borough) instead of Go field
// names. It is safe to call more than once.
func RegisterValidators() {
	registerValidators.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(paramName)
		_ = v.RegisterValidation("borough", func(fl validator.FieldLevel) bool {
			_, ok := models.ParseBorough(fl.Field().String())
			return ok
		})
	})
}

func paramName(f reflect.StructField) string {
	for _, tag := range []string{"form", "uri", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// TreeHandler serves species and borough statistics.
type TreeHandler struct {
	gate *services.StatsGate
}

// NewTreeHandler creates a TreeHandler reading from whatever service gate
// currently publishes.
func NewTreeHandler(gate *services.StatsGate) *TreeHandler {
	RegisterValidators()
	return &TreeHandler{gate: gate}
}

// SpeciesQueryRequest represents the query parameters for the species endpoint.
type SpeciesQueryRequest struct {
	Query string `form:"q" binding:"required,max=100"`
}

// BoroughSpeciesRequest represents the path parameters for a single count.
type BoroughSpeciesRequest struct {
	Borough string `uri:"borough" binding:"required,borough"`
	Species string `uri:"species" binding:"required,max=100"`
}

// TreesRequest represents the query parameters for the tree listing.
type TreesRequest struct {
	Query string `form:"q" binding:"required,max=100"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// DefaultTreeLimit is the page size when no limit is given.
const DefaultTreeLimit = 100

// TreeResponse is one tree record. Status and health are omitted when the
// census did not record them.
type TreeResponse struct {
	ID       int     `json:"id"`
	Diameter int     `json:"diameter"`
	Status   string  `json:"status,omitempty"`
	Health   string  `json:"health,omitempty"`
	Species  string  `json:"species"`
	Borough  string  `json:"borough"`
	Zip      int     `json:"zip"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// TreesResponse is a page of matching trees.
type TreesResponse struct {
	Query string         `json:"query"`
	Total int            `json:"total"`
	Count int            `json:"count"`
	Trees []TreeResponse `json:"trees"`
}

func toTreeResponse(t *models.TreeRecord) TreeResponse {
	return TreeResponse{
		ID:       t.ID(),
		Diameter: t.Diameter(),
		Status:   string(t.Status()),
		Health:   string(t.Health()),
		Species:  t.Species(),
		Borough:  t.Borough(),
		Zip:      t.Zip(),
		X:        t.X(),
		Y:        t.Y(),
	}
}

// SpeciesNamesResponse lists every species in the catalog.
type SpeciesNamesResponse struct {
	Species []string `json:"species"`
	Count   int      `json:"count"`
}

// BoroughsResponse lists tree totals per borough.
type BoroughsResponse struct {
	Boroughs []services.BoroughTotal `json:"boroughs"`
	Total    int                     `json:"total"`
}

// BoroughSpeciesResponse is the popularity of one species in one borough.
type BoroughSpeciesResponse struct {
	Species string  `json:"species"`
	Borough string  `json:"borough"`
	Count   int     `json:"count"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// RegisterRoutes mounts the tree endpoints on rg.
func (h *TreeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	species := rg.Group("/species")
	{
		species.GET("", h.Species)
		species.GET("/names", h.SpeciesNames)
	}
	boroughs := rg.Group("/boroughs")
	{
		boroughs.GET("", h.Boroughs)
		boroughs.GET("/:borough/species/:species", h.BoroughSpecies)
	}
	rg.GET("/trees", h.Trees)
}

// service returns the published stats service, answering 503 when the
// catalog is still loading.
func (h *TreeHandler) service(c *gin.Context) (services.StatsService, bool) {
	svc, ok := h.gate.Get()
	if !ok {
		apierrors.CatalogNotReady(c)
	}
	return svc, ok
}

// bindingError renders a gin binding failure.
func bindingError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apierrors.ValidationError(c, validationErrors)
		return
	}
	apierrors.BadRequest(c, "Invalid request parameters", nil)
}

// Species handles GET /api/v1/species?q=.
// A query that matches nothing is answered with 200 and empty lists.
func (h *TreeHandler) Species(c *gin.Context) {
	var req SpeciesQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindingError(c, err)
		return
	}

	svc, ok := h.service(c)
	if !ok {
		return
	}

	stats, err := svc.SpeciesStats(c.Request.Context(), req.Query)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuery) {
			apierrors.BadRequest(c, "Species query must not be blank", map[string]interface{}{"q": req.Query})
			return
		}
		apierrors.InternalServerError(c, "Failed to compute species statistics", err)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Debug("Species statistics served", map[string]interface{}{
			"query":   req.Query,
			"matches": len(stats.Matches),
		})
	}

	c.JSON(http.StatusOK, stats)
}

// SpeciesNames handles GET /api/v1/species/names.
func (h *TreeHandler) SpeciesNames(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}

	names := svc.SpeciesNames(c.Request.Context())
	c.JSON(http.StatusOK, SpeciesNamesResponse{Species: names, Count: len(names)})
}

// Boroughs handles GET /api/v1/boroughs.
func (h *TreeHandler) Boroughs(c *gin.Context) {
	svc, ok := h.service(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	c.JSON(http.StatusOK, BoroughsResponse{
		Boroughs: svc.BoroughTotals(ctx),
		Total:    svc.CatalogSize(ctx),
	})
}

// BoroughSpecies handles GET /api/v1/boroughs/:borough/species/:species.
// The species must match exactly, ignoring case.
func (h *TreeHandler) BoroughSpecies(c *gin.Context) {
	var req BoroughSpeciesRequest
	if err := c.ShouldBindUri(&req); err != nil {
		bindingError(c, err)
		return
	}

	svc, ok := h.service(c)
	if !ok {
		return
	}

	row, err := svc.CountInBorough(c.Request.Context(), req.Species, req.Borough)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyQuery):
			apierrors.BadRequest(c, "Species must not be blank", nil)
		case errors.Is(err, services.ErrUnknownBorough):
			apierrors.BadRequest(c, err.Error(), nil)
		default:
			apierrors.InternalServerError(c, "Failed to count trees", err)
		}
		return
	}

	c.JSON(http.StatusOK, BoroughSpeciesResponse{
		Species: req.Species,
		Borough: row.Area,
		Count:   row.Count,
		Total:   row.Total,
		Percent: row.Percent,
	})
}

// Trees handles GET /api/v1/trees?q=&limit=.
// Trees are ordered by species in reverse alphabetical order, then by
// descending id.
func (h *TreeHandler) Trees(c *gin.Context) {
	var req TreesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindingError(c, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = DefaultTreeLimit
	}

	svc, ok := h.service(c)
	if !ok {
		return
	}

	listing, err := svc.Trees(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuery) {
			apierrors.BadRequest(c, "Species query must not be blank", map[string]interface{}{"q": req.Query})
			return
		}
		apierrors.InternalServerError(c, "Failed to list trees", err)
		return
	}

	trees := make([]TreeResponse, 0, len(listing.Trees))
	for _, t := range listing.Trees {
		trees = append(trees, toTreeResponse(t))
	}
	c.JSON(http.StatusOK, TreesResponse{
		Query: listing.Query,
		Total: listing.Total,
		Count: len(trees),
		Trees: trees,
	})
}
