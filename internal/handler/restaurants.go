package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uncovercity/BistroHunter/internal/search"
)

// noResultsMessage is the user-facing text for a search that exhausted the
// radius ceiling without matches. It accompanies a 200, not an error status.
const noResultsMessage = "No se encontraron restaurantes con los filtros aplicados."

// GetRestaurants handles GET /api/getRestaurants.
//
// Query params:
//   - city        (required) city to search in
//   - date        (optional) YYYY-MM-DD; resolves to the Spanish weekday
//   - price_range (optional) comma-separated price tiers
//   - cocina      (optional) comma-separated cuisine types
//   - diet        (optional) dietary restriction
//   - dish        (optional) comma-separated specific dishes
//   - zona        (optional) comma-separated zone names
//   - coordenadas (optional) "lat,lng" explicit center
//
// Response 200: {"resultados": [...]} or {"mensaje": "..."} when nothing
// matched. Response 400: invalid input. Response 404: zone or city failed to
// geocode.
func (h *Handler) GetRestaurants(c *gin.Context) {
	raw := search.RawCriteria{
		City:        c.Query("city"),
		Date:        c.Query("date"),
		PriceRange:  c.Query("price_range"),
		Cuisine:     c.Query("cocina"),
		Diet:        c.Query("diet"),
		Dish:        c.Query("dish"),
		Zone:        c.Query("zona"),
		Coordinates: c.Query("coordenadas"),
	}

	crit, err := search.ParseCriteria(raw)
	if err != nil {
		writeSearchError(c, err)
		return
	}

	results, err := h.searcher.Search(c.Request.Context(), crit)
	if err != nil {
		writeSearchError(c, err)
		return
	}

	if len(results) == 0 {
		c.JSON(http.StatusOK, gin.H{"mensaje": noResultsMessage})
		return
	}

	h.notifier.NotifyResults(crit.City, results)
	c.JSON(http.StatusOK, gin.H{"resultados": results})
}

// processRequest is the body of POST /procesar-variables: either the
// structured filter fields or a free-text client conversation.
type processRequest struct {
	City               string `json:"city"`
	Date               string `json:"date"`
	PriceRange         string `json:"price_range"`
	Cocina             string `json:"cocina"`
	Diet               string `json:"diet"`
	Dish               string `json:"dish"`
	Zona               string `json:"zona"`
	Coordenadas        string `json:"coordenadas"`
	ClientConversation string `json:"client_conversation"`
}

// ProcessVariables handles POST /procesar-variables.
//
// When client_conversation is present the criteria are extracted from the
// free text first; otherwise the structured fields are used as-is. The
// response echoes the interpreted variables alongside the results and a
// request-info string.
func (h *Handler) ProcessVariables(c *gin.Context) {
	var body processRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cuerpo JSON inválido"})
		return
	}

	raw := search.RawCriteria{
		City:        body.City,
		Date:        body.Date,
		PriceRange:  body.PriceRange,
		Cuisine:     body.Cocina,
		Diet:        body.Diet,
		Dish:        body.Dish,
		Zone:        body.Zona,
		Coordinates: body.Coordenadas,
	}

	if body.ClientConversation != "" {
		extracted, err := h.extractor.Extract(c.Request.Context(), body.ClientConversation)
		if err != nil {
			log.Printf("handler: extraction failed (request %s): %v", requestID(c), err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "no se pudieron extraer los criterios de la conversación"})
			return
		}
		raw = extracted
		raw.Date = firstNonEmpty(extracted.Date, body.Date)
	}

	crit, err := search.ParseCriteria(raw)
	if err != nil {
		writeSearchError(c, err)
		return
	}

	results, err := h.searcher.Search(c.Request.Context(), crit)
	if err != nil {
		writeSearchError(c, err)
		return
	}

	requestInfo := fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.String())
	variables := gin.H{
		"city":                    raw.City,
		"zone":                    raw.Zone,
		"cuisine_type":            raw.Cuisine,
		"price_range":             raw.PriceRange,
		"date":                    raw.Date,
		"alimentary_restrictions": raw.Diet,
		"specific_dishes":         raw.Dish,
	}

	if len(results) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"request_info": requestInfo,
			"variables":    variables,
			"mensaje":      noResultsMessage,
		})
		return
	}

	h.notifier.NotifyResults(crit.City, results)
	c.JSON(http.StatusOK, gin.H{
		"request_info": requestInfo,
		"variables":    variables,
		"resultados":   results,
	})
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
