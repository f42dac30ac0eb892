package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/uncovercity/BistroHunter/internal/search"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type mockSearcher struct {
	results []search.Restaurant
	err     error
	gotCrit search.Criteria
	calls   int
}

func (m *mockSearcher) Search(_ context.Context, crit search.Criteria) ([]search.Restaurant, error) {
	m.calls++
	m.gotCrit = crit
	return m.results, m.err
}

type mockExtractor struct {
	raw   search.RawCriteria
	err   error
	calls int
}

func (m *mockExtractor) Extract(_ context.Context, _ string) (search.RawCriteria, error) {
	m.calls++
	return m.raw, m.err
}

type mockNotifier struct {
	calls int
	city  string
}

func (m *mockNotifier) NotifyResults(city string, _ []search.Restaurant) {
	m.calls++
	m.city = city
}

func newTestRouter(s *mockSearcher, e *mockExtractor, n *mockNotifier) *gin.Engine {
	h := New(s, e, n)
	r := gin.New()
	r.GET("/", h.Root)
	r.GET("/api/getRestaurants", h.GetRestaurants)
	r.POST("/procesar-variables", h.ProcessVariables)
	return r
}

func get(r *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func post(r *gin.Engine, url, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("response body: %v\n%s", err, w.Body.String())
	}
	return m
}

func sampleResults() []search.Restaurant {
	return []search.Restaurant{
		{
			Titulo:         "Casa Paca",
			Descripcion:    "Castizo de toda la vida",
			RangoDePrecios: "$$",
			URL:            "https://example.com/casa-paca",
			Puntuacion:     8.7,
			Distancia:      "0.42 km",
		},
		{
			Titulo:         "La Tasca",
			Descripcion:    "Tapas y vermut",
			RangoDePrecios: "$",
			URL:            "https://example.com/la-tasca",
			Puntuacion:     7.9,
			Distancia:      "0.80 km",
		},
	}
}

// ---------------------------------------------------------------------------
// GET /
// ---------------------------------------------------------------------------

func TestRoot(t *testing.T) {
	r := newTestRouter(&mockSearcher{}, &mockExtractor{}, &mockNotifier{})
	w := get(r, "/")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["message"] != "Bienvenido a la API de búsqueda de restaurantes" {
		t.Errorf("message = %v", body["message"])
	}
}

// ---------------------------------------------------------------------------
// GET /api/getRestaurants
// ---------------------------------------------------------------------------

func TestGetRestaurants_CityOnly(t *testing.T) {
	s := &mockSearcher{results: sampleResults()}
	n := &mockNotifier{}
	r := newTestRouter(s, &mockExtractor{}, n)

	w := get(r, "/api/getRestaurants?city=Madrid")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	body := decode(t, w)
	resultados, ok := body["resultados"].([]any)
	if !ok || len(resultados) != 2 {
		t.Fatalf("resultados = %v", body["resultados"])
	}
	first := resultados[0].(map[string]any)
	for _, field := range []string{"titulo", "descripcion", "rango_de_precios", "url", "puntuacion_bistrohunter", "distancia"} {
		if _, present := first[field]; !present {
			t.Errorf("result missing field %q: %v", field, first)
		}
	}
	if n.calls != 1 || n.city != "Madrid" {
		t.Errorf("notifier calls = %d city = %q", n.calls, n.city)
	}
}

func TestGetRestaurants_MissingCityIs400(t *testing.T) {
	s := &mockSearcher{}
	r := newTestRouter(s, &mockExtractor{}, &mockNotifier{})

	w := get(r, "/api/getRestaurants?city=")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if s.calls != 0 {
		t.Errorf("search ran %d times on invalid input", s.calls)
	}
}

func TestGetRestaurants_InvalidDateIs400(t *testing.T) {
	r := newTestRouter(&mockSearcher{}, &mockExtractor{}, &mockNotifier{})

	w := get(r, "/api/getRestaurants?city=Madrid&date=2025-13-40")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetRestaurants_ValidDateBecomesWeekday(t *testing.T) {
	s := &mockSearcher{results: sampleResults()}
	r := newTestRouter(s, &mockExtractor{}, &mockNotifier{})

	w := get(r, "/api/getRestaurants?city=Madrid&date=2025-03-10")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if s.gotCrit.DayOfWeek != "lunes" {
		t.Errorf("DayOfWeek = %q, want lunes", s.gotCrit.DayOfWeek)
	}
}

func TestGetRestaurants_InvalidCoordinatesIs400(t *testing.T) {
	r := newTestRouter(&mockSearcher{}, &mockExtractor{}, &mockNotifier{})

	w := get(r, "/api/getRestaurants?city=Madrid&coordenadas=cuarenta,norte")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetRestaurants_ZoneNotFoundIs404(t *testing.T) {
	s := &mockSearcher{err: search.ErrZoneNotFound}
	n := &mockNotifier{}
	r := newTestRouter(s, &mockExtractor{}, n)

	w := get(r, "/api/getRestaurants?city=Madrid&zona=Nonexistent+Place")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if n.calls != 0 {
		t.Errorf("notifier called %d times on failure", n.calls)
	}
}

func TestGetRestaurants_UpstreamFailureIs500WithoutDetail(t *testing.T) {
	s := &mockSearcher{err: errors.New("airtable: status 503: backend exploded at 10.0.0.7")}
	r := newTestRouter(s, &mockExtractor{}, &mockNotifier{})

	w := get(r, "/api/getRestaurants?city=Madrid")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "10.0.0.7") {
		t.Error("internal error detail leaked to the client")
	}
}

func TestGetRestaurants_EmptyResultIs200WithMessage(t *testing.T) {
	s := &mockSearcher{results: nil}
	n := &mockNotifier{}
	r := newTestRouter(s, &mockExtractor{}, n)

	w := get(r, "/api/getRestaurants?city=Soria")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (empty is not an error)", w.Code)
	}
	body := decode(t, w)
	if body["mensaje"] == nil {
		t.Errorf("empty result lacks mensaje: %v", body)
	}
	if n.calls != 0 {
		t.Errorf("notifier called for empty result")
	}
}

// ---------------------------------------------------------------------------
// POST /procesar-variables
// ---------------------------------------------------------------------------

func TestProcessVariables_StructuredFields(t *testing.T) {
	s := &mockSearcher{results: sampleResults()}
	r := newTestRouter(s, &mockExtractor{}, &mockNotifier{})

	w := post(r, "/procesar-variables", `{"city":"Madrid","cocina":"italiana","date":"2025-03-10"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	body := decode(t, w)
	vars, ok := body["variables"].(map[string]any)
	if !ok {
		t.Fatalf("variables = %v", body["variables"])
	}
	if vars["city"] != "Madrid" || vars["cuisine_type"] != "italiana" {
		t.Errorf("variables = %v", vars)
	}
	if info, _ := body["request_info"].(string); !strings.HasPrefix(info, "POST ") {
		t.Errorf("request_info = %v", body["request_info"])
	}
	if body["resultados"] == nil {
		t.Error("resultados missing")
	}
}

func TestProcessVariables_ConversationGoesThroughExtractor(t *testing.T) {
	s := &mockSearcher{results: sampleResults()}
	e := &mockExtractor{raw: search.RawCriteria{City: "Madrid", Zone: "Malasaña"}}
	r := newTestRouter(s, e, &mockNotifier{})

	w := post(r, "/procesar-variables", `{"client_conversation":"quiero cenar por Malasaña"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if e.calls != 1 {
		t.Errorf("extractor calls = %d, want 1", e.calls)
	}
	if len(s.gotCrit.Zones) != 1 || s.gotCrit.Zones[0] != "Malasaña" {
		t.Errorf("criteria zones = %v", s.gotCrit.Zones)
	}

	body := decode(t, w)
	vars := body["variables"].(map[string]any)
	if vars["zone"] != "Malasaña" {
		t.Errorf("echoed zone = %v", vars["zone"])
	}
}

func TestProcessVariables_ExtractorFailureIs502(t *testing.T) {
	e := &mockExtractor{err: errors.New("model unavailable")}
	s := &mockSearcher{}
	r := newTestRouter(s, e, &mockNotifier{})

	w := post(r, "/procesar-variables", `{"client_conversation":"hola"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if s.calls != 0 {
		t.Errorf("search ran despite failed extraction")
	}
}

func TestProcessVariables_MissingCityIs400(t *testing.T) {
	r := newTestRouter(&mockSearcher{}, &mockExtractor{}, &mockNotifier{})

	w := post(r, "/procesar-variables", `{"cocina":"italiana"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestProcessVariables_MalformedBodyIs400(t *testing.T) {
	r := newTestRouter(&mockSearcher{}, &mockExtractor{}, &mockNotifier{})

	w := post(r, "/procesar-variables", `{"city": `)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestProcessVariables_NoResultsEchoesVariables(t *testing.T) {
	s := &mockSearcher{results: nil}
	r := newTestRouter(s, &mockExtractor{}, &mockNotifier{})

	w := post(r, "/procesar-variables", `{"city":"Soria","diet":"vegana"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["mensaje"] == nil || body["variables"] == nil || body["request_info"] == nil {
		t.Errorf("body = %v", body)
	}
}
