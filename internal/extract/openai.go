// Package extract derives structured search criteria from free-text
// conversation through an OpenAI chat-completion call with a forced tool
// call. The model's output is parsed as JSON against a fixed schema and is
// never treated as anything but data.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/uncovercity/BistroHunter/internal/search"
)

const (
	// chatCompletionsURL is the OpenAI chat-completions endpoint.
	chatCompletionsURL = "https://api.openai.com/v1/chat/completions"

	// extractTimeout is the maximum duration for an extraction call.
	extractTimeout = 15 * time.Second

	// model is the chat model used for extraction. Temperature 0 keeps the
	// structured output stable.
	model = "gpt-4o-mini"

	httpMaxIdleConns    = 10
	httpIdleConnTimeout = 30 * time.Second
)

// ErrNoExtraction is returned when the model produced no usable tool call.
var ErrNoExtraction = errors.New("extract: model returned no tool call")

// Extractor derives raw search criteria from a free-text conversation.
type Extractor interface {
	Extract(ctx context.Context, conversation string) (search.RawCriteria, error)
}

// OpenAIExtractor implements Extractor against the OpenAI REST API.
type OpenAIExtractor struct {
	apiKey     string
	httpClient *http.Client
	// apiURL is the chat-completions endpoint. Overrideable in tests.
	apiURL string
}

// NewOpenAIExtractor creates an Extractor authenticated with the given key.
func NewOpenAIExtractor(apiKey string) *OpenAIExtractor {
	transport := &http.Transport{
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	return &OpenAIExtractor{
		apiKey: apiKey,
		apiURL: chatCompletionsURL,
		httpClient: &http.Client{
			Timeout:   extractTimeout,
			Transport: transport,
		},
	}
}

// extractedArgs is the tool-call argument schema. Every field is optional on
// the model side; validation happens later in search.ParseCriteria.
type extractedArgs struct {
	City       string `json:"city"`
	Date       string `json:"date"`
	PriceRange string `json:"price_range"`
	Cocina     string `json:"cocina"`
	Diet       string `json:"diet"`
	Dish       string `json:"dish"`
	Zona       string `json:"zona"`
}

// toolParameters is the JSON schema advertised to the model for the forced
// tool call.
var toolParameters = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"city":        map[string]any{"type": "string", "description": "Ciudad donde el usuario quiere comer"},
		"date":        map[string]any{"type": "string", "description": "Fecha de la reserva en formato YYYY-MM-DD"},
		"price_range": map[string]any{"type": "string", "description": "Rangos de precio separados por comas, p. ej. '$,$$'"},
		"cocina":      map[string]any{"type": "string", "description": "Tipos de cocina separados por comas"},
		"diet":        map[string]any{"type": "string", "description": "Restricción alimentaria, p. ej. 'vegana'"},
		"dish":        map[string]any{"type": "string", "description": "Platos concretos separados por comas"},
		"zona":        map[string]any{"type": "string", "description": "Barrios o zonas separados por comas"},
	},
	"required": []string{"city"},
}

// Extract asks the model to fill the criteria schema from the conversation.
// The tool call is forced so the reply is always machine-readable; its
// arguments string is unmarshalled strictly, never evaluated.
func (e *OpenAIExtractor) Extract(ctx context.Context, conversation string) (search.RawCriteria, error) {
	body := map[string]any{
		"model":       model,
		"temperature": 0,
		"messages": []map[string]any{
			{
				"role": "system",
				"content": "Extrae los criterios de búsqueda de restaurantes de la conversación del cliente. " +
					"Rellena solo los campos que el cliente haya mencionado.",
			},
			{"role": "user", "content": conversation},
		},
		"tools": []map[string]any{{
			"type": "function",
			"function": map[string]any{
				"name":        "set_search_criteria",
				"description": "Registra los criterios de búsqueda extraídos de la conversación.",
				"parameters":  toolParameters,
			},
		}},
		"tool_choice": map[string]any{
			"type":     "function",
			"function": map[string]any{"name": "set_search_criteria"},
		},
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return search.RawCriteria{}, fmt.Errorf("extract: marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return search.RawCriteria{}, fmt.Errorf("extract: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return search.RawCriteria{}, fmt.Errorf("extract: http: %w", err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return search.RawCriteria{}, fmt.Errorf("extract: read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return search.RawCriteria{}, fmt.Errorf("extract: status %d: %s", httpResp.StatusCode, string(respBytes))
	}

	var payload struct {
		Choices []struct {
			Message struct {
				ToolCalls []struct {
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &payload); err != nil {
		return search.RawCriteria{}, fmt.Errorf("extract: unmarshal response: %w", err)
	}
	if len(payload.Choices) == 0 || len(payload.Choices[0].Message.ToolCalls) == 0 {
		return search.RawCriteria{}, ErrNoExtraction
	}

	call := payload.Choices[0].Message.ToolCalls[0].Function
	if call.Name != "set_search_criteria" {
		return search.RawCriteria{}, fmt.Errorf("%w: unexpected tool %q", ErrNoExtraction, call.Name)
	}

	var args extractedArgs
	dec := json.NewDecoder(bytes.NewReader([]byte(call.Arguments)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return search.RawCriteria{}, fmt.Errorf("extract: invalid tool arguments: %w", err)
	}

	return search.RawCriteria{
		City:       args.City,
		Date:       args.Date,
		PriceRange: args.PriceRange,
		Cuisine:    args.Cocina,
		Diet:       args.Diet,
		Dish:       args.Dish,
		Zone:       args.Zona,
	}, nil
}
