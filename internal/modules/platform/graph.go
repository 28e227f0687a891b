package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const graphBase = "https://graph.facebook.com/v18.0"

type graphError struct {
	Message string `json:"message"`
}

type graphResponse struct {
	ID         string      `json:"id"`
	StatusCode string      `json:"status_code"`
	Error      *graphError `json:"error"`
}

func (r graphResponse) errMessage(fallback string) string {
	if r.Error != nil && r.Error.Message != "" {
		return r.Error.Message
	}
	return fallback
}

// graphPost sends a form-encoded POST to the Graph API and decodes the
// JSON response. Transport failures come back as errors; API-level
// failures land in the response's Error field.
func graphPost(ctx context.Context, client *http.Client, path string, form url.Values) (graphResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, graphBase+path, strings.NewReader(form.Encode()))
	if err != nil {
		return graphResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return graphResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return graphResponse{}, err
	}

	var out graphResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return graphResponse{}, fmt.Errorf("decode graph response: %w", err)
	}
	return out, nil
}

func graphGet(ctx context.Context, client *http.Client, path string, query url.Values) (graphResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, graphBase+path+"?"+query.Encode(), nil)
	if err != nil {
		return graphResponse{}, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return graphResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return graphResponse{}, err
	}

	var out graphResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return graphResponse{}, fmt.Errorf("decode graph response: %w", err)
	}
	return out, nil
}
