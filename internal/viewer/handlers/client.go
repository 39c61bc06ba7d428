package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	materials "materials-viewer/internal/materials/models"
)

// ============================================================
// Materials Service Client
// ============================================================

// MaterialsClient fetches group tables and geometry payloads from the
// materials service.
type MaterialsClient struct {
	baseURL string
	http    *http.Client
}

func NewMaterialsClient(baseURL string) *MaterialsClient {
	return &MaterialsClient{
		baseURL: baseURL,
		http:    http.DefaultClient,
	}
}

// FetchModel retrieves the geometry payload bytes for one file.
func (c *MaterialsClient) FetchModel(ctx context.Context, fileID string) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("%s/model/%s", c.baseURL, fileID))
}

// FetchGroups retrieves the material group table for one file.
func (c *MaterialsClient) FetchGroups(ctx context.Context, fileID string, density float64) ([]materials.MaterialGroup, error) {
	url := fmt.Sprintf("%s/summary/%s", c.baseURL, fileID)
	if density > 0 {
		url = fmt.Sprintf("%s?density=%g", url, density)
	}

	data, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var resp materials.SummaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return resp.MaterialGroups, nil
}

func (c *MaterialsClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("materials service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("materials service returned %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
