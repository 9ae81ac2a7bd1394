package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/playtube-io/playtube/internal/models"
)

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error: %s: %s", res.Status(), body)
	}

	return client, nil
}

// Index writes one video document, replacing any previous version.
func Index(ctx context.Context, es *elasticsearch.Client, index string, v *models.Video) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("index video: %w", err)
	}

	res, err := es.Index(index, bytes.NewReader(data),
		es.Index.WithContext(ctx),
		es.Index.WithDocumentID(v.ID),
	)
	if err != nil {
		return fmt.Errorf("index video: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index video: %s", res.Status())
	}
	return nil
}

func Remove(ctx context.Context, es *elasticsearch.Client, index, videoID string) error {
	res, err := es.Delete(index, videoID, es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("remove video: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("remove video: %s", res.Status())
	}
	return nil
}

// Search runs a fuzzy multi_match over titles and descriptions.
func Search(ctx context.Context, es *elasticsearch.Client, index, query string, from, size int) (int64, []models.Video, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search: %s: %s", res.Status(), strings.TrimSpace(string(body)))
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Video `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	videos := make([]models.Video, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		videos[i] = hit.Source
	}
	return r.Hits.Total.Value, videos, nil
}
