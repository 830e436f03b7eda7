// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultOEmbedEndpoint is the public YouTube oEmbed endpoint.
	DefaultOEmbedEndpoint = "https://www.youtube.com/oembed"

	watchURL = "https://www.youtube.com/watch?v="
)

// OEmbed resolves titles through an oEmbed endpoint. No API key is needed.
type OEmbed struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

var _ TitleSource = (*OEmbed)(nil)

// OEmbedOption configures an OEmbed title source.
type OEmbedOption func(*OEmbed)

// WithEndpoint overrides the oEmbed endpoint.
func WithEndpoint(endpoint string) OEmbedOption {
	return func(o *OEmbed) {
		o.endpoint = endpoint
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) OEmbedOption {
	return func(o *OEmbed) {
		o.client = client
	}
}

// NewOEmbed creates an oEmbed title source with a 10 second timeout.
func NewOEmbed(opts ...OEmbedOption) *OEmbed {
	o := &OEmbed{
		endpoint: DefaultOEmbedEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   slog.Default().With("component", "oembed"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type oembedResponse struct {
	Title string `json:"title"`
}

// FetchTitle implements TitleSource.
func (o *OEmbed) FetchTitle(ctx context.Context, sourceID string) string {
	title, err := o.fetch(ctx, sourceID)
	if err != nil {
		o.logger.Warn("could not fetch title", "source_id", sourceID, "error", err)
		return UnknownTitle
	}
	return title
}

func (o *OEmbed) fetch(ctx context.Context, sourceID string) (string, error) {
	q := url.Values{}
	q.Set("url", watchURL+sourceID)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oembed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("oembed error %d: %s", resp.StatusCode, string(b))
	}
	var result oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Title == "" {
		return UnknownTitle, nil
	}
	return result.Title, nil
}
