package storefront

import (
	"context"
	"io"
	"log/slog"
	"net/http"
)

// BackendProxy forwards catalog and messaging traffic straight to the
// backend, keeping this process out of the request semantics.
type BackendProxy struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewBackendProxy(baseURL string, client *http.Client, logger *slog.Logger) *BackendProxy {
	return &BackendProxy{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

func (p *BackendProxy) forward(ctx context.Context, r *http.Request) (*http.Response, error) {
	target := p.baseURL + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return p.client.Do(req)
}

func (p *BackendProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := p.forward(r.Context(), r)
	if err != nil {
		p.logger.Error("failed to forward request", "error", err, "path", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"backend unavailable"}`))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	p.logger.Info("request proxied", "method", r.Method, "path", r.URL.Path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.Error("failed to copy response body", "error", err)
	}
}
