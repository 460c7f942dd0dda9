package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-fx/internal/logger"
	"github.com/rxtech-lab/argo-fx/internal/version"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one call to the signal service.
const DefaultTimeout = 60 * time.Second

// HTTPSignalProvider asks a remote service for the signal. The service
// answers POST {url}/signal with {"signal": n} and optionally
// {"risk_target": x}, and GET {url}/version with {"version": "x.y.z"}.
type HTTPSignalProvider struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	log        *logger.Logger
}

// NewHTTPSignalProvider creates a provider for the service at rawURL.
func NewHTTPSignalProvider(rawURL, token string, timeout time.Duration, log *logger.Logger) (*HTTPSignalProvider, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "strategy url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse strategy url", err)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTPSignalProvider{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
		token:      strings.TrimSpace(token),
		log:        log,
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (p *HTTPSignalProvider) SetHTTPClient(client *http.Client) {
	p.httpClient = client
}

// GetSignal posts the request and parses the signal out of the response.
func (p *HTTPSignalProvider) GetSignal(ctx context.Context, req SignalRequest) (Signal, error) {
	body, err := p.do(ctx, http.MethodPost, "/signal", req)
	if err != nil {
		return Signal{}, errors.Wrap(errors.ErrCodeStrategyRuntimeError, "signal request failed", err)
	}

	if !gjson.ValidBytes(body) {
		return Signal{}, errors.Newf(errors.ErrCodeStrategyRuntimeError, "signal service returned invalid json: %s", truncate(body))
	}

	root := gjson.ParseBytes(body)

	raw := root.Get("signal")
	if !raw.Exists() {
		return Signal{}, errors.New(errors.ErrCodeStrategyRuntimeError, "signal service response has no signal field")
	}

	signal := Signal{
		Value:      signOf(raw),
		RiskTarget: optional.None[float64](),
	}

	if rt := root.Get("risk_target"); rt.Exists() && rt.Float() > 0 {
		signal.RiskTarget = optional.Some(rt.Float())
	}

	p.log.Debug("Signal received",
		zap.String("symbol", req.Symbol),
		zap.Time("period", req.Period),
		zap.Int("signal", signal.Value),
		zap.Int("bars", len(req.Bars)),
	)

	return signal, nil
}

// CheckVersion reads the service version and checks it against the engine's.
func (p *HTTPSignalProvider) CheckVersion(ctx context.Context) error {
	body, err := p.do(ctx, http.MethodGet, "/version", nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStrategyNotLoaded, "version request failed", err)
	}

	serviceVersion := gjson.GetBytes(body, "version").String()
	if err := version.CheckVersionCompatibility(version.GetVersion(), serviceVersion); err != nil {
		return errors.Wrap(errors.ErrCodeVersionMismatch, "signal service version is not compatible", err)
	}

	return nil
}

// signOf reads numbers, numeric strings and booleans the way loosely typed
// services tend to send them.
func signOf(r gjson.Result) int {
	switch r.Type {
	case gjson.Number:
		return floatSign(r.Float())
	case gjson.String:
		s := strings.TrimSpace(r.String())
		switch strings.ToLower(s) {
		case "buy", "long":
			return 1
		case "sell", "short":
			return -1
		}

		return floatSign(gjson.Parse(s).Float())
	case gjson.True:
		return 1
	default:
		return 0
	}
}

func floatSign(f float64) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}

func (p *HTTPSignalProvider) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	endpoint := p.baseURL.JoinPath(path)

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}

		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call signal service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		if len(data) == 0 {
			return nil, fmt.Errorf("signal service returned %s", resp.Status)
		}

		return nil, fmt.Errorf("signal service returned %s: %s", resp.Status, truncate(data))
	}

	return data, nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		return s[:256] + "..."
	}

	return s
}
