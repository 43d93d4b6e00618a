// Package backend discovers a local Ollama inference service and picks a
// model for nit's LLM-dependent commands.
//
// Discovery never fails: an unreachable service, a bad status or an empty
// model list all produce Info{Available: false}. Callers skip dependent checks
// on that outcome rather than failing them.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultHost is used when neither configuration nor OLLAMA_HOST names one.
	DefaultHost = "http://localhost:11434"
	// DefaultProbeTimeout bounds the single model-listing request.
	DefaultProbeTimeout = 3 * time.Second
	// EnvHost overrides the backend host.
	EnvHost = "OLLAMA_HOST"

	tagsPath = "/api/tags"
)

// DefaultPreferences ranks model name fragments, best first.
func DefaultPreferences() []string {
	return []string{"qwen2.5-coder", "llama3.1", "llama3", "mistral", "codellama"}
}

// Info is the immutable outcome of a discovery probe.
type Info struct {
	Available bool   `json:"available"`
	Host      string `json:"host"`
	Model     string `json:"model"`
	// Reason explains why the backend is unavailable. Empty when available.
	Reason string `json:"reason,omitempty"`
}

// Options configures Discover. Zero values fall back to defaults.
type Options struct {
	Host        string
	Timeout     time.Duration
	Preferences []string
	Client      *http.Client
	Logger      *zap.Logger
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ResolveHost picks the configured host, then OLLAMA_HOST, then DefaultHost,
// and normalizes the result.
func ResolveHost(configured string) string {
	host := configured
	if host == "" {
		host = os.Getenv(EnvHost)
	}
	if host == "" {
		host = DefaultHost
	}
	return NormalizeHost(host)
}

// NormalizeHost prefixes http:// when the scheme is missing and trims a
// trailing slash.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

// Discover probes the backend once and selects a model.
func Discover(ctx context.Context, opts Options) Info {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	host := ResolveHost(opts.Host)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	prefs := opts.Preferences
	if prefs == nil {
		prefs = DefaultPreferences()
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	unavailable := func(reason string) Info {
		logger.Debug("backend unavailable", zap.String("host", host), zap.String("reason", reason))
		return Info{Host: host, Reason: reason}
	}

	models, err := listModels(ctx, client, host, timeout)
	if err != nil {
		return unavailable(err.Error())
	}
	if len(models) == 0 {
		return unavailable("no models pulled")
	}

	model := SelectModel(models, prefs)
	logger.Info("backend discovered",
		zap.String("host", host),
		zap.String("model", model),
		zap.Int("models", len(models)))
	return Info{Available: true, Host: host, Model: model}
}

func listModels(ctx context.Context, client *http.Client, host string, timeout time.Duration) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+tagsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("probe %s: status %d", host, resp.StatusCode)
	}

	var body tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	names := make([]string, 0, len(body.Models))
	for _, m := range body.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

// SelectModel returns the first model containing the highest-ranked matching
// preference fragment, else the first model. It returns "" for no models.
func SelectModel(models, preferences []string) string {
	if len(models) == 0 {
		return ""
	}
	for _, pref := range preferences {
		if m, ok := firstContaining(models, pref); ok {
			return m
		}
	}
	return models[0]
}

func firstContaining(models []string, fragment string) (string, bool) {
	for _, m := range models {
		if strings.Contains(m, fragment) {
			return m, true
		}
	}
	return "", false
}

// Once probes on first use and hands every later caller the same Info.
type Once struct {
	opts Options
	once sync.Once
	info Info
}

// NewOnce returns a session-scoped discovery cache.
func NewOnce(opts Options) *Once {
	return &Once{opts: opts}
}

// Get runs discovery on the first call and returns the cached Info after.
func (o *Once) Get(ctx context.Context) Info {
	o.once.Do(func() {
		o.info = Discover(ctx, o.opts)
	})
	return o.info
}
