// Command gatewaysim drives cachingpolicy.Policy through a JSON scenario
// file, simulating the request/response halves of a gateway's policy chain
// without a real network hop - an executable harness for hit/miss/expiry,
// content-type disambiguation, and replay acceptance scenarios.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jonwraymond/cachingpolicy/cachestore/memstore"
	"github.com/jonwraymond/cachingpolicy/cachingpolicy"
	"github.com/jonwraymond/cachingpolicy/gatewayctx"
	"github.com/jonwraymond/cachingpolicy/internal/headers"
	"github.com/jonwraymond/cachingpolicy/observability"
	"github.com/jonwraymond/cachingpolicy/registry"
	"github.com/jonwraymond/cachingpolicy/resiliency"
	"github.com/jonwraymond/cachingpolicy/tee"
)

func main() {
	scenarioPath := flag.String("scenario", "", "path to a scenario JSON file (required)")
	configPath := flag.String("config", "", "path to a CachingConfig JSON file ({\"ttl\":60,\"includeQueryInKey\":false})")
	registryPath := flag.String("registry", "", "path to a registry JSON file; when absent, the -client value is used as the api key directly")
	apiKey := flag.String("client", "demo-client", "api key used as the request identity (resolved through -registry when set)")
	quiet := flag.Bool("quiet", false, "disable stdout tracing/metrics/logging")
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "gatewaysim: -scenario is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*scenarioPath, *configPath, *registryPath, *apiKey, *quiet); err != nil {
		log.Fatalf("gatewaysim: %v", err)
	}
}

func run(scenarioPath, configPath, registryPath, apiKey string, quiet bool) error {
	ctx := context.Background()

	sc, err := loadScenario(scenarioPath)
	if err != nil {
		return err
	}

	cfg, err := loadCachingConfig(configPath)
	if err != nil {
		return err
	}

	bundle, err := observability.NewBundle(ctx, observabilityConfig(quiet))
	if err != nil {
		return fmt.Errorf("set up observability: %w", err)
	}
	defer bundle.Shutdown(ctx)

	store := resiliency.NewGuard(memstore.New(), resiliency.GuardConfig{
		Circuit: resiliency.CircuitBreakerConfig{MaxFailures: 5, ResetTimeout: 30 * time.Second},
		Timeout: resiliency.TimeoutConfig{Timeout: 2 * time.Second},
	})

	var identity gatewayctx.Identity
	if registryPath != "" {
		reg, err := registry.NewFileRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("load registry: %w", err)
		}
		contract, ok, err := reg.ResolveContract(ctx, apiKey)
		if err != nil {
			return fmt.Errorf("resolve contract for %q: %w", apiKey, err)
		}
		if !ok {
			return fmt.Errorf("no contract registered for api key %q", apiKey)
		}
		identity = gatewayctx.Identity{HasAPIKey: true, APIKey: contract.APIKey}
	} else {
		identity = gatewayctx.Identity{HasAPIKey: true, APIKey: apiKey}
	}

	policy := cachingpolicy.New(store, cfg,
		cachingpolicy.WithLogger(bundle.Logger()),
		cachingpolicy.WithMetrics(bundle.Metrics()),
		cachingpolicy.WithTracer(bundle.Tracer()),
	)

	fmt.Printf("=== scenario: %s ===\n", sc.Name)
	for i, st := range sc.Steps {
		if st.SleepMs > 0 {
			time.Sleep(time.Duration(st.SleepMs) * time.Millisecond)
		}
		hit, status, body, err := runStep(ctx, policy, identity, st)
		if err != nil {
			fmt.Printf("step %d: %s %s -> error: %v\n", i+1, st.Method, st.Path, err)
			continue
		}
		outcome := "MISS (upstream called)"
		if hit {
			outcome = "HIT (replayed)"
		}
		fmt.Printf("step %d: %s %s -> %s, status=%d, body=%q\n", i+1, st.Method, st.Path, outcome, status, body)
	}

	return nil
}

func runStep(ctx context.Context, policy *cachingpolicy.Policy, identity gatewayctx.Identity, st step) (hit bool, status int, body []byte, err error) {
	gctx := gatewayctx.New()
	chain := passthroughChain{}

	h := headers.New()
	if st.AcceptHeader != "" {
		h.Set("Accept", st.AcceptHeader)
	}

	fp := gatewayctx.RequestFingerprint{
		Identity:    identity,
		Verb:        st.Method,
		Destination: st.Path,
		RawQuery:    st.Query,
		Headers:     h,
	}

	if err := policy.OnRequest(ctx, gctx, chain, fp); err != nil {
		return false, 0, nil, err
	}

	if connector := gctx.ConnectorInterceptor(); connector != nil {
		head, chunks, err := connector.Intercept(ctx)
		if err != nil {
			return false, 0, nil, err
		}
		var replayed []byte
		for chunk := range chunks {
			if chunk.Err != nil {
				return false, 0, nil, chunk.Err
			}
			replayed = append(replayed, chunk.Data...)
			if chunk.Done {
				break
			}
		}
		return true, head.Status, replayed, nil
	}

	respHeaders := headers.New()
	if st.UpstreamContentType != "" {
		respHeaders.Set("Content-Type", st.UpstreamContentType)
	}
	resp := gatewayctx.ResponseHead{Status: st.UpstreamStatus, Headers: respHeaders}

	if err := policy.OnResponse(ctx, gctx, chain, resp); err != nil {
		return false, 0, nil, err
	}

	var downstream bytes.Buffer
	w, err := policy.ResponseDataHandler(ctx, gctx, resp, &downstream)
	if err != nil {
		return false, 0, nil, err
	}
	if _, err := w.Write([]byte(st.UpstreamBody)); err != nil {
		return false, 0, nil, err
	}
	if tw, ok := w.(*tee.WriteStream); ok {
		if err := tw.End(); err != nil {
			return false, 0, nil, err
		}
	}

	return false, st.UpstreamStatus, downstream.Bytes(), nil
}

func loadCachingConfig(path string) (cachingpolicy.Config, error) {
	if path == "" {
		return cachingpolicy.Config{TTL: 60}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cachingpolicy.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var raw struct {
		TTL               int  `json:"ttl"`
		IncludeQueryInKey bool `json:"includeQueryInKey"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return cachingpolicy.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cachingpolicy.Config{TTL: raw.TTL, IncludeQueryInKey: raw.IncludeQueryInKey}, nil
}

func observabilityConfig(quiet bool) observability.Config {
	if quiet {
		return observability.Config{ServiceName: "gatewaysim"}
	}
	return observability.Config{
		ServiceName: "gatewaysim",
		Version:     "dev",
		Tracing:     observability.TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
		Metrics:     observability.MetricsConfig{Enabled: true, Exporter: "stdout"},
		Logging:     observability.LoggingConfig{Enabled: true, Level: "info"},
	}
}

// passthroughChain resumes unconditionally: gatewaysim drives the upstream
// call itself, outside the chain, so there is nothing left for the rest of
// a policy chain to do.
type passthroughChain struct{}

func (passthroughChain) DoApplyRequest(ctx context.Context, req gatewayctx.RequestFingerprint) error {
	return nil
}

func (passthroughChain) DoApplyResponse(ctx context.Context, resp gatewayctx.ResponseHead) error {
	return nil
}
