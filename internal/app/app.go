// Package app assembles the dispatcher from configuration. Entry points call
// it once at startup.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"tourism-chat/internal/config"
	"tourism-chat/internal/filter"
	"tourism-chat/internal/integrations/gemini"
	"tourism-chat/internal/integrations/genaisdk"
	"tourism-chat/internal/integrations/paramstore"
	"tourism-chat/internal/usecase"
)

// Params reads SSM parameters. *paramstore.Client satisfies it.
type Params interface {
	GetParameter(ctx context.Context, name string) (string, error)
	Lookup(ctx context.Context, name string) (string, bool, error)
}

// NeedsParams reports whether cfg reads anything from SSM.
func NeedsParams(cfg *config.Config) bool {
	return (cfg.APIKey == "" && cfg.ParamPrefix != "") || cfg.RulesParameter != ""
}

// NewParamStore creates an SSM-backed parameter reader from the default AWS
// credential chain.
func NewParamStore(ctx context.Context) (*paramstore.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	return paramstore.New(awsssm.NewFromConfig(awsCfg))
}

// NewDispatcher builds the ruleset and generator described by cfg. params may
// be nil when NeedsParams(cfg) is false.
func NewDispatcher(ctx context.Context, cfg *config.Config, params Params, opts ...usecase.DispatcherOption) (*usecase.Dispatcher, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if params == nil && NeedsParams(cfg) {
		return nil, errors.New("app: parameter store required by configuration")
	}
	rules, err := LoadRuleset(ctx, cfg, params)
	if err != nil {
		return nil, err
	}
	gen, err := NewGenerator(ctx, cfg, params)
	if err != nil {
		return nil, err
	}
	return usecase.NewDispatcher(rules, gen, opts...)
}

// LoadRuleset picks RULES_FILE, then RULES_PARAMETER, then the built-in rules.
func LoadRuleset(ctx context.Context, cfg *config.Config, params Params) (*filter.Ruleset, error) {
	switch {
	case cfg.RulesFile != "":
		rules, err := filter.Load(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return rules, nil
	case cfg.RulesParameter != "":
		raw, ok, err := params.Lookup(ctx, cfg.RulesParameter)
		if err != nil {
			return nil, fmt.Errorf("app: load rules parameter: %w", err)
		}
		if !ok {
			return filter.Default(), nil
		}
		rules, err := filter.Parse([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return rules, nil
	default:
		return filter.Default(), nil
	}
}

func keySource(cfg *config.Config, params Params) gemini.KeySource {
	if cfg.APIKey != "" {
		return gemini.StaticKey(cfg.APIKey)
	}
	return gemini.ParamStoreKey{Getter: params, Name: gemini.KeyParameterName(cfg.ParamPrefix)}
}

// NewGenerator returns the REST or SDK generator selected by GEMINI_BACKEND.
func NewGenerator(ctx context.Context, cfg *config.Config, params Params) (usecase.Generator, error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	keys := keySource(cfg, params)

	switch cfg.Backend {
	case config.BackendSDK:
		// The SDK takes the key up front, so resolve it now.
		apiKey, err := keys.APIKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: resolve API key: %w", err)
		}
		opts := []genaisdk.Option{genaisdk.WithHTTPClient(httpClient)}
		if cfg.BaseURL != "" {
			opts = append(opts, genaisdk.WithBaseURL(cfg.BaseURL))
		}
		return genaisdk.New(ctx, apiKey, cfg.Model, opts...)
	case config.BackendREST, "":
		opts := []gemini.Option{gemini.WithModel(cfg.Model), gemini.WithHTTPClient(httpClient)}
		if cfg.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
		}
		return gemini.NewClient(keys, opts...)
	default:
		return nil, fmt.Errorf("app: unknown backend %q", cfg.Backend)
	}
}
