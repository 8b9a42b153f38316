package inboxship

import (
	"github.com/bft-labs/inboxship/pkg/log"
)

// Option configures optional behavior of a Service.
type Option func(*options)

type options struct {
	httpClient HTTPClient
	logger     log.Logger
	source     MessageSource
	settings   Settings
	validator  RecordValidator
	observer   Observer
	plugins    []Plugin
}

// WithHTTPClient sets the client used for webhook deliveries.
// If not provided, an *http.Client with Config.HTTPTimeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a structured logger. If not provided, nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSource replaces the source built from Config.Source.
func WithSource(source MessageSource) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithSettings replaces the TOML-backed settings store.
func WithSettings(settings Settings) Option {
	return func(o *options) {
		o.settings = settings
	}
}

// WithValidator replaces the validator built from Config.SchemaFile.
func WithValidator(v RecordValidator) Option {
	return func(o *options) {
		o.validator = v
	}
}

// WithObserver registers an observer for lifecycle and run events.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithPlugin registers a plugin to be initialized when the Service starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
