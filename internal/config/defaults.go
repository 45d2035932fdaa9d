package config

import "runtime"

// Default configuration values.
const (
	DefaultContext   = "."
	DefaultMode      = ModeProduction
	DefaultCachePath = ".leapbundle/cache.db"
)

// DefaultExtensions are probed, in order, for extensionless requests.
var DefaultExtensions = []string{".tsx", ".ts", ".jsx", ".js", ".mjs", ".cjs", ".json"}

// DefaultMainFiles are probed when a request resolves to a directory.
var DefaultMainFiles = []string{"index"}

// DefaultWorkers is the async task concurrency when none is configured.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// ApplyDefaults fills unset fields.
func (o *CompilerOptions) ApplyDefaults() {
	if o == nil {
		return
	}
	if o.Context == "" {
		o.Context = DefaultContext
	}
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if len(o.Resolve.Extensions) == 0 {
		o.Resolve.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if len(o.Resolve.MainFiles) == 0 {
		o.Resolve.MainFiles = append([]string(nil), DefaultMainFiles...)
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers()
	}
	if o.Cache.Path == "" {
		o.Cache.Path = DefaultCachePath
	}
}
