package form

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

// DefaultCacheTTL is how long compiled forms stay cached.
const DefaultCacheTTL = 6 * time.Hour

const cacheKeyPrefix = "form:"

// Result is the outcome of a compile.
type Result struct {
	HTML      string
	Signature string

	// Tree is nil when the HTML came from the cache.
	Tree   *types.Node
	Cached bool
}

// Compiler runs the declaration pipeline and caches rendered forms by the
// signature of their declaration grid.
type Compiler struct {
	cache   types.Cache
	ttl     time.Duration
	logger  *slog.Logger
	options RenderOptions
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithCacheTTL sets how long rendered forms are cached.
func WithCacheTTL(ttl time.Duration) CompilerOption {
	return func(c *Compiler) { c.ttl = ttl }
}

// WithCompilerLogger sets the logger. The default is slog.Default().
func WithCompilerLogger(l *slog.Logger) CompilerOption {
	return func(c *Compiler) { c.logger = l }
}

// WithRenderOptions sets the page options passed to Render.
func WithRenderOptions(o RenderOptions) CompilerOption {
	return func(c *Compiler) { c.options = o }
}

// NewCompiler returns a Compiler. cache may be nil to disable caching.
func NewCompiler(cache types.Cache, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		cache:   cache,
		ttl:     DefaultCacheTTL,
		logger:  slog.Default(),
		options: DefaultRenderOptions(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Signature returns the hex MD5 digest of the JSON form of grid.
func Signature(grid [][]string) string {
	if grid == nil {
		grid = [][]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// A [][]string always encodes.
	_ = enc.Encode(grid)
	sum := md5.Sum(bytes.TrimRight(buf.Bytes(), "\n"))
	return hex.EncodeToString(sum[:])
}

// Compile builds, validates and renders grid. Unless refresh is set, a
// cached rendering with the same signature is returned without rebuilding.
// Cache failures are logged and otherwise ignored. Validation failures are
// returned as types.ValidationErrors and nothing is rendered or cached.
func (c *Compiler) Compile(grid [][]string, refresh bool) (Result, error) {
	sig := Signature(grid)
	key := c.cacheKey(sig)

	if c.cache != nil && !refresh {
		html, ok, err := c.cache.Get(key)
		if err != nil {
			c.logger.Warn("form cache read failed", "key", key, "error", err)
		} else if ok {
			c.logger.Debug("form cache hit", "signature", sig)
			return Result{HTML: html, Signature: sig, Cached: true}, nil
		}
	}

	tree, err := Build(grid)
	if err != nil {
		return Result{Tree: tree, Signature: sig}, err
	}
	html := Render(tree, c.options)

	if c.cache != nil {
		if err := c.cache.Put(key, html, c.ttl); err != nil {
			c.logger.Warn("form cache write failed", "key", key, "error", err)
		}
	}
	c.logger.Debug("form compiled", "signature", sig, "bytes", len(html))
	return Result{HTML: html, Signature: sig, Tree: tree}, nil
}

// cacheKey distinguishes renderings of one grid made with non-default
// options.
func (c *Compiler) cacheKey(sig string) string {
	key := cacheKeyPrefix + sig
	if c.options.withDefaults() != DefaultRenderOptions() {
		opts, _ := json.Marshal(c.options)
		sum := md5.Sum(opts)
		key += ":" + hex.EncodeToString(sum[:4])
	}
	return key
}
