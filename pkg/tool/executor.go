package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/agentmesh/orchestrator/pkg/apperrors"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	maxBackoff        = 10 * time.Second
)

// ExecuteOptions overrides an Executor's per-call defaults.
type ExecuteOptions struct {
	Timeout    time.Duration
	MaxRetries int
	UseCache   bool
}

// Executor runs tool invocations with timeout, retry, isolation, and
// optional caching guarantees (spec §4.4). It is stateless except for the
// cache, which is safe for concurrent use.
type Executor struct {
	registry *Registry
	cache    *lru.Cache[string, Result]
	sleep    func(time.Duration) // overridable in tests
}

// NewExecutor builds an Executor. cacheSize <= 0 disables caching.
func NewExecutor(reg *Registry, cacheSize int) *Executor {
	e := &Executor{registry: reg, sleep: time.Sleep}
	if cacheSize > 0 {
		c, err := lru.New[string, Result](cacheSize)
		if err == nil {
			e.cache = c
		}
	}
	return e
}

// ClearCache evicts all cached results.
func (e *Executor) ClearCache() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

// Execute runs one tool call end to end: schema validation, cache lookup,
// timeout-bounded invocation, and retry-on-transient-failure.
func (e *Executor) Execute(ctx context.Context, toolName string, args map[string]any, opts ExecuteOptions) Result {
	def, ok := e.registry.Get(toolName)
	if !ok {
		return Result{Success: false, Error: "tool_not_found"}
	}

	if err := validateArgs(def.ParametersSchema, args); err != nil {
		return Result{Success: false, Error: "invalid_arguments"}
	}

	cacheKey := ""
	if opts.UseCache && e.cache != nil {
		cacheKey = cacheKeyFor(toolName, args)
		if cached, ok := e.cache.Get(cacheKey); ok {
			return cached
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	result := e.runWithRetry(ctx, def, args, timeout, maxRetries)

	if cacheKey != "" && result.Success {
		e.cache.Add(cacheKey, result)
	}
	return result
}

func (e *Executor) runWithRetry(ctx context.Context, def Definition, args map[string]any, timeout time.Duration, maxRetries int) Result {
	var last Result
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, transient := e.callOnce(ctx, def, args, timeout)
		if result.Success || !transient {
			return result
		}
		last = result
		if attempt == maxRetries {
			break
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		e.sleep(backoff)
	}
	return last
}

// callOnce invokes the handler once under a timeout, reporting whether the
// failure (if any) is transient and therefore worth retrying.
func (e *Executor) callOnce(ctx context.Context, def Definition, args map[string]any, timeout time.Duration) (Result, bool) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		output map[string]any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		output, err := def.Handler(callCtx, args)
		done <- outcome{output: output, err: err}
	}()

	select {
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return Result{Success: false, Error: "timeout"}, true
		}
		return Result{Success: false, Error: "cancelled"}, false
	case o := <-done:
		if o.err != nil {
			transient := apperrors.IsTransient(o.err)
			return Result{Success: false, Error: o.err.Error()}, transient
		}
		return Result{Success: true, Output: o.output}, false
	}
}

func validateArgs(schema map[string]any, args map[string]any) error {
	if schema == nil {
		return nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	compiled, err := jsonschema.CompileString("tool.schema.json", string(raw))
	if err != nil {
		return err
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return err
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return err
	}
	return compiled.Validate(decoded)
}

// cacheKeyFor builds the canonical (tool_name, canonical_json(args)) cache
// key from spec §4.4: keys are sorted so argument-ordering never affects
// cache hits.
func cacheKeyFor(toolName string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	canonical := make(map[string]any, len(args))
	for _, k := range keys {
		canonical[k] = args[k]
	}
	data, _ := json.Marshal(canonical)
	return fmt.Sprintf("%s:%s", toolName, data)
}
