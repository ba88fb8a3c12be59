package runtime

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

func (c ReadyCheck) label() string {
	if c.Name == "" {
		return "dependency"
	}
	return c.Name
}

// RunChecks executes every check with its own timeout and returns the
// failures keyed by check name. A nil map means all checks passed.
func RunChecks(ctx context.Context, timeout time.Duration, checks ...ReadyCheck) map[string]error {
	var failures map[string]error
	for _, check := range checks {
		if check.Check == nil {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		err := check.Check(checkCtx)
		cancel()
		if err != nil {
			if failures == nil {
				failures = map[string]error{}
			}
			failures[check.label()] = err
		}
	}
	return failures
}

func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		failures := RunChecks(r.Context(), 2*time.Second, checks...)
		if len(failures) > 0 {
			msgs := make([]string, 0, len(failures))
			for _, check := range checks {
				name := check.label()
				if err, ok := failures[name]; ok {
					msgs = append(msgs, name+": "+err.Error())
					delete(failures, name)
				}
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(strings.Join(msgs, "; ")))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
