package credentials

import (
	"log/slog"
	"os"
	"sort"
)

// Resolver builds the ordered credential list for a retry chain. Detection is
// pure filesystem observation; no browser is ever launched.
type Resolver struct {
	// CookiesFile returns the configured cookie jar path, or empty. Read per
	// call so config changes apply to the next retry chain.
	CookiesFile func() string

	logger *slog.Logger

	// Detection seams, overridable in tests.
	detect   func() []string
	priority []string
}

// NewResolver creates a resolver using the platform browser probes.
func NewResolver(cookiesFile func() string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		CookiesFile: cookiesFile,
		logger:      logger.With("component", "credentials"),
		detect:      detectBrowsers,
		priority:    browserPriority,
	}
}

// Ordered returns the credentials to try, in order: the configured cookie
// file first when it exists, then each detected browser by platform priority.
func (r *Resolver) Ordered() []Credential {
	var out []Credential

	if path := r.CookiesFile(); path != "" {
		if _, err := os.Stat(path); err == nil {
			out = append(out, FromCookieFile(path))
		} else {
			r.logger.Warn("configured cookies file missing", "path", path)
		}
	}

	browsers := r.detect()
	sortByPriority(browsers, r.priority)
	r.logger.Info("detected installed browsers", "browsers", browsers)

	for _, tag := range browsers {
		out = append(out, FromBrowser(tag))
	}
	return out
}

// sortByPriority orders tags by their position in priority; unknown tags sink
// to the end in their original relative order.
func sortByPriority(tags []string, priority []string) {
	rank := func(tag string) int {
		for i, p := range priority {
			if p == tag {
				return i
			}
		}
		return len(priority)
	}
	sort.SliceStable(tags, func(i, j int) bool {
		return rank(tags[i]) < rank(tags[j])
	})
}
