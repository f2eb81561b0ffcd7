package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	FilesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateview_files_parsed_total",
		Help: "Total number of source files parsed successfully.",
	})

	ParseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateview_parse_errors_total",
		Help: "Total number of files that failed to parse.",
	})

	ItemsIndexed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crateview_items_indexed_total",
		Help: "Total number of items inserted into the database.",
	}, []string{"namespace"})

	WalkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crateview_walk_seconds",
		Help:    "Time spent on a scrape phase for one crate.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	ModulesWalked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateview_modules_walked_total",
		Help: "Total number of modules walked.",
	})

	ModuleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateview_module_failures_total",
		Help: "Total number of module subtrees abandoned after an error.",
	})

	MacrosExpanded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateview_macros_expanded_total",
		Help: "Total number of macro invocations expanded successfully.",
	})

	MacroFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateview_macro_failures_total",
		Help: "Total number of macro invocations that failed to expand or resolve.",
	})

	ImportsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateview_imports_resolved_total",
		Help: "Total number of import paths absolutized.",
	})

	ImportsUnresolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateview_imports_unresolved_total",
		Help: "Total number of import paths left unresolved after a pass.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crateview_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
