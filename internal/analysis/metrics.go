package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricAnalyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codecoach",
		Name:      "analyses_total",
		Help:      "Number of analysis passes, by language.",
	}, []string{"language"})
	metricRuleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codecoach",
		Name:      "rule_failures_total",
		Help:      "Number of rule checks that panicked and were skipped.",
	}, []string{"rule"})
	metricPipelineFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codecoach",
		Name:      "pipeline_failures_total",
		Help:      "Number of analyses replaced by the synthetic failure result.",
	})
)

func recordAnalysis(lang Language) {
	label := string(lang)
	switch lang {
	case LanguageJavaScript, LanguageTypeScript, LanguagePython:
	default:
		label = "other"
	}
	metricAnalyses.WithLabelValues(label).Inc()
}

func recordRuleFailure(ruleID string) {
	metricRuleFailures.WithLabelValues(ruleID).Inc()
}

func recordPipelineFailure() {
	metricPipelineFailures.Inc()
}
