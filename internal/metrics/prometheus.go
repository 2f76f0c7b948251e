// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the gamification engine.
var (
	// Rule engine counters.
	RulesEvaluatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rules_evaluated_total",
			Help: "Total number of rule evaluations, fired or not",
		},
		[]string{"trigger_entity"},
	)

	RulesFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rules_fired_total",
			Help: "Total number of rules whose actions were executed",
		},
		[]string{"rule_name"},
	)

	RuleExecutionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_execution_failures_total",
			Help: "Total number of rule executions that failed and were rolled back",
		},
		[]string{"rule_name"},
	)

	RuleDuplicateSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_duplicate_skips_total",
			Help: "Total number of rule firings skipped because the trigger was already recorded",
		},
		[]string{"rule_name"},
	)

	// Points and badges.
	PointsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_awarded_total",
			Help: "Total points awarded, by source",
		},
		[]string{"source"},
	)

	LevelUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Total number of level-up events",
		},
	)

	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge_name", "earned_through"},
	)

	ActiveBadgeHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_badge_holders",
			Help: "Current number of users holding each badge",
		},
		[]string{"badge_name"},
	)

	// Histograms.
	RuleExecutionDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rule_execution_duration_seconds",
			Help:    "Time taken to evaluate and execute all rules for one trigger",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
	)

	// HTTP surface.
	RateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	AuthDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_denials_total",
			Help: "Total requests denied by permission checks",
		},
		[]string{"permission"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"job", "status"},
	)

	SchedulerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
		[]string{"job"},
	)

	MonthlyPointsResetUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monthly_points_reset_users",
			Help: "Number of user rows touched by the last monthly points reset",
		},
	)
)

// RecordRuleEvaluated records one rule evaluation for a trigger entity.
func RecordRuleEvaluated(triggerEntity string) {
	RulesEvaluatedTotal.WithLabelValues(triggerEntity).Inc()
}

// RecordRuleFired records a rule whose actions ran to completion.
func RecordRuleFired(ruleName string) {
	RulesFiredTotal.WithLabelValues(ruleName).Inc()
}

// RecordRuleExecutionFailure records a rolled-back rule execution.
func RecordRuleExecutionFailure(ruleName string) {
	RuleExecutionFailuresTotal.WithLabelValues(ruleName).Inc()
}

// RecordRuleDuplicateSkip records a firing skipped by the replay guard.
func RecordRuleDuplicateSkip(ruleName string) {
	RuleDuplicateSkipsTotal.WithLabelValues(ruleName).Inc()
}

// RecordPointsAwarded records awarded points by source.
func RecordPointsAwarded(source string, amount int) {
	PointsAwardedTotal.WithLabelValues(source).Add(float64(amount))
}

// RecordLevelUp records a level-up event.
func RecordLevelUp() {
	LevelUpsTotal.Inc()
}

// RecordBadgeAwarded records an awarded badge.
func RecordBadgeAwarded(badgeName, earnedThrough string) {
	BadgesAwardedTotal.WithLabelValues(badgeName, earnedThrough).Inc()
}

// SetActiveBadgeHolders sets the holder gauge for a badge.
func SetActiveBadgeHolders(badgeName string, count int64) {
	ActiveBadgeHolders.WithLabelValues(badgeName).Set(float64(count))
}

// ObserveRuleExecutionDuration records how long one trigger took end to end.
func ObserveRuleExecutionDuration(d time.Duration) {
	RuleExecutionDurationSeconds.Observe(d.Seconds())
}

// RecordRateLimitRejection records a request rejected by the rate limiter.
func RecordRateLimitRejection(route string) {
	RateLimitRejectionsTotal.WithLabelValues(route).Inc()
}

// RecordAuthDenial records a request denied by a permission check.
func RecordAuthDenial(permission string) {
	AuthDenialsTotal.WithLabelValues(permission).Inc()
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
	SchedulerLastRunTimestamp.WithLabelValues(job).SetToCurrentTime()
}

// SetMonthlyPointsResetUsers records how many rows the last reset touched.
func SetMonthlyPointsResetUsers(count int64) {
	MonthlyPointsResetUsers.Set(float64(count))
}
