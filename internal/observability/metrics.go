package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	loginsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "engine",
		Name:      "logins_total",
		Help:      "Number of login accountings grouped by outcome.",
	}, []string{"outcome"})

	badgesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "engine",
		Name:      "badges_earned_total",
		Help:      "Number of badges awarded by the badge engine.",
	})

	tierChangeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "engine",
		Name:      "tier_changes_total",
		Help:      "Number of tier transitions grouped by destination tier.",
	}, []string{"tier"})

	completionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gamification_service",
		Subsystem: "engine",
		Name:      "challenges_completed_total",
		Help:      "Number of challenge completion transitions.",
	})
)

func init() {
	prometheus.MustRegister(loginsCounter, badgesCounter, tierChangeCounter, completionsCounter)
}

// RecordLogin counts a login accounting by outcome (new_day, same_day, streak_broken).
func RecordLogin(outcome string) {
	loginsCounter.WithLabelValues(outcome).Inc()
}

// RecordBadges counts awarded badges.
func RecordBadges(n int) {
	if n > 0 {
		badgesCounter.Add(float64(n))
	}
}

// RecordTierChange counts a tier transition.
func RecordTierChange(tier string) {
	tierChangeCounter.WithLabelValues(tier).Inc()
}

// RecordChallengeCompleted counts a completion transition.
func RecordChallengeCompleted() {
	completionsCounter.Inc()
}
