package crm

import (
	"math"
	"sort"
	"time"
)

var riskOrder = map[string]int{"High": 1, "Medium": 2, "Low": 3}

func riskRank(level string) int {
	if r, ok := riskOrder[level]; ok {
		return r
	}
	return len(riskOrder) + 1
}

// CustomerRisk is a customer entry of the churn-risk widget
type CustomerRisk struct {
	CustomerView
	DaysSinceCreation *int `json:"daysSinceCreation"`
}

// RankCustomerRisk orders customers High > Medium > Low (unknown last),
// keeps the original order within a level and returns at most limit entries.
func RankCustomerRisk(customers []CustomerView, now time.Time, limit int) []CustomerRisk {
	ranked := make([]CustomerRisk, 0, len(customers))
	for _, c := range customers {
		entry := CustomerRisk{CustomerView: c}
		if c.CreatedAt != nil {
			days := int(math.Floor(now.Sub(*c.CreatedAt).Hours() / 24))
			entry.DaysSinceCreation = &days
		}
		ranked = append(ranked, entry)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return riskRank(ranked[i].RiskLevel) < riskRank(ranked[j].RiskLevel)
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
