package analyzer

import "github.com/use-agent/webauditor/model"

// budget is a threshold profile content-weight and performance scoring
// consult instead of one fixed set of cutoffs, since a blog page and an
// ecommerce product page have different reasonable weight/vitals targets.
type budget struct {
	MaxTotalBytes int64
	MaxImageBytes int64
	MaxJSBytes    int64
	GoodLCPMs     float64
	PoorLCPMs     float64
	GoodCLS       float64
	PoorCLS       float64
}

var budgets = map[model.BudgetTemplate]budget{
	model.BudgetDefault: {
		MaxTotalBytes: 2_000_000,
		MaxImageBytes: 1_000_000,
		MaxJSBytes:    500_000,
		GoodLCPMs:     2500,
		PoorLCPMs:     4000,
		GoodCLS:       0.1,
		PoorCLS:       0.25,
	},
	model.BudgetEcommerce: {
		MaxTotalBytes: 3_500_000,
		MaxImageBytes: 2_200_000,
		MaxJSBytes:    700_000,
		GoodLCPMs:     2800,
		PoorLCPMs:     4500,
		GoodCLS:       0.1,
		PoorCLS:       0.25,
	},
	model.BudgetBlog: {
		MaxTotalBytes: 1_500_000,
		MaxImageBytes: 900_000,
		MaxJSBytes:    300_000,
		GoodLCPMs:     2200,
		PoorLCPMs:     3800,
		GoodCLS:       0.1,
		PoorCLS:       0.25,
	},
	model.BudgetCorporate: {
		MaxTotalBytes: 2_500_000,
		MaxImageBytes: 1_400_000,
		MaxJSBytes:    600_000,
		GoodLCPMs:     2600,
		PoorLCPMs:     4200,
		GoodCLS:       0.1,
		PoorCLS:       0.25,
	},
}

func budgetFor(t model.BudgetTemplate) budget {
	if b, ok := budgets[t]; ok {
		return b
	}
	return budgets[model.BudgetDefault]
}

func rateAgainst(value, good, poor float64) model.Rating {
	switch {
	case value <= good:
		return model.RatingGood
	case value > poor:
		return model.RatingPoor
	default:
		return model.RatingNeedsImprovement
	}
}
