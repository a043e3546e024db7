// Package classify maps free-text entry descriptions and raw import
// categories onto the canonical category set.
package classify

import "strings"

// Canonical expense categories.
const (
	CategoryHousing       = "Housing & Utilities"
	CategoryTransport     = "Transportation"
	CategoryFood          = "Food & Dining"
	CategoryPersonal      = "Personal & Shopping"
	CategoryHealth        = "Health & Fitness"
	CategoryEntertainment = "Entertainment & Leisure"
	CategoryEducation     = "Education"
	CategoryFinancial     = "Financial"
	CategoryTravel        = "Travel & Vacation"
	CategoryMisc          = "Miscellaneous"
)

// Canonical income fallback.
const CategoryOtherIncome = "Other Income"

var expenseSynonyms = map[string][]string{
	CategoryHousing: {
		"housing", "rent", "mortgage", "utilities", "electricity", "water bill",
		"gas bill", "internet", "wifi", "maintenance", "household", "bills",
		"family", "childcare", "kids", "baby", "gifts", "parents", "friends",
		"celebration", "festivals",
	},
	CategoryTransport: {
		"transportation", "transport", "commute", "bus", "train", "metro",
		"cab", "uber", "bike", "taxi", "car", "fuel", "petrol", "diesel",
		"parking", "vehicle", "travel local",
	},
	CategoryFood: {
		"food", "foods", "dining", "restaurant", "meal", "meals", "groceries",
		"supermarket", "snacks", "coffee", "lunch", "dinner", "breakfast",
		"takeaway",
	},
	CategoryPersonal: {
		"personal", "shopping", "clothes", "apparel", "fashion", "cosmetics",
		"beauty", "grooming", "electronics", "gadgets", "online shopping", "mall",
	},
	CategoryHealth: {
		"health", "fitness", "gym", "workout", "exercise", "doctor", "hospital",
		"medicine", "pharmacy", "drugs", "clinic", "checkup", "yoga",
	},
	CategoryEntertainment: {
		"entertainment", "movies", "cinema", "concert", "theatre", "music",
		"games", "gaming", "subscriptions", "netflix", "spotify", "party",
		"leisure",
	},
	CategoryEducation: {
		"education", "school", "college", "tuition", "books", "courses",
		"online courses", "training", "exam",
	},
	CategoryFinancial: {
		"financial", "insurance", "loan", "emi", "investment", "bank charges",
		"stock-market", "share-market", "interest paid", "credit card", "tax",
		"fees", "finance",
	},
	CategoryTravel: {
		"travel", "vacation", "trip", "holiday", "tourism", "flight",
		"hotel", "resort", "tickets", "visa", "tour",
	},
	CategoryMisc: {
		"miscellaneous", "misc", "other", "unknown", "extra", "donation",
		"others", "uncategorized",
	},
}

var incomeSynonyms = map[string][]string{
	"Salary": {
		"salary", "salaries", "wages", "paycheck", "monthly pay", "stipend",
		"monthly payment",
	},
	"Business": {
		"business", "self-employed", "trade", "sales", "company income",
	},
	"Freelance": {
		"freelance", "freelancer", "contract work", "contract", "gig",
		"side hustle", "consulting",
	},
	"Rental Income": {
		"rental income", "rent", "lease", "property income", "rental",
	},
	"Dividends": {
		"dividends", "shares", "stocks", "equity return", "stock income",
		"investment",
	},
	"Interest Income": {
		"interest income", "bank interest", "deposit interest", "fd interest",
		"rd interest", "interest",
	},
	"Gifts & Donations": {
		"gifts", "gift", "donation", "donations", "present", "charity received",
	},
	"Refunds": {
		"refunds", "refund", "rebate", "cashback", "reimbursement",
	},
	"Retirement Income": {
		"retirement income", "pension", "provident fund", "pf", "annuity",
		"retirement",
	},
	"Bonus & Incentives": {
		"bonus", "incentive", "performance pay", "commission", "perks",
	},
	"Other Income": {
		"other income", "miscellaneous", "misc", "unknown", "extra income",
		"other",
	},
}

// expense category order for deterministic prediction across map iteration.
var expenseOrder = []string{
	CategoryHousing, CategoryTransport, CategoryFood, CategoryPersonal,
	CategoryHealth, CategoryEntertainment, CategoryEducation,
	CategoryFinancial, CategoryTravel, CategoryMisc,
}

var incomeOrder = []string{
	"Salary", "Business", "Freelance", "Rental Income", "Dividends",
	"Interest Income", "Gifts & Donations", "Refunds", "Retirement Income",
	"Bonus & Incentives", "Other Income",
}

// NormalizeExpenseCategory maps a raw category label from an import onto
// the canonical expense set, falling back to Miscellaneous.
func NormalizeExpenseCategory(raw string) string {
	needle := strings.ToLower(strings.TrimSpace(raw))
	for _, category := range expenseOrder {
		for _, syn := range expenseSynonyms[category] {
			if needle == syn {
				return category
			}
		}
	}
	return CategoryMisc
}

// NormalizeIncomeCategory maps a raw income category label onto the
// canonical income set, falling back to Other Income.
func NormalizeIncomeCategory(raw string) string {
	needle := strings.ToLower(strings.TrimSpace(raw))
	for _, category := range incomeOrder {
		for _, syn := range incomeSynonyms[category] {
			if needle == syn {
				return category
			}
		}
	}
	return CategoryOtherIncome
}

// KeywordClassifier predicts a canonical expense category from free text
// by keyword lookup. It first tries the whole description as a label, then
// individual words, so "Dinner at Luigi's" lands in Food & Dining.
type KeywordClassifier struct{}

// NewKeywordClassifier returns the keyword-based category predictor.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// PredictCategory returns the canonical expense category for the text, or
// Miscellaneous when nothing matches.
func (c *KeywordClassifier) PredictCategory(text string) string {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return CategoryMisc
	}

	if label := NormalizeExpenseCategory(needle); label != CategoryMisc {
		return label
	}

	for _, word := range strings.FieldsFunc(needle, func(r rune) bool {
		return r == ' ' || r == ',' || r == '-' || r == '/' || r == '\''
	}) {
		if label := NormalizeExpenseCategory(word); label != CategoryMisc {
			return label
		}
	}
	return CategoryMisc
}
