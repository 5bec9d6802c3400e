package domain

import (
	"github.com/agnivade/levenshtein"
)

// Category labels offered by the form and the prompts. The set is a
// convention only; a transaction may carry any label.
const (
	CategoryFood         = "餐飲食品"
	CategoryTransport    = "交通運輸"
	CategoryShopping     = "購物休閒"
	CategoryEntertain    = "娛樂生活"
	CategoryHousing      = "居家住宅"
	CategoryUtilities    = "公共帳單"
	CategoryMedical      = "醫療保健"
	CategorySalary       = "薪資收入"
	CategoryInvestment   = "投資獲利"
	CategorySubscription = "訂閱服務"
	CategoryFees         = "手續費"
	CategoryOther        = "其他"
)

// DefaultCategory is used when nothing better is known.
const DefaultCategory = CategoryOther

// Categories is the ordered label set. The first entry is the form default.
var Categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryEntertain,
	CategoryHousing,
	CategoryUtilities,
	CategoryMedical,
	CategorySalary,
	CategoryInvestment,
	CategorySubscription,
	CategoryFees,
	CategoryOther,
}

// PromptCategories is the subset listed in the model prompts. The fees label
// is deliberately absent there; the model never proposes it.
var PromptCategories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryEntertain,
	CategoryHousing,
	CategoryUtilities,
	CategoryMedical,
	CategorySalary,
	CategoryInvestment,
	CategorySubscription,
	CategoryOther,
}

// IsKnownCategory reports whether label is one of Categories.
func IsKnownCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}

// NearestCategory returns the known label closest to label by edit distance,
// together with that distance. It is a display hint only; callers must not
// rewrite stored categories with it.
func NearestCategory(label string) (string, int) {
	best := DefaultCategory
	bestDist := -1
	for _, c := range Categories {
		d := levenshtein.ComputeDistance(label, c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}
