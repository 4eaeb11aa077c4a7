// Package matching holds the pure comparison functions that gate state
// transitions. They read only a trade's immutable creation data and never
// mutate anything; recording the outcome is the caller's job.
package matching

import (
	"strconv"

	"github.com/agnivade/levenshtein"

	"tradeledger/internal/domain"
)

// AMLRiskThreshold is the fixed acceptance bound for amlRiskRank boundary
// matches. The trade carries no risk field; the submitted upper bound alone is
// compared to this constant.
const AMLRiskThreshold = 0.05

// LevenshteinUnsupported is returned for keys with no fuzzy comparison.
const LevenshteinUnsupported = -1

// Exact reports whether value equals the trade's recorded fact for key.
// Unknown keys never match.
func Exact(info domain.TradeInfo, key, value string) bool {
	switch key {
	case "buyerName":
		return info.BuyerName == value
	case "buyerCountry":
		return info.BuyerCountry == value
	case "sellerName":
		return info.SellerName == value
	case "sellerCountry":
		return info.SellerCountry == value
	case "asset":
		return info.Asset == value
	case "quantity":
		return formatAmount(info.Quantity) == value
	case "price":
		return formatAmount(info.Price) == value
	case "tradeDate":
		return info.TradeDate == value
	case "underSanction":
		// There is no sanction flag on the trade; the submitter asserts it.
		return value == "true"
	}
	return false
}

// Boundary reports whether the trade's numeric fact for key lies strictly
// between min and max. For amlRiskRank the submitted max is checked against
// the fixed threshold instead of any trade attribute.
func Boundary(info domain.TradeInfo, key string, min, max float64) bool {
	switch key {
	case "quantity":
		return min < info.Quantity && info.Quantity < max
	case "price":
		return min < info.Price && info.Price < max
	case "tradeDate":
		ts, err := strconv.ParseFloat(info.TradeDate, 64)
		if err != nil {
			return false
		}
		return min < ts && ts < max
	case "amlRiskRank":
		return max < AMLRiskThreshold
	}
	return false
}

// Levenshtein returns the edit distance between value and the trade's recorded
// fact for key, or LevenshteinUnsupported for keys with no fuzzy comparison.
func Levenshtein(info domain.TradeInfo, key, value string) int {
	switch key {
	case "buyerName":
		return levenshtein.ComputeDistance(info.BuyerName, value)
	case "buyerCountry":
		return levenshtein.ComputeDistance(info.BuyerCountry, value)
	case "sellerName":
		return levenshtein.ComputeDistance(info.SellerName, value)
	case "sellerCountry":
		return levenshtein.ComputeDistance(info.SellerCountry, value)
	case "asset":
		return levenshtein.ComputeDistance(info.Asset, value)
	}
	return LevenshteinUnsupported
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
