package pricing

import "stayride/internal/domain/shared/money"

// VATRate is the VAT applied to platform fees and host commissions.
var VATRate = money.Percent(20)

// VATSplit is an HT amount with its VAT and TTC counterparts.
type VATSplit struct {
	HT  int64 `json:"ht"`
	VAT int64 `json:"vat"`
	TTC int64 `json:"ttc"`
}

// SplitVAT computes VAT = round(ht * 20%) and TTC = ht + VAT.
// Cleaning fees and local taxes are already TTC and never go through here.
func SplitVAT(ht int64) VATSplit {
	vat := money.Share(ht, VATRate)
	return VATSplit{HT: ht, VAT: vat, TTC: ht + vat}
}

// CleaningFee waives the fee once the stay reaches the free-cleaning threshold.
func CleaningFee(units int, fee int64, freeCleaningMinUnits *int) int64 {
	if freeCleaningMinUnits != nil && units >= *freeCleaningMinUnits {
		return 0
	}
	return fee
}

// LocalTaxes are a per-listing constant passed through to the total undiscounted.
func LocalTaxes(taxes int64) int64 {
	if taxes < 0 {
		return 0
	}
	return taxes
}
