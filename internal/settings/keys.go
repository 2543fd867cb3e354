// Package settings reads the configuration store that names the fixed
// accounts used by automatic postings.
package settings

// Configuration keys holding account ids.
const (
	KeySalesRevenueAccount = "CUENTA_INGRESOS_VENTA"
	KeyCashAccount         = "CUENTA_CAJA_GENERAL"
	KeyTaxPayableAccount   = "CUENTA_ITBIS_POR_PAGAR"
)

// PostingKeys lists every key a posting depends on, in lookup order.
var PostingKeys = []string{KeySalesRevenueAccount, KeyCashAccount, KeyTaxPayableAccount}
