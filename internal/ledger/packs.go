package ledger

// PackCode identifies a purchasable energy pack (spec §9 supplement, renamed
// from the source's café/petit-déj/repas/unlimited naming to generic codes).
type PackCode string

const (
	PackStarter          PackCode = "starter"
	PackStandard         PackCode = "standard"
	PackBulk             PackCode = "bulk"
	PackUnlimitedMonthly PackCode = "unlimited_monthly"
)

// Pack describes a purchasable energy pack's economics.
type Pack struct {
	Code               PackCode
	PriceCents         int
	EnergyAmount       int // -1 means unlimited subscription, not a credited amount
	BonusFirstPurchase int
	Subscription       bool
}

// PackCatalog carries the source's pack economics exactly, renamed only.
var PackCatalog = map[PackCode]Pack{
	PackStarter: {
		Code:               PackStarter,
		PriceCents:         299,
		EnergyAmount:       100,
		BonusFirstPurchase: 10,
	},
	PackStandard: {
		Code:               PackStandard,
		PriceCents:         599,
		EnergyAmount:       100,
		BonusFirstPurchase: 0,
	},
	PackBulk: {
		Code:               PackBulk,
		PriceCents:         999,
		EnergyAmount:       100,
		BonusFirstPurchase: 0,
	},
	PackUnlimitedMonthly: {
		Code:               PackUnlimitedMonthly,
		PriceCents:         2999,
		EnergyAmount:       -1,
		Subscription:       true,
	},
}

// LookupPack resolves a pack code, returning ok=false for unknown codes.
func LookupPack(code PackCode) (Pack, bool) {
	p, ok := PackCatalog[code]
	return p, ok
}
