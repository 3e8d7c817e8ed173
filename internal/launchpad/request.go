// internal/launchpad/request.go
package launchpad

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// DefaultVestingDays applies when a raise request leaves VestingDays at zero.
const DefaultVestingDays = 365

// CreateLaunchRequest describes a PROJECT_RAISE. Amounts are in base units.
type CreateLaunchRequest struct {
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Supply      uint64          `json:"supply"`
	Target      uint64          `json:"target"`
	Max         uint64          `json:"max"`
	VestingDays int             `json:"vesting_days"`
	Metadata    domain.Metadata `json:"metadata"`
	BurnLP      bool            `json:"burn_lp"`
	Team        domain.TeamInfo `json:"team"`
}

// CreateInstantLaunchRequest describes an INSTANT_LAUNCH.
type CreateInstantLaunchRequest struct {
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol"`
	Supply     uint64          `json:"supply"`
	Metadata   domain.Metadata `json:"metadata"`
	InitialBuy uint64          `json:"initial_buy"`
	BurnLP     bool            `json:"burn_lp"`
}

// withDefaults fills the zero fields a client may omit: supply, max (= target)
// and vesting days.
func (r CreateLaunchRequest) withDefaults() CreateLaunchRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Symbol = normalizeSymbol(r.Symbol)
	if r.Supply == 0 {
		r.Supply = domain.SupplyUnits
	}
	if r.Max == 0 {
		r.Max = r.Target
	}
	if r.VestingDays == 0 {
		r.VestingDays = DefaultVestingDays
	}
	return r
}

func (r CreateInstantLaunchRequest) withDefaults() CreateInstantLaunchRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Symbol = normalizeSymbol(r.Symbol)
	if r.Supply == 0 {
		r.Supply = domain.SupplyUnits
	}
	return r
}

// Validate checks a raise request against platform bounds. It runs on a
// defaulted copy, so omitted fields never fail.
func (r CreateLaunchRequest) Validate(p domain.Params) error {
	r = r.withDefaults()
	if err := validateToken(p, r.Name, r.Symbol, r.Supply); err != nil {
		return err
	}
	if r.Target < p.MinRaiseTarget || r.Target > p.MaxRaiseTarget {
		return domain.Validation(domain.CodeBadTarget, "target %d outside [%d, %d]", r.Target, p.MinRaiseTarget, p.MaxRaiseTarget)
	}
	if r.Max < r.Target {
		return domain.Validation(domain.CodeBadTarget, "max %d below target %d", r.Max, r.Target)
	}
	if r.VestingDays < p.MinVestingDays || r.VestingDays > p.MaxVestingDays {
		return domain.Validation(domain.CodeBadVesting, "vesting of %d days outside [%d, %d]", r.VestingDays, p.MinVestingDays, p.MaxVestingDays)
	}
	return nil
}

// Validate checks an instant launch request against platform bounds.
func (r CreateInstantLaunchRequest) Validate(p domain.Params) error {
	r = r.withDefaults()
	if err := validateToken(p, r.Name, r.Symbol, r.Supply); err != nil {
		return err
	}
	if r.InitialBuy > p.MaxInitialBuy {
		return domain.Validation(domain.CodeBadAmount, "initial buy %d above limit %d", r.InitialBuy, p.MaxInitialBuy)
	}
	return nil
}

func validateToken(p domain.Params, name, symbol string, supply uint64) error {
	if n := utf8.RuneCountInString(name); n < p.MinNameLength || n > p.MaxNameLength {
		return domain.Validation(domain.CodeBadName, "name length %d outside [%d, %d]", n, p.MinNameLength, p.MaxNameLength)
	}
	if n := len(symbol); n < p.MinSymbolLength || n > p.MaxSymbolLength {
		return domain.Validation(domain.CodeBadSymbol, "symbol length %d outside [%d, %d]", n, p.MinSymbolLength, p.MaxSymbolLength)
	}
	for _, r := range symbol {
		if r > unicode.MaxASCII || (!unicode.IsUpper(r) && !unicode.IsDigit(r)) {
			return domain.Validation(domain.CodeBadSymbol, "symbol %q must be ASCII letters and digits", symbol)
		}
	}
	// Supply is fixed platform-wide.
	if supply != domain.SupplyUnits {
		return domain.Validation(domain.CodeBadSupply, "supply must be %d, got %d", domain.SupplyUnits, supply)
	}
	return nil
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
