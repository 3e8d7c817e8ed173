// internal/domain/launch.go
package domain

import (
	"time"
)

// LaunchKind names the economic model of a launch.
type LaunchKind string

const (
	KindProjectRaise  LaunchKind = "PROJECT_RAISE"
	KindInstantLaunch LaunchKind = "INSTANT_LAUNCH"
)

// LaunchType is a closed variant: ProjectRaise or InstantLaunch. Call sites
// switch on the concrete type and must handle both.
type LaunchType interface {
	Kind() LaunchKind
	sealed()
}

// ProjectRaise is a time-boxed contribution raise against a target.
type ProjectRaise struct {
	Target      uint64
	Max         uint64
	Deadline    time.Time
	VestingDays int
	Team        TeamInfo
}

func (ProjectRaise) Kind() LaunchKind { return KindProjectRaise }
func (ProjectRaise) sealed()          {}

// InstantLaunch is a bonding-curve market that trades from creation.
type InstantLaunch struct {
	InitialBuy uint64
}

func (InstantLaunch) Kind() LaunchKind { return KindInstantLaunch }
func (InstantLaunch) sealed()          {}

// GraduationState tracks the one-way move of liquidity to the external venue.
type GraduationState int

const (
	NotGraduated GraduationState = iota
	Graduated
	// TradingEnabled is reachable only by PROJECT_RAISE launches.
	TradingEnabled
)

func (g GraduationState) String() string {
	switch g {
	case NotGraduated:
		return "not_graduated"
	case Graduated:
		return "graduated"
	case TradingEnabled:
		return "trading_enabled"
	default:
		return "unknown"
	}
}

// Metadata is descriptive launch data. Hosting of images is out of scope; only
// references are stored.
type Metadata struct {
	Description string `json:"description,omitempty" mapstructure:"description"`
	ImageURI    string `json:"image_uri,omitempty" mapstructure:"image_uri"`
	Website     string `json:"website,omitempty" mapstructure:"website"`
	Twitter     string `json:"twitter,omitempty" mapstructure:"twitter"`
	Telegram    string `json:"telegram,omitempty" mapstructure:"telegram"`
}

// TeamInfo describes the people behind a PROJECT_RAISE.
type TeamInfo struct {
	TeamName    string   `json:"team_name,omitempty" mapstructure:"team_name"`
	Members     []string `json:"members,omitempty" mapstructure:"members"`
	Roadmap     string   `json:"roadmap,omitempty" mapstructure:"roadmap"`
	Doxxed      bool     `json:"doxxed" mapstructure:"doxxed"`
	ContactInfo string   `json:"contact_info,omitempty" mapstructure:"contact_info"`
}

// LaunchRecord is the aggregate root for one token.
type LaunchRecord struct {
	ID            LaunchID
	Name          string
	Symbol        string
	Metadata      Metadata
	Founder       Address
	PlatformOwner Address
	Type          LaunchType
	TotalSupply   uint64
	BurnLP        bool
	Graduation    GraduationState

	CreatedAt    time.Time
	CreatedBlock uint64
	GraduatedAt  time.Time
	// GraduationMarketCap is the venue market cap in native units right after
	// liquidity was committed. Creator fee claims are gated on it.
	GraduationMarketCap uint64
}

// Escrow returns the launch's escrow address.
func (r *LaunchRecord) Escrow() Address {
	return EscrowAddress(r.ID)
}

// IsFounder reports whether addr created the launch.
func (r *LaunchRecord) IsFounder(addr Address) bool {
	return r.Founder.Equals(addr)
}

// IsPlatformOwner reports whether addr is the launch's platform-owner role.
func (r *LaunchRecord) IsPlatformOwner(addr Address) bool {
	return r.PlatformOwner.Equals(addr)
}

// RequireFounder rejects callers other than the founder.
func (r *LaunchRecord) RequireFounder(caller Address) error {
	if !r.IsFounder(caller) {
		return Unauthorized(CodeNotFounder, "caller %s is not the founder of %s", caller, r.Symbol)
	}
	return nil
}

// RequirePlatformOwner rejects callers other than the platform owner.
func (r *LaunchRecord) RequirePlatformOwner(caller Address) error {
	if !r.IsPlatformOwner(caller) {
		return Unauthorized(CodeNotPlatformOwner, "caller %s is not the platform owner of %s", caller, r.Symbol)
	}
	return nil
}

// AsProjectRaise returns the raise variant or a wrong-launch-type error.
func (r *LaunchRecord) AsProjectRaise() (ProjectRaise, error) {
	pr, ok := r.Type.(ProjectRaise)
	if !ok {
		return ProjectRaise{}, Precondition(CodeWrongLaunchType, "%s is %s, not %s", r.Symbol, r.Type.Kind(), KindProjectRaise)
	}
	return pr, nil
}

// AsInstantLaunch returns the instant variant or a wrong-launch-type error.
func (r *LaunchRecord) AsInstantLaunch() (InstantLaunch, error) {
	il, ok := r.Type.(InstantLaunch)
	if !ok {
		return InstantLaunch{}, Precondition(CodeWrongLaunchType, "%s is %s, not %s", r.Symbol, r.Type.Kind(), KindInstantLaunch)
	}
	return il, nil
}
