package patterns

// Built-in category names. These are the stable identifiers exposed to callers.
const (
	AutomaticRenewal        = "automatic renewal"
	RenewalWithoutConsent   = "renewal without consent"
	PenaltyClause           = "penalty clause"
	LiquidatedDamages       = "liquidated damages"
	NonRefundable           = "non-refundable"
	LatePaymentFees         = "late payment fees"
	TerminationRestrictions = "termination restrictions"
	WarrantyDisclaimer      = "warranty disclaimer"
	LimitationOfLiability   = "limitation of liability"
	GoverningLaw            = "governing law"
)

// DefaultDefinitions returns the built-in contractual red-flag table
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Name:        AutomaticRenewal,
			Pattern:     `\bautomatic renewal\b`,
			Description: "Agreement renews on its own unless actively cancelled",
			Severity:    SeverityMedium,
		},
		{
			Name:        RenewalWithoutConsent,
			Pattern:     `\bwithout (?:prior )?notice\b`,
			Description: "Changes or renewals may happen without notice to you",
			Severity:    SeverityHigh,
		},
		{
			Name:        PenaltyClause,
			Pattern:     `\bpenalty of\b`,
			Description: "A stated penalty applies on breach or early exit",
			Severity:    SeverityHigh,
		},
		{
			Name:        LiquidatedDamages,
			Pattern:     `\bliquidated damages\b`,
			Description: "Pre-agreed damages payable on breach",
			Severity:    SeverityHigh,
		},
		{
			Name:        NonRefundable,
			Pattern:     `\bnon[- ]?refundable\b`,
			Description: "Money paid cannot be recovered",
			Severity:    SeverityMedium,
		},
		{
			Name:        LatePaymentFees,
			Pattern:     `\blate fees?\b|\binterest rate\b`,
			Description: "Fees or interest accrue on late payment",
			Severity:    SeverityLow,
		},
		{
			Name:        TerminationRestrictions,
			Pattern:     `\bnot subject to termination\b|\bcannot terminate\b`,
			Description: "Your ability to end the agreement is limited",
			Severity:    SeverityHigh,
		},
		{
			Name:        WarrantyDisclaimer,
			Pattern:     `\bno warranty\b|\bas-is basis\b`,
			Description: "Goods or services come without warranty",
			Severity:    SeverityMedium,
		},
		{
			Name:        LimitationOfLiability,
			Pattern:     `\blimited liability\b|\bnot liable\b`,
			Description: "The other party limits what it can be held responsible for",
			Severity:    SeverityHigh,
		},
		{
			Name:        GoverningLaw,
			Pattern:     `\bgoverning law\b|\bjurisdiction\b|\bcourt of\b`,
			Description: "Disputes are bound to a particular law or venue",
			Severity:    SeverityLow,
		},
	}
}
