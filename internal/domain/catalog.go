package domain

import (
	"slices"
	"strings"
)

// OtherOption is the catch-all entry in every issue and resolution list.
const OtherOption = "Other"

// Support types offered at the product-selection step.
const (
	SupportGeneralQuestions = "General Questions"
	SupportTroubleshooting  = "Troubleshooting"
	SupportWarrantyClaim    = "Warranty Claim"
)

// Ticket priorities.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
)

// DefaultProducts is the catalog offered when the backend extracts no products.
var DefaultProducts = []string{
	"MacBook Pro",
	"iPhone 15",
	"iPad Air",
	"Apple Watch",
	"AirPods Pro",
	"iMac",
	"Mac Mini",
	"Apple TV",
	"HomePod",
	"Magic Keyboard",
}

// SupportTypes lists the support categories in display order.
var SupportTypes = []string{
	SupportGeneralQuestions,
	SupportTroubleshooting,
	SupportWarrantyClaim,
}

// IssueOptions lists issue labels per support type.
var IssueOptions = map[string][]string{
	SupportGeneralQuestions: {
		"Product information inquiry",
		"How to use product features",
		"Compatibility questions",
		"Warranty information",
		"Return policy inquiry",
		"Shipping and delivery questions",
		OtherOption,
	},
	SupportTroubleshooting: {
		"Device not turning on",
		"Screen is cracked or damaged",
		"Battery draining quickly",
		"Software/firmware issues",
		"Connectivity problems (Wi-Fi/Bluetooth)",
		"Audio or speaker issues",
		"Camera not working properly",
		"Overheating issues",
		"Charging problems",
		"Performance or lag issues",
		OtherOption,
	},
	SupportWarrantyClaim: {
		"Manufacturing defect",
		"Product stopped working within warranty period",
		"Physical damage covered by warranty",
		"Missing parts or accessories",
		"Product performance not as advertised",
		"Quality issues",
		OtherOption,
	},
}

// ResolutionOptions lists resolution labels per support type.
var ResolutionOptions = map[string][]string{
	SupportGeneralQuestions: {
		"Product information/documentation",
		"Usage guidance",
		"Technical support call",
		"Email support",
		OtherOption,
	},
	SupportTroubleshooting: {
		"Technical support",
		"Software update/fix",
		"Remote assistance",
		"Repair service",
		"Product replacement",
		"Diagnostic service",
		OtherOption,
	},
	SupportWarrantyClaim: {
		"Full refund",
		"Product replacement",
		"Repair service",
		"Partial refund",
		"Store credit",
		"Exchange for different product",
		OtherOption,
	},
}

// IsOther reports whether label is the catch-all option. The comparison is
// case-insensitive because the backend and older clients disagree on casing.
func IsOther(label string) bool {
	return strings.EqualFold(strings.TrimSpace(label), OtherOption)
}

// IsSupportType reports whether t is one of SupportTypes.
func IsSupportType(t string) bool {
	return slices.Contains(SupportTypes, t)
}

// IsIssueOption reports whether issue is offered for supportType.
func IsIssueOption(supportType, issue string) bool {
	return containsOption(IssueOptions[supportType], issue)
}

// IsResolutionOption reports whether resolution is offered for supportType.
func IsResolutionOption(supportType, resolution string) bool {
	return containsOption(ResolutionOptions[supportType], resolution)
}

func containsOption(options []string, v string) bool {
	if IsOther(v) {
		return slices.Contains(options, OtherOption)
	}
	return slices.Contains(options, v)
}

// PriorityFor returns the ticket priority for a support type.
func PriorityFor(supportType string) string {
	if supportType == SupportWarrantyClaim {
		return PriorityHigh
	}
	return PriorityMedium
}
