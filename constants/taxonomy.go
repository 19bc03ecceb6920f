package constants

// Taxonomy label sets the model classifies against.
var (
	ReportTypes = []string{
		"Market Research Report",
		"Financial Report",
		"Trend Analysis",
		"Survey Research",
		"Investment Tracking",
		"Performance Analytics",
		"Technical White Paper",
		"Practical Guide",
	}

	ContentFocusAreas = []string{
		"Market & Industry Analysis",
		"Technology & Innovation",
		"User Behavior & Demographics",
		"Financial & Investment",
		"Marketing & User Acquisition",
		"Workplace & HR",
		"Regional Analysis",
		"Platform Ecosystem",
		"Game Development",
	}

	GeographicScopes = []string{
		"Global",
		"Regional",
		"Country-Specific",
		"Multi-Regional Comparison",
	}

	TemporalNatures = []string{
		"Historical Analysis",
		"Current State",
		"Forward-Looking",
		"Periodic Update",
	}

	DataCharacteristics = []string{
		"Heavily Quantitative",
		"Mixed Quant/Qual",
		"Primarily Qualitative",
		"Primary Research",
		"Secondary Research",
	}

	TargetAudiences = []string{
		"Executives & Decision Makers",
		"Investors & VCs",
		"Developers & Technical Teams",
		"Marketers & UA Managers",
		"Analysts & Researchers",
		"Industry Professionals",
	}
)

// ReportTypePriority orders documents for batch runs: lower runs first.
// Types not listed share the lowest priority.
func ReportTypePriority(reportType string) int {
	switch reportType {
	case "Market Research Report", "Investment Tracking", "Survey Research":
		return 0
	case "Trend Analysis", "Performance Analytics", "Financial Report":
		return 1
	default:
		return 2
	}
}
