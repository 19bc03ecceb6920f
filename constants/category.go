package constants

import (
	"strings"
)

// Category is a report folder label. Folder names on disk are the canonical values.
type Category string

const (
	BlockchainNFTWeb3  Category = "Blockchain NFT Web3"
	CloudGaming        Category = "Cloud Gaming"
	Esports            Category = "Esports"
	GeneralIndustry    Category = "General Industry"
	HR                 Category = "HR"
	Investments        Category = "Investments"
	MarketingStreaming Category = "Marketing & Streaming"
	Mobile             Category = "Mobile"
	RegionalReports    Category = "Regional Reports"
	XRMetaverse        Category = "XR Metaverse"
)

var allCategories = []Category{
	BlockchainNFTWeb3,
	CloudGaming,
	Esports,
	GeneralIndustry,
	HR,
	Investments,
	MarketingStreaming,
	Mobile,
	RegionalReports,
	XRMetaverse,
}

func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// Canonicalize maps a folder name or loose user input onto a known category.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	for _, c := range allCategories {
		if strings.ToLower(string(c)) == normalized {
			return c, true
		}
	}

	synonyms := map[string]Category{
		"web3":       BlockchainNFTWeb3,
		"blockchain": BlockchainNFTWeb3,
		"nft":        BlockchainNFTWeb3,
		"cloud":      CloudGaming,
		"general":    GeneralIndustry,
		"investment": Investments,
		"marketing":  MarketingStreaming,
		"streaming":  MarketingStreaming,
		"regional":   RegionalReports,
		"xr":         XRMetaverse,
		"vr":         XRMetaverse,
		"metaverse":  XRMetaverse,
	}
	if c, ok := synonyms[normalized]; ok {
		return c, true
	}
	return "", false
}
