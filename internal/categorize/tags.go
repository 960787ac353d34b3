package categorize

// Spec keys under which the tags are stored on a product.
const (
	KeyPriceTier          = "price_tier"
	KeyUseCase            = "use_case"
	KeyFormFactor         = "form_factor"
	KeySoftwareExperience = "software_experience"
	KeyChipsetCategory    = "chipset_category"
	KeyMarketOrigin       = "market_origin"
	KeyTargetDemographic  = "target_demographic"
)

// TagKeys lists the seven derived tags in storefront display order.
var TagKeys = []string{
	KeyPriceTier,
	KeyUseCase,
	KeyFormFactor,
	KeySoftwareExperience,
	KeyChipsetCategory,
	KeyMarketOrigin,
	KeyTargetDemographic,
}

// Price tiers
const (
	TierEntryLevel      = "Entry-Level"
	TierBudget          = "Budget"
	TierMidRange        = "Mid-Range"
	TierFlagshipKiller  = "Flagship Killer"
	TierPremiumFlagship = "Premium Flagship"
	TierUltraPremium    = "Ultra-Premium"
)

// Use cases
const (
	UseCaseGaming       = "Gaming"
	UseCaseCamera       = "Camera & Photography"
	UseCaseBattery      = "Battery & Endurance"
	UseCaseProductivity = "Productivity & Business"
	UseCaseFashion      = "Fashion & Vlogging"
	UseCaseGeneral      = "General Purpose"
)

// Form factors
const (
	FormFoldableBook      = "Foldable (Book Style)"
	FormFoldableClamshell = "Foldable (Clamshell)"
	FormRugged            = "Rugged"
	FormCandyBar          = "Candy Bar (Standard)"
)

// Software experiences
const (
	SoftwareIOS           = "iOS"
	SoftwareStock         = "Stock Android"
	SoftwareOneUI         = "OneUI"
	SoftwareHyperOS       = "HyperOS"
	SoftwareHiOSXOS       = "HiOS/XOS"
	SoftwareColorOS       = "ColorOS"
	SoftwareFuntouchOS    = "FuntouchOS"
	SoftwareCustomAndroid = "Custom Android"
)

// Chipset families
const (
	ChipsetSnapdragon = "Snapdragon (Qualcomm)"
	ChipsetMediaTek   = "Dimensity/Helio (MediaTek)"
	ChipsetApple      = "Bionic (Apple)"
	ChipsetTensor     = "Tensor (Google)"
	ChipsetExynos     = "Exynos (Samsung)"
	ChipsetUnisoc     = "UNISOC"
	ChipsetOther      = "Other"
)

// Market origins
const (
	OriginAmerican  = "American Tech"
	OriginGlobal    = "Global Giants"
	OriginTranssion = "Transsion Empire"
	OriginChinese   = "Chinese Powerhouses"
	OriginOther     = "Other"
)

// Target demographics
const (
	DemographicStudents      = "Students"
	DemographicGamers        = "Gamers"
	DemographicCreators      = "Content Creators"
	DemographicProfessionals = "Professionals"
	DemographicGeneral       = "General Consumers"
)

var priceTierDescriptions = map[string]string{
	TierEntryLevel:      `The "Survival" Tier - Basic calls, WhatsApp, light browsing`,
	TierBudget:          `The "Value" Tier - Daily use, social media, casual photos`,
	TierMidRange:        `The "Sweet Spot" - Great screens and cameras without flagship price`,
	TierFlagshipKiller:  `The "Performance" Tier - Top-tier speed, cheaper build/cameras`,
	TierPremiumFlagship: `The "Status" Tier - Best technology available`,
	TierUltraPremium:    "Luxury - Folding screens, experimental tech",
}

var useCaseDescriptions = map[string]string{
	UseCaseGaming:       "Shoulder triggers, cooling, RGB lights, high performance",
	UseCaseCamera:       "Massive sensors, optical zoom, camera brand partnerships",
	UseCaseBattery:      "Focused on lasting 2+ days",
	UseCaseProductivity: "S-Pen stylus, multitasking, business features",
	UseCaseFashion:      "Selfie quality, beautiful design, slim and light",
	UseCaseGeneral:      "Balanced performance for everyday use",
}

var formFactorDescriptions = map[string]string{
	FormFoldableBook:      "Opens horizontally like a book to become tablet",
	FormFoldableClamshell: "Folds vertically like makeup compact",
	FormRugged:            "Thick, armored phones for construction sites",
	FormCandyBar:          "Traditional rectangular slab design",
}

var softwareDescriptions = map[string]string{
	SoftwareIOS:           "Smooth, secure, but restrictive",
	SoftwareStock:         "As Google intended, no bloatware, simple",
	SoftwareOneUI:         "Heavy skin with tons of extra features",
	SoftwareHyperOS:       "Xiaomi's feature-packed Android skin",
	SoftwareHiOSXOS:       "Transsion's customized Android experience",
	SoftwareColorOS:       "Oppo's customized Android skin",
	SoftwareFuntouchOS:    "Vivo's customized Android experience",
	SoftwareCustomAndroid: "Manufacturer-customized Android",
}

var chipsetDescriptions = map[string]string{
	ChipsetSnapdragon: "Standard for Android flagships, best for gaming",
	ChipsetMediaTek:   "Dominates mid-range and budget market",
	ChipsetApple:      "Most powerful chips, exclusive to iPhones",
	ChipsetTensor:     "Focused on AI tasks rather than raw speed",
	ChipsetExynos:     "Samsung's homemade chips",
	ChipsetUnisoc:     "Budget-focused processors",
	ChipsetOther:      "Various other processors",
}

var originDescriptions = map[string]string{
	OriginAmerican:  "Software-first companies from USA",
	OriginGlobal:    "Available in almost every country on Earth",
	OriginTranssion: "Dominant in Africa, Pakistan, parts of India",
	OriginChinese:   "Massive in Asia and Europe",
	OriginOther:     "Various other origins",
}

// Tags is the derived classification of one product.
type Tags struct {
	PriceTier          string `json:"price_tier"`
	UseCase            string `json:"use_case"`
	FormFactor         string `json:"form_factor"`
	SoftwareExperience string `json:"software_experience"`
	ChipsetCategory    string `json:"chipset_category"`
	MarketOrigin       string `json:"market_origin"`
	TargetDemographic  string `json:"target_demographic"`
}

// Get returns the tag stored under one of the TagKeys.
func (t Tags) Get(key string) string {
	switch key {
	case KeyPriceTier:
		return t.PriceTier
	case KeyUseCase:
		return t.UseCase
	case KeyFormFactor:
		return t.FormFactor
	case KeySoftwareExperience:
		return t.SoftwareExperience
	case KeyChipsetCategory:
		return t.ChipsetCategory
	case KeyMarketOrigin:
		return t.MarketOrigin
	case KeyTargetDemographic:
		return t.TargetDemographic
	}
	return ""
}

// Specs returns the tags and their companion descriptions as spec entries,
// ready to be merged into a product's specs.
func (t Tags) Specs() map[string]string {
	return map[string]string{
		KeyPriceTier:              t.PriceTier,
		"price_tier_description":  priceTierDescriptions[t.PriceTier],
		KeyUseCase:                t.UseCase,
		"use_case_description":    useCaseDescriptions[t.UseCase],
		KeyFormFactor:             t.FormFactor,
		"form_factor_description": formFactorDescriptions[t.FormFactor],
		KeySoftwareExperience:     t.SoftwareExperience,
		"software_description":    softwareDescriptions[t.SoftwareExperience],
		KeyChipsetCategory:        t.ChipsetCategory,
		"chipset_description":     chipsetDescriptions[t.ChipsetCategory],
		KeyMarketOrigin:           t.MarketOrigin,
		"origin_description":      originDescriptions[t.MarketOrigin],
		KeyTargetDemographic:      t.TargetDemographic,
	}
}

// Stats counts products per tag value, keyed by tag key.
type Stats map[string]map[string]int

// Add records one product's tags.
func (s Stats) Add(t Tags) {
	for _, key := range TagKeys {
		if s[key] == nil {
			s[key] = make(map[string]int)
		}
		s[key][t.Get(key)]++
	}
}
