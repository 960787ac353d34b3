// Package categorize derives storefront classification tags from a product's
// name, brand, price and a few specs. Every function here is pure.
package categorize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"catalog-service/internal/models"
)

// Input is the part of a product the engine reads. Absent fields are empty.
type Input struct {
	Name        string
	Brand       string
	Price       int64
	Processor   string
	Battery     string
	Description string
}

// FromProduct extracts the engine input. Only specs.processor, specs.battery
// and specs.description are read, so previously merged tags never feed back.
func FromProduct(p *models.Product) Input {
	return Input{
		Name:        p.Name,
		Brand:       p.Brand,
		Price:       p.Price,
		Processor:   p.Specs.Get("processor"),
		Battery:     p.Specs.Get("battery"),
		Description: p.Specs.Get("description"),
	}
}

// subject is the normalized, lower-cased view the rules match against.
type subject struct {
	name        string
	nameWords   []string
	brandWords  []string
	brand       string
	processor   string
	procWords   []string
	description string
	price       int64
	batteryMAh  int
}

func newSubject(in Input) *subject {
	s := &subject{
		name:        strings.ToLower(in.Name),
		brand:       strings.ToLower(in.Brand),
		processor:   strings.ToLower(in.Processor),
		description: strings.ToLower(in.Description),
		price:       in.Price,
		batteryMAh:  ParseBatteryMAh(in.Battery),
	}
	s.nameWords = words(s.name)
	s.brandWords = words(s.brand)
	s.procWords = words(s.processor)
	return s
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasWord(ws []string, candidates ...string) bool {
	for _, w := range ws {
		for _, c := range candidates {
			if w == c {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// brandIs matches whole brand words, or the full phrase for multi-word brands.
func (s *subject) brandIs(brands ...string) bool {
	for _, b := range brands {
		if strings.Contains(b, " ") {
			if strings.Contains(s.brand, b) {
				return true
			}
			continue
		}
		if hasWord(s.brandWords, b) {
			return true
		}
	}
	return false
}

// rule is one (predicate, tag) pair; tables are evaluated in order and the
// first match wins.
type rule struct {
	tag   string
	match func(*subject) bool
}

func firstMatch(rules []rule, s *subject, fallback string) string {
	for _, r := range rules {
		if r.match(s) {
			return r.tag
		}
	}
	return fallback
}

// Price tier breakpoints in minor currency units. A price equal to a limit
// belongs to the next tier up.
var priceTiers = []struct {
	limit int64
	tier  string
}{
	{2_000_000, TierEntryLevel},
	{5_000_000, TierBudget},
	{10_000_000, TierMidRange},
	{13_000_000, TierFlagshipKiller},
	{18_000_000, TierPremiumFlagship},
}

// PriceTier maps a price in cents onto one of the six tiers.
func PriceTier(price int64) string {
	for _, t := range priceTiers {
		if price < t.limit {
			return t.tier
		}
	}
	return TierUltraPremium
}

var (
	gamingWords   = []string{"rog", "gaming", "gt", "pova", "redmagic", "legion"}
	gamingPhrases = []string{"poco f", "red magic", "black shark"}
	gamingBrands  = []string{"iqoo", "nubia", "redmagic", "black shark"}

	photoKeywords = []string{"camera", "photography", "hasselblad", "zeiss", "leica"}

	flagshipBrands = []string{"samsung"}

	fashionWords = []string{"reno", "civi", "camon", "selfie"}
	vivoVSeries  = regexp.MustCompile(`^v\d{2}[a-z]?$`)

	ruggedWords = []string{"xcover", "rugged", "armor"}

	appleChip = regexp.MustCompile(`^a1\d$`)
)

// BatteryThresholdMAh is the capacity from which a phone counts as an endurance model.
const BatteryThresholdMAh = 5000

// useCaseRules keeps the observed priority: gaming, photography, battery,
// productivity, fashion.
var useCaseRules = []rule{
	{UseCaseGaming, func(s *subject) bool {
		return hasWord(s.nameWords, gamingWords...) ||
			containsAny(s.name, gamingPhrases...) ||
			s.brandIs(gamingBrands...)
	}},
	{UseCaseCamera, func(s *subject) bool {
		return containsAny(s.name, photoKeywords...) || containsAny(s.description, photoKeywords...)
	}},
	{UseCaseBattery, func(s *subject) bool {
		return s.batteryMAh >= BatteryThresholdMAh
	}},
	{UseCaseProductivity, func(s *subject) bool {
		return hasWord(s.nameWords, "ultra") && s.brandIs(flagshipBrands...)
	}},
	{UseCaseFashion, func(s *subject) bool {
		if hasWord(s.nameWords, fashionWords...) {
			return true
		}
		for _, w := range s.nameWords {
			if vivoVSeries.MatchString(w) {
				return true
			}
		}
		return false
	}},
}

var formFactorRules = []rule{
	{FormFoldableBook, func(s *subject) bool { return strings.Contains(s.name, "fold") }},
	{FormFoldableClamshell, func(s *subject) bool {
		return strings.Contains(s.name, "flip") || hasWord(s.nameWords, "razr")
	}},
	{FormRugged, func(s *subject) bool { return hasWord(s.nameWords, ruggedWords...) }},
}

func brandRule(tag string, brands ...string) rule {
	return rule{tag, func(s *subject) bool { return s.brandIs(brands...) }}
}

var softwareRules = []rule{
	brandRule(SoftwareIOS, "apple"),
	brandRule(SoftwareStock, "google", "motorola", "sony"),
	brandRule(SoftwareOneUI, "samsung"),
	brandRule(SoftwareHyperOS, "xiaomi", "redmi", "poco"),
	brandRule(SoftwareHiOSXOS, "tecno", "infinix"),
	brandRule(SoftwareColorOS, "oppo", "realme"),
	brandRule(SoftwareFuntouchOS, "vivo", "iqoo"),
}

var originRules = []rule{
	brandRule(OriginAmerican, "apple", "google"),
	brandRule(OriginGlobal, "samsung"),
	brandRule(OriginTranssion, "tecno", "infinix", "itel"),
	brandRule(OriginChinese, "xiaomi", "redmi", "poco", "oppo", "vivo", "honor", "realme", "oneplus", "iqoo"),
}

var chipsetRules = []rule{
	{ChipsetSnapdragon, func(s *subject) bool { return strings.Contains(s.processor, "snapdragon") }},
	{ChipsetMediaTek, func(s *subject) bool { return containsAny(s.processor, "dimensity", "helio", "mediatek") }},
	{ChipsetApple, func(s *subject) bool {
		if strings.Contains(s.processor, "bionic") {
			return true
		}
		for _, w := range s.procWords {
			if appleChip.MatchString(w) {
				return true
			}
		}
		return false
	}},
	{ChipsetTensor, func(s *subject) bool { return strings.Contains(s.processor, "tensor") }},
	{ChipsetExynos, func(s *subject) bool { return strings.Contains(s.processor, "exynos") }},
	{ChipsetUnisoc, func(s *subject) bool { return containsAny(s.processor, "unisoc", "tiger") }},
}

// TargetDemographic is a function of the price tier and use case only.
func TargetDemographic(priceTier, useCase string) string {
	switch {
	case priceTier == TierEntryLevel || priceTier == TierBudget:
		return DemographicStudents
	case useCase == UseCaseGaming:
		return DemographicGamers
	case useCase == UseCaseCamera:
		return DemographicCreators
	case priceTier == TierPremiumFlagship || priceTier == TierUltraPremium:
		return DemographicProfessionals
	default:
		return DemographicGeneral
	}
}

// Categorize computes all seven tags. It never fails.
func Categorize(in Input) Tags {
	s := newSubject(in)
	t := Tags{
		PriceTier:          PriceTier(s.price),
		UseCase:            firstMatch(useCaseRules, s, UseCaseGeneral),
		FormFactor:         firstMatch(formFactorRules, s, FormCandyBar),
		SoftwareExperience: firstMatch(softwareRules, s, SoftwareCustomAndroid),
		ChipsetCategory:    firstMatch(chipsetRules, s, ChipsetOther),
		MarketOrigin:       firstMatch(originRules, s, OriginOther),
	}
	t.TargetDemographic = TargetDemographic(t.PriceTier, t.UseCase)
	return t
}

// Product categorizes a stored product.
func Product(p *models.Product) Tags {
	return Categorize(FromProduct(p))
}

// ParseBatteryMAh returns the first integer in a battery spec such as
// "5000mAh" or "5,000 mAh". Strings without a number yield 0.
func ParseBatteryMAh(battery string) int {
	var digits strings.Builder
	started := false
scan:
	for i, r := range battery {
		switch {
		case unicode.IsDigit(r):
			started = true
			digits.WriteRune(r)
		case started && r == ',' && i+1 < len(battery) && unicode.IsDigit(rune(battery[i+1])):
			continue
		case started:
			break scan
		}
	}
	if digits.Len() == 0 || digits.Len() > 9 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}
