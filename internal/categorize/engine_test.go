package categorize

import (
	"testing"

	"catalog-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPriceTierBoundaries(t *testing.T) {
	tests := []struct {
		price int64
		want  string
	}{
		{0, TierEntryLevel},
		{1_999_999, TierEntryLevel},
		{2_000_000, TierBudget},
		{4_999_999, TierBudget},
		{5_000_000, TierMidRange},
		{9_999_999, TierMidRange},
		{10_000_000, TierFlagshipKiller},
		{12_999_999, TierFlagshipKiller},
		{13_000_000, TierPremiumFlagship},
		{17_999_999, TierPremiumFlagship},
		{18_000_000, TierUltraPremium},
		{99_000_000, TierUltraPremium},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PriceTier(tt.price), "price %d", tt.price)
	}
}

func TestPriceTierIsMonotonic(t *testing.T) {
	rank := map[string]int{
		TierEntryLevel:      0,
		TierBudget:          1,
		TierMidRange:        2,
		TierFlagshipKiller:  3,
		TierPremiumFlagship: 4,
		TierUltraPremium:    5,
	}
	prev := -1
	for price := int64(0); price <= 20_000_000; price += 250_000 {
		r := rank[PriceTier(price)]
		assert.GreaterOrEqual(t, r, prev, "price %d", price)
		prev = r
	}
}

func TestCategorizeBudgetBatteryPhone(t *testing.T) {
	tags := Categorize(Input{
		Name:      "Realme C67",
		Brand:     "Realme",
		Price:     1_999_900,
		Processor: "Snapdragon 685",
		Battery:   "5000mAh",
	})

	assert.Equal(t, TierEntryLevel, tags.PriceTier)
	assert.Equal(t, UseCaseBattery, tags.UseCase)
	assert.Equal(t, FormCandyBar, tags.FormFactor)
	assert.Equal(t, SoftwareColorOS, tags.SoftwareExperience)
	assert.Equal(t, ChipsetSnapdragon, tags.ChipsetCategory)
	assert.Equal(t, OriginChinese, tags.MarketOrigin)
	assert.Equal(t, DemographicStudents, tags.TargetDemographic)
}

func TestCategorizeGamingBrand(t *testing.T) {
	tags := Categorize(Input{
		Name:      "iQOO Z9 Turbo",
		Brand:     "iQOO",
		Price:     3_299_900,
		Processor: "Snapdragon 8s Gen 3",
		Battery:   "6000mAh",
	})

	assert.Equal(t, TierBudget, tags.PriceTier)
	assert.Equal(t, UseCaseGaming, tags.UseCase)
	assert.Equal(t, SoftwareFuntouchOS, tags.SoftwareExperience)
	assert.Equal(t, OriginChinese, tags.MarketOrigin)
	assert.Equal(t, DemographicStudents, tags.TargetDemographic)
}

func TestUseCaseRules(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want string
	}{
		{"gaming word", Input{Name: "ASUS ROG Phone 8", Brand: "ASUS"}, UseCaseGaming},
		{"gaming phrase", Input{Name: "POCO F6 Pro", Brand: "Xiaomi"}, UseCaseGaming},
		{"gt is a whole word", Input{Name: "Realme GT 6", Brand: "Realme"}, UseCaseGaming},
		{"gt inside a word", Input{Name: "Nothing Phone Gtx", Brand: "Nothing"}, UseCaseGeneral},
		{"camera in description", Input{Name: "Xiaomi 14", Brand: "Xiaomi", Description: "Leica optics"}, UseCaseCamera},
		{"camera in name", Input{Name: "Camera Pro X", Brand: "Sony"}, UseCaseCamera},
		{"battery threshold", Input{Name: "Galaxy M35", Brand: "Samsung", Battery: "6,000 mAh"}, UseCaseBattery},
		{"battery below threshold", Input{Name: "Galaxy M35", Brand: "Samsung", Battery: "4999mAh"}, UseCaseGeneral},
		{"samsung ultra", Input{Name: "Galaxy S24 Ultra", Brand: "Samsung", Battery: "4900mAh"}, UseCaseProductivity},
		{"ultra needs samsung", Input{Name: "Xiaomi 14 Ultra", Brand: "Xiaomi"}, UseCaseGeneral},
		{"fashion word", Input{Name: "OPPO Reno 11", Brand: "OPPO"}, UseCaseFashion},
		{"vivo v series", Input{Name: "vivo V30e", Brand: "vivo"}, UseCaseFashion},
		{"gaming beats camera", Input{Name: "ROG Phone", Brand: "ASUS", Description: "great camera"}, UseCaseGaming},
		{"camera beats battery", Input{Name: "Pixel 8", Brand: "Google", Battery: "5050mAh", Description: "camera"}, UseCaseCamera},
		{"fallback", Input{Name: "Pixel 8a", Brand: "Google"}, UseCaseGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.in).UseCase)
		})
	}
}

func TestFormFactorRules(t *testing.T) {
	assert.Equal(t, FormFoldableBook, Categorize(Input{Name: "Galaxy Z Fold5"}).FormFactor)
	assert.Equal(t, FormFoldableClamshell, Categorize(Input{Name: "Galaxy Z Flip5"}).FormFactor)
	assert.Equal(t, FormFoldableClamshell, Categorize(Input{Name: "Motorola Razr 40"}).FormFactor)
	assert.Equal(t, FormRugged, Categorize(Input{Name: "Galaxy XCover 7"}).FormFactor)
	assert.Equal(t, FormCandyBar, Categorize(Input{Name: "iPhone 15"}).FormFactor)
}

func TestSoftwareAndOriginRules(t *testing.T) {
	tests := []struct {
		brand    string
		software string
		origin   string
	}{
		{"Apple", SoftwareIOS, OriginAmerican},
		{"Google", SoftwareStock, OriginAmerican},
		{"Motorola", SoftwareStock, OriginOther},
		{"Samsung", SoftwareOneUI, OriginGlobal},
		{"Redmi", SoftwareHyperOS, OriginChinese},
		{"Infinix", SoftwareHiOSXOS, OriginTranssion},
		{"itel", SoftwareCustomAndroid, OriginTranssion},
		{"OPPO", SoftwareColorOS, OriginChinese},
		{"vivo", SoftwareFuntouchOS, OriginChinese},
		{"OnePlus", SoftwareCustomAndroid, OriginChinese},
		{"Nokia", SoftwareCustomAndroid, OriginOther},
		{"", SoftwareCustomAndroid, OriginOther},
	}

	for _, tt := range tests {
		tags := Categorize(Input{Name: "Phone", Brand: tt.brand})
		assert.Equal(t, tt.software, tags.SoftwareExperience, "brand %q", tt.brand)
		assert.Equal(t, tt.origin, tags.MarketOrigin, "brand %q", tt.brand)
	}
}

func TestChipsetRules(t *testing.T) {
	tests := []struct {
		processor string
		want      string
	}{
		{"Qualcomm Snapdragon 8 Gen 3", ChipsetSnapdragon},
		{"MediaTek Dimensity 7200", ChipsetMediaTek},
		{"Helio G99", ChipsetMediaTek},
		{"A16 Bionic", ChipsetApple},
		{"Apple A17 Pro", ChipsetApple},
		{"Google Tensor G3", ChipsetTensor},
		{"Exynos 2400", ChipsetExynos},
		{"Unisoc T606", ChipsetUnisoc},
		{"Tiger T612", ChipsetUnisoc},
		{"Kirin 9000", ChipsetOther},
		{"", ChipsetOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(Input{Processor: tt.processor}).ChipsetCategory, tt.processor)
	}
}

func TestTargetDemographic(t *testing.T) {
	assert.Equal(t, DemographicStudents, TargetDemographic(TierEntryLevel, UseCaseGaming))
	assert.Equal(t, DemographicStudents, TargetDemographic(TierBudget, UseCaseCamera))
	assert.Equal(t, DemographicGamers, TargetDemographic(TierFlagshipKiller, UseCaseGaming))
	assert.Equal(t, DemographicCreators, TargetDemographic(TierUltraPremium, UseCaseCamera))
	assert.Equal(t, DemographicProfessionals, TargetDemographic(TierPremiumFlagship, UseCaseGeneral))
	assert.Equal(t, DemographicProfessionals, TargetDemographic(TierUltraPremium, UseCaseProductivity))
	assert.Equal(t, DemographicGeneral, TargetDemographic(TierMidRange, UseCaseBattery))
}

func TestDemographicDependsOnlyOnTierAndUseCase(t *testing.T) {
	a := Categorize(Input{Name: "Galaxy M55", Brand: "Samsung", Price: 7_000_000, Battery: "5000mAh", Processor: "Snapdragon"})
	b := Categorize(Input{Name: "Moto G Power", Brand: "Motorola", Price: 6_000_000, Battery: "5000mAh", Processor: "Dimensity"})

	assert.Equal(t, a.PriceTier, b.PriceTier)
	assert.Equal(t, a.UseCase, b.UseCase)
	assert.Equal(t, a.TargetDemographic, b.TargetDemographic)
}

func TestCategorizeIsIdempotent(t *testing.T) {
	p := &models.Product{
		Name:  "Samsung Galaxy S24 Ultra",
		Brand: "Samsung",
		Price: 19_999_900,
		Specs: models.Specs{
			"processor": "Snapdragon 8 Gen 3",
			"battery":   "5000mAh",
			"ram":       "12GB",
		},
	}

	first := Product(p)
	p.Specs.Merge(first.Specs())
	second := Product(p)

	assert.Equal(t, first, second)
	assert.Equal(t, "12GB", p.Specs["ram"])
	assert.Equal(t, first.UseCase, p.Specs[KeyUseCase])
}

func TestParseBatteryMAh(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"5000mAh", 5000},
		{"5,000 mAh", 5000},
		{"4500 mAh (typical)", 4500},
		{"Li-Po 6000", 6000},
		{"big", 0},
		{"", 0},
		{"4000mAh, 33W", 4000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseBatteryMAh(tt.in), tt.in)
	}
}

func TestTagsSpecsIncludeDescriptions(t *testing.T) {
	tags := Categorize(Input{Name: "iPhone 15", Brand: "Apple", Price: 15_000_000, Processor: "A16 Bionic"})
	specs := tags.Specs()

	for _, key := range TagKeys {
		assert.NotEmpty(t, specs[key], key)
	}
	assert.NotEmpty(t, specs["price_tier_description"])
	assert.NotEmpty(t, specs["chipset_description"])
}

func TestStatsAdd(t *testing.T) {
	stats := Stats{}
	stats.Add(Categorize(Input{Name: "A", Brand: "Apple", Price: 15_000_000}))
	stats.Add(Categorize(Input{Name: "B", Brand: "Apple", Price: 16_000_000}))

	assert.Equal(t, 2, stats[KeyMarketOrigin][OriginAmerican])
	assert.Equal(t, 2, stats[KeyPriceTier][TierPremiumFlagship])
}
