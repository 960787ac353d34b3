package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateImages(t *testing.T) {
	p := &Product{ImageURL: "http://img/legacy.png"}
	p.MigrateImages()
	assert.Equal(t, []string{"http://img/legacy.png"}, p.Images)
	assert.Equal(t, "http://img/legacy.png", p.PrimaryImage())
	assert.NotNil(t, p.Specs)

	p = &Product{Images: []string{"http://img/1.png", "http://img/2.png"}, ImageURL: "http://img/old.png"}
	p.MigrateImages()
	assert.Equal(t, []string{"http://img/1.png", "http://img/2.png"}, p.Images)
	assert.Equal(t, "http://img/1.png", p.PrimaryImage())
}

func TestProductPatchApplyMergesSpecs(t *testing.T) {
	p := &Product{
		Name:  "Pixel 8",
		Price: 9000000,
		Specs: Specs{"ram": "8GB", "battery": "4575mAh"},
	}

	price := int64(8500000)
	images := []string{}
	patch := &ProductPatch{
		Price:  &price,
		Images: &images,
		Specs:  map[string]string{"price_tier": "Mid-Range"},
	}
	patch.Apply(p)

	assert.Equal(t, "Pixel 8", p.Name)
	assert.Equal(t, int64(8500000), p.Price)
	assert.Empty(t, p.Images)
	assert.NotNil(t, p.Images)
	assert.Equal(t, Specs{"ram": "8GB", "battery": "4575mAh", "price_tier": "Mid-Range"}, p.Specs)
}

func TestProductPatchSetFields(t *testing.T) {
	name := "Galaxy S24"
	state := ImageStateDraft
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	patch := &ProductPatch{
		Name:       &name,
		Specs:      map[string]string{"use_case": "Gaming"},
		ImageState: &state,
		UpdatedAt:  now,
	}

	set := patch.SetFields()
	assert.Equal(t, map[string]any{
		"name":           "Galaxy S24",
		"specs.use_case": "Gaming",
		"image_state":    "draft",
		"updated_at":     now,
	}, set)
	assert.False(t, patch.IsEmpty())
	assert.True(t, (&ProductPatch{}).IsEmpty())
}

func TestCalculateTotal(t *testing.T) {
	items := []LineItem{
		{ProductID: "a", Quantity: 2, Price: 1000},
		{ProductID: "b", Quantity: 1, Price: 500},
	}
	total, err := CalculateTotal(items)
	require.NoError(t, err)
	assert.Equal(t, int64(2*1000+1*500), total)

	total, err = CalculateTotal(nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCalculateTotalOverflow(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItem
	}{
		{"line overflows", []LineItem{{ProductID: "a", Quantity: 2, Price: math.MaxInt64/2 + 1}}},
		{"sum overflows", []LineItem{
			{ProductID: "a", Quantity: 1, Price: math.MaxInt64},
			{ProductID: "b", Quantity: 1, Price: 1},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateTotal(tt.items)
			assert.ErrorIs(t, err, ErrTotalOverflow)
		})
	}

	_, err := CalculateTotal([]LineItem{{ProductID: "a", Quantity: -1, Price: 10}})
	assert.Error(t, err)

	total, err := CalculateTotal([]LineItem{{ProductID: "a", Quantity: 1, Price: math.MaxInt64}})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), total)
}

func TestProductEventNeedsVerification(t *testing.T) {
	created := &ProductEvent{BaseEvent: BaseEvent{EventType: EventTypeProductCreated}, ImageState: ImageStateDraft}
	assert.True(t, created.NeedsVerification())

	updatedNoImages := &ProductEvent{BaseEvent: BaseEvent{EventType: EventTypeProductUpdated}, ImageState: ImageStateDraft}
	assert.False(t, updatedNoImages.NeedsVerification())

	updatedImages := &ProductEvent{BaseEvent: BaseEvent{EventType: EventTypeProductUpdated}, ImageState: ImageStateDraft, ImagesChanged: true}
	assert.True(t, updatedImages.NeedsVerification())

	deleted := &ProductEvent{BaseEvent: BaseEvent{EventType: EventTypeProductDeleted}}
	assert.False(t, deleted.NeedsVerification())
}
