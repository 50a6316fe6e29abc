package models

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "menu-advisor/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionSet_OrderAndNormalization(t *testing.T) {
	var s OptionSet
	s.Add("  Altoona - Port Sky Cafe ", "12")
	s.Add("", "99")
	s.Add("Berks", "")
	s.Add("Behrend - Bruno's", "7")
	s.Add("ALTOONA - PORT SKY CAFE", "13")

	require.Equal(t, 2, s.Len())
	opts := s.Options()
	assert.Equal(t, "altoona - port sky cafe", opts[0].Label)
	assert.Equal(t, "13", opts[0].Value)
	assert.Equal(t, "behrend - bruno's", opts[1].Label)

	v, ok := s.Get("Behrend - Bruno's")
	assert.True(t, ok)
	assert.Equal(t, "7", v)

	first, ok := s.First()
	assert.True(t, ok)
	assert.Equal(t, "13", first.Value)

	_, ok = OptionSet{}.First()
	assert.False(t, ok)
}

func TestOptionSet_JSONRoundTripKeepsOrder(t *testing.T) {
	s := NewOptionSet(Option{"Lunch", "L"}, Option{"Breakfast", "B"})
	data, err := json.Marshal(FormOptions{Meal: s})
	require.NoError(t, err)

	var got FormOptions
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []Option{{"lunch", "L"}, {"breakfast", "B"}}, got.Meal.Options())
	assert.Equal(t, 0, got.Campus.Len())
}

func TestPreferences_Validate(t *testing.T) {
	assert.NoError(t, Preferences{Vegan: true}.Validate())
	assert.NoError(t, Preferences{Vegetarian: true, ExcludePork: true}.Validate())

	err := Preferences{Vegan: true, Vegetarian: true}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidPreferences))
}

func TestMenuHelpers(t *testing.T) {
	assert.False(t, MenuItem{Name: "Toast", DetailURL: NoDetailURL}.HasDetail())
	assert.True(t, MenuItem{Name: "Toast", DetailURL: "https://x/label.cfm?id=1"}.HasDetail())

	menu := DailyMenu{MealBreakfast: {{Name: "a"}, {Name: "b"}}, MealLunch: {{Name: "c"}}}
	assert.Equal(t, 3, menu.ItemCount())

	var nilRecord *NutrientRecord
	assert.False(t, nilRecord.HasData())
	assert.True(t, (&NutrientRecord{Calories: 120}).HasData())
}

func TestEnrich(t *testing.T) {
	menu := DailyMenu{MealDinner: {{Name: "Baked Salmon", DetailURL: NoDetailURL}}}
	enriched := Enrich(menu)
	require.Len(t, enriched[MealDinner], 1)
	assert.Equal(t, "Baked Salmon", enriched[MealDinner][0].Name)
	assert.Nil(t, enriched[MealDinner][0].Nutrition)
}
