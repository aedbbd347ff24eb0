// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package verification confirms user entered addresses and grades how well
// a geocoding provider matched them.
package verification

import (
	"fmt"
	"strings"
	"time"

	"github.com/jcodagnone/geoverify/geocoding"
)

// WarningTTL is how long a missing-fields warning stays visible.
const WarningTTL = 2500 * time.Millisecond

// Messages shown to the user.
const (
	MessageMissingFields = "Please fill in the required fields and confirm again."
	messageConfirmed     = "Address confirmed: %s"
)

// Field keys.
const (
	FieldStreet      = "street"
	FieldHouseNumber = "housenumber"
	FieldCity        = "city"
	FieldPostcode    = "postcode"
	FieldCountry     = "country"
)

// AddressFormData holds user entered or autofilled address components.
type AddressFormData struct {
	Street      string `json:"street" yaml:"street"`
	HouseNumber string `json:"housenumber" yaml:"housenumber"`
	City        string `json:"city" yaml:"city"`
	Postcode    string `json:"postcode" yaml:"postcode"`
	Country     string `json:"country" yaml:"country"`
}

type requiredField struct {
	key   string
	label string
	value func(AddressFormData) string
}

// requiredFields is in reporting order.
var requiredFields = []requiredField{
	{FieldCountry, "Country", func(f AddressFormData) string { return f.Country }},
	{FieldCity, "City", func(f AddressFormData) string { return f.City }},
	{FieldStreet, "Street", func(f AddressFormData) string { return f.Street }},
	{FieldHouseNumber, "House number", func(f AddressFormData) string { return f.HouseNumber }},
	{FieldPostcode, "Postcode", func(f AddressFormData) string { return f.Postcode }},
}

// visualOrder is the order fields appear on the form.
var visualOrder = []string{FieldStreet, FieldHouseNumber, FieldPostcode, FieldCity, FieldCountry}

// Trimmed returns a copy with surrounding spaces removed from every field.
func (f AddressFormData) Trimmed() AddressFormData {
	return AddressFormData{
		Street:      strings.TrimSpace(f.Street),
		HouseNumber: strings.TrimSpace(f.HouseNumber),
		City:        strings.TrimSpace(f.City),
		Postcode:    strings.TrimSpace(f.Postcode),
		Country:     strings.TrimSpace(f.Country),
	}
}

// Get returns the value of the field named key.
func (f AddressFormData) Get(key string) string {
	switch key {
	case FieldStreet:
		return f.Street
	case FieldHouseNumber:
		return f.HouseNumber
	case FieldCity:
		return f.City
	case FieldPostcode:
		return f.Postcode
	case FieldCountry:
		return f.Country
	default:
		return ""
	}
}

// Formatted renders "{street} {house}, {postcode} {city}, {country}".
func (f AddressFormData) Formatted() string {
	return fmt.Sprintf("%s %s, %s %s, %s", f.Street, f.HouseNumber, f.Postcode, f.City, f.Country)
}

// Query converts the form into a structured geocoding query.
func (f AddressFormData) Query() geocoding.StructuredQuery {
	return geocoding.StructuredQuery{
		HouseNumber: f.HouseNumber,
		Street:      f.Street,
		Postcode:    f.Postcode,
		City:        f.City,
		Country:     f.Country,
	}
}

// ConfirmResult is the outcome of validating a form.
type ConfirmResult struct {
	OK            bool            `json:"ok"`
	Message       string          `json:"message"`
	MissingFields []string        `json:"missing_fields"`
	Formatted     string          `json:"formatted,omitempty"`
	Address       AddressFormData `json:"address"`
}

// Confirm validates the five required fields.
func Confirm(form AddressFormData) ConfirmResult {
	trimmed := form.Trimmed()
	missing := []string{}

	for _, field := range requiredFields {
		if field.value(trimmed) == "" {
			missing = append(missing, field.label)
		}
	}

	if len(missing) > 0 {
		return ConfirmResult{
			Message:       MessageMissingFields,
			MissingFields: missing,
			Address:       trimmed,
		}
	}

	formatted := trimmed.Formatted()

	return ConfirmResult{
		OK:            true,
		Message:       fmt.Sprintf(messageConfirmed, formatted),
		MissingFields: missing,
		Formatted:     formatted,
		Address:       trimmed,
	}
}

// CanConfirm reports whether every required field has content.
func CanConfirm(form AddressFormData) bool {
	return Confirm(form).OK
}

// FirstMissingField returns the key of the first empty field in form order,
// falling back to the street when nothing is missing.
func FirstMissingField(form AddressFormData) string {
	trimmed := form.Trimmed()
	for _, key := range visualOrder {
		if trimmed.Get(key) == "" {
			return key
		}
	}

	return visualOrder[0]
}

// FormFromFeature autofills a form from a feature selected in an
// autocomplete widget.
func FormFromFeature(f *geocoding.Feature) (AddressFormData, bool) {
	if f == nil {
		return AddressFormData{}, false
	}

	p := f.Properties

	return AddressFormData{
		Street:      p.Street,
		HouseNumber: p.HouseNumber,
		City:        cityOf(p),
		Postcode:    p.Postcode,
		Country:     p.Country,
	}, true
}

func cityOf(p geocoding.Properties) string {
	for _, c := range []string{p.City, p.Town, p.Village, p.Suburb} {
		if c != "" {
			return c
		}
	}

	return ""
}
