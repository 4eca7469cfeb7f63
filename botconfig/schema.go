// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// Package botconfig binds the bot's structured config record to an
// editable draft. The record's fields are declared in an explicit
// schema table so typing, defaults, and form layout are all derived
// from one place instead of scattered field-name strings.
package botconfig

import "github.com/dreamvisitor/dashboard/gateway"

// Kind is the value type of a config field.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	// KindLocation is a relation to a location record, edited inline
	// as a nested x/y/z/pitch/yaw/world object and upserted as its own
	// record on apply.
	KindLocation
)

// FieldSpec describes one field of the config record.
type FieldSpec struct {
	// Name is both the record field name and the draft key.
	Name string
	// Label is the human-readable form label.
	Label string
	// Section groups fields for form layout.
	Section string
	Kind    Kind
	// Default replaces a null or absent remote value, so numeric
	// inputs always hold a defined value.
	Default any
	// Sensitive marks values rendered masked (the bot token).
	Sensitive bool
}

// Sections in display order.
const (
	SectionGeneral     = "General"
	SectionBot         = "Bot"
	SectionWhitelist   = "Web Whitelist"
	SectionTribeRoles  = "Tribe Roles"
	SectionInfractions = "Infractions"
	SectionEconomy     = "Economy"
	SectionMail        = "Mail"
	SectionFlight      = "Flight"
	SectionTax         = "Inactivity Tax"
)

// Fields is the config record schema, in form display order.
var Fields = []FieldSpec{
	{Name: "debug", Label: "Debug Mode", Section: SectionGeneral, Kind: KindBool, Default: false},
	{Name: "pauseChat", Label: "Pause Chat", Section: SectionGeneral, Kind: KindBool, Default: false},
	{Name: "softWhitelist", Label: "Soft Whitelist", Section: SectionGeneral, Kind: KindBool, Default: false},
	{Name: "disablePvp", Label: "Disable PvP", Section: SectionGeneral, Kind: KindBool, Default: false},
	{Name: "playerLimitOverride", Label: "Player Limit Override", Section: SectionGeneral, Kind: KindInt, Default: -1},
	{Name: "resourcePackRepo", Label: "Resource Pack Repository", Section: SectionGeneral, Kind: KindString, Default: ""},
	{Name: "hubLocation", Label: "Hub Location", Section: SectionGeneral, Kind: KindLocation, Default: nil},

	{Name: "botToken", Label: "Bot Token", Section: SectionBot, Kind: KindString, Default: "", Sensitive: true},
	{Name: "whitelistChannel", Label: "Whitelist Channel", Section: SectionBot, Kind: KindString, Default: ""},
	{Name: "gameChatChannel", Label: "Game Chat Channel", Section: SectionBot, Kind: KindString, Default: ""},
	{Name: "logChannel", Label: "Log Channel", Section: SectionBot, Kind: KindString, Default: ""},
	{Name: "logConsole", Label: "Log Console", Section: SectionBot, Kind: KindBool, Default: false},
	{Name: "logConsoleCommands", Label: "Enable Log Console Commands", Section: SectionBot, Kind: KindBool, Default: false},

	{Name: "webWhitelist", Label: "Web Whitelist", Section: SectionWhitelist, Kind: KindBool, Default: true},
	{Name: "websiteUrl", Label: "Website URL", Section: SectionWhitelist, Kind: KindString, Default: ""},

	{Name: "hiveWingRole", Label: "HiveWing Role", Section: SectionTribeRoles, Kind: KindString, Default: ""},
	{Name: "iceWingRole", Label: "IceWing Role", Section: SectionTribeRoles, Kind: KindString, Default: ""},
	{Name: "leafWingRole", Label: "LeafWing Role", Section: SectionTribeRoles, Kind: KindString, Default: ""},
	{Name: "mudWingRole", Label: "MudWing Role", Section: SectionTribeRoles, Kind: KindString, Default: ""},
	{Name: "nightWingRole", Label: "NightWing Role", Section: SectionTribeRoles, Kind: KindString, Default: ""},
	{Name: "rainWingRole", Label: "RainWing Role", Section: SectionTribeRoles, Kind: KindString, Default: ""},
	{Name: "sandWingRole", Label: "SandWing Role", Section: SectionTribeRoles, Kind: KindString, Default: ""},
	{Name: "seaWingRole", Label: "SeaWing Role", Section: SectionTribeRoles, Kind: KindString, Default: ""},
	{Name: "silkWingRole", Label: "SilkWing Role", Section: SectionTribeRoles, Kind: KindString, Default: ""},
	{Name: "skyWingRole", Label: "SkyWing Role", Section: SectionTribeRoles, Kind: KindString, Default: ""},

	{Name: "infractionExpireTime", Label: "Infraction Expire Time", Section: SectionInfractions, Kind: KindInt, Default: 90},
	{Name: "infractionsCategory", Label: "Infractions Category", Section: SectionInfractions, Kind: KindString, Default: ""},

	{Name: "shopName", Label: "Shop Name", Section: SectionEconomy, Kind: KindString, Default: "Shop"},
	{Name: "currencyIcon", Label: "Currency Icon", Section: SectionEconomy, Kind: KindString, Default: "$"},
	{Name: "dailyBaseAmount", Label: "Daily Base Amount", Section: SectionEconomy, Kind: KindFloat, Default: 10.0},
	{Name: "dailyStreakMultiplier", Label: "Daily Streak Multiplier", Section: SectionEconomy, Kind: KindFloat, Default: 5.0},
	{Name: "workReward", Label: "Work Reward", Section: SectionEconomy, Kind: KindFloat, Default: 20.0},

	{Name: "mailDistanceWeightMultiplier", Label: "Mail Delivery Distance Weight Multiplier", Section: SectionMail, Kind: KindFloat, Default: 1.0},
	{Name: "mailDistanceToRewardMultiplier", Label: "Mail Distance To Reward Multiplier", Section: SectionMail, Kind: KindFloat, Default: 0.05},

	{Name: "flightEnergyCapacity", Label: "Flight Energy Capacity", Section: SectionFlight, Kind: KindFloat, Default: 100.0},
	{Name: "flightRegenerationPoint", Label: "Flight Regeneration Point", Section: SectionFlight, Kind: KindFloat, Default: 0.0},
	{Name: "flightEnergyRegeneration", Label: "Flight Energy Regeneration", Section: SectionFlight, Kind: KindFloat, Default: 1.0},
	{Name: "flightEnergyDepletionXZMultiplier", Label: "Flight Energy Depletion X/Z Multiplier", Section: SectionFlight, Kind: KindFloat, Default: 1.0},
	{Name: "flightEnergyDepletionYMultiplier", Label: "Flight Energy Depletion Y Multiplier", Section: SectionFlight, Kind: KindFloat, Default: 1.0},

	{Name: "daysUntilInactiveTax", Label: "Days Until Inactive Tax", Section: SectionTax, Kind: KindInt, Default: 30},
	{Name: "inactiveTaxPercent", Label: "Inactive Tax Percent", Section: SectionTax, Kind: KindFloat, Default: 1.0},
	{Name: "inactiveDayFrequency", Label: "Inactive Day Frequency", Section: SectionTax, Kind: KindInt, Default: 7},
	{Name: "inactiveTaxStop", Label: "Inactive Tax Stop", Section: SectionTax, Kind: KindFloat, Default: 0.0},
}

// FieldByName returns the spec for a field name.
func FieldByName(name string) (FieldSpec, bool) {
	for _, field := range Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSpec{}, false
}

// LocationKeys are the editable components of a location value.
var LocationKeys = []string{"x", "y", "z", "pitch", "yaw", "world"}

// Normalize coerces a remote record's values to the schema's canonical
// types, substituting defaults for null and absent values. The gateway
// decodes every JSON number as float64; ints are narrowed here so the
// draft comparison sees one consistent type per field. Unknown fields
// are dropped, and the record id is carried through.
func Normalize(record gateway.Record) gateway.Record {
	normalized := gateway.Record{}
	if id := record.ID(); id != "" {
		normalized["id"] = id
	}
	for _, field := range Fields {
		value, present := record[field.Name]
		if !present || value == nil {
			if field.Kind == KindLocation {
				normalized[field.Name] = defaultLocation()
			} else {
				normalized[field.Name] = field.Default
			}
			continue
		}
		normalized[field.Name] = coerce(field, value, record)
	}
	return normalized
}

func coerce(field FieldSpec, value any, record gateway.Record) any {
	switch field.Kind {
	case KindBool:
		if b, ok := value.(bool); ok {
			return b
		}
	case KindInt:
		switch v := value.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	case KindFloat:
		switch v := value.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	case KindString:
		if s, ok := value.(string); ok {
			return s
		}
	case KindLocation:
		return normalizeLocation(field, record)
	}
	return field.Default
}

// normalizeLocation resolves a location relation: the field holds the
// related record id, and the expanded record (when the fetch asked for
// it) holds the coordinates.
func normalizeLocation(field FieldSpec, record gateway.Record) map[string]any {
	location := defaultLocation()
	expanded := record.Expand(field.Name)
	if expanded == nil {
		if id, isID := record[field.Name].(string); isID {
			location["id"] = id
		}
		return location
	}
	location["id"] = expanded.ID()
	location["x"] = expanded.GetFloat("x")
	location["y"] = expanded.GetFloat("y")
	location["z"] = expanded.GetFloat("z")
	location["pitch"] = expanded.GetFloat("pitch")
	location["yaw"] = expanded.GetFloat("yaw")
	location["world"] = expanded.GetString("world")
	return location
}

func defaultLocation() map[string]any {
	return map[string]any{
		"id":    "",
		"x":     0.0,
		"y":     0.0,
		"z":     0.0,
		"pitch": 0.0,
		"yaw":   0.0,
		"world": "",
	}
}
