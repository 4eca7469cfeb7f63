// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// Package serverprops round-trips Minecraft server.properties files
// between the wire text format and a typed record suitable for form
// editing, and persists them as a file attachment on the gateway's
// server_config record.
package serverprops

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dreamvisitor/dashboard/gateway"
)

// Wire keys that do not follow the camelCase/kebab-case convention.
// rcon and query settings use dotted keys, and two settings collide
// with the generic rule only in one direction, so both directions are
// spelled out.
var specialToWire = map[string]string{
	"rconPassword": "rcon.password",
	"rconPort":     "rcon.port",
	"queryPort":    "query.port",
	"serverPort":   "server-port",
	"serverIp":     "server-ip",
}

var specialFromWire = map[string]string{
	"rcon.password": "rconPassword",
	"rcon.port":     "rconPort",
	"query.port":    "queryPort",
	"server-port":   "serverPort",
	"server-ip":     "serverIp",
}

// Fallback values when a special numeric key fails to parse.
var specialPortDefaults = map[string]int{
	"rconPort":   25575,
	"queryPort":  25565,
	"serverPort": 25565,
}

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	kebabBoundary = regexp.MustCompile(`-([a-z0-9])`)
	integerValue  = regexp.MustCompile(`^-?\d+$`)
	decimalValue  = regexp.MustCompile(`^-?\d+\.\d+$`)
)

func camelToKebab(key string) string {
	return strings.ToLower(camelBoundary.ReplaceAllString(key, "$1-$2"))
}

func kebabToCamel(key string) string {
	return kebabBoundary.ReplaceAllStringFunc(key, func(match string) string {
		return strings.ToUpper(match[1:])
	})
}

// Parse decodes server.properties content into a record keyed by
// camelCase property names. Comment and blank lines are skipped, values
// are typed: "true"/"false" become bools, integer and decimal literals
// become int and float64, everything else stays a string. Lines without
// a separator are ignored.
func Parse(content string) gateway.Record {
	properties := gateway.Record{}
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		separator := strings.Index(line, "=")
		if separator == -1 {
			continue
		}
		key := strings.TrimSpace(line[:separator])
		value := strings.TrimSpace(line[separator+1:])

		if camel, ok := specialFromWire[key]; ok {
			if fallback, numeric := specialPortDefaults[camel]; numeric {
				port, err := strconv.Atoi(value)
				if err != nil {
					port = fallback
				}
				properties[camel] = port
			} else {
				properties[camel] = value
			}
			continue
		}

		camel := kebabToCamel(key)
		switch {
		case value == "true":
			properties[camel] = true
		case value == "false":
			properties[camel] = false
		case integerValue.MatchString(value):
			n, err := strconv.Atoi(value)
			if err != nil {
				properties[camel] = value
				continue
			}
			properties[camel] = n
		case decimalValue.MatchString(value):
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				properties[camel] = value
				continue
			}
			properties[camel] = f
		default:
			properties[camel] = value
		}
	}
	return properties
}

// Serialize encodes a property record back into server.properties
// text, with the standard two-line comment header. Keys are emitted in
// sorted order so the output is deterministic.
func Serialize(properties gateway.Record, now time.Time) string {
	var b strings.Builder
	b.WriteString("#Minecraft server properties\n")
	fmt.Fprintf(&b, "#[%s]\n", now.Format(time.UnixDate))

	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		wireKey, ok := specialToWire[key]
		if !ok {
			wireKey = camelToKebab(key)
		}
		fmt.Fprintf(&b, "%s=%s\n", wireKey, formatValue(properties[key]))
	}
	return b.String()
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		// Whole floats print without an exponent or trailing zeros so
		// an int that travelled through JSON round-trips unchanged.
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
