// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile fetches and edits one user's aggregate: the user
// record plus its expanded infractions, inventory, homes, and claims.
// Writes reconcile by re-fetching the whole aggregate, never by
// splicing responses into local state.
package profile

import (
	"time"

	"github.com/dreamvisitor/dashboard/gateway"
)

// Collection names involved in the aggregate.
const (
	UsersCollection       = "users"
	InfractionsCollection = "infractions"
)

// expandRelations is the expand parameter resolving every relation the
// profile view renders in one fetch.
const expandRelations = "infractions,inventory_items,inventory_items.item,users_home,users_home.location,claims,claims.location"

// Infraction is one disciplinary record against a user.
type Infraction struct {
	ID          string
	Value       int
	Reason      string
	Expired     bool
	SendWarning bool
	Created     time.Time
}

// InventoryItem is a quantity of one shop item held by a user.
type InventoryItem struct {
	ID       string
	Quantity int
	ItemName string
	Price    float64
}

// Location is a point in a Minecraft world.
type Location struct {
	X, Y, Z    float64
	Pitch, Yaw float64
	World      string
}

// Home is a named teleport location owned by a user.
type Home struct {
	ID       string
	Name     string
	Location Location
}

// Claim is a protected land region owned by a user.
type Claim struct {
	ID       string
	Size     int
	Location Location
}

// Aggregate is one user with every relation the profile view shows.
type Aggregate struct {
	User        gateway.Record
	Infractions []Infraction
	Inventory   []InventoryItem
	Homes       []Home
	Claims      []Claim
}

// ActivePoints sums the point values of unexpired infractions.
func (a *Aggregate) ActivePoints() int {
	total := 0
	for _, infraction := range a.Infractions {
		if !infraction.Expired {
			total += infraction.Value
		}
	}
	return total
}

// ActiveInfractions counts unexpired infractions.
func (a *Aggregate) ActiveInfractions() int {
	count := 0
	for _, infraction := range a.Infractions {
		if !infraction.Expired {
			count++
		}
	}
	return count
}

// newAggregate builds an Aggregate from a fetched user record with
// expanded relations. Missing expansions yield empty slices.
func newAggregate(user gateway.Record) *Aggregate {
	aggregate := &Aggregate{User: user}
	for _, record := range user.ExpandList("infractions") {
		aggregate.Infractions = append(aggregate.Infractions, Infraction{
			ID:          record.ID(),
			Value:       record.GetInt("value"),
			Reason:      record.GetString("reason"),
			Expired:     record.GetBool("expired"),
			SendWarning: record.GetBool("sendWarning"),
			Created:     record.Created(),
		})
	}
	for _, record := range user.ExpandList("inventory_items") {
		entry := InventoryItem{
			ID:       record.ID(),
			Quantity: record.GetInt("quantity"),
		}
		if item := record.Expand("item"); item != nil {
			entry.ItemName = item.GetString("name")
			entry.Price = item.GetFloat("price")
		}
		aggregate.Inventory = append(aggregate.Inventory, entry)
	}
	for _, record := range user.ExpandList("users_home") {
		aggregate.Homes = append(aggregate.Homes, Home{
			ID:       record.ID(),
			Name:     record.GetString("name"),
			Location: location(record.Expand("location")),
		})
	}
	for _, record := range user.ExpandList("claims") {
		aggregate.Claims = append(aggregate.Claims, Claim{
			ID:       record.ID(),
			Size:     record.GetInt("size"),
			Location: location(record.Expand("location")),
		})
	}
	return aggregate
}

func location(record gateway.Record) Location {
	if record == nil {
		return Location{}
	}
	return Location{
		X:     record.GetFloat("x"),
		Y:     record.GetFloat("y"),
		Z:     record.GetFloat("z"),
		Pitch: record.GetFloat("pitch"),
		Yaw:   record.GetFloat("yaw"),
		World: record.GetString("world"),
	}
}
