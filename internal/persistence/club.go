package persistence

import (
	"sort"
	"strings"
)

// ClubShape is the decoded form of a club document. It is either a
// WellFormedClub or a LegacyClub whose malformed fields were repaired.
type ClubShape interface {
	// Normalized returns the club with every field in its canonical form.
	Normalized() Club
	isClubShape()
}

// WellFormedClub is a club document whose fields all had the expected types.
type WellFormedClub struct {
	Club Club
}

// Normalized implements ClubShape.
func (w WellFormedClub) Normalized() Club { return w.Club }

func (WellFormedClub) isClubShape() {}

// LegacyClub is a partially populated or malformed club document. Repaired
// names the fields that were missing or had the wrong type and were replaced
// with zero values during decoding.
type LegacyClub struct {
	Club     Club
	Repaired []string
}

// Normalized implements ClubShape.
func (l LegacyClub) Normalized() Club { return l.Club }

// WasRepaired reports whether field was replaced during decoding.
func (l LegacyClub) WasRepaired(field string) bool {
	for _, name := range l.Repaired {
		if name == field {
			return true
		}
	}
	return false
}

func (LegacyClub) isClubShape() {}

// Club document field names.
const (
	FieldWhatWeDo        = "what_we_do"
	FieldRecentEvents    = "recent_events"
	FieldLeadership      = "leadership"
	FieldSocials         = "socials"
	FieldEstablishedYear = "established_year"
	FieldEventsConducted = "events_conducted"
)

// DecodeClub converts a raw club document into its typed shape. It never
// fails; fields that cannot be decoded are reported through LegacyClub.
func DecodeClub(id string, data map[string]any) ClubShape {
	repaired := make(map[string]struct{})
	mark := func(field string) { repaired[field] = struct{}{} }

	club := Club{
		ID:          id,
		Name:        stringField(data, "name"),
		Description: stringField(data, "description"),
		Category:    stringField(data, "category"),
		Logo:        stringField(data, "logo"),
		Mission:     stringField(data, "mission"),
		CreatedAt:   timeField(data, "created_at"),
		UpdatedAt:   timeField(data, "updated_at"),
	}

	var ok bool
	if club.EstablishedYear, ok = intField(data, FieldEstablishedYear); !ok {
		mark(FieldEstablishedYear)
	}
	if club.EventsConducted, ok = intField(data, FieldEventsConducted); !ok {
		mark(FieldEventsConducted)
	}

	if socials, ok := mapField(data, FieldSocials); ok {
		club.Socials = Socials{
			Instagram: stringField(socials, "instagram"),
			LinkedIn:  stringField(socials, "linkedin"),
		}
	} else {
		mark(FieldSocials)
	}

	if items, ok := listField(data, FieldWhatWeDo); ok {
		club.WhatWeDo = make([]string, 0, len(items))
		for _, item := range items {
			s, isString := item.(string)
			if !isString {
				mark(FieldWhatWeDo)
				continue
			}
			club.WhatWeDo = append(club.WhatWeDo, s)
		}
	} else {
		mark(FieldWhatWeDo)
	}

	if items, ok := listField(data, FieldRecentEvents); ok {
		club.RecentEvents = make([]RecentEvent, 0, len(items))
		for _, item := range items {
			entry, isMap := item.(map[string]any)
			if !isMap {
				mark(FieldRecentEvents)
				continue
			}
			participants, intOK := intField(entry, "participants")
			if !intOK {
				mark(FieldRecentEvents)
			}
			club.RecentEvents = append(club.RecentEvents, RecentEvent{
				Name:         stringField(entry, "name"),
				Date:         stringField(entry, "date"),
				Description:  stringField(entry, "description"),
				Participants: participants,
			})
		}
	} else {
		mark(FieldRecentEvents)
	}

	var leaders []Leader
	if items, ok := listField(data, FieldLeadership); ok {
		leaders = make([]Leader, 0, len(items))
		for _, item := range items {
			entry, isMap := item.(map[string]any)
			if !isMap {
				mark(FieldLeadership)
				continue
			}
			leaders = append(leaders, Leader{
				Role:      stringField(entry, "role"),
				Name:      stringField(entry, "name"),
				Email:     stringField(entry, "email"),
				Phone:     stringField(entry, "phone"),
				Instagram: stringField(entry, "instagram"),
				LinkedIn:  stringField(entry, "linkedin"),
			})
		}
	} else {
		mark(FieldLeadership)
	}
	normalized, changed := NormalizeLeadership(leaders)
	if changed {
		mark(FieldLeadership)
	}
	club.Leadership = normalized

	if len(repaired) == 0 {
		return WellFormedClub{Club: club}
	}
	fields := make([]string, 0, len(repaired))
	for field := range repaired {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return LegacyClub{Club: club, Repaired: fields}
}

// NormalizeLeadership places the fixed roles first and in order, creating
// empty entries for missing roles. Other roles keep their relative order
// after the fixed ones. changed reports whether the input differed.
func NormalizeLeadership(leaders []Leader) (normalized []Leader, changed bool) {
	used := make([]bool, len(leaders))
	normalized = make([]Leader, 0, len(FixedRoles)+len(leaders))

	for _, role := range FixedRoles {
		found := false
		for i, leader := range leaders {
			if used[i] || !strings.EqualFold(strings.TrimSpace(leader.Role), role) {
				continue
			}
			used[i] = true
			leader.Role = role
			normalized = append(normalized, leader)
			found = true
			break
		}
		if !found {
			normalized = append(normalized, Leader{Role: role})
		}
	}
	for i, leader := range leaders {
		if !used[i] {
			normalized = append(normalized, leader)
		}
	}

	if len(normalized) != len(leaders) {
		return normalized, true
	}
	for i := range normalized {
		if normalized[i] != leaders[i] {
			return normalized, true
		}
	}
	return normalized, false
}

// EncodeClub converts a club into document fields. Identifier and
// timestamps are left to the caller.
func EncodeClub(club Club) map[string]any {
	whatWeDo := make([]any, 0, len(club.WhatWeDo))
	for _, item := range club.WhatWeDo {
		whatWeDo = append(whatWeDo, item)
	}

	recent := make([]any, 0, len(club.RecentEvents))
	for _, ev := range club.RecentEvents {
		recent = append(recent, map[string]any{
			"name":         ev.Name,
			"date":         ev.Date,
			"description":  ev.Description,
			"participants": ev.Participants,
		})
	}

	leaders, _ := NormalizeLeadership(club.Leadership)
	leadership := make([]any, 0, len(leaders))
	for _, leader := range leaders {
		leadership = append(leadership, map[string]any{
			"role":      leader.Role,
			"name":      leader.Name,
			"email":     leader.Email,
			"phone":     leader.Phone,
			"instagram": leader.Instagram,
			"linkedin":  leader.LinkedIn,
		})
	}

	return map[string]any{
		"name":               club.Name,
		"description":        club.Description,
		"category":           club.Category,
		"logo":               club.Logo,
		"mission":            club.Mission,
		FieldEstablishedYear: club.EstablishedYear,
		FieldEventsConducted: club.EventsConducted,
		FieldSocials: map[string]any{
			"instagram": club.Socials.Instagram,
			"linkedin":  club.Socials.LinkedIn,
		},
		FieldWhatWeDo:     whatWeDo,
		FieldRecentEvents: recent,
		FieldLeadership:   leadership,
	}
}
