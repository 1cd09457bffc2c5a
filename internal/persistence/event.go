package persistence

// DecodeEvent converts a raw event document. Missing registrations decode
// as zero.
func DecodeEvent(id string, data map[string]any) Event {
	registrations, _ := intField(data, "registrations")
	return Event{
		ID:            id,
		Title:         stringField(data, "title"),
		Description:   stringField(data, "description"),
		Date:          stringField(data, "date"),
		Time:          stringField(data, "time"),
		Location:      stringField(data, "location"),
		Category:      stringField(data, "category"),
		Organizer:     stringField(data, "organizer"),
		Featured:      boolField(data, "featured"),
		Registrations: registrations,
		CreatedAt:     timeField(data, "created_at"),
		UpdatedAt:     timeField(data, "updated_at"),
	}
}

// EncodeEvent converts the form editable event fields into document fields.
// Registrations and timestamps are left to the caller.
func EncodeEvent(event Event) map[string]any {
	return map[string]any{
		"title":       event.Title,
		"description": event.Description,
		"date":        event.Date,
		"time":        event.Time,
		"location":    event.Location,
		"category":    event.Category,
		"organizer":   event.Organizer,
		"featured":    event.Featured,
	}
}

// DecodeFeaturedPointer converts a raw featured_event document.
func DecodeFeaturedPointer(id string, data map[string]any) FeaturedPointer {
	return FeaturedPointer{
		ID:          id,
		EventID:     stringField(data, "event_id"),
		IsActive:    boolField(data, "is_active"),
		ActivatedAt: timeField(data, "activated_at"),
	}
}

// DecodeStaff converts a raw staff document.
func DecodeStaff(id string, data map[string]any) Staff {
	return Staff{
		ID:       id,
		Email:    stringField(data, "email"),
		FullName: stringField(data, "full_name"),
		Role:     stringField(data, "role"),
	}
}

// EncodeStaff converts a staff record into document fields.
func EncodeStaff(staff Staff) map[string]any {
	return map[string]any{
		"email":     staff.Email,
		"full_name": staff.FullName,
		"role":      staff.Role,
	}
}

// DecodeIdentity converts a raw identity document.
func DecodeIdentity(id string, data map[string]any) Identity {
	return Identity{
		ID:           id,
		Email:        stringField(data, "email"),
		PasswordHash: stringField(data, "password_hash"),
		Disabled:     boolField(data, "disabled"),
		CreatedAt:    timeField(data, "created_at"),
		UpdatedAt:    timeField(data, "updated_at"),
	}
}

// DecodeSession converts a raw session document.
func DecodeSession(id string, data map[string]any) Session {
	session := Session{
		ID:         id,
		IdentityID: stringField(data, "identity_id"),
		Token:      stringField(data, "token"),
		ExpiresAt:  timeField(data, "expires_at"),
		CreatedAt:  timeField(data, "created_at"),
		UpdatedAt:  timeField(data, "updated_at"),
	}
	if revoked := timeField(data, "revoked_at"); !revoked.IsZero() {
		session.RevokedAt = &revoked
	}
	return session
}
