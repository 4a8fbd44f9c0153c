// Package student holds the ID card record shared by the form, the templates and the store.
package student

import "slices"

// Record is one student's ID card data, draft or persisted.
type Record struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name" validate:"required"`
	RollNumber     string   `json:"rollNumber" validate:"required"`
	ClassDiv       string   `json:"classDiv" validate:"required"`
	Allergies      []string `json:"allergies"`
	Photo          *string  `json:"photo"`
	RackNumber     string   `json:"rackNumber" validate:"required"`
	BusRouteNumber string   `json:"busRouteNumber" validate:"required"`
	CreatedAt      string   `json:"createdAt,omitempty"`
}

// ScanPayload is the reduced projection encoded into a card's scannable code.
// It deliberately has no photo or timestamp field.
type ScanPayload struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name"`
	RollNumber     string   `json:"rollNumber"`
	ClassDiv       string   `json:"classDiv"`
	Allergies      []string `json:"allergies"`
	RackNumber     string   `json:"rackNumber"`
	BusRouteNumber string   `json:"busRouteNumber"`
}

// Persisted reports whether the store has assigned both id and timestamp.
func (r Record) Persisted() bool {
	return r.ID != "" && r.CreatedAt != ""
}

// HasPhoto reports whether an inline photo payload is present.
func (r Record) HasPhoto() bool {
	return r.Photo != nil && *r.Photo != ""
}

// HasAllergy reports whether the allergy is in the record's set.
func (r Record) HasAllergy(allergy string) bool {
	return slices.Contains(r.Allergies, allergy)
}

// ScanPayload projects the record onto the fields a scanner needs.
func (r Record) ScanPayload() ScanPayload {
	allergies := r.Allergies
	if allergies == nil {
		allergies = []string{}
	}
	return ScanPayload{
		ID:             r.ID,
		Name:           r.Name,
		RollNumber:     r.RollNumber,
		ClassDiv:       r.ClassDiv,
		Allergies:      slices.Clone(allergies),
		RackNumber:     r.RackNumber,
		BusRouteNumber: r.BusRouteNumber,
	}
}

// Clone returns a copy that shares no slices or pointers with r.
func (r Record) Clone() Record {
	out := r
	if r.Allergies != nil {
		out.Allergies = slices.Clone(r.Allergies)
	}
	if r.Photo != nil {
		p := *r.Photo
		out.Photo = &p
	}
	return out
}

// Normalize makes the allergy list non-nil so the stored document always has "allergies": [].
func (r *Record) Normalize() {
	if r.Allergies == nil {
		r.Allergies = []string{}
	}
}
