package student

import "slices"

// ClassDivOptions are the class and division values offered by the form.
var ClassDivOptions = []string{
	"Grade 1-A", "Grade 1-B",
	"Grade 2-A", "Grade 2-B",
	"Grade 3-A", "Grade 3-B",
	"Grade 4-A", "Grade 4-B",
	"Grade 5-A", "Grade 5-B",
}

// BusRouteOptions are the bus routes offered by the form.
var BusRouteOptions = []string{
	"Route 1: North Campus",
	"Route 2: East Campus",
	"Route 3: South Campus",
	"Route 4: West Campus",
	"Route 5: Central",
}

// AllergyOptions is the fixed list allergies are drawn from.
var AllergyOptions = []string{
	"Nuts", "Dairy", "Eggs", "Shellfish", "Wheat", "Soy", "Fish", "Pollen",
}

// IsAllergyOption reports whether a is one of AllergyOptions.
func IsAllergyOption(a string) bool {
	return slices.Contains(AllergyOptions, a)
}
