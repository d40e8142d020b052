package prompt

import "strings"

// Age bands used for subject selection.
const (
	BandEarly = "4-7"
	BandUpper = "8-13"
)

// AgeGroups lists the worksheet age groups in order.
var AgeGroups = []string{"4-5", "6-7", "8-9", "10-11", "12-13"}

// Difficulties lists accepted worksheet difficulties.
var Difficulties = []string{"easy", "medium", "hard"}

// AgeBand maps an age to its band. Ages outside 4-7 fall in the upper band.
func AgeBand(age int) string {
	if age >= 4 && age <= 7 {
		return BandEarly
	}
	return BandUpper
}

// AgeGroupFor maps an age to the nearest worksheet age group.
func AgeGroupFor(age int) string {
	switch {
	case age <= 5:
		return "4-5"
	case age <= 7:
		return "6-7"
	case age <= 9:
		return "8-9"
	case age <= 11:
		return "10-11"
	default:
		return "12-13"
	}
}

// ValidAgeGroup reports whether g is one of AgeGroups.
func ValidAgeGroup(g string) bool {
	for _, v := range AgeGroups {
		if v == g {
			return true
		}
	}
	return false
}

var electiveKeywords = []string{
	"computational", "robotics", "oratory", "creative",
	"visual arts", "environmental", "physics", "chemistry",
}

func isElective(name string) bool {
	n := strings.ToLower(name)
	for _, k := range electiveKeywords {
		if strings.Contains(n, k) {
			return true
		}
	}
	return false
}

func isIslamic(name string) bool {
	return strings.Contains(strings.ToLower(name), "islamic")
}

// SelectRoadmapSubjects filters the catalog for a student. Mandatory
// subjects come first in catalog order, then Islamic Studies for Muslim
// students, then electives for the upper band.
func SelectRoadmapSubjects(catalog []string, age int, religion string) []string {
	band := AgeBand(age)
	var mandatory, conditional, electives []string
	for _, name := range catalog {
		switch {
		case isIslamic(name):
			if strings.EqualFold(religion, "muslim") {
				conditional = append(conditional, name)
			}
		case isElective(name):
			if band == BandUpper {
				electives = append(electives, name)
			}
		default:
			mandatory = append(mandatory, name)
		}
	}
	out := make([]string, 0, len(mandatory)+len(conditional)+len(electives))
	out = append(out, mandatory...)
	out = append(out, conditional...)
	return append(out, electives...)
}
