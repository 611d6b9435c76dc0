// Package passquery evaluates pass filters in memory.
package passquery

import (
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/unipass-api/internal/models"
)

// Matches reports whether pass satisfies every clause present in filter.
// tagValues is keyed by tag ID. The filter is assumed to have passed Validate.
func Matches(pass models.Pass, tagValues map[string]models.TagValue, filter models.PassFilter) bool {
	if c := filter.CareerID; c != nil && !matchCareer(pass.CareerID, *c) {
		return false
	}
	if v := filter.Semester; v != nil && !matchValueOrList(float64(pass.Semester), *v) {
		return false
	}
	if v := filter.EnrollmentYear; v != nil && !matchValueOrList(float64(pass.EnrollmentYear), *v) {
		return false
	}
	if filter.PaymentStatus != nil && !containsStatus(filter.PaymentStatus, pass.PaymentStatus) {
		return false
	}
	if v := filter.TotalToPay; v != nil && !matchValueOrList(pass.TotalToPay, *v) {
		return false
	}
	if d := filter.EndDueDate; d != nil && !matchDateOrRange(pass.EndDueDate.Time, *d) {
		return false
	}
	if filter.Graduated != nil && pass.Graduated != *filter.Graduated {
		return false
	}
	if filter.CurrentlyStudying != nil && pass.CurrentlyStudying != *filter.CurrentlyStudying {
		return false
	}

	for _, clause := range filter.GenericNumericTag {
		value, ok := tagValues[clause.TagID]
		if !ok || value.Type != models.TagTypeNumeric || value.Numeric == nil {
			return false
		}
		if clause.Value.SingleValue == nil || !compareNumber(*value.Numeric, *clause.Value.SingleValue, clause.Value.Comparation) {
			return false
		}
	}
	for _, clause := range filter.GenericDateTag {
		value, ok := tagValues[clause.TagID]
		if !ok || value.Type != models.TagTypeDate || value.Date == nil {
			return false
		}
		if clause.Value.SingleDate == nil || !compareDate(value.Date.Time, clause.Value.SingleDate.Time, clause.Value.Comparation) {
			return false
		}
	}
	for _, clause := range filter.GenericBooleanTag {
		value, ok := tagValues[clause.TagID]
		if !ok || value.Type != models.TagTypeBoolean || value.Boolean == nil {
			return false
		}
		if clause.Value == nil || *value.Boolean != *clause.Value {
			return false
		}
	}
	for _, clause := range filter.GenericListTag {
		value, ok := tagValues[clause.TagID]
		if !ok || value.Type != models.TagTypeList {
			return false
		}
		if !matchOptions(value.Options, clause.Value) {
			return false
		}
	}
	return true
}

// equals behaves as include.
func matchCareer(careerID string, clause models.CareerFilter) bool {
	found := false
	for _, v := range clause.Values {
		if v == careerID {
			found = true
			break
		}
	}
	if clause.Comparation == models.ListExclude {
		return !found
	}
	return found
}

func matchValueOrList(field float64, clause models.ValueOrList) bool {
	if clause.IsList() {
		for _, v := range clause.List {
			if v == field {
				return true
			}
		}
		return false
	}
	if clause.SingleValue == nil {
		return false
	}
	return compareNumber(field, *clause.SingleValue, clause.Comparation)
}

// matchOptions holds when any selected option parses as a number satisfying clause.
func matchOptions(options []models.ListTagOption, clause models.ValueOrList) bool {
	for _, option := range options {
		n, err := strconv.ParseFloat(strings.TrimSpace(option.Value), 64)
		if err != nil {
			continue
		}
		if matchValueOrList(n, clause) {
			return true
		}
	}
	return false
}

func matchDateOrRange(field time.Time, clause models.DateOrRange) bool {
	if clause.IsRange() {
		if clause.StartDate == nil || clause.EndDate == nil {
			return false
		}
		return !field.Before(clause.StartDate.Time) && !field.After(clause.EndDate.Time)
	}
	if clause.SingleDate == nil {
		return false
	}
	return compareDate(field, clause.SingleDate.Time, clause.Comparation)
}

func containsStatus(statuses []models.PaymentStatus, status models.PaymentStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func compareNumber(field, value float64, cmp models.SingularValueComparation) bool {
	switch cmp {
	case models.ComparationEquals:
		return field == value
	case models.ComparationGreaterThan:
		return field > value
	case models.ComparationLessThan:
		return field < value
	case models.ComparationGreaterThanOrEqualTo:
		return field >= value
	case models.ComparationLessThanOrEqualTo:
		return field <= value
	case models.ComparationNotEqualTo:
		return field != value
	}
	return false
}

func compareDate(field, value time.Time, cmp models.SingularValueComparation) bool {
	switch cmp {
	case models.ComparationEquals:
		return field.Equal(value)
	case models.ComparationGreaterThan:
		return field.After(value)
	case models.ComparationLessThan:
		return field.Before(value)
	case models.ComparationGreaterThanOrEqualTo:
		return !field.Before(value)
	case models.ComparationLessThanOrEqualTo:
		return !field.After(value)
	case models.ComparationNotEqualTo:
		return !field.Equal(value)
	}
	return false
}
