package passquery

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
)

var defaultValidator = validator.New()

const comparationTag = "oneof=equals greaterThan lessThan greaterThanOrEqualTo lessThanOrEqualTo notEqualTo"

// Validate checks a filter at the boundary and returns every problem found,
// or nil when the filter is well formed. Value-or-list and date-or-range
// clauses must use exactly one of their two forms. Empty lists are valid:
// an empty include or list matches nothing and an empty exclude matches
// every pass.
func Validate(filter models.PassFilter) appErrors.FieldErrors {
	c := &checker{v: defaultValidator}

	if f := filter.CareerID; f != nil {
		c.check("careerId.values", f.Values, "required,dive,required", "must be a list of non-empty career ids")
		c.check("careerId.comparation", string(f.Comparation), "required,oneof=include exclude equals", "must be include, exclude or equals")
	}
	if f := filter.Semester; f != nil {
		c.valueOrList("semester", *f)
	}
	if f := filter.EnrollmentYear; f != nil {
		c.valueOrList("enrollmentYear", *f)
	}
	if filter.PaymentStatus != nil {
		for i, s := range filter.PaymentStatus {
			c.check(fmt.Sprintf("paymentStatus[%d]", i), string(s), "oneof=Due Overdue Paid", "must be Due, Overdue or Paid")
		}
	}
	if f := filter.TotalToPay; f != nil {
		c.valueOrList("totalToPay", *f)
	}
	if f := filter.EndDueDate; f != nil {
		c.dateOrRange("endDueDate", *f)
	}

	for i, clause := range filter.GenericNumericTag {
		path := fmt.Sprintf("genericNumericTag[%d]", i)
		c.tagID(path, clause.TagID)
		c.singleValue(path+".value", clause.Value.SingleValue, clause.Value.Comparation)
	}
	for i, clause := range filter.GenericDateTag {
		path := fmt.Sprintf("genericDateTag[%d]", i)
		c.tagID(path, clause.TagID)
		c.singleDate(path+".value", clause.Value.SingleDate, clause.Value.Comparation)
	}
	for i, clause := range filter.GenericBooleanTag {
		path := fmt.Sprintf("genericBooleanTag[%d]", i)
		c.tagID(path, clause.TagID)
		if clause.Value == nil {
			c.errs.Add(path+".value", "is required")
		}
	}
	for i, clause := range filter.GenericListTag {
		path := fmt.Sprintf("genericListTag[%d]", i)
		c.tagID(path, clause.TagID)
		c.valueOrList(path+".value", clause.Value)
	}

	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}

type checker struct {
	v    *validator.Validate
	errs appErrors.FieldErrors
}

func (c *checker) check(path string, value interface{}, tag, message string) {
	if err := c.v.Var(value, tag); err != nil {
		c.errs.Add(path, message)
	}
}

func (c *checker) tagID(path, id string) {
	c.check(path+".tagId", id, "required", "is required")
}

func (c *checker) valueOrList(path string, clause models.ValueOrList) {
	hasSingle := clause.SingleValue != nil || clause.Comparation != ""
	switch {
	case clause.IsList() && hasSingle:
		c.errs.Add(path, "use either singleValue with comparation or list, not both")
	case clause.IsList():
		for i, v := range clause.List {
			c.check(fmt.Sprintf("%s.list[%d]", path, i), v, "min=0", "must be zero or greater")
		}
	case hasSingle:
		c.singleValue(path, clause.SingleValue, clause.Comparation)
	default:
		c.errs.Add(path, "either singleValue with comparation or list is required")
	}
}

func (c *checker) singleValue(path string, value *float64, cmp models.SingularValueComparation) {
	if value == nil {
		c.errs.Add(path+".singleValue", "is required")
	} else {
		c.check(path+".singleValue", *value, "min=0", "must be zero or greater")
	}
	c.comparation(path, cmp)
}

func (c *checker) singleDate(path string, value *models.Date, cmp models.SingularValueComparation) {
	if value == nil || value.IsZero() {
		c.errs.Add(path+".singleDate", "must be a valid date")
	}
	c.comparation(path, cmp)
}

func (c *checker) comparation(path string, cmp models.SingularValueComparation) {
	c.check(path+".comparation", string(cmp), "required,"+comparationTag, "must be one of equals, greaterThan, lessThan, greaterThanOrEqualTo, lessThanOrEqualTo, notEqualTo")
}

func (c *checker) dateOrRange(path string, clause models.DateOrRange) {
	hasSingle := clause.SingleDate != nil || clause.Comparation != ""
	switch {
	case clause.IsRange() && hasSingle:
		c.errs.Add(path, "use either singleDate with comparation or startDate with endDate, not both")
	case clause.IsRange():
		if clause.StartDate == nil || clause.StartDate.IsZero() {
			c.errs.Add(path+".startDate", "must be a valid date")
		}
		if clause.EndDate == nil || clause.EndDate.IsZero() {
			c.errs.Add(path+".endDate", "must be a valid date")
		}
		if clause.StartDate != nil && clause.EndDate != nil && clause.StartDate.After(clause.EndDate.Time) {
			c.errs.Add(path, "startDate must not be after endDate")
		}
	case hasSingle:
		c.singleDate(path, clause.SingleDate, clause.Comparation)
	default:
		c.errs.Add(path, "either singleDate with comparation or startDate with endDate is required")
	}
}
