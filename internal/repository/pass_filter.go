package repository

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/noah-isme/unipass-api/internal/models"
)

var comparationOperators = map[models.SingularValueComparation]string{
	models.ComparationEquals:               "=",
	models.ComparationGreaterThan:          ">",
	models.ComparationLessThan:             "<",
	models.ComparationGreaterThanOrEqualTo: ">=",
	models.ComparationLessThanOrEqualTo:    "<=",
	models.ComparationNotEqualTo:           "<>",
}

// passFilterConditions translates the base-field clauses of filter into SQL.
// Tag clauses are left to the in-memory matcher. Lists are always bound as
// arrays, never NULL, so an empty list compares like the matcher does:
// ANY('{}') is false and its negation true.
func passFilterConditions(filter models.PassFilter, conditions []string, args []interface{}) ([]string, []interface{}) {
	if c := filter.CareerID; c != nil {
		values := c.Values
		if values == nil {
			values = []string{}
		}
		args = append(args, pq.Array(values))
		if c.Comparation == models.ListExclude {
			conditions = append(conditions, fmt.Sprintf("NOT (career_id = ANY($%d))", len(args)))
		} else {
			conditions = append(conditions, fmt.Sprintf("career_id = ANY($%d)", len(args)))
		}
	}
	conditions, args = valueOrListCondition("semester", filter.Semester, conditions, args)
	conditions, args = valueOrListCondition("enrollment_year", filter.EnrollmentYear, conditions, args)
	if filter.PaymentStatus != nil {
		statuses := make([]string, len(filter.PaymentStatus))
		for i, s := range filter.PaymentStatus {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("payment_status = ANY($%d)", len(args)))
	}
	conditions, args = valueOrListCondition("total_to_pay", filter.TotalToPay, conditions, args)
	if d := filter.EndDueDate; d != nil {
		switch {
		case d.IsRange() && d.StartDate != nil && d.EndDate != nil:
			args = append(args, *d.StartDate, *d.EndDate)
			conditions = append(conditions, fmt.Sprintf("end_due_date BETWEEN $%d AND $%d", len(args)-1, len(args)))
		case d.IsRange():
			conditions = append(conditions, "FALSE")
		case d.SingleDate != nil:
			if op, ok := comparationOperators[d.Comparation]; ok {
				args = append(args, *d.SingleDate)
				conditions = append(conditions, fmt.Sprintf("end_due_date %s $%d", op, len(args)))
			}
		}
	}
	if filter.Graduated != nil {
		args = append(args, *filter.Graduated)
		conditions = append(conditions, fmt.Sprintf("graduated = $%d", len(args)))
	}
	if filter.CurrentlyStudying != nil {
		args = append(args, *filter.CurrentlyStudying)
		conditions = append(conditions, fmt.Sprintf("currently_studying = $%d", len(args)))
	}
	return conditions, args
}

func valueOrListCondition(column string, clause *models.ValueOrList, conditions []string, args []interface{}) ([]string, []interface{}) {
	if clause == nil {
		return conditions, args
	}
	if clause.IsList() {
		args = append(args, pq.Array(clause.List))
		return append(conditions, fmt.Sprintf("%s = ANY($%d)", column, len(args))), args
	}
	op, ok := comparationOperators[clause.Comparation]
	if !ok || clause.SingleValue == nil {
		return append(conditions, "FALSE"), args
	}
	args = append(args, *clause.SingleValue)
	return append(conditions, fmt.Sprintf("%s %s $%d", column, op, len(args))), args
}
