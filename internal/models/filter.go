package models

// SingularValueComparation compares a field against one number or date.
type SingularValueComparation string

const (
	ComparationEquals               SingularValueComparation = "equals"
	ComparationGreaterThan          SingularValueComparation = "greaterThan"
	ComparationLessThan             SingularValueComparation = "lessThan"
	ComparationGreaterThanOrEqualTo SingularValueComparation = "greaterThanOrEqualTo"
	ComparationLessThanOrEqualTo    SingularValueComparation = "lessThanOrEqualTo"
	ComparationNotEqualTo           SingularValueComparation = "notEqualTo"
)

// Valid reports whether c is a known comparator.
func (c SingularValueComparation) Valid() bool {
	switch c {
	case ComparationEquals, ComparationGreaterThan, ComparationLessThan,
		ComparationGreaterThanOrEqualTo, ComparationLessThanOrEqualTo, ComparationNotEqualTo:
		return true
	}
	return false
}

// ListComparation is the membership mode of a set filter.
type ListComparation string

const (
	ListInclude ListComparation = "include"
	ListExclude ListComparation = "exclude"
	ListEquals  ListComparation = "equals"
)

// Valid reports whether c is a known list comparator.
func (c ListComparation) Valid() bool {
	switch c {
	case ListInclude, ListExclude, ListEquals:
		return true
	}
	return false
}

// SingleValueComparation compares a number with SingleValue.
type SingleValueComparation struct {
	SingleValue *float64                 `json:"singleValue"`
	Comparation SingularValueComparation `json:"comparation"`
}

// ValueOrList is either a comparator (SingleValue + Comparation) or a
// membership list. List being non-nil selects the list form.
type ValueOrList struct {
	SingleValue *float64                 `json:"singleValue,omitempty"`
	Comparation SingularValueComparation `json:"comparation,omitempty"`
	List        []float64                `json:"list,omitempty"`
}

// IsList reports whether the list form is used.
func (v ValueOrList) IsList() bool {
	return v.List != nil
}

// SingleDateComparation compares a date with SingleDate.
type SingleDateComparation struct {
	SingleDate  *Date                    `json:"singleDate"`
	Comparation SingularValueComparation `json:"comparation"`
}

// DateOrRange is either a date comparator or a closed range.
type DateOrRange struct {
	SingleDate  *Date                    `json:"singleDate,omitempty"`
	Comparation SingularValueComparation `json:"comparation,omitempty"`
	StartDate   *Date                    `json:"startDate,omitempty"`
	EndDate     *Date                    `json:"endDate,omitempty"`
}

// IsRange reports whether the range form is used.
func (d DateOrRange) IsRange() bool {
	return d.StartDate != nil || d.EndDate != nil
}

// CareerFilter is a set filter over careerId.
type CareerFilter struct {
	Values      []string        `json:"values"`
	Comparation ListComparation `json:"comparation"`
}

// NumericTagFilter applies a comparator to a numeric tag.
type NumericTagFilter struct {
	TagID string                 `json:"tagId"`
	Value SingleValueComparation `json:"value"`
}

// DateTagFilter applies a comparator to a date tag.
type DateTagFilter struct {
	TagID string                `json:"tagId"`
	Value SingleDateComparation `json:"value"`
}

// BooleanTagFilter requires a boolean tag to equal Value.
type BooleanTagFilter struct {
	TagID string `json:"tagId"`
	Value *bool  `json:"value"`
}

// ListTagFilter applies a value-or-list test to the selected options of a list tag.
type ListTagFilter struct {
	TagID string      `json:"tagId"`
	Value ValueOrList `json:"value"`
}

// PassFilter is an AND of optional clauses. A nil pointer or nil slice means
// the clause is absent; a filter with no clauses matches every pass.
type PassFilter struct {
	CareerID          *CareerFilter      `json:"careerId,omitempty"`
	Semester          *ValueOrList       `json:"semester,omitempty"`
	EnrollmentYear    *ValueOrList       `json:"enrollmentYear,omitempty"`
	PaymentStatus     []PaymentStatus    `json:"paymentStatus,omitempty"`
	TotalToPay        *ValueOrList       `json:"totalToPay,omitempty"`
	EndDueDate        *DateOrRange       `json:"endDueDate,omitempty"`
	Graduated         *bool              `json:"graduated,omitempty"`
	CurrentlyStudying *bool              `json:"currentlyStudying,omitempty"`
	GenericNumericTag []NumericTagFilter `json:"genericNumericTag,omitempty"`
	GenericDateTag    []DateTagFilter    `json:"genericDateTag,omitempty"`
	GenericBooleanTag []BooleanTagFilter `json:"genericBooleanTag,omitempty"`
	GenericListTag    []ListTagFilter    `json:"genericListTag,omitempty"`
}

// HasTagClauses reports whether evaluating the filter needs tag values.
func (f PassFilter) HasTagClauses() bool {
	return len(f.GenericNumericTag)+len(f.GenericDateTag)+len(f.GenericBooleanTag)+len(f.GenericListTag) > 0
}

// QueryPassesRequest wraps a filter with paging.
type QueryPassesRequest struct {
	Filter   PassFilter `json:"filter"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
}

// Normalize applies paging defaults.
func (r *QueryPassesRequest) Normalize() {
	r.Page, r.PageSize = normalizePage(r.Page, r.PageSize)
}
