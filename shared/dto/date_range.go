package dto

import (
	"net/http"
	"time"

	"bengkel/shared/constant"
	"bengkel/shared/timezone"
)

// DateRange is an inclusive service-date window. A nil bound means the bound
// was not supplied by the caller.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// FromRequest reads start_date/end_date (YYYY-MM-DD) query parameters.
// Unparseable values are treated as absent.
func (d *DateRange) FromRequest(r *http.Request) {
	queryParams := r.URL.Query()

	if raw := queryParams.Get(constant.RequestParamStartDate); raw != "" {
		if parsed, err := timezone.Parse(constant.ServiceDateFormat, raw); err == nil {
			start := timezone.StartOfDay(parsed)
			d.Start = &start
		}
	}

	if raw := queryParams.Get(constant.RequestParamEndDate); raw != "" {
		if parsed, err := timezone.Parse(constant.ServiceDateFormat, raw); err == nil {
			end := timezone.StartOfDay(parsed)
			d.End = &end
		}
	}
}

// Normalize applies the shared windowing policy: a single supplied bound
// becomes both bounds, and when start > end the end is clamped to start.
func (d *DateRange) Normalize() {
	if d.Start != nil && d.End == nil {
		end := *d.Start
		d.End = &end
	}

	if d.Start == nil && d.End != nil {
		start := *d.End
		d.Start = &start
	}

	if d.Start != nil && d.End != nil && d.Start.After(*d.End) {
		end := *d.Start
		d.End = &end
	}
}

// IsZero reports whether no bound was supplied.
func (d *DateRange) IsZero() bool {
	return d.Start == nil && d.End == nil
}

// Filters renders the window as table-qualified range filters. Bounds are
// rendered as calendar dates so DATE-column comparisons do not depend on the
// application timezone offset.
func (d *DateRange) Filters(table, field string) []any {
	filters := []any{}

	if d.Start != nil {
		filters = append(filters, Filter{
			ArgName:  field + "_start",
			Field:    field,
			Operator: FilterOperatorGreaterEq,
			Value:    d.Start.Format(constant.ServiceDateFormat),
			Table:    table,
		})
	}

	if d.End != nil {
		filters = append(filters, Filter{
			ArgName:  field + "_end",
			Field:    field,
			Operator: FilterOperatorLessEq,
			Value:    d.End.Format(constant.ServiceDateFormat),
			Table:    table,
		})
	}

	return filters
}
