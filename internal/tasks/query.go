package tasks

import (
	"net/url"
	"strings"

	"github.com/taskdeck/go-task-api/internal/models"
)

// ListQuery is a validated set of filter and sort options for a task list.
// The repository scopes every query to the requesting owner on top of it.
type ListQuery struct {
	Status   *models.Status
	Priority *models.Priority
	Category *models.Category

	// SortField is empty for storage-natural ordering.
	SortField string
	SortDesc  bool
}

// BuildListQuery turns raw query parameters into a ListQuery. Unknown
// parameters are ignored; recognized parameters with invalid values fail
// with a QueryError naming the offending key.
func BuildListQuery(params url.Values) (ListQuery, error) {
	var q ListQuery

	if v := params.Get("status"); v != "" {
		status := models.Status(v)
		if !status.Valid() {
			return ListQuery{}, &models.QueryError{Param: "status", Reason: "invalid status value"}
		}
		q.Status = &status
	}
	if v := params.Get("priority"); v != "" {
		priority := models.Priority(v)
		if !priority.Valid() {
			return ListQuery{}, &models.QueryError{Param: "priority", Reason: "invalid priority value"}
		}
		q.Priority = &priority
	}
	if v := params.Get("category"); v != "" {
		category := models.Category(v)
		if !category.Valid() {
			return ListQuery{}, &models.QueryError{Param: "category", Reason: "invalid category value"}
		}
		q.Category = &category
	}
	if v := params.Get("sort"); v != "" {
		if !ValidSortKey(v) {
			return ListQuery{}, &models.QueryError{Param: "sort", Reason: "invalid sort value"}
		}
		q.SortDesc = strings.HasPrefix(v, "-")
		q.SortField = strings.TrimPrefix(v, "-")
	}

	return q, nil
}
