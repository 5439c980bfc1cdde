package collection

import (
	"iter"
	"strings"

	"asset-dashboard/internal/format"
	"asset-dashboard/internal/models"
)

// Matching lazily yields the assets whose name, code, department or staff
// name contains query, ignoring case. An empty query yields everything.
func Matching(assets []models.Asset, query string) iter.Seq[models.Asset] {
	q := strings.ToLower(query)
	return func(yield func(models.Asset) bool) {
		for _, a := range assets {
			if q != "" && !matches(a, q) {
				continue
			}
			if !yield(a) {
				return
			}
		}
	}
}

// Filter collects Matching into a new slice. The input is never modified.
func Filter(assets []models.Asset, query string) []models.Asset {
	out := make([]models.Asset, 0, len(assets))
	for a := range Matching(assets, query) {
		out = append(out, a)
	}
	return out
}

func matches(a models.Asset, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(a.Name), lowerQuery) {
		return true
	}
	for _, f := range []*string{a.Code, a.Department, a.StaffName} {
		if f != nil && strings.Contains(strings.ToLower(*f), lowerQuery) {
			return true
		}
	}
	return false
}

// Group is one department and its assets in collection order
type Group struct {
	Department string
	Assets     []models.Asset
}

// Groups is a partition of a collection by department, ordered by the first
// appearance of each department in the input.
type Groups []Group

// GroupByDepartment partitions assets by department label. Assets without a
// department land in format.UnknownDepartment.
func GroupByDepartment(assets []models.Asset) Groups {
	var groups Groups
	index := map[string]int{}
	for _, a := range assets {
		label := format.DepartmentLabel(a)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Department: label})
		}
		groups[i].Assets = append(groups[i].Assets, a)
	}
	return groups
}

// Lookup returns the assets of one department, or nil if there are none
func (g Groups) Lookup(department string) []models.Asset {
	for _, grp := range g {
		if grp.Department == department {
			return grp.Assets
		}
	}
	return nil
}

// DepartmentCount is one card on the department overview
type DepartmentCount struct {
	Department string
	Count      int
}

// Departments summarizes the partition as label and count per group, in
// group order
func (g Groups) Departments() []DepartmentCount {
	out := make([]DepartmentCount, 0, len(g))
	for _, grp := range g {
		out = append(out, DepartmentCount{Department: grp.Department, Count: len(grp.Assets)})
	}
	return out
}

// AsMap is the department → assets mapping view of the partition
func (g Groups) AsMap() map[string][]models.Asset {
	m := make(map[string][]models.Asset, len(g))
	for _, grp := range g {
		m[grp.Department] = grp.Assets
	}
	return m
}
