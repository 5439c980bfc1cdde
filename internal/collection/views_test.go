package collection

import (
	"fmt"
	"strings"
	"testing"

	"asset-dashboard/internal/format"
	"asset-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAssets() []models.Asset {
	return []models.Asset{
		{ID: "1", Name: "Laptop", Code: models.Ptr("L-01"), Department: models.Ptr("Finance"), StaffName: models.Ptr("Ama Mensah")},
		{ID: "2", Name: "Office Chair", Code: models.Ptr("C-07"), Department: models.Ptr("IT"), StaffName: models.Ptr("Kofi")},
		{ID: "3", Name: "Projector", Code: nil, Department: nil, StaffName: nil},
		{ID: "4", Name: "", Code: models.Ptr("FIN-9"), Department: models.Ptr("")},
		{ID: "5", Name: "Router", Department: models.Ptr("IT"), StaffName: models.Ptr("Finley")},
	}
}

func ids(assets []models.Asset) []models.AssetID {
	out := make([]models.AssetID, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.ID)
	}
	return out
}

func TestFilterEmptyQueryReturnsEverything(t *testing.T) {
	all := sampleAssets()
	assert.Equal(t, ids(all), ids(Filter(all, "")))
}

func TestFilterIsSubsetAndMatches(t *testing.T) {
	all := sampleAssets()
	for _, q := range []string{"fin", "FIN", "it", "o", "l-0", "zzz", "kofi", " "} {
		t.Run(fmt.Sprintf("q=%q", q), func(t *testing.T) {
			got := Filter(all, q)
			lq := strings.ToLower(q)
			for _, a := range got {
				assert.Contains(t, ids(all), a.ID)
				hit := strings.Contains(strings.ToLower(a.Name), lq)
				for _, f := range []*string{a.Code, a.Department, a.StaffName} {
					if f != nil && strings.Contains(strings.ToLower(*f), lq) {
						hit = true
					}
				}
				assert.True(t, hit, "asset %s does not match %q", a.ID, q)
			}
		})
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	got := Filter(sampleAssets(), "fin")
	assert.Equal(t, []models.AssetID{"1", "4", "5"}, ids(got))
}

func TestFilterScenario(t *testing.T) {
	collection := []models.Asset{
		{ID: "a1", Name: "Laptop", Code: models.Ptr("L-01"), Department: models.Ptr("Finance")},
	}
	assert.Equal(t, []models.AssetID{"a1"}, ids(Filter(collection, "fin")))
	assert.Empty(t, Filter(collection, "zzz"))
}

func TestFilterDoesNotMutateSource(t *testing.T) {
	all := sampleAssets()
	before := ids(all)
	out := Filter(all, "it")
	require.NotEmpty(t, out)
	out[0].Name = "changed"
	assert.Equal(t, before, ids(all))
	assert.Equal(t, "Office Chair", all[1].Name)
}

func TestMatchingStopsEarly(t *testing.T) {
	n := 0
	for range Matching(sampleAssets(), "") {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestGroupByDepartmentPartitions(t *testing.T) {
	all := sampleAssets()
	groups := GroupByDepartment(all)

	seen := map[models.AssetID]int{}
	for _, g := range groups {
		for _, a := range g.Assets {
			seen[a.ID]++
			assert.Equal(t, g.Department, format.DepartmentLabel(a))
		}
	}
	require.Len(t, seen, len(all))
	for id, n := range seen {
		assert.Equal(t, 1, n, "asset %s appears in %d groups", id, n)
	}

	assert.Equal(t, []models.AssetID{"2", "5"}, ids(groups.Lookup("IT")))
	assert.Equal(t, []models.AssetID{"3", "4"}, ids(groups.Lookup(format.UnknownDepartment)))
	assert.Nil(t, groups.Lookup("Legal"))
}

func TestGroupByDepartmentScenario(t *testing.T) {
	collection := []models.Asset{
		{ID: "1", Department: models.Ptr("IT")},
		{ID: "2", Department: models.Ptr("")},
	}
	got := GroupByDepartment(collection).AsMap()
	assert.Equal(t, map[string][]models.Asset{
		"IT":                 {collection[0]},
		"Unknown Department": {collection[1]},
	}, got)
}

func TestDepartmentsFollowFirstAppearance(t *testing.T) {
	counts := GroupByDepartment(sampleAssets()).Departments()
	assert.Equal(t, []DepartmentCount{
		{Department: "Finance", Count: 1},
		{Department: "IT", Count: 2},
		{Department: format.UnknownDepartment, Count: 2},
	}, counts)
}

func TestGroupByDepartmentEmpty(t *testing.T) {
	assert.Empty(t, GroupByDepartment(nil))
	assert.Empty(t, GroupByDepartment(nil).Departments())
}
