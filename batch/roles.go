package batch

import "batchtrack/store"

// Capability is something a role may do with batches and records.
type Capability int

const (
	CapCreateBatch Capability = iota
	CapAdvanceBatch
	CapUpdateBatch
	CapDeleteBatch
	CapWriteMaterial
	CapWriteEquipment
	CapWriteQuality
	CapListMaterial
	CapListEquipment
	CapListQuality
)

var grants = map[Capability][]string{
	CapCreateBatch:    {store.RoleAdmin, store.RoleWrite, store.RoleWriteMaterial},
	CapAdvanceBatch:   {store.RoleAdmin, store.RoleWrite},
	CapUpdateBatch:    {store.RoleAdmin, store.RoleWrite, store.RoleWriteMaterial},
	CapDeleteBatch:    {store.RoleAdmin},
	CapWriteMaterial:  {store.RoleAdmin, store.RoleWrite, store.RoleWriteMaterial},
	CapWriteEquipment: {store.RoleAdmin, store.RoleWrite, store.RoleWriteMaterial},
	CapWriteQuality:   {store.RoleAdmin, store.RoleWrite, store.RoleWriteQuality},
}

// Allowed reports whether role holds capability c. Listing is open to every
// role except the one restricted to the other family.
func Allowed(role string, c Capability) bool {
	switch c {
	case CapListMaterial, CapListEquipment:
		return store.IsRole(role) && role != store.RoleWriteQuality
	case CapListQuality:
		return store.IsRole(role) && role != store.RoleWriteMaterial
	}
	for _, r := range grants[c] {
		if r == role {
			return true
		}
	}
	return false
}

// HidesQuality reports whether role must not observe quality data.
func HidesQuality(role string) bool { return role == store.RoleWriteMaterial }

// Redact zeroes quality counts for roles that may not see quality data.
func Redact(groups []Group, role string) []Group {
	if !HidesQuality(role) {
		return groups
	}
	out := make([]Group, len(groups))
	for i, g := range groups {
		g.QualityCount = 0
		segs := make([]StageSummary, len(g.Segments))
		for j, s := range g.Segments {
			s.QualityCount = 0
			segs[j] = s
		}
		g.Segments = segs
		out[i] = g
	}
	return out
}
