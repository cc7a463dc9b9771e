package licenses

// applyFilter projects the aggregated set for presentation. Order is the
// dedup order; callers may re-sort.
func applyFilter(all []License, filter Filter) []License {
	if filter == "" || filter == FilterAll {
		return all
	}
	filtered := make([]License, 0, len(all))
	for _, license := range all {
		if matchesFilter(license, filter) {
			filtered = append(filtered, license)
		}
	}
	return filtered
}

func matchesFilter(license License, filter Filter) bool {
	switch filter {
	case FilterCreator:
		return license.Role == RoleCreator
	case FilterLicensee:
		return license.Role == RoleLicensee
	case FilterActive:
		return license.IsActive
	case FilterInactive:
		return !license.IsActive
	}
	return true
}
