package live

func VersAtLeast(major, minor int) func(VersionNum) bool {
	return func(v VersionNum) bool {
		return v.IsAtLeast(major, minor)
	}
}

// pg_roles.rolbypassrls appeared in 9.5
var FEAT_ROLE_BYPASSRLS = VersAtLeast(9, 5)
