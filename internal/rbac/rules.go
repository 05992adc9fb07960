package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view",
		"attempt:submit",
		"attempt:view-own",
		"attempt:reset-own",
	},
	"teacher": {
		"quiz:view",
		"quiz:create",
		"quiz:update",
		"quiz:delete-own",
		"attempt:view-all",
	},
	"admin": {
		"*", // everything
	},
}
