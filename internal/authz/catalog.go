package authz

// Permission keys follow the "<resource>.<verb>" convention. The catalog is a
// fixed enumerable set; unknown keys always deny.
const (
	PermPostsView    = "posts.view"
	PermPostsCreate  = "posts.create"
	PermPostsEdit    = "posts.edit"
	PermPostsDelete  = "posts.delete"
	PermPostsPublish = "posts.publish"

	PermJobPostsView   = "jobposts.view"
	PermJobPostsCreate = "jobposts.create"
	PermJobPostsEdit   = "jobposts.edit"
	PermJobPostsDelete = "jobposts.delete"

	PermCategoriesView   = "categories.view"
	PermCategoriesManage = "categories.manage"

	PermContributorsView   = "contributors.view"
	PermContributorsManage = "contributors.manage"

	PermUsersView   = "users.view"
	PermUsersCreate = "users.create"
	PermUsersEdit   = "users.edit"
	PermUsersDelete = "users.delete"

	PermRolesView   = "roles.view"
	PermRolesManage = "roles.manage"

	PermDomainsManage = "domains.manage"

	PermAuditView  = "audit.view"
	PermAuditPurge = "audit.purge"
)

// Permission describes one catalog entry. Group is display taxonomy only and
// plays no part in enforcement.
type Permission struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Group       string `json:"group"`
}

// Display groups.
const (
	GroupContent       = "Content"
	GroupPeople        = "People"
	GroupAccessControl = "Access Control"
	GroupSystem        = "System"
)

var catalog = []Permission{
	{Key: PermPostsView, Label: "View posts", Description: "Browse blog posts", Group: GroupContent},
	{Key: PermPostsCreate, Label: "Create posts", Description: "Author new blog posts", Group: GroupContent},
	{Key: PermPostsEdit, Label: "Edit posts", Description: "Modify existing blog posts", Group: GroupContent},
	{Key: PermPostsDelete, Label: "Delete posts", Description: "Remove blog posts", Group: GroupContent},
	{Key: PermPostsPublish, Label: "Publish posts", Description: "Publish or unpublish blog posts", Group: GroupContent},
	{Key: PermJobPostsView, Label: "View job posts", Description: "Browse job listings", Group: GroupContent},
	{Key: PermJobPostsCreate, Label: "Create job posts", Description: "Author new job listings", Group: GroupContent},
	{Key: PermJobPostsEdit, Label: "Edit job posts", Description: "Modify job listings", Group: GroupContent},
	{Key: PermJobPostsDelete, Label: "Delete job posts", Description: "Remove job listings", Group: GroupContent},
	{Key: PermCategoriesView, Label: "View categories", Description: "Browse categories", Group: GroupContent},
	{Key: PermCategoriesManage, Label: "Manage categories", Description: "Create, rename and delete categories", Group: GroupContent},
	{Key: PermContributorsView, Label: "View contributors", Description: "Browse contributor profiles", Group: GroupPeople},
	{Key: PermContributorsManage, Label: "Manage contributors", Description: "Create and edit contributor profiles", Group: GroupPeople},
	{Key: PermUsersView, Label: "View users", Description: "Browse panel users", Group: GroupPeople},
	{Key: PermUsersCreate, Label: "Create users", Description: "Invite or create panel users", Group: GroupPeople},
	{Key: PermUsersEdit, Label: "Edit users", Description: "Modify panel users and toggle activation", Group: GroupPeople},
	{Key: PermUsersDelete, Label: "Delete users", Description: "Soft delete panel users", Group: GroupPeople},
	{Key: PermRolesView, Label: "View roles", Description: "Browse roles and their permissions", Group: GroupAccessControl},
	{Key: PermRolesManage, Label: "Manage roles", Description: "Create, edit and delete roles", Group: GroupAccessControl},
	{Key: PermDomainsManage, Label: "Manage allowed domains", Description: "Maintain the sign-in domain allow list", Group: GroupSystem},
	{Key: PermAuditView, Label: "View audit log", Description: "Browse the audit trail", Group: GroupSystem},
	{Key: PermAuditPurge, Label: "Purge audit log", Description: "Delete audit entries for retention cleanup", Group: GroupSystem},
}

var catalogByKey = func() map[string]Permission {
	m := make(map[string]Permission, len(catalog))
	for _, p := range catalog {
		m[p.Key] = p
	}
	return m
}()

// Catalog returns the full permission catalog in display order.
func Catalog() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// CatalogKeys returns every permission key in the catalog.
func CatalogKeys() []string {
	keys := make([]string, 0, len(catalog))
	for _, p := range catalog {
		keys = append(keys, p.Key)
	}
	return keys
}

// KnownKey reports whether the key exists in the catalog.
func KnownKey(key string) bool {
	_, ok := catalogByKey[key]
	return ok
}

// GroupedCatalog returns catalog entries keyed by display group, preserving
// catalog order within each group.
func GroupedCatalog() map[string][]Permission {
	grouped := make(map[string][]Permission)
	for _, p := range catalog {
		grouped[p.Group] = append(grouped[p.Group], p)
	}
	return grouped
}
