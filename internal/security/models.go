// Package security enforces per-feature protections on operations.
package security

const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
)

const (
	CheckLogin      = "login"
	CheckIPAddress  = "ip_address"
	CheckDualFactor = "dual_factor"
)

// Protection guards one operation of a feature. An empty user list admits
// every user; each enabled check must pass.
type Protection struct {
	UserList []string        `json:"user_list,omitempty" bson:"user_list,omitempty"`
	Checks   map[string]bool `json:"checks,omitempty" bson:"checks,omitempty"`
}

// FeatureRecord holds the protections of one feature, keyed by operation
type FeatureRecord struct {
	Feature    string                `json:"feature" bson:"_id"`
	Operations map[string]Protection `json:"operations" bson:"operations"`
}

// CheckInput is what the caller presents to the checks
type CheckInput struct {
	LoginVerified bool
	IPAddress     string
}

// DefaultRecords protects creating and deleting people behind a login and
// the admin allow list. Updates only need a login here; the people handler
// limits role changes to masthead editors.
func DefaultRecords(admins []string) []FeatureRecord {
	adminOnly := Protection{
		UserList: append([]string{}, admins...),
		Checks:   map[string]bool{CheckLogin: true},
	}
	return []FeatureRecord{
		{
			Feature: "people",
			Operations: map[string]Protection{
				OpCreate: adminOnly,
				OpUpdate: {Checks: map[string]bool{CheckLogin: true}},
				OpDelete: adminOnly,
			},
		},
	}
}
