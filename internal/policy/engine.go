package policy

// Admission is the state the openability decision depends on. Restricting is
// the id of the blocking task currently restricting apps, empty when none.
type Admission struct {
	Unlocked    map[string]bool
	Secret      map[string]bool
	Restricting string
	AllowList   []string
	Mailbox     string
}

// IsUnlocked reports membership in the unlock set, or a secret app.
func (a Admission) IsUnlocked(appID string) bool {
	return a.Unlocked[appID] || a.Secret[appID]
}

// CanOpen applies the blocking allow-list on top of IsUnlocked. The mailbox is
// never restricted so task status stays readable.
func (a Admission) CanOpen(appID string) (bool, string) {
	if !a.IsUnlocked(appID) {
		return false, "app is locked"
	}
	if a.Restricting == "" || appID == a.Mailbox {
		return true, "allowed"
	}
	for _, allowed := range a.AllowList {
		if allowed == appID {
			return true, "allowed while " + a.Restricting + " is outstanding"
		}
	}
	return false, "restricted by blocking task " + a.Restricting
}
