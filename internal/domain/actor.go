package domain

// Actor is the authenticated caller of an operation.
type Actor struct {
	Username string
	IsAdmin  bool
}

// CanManage reports whether the actor may delete the listing and read its inbox.
func (a Actor) CanManage(l *Listing) bool {
	return a.IsAdmin || l.OwnedBy(a.Username)
}
