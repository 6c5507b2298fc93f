package repositories

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Page carries the limit/offset window for listing queries. The zero value is
// valid and resolves to the first default-sized page.
type Page struct {
	Limit  int
	Offset int
}

// normalize clamps the window to sane bounds so a listing can never return an
// unbounded result set.
func (p Page) normalize() Page {
	if p.Limit <= 0 || p.Limit > maxPageLimit {
		p.Limit = defaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
