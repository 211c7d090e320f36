package readtrack

// Unseen is the old count reported the first time a book is counted.
const Unseen = -1

type CountChange interface {
	Title() string
	OldCount() int
	NewCount() int
}

type countChange struct {
	title    string
	oldCount int
	newCount int
}

func NewCountChange(t string, o int, n int) CountChange {
	return countChange{title: t, oldCount: o, newCount: n}
}

func (cc countChange) Title() string { return cc.title }
func (cc countChange) OldCount() int { return cc.oldCount }
func (cc countChange) NewCount() int { return cc.newCount }
