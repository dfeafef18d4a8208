package model

// CompareStatus is the GitHub compare-commits relationship between a branch
// and the repository's default branch.
type CompareStatus string

// CompareStatus values.
const (
	CompareIdentical CompareStatus = "identical"
	CompareBehind    CompareStatus = "behind"
	CompareAhead     CompareStatus = "ahead"
	CompareDiverged  CompareStatus = "diverged"
)

// Branch is a repository branch as observed by the remote client.
type Branch struct {
	Owner         string
	Name          string
	Ref           string
	LastSHA       string
	CompareStatus CompareStatus
	AheadBy       int
}
