// Package model holds the plain data types shared across agpm's ports and
// adapters: repository references, pull requests, branches, and the
// enumerations the rule engine and remote client operate on.
package model

// RepoRef identifies a repository by owner and name. Both fields are
// required; identity is the "owner/name" slug.
type RepoRef struct {
	Owner string
	Name  string
}

// Slug returns the "owner/name" identity of the repository.
func (r RepoRef) Slug() string {
	return r.Owner + "/" + r.Name
}
