package ir

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// freshSeq numbers fresh variables. Names only need to be unique within a
// process; they never reach the journal because committed literals are
// ground.
var freshSeq atomic.Int64

// Fresh prefixes used by the resolver and the goal expander.
const (
	FreshFactPrefix   = "$fv_"
	FreshClausePrefix = "$cv_"
)

// RenameTheta maps each name to a fresh variable "<prefix><n>".
func RenameTheta(names []string, prefix string) Theta {
	theta := make(Theta, len(names))
	for _, n := range names {
		theta[n] = Var{Name: prefix + strconv.FormatInt(freshSeq.Add(1), 10)}
	}
	return theta
}

// IsFresh reports whether a variable name was introduced by RenameTheta.
func IsFresh(name string) bool { return strings.HasPrefix(name, "$") }
